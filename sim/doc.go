// Package sim provides the configuration surface and shared types of the
// short-range non-bonded force engine.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - options.go: the configuration record, its enums and static validation
//   - bundle.go: loading options from YAML or INI files
//   - box.go: the periodic simulation box
//
// # Architecture
//
// The sim package owns configuration and error types; implementations live in
// sub-packages, leaf first:
//   - sim/simd/: fixed-width lane vectors with select-based masking and SIMD level detection
//   - sim/params/: LJ parameter tables, combination rules, Coulomb/LJ interaction constants
//   - sim/atomdata/: the cluster data store (packed coordinates, charges, types, energy groups)
//   - sim/pairlist/: cluster pair lists, periodic shift vectors and a reference builder
//   - sim/force/: per-worker output buffers and the reduction into a single outcome
//   - sim/kernel/: the pair kernels, their registry and the dispatcher
//   - sim/workerpool/: the persistent pool that runs pair-list partitions
//   - sim/nbv/: the top-level force calculator exposing ComputeForces
//   - sim/workload/: deterministic synthetic systems for the CLI and tests
//
// Kernel variants register themselves via init() functions in sim/kernel and
// are selected once, at setup, by kernel.Dispatcher.
//
// # Errors
//
// Every configuration problem is reported as an error wrapping ErrConfig.
// Nothing inside a force evaluation returns an error: all validation happens
// before the first step.
package sim
