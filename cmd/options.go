package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/workload"
)

// buildOptions starts from the defaults or the --options file and applies
// every engine flag the user set explicitly. Unset flags never override the
// file.
func buildOptions(cmd *cobra.Command) (sim.Options, error) {
	opts := sim.DefaultOptions()
	if optionsPath != "" {
		var err error
		if opts, err = sim.LoadOptions(optionsPath); err != nil {
			return opts, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("cutoff") {
		opts.CutoffRadius = cutoff
	}
	if flags.Changed("vdw-cutoff") {
		opts.VdwCutoffRadius = vdwCutoff
	}
	if flags.Changed("pairlist-buffer") {
		opts.PairlistBuffer = pairlistBuffer
	}
	if flags.Changed("coulomb") {
		opts.CoulombType = sim.CoulombType(coulombType)
	}
	if flags.Changed("combination-rule") {
		opts.CombinationRule = sim.CombinationRule(combinationRule)
	}
	if flags.Changed("tabulated-ewald") {
		opts.UseTabulatedEwaldCorrection = tabulatedEwald
	}
	if flags.Changed("lj-ewald") {
		opts.LJEwald = ljEwald
	}
	if flags.Changed("no-energies") {
		opts.ComputeEnergies = !noEnergies
	}
	if flags.Changed("energy-groups") {
		opts.NumEnergyGroups = energyGroups
	}
	if flags.Changed("threads") {
		opts.NumThreads = threads
	}
	if flags.Changed("kernel") {
		opts.KernelLayout = sim.KernelLayout(kernelLayout)
	}
	if flags.Changed("simd-width") {
		opts.SimdWidth = simdWidth
	}
	return opts, opts.Validate()
}

// buildSystem generates the synthetic system selected by --system.
func buildSystem(opts sim.Options) (*workload.System, error) {
	var (
		s   *workload.System
		err error
	)
	switch systemKind {
	case "water":
		s, err = workload.WaterBox(numMols, workload.Seed(seed))
	case "lj":
		s, err = workload.LJFluid(numMols, density, workload.Seed(seed))
	default:
		return nil, sim.ConfigErrorf("unknown system %q, want water or lj", systemKind)
	}
	if err != nil {
		return nil, err
	}
	s.AssignEnergyGroups(opts.NumEnergyGroups)
	return s, nil
}
