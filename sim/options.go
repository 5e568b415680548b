package sim

import (
	"math"
)

// CoulombType selects the electrostatics family evaluated by the pair kernel.
type CoulombType string

const (
	CoulombCutoff        CoulombType = "cutoff"         // plain cut-off, potential shifted to zero at rc
	CoulombReactionField CoulombType = "reaction-field" // reaction-field correction, applied to exclusions too
	CoulombEwald         CoulombType = "ewald"          // real-space part of an Ewald/PME split
)

// CombinationRule selects how cross-type LJ parameters are derived.
type CombinationRule string

const (
	CombinationNone             CombinationRule = "none"              // explicit per-pair values
	CombinationGeometric        CombinationRule = "geometric"         // C6 = sqrt(C6i*C6j), C12 likewise
	CombinationLorentzBerthelot CombinationRule = "lorentz-berthelot" // arithmetic sigma, geometric epsilon
)

// KernelLayout selects the cluster layout of the pair kernel.
type KernelLayout string

const (
	LayoutAuto   KernelLayout = "auto"    // chosen from the detected SIMD level
	LayoutPlainC KernelLayout = "plain-c" // scalar 4x4 reference kernel
	Layout4xM    KernelLayout = "4xm"     // 4 i-atoms, one register of M j-atoms per i-atom
	Layout2xMM   KernelLayout = "2xmm"    // 4 i-atoms, two i-atoms per register, M/2 j-atoms
)

// ValidCoulombTypes is the set of recognized electrostatics names.
// Shared by Validate() and the option file loaders.
var ValidCoulombTypes = map[CoulombType]bool{CoulombCutoff: true, CoulombReactionField: true, CoulombEwald: true}

// ValidCombinationRules is the set of recognized combination rule names.
var ValidCombinationRules = map[CombinationRule]bool{
	CombinationNone: true, CombinationGeometric: true, CombinationLorentzBerthelot: true,
}

// ValidKernelLayouts is the set of recognized kernel layout names.
var ValidKernelLayouts = map[KernelLayout]bool{LayoutAuto: true, LayoutPlainC: true, Layout4xM: true, Layout2xMM: true}

// ValidSimdWidths lists the float64 lane counts a kernel can be instantiated with.
// Zero means "use the detected hardware width".
var ValidSimdWidths = map[int]bool{0: true, 2: true, 4: true, 8: true}

const (
	// MaxThreads bounds NumThreads; larger values are treated as misconfiguration.
	MaxThreads = 256
	// MaxEnergyGroups bounds NumEnergyGroups.
	MaxEnergyGroups = 64
	// OneFourPiEps0 is the Coulomb conversion factor in kJ mol^-1 nm e^-2.
	OneFourPiEps0 = 138.935458
)

// Options is the configuration record of the non-bonded engine.
// Zero-valued optional fields mean "not set": VdwCutoffRadius 0 uses the
// Coulomb cutoff, EpsilonRF 0 means an infinite reaction-field dielectric.
type Options struct {
	CutoffRadius                float64         `yaml:"cutoff"`                     // nm, must be > 0
	VdwCutoffRadius             float64         `yaml:"vdw_cutoff"`                 // nm, 0 = same as cutoff
	PairlistBuffer              float64         `yaml:"pairlist_buffer"`            // nm added to the cutoff for the pair search
	CombinationRule             CombinationRule `yaml:"combination_rule"`           // LJ combination rule
	CoulombType                 CoulombType     `yaml:"coulomb_type"`               // electrostatics family
	UseTabulatedEwaldCorrection bool            `yaml:"tabulated_ewald_correction"` // table instead of analytical erf
	EwaldRTol                   float64         `yaml:"ewald_rtol"`                 // relative strength of the Ewald real-space part at the cutoff
	EpsilonR                    float64         `yaml:"epsilon_r"`                  // relative dielectric constant
	EpsilonRF                   float64         `yaml:"epsilon_rf"`                 // reaction-field dielectric, 0 = infinity
	LJEwald                     bool            `yaml:"lj_ewald"`                   // add the geometric LJ-PME grid correction
	LJEwaldRTol                 float64         `yaml:"lj_ewald_rtol"`              // relative strength of the dispersion real-space part at the cutoff
	ComputeEnergies             bool            `yaml:"compute_energies"`           // accumulate potential energies
	NumEnergyGroups             int             `yaml:"energy_groups"`              // >1 enables per-group-pair energies
	NumThreads                  int             `yaml:"threads"`                    // worker count, one pair-list partition each
	KernelLayout                KernelLayout    `yaml:"kernel"`                     // cluster layout, "auto" by default
	SimdWidth                   int             `yaml:"simd_width"`                 // float64 lanes, 0 = detect
}

// DefaultOptions returns the engine defaults: 1 nm cutoffs with a 0.1 nm
// pair-list buffer, Ewald electrostatics with analytical correction,
// geometric combination, energies on, one energy group, one thread.
func DefaultOptions() Options {
	return Options{
		CutoffRadius:    1.0,
		PairlistBuffer:  0.1,
		CombinationRule: CombinationGeometric,
		CoulombType:     CoulombEwald,
		EwaldRTol:       1e-5,
		EpsilonR:        1.0,
		LJEwaldRTol:     1e-3,
		ComputeEnergies: true,
		NumEnergyGroups: 1,
		NumThreads:      1,
		KernelLayout:    LayoutAuto,
	}
}

// VdwCutoff returns the effective LJ cutoff.
func (o Options) VdwCutoff() float64 {
	if o.VdwCutoffRadius == 0 {
		return o.CutoffRadius
	}
	return o.VdwCutoffRadius
}

// HaveVdwCutoffCheck reports whether LJ needs its own, shorter, cutoff mask.
func (o Options) HaveVdwCutoffCheck() bool {
	return o.VdwCutoffRadius > 0 && o.VdwCutoffRadius < o.CutoffRadius
}

// PairlistCutoff returns the radius used by the pair search.
func (o Options) PairlistCutoff() float64 {
	return o.CutoffRadius + o.PairlistBuffer
}

// Validate checks names and parameter ranges. It does not look at hardware;
// layout/width compatibility is checked by the kernel dispatcher.
func (o Options) Validate() error {
	if !(o.CutoffRadius > 0) || math.IsInf(o.CutoffRadius, 0) {
		return ConfigErrorf("cutoff must be positive and finite, got %g", o.CutoffRadius)
	}
	if o.VdwCutoffRadius < 0 {
		return ConfigErrorf("vdw_cutoff must be non-negative, got %g", o.VdwCutoffRadius)
	}
	if o.VdwCutoffRadius > o.CutoffRadius {
		return ConfigErrorf("vdw_cutoff (%g) may not exceed cutoff (%g)", o.VdwCutoffRadius, o.CutoffRadius)
	}
	if o.PairlistBuffer < 0 || math.IsNaN(o.PairlistBuffer) {
		return ConfigErrorf("pairlist_buffer must be non-negative, got %g", o.PairlistBuffer)
	}
	if !ValidCoulombTypes[o.CoulombType] {
		return ConfigErrorf("unknown coulomb type %q", o.CoulombType)
	}
	if !ValidCombinationRules[o.CombinationRule] {
		return ConfigErrorf("unknown combination rule %q", o.CombinationRule)
	}
	if !ValidKernelLayouts[o.KernelLayout] {
		return ConfigErrorf("unknown kernel layout %q", o.KernelLayout)
	}
	if !ValidSimdWidths[o.SimdWidth] {
		return ConfigErrorf("unsupported simd width %d", o.SimdWidth)
	}
	if !(o.EpsilonR > 0) {
		return ConfigErrorf("epsilon_r must be positive, got %g", o.EpsilonR)
	}
	if o.EpsilonRF < 0 || (o.EpsilonRF > 0 && o.EpsilonRF < 1) {
		return ConfigErrorf("epsilon_rf must be 0 (infinity) or >= 1, got %g", o.EpsilonRF)
	}
	if o.CoulombType == CoulombEwald && !(o.EwaldRTol > 0 && o.EwaldRTol < 1) {
		return ConfigErrorf("ewald_rtol must be in (0,1), got %g", o.EwaldRTol)
	}
	if o.LJEwald && !(o.LJEwaldRTol > 0 && o.LJEwaldRTol < 1) {
		return ConfigErrorf("lj_ewald_rtol must be in (0,1), got %g", o.LJEwaldRTol)
	}
	if o.NumEnergyGroups < 1 || o.NumEnergyGroups > MaxEnergyGroups {
		return ConfigErrorf("energy_groups must be in [1,%d], got %d", MaxEnergyGroups, o.NumEnergyGroups)
	}
	if o.NumEnergyGroups > 1 && !o.ComputeEnergies {
		return ConfigErrorf("energy_groups=%d requires compute_energies", o.NumEnergyGroups)
	}
	if o.NumThreads < 1 || o.NumThreads > MaxThreads {
		return ConfigErrorf("threads must be in [1,%d], got %d", MaxThreads, o.NumThreads)
	}
	return nil
}
