package kernel

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/params"
	"github.com/nbforce/nbforce/sim/simd"
)

// Dispatcher selects one kernel variant at setup time and hands it out for
// every later step. It moves from unconfigured to configured exactly once.
type Dispatcher struct {
	configured bool
	key        Key
	build      Builder
	setup      *Setup

	fn        Func // as configured
	forceOnly Func // energies off, fn when they already are
}

// NewDispatcher returns an unconfigured dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Configure resolves the layout and lane width from opts and the detected
// SIMD level, picks the electrostatics kind and looks up the variant.
// All option combinations the kernels cannot evaluate are rejected here with
// an error wrapping sim.ErrConfig. Configuring twice panics.
func (d *Dispatcher) Configure(opts sim.Options, level simd.Level, ic *params.InteractionConst, table *params.Table) error {
	if d.configured {
		panic("kernel.Dispatcher: Configure called on a configured dispatcher")
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if ic == nil || table == nil {
		return sim.ConfigErrorf("kernel: interaction constants and parameter table are required")
	}

	layout, width, err := resolveLayout(opts, level)
	if err != nil {
		return err
	}
	coulomb, err := resolveCoulomb(opts, layout)
	if err != nil {
		return err
	}
	if opts.LJEwald && opts.HaveVdwCutoffCheck() {
		return sim.ConfigErrorf("kernel: lj_ewald requires vdw_cutoff equal to cutoff")
	}

	key := Key{Layout: layout, Width: width, Coulomb: coulomb}
	build, ok := Lookup(key)
	if !ok {
		return sim.ConfigErrorf("kernel: no kernel for layout %s with simd width %d and %s electrostatics",
			layout, width, coulomb)
	}

	setup := &Setup{
		IC:           ic,
		Coulomb:      true,
		LJRule:       table.KernelRule(),
		Energies:     opts.ComputeEnergies,
		EnergyGroups: opts.NumEnergyGroups > 1,
		VdwCheck:     ic.HaveVdwCutoffCheck(),
		LJEwald:      ic.LJEwald,
		ExclForces:   ic.HasExclusionForces(),
		kc:           newKConst(ic),
	}

	d.key, d.build, d.setup, d.configured = key, build, setup, true
	d.compose()
	logrus.Infof("[kernel] selected %s (simd level %s, LJ combination %s, energies %v, energy groups %d)",
		key, level, setup.LJRule, setup.Energies, opts.NumEnergyGroups)
	return nil
}

// SetCoulomb disables the Coulomb evaluation when no particle is charged.
// It must be called before the first step.
func (d *Dispatcher) SetCoulomb(on bool) {
	d.mustBeConfigured("SetCoulomb")
	if d.setup.Coulomb == on {
		return
	}
	d.setup.Coulomb = on
	d.compose()
}

// compose binds the current Setup into the configured kernel and its
// force-only twin.
func (d *Dispatcher) compose() {
	logrus.Debugf("[kernel] composing %s (coulomb %v)", d.key, d.setup.Coulomb)
	d.fn = d.build(d.setup)
	if !d.setup.Energies {
		d.forceOnly = d.fn
		return
	}
	quiet := *d.setup
	quiet.Energies, quiet.EnergyGroups = false, false
	d.forceOnly = d.build(&quiet)
}

func resolveLayout(opts sim.Options, level simd.Level) (sim.KernelLayout, int, error) {
	layout := opts.KernelLayout
	if layout == sim.LayoutAuto {
		if level == simd.Scalar {
			layout = sim.LayoutPlainC
		} else {
			layout = sim.Layout4xM
		}
	}

	width := opts.SimdWidth
	switch layout {
	case sim.LayoutPlainC:
		if width != 0 && width != plainCJSize {
			return "", 0, sim.ConfigErrorf("kernel: plain-c layout works on 4x4 clusters, simd width %d is not supported", width)
		}
		return layout, plainCJSize, nil
	case sim.Layout4xM, sim.Layout2xMM:
		if width == 0 {
			width = level.RealWidth()
		}
		if level != simd.Scalar && width > level.RealWidth() {
			logrus.Warnf("[kernel] simd width %d exceeds the %d lanes of %s; the portable lanes will be used", width, level.RealWidth(), level)
		}
		if layout == sim.Layout2xMM && width < 4 {
			return "", 0, sim.ConfigErrorf("kernel: 2xmm layout needs a simd width of at least 4, got %d", width)
		}
		if !sim.ValidSimdWidths[width] || width == 0 {
			return "", 0, sim.ConfigErrorf("kernel: layout %s needs a simd width of 2, 4 or 8 (level %s), got %d", layout, level, width)
		}
		return layout, width, nil
	default:
		return "", 0, sim.ConfigErrorf("kernel: unknown layout %q", layout)
	}
}

func resolveCoulomb(opts sim.Options, layout sim.KernelLayout) (CoulombKind, error) {
	switch opts.CoulombType {
	case sim.CoulombCutoff:
		return CoulombCutoff, nil
	case sim.CoulombReactionField:
		return CoulombReactionField, nil
	case sim.CoulombEwald:
		if opts.UseTabulatedEwaldCorrection {
			return CoulombEwaldTab, nil
		}
		if layout != sim.LayoutPlainC {
			return CoulombEwaldAnalytical, nil
		}
		if opts.KernelLayout == sim.LayoutPlainC {
			return 0, sim.ConfigErrorf("kernel: the plain-c kernel does not support analytical Ewald correction; set tabulated_ewald_correction")
		}
		logrus.Infof("[kernel] plain-c kernel selected: using tabulated Ewald correction")
		return CoulombEwaldTab, nil
	default:
		return 0, sim.ConfigErrorf("kernel: unknown coulomb type %q", opts.CoulombType)
	}
}

// Configured reports whether Configure succeeded.
func (d *Dispatcher) Configured() bool { return d.configured }

// Kernel returns the selected variant composed for the configured options.
func (d *Dispatcher) Kernel() Func {
	d.mustBeConfigured("Kernel")
	return d.fn
}

// ForceOnlyKernel returns the selected variant with energies switched off,
// for steps that do not need them.
func (d *Dispatcher) ForceOnlyKernel() Func {
	d.mustBeConfigured("ForceOnlyKernel")
	return d.forceOnly
}

// Key returns the identity of the selected variant.
func (d *Dispatcher) Key() Key {
	d.mustBeConfigured("Key")
	return d.key
}

// Setup returns the flags and constants the kernel is called with.
func (d *Dispatcher) Setup() *Setup {
	d.mustBeConfigured("Setup")
	return d.setup
}

// JSize returns the j-cluster size the atom data and pair list must use.
func (d *Dispatcher) JSize() int {
	return d.Key().JSize()
}

func (d *Dispatcher) mustBeConfigured(method string) {
	if !d.configured {
		panic(fmt.Sprintf("kernel.Dispatcher.%s: not configured", method))
	}
}
