package params

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/nbforce/nbforce/sim"
)

// InteractionConst holds the cutoff, shift and electrostatics constants of
// one run.
type InteractionConst struct {
	Coulomb  sim.CoulombType
	RCoulomb float64 // nm
	RVdw     float64 // nm
	RList    float64 // nm, pair-search radius

	// EpsFac converts q_i*q_j/r to kJ/mol: ONE_4PI_EPS0/epsilon_r.
	EpsFac float64

	// Reaction field. For CoulombCutoff KRF is 0 and CRF is 1/rc.
	EpsilonRF float64
	KRF       float64
	CRF       float64

	// Ewald real-space split.
	EwaldBeta  float64
	EwaldShift float64     // erfc(beta*rc)/rc
	EwaldTable *EwaldTable // always built for CoulombEwald

	// LJ potential shifts, added to r^-6 and r^-12 before scaling.
	DispersionShift float64 // -1/rvdw^6
	RepulsionShift  float64 // -1/rvdw^12

	// LJ-Ewald (geometric grid) correction.
	LJEwald      bool
	LJEwaldBeta  float64
	LJEwaldShift float64 // (exp(-x)(1+x+x^2/2) - 1)/rvdw^6 with x = (beta_lj*rvdw)^2
}

// NewInteractionConst derives all constants from validated options.
func NewInteractionConst(opts sim.Options) (*InteractionConst, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rc := opts.CutoffRadius
	rvdw := opts.VdwCutoff()
	ic := &InteractionConst{
		Coulomb:   opts.CoulombType,
		RCoulomb:  rc,
		RVdw:      rvdw,
		RList:     opts.PairlistCutoff(),
		EpsFac:    sim.OneFourPiEps0 / opts.EpsilonR,
		EpsilonRF: opts.EpsilonRF,
		LJEwald:   opts.LJEwald,
	}

	rvdw6 := math.Pow(rvdw, 6)
	ic.DispersionShift = -1 / rvdw6
	ic.RepulsionShift = -1 / (rvdw6 * rvdw6)

	switch opts.CoulombType {
	case sim.CoulombCutoff:
		ic.CRF = 1 / rc
	case sim.CoulombReactionField:
		ic.KRF, ic.CRF = ReactionFieldConstants(opts.EpsilonR, opts.EpsilonRF, rc)
	case sim.CoulombEwald:
		ic.EwaldBeta = EwaldCoefficient(rc, opts.EwaldRTol)
		if !(ic.EwaldBeta > 0) {
			return nil, sim.ConfigErrorf("params: the Ewald coefficient must be > 0, got %g", ic.EwaldBeta)
		}
		ic.EwaldShift = math.Erfc(ic.EwaldBeta*rc) / rc
		ic.EwaldTable = NewEwaldTable(ic.EwaldBeta, rc)
		logrus.Infof("[params] Ewald coefficient %.6f nm^-1 (rtol %g, rc %g nm), table scale %.0f/nm",
			ic.EwaldBeta, opts.EwaldRTol, rc, ic.EwaldTable.Scale)
	}

	if opts.LJEwald {
		ic.LJEwaldBeta = LJEwaldCoefficient(rvdw, opts.LJEwaldRTol)
		x := ic.LJEwaldBeta * ic.LJEwaldBeta * rvdw * rvdw
		ic.LJEwaldShift = (math.Exp(-x)*(1+x+0.5*x*x) - 1) / rvdw6
		logrus.Infof("[params] LJ-Ewald coefficient %.6f nm^-1 (rtol %g)", ic.LJEwaldBeta, opts.LJEwaldRTol)
	}
	return ic, nil
}

// ReactionFieldConstants returns k_rf and c_rf for dielectric constants epsR
// and epsRF at cutoff rc. epsRF 0 means infinity (conducting boundary).
// c_rf makes the pair potential vanish at rc.
func ReactionFieldConstants(epsR, epsRF, rc float64) (kRF, cRF float64) {
	rc3 := rc * rc * rc
	if epsRF == 0 {
		kRF = 1 / (2 * rc3)
	} else {
		kRF = (epsRF - epsR) / ((2*epsRF + epsR) * rc3)
	}
	cRF = 1/rc + kRF*rc*rc
	return kRF, cRF
}

// HasExclusionForces reports whether excluded pairs within the cutoff still
// receive a correction force: reaction field, Ewald, or LJ-Ewald.
func (ic *InteractionConst) HasExclusionForces() bool {
	return ic.Coulomb == sim.CoulombReactionField || ic.Coulomb == sim.CoulombEwald || ic.LJEwald
}

// HaveVdwCutoffCheck reports whether LJ is cut shorter than Coulomb.
func (ic *InteractionConst) HaveVdwCutoffCheck() bool {
	return ic.RVdw < ic.RCoulomb
}
