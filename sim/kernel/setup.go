package kernel

import (
	"math"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/params"
)

// MinDistanceSquared is the floor applied to r^2 before taking 1/r. At 1e-30
// nm^2, r^-14 stays far below the float64 range, and no physical pair gets
// this close.
const MinDistanceSquared = 1e-30

// Setup carries the run-time flags and constants shared by all variants.
// It is immutable once the dispatcher is configured.
type Setup struct {
	IC *params.InteractionConst

	Coulomb      bool                // any particle is charged
	LJRule       sim.CombinationRule // on-the-fly combination, or none for table lookup
	Energies     bool
	EnergyGroups bool // per group-pair energies instead of scalars
	VdwCheck     bool // LJ cut shorter than Coulomb
	LJEwald      bool
	ExclForces   bool // excluded pairs within the cutoff get correction forces

	kc kconst
}

// kconst holds the derived scalars the inner loops read.
type kconst struct {
	rc2, rvdw2 float64
	minRsq     float64
	epsfac     float64

	krf, crf float64

	beta2         float64
	beta          float64
	twoBetaSqrtPi float64
	ewaldShift    float64
	table         *params.EwaldTable

	shDisp, shRep float64

	ljBeta2      float64
	ljBeta6Over6 float64
	ljShift      float64
}

func newKConst(ic *params.InteractionConst) kconst {
	lj2 := ic.LJEwaldBeta * ic.LJEwaldBeta
	kc := kconst{
		rc2:           ic.RCoulomb * ic.RCoulomb,
		rvdw2:         ic.RVdw * ic.RVdw,
		minRsq:        MinDistanceSquared,
		epsfac:        ic.EpsFac,
		krf:           ic.KRF,
		crf:           ic.CRF,
		beta:          ic.EwaldBeta,
		beta2:         ic.EwaldBeta * ic.EwaldBeta,
		twoBetaSqrtPi: 2 * ic.EwaldBeta / math.Sqrt(math.Pi),
		ewaldShift:    ic.EwaldShift,
		table:         ic.EwaldTable,
		shDisp:        ic.DispersionShift,
		shRep:         ic.RepulsionShift,
		ljBeta2:       lj2,
		ljBeta6Over6:  lj2 * lj2 * lj2 / 6,
		ljShift:       ic.LJEwaldShift,
	}
	if ic.Coulomb == sim.CoulombCutoff {
		// The potential is shifted by 1/rc; no reaction-field term.
		kc.krf = 0
	}
	return kc
}
