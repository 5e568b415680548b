// Package params builds the read-only interaction parameter objects used by
// the pair kernels: the LJ coefficient table with its per-type combination
// vectors, and the electrostatics constants including the Ewald correction
// table. Everything here is immutable after construction and is passed to the
// kernels explicitly.
package params

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/nbforce/nbforce/sim"
)

// ParticleType holds the LJ self-interaction coefficients of one atom type.
type ParticleType struct {
	Name string
	C6   float64 // dispersion coefficient, kJ mol^-1 nm^6
	C12  float64 // repulsion coefficient, kJ mol^-1 nm^12
}

// TypePair is an unordered pair of type indices.
type TypePair struct {
	A, B int
}

func newTypePair(a, b int) TypePair {
	if a > b {
		a, b = b, a
	}
	return TypePair{A: a, B: b}
}

// PairCoefficients are the C6/C12 of one cross interaction.
type PairCoefficients struct {
	C6, C12 float64
}

// InteractionMap holds explicit pair coefficients. Entries are symmetric:
// Set(a, b) and Set(b, a) address the same pair.
type InteractionMap map[TypePair]PairCoefficients

// Set records the coefficients for the type pair (a, b).
func (m InteractionMap) Set(a, b int, c6, c12 float64) {
	m[newTypePair(a, b)] = PairCoefficients{C6: c6, C12: c12}
}

// Get returns the coefficients for (a, b) and whether they were set.
func (m InteractionMap) Get(a, b int) (PairCoefficients, bool) {
	c, ok := m[newTypePair(a, b)]
	return c, ok
}

// combinationRelTol is the relative tolerance used when checking whether a
// finished table still obeys a combination rule.
const combinationRelTol = 1e-12

// Table is the dense (type, type) LJ coefficient table. It stores
// (6*C6, 12*C12) per pair and carries one extra trailing type with all-zero
// coefficients that padding particles use.
type Table struct {
	numTypes int
	names    []string
	nbfp     []float64 // (numTypes+1)^2 pairs of (6*C6, 12*C12)
	geom     []float64 // per type: sqrt(6*C6), sqrt(12*C12)
	lb       []float64 // per type: sigma/2, sqrt(epsilon)
	grid     []float64 // per type: sqrt(6*C6_ii) for the LJ-Ewald grid
	rule     sim.CombinationRule
}

// BuildParameters derives the full LJ table from per-type coefficients, the
// explicit overrides and the combination rule. With CombinationNone every
// type pair must be present in overrides.
func BuildParameters(types []ParticleType, overrides InteractionMap, rule sim.CombinationRule) (*Table, error) {
	if len(types) == 0 {
		return nil, sim.ConfigErrorf("params: no particle types")
	}
	if !sim.ValidCombinationRules[rule] {
		return nil, sim.ConfigErrorf("params: unknown combination rule %q", rule)
	}
	for i, pt := range types {
		if pt.C6 < 0 || pt.C12 < 0 || math.IsNaN(pt.C6) || math.IsNaN(pt.C12) {
			return nil, sim.ConfigErrorf("params: type %d (%s) has negative LJ coefficients", i, pt.Name)
		}
	}
	for _, key := range sortedPairs(overrides) {
		if key.A < 0 || key.B >= len(types) {
			return nil, sim.ConfigErrorf("params: override for type pair (%d,%d) out of range [0,%d)", key.A, key.B, len(types))
		}
		c := overrides[key]
		if c.C6 < 0 || c.C12 < 0 {
			return nil, sim.ConfigErrorf("params: override for type pair (%d,%d) has negative coefficients", key.A, key.B)
		}
	}

	nt := len(types)
	stride := nt + 1
	t := &Table{
		numTypes: nt,
		names:    make([]string, nt),
		nbfp:     make([]float64, 2*stride*stride),
		geom:     make([]float64, 2*stride),
		lb:       make([]float64, 2*stride),
		grid:     make([]float64, stride),
	}
	sigma := make([]float64, nt)
	eps := make([]float64, nt)
	for i, pt := range types {
		t.names[i] = pt.Name
		sigma[i], eps[i] = sigmaEpsilon(pt.C6, pt.C12)
	}

	for a := 0; a < nt; a++ {
		for b := a; b < nt; b++ {
			var c PairCoefficients
			if o, ok := overrides.Get(a, b); ok {
				c = o
			} else {
				switch rule {
				case sim.CombinationNone:
					return nil, sim.ConfigErrorf("params: no coefficients for type pair (%s,%s) and no combination rule", types[a].Name, types[b].Name)
				case sim.CombinationGeometric:
					c = geometricPair(types[a], types[b])
				case sim.CombinationLorentzBerthelot:
					c = lorentzBerthelotPair(sigma[a], eps[a], sigma[b], eps[b])
				}
			}
			t.setPair(a, b, c)
		}
	}

	// Per-type combination vectors are derived from the finished diagonal so
	// that they agree with the table whenever the table obeys a rule.
	for a := 0; a < nt; a++ {
		c6x6, c12x12 := t.Pair(a, a)
		t.geom[2*a] = math.Sqrt(c6x6)
		t.geom[2*a+1] = math.Sqrt(c12x12)
		s, e := sigmaEpsilon(c6x6/6, c12x12/12)
		t.lb[2*a] = 0.5 * s
		t.lb[2*a+1] = math.Sqrt(e)
		t.grid[a] = math.Sqrt(c6x6)
	}
	t.rule = t.detectRule()
	return t, nil
}

func (t *Table) setPair(a, b int, c PairCoefficients) {
	stride := t.numTypes + 1
	for _, idx := range []int{a*stride + b, b*stride + a} {
		t.nbfp[2*idx] = 6 * c.C6
		t.nbfp[2*idx+1] = 12 * c.C12
	}
}

// NumTypes returns the number of real particle types.
func (t *Table) NumTypes() int { return t.numTypes }

// PaddingType returns the index of the all-zero type used by padding particles.
func (t *Table) PaddingType() int { return t.numTypes }

// Stride returns the row length of the table in type pairs, including the
// padding type.
func (t *Table) Stride() int { return t.numTypes + 1 }

// Name returns the name of type a.
func (t *Table) Name(a int) string {
	if a == t.numTypes {
		return "padding"
	}
	return t.names[a]
}

// Pair returns (6*C6, 12*C12) for the type pair (a, b).
func (t *Table) Pair(a, b int) (c6x6, c12x12 float64) {
	idx := a*t.Stride() + b
	return t.nbfp[2*idx], t.nbfp[2*idx+1]
}

// NBFP returns the raw table; pair (a, b) lives at 2*(a*Stride()+b).
// Callers must not modify it.
func (t *Table) NBFP() []float64 { return t.nbfp }

// LJComb returns the per-type combination parameters for rule: two values per
// type, indexed 2*type. Geometric gives sqrt(6*C6), sqrt(12*C12); Lorentz-
// Berthelot gives sigma/2, sqrt(epsilon). CombinationNone returns nil.
func (t *Table) LJComb(rule sim.CombinationRule) []float64 {
	switch rule {
	case sim.CombinationGeometric:
		return t.geom
	case sim.CombinationLorentzBerthelot:
		return t.lb
	default:
		return nil
	}
}

// LJGrid returns sqrt(6*C6_aa) per type; the product for two types is the
// geometric grid C6 used by the LJ-Ewald correction.
func (t *Table) LJGrid() []float64 { return t.grid }

// KernelRule reports which on-the-fly combination the kernel may use. It is
// detected from the finished table, so overrides that break a rule fall back
// to CombinationNone (direct table lookup), and an explicit table that happens
// to be geometric still gets the faster path.
func (t *Table) KernelRule() sim.CombinationRule { return t.rule }

func (t *Table) detectRule() sim.CombinationRule {
	if t.obeys(func(a, b int) (float64, float64) {
		return t.geom[2*a] * t.geom[2*b], t.geom[2*a+1] * t.geom[2*b+1]
	}) {
		return sim.CombinationGeometric
	}
	if t.obeys(func(a, b int) (float64, float64) {
		return lbCombine(t.lb[2*a], t.lb[2*a+1], t.lb[2*b], t.lb[2*b+1])
	}) {
		return sim.CombinationLorentzBerthelot
	}
	return sim.CombinationNone
}

func (t *Table) obeys(combine func(a, b int) (float64, float64)) bool {
	for a := 0; a < t.numTypes; a++ {
		for b := a; b < t.numTypes; b++ {
			c6, c12 := t.Pair(a, b)
			g6, g12 := combine(a, b)
			if !closeRel(c6, g6) || !closeRel(c12, g12) {
				return false
			}
		}
	}
	return true
}

func closeRel(a, b float64) bool {
	if a == b {
		return true
	}
	return scalar.EqualWithinRel(a, b, combinationRelTol)
}

// lbCombine converts per-type (sigma/2, sqrt(eps)) into the pre-multiplied
// pair coefficients (6*C6, 12*C12).
func lbCombine(halfSigA, sqrtEpsA, halfSigB, sqrtEpsB float64) (c6x6, c12x12 float64) {
	sig := halfSigA + halfSigB
	eps := sqrtEpsA * sqrtEpsB
	sig2 := sig * sig
	sig6 := sig2 * sig2 * sig2
	return 24 * eps * sig6, 48 * eps * sig6 * sig6
}

func geometricPair(a, b ParticleType) PairCoefficients {
	return PairCoefficients{C6: math.Sqrt(a.C6 * b.C6), C12: math.Sqrt(a.C12 * b.C12)}
}

func lorentzBerthelotPair(sigA, epsA, sigB, epsB float64) PairCoefficients {
	sig := 0.5 * (sigA + sigB)
	eps := math.Sqrt(epsA * epsB)
	sig6 := math.Pow(sig, 6)
	return PairCoefficients{C6: 4 * eps * sig6, C12: 4 * eps * sig6 * sig6}
}

// sigmaEpsilon converts C6/C12 to sigma/epsilon. A type without both
// coefficients has sigma = epsilon = 0 and does not interact under
// Lorentz-Berthelot.
func sigmaEpsilon(c6, c12 float64) (sigma, eps float64) {
	if c6 <= 0 || c12 <= 0 {
		return 0, 0
	}
	return math.Pow(c12/c6, 1.0/6.0), c6 * c6 / (4 * c12)
}

func sortedPairs(m InteractionMap) []TypePair {
	keys := make([]TypePair, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	return keys
}

// String summarizes the table for setup logging.
func (t *Table) String() string {
	return fmt.Sprintf("LJ table: %d types, kernel combination %s", t.numTypes, t.rule)
}
