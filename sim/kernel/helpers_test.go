package kernel

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/atomdata"
	"github.com/nbforce/nbforce/sim/force"
	"github.com/nbforce/nbforce/sim/pairlist"
	"github.com/nbforce/nbforce/sim/params"
	"github.com/nbforce/nbforce/sim/simd"
	"github.com/nbforce/nbforce/sim/workerpool"
)

// testTypes are water-like oxygen and hydrogen plus a bare LJ type.
var testTypes = []params.ParticleType{
	{Name: "OW", C6: 0.0026173456, C12: 2.634129e-06},
	{Name: "HW", C6: 0, C12: 0},
	{Name: "AR", C6: 0.0062, C12: 9.7e-06},
}

// problem is the input of one kernel evaluation.
type problem struct {
	types     []params.ParticleType
	overrides params.InteractionMap
	sys       atomdata.System
	box       sim.Box
	excl      [][2]int
}

// evaluation is what a configured kernel produced for a problem.
type evaluation struct {
	out   *force.Outcome
	key   Key
	setup *Setup
	ic    *params.InteractionConst
	table *params.Table
}

// evaluate runs the full setup path (tables, dispatcher, atom data, pair
// search) and one force evaluation.
func evaluate(t *testing.T, opts sim.Options, p problem) evaluation {
	t.Helper()
	table, err := params.BuildParameters(p.types, p.overrides, opts.CombinationRule)
	require.NoError(t, err)
	ic, err := params.NewInteractionConst(opts)
	require.NoError(t, err)
	d := NewDispatcher()
	require.NoError(t, d.Configure(opts, simd.AVX512, ic, table))

	sys := p.sys
	if opts.NumEnergyGroups == 1 {
		sys.EnergyGroups = nil
	}
	ad, err := atomdata.New(sys, table, d.JSize(), opts.NumEnergyGroups)
	require.NoError(t, err)
	excl, err := pairlist.NewExclusions(len(p.sys.Positions), p.excl)
	require.NoError(t, err)
	set, err := pairlist.Build(context.Background(), ad, p.box, excl, pairlist.Params{
		RList:        ic.RList,
		JSize:        d.JSize(),
		NumLists:     opts.NumThreads,
		KeepExcluded: d.Setup().ExclForces,
	})
	require.NoError(t, err)

	shifts := pairlist.Shifts(p.box)
	pool := workerpool.New(opts.NumThreads)
	defer pool.Close()
	outputs := make([]*force.ThreadOutput, len(set.Lists))
	fn := d.Kernel()
	pool.Run(len(set.Lists), func(i int) {
		outputs[i] = force.NewThreadOutput(ad.NumPadded, pairlist.NumShifts, opts.NumEnergyGroups)
		fn(set.Lists[i], ad, shifts, outputs[i])
	})
	return evaluation{
		out:   force.Reduce(outputs, p.sys.Positions, shifts, pool),
		key:   d.Key(),
		setup: d.Setup(),
		ic:    ic,
		table: table,
	}
}

// layoutOptions lists every registered layout/width pair as options.
func layoutOptions(base sim.Options) map[string]sim.Options {
	variants := map[string]sim.Options{}
	add := func(name string, layout sim.KernelLayout, width int) {
		o := base
		o.KernelLayout, o.SimdWidth = layout, width
		variants[name] = o
	}
	add("plain-c", sim.LayoutPlainC, 0)
	if base.CoulombType == sim.CoulombEwald {
		o := variants["plain-c"]
		o.UseTabulatedEwaldCorrection = true
		variants["plain-c"] = o
	}
	add("4x2", sim.Layout4xM, 2)
	add("4x4", sim.Layout4xM, 4)
	add("4x8", sim.Layout4xM, 8)
	add("2x(4+4)", sim.Layout2xMM, 8)
	add("2x(2+2)", sim.Layout2xMM, 4)
	return variants
}

// waterProblem places n^3 water molecules on a jittered cubic lattice in a
// box of edge l, randomly oriented, with intramolecular exclusions and
// molecules spread over three energy groups.
func waterProblem(n int, l float64, seed int64) problem {
	rng := rand.New(rand.NewSource(seed))
	box := sim.RectangularBox(l, l, l)
	p := problem{types: testTypes, box: box}
	spacing := l / float64(n)
	m := 0
	for ix := 0; ix < n; ix++ {
		for iy := 0; iy < n; iy++ {
			for iz := 0; iz < n; iz++ {
				o := r3.Vec{
					X: (float64(ix)+0.5)*spacing + 0.1*(rng.Float64()-0.5),
					Y: (float64(iy)+0.5)*spacing + 0.1*(rng.Float64()-0.5),
					Z: (float64(iz)+0.5)*spacing + 0.1*(rng.Float64()-0.5),
				}
				h1 := r3.Add(o, r3.Scale(0.1, randomUnit(rng)))
				h2 := r3.Add(o, r3.Scale(0.1, randomUnit(rng)))
				base := len(p.sys.Positions)
				for _, x := range []r3.Vec{o, h1, h2} {
					p.sys.Positions = append(p.sys.Positions, box.Wrap(x))
				}
				p.sys.Charges = append(p.sys.Charges, -0.82, 0.41, 0.41)
				p.sys.Types = append(p.sys.Types, 0, 1, 1)
				p.sys.EnergyGroups = append(p.sys.EnergyGroups, m%3, m%3, m%3)
				p.excl = append(p.excl, [2]int{base, base + 1}, [2]int{base, base + 2}, [2]int{base + 1, base + 2})
				m++
			}
		}
	}
	return p
}

func randomUnit(rng *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{X: 2*rng.Float64() - 1, Y: 2*rng.Float64() - 1, Z: 2*rng.Float64() - 1}
		if n := r3.Norm(v); n > 0.1 && n <= 1 {
			return r3.Scale(1/n, v)
		}
	}
}

// pairProblem places two atoms of the given types and charges d apart along
// x in a large box.
func pairProblem(d float64, typeA, typeB int, qa, qb float64) problem {
	return problem{
		types: testTypes,
		box:   sim.RectangularBox(6, 6, 6),
		sys: atomdata.System{
			Positions: []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 1 + d, Y: 1, Z: 1}},
			Charges:   []float64{qa, qb},
			Types:     []int{typeA, typeB},
		},
	}
}

func flatten(v []r3.Vec) []float64 {
	out := make([]float64, 0, 3*len(v))
	for _, x := range v {
		out = append(out, x.X, x.Y, x.Z)
	}
	return out
}

func netForce(v []r3.Vec) r3.Vec {
	var s r3.Vec
	for _, x := range v {
		s = r3.Add(s, x)
	}
	return s
}

// referencePair returns the scalar force (positive = repulsive) and energy
// of one non-excluded pair at distance r, computed independently of the
// kernels. LJ-Ewald is not covered.
func referencePair(opts sim.Options, ic *params.InteractionConst, qq, c6, c12, r float64) (f, v float64) {
	if r >= ic.RCoulomb {
		return 0, 0
	}
	qq *= ic.EpsFac
	switch opts.CoulombType {
	case sim.CoulombCutoff:
		f += qq / (r * r)
		v += qq * (1/r - 1/ic.RCoulomb)
	case sim.CoulombReactionField:
		f += qq * (1/(r*r) - 2*ic.KRF*r)
		v += qq * (1/r + ic.KRF*r*r - ic.CRF)
	case sim.CoulombEwald:
		b := ic.EwaldBeta
		f += qq * (math.Erfc(b*r)/(r*r) + 2*b/math.Sqrt(math.Pi)*math.Exp(-b*b*r*r)/r)
		v += qq * (math.Erfc(b*r)/r - ic.EwaldShift)
	}
	if r < ic.RVdw {
		r6 := math.Pow(r, -6)
		f += (12*c12*r6*r6 - 6*c6*r6) / r
		v += c12*(r6*r6+ic.RepulsionShift) - c6*(r6+ic.DispersionShift)
	}
	return f, v
}

// referenceExcluded returns the correction force and energy of an excluded
// pair at distance r.
func referenceExcluded(opts sim.Options, ic *params.InteractionConst, qq, r float64) (f, v float64) {
	if r >= ic.RCoulomb {
		return 0, 0
	}
	qq *= ic.EpsFac
	switch opts.CoulombType {
	case sim.CoulombReactionField:
		return -qq * 2 * ic.KRF * r, qq * (ic.KRF*r*r - ic.CRF)
	case sim.CoulombEwald:
		b := ic.EwaldBeta
		erf := math.Erf(b * r)
		return qq * (-erf/(r*r) + 2*b/math.Sqrt(math.Pi)*math.Exp(-b*b*r*r)/r), -qq * erf / r
	}
	return 0, 0
}

// bruteForce evaluates all pairs under the minimum image convention with the
// reference formulas and the coefficients of table.
func bruteForce(opts sim.Options, ic *params.InteractionConst, table *params.Table, p problem) ([]r3.Vec, float64) {
	n := len(p.sys.Positions)
	excluded := map[[2]int]bool{}
	for _, e := range p.excl {
		excluded[[2]int{min(e[0], e[1]), max(e[0], e[1])}] = true
	}
	shifts := pairlist.Shifts(p.box)
	forces := make([]r3.Vec, n)
	energy := 0.0
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var d r3.Vec
			best := math.Inf(1)
			for _, s := range shifts {
				dd := r3.Sub(r3.Add(p.sys.Positions[a], s), p.sys.Positions[b])
				if n2 := r3.Norm2(dd); n2 < best {
					best, d = n2, dd
				}
			}
			r := math.Sqrt(best)
			c6x6, c12x12 := table.Pair(p.sys.Types[a], p.sys.Types[b])
			qq := p.sys.Charges[a] * p.sys.Charges[b]
			var f, v float64
			if excluded[[2]int{a, b}] {
				f, v = referenceExcluded(opts, ic, qq, r)
			} else {
				f, v = referencePair(opts, ic, qq, c6x6/6, c12x12/12, r)
			}
			fv := r3.Scale(f/r, d)
			forces[a] = r3.Add(forces[a], fv)
			forces[b] = r3.Sub(forces[b], fv)
			energy += v
		}
	}
	return forces, energy
}

// bruteForceGroups returns the Coulomb and LJ energies of every pair of
// energy groups, folded into symmetric ng x ng matrices the way the force
// reduction folds them.
func bruteForceGroups(opts sim.Options, ic *params.InteractionConst, table *params.Table, p problem, ng int) (coul, lj *mat.SymDense) {
	n := len(p.sys.Positions)
	excluded := map[[2]int]bool{}
	for _, e := range p.excl {
		excluded[[2]int{min(e[0], e[1]), max(e[0], e[1])}] = true
	}
	shifts := pairlist.Shifts(p.box)
	coul, lj = mat.NewSymDense(ng, nil), mat.NewSymDense(ng, nil)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			best := math.Inf(1)
			for _, s := range shifts {
				best = math.Min(best, r3.Norm2(r3.Sub(r3.Add(p.sys.Positions[a], s), p.sys.Positions[b])))
			}
			r := math.Sqrt(best)
			qq := p.sys.Charges[a] * p.sys.Charges[b]
			var vc, vlj float64
			if excluded[[2]int{a, b}] {
				_, vc = referenceExcluded(opts, ic, qq, r)
			} else {
				c6x6, c12x12 := table.Pair(p.sys.Types[a], p.sys.Types[b])
				_, vc = referencePair(opts, ic, qq, 0, 0, r)
				_, vlj = referencePair(opts, ic, 0, c6x6/6, c12x12/12, r)
			}
			ga, gb := p.sys.EnergyGroups[a], p.sys.EnergyGroups[b]
			coul.SetSym(ga, gb, coul.At(ga, gb)+vc)
			lj.SetSym(ga, gb, lj.At(ga, gb)+vlj)
		}
	}
	return coul, lj
}
