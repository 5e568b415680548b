package force

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim/workerpool"
)

// Reduce merges the thread outputs. positions are the coordinates the forces
// were computed with (real atoms only) and shifts the shift vectors of the
// pair list. The force sum runs in parallel over disjoint atom ranges, adding
// the thread buffers in slice order, so a fixed thread count gives
// bit-identical results.
func Reduce(outputs []*ThreadOutput, positions []r3.Vec, shifts []r3.Vec, pool *workerpool.Pool) *Outcome {
	if len(outputs) == 0 {
		panic("force.Reduce: no thread outputs")
	}
	n := len(positions)
	flat := make([]float64, 3*n)
	pool.ParallelFor(3*n, func(start, end int) {
		dst := flat[start:end]
		for _, o := range outputs {
			floats.Add(dst, o.F[start:end])
		}
	})

	out := &Outcome{
		Forces:      make([]r3.Vec, n),
		ShiftForces: make([]r3.Vec, len(shifts)),
	}
	for i := range out.Forces {
		out.Forces[i] = r3.Vec{X: flat[3*i], Y: flat[3*i+1], Z: flat[3*i+2]}
	}

	fshift := make([]float64, 3*len(shifts))
	for _, o := range outputs {
		floats.Add(fshift, o.FShift)
		out.CoulombEnergy += o.VCoul
		out.LJEnergy += o.VLJ
		out.PairsWithinCutoff += o.PairsWithinCutoff
	}
	for s := range out.ShiftForces {
		out.ShiftForces[s] = r3.Vec{X: fshift[3*s], Y: fshift[3*s+1], Z: fshift[3*s+2]}
	}

	if ng := outputs[0].NumGroups; ng > 1 {
		out.GroupCoulomb = foldGroups(outputs, ng, func(o *ThreadOutput) []float64 { return o.GroupCoul })
		out.GroupLJ = foldGroups(outputs, ng, func(o *ThreadOutput) []float64 { return o.GroupLJ })
		out.CoulombEnergy = upperSum(out.GroupCoulomb)
		out.LJEnergy = upperSum(out.GroupLJ)
	}

	out.Virial = virial(positions, out.Forces, shifts, out.ShiftForces)
	return out
}

// foldGroups sums the directed group matrices of all threads and folds
// (a, b) and (b, a) into one symmetric entry.
func foldGroups(outputs []*ThreadOutput, ng int, get func(*ThreadOutput) []float64) *mat.SymDense {
	sum := make([]float64, ng*ng)
	for _, o := range outputs {
		floats.Add(sum, get(o))
	}
	m := mat.NewSymDense(ng, nil)
	for a := 0; a < ng; a++ {
		m.SetSym(a, a, sum[a*ng+a])
		for b := a + 1; b < ng; b++ {
			m.SetSym(a, b, sum[a*ng+b]+sum[b*ng+a])
		}
	}
	return m
}

// upperSum sums the upper triangle including the diagonal.
func upperSum(m *mat.SymDense) float64 {
	s := 0.0
	n := m.SymmetricDim()
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			s += m.At(a, b)
		}
	}
	return s
}

// virial returns -0.5 * (sum_i x_i (x) f_i + sum_s S_s (x) fshift_s).
func virial(x, f, shifts, fshift []r3.Vec) *mat.Dense {
	v := mat.NewDense(3, 3, nil)
	addOuter := func(a, b r3.Vec) {
		av := [3]float64{a.X, a.Y, a.Z}
		bv := [3]float64{b.X, b.Y, b.Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				v.Set(r, c, v.At(r, c)+av[r]*bv[c])
			}
		}
	}
	for i := range x {
		addOuter(x[i], f[i])
	}
	for s := range shifts {
		addOuter(shifts[s], fshift[s])
	}
	v.Scale(-0.5, v)
	return v
}
