package kernel

import (
	"github.com/nbforce/nbforce/sim/atomdata"
	"github.com/nbforce/nbforce/sim/force"
	"github.com/nbforce/nbforce/sim/simd"
)

// The kernel body is generic over one strategy per optional feature. Each
// strategy is an empty struct; the variant for a Setup is composed once by
// compose.go, so none of these choices is made inside the pair loops.

// ljLookup is the pre-multiplied (6*C6, 12*C12) table the lookup rule reads.
type ljLookup struct {
	nbfp   []float64
	stride int
}

// ljCombination produces the pre-multiplied LJ coefficients of a register.
// params returns the per-atom values loaded into ci0/ci1 and cj0/cj1.
type ljCombination[R simd.Reals] interface {
	params(ad *atomdata.AtomData, a int) (c0, c1 float64)
	coeffs(t *ljLookup, ci0, ci1, cj0, cj1 R, ti, tj *[8]int) (c6, c12 R)
}

// tableLJ reads every pair from the parameter table.
type tableLJ[R simd.Reals] struct{}

func (tableLJ[R]) params(*atomdata.AtomData, int) (c0, c1 float64) { return 0, 0 }

func (tableLJ[R]) coeffs(t *ljLookup, ci0, _, _, _ R, ti, tj *[8]int) (c6, c12 R) {
	var idx [8]int
	m := len(ci0)
	for l := 0; l < m; l++ {
		idx[l] = 2 * (ti[l]*t.stride + tj[l])
	}
	return simd.Gather[R](t.nbfp, 0, idx[:m]), simd.Gather[R](t.nbfp, 1, idx[:m])
}

// geometricLJ multiplies sqrt(6*C6) and sqrt(12*C12) of both atoms.
type geometricLJ[R simd.Reals] struct{}

func (geometricLJ[R]) params(ad *atomdata.AtomData, a int) (c0, c1 float64) {
	return ad.LJComb[2*a], ad.LJComb[2*a+1]
}

func (geometricLJ[R]) coeffs(_ *ljLookup, ci0, ci1, cj0, cj1 R, _, _ *[8]int) (c6, c12 R) {
	return simd.Mul(ci0, cj0), simd.Mul(ci1, cj1)
}

// lorentzBerthelotLJ combines sigma/2 and sqrt(eps) of both atoms.
type lorentzBerthelotLJ[R simd.Reals] struct{}

func (lorentzBerthelotLJ[R]) params(ad *atomdata.AtomData, a int) (c0, c1 float64) {
	return ad.LJComb[2*a], ad.LJComb[2*a+1]
}

func (lorentzBerthelotLJ[R]) coeffs(_ *ljLookup, ci0, ci1, cj0, cj1 R, _, _ *[8]int) (c6, c12 R) {
	sig := simd.Add(ci0, cj0)
	eps := simd.Mul(ci1, cj1)
	sig2 := simd.Mul(sig, sig)
	sig6 := simd.Mul(sig2, simd.Mul(sig2, sig2))
	c6 = simd.Scale(24, simd.Mul(eps, sig6))
	c12 = simd.Scale(48, simd.Mul(eps, simd.Mul(sig6, sig6)))
	return c6, c12
}

// exclusionMode decides how excluded pairs within the cutoff are treated.
type exclusionMode[R simd.Reals, B simd.Bools] interface {
	// mask turns the cutoff mask into the mask of pairs that get any force.
	mask(within, interact B, diag bool, iIdx, jIdx *[8]int) B
	// masked returns 1/r and 1/r^2 for the terms excluded pairs never get.
	masked(rinv, rinvsq R, interact B) (rinvEx, rinvsqEx R)
}

// plainExclusions drops excluded pairs entirely.
type plainExclusions[R simd.Reals, B simd.Bools] struct{}

func (plainExclusions[R, B]) mask(within, interact B, _ bool, _, _ *[8]int) B {
	return simd.And(within, interact)
}

func (plainExclusions[R, B]) masked(rinv, rinvsq R, _ B) (R, R) { return rinv, rinvsq }

// exclusionForces keeps excluded pairs for the electrostatics correction.
// Only the self pair and the lower triangle of a cluster against itself are
// removed.
type exclusionForces[R simd.Reals, B simd.Bools] struct{}

func (exclusionForces[R, B]) mask(within, _ B, diag bool, iIdx, jIdx *[8]int) B {
	if !diag {
		return within
	}
	var upper B
	for l := 0; l < len(upper); l++ {
		upper[l] = jIdx[l] > iIdx[l]
	}
	return simd.And(within, upper)
}

func (exclusionForces[R, B]) masked(rinv, rinvsq R, interact B) (R, R) {
	return simd.Select(rinv, interact), simd.Select(rinvsq, interact)
}

// energyAcc holds the register-wide energy sums of one kernel call.
type energyAcc[R simd.Reals] struct {
	vc, vlj R
	ng      int
}

// energyMode decides whether potentials are evaluated and where they go.
type energyMode[R simd.Reals, B simd.Bools] interface {
	coulomb(kc *kconst, qq, rsq, rinv, rinvEx R, interact, within B) (fr, v R)
	lj(kc *kconst, c6, c12, vlj6, vlj12 R, interactWithin B) R
	ljGrid(kc *kconst, c6grid, rinvsixNm, expmcr2, poly R, interact, within B) R
	add(acc *energyAcc[R], out *force.ThreadOutput, vc, vlj R, gi, gj *[8]int)
	flush(acc *energyAcc[R], out *force.ThreadOutput)
}

// noEnergy computes forces only.
type noEnergy[R simd.Reals, B simd.Bools, C coulombKernel[R, B]] struct{}

func (noEnergy[R, B, C]) coulomb(kc *kconst, qq, rsq, rinv, rinvEx R, _, _ B) (fr, v R) {
	var c C
	return c.force(kc, qq, rsq, rinv, rinvEx), v
}

func (noEnergy[R, B, C]) lj(*kconst, R, R, R, R, B) R {
	var v R
	return v
}

func (noEnergy[R, B, C]) ljGrid(*kconst, R, R, R, R, B, B) R {
	var v R
	return v
}

func (noEnergy[R, B, C]) add(*energyAcc[R], *force.ThreadOutput, R, R, *[8]int, *[8]int) {}

func (noEnergy[R, B, C]) flush(*energyAcc[R], *force.ThreadOutput) {}

// totalEnergy sums potentials into the scalar Coulomb and LJ totals.
type totalEnergy[R simd.Reals, B simd.Bools, C coulombKernel[R, B]] struct{}

func (totalEnergy[R, B, C]) coulomb(kc *kconst, qq, rsq, rinv, rinvEx R, interact, within B) (fr, v R) {
	var c C
	fr, v = c.forceAndPotential(kc, qq, rsq, rinv, rinvEx, interact)
	return fr, simd.Select(v, within)
}

func (totalEnergy[R, B, C]) lj(kc *kconst, c6, c12, vlj6, vlj12 R, interactWithin B) R {
	rep := simd.Scale(1.0/12, simd.Add(vlj12, simd.Scale(kc.shRep, c12)))
	disp := simd.Scale(1.0/6, simd.Add(vlj6, simd.Scale(kc.shDisp, c6)))
	return simd.Select(simd.Sub(rep, disp), interactWithin)
}

func (totalEnergy[R, B, C]) ljGrid(kc *kconst, c6grid, rinvsixNm, expmcr2, poly R, interact, within B) R {
	sh := simd.Select(simd.Set[R](kc.ljShift), interact)
	grid := simd.Add(simd.Mul(rinvsixNm, simd.Sub(simd.Set[R](1), simd.Mul(expmcr2, poly))), sh)
	return simd.Select(simd.Scale(1.0/6, simd.Mul(c6grid, grid)), within)
}

func (totalEnergy[R, B, C]) add(acc *energyAcc[R], _ *force.ThreadOutput, vc, vlj R, _, _ *[8]int) {
	acc.vc = simd.Add(acc.vc, vc)
	acc.vlj = simd.Add(acc.vlj, vlj)
}

func (totalEnergy[R, B, C]) flush(acc *energyAcc[R], out *force.ThreadOutput) {
	out.VCoul += simd.ReduceSum(acc.vc)
	out.VLJ += simd.ReduceSum(acc.vlj)
}

// groupEnergy scatters potentials into the (i-group, j-group) matrices.
type groupEnergy[R simd.Reals, B simd.Bools, C coulombKernel[R, B]] struct {
	totalEnergy[R, B, C]
}

func (groupEnergy[R, B, C]) add(acc *energyAcc[R], out *force.ThreadOutput, vc, vlj R, gi, gj *[8]int) {
	for l := 0; l < len(vc); l++ {
		g := gi[l]*acc.ng + gj[l]
		out.GroupCoul[g] += vc[l]
		out.GroupLJ[g] += vlj[l]
	}
}

func (groupEnergy[R, B, C]) flush(*energyAcc[R], *force.ThreadOutput) {}

// ljEwaldMode adds the grid part of LJ-Ewald.
type ljEwaldMode[R simd.Reals, B simd.Bools] interface {
	eval(kc *kconst, gi, gj, rsq, rinvsq R, interact, within B) (fr, v R)
}

type noLJEwald[R simd.Reals, B simd.Bools] struct{}

func (noLJEwald[R, B]) eval(*kconst, R, R, R, R, B, B) (fr, v R) { return fr, v }

// ljEwaldGrid adds the real-space part of the geometric LJ-Ewald grid term
// for every pair that gets a force, excluded pairs included.
type ljEwaldGrid[R simd.Reals, B simd.Bools, E energyMode[R, B]] struct{}

func (ljEwaldGrid[R, B, E]) eval(kc *kconst, gi, gj, rsq, rinvsq R, interact, within B) (fr, v R) {
	var e E
	c6grid := simd.Mul(gi, gj)
	rinvsixNm := simd.Mul(rinvsq, simd.Mul(rinvsq, rinvsq))
	cr2 := simd.Scale(kc.ljBeta2, rsq)
	expmcr2 := simd.Exp(simd.Scale(-1, cr2))
	poly := simd.Add(simd.Set[R](1), simd.MulAdd(simd.Scale(0.5, cr2), cr2, cr2))
	fr = simd.Mul(c6grid, simd.Sub(rinvsixNm,
		simd.Mul(expmcr2, simd.Add(simd.Mul(rinvsixNm, poly), simd.Set[R](kc.ljBeta6Over6)))))
	v = e.ljGrid(kc, c6grid, rinvsixNm, expmcr2, poly, interact, within)
	return fr, v
}

// vdwMode applies a LJ cutoff shorter than the Coulomb cutoff.
type vdwMode[R simd.Reals, B simd.Bools] interface {
	apply(kc *kconst, rsq, frlj, vlj R) (R, R)
}

type noVdwCheck[R simd.Reals, B simd.Bools] struct{}

func (noVdwCheck[R, B]) apply(_ *kconst, _, frlj, vlj R) (R, R) { return frlj, vlj }

type vdwCheck[R simd.Reals, B simd.Bools] struct{}

func (vdwCheck[R, B]) apply(kc *kconst, rsq, frlj, vlj R) (R, R) {
	w := simd.LessThan[B](rsq, simd.Set[R](kc.rvdw2))
	return simd.Select(frlj, w), simd.Select(vlj, w)
}
