package kernel

import "github.com/nbforce/nbforce/sim/simd"

// coulombKernel evaluates the electrostatics of one register of pairs.
// The force is returned as fr = q_i q_j (1/r - correction) * r, where rinvEx
// is 1/r with excluded pairs cleared and rinv keeps them. Callers clear lanes
// outside the cutoff.
type coulombKernel[R simd.Reals, B simd.Bools] interface {
	force(kc *kconst, qq, rsq, rinv, rinvEx R) R
	forceAndPotential(kc *kconst, qq, rsq, rinv, rinvEx R, interact B) (fr, v R)
}

// noCoulomb is used when no particle carries a charge.
type noCoulomb[R simd.Reals, B simd.Bools] struct{}

func (noCoulomb[R, B]) force(*kconst, R, R, R, R) R {
	var fr R
	return fr
}

func (noCoulomb[R, B]) forceAndPotential(*kconst, R, R, R, R, B) (fr, v R) {
	return fr, v
}

// cutoffCoulomb is plain 1/r, shifted to zero at the cutoff.
type cutoffCoulomb[R simd.Reals, B simd.Bools] struct{}

func (cutoffCoulomb[R, B]) force(_ *kconst, qq, _, _, rinvEx R) R {
	return simd.Mul(qq, rinvEx)
}

func (c cutoffCoulomb[R, B]) forceAndPotential(kc *kconst, qq, rsq, rinv, rinvEx R, interact B) (fr, v R) {
	fr = c.force(kc, qq, rsq, rinv, rinvEx)
	v = simd.Mul(qq, simd.Sub(rinvEx, simd.Select(simd.Set[R](kc.crf), interact)))
	return fr, v
}

// reactionFieldCoulomb adds k_rf r^2 - c_rf, including for excluded pairs.
type reactionFieldCoulomb[R simd.Reals, B simd.Bools] struct{}

func (reactionFieldCoulomb[R, B]) force(kc *kconst, qq, rsq, _, rinvEx R) R {
	return simd.Mul(qq, simd.Sub(rinvEx, simd.Scale(2*kc.krf, rsq)))
}

func (c reactionFieldCoulomb[R, B]) forceAndPotential(kc *kconst, qq, rsq, rinv, rinvEx R, _ B) (fr, v R) {
	fr = c.force(kc, qq, rsq, rinv, rinvEx)
	v = simd.Mul(qq, simd.Sub(simd.Add(rinvEx, simd.Scale(kc.krf, rsq)), simd.Set[R](kc.crf)))
	return fr, v
}

// ewaldAnalyticalCoulomb subtracts erf(beta r)/r evaluated with math.Erf.
type ewaldAnalyticalCoulomb[R simd.Reals, B simd.Bools] struct{}

func (ewaldAnalyticalCoulomb[R, B]) correction(kc *kconst, rsq, rinv R) (fcorr, vcorr R) {
	br := simd.Scale(kc.beta, simd.Mul(rsq, rinv))
	expbr := simd.Exp(simd.Scale(-1, simd.Mul(br, br)))
	vcorr = simd.Mul(simd.Erf(br), rinv)
	fcorr = simd.Sub(vcorr, simd.Scale(kc.twoBetaSqrtPi, expbr))
	return fcorr, vcorr
}

func (c ewaldAnalyticalCoulomb[R, B]) force(kc *kconst, qq, rsq, rinv, rinvEx R) R {
	fcorr, _ := c.correction(kc, rsq, rinv)
	return simd.Mul(qq, simd.Sub(rinvEx, fcorr))
}

func (c ewaldAnalyticalCoulomb[R, B]) forceAndPotential(kc *kconst, qq, rsq, rinv, rinvEx R, interact B) (fr, v R) {
	fcorr, vcorr := c.correction(kc, rsq, rinv)
	fr = simd.Mul(qq, simd.Sub(rinvEx, fcorr))
	vcorr = simd.Add(vcorr, simd.Select(simd.Set[R](kc.ewaldShift), interact))
	v = simd.Mul(qq, simd.Sub(rinvEx, vcorr))
	return fr, v
}

// ewaldTabCoulomb interpolates the correction from the Ewald table.
type ewaldTabCoulomb[R simd.Reals, B simd.Bools] struct{}

func (ewaldTabCoulomb[R, B]) correction(kc *kconst, rsq, rinv R) (fcorr, vcorr R) {
	r := simd.Mul(rsq, rinv)
	for l := 0; l < len(r); l++ {
		f, vc := kc.table.Interpolate(r[l])
		fcorr[l] = f * r[l]
		vcorr[l] = vc
	}
	return fcorr, vcorr
}

func (c ewaldTabCoulomb[R, B]) force(kc *kconst, qq, rsq, rinv, rinvEx R) R {
	fcorr, _ := c.correction(kc, rsq, rinv)
	return simd.Mul(qq, simd.Sub(rinvEx, fcorr))
}

func (c ewaldTabCoulomb[R, B]) forceAndPotential(kc *kconst, qq, rsq, rinv, rinvEx R, interact B) (fr, v R) {
	fcorr, vcorr := c.correction(kc, rsq, rinv)
	fr = simd.Mul(qq, simd.Sub(rinvEx, fcorr))
	vcorr = simd.Add(vcorr, simd.Select(simd.Set[R](kc.ewaldShift), interact))
	v = simd.Mul(qq, simd.Sub(rinvEx, vcorr))
	return fr, v
}
