package params

import (
	"math"
)

// twoOverSqrtPi is 2/sqrt(pi).
const twoOverSqrtPi = 1.1283791670955126

// EwaldCoefficient returns beta such that erfc(beta*rc) = rtol, found by
// bisection.
func EwaldCoefficient(rc, rtol float64) float64 {
	return bisect(rc, rtol, func(beta, rc float64) float64 {
		return math.Erfc(beta * rc)
	})
}

// LJEwaldCoefficient returns beta_lj such that the relative strength of the
// real-space dispersion term at rc, exp(-x^2)(1 + x^2 + x^4/2) with
// x = beta_lj*rc, equals rtol.
func LJEwaldCoefficient(rc, rtol float64) float64 {
	return bisect(rc, rtol, func(beta, rc float64) float64 {
		x2 := beta * beta * rc * rc
		return math.Exp(-x2) * (1 + x2 + 0.5*x2*x2)
	})
}

// bisect finds the beta at which the decreasing function f(beta, rc) crosses
// rtol: first doubling an upper bound, then halving the bracket 60 times.
func bisect(rc, rtol float64, f func(beta, rc float64) float64) float64 {
	beta := 5.0
	n := 0
	for f(beta, rc) > rtol {
		n++
		beta *= 2
	}
	low, high := 0.0, beta
	for i := 0; i < n+60; i++ {
		beta = 0.5 * (low + high)
		if f(beta, rc) > rtol {
			low = beta
		} else {
			high = beta
		}
	}
	return beta
}

// EwaldTable tabulates the Ewald real-space correction erf(beta*r)/r and
// its negative derivative F(r) = erf(beta*r)/r^2 - 2beta/sqrt(pi)
// exp(-beta^2 r^2)/r on a uniform grid. The kernels interpolate F linearly
// and integrate it with the trapezoid rule between grid points.
type EwaldTable struct {
	Scale float64   // points per nm
	F     []float64 // -dV/dr at i/Scale
	V     []float64 // erf(beta*r)/r at i/Scale
}

// ewaldTableScale returns the grid density for beta. The spacing shrinks with
// beta so that the force interpolation error stays below 1e-6.
func ewaldTableScale(beta float64) float64 {
	return 4000 * math.Max(1, beta/math.Pi)
}

// NewEwaldTable tabulates the correction up to rc with two points of margin.
func NewEwaldTable(beta, rc float64) *EwaldTable {
	scale := ewaldTableScale(beta)
	n := int(rc*scale) + 3
	t := &EwaldTable{Scale: scale, F: make([]float64, n), V: make([]float64, n)}
	for i := 0; i < n; i++ {
		r := float64(i) / scale
		t.F[i], t.V[i] = ewaldCorrection(beta, r)
	}
	return t
}

// ewaldCorrection returns F(r) and V(r) of the Ewald correction, using the
// small-argument series where erf(beta*r)/r^2 would lose all precision.
func ewaldCorrection(beta, r float64) (f, v float64) {
	br := beta * r
	if br < 1e-3 {
		br2 := br * br
		f = twoOverSqrtPi * beta * beta * beta * r * (2.0 / 3.0) * (1 - 0.6*br2)
		v = twoOverSqrtPi * beta * (1 - br2/3)
		return f, v
	}
	erf := math.Erf(br)
	f = erf/(r*r) - twoOverSqrtPi*beta*math.Exp(-br*br)/r
	v = erf / r
	return f, v
}

// Interpolate returns the force and potential correction at r. r must lie in
// [0, rc].
func (t *EwaldTable) Interpolate(r float64) (f, v float64) {
	rs := r * t.Scale
	i := int(rs)
	frac := rs - float64(i)
	f = (1-frac)*t.F[i] + frac*t.F[i+1]
	v = t.V[i] - 0.5*frac/t.Scale*(t.F[i]+f)
	return f, v
}
