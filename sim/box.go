package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a periodic simulation cell in lower-triangular form:
// A lies along x, B in the xy-plane, C is unrestricted. A rectangular box has
// only the diagonal components set.
type Box struct {
	A, B, C r3.Vec
}

// RectangularBox returns a rectangular box with the given edge lengths.
func RectangularBox(lx, ly, lz float64) Box {
	return Box{A: r3.Vec{X: lx}, B: r3.Vec{Y: ly}, C: r3.Vec{Z: lz}}
}

// Validate checks that the box is lower-triangular with positive diagonal
// and that off-diagonal elements are at most half the corresponding diagonal,
// so images up to two box vectors away along x and one along y and z cover
// every interaction within MaxCutoff.
func (b Box) Validate() error {
	if !(b.A.X > 0 && b.B.Y > 0 && b.C.Z > 0) {
		return ConfigErrorf("box diagonal must be positive, got (%g, %g, %g)", b.A.X, b.B.Y, b.C.Z)
	}
	if b.A.Y != 0 || b.A.Z != 0 || b.B.Z != 0 {
		return ConfigErrorf("box must be lower-triangular")
	}
	if math.Abs(b.B.X) > 0.5*b.A.X || math.Abs(b.C.X) > 0.5*b.A.X || math.Abs(b.C.Y) > 0.5*b.B.Y {
		return ConfigErrorf("box is too skewed: off-diagonal elements may be at most half the diagonal")
	}
	return nil
}

// MaxCutoff returns the largest interaction radius for which at most one
// periodic image of a particle lies within range.
func (b Box) MaxCutoff() float64 {
	minHalfVec2 := 0.25 * math.Min(r3.Norm2(b.A), math.Min(r3.Norm2(b.B), r3.Norm2(b.C)))
	minWidth := math.Min(b.A.X, math.Min(b.B.Y-math.Abs(b.C.Y), b.C.Z))
	return math.Sqrt(math.Min(minHalfVec2, 0.25*minWidth*minWidth))
}

// Volume returns the box volume.
func (b Box) Volume() float64 {
	return b.A.X * b.B.Y * b.C.Z
}

// Wrap returns the periodic image of p inside the triclinic unit cell.
func (b Box) Wrap(p r3.Vec) r3.Vec {
	if n := math.Floor(p.Z / b.C.Z); n != 0 {
		p = r3.Sub(p, r3.Scale(n, b.C))
	}
	if n := math.Floor(p.Y / b.B.Y); n != 0 {
		p = r3.Sub(p, r3.Scale(n, b.B))
	}
	if n := math.Floor(p.X / b.A.X); n != 0 {
		p = r3.Sub(p, r3.Scale(n, b.A))
	}
	return p
}

// Shift returns the translation sx*A + sy*B + sz*C.
func (b Box) Shift(sx, sy, sz int) r3.Vec {
	v := r3.Scale(float64(sx), b.A)
	v = r3.Add(v, r3.Scale(float64(sy), b.B))
	return r3.Add(v, r3.Scale(float64(sz), b.C))
}
