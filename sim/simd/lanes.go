// Package simd provides fixed-width float64 lane vectors for the pair
// kernels. Vectors are plain arrays so they live on the stack; every
// operation is a straight loop over lanes that the compiler may unroll.
//
// Masking follows one rule: a lane is disabled by selecting zero, never by
// branching on the lane's value. Select, And and LessThan are the only ways
// masks are produced and consumed.
//
// Functions that return a mask take the mask type as their first type
// parameter so the vector type can be inferred:
//
//	within := simd.LessThan[simd.Bool4](rsq, cutoff2)
//	rinv = simd.Select(rinv, within)
package simd

import "math"

// Real1, Real2, Real4 and Real8 hold 1, 2, 4 or 8 float64 lanes. Real1 is
// the scalar reference width.
type (
	Real1 [1]float64
	Real2 [2]float64
	Real4 [4]float64
	Real8 [8]float64
)

// Bool1 to Bool8 are the lane masks matching Real1 to Real8.
type (
	Bool1 [1]bool
	Bool2 [2]bool
	Bool4 [4]bool
	Bool8 [8]bool
)

// Word1 to Word8 hold one 32-bit filter word per lane.
type (
	Word1 [1]uint32
	Word2 [2]uint32
	Word4 [4]uint32
	Word8 [8]uint32
)

// Reals is the constraint satisfied by all vector types.
type Reals interface {
	~[1]float64 | ~[2]float64 | ~[4]float64 | ~[8]float64
}

// Bools is the constraint satisfied by all mask types.
type Bools interface {
	~[1]bool | ~[2]bool | ~[4]bool | ~[8]bool
}

// Words is the constraint satisfied by all filter word types.
type Words interface {
	~[1]uint32 | ~[2]uint32 | ~[4]uint32 | ~[8]uint32
}

// Lanes returns the number of lanes of R.
func Lanes[R Reals]() int {
	var r R
	return len(r)
}

// Set broadcasts x to all lanes.
func Set[R Reals](x float64) R {
	var r R
	for i := 0; i < len(r); i++ {
		r[i] = x
	}
	return r
}

// Load reads len(R) consecutive values from src.
func Load[R Reals](src []float64) R {
	var r R
	_ = src[len(r)-1]
	for i := 0; i < len(r); i++ {
		r[i] = src[i]
	}
	return r
}

// LoadDup reads len(R)/2 consecutive values from src and duplicates them
// into the lower and upper half of the vector.
func LoadDup[R Reals](src []float64) R {
	var r R
	half := len(r) / 2
	_ = src[half-1]
	for i := 0; i < half; i++ {
		r[i] = src[i]
		r[i+half] = src[i]
	}
	return r
}

// Gather reads src[base+idx[i]] into lane i. idx must hold at least one
// entry per lane.
func Gather[R Reals](src []float64, base int, idx []int) R {
	var r R
	for i := 0; i < len(r); i++ {
		r[i] = src[base+idx[i]]
	}
	return r
}

// Add returns a + b.
func Add[R Reals](a, b R) R {
	for i := 0; i < len(a); i++ {
		a[i] += b[i]
	}
	return a
}

// Sub returns a - b.
func Sub[R Reals](a, b R) R {
	for i := 0; i < len(a); i++ {
		a[i] -= b[i]
	}
	return a
}

// Mul returns a * b.
func Mul[R Reals](a, b R) R {
	for i := 0; i < len(a); i++ {
		a[i] *= b[i]
	}
	return a
}

// MulAdd returns a*b + c.
func MulAdd[R Reals](a, b, c R) R {
	for i := 0; i < len(a); i++ {
		a[i] = a[i]*b[i] + c[i]
	}
	return a
}

// Scale returns s * a.
func Scale[R Reals](s float64, a R) R {
	for i := 0; i < len(a); i++ {
		a[i] *= s
	}
	return a
}

// Max returns the lane-wise maximum of a and b.
func Max[R Reals](a, b R) R {
	for i := 0; i < len(a); i++ {
		a[i] = math.Max(a[i], b[i])
	}
	return a
}

// InvSqrt returns 1/sqrt(a) per lane.
func InvSqrt[R Reals](a R) R {
	for i := 0; i < len(a); i++ {
		a[i] = 1 / math.Sqrt(a[i])
	}
	return a
}

// Exp returns e^a per lane.
func Exp[R Reals](a R) R {
	for i := 0; i < len(a); i++ {
		a[i] = math.Exp(a[i])
	}
	return a
}

// Erf returns erf(a) per lane.
func Erf[R Reals](a R) R {
	for i := 0; i < len(a); i++ {
		a[i] = math.Erf(a[i])
	}
	return a
}

// ReduceSum returns the sum of all lanes.
func ReduceSum[R Reals](a R) float64 {
	var s float64
	for i := 0; i < len(a); i++ {
		s += a[i]
	}
	return s
}

// LessThan returns the mask a < b.
func LessThan[B Bools, R Reals](a, b R) B {
	var m B
	for i := 0; i < len(m); i++ {
		m[i] = a[i] < b[i]
	}
	return m
}

// And returns the lane-wise conjunction of two masks.
func And[B Bools](a, b B) B {
	for i := 0; i < len(a); i++ {
		a[i] = a[i] && b[i]
	}
	return a
}

// Select returns v where m is set and zero elsewhere.
func Select[R Reals, B Bools](v R, m B) R {
	for i := 0; i < len(v); i++ {
		v[i] = selectLane(v[i], m[i])
	}
	return v
}

// CountTrue returns the number of set lanes.
func CountTrue[B Bools](m B) int {
	n := 0
	for i := 0; i < len(m); i++ {
		n += b2i(m[i])
	}
	return n
}

// TestBits sets lane i when word&filter[i] is non-zero.
func TestBits[B Bools, W Words](word uint32, filter W) B {
	var m B
	for i := 0; i < len(m); i++ {
		m[i] = word&filter[i] != 0
	}
	return m
}

// selectLane clears all bits of v unless m is set, as a SIMD blend does.
// Infinities and NaNs in disabled lanes become +0.
func selectLane(v float64, m bool) float64 {
	return math.Float64frombits(math.Float64bits(v) & -uint64(b2i(m)))
}

func b2i(b bool) int {
	var i int
	if b {
		i = 1
	}
	return i
}
