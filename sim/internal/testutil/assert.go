// Package testutil provides shared test infrastructure for the nbforce
// packages: tolerance-based float assertions.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertSliceNear compares two equally long slices element-wise. An element
// passes when its absolute difference is below absTol or its relative
// difference is below relTol.
func AssertSliceNear(t *testing.T, name string, want, got []float64, absTol, relTol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: length %d, want %d", name, len(got), len(want))
	}
	bad := 0
	for i := range want {
		diff := math.Abs(want[i] - got[i])
		if diff <= absTol {
			continue
		}
		if diff/math.Max(math.Abs(want[i]), math.Abs(got[i])) <= relTol {
			continue
		}
		if bad < 5 {
			t.Errorf("%s[%d]: got %v, want %v (diff=%v)", name, i, got[i], want[i], diff)
		}
		bad++
	}
	if bad > 5 {
		t.Errorf("%s: %d more mismatches", name, bad-5)
	}
}

// MaxAbs returns the largest absolute value in v.
func MaxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}
