package pairlist

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
)

// Shift index layout: sx in [-2,2], sy and sz in [-1,1].
const (
	shiftsX      = 5
	shiftsY      = 3
	shiftsZ      = 3
	NumShifts    = shiftsX * shiftsY * shiftsZ
	CentralShift = 22
)

// ShiftIndex returns the index of the periodic shift (sx, sy, sz).
func ShiftIndex(sx, sy, sz int) int {
	return (sz+1)*shiftsX*shiftsY + (sy+1)*shiftsX + (sx + 2)
}

// ShiftComponents is the inverse of ShiftIndex.
func ShiftComponents(s int) (sx, sy, sz int) {
	return s%shiftsX - 2, (s/shiftsX)%shiftsY - 1, s/(shiftsX*shiftsY) - 1
}

// Shifts returns the translation vector of every shift index.
func Shifts(box sim.Box) []r3.Vec {
	shifts := make([]r3.Vec, NumShifts)
	for s := range shifts {
		sx, sy, sz := ShiftComponents(s)
		shifts[s] = box.Shift(sx, sy, sz)
	}
	return shifts
}

// positiveHalf reports whether a non-central shift is the one of a +s/-s
// pair that the search keeps; its mirror describes the same interactions.
func positiveHalf(s int) bool {
	sx, sy, sz := ShiftComponents(s)
	if sz != 0 {
		return sz > 0
	}
	if sy != 0 {
		return sy > 0
	}
	return sx > 0
}
