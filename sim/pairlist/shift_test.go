package pairlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
)

func TestShiftIndex_RoundTrip(t *testing.T) {
	assert.Equal(t, CentralShift, ShiftIndex(0, 0, 0))
	for s := 0; s < NumShifts; s++ {
		sx, sy, sz := ShiftComponents(s)
		assert.Equal(t, s, ShiftIndex(sx, sy, sz))
	}
}

func TestShifts_Vectors(t *testing.T) {
	box := sim.Box{A: r3.Vec{X: 2}, B: r3.Vec{X: 0.5, Y: 3}, C: r3.Vec{Y: 1, Z: 4}}
	shifts := Shifts(box)
	assert.Len(t, shifts, NumShifts)
	assert.Equal(t, r3.Vec{}, shifts[CentralShift])
	assert.Equal(t, r3.Vec{X: -4 + 0.5, Y: 3 - 1, Z: -4}, shifts[ShiftIndex(-2, 1, -1)])
}

func TestPositiveHalf_PicksOneOfEachMirrorPair(t *testing.T) {
	kept := 0
	for s := 0; s < NumShifts; s++ {
		if s == CentralShift {
			continue
		}
		sx, sy, sz := ShiftComponents(s)
		mirror := ShiftIndex(-sx, -sy, -sz)
		assert.NotEqual(t, positiveHalf(s), positiveHalf(mirror), "shift %d", s)
		if positiveHalf(s) {
			kept++
		}
	}
	assert.Equal(t, (NumShifts-1)/2, kept)
}

func TestExclusions(t *testing.T) {
	ex, err := NewExclusions(4, [][2]int{{0, 1}, {1, 0}, {2, 3}, {1, 1}})
	assert.NoError(t, err)
	assert.True(t, ex.Excluded(1, 0))
	assert.True(t, ex.Excluded(3, 2))
	assert.True(t, ex.Excluded(2, 2))
	assert.False(t, ex.Excluded(0, 2))
	assert.False(t, ex.Excluded(7, 1))
	assert.Equal(t, 2, ex.NumPairs())

	_, err = NewExclusions(2, [][2]int{{0, 2}})
	assert.ErrorIs(t, err, sim.ErrConfig)
}
