// Package force holds the per-thread accumulation buffers the kernels write
// to and the reduction that merges them into one Outcome.
package force

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ThreadOutput is the private output of one worker. Forces are stored as
// x, y, z triplets per (padded) atom.
type ThreadOutput struct {
	F      []float64
	FShift []float64 // 3 per shift index

	// Scalar energies, used when NumGroups is 1.
	VCoul, VLJ float64
	// Group energies, NumGroups^2 each, indexed gi*NumGroups+gj with gi the
	// group of the i-atom. Nil when NumGroups is 1.
	GroupCoul, GroupLJ []float64
	NumGroups          int

	// PairsWithinCutoff counts interacting atom pairs with r < rc.
	PairsWithinCutoff int64
}

// NewThreadOutput allocates buffers for numAtoms atoms, numShifts shift
// vectors and numGroups energy groups.
func NewThreadOutput(numAtoms, numShifts, numGroups int) *ThreadOutput {
	o := &ThreadOutput{
		F:         make([]float64, 3*numAtoms),
		FShift:    make([]float64, 3*numShifts),
		NumGroups: numGroups,
	}
	if numGroups > 1 {
		o.GroupCoul = make([]float64, numGroups*numGroups)
		o.GroupLJ = make([]float64, numGroups*numGroups)
	}
	return o
}

// Reset zeroes every accumulator before a force evaluation.
func (o *ThreadOutput) Reset() {
	clear(o.F)
	clear(o.FShift)
	clear(o.GroupCoul)
	clear(o.GroupLJ)
	o.VCoul, o.VLJ = 0, 0
	o.PairsWithinCutoff = 0
}

// Outcome is the merged result of one force evaluation, in input particle
// order.
type Outcome struct {
	Forces        []r3.Vec // kJ mol^-1 nm^-1
	CoulombEnergy float64  // kJ mol^-1
	LJEnergy      float64  // kJ mol^-1

	// Per group-pair energies with (a, b) and (b, a) folded together; nil
	// with a single energy group.
	GroupCoulomb *mat.SymDense
	GroupLJ      *mat.SymDense

	ShiftForces []r3.Vec
	// Virial is -0.5 * sum over pairs of r_ij (x) F_ij, including the
	// periodic shift contribution.
	Virial *mat.Dense

	PairsWithinCutoff int64
}
