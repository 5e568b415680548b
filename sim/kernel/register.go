package kernel

import (
	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/simd"
)

func init() {
	// Plain-C is the register kernel at one lane. It has no analytical
	// Ewald; the dispatcher coerces to the table.
	Register(Key{sim.LayoutPlainC, plainCJSize, CoulombCutoff},
		newKernel[simd.Real1, simd.Bool1, simd.Word1, cutoffCoulomb[simd.Real1, simd.Bool1]](sim.LayoutPlainC))
	Register(Key{sim.LayoutPlainC, plainCJSize, CoulombReactionField},
		newKernel[simd.Real1, simd.Bool1, simd.Word1, reactionFieldCoulomb[simd.Real1, simd.Bool1]](sim.LayoutPlainC))
	Register(Key{sim.LayoutPlainC, plainCJSize, CoulombEwaldTab},
		newKernel[simd.Real1, simd.Bool1, simd.Word1, ewaldTabCoulomb[simd.Real1, simd.Bool1]](sim.LayoutPlainC))

	registerWidth[simd.Real2, simd.Bool2, simd.Word2](sim.Layout4xM)
	registerWidth[simd.Real4, simd.Bool4, simd.Word4](sim.Layout4xM)
	registerWidth[simd.Real8, simd.Bool8, simd.Word8](sim.Layout4xM)

	// 2xMM needs at least two j-atoms per half register.
	registerWidth[simd.Real4, simd.Bool4, simd.Word4](sim.Layout2xMM)
	registerWidth[simd.Real8, simd.Bool8, simd.Word8](sim.Layout2xMM)
}

// registerWidth registers every Coulomb kind of one layout and lane width.
func registerWidth[R simd.Reals, B simd.Bools, W simd.Words](layout sim.KernelLayout) {
	width := simd.Lanes[R]()
	Register(Key{layout, width, CoulombCutoff}, newKernel[R, B, W, cutoffCoulomb[R, B]](layout))
	Register(Key{layout, width, CoulombReactionField}, newKernel[R, B, W, reactionFieldCoulomb[R, B]](layout))
	Register(Key{layout, width, CoulombEwaldTab}, newKernel[R, B, W, ewaldTabCoulomb[R, B]](layout))
	Register(Key{layout, width, CoulombEwaldAnalytical}, newKernel[R, B, W, ewaldAnalyticalCoulomb[R, B]](layout))
}
