package kernel

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/atomdata"
	"github.com/nbforce/nbforce/sim/force"
	"github.com/nbforce/nbforce/sim/pairlist"
	"github.com/nbforce/nbforce/sim/simd"
)

// newKernel returns the Builder of one registered variant. Each with* step
// reads one Setup flag and fixes the matching strategy type, so the flags
// are consulted once per composition and never by the pair loops.
func newKernel[R simd.Reals, B simd.Bools, W simd.Words, C coulombKernel[R, B]](layout sim.KernelLayout) Builder {
	lm := newLaneMap[W](layout)
	return func(s *Setup) Func {
		if !s.Coulomb {
			return withLJ[R, B, W, noCoulomb[R, B]](lm, s)
		}
		return withLJ[R, B, W, C](lm, s)
	}
}

func withLJ[R simd.Reals, B simd.Bools, W simd.Words, C coulombKernel[R, B]](lm *laneMap[W], s *Setup) Func {
	switch s.LJRule {
	case sim.CombinationGeometric:
		return withExclusions[R, B, W, C, geometricLJ[R]](lm, s)
	case sim.CombinationLorentzBerthelot:
		return withExclusions[R, B, W, C, lorentzBerthelotLJ[R]](lm, s)
	default:
		return withExclusions[R, B, W, C, tableLJ[R]](lm, s)
	}
}

func withExclusions[R simd.Reals, B simd.Bools, W simd.Words, C coulombKernel[R, B], L ljCombination[R]](lm *laneMap[W], s *Setup) Func {
	if s.ExclForces {
		return withEnergy[R, B, W, C, L, exclusionForces[R, B]](lm, s)
	}
	return withEnergy[R, B, W, C, L, plainExclusions[R, B]](lm, s)
}

func withEnergy[R simd.Reals, B simd.Bools, W simd.Words, C coulombKernel[R, B], L ljCombination[R], X exclusionMode[R, B]](lm *laneMap[W], s *Setup) Func {
	switch {
	case !s.Energies:
		return withLJEwald[R, B, W, L, X, noEnergy[R, B, C]](lm, s)
	case s.EnergyGroups:
		return withLJEwald[R, B, W, L, X, groupEnergy[R, B, C]](lm, s)
	default:
		return withLJEwald[R, B, W, L, X, totalEnergy[R, B, C]](lm, s)
	}
}

func withLJEwald[R simd.Reals, B simd.Bools, W simd.Words, L ljCombination[R], X exclusionMode[R, B], E energyMode[R, B]](lm *laneMap[W], s *Setup) Func {
	if s.LJEwald {
		return withVdw[R, B, W, L, X, E, ljEwaldGrid[R, B, E]](lm, s)
	}
	return withVdw[R, B, W, L, X, E, noLJEwald[R, B]](lm, s)
}

func withVdw[R simd.Reals, B simd.Bools, W simd.Words, L ljCombination[R], X exclusionMode[R, B], E energyMode[R, B], G ljEwaldMode[R, B]](lm *laneMap[W], s *Setup) Func {
	if s.VdwCheck {
		return bind[R, B, W, L, X, E, G, vdwCheck[R, B]](lm, s)
	}
	return bind[R, B, W, L, X, E, G, noVdwCheck[R, B]](lm, s)
}

func bind[R simd.Reals, B simd.Bools, W simd.Words,
	L ljCombination[R], X exclusionMode[R, B], E energyMode[R, B], G ljEwaldMode[R, B], V vdwMode[R, B]](lm *laneMap[W], s *Setup) Func {
	return func(list *pairlist.List, ad *atomdata.AtomData, shifts []r3.Vec, out *force.ThreadOutput) {
		runKernel[R, B, W, L, X, E, G, V](lm, list, ad, s, shifts, out)
	}
}
