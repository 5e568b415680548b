package kernel

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/atomdata"
	"github.com/nbforce/nbforce/sim/force"
	"github.com/nbforce/nbforce/sim/pairlist"
	"github.com/nbforce/nbforce/sim/simd"
)

// plainCJSize is the j-cluster size of the scalar reference layout.
const plainCJSize = 4

// laneMap describes how the four i-atoms and the j-cluster are spread over
// the registers of one layout.
//
// 4xM: register r holds i-atom r against j-atoms 0..M-1.
// 2xMM: register r holds i-atoms 2r and 2r+1, each against the M/2 j-atoms;
// the j-cluster is loaded twice into one register.
// plain-c: one lane; the 4x4 cluster pair takes four j loads of one atom.
type laneMap[W simd.Words] struct {
	regs    int
	jBlocks int
	dup     bool
	iAtom   [4][8]int
	jAtom   [4][8]int // [j load][lane], relative to the j-cluster start
	filter  [4][4]W   // [j load][register]
}

func newLaneMap[W simd.Words](layout sim.KernelLayout) *laneMap[W] {
	var w W
	m := len(w)
	lm := &laneMap[W]{regs: 4, jBlocks: 1}
	jSize := m
	switch layout {
	case sim.Layout2xMM:
		lm.regs, lm.dup, jSize = 2, true, m/2
	case sim.LayoutPlainC:
		lm.jBlocks, jSize = plainCJSize/m, plainCJSize
	}
	for jb := 0; jb < lm.jBlocks; jb++ {
		for l := 0; l < m; l++ {
			lm.jAtom[jb][l] = jb*m + l%jSize
		}
		for r := 0; r < lm.regs; r++ {
			for l := 0; l < m; l++ {
				i := r
				if lm.dup {
					i = 2*r + l/jSize
				}
				lm.iAtom[r][l] = i
				lm.filter[jb][r][l] = 1 << uint(i*jSize+lm.jAtom[jb][l])
			}
		}
	}
	return lm
}

// iData is the per-register i-atom data of one i-entry.
type iData[R simd.Reals] struct {
	x, y, z    [4]R
	q          [4]R
	c0, c1     [4]R // combination parameters, zero for table lookup
	grid       [4]R
	typ, group [4][8]int
	index      [4][8]int
}

// jData is the per-lane data of one j load.
type jData[R simd.Reals] struct {
	x, y, z, q  R
	c0, c1      R
	grid        R
	typ, group  [8]int
	index       [8]int
}

// runKernel evaluates every entry of list. All optional behaviour comes from
// the strategy type parameters, fixed when the variant was composed.
func runKernel[R simd.Reals, B simd.Bools, W simd.Words,
	L ljCombination[R], X exclusionMode[R, B], E energyMode[R, B], G ljEwaldMode[R, B], V vdwMode[R, B]](
	lm *laneMap[W], list *pairlist.List, ad *atomdata.AtomData, s *Setup, shifts []r3.Vec, out *force.ThreadOutput) {
	var (
		lj  L
		ex  X
		en  E
		lje G
		vdw V
	)
	kc := &s.kc
	m := simd.Lanes[R]()
	lookup := ljLookup{nbfp: ad.Table.NBFP(), stride: ad.Table.Stride()}
	acc := energyAcc[R]{ng: ad.NumEnergyGroups}

	rc2 := simd.Set[R](kc.rc2)
	minRsq := simd.Set[R](kc.minRsq)

	var d iData[R]
	var jd jData[R]

	for _, ie := range list.IEntries {
		ciStart, ciEnd := ad.IRange(ie.CI)
		sh := shifts[ie.Shift]
		central := ie.Shift == pairlist.CentralShift

		for r := 0; r < lm.regs; r++ {
			for l := 0; l < m; l++ {
				a := ciStart + lm.iAtom[r][l]
				d.x[r][l] = ad.X[a] + sh.X
				d.y[r][l] = ad.Y[a] + sh.Y
				d.z[r][l] = ad.Z[a] + sh.Z
				d.q[r][l] = ad.Q[a] * kc.epsfac
				d.typ[r][l] = ad.Type[a]
				d.group[r][l] = ad.EnergyGroup[a]
				d.index[r][l] = a
				d.c0[r][l], d.c1[r][l] = lj.params(ad, a)
				d.grid[r][l] = ad.LJGrid[a]
			}
		}

		var fix, fiy, fiz [4]R

		for _, je := range list.JEntries[ie.JStart:ie.JEnd] {
			js, jEnd := ad.JRange(je.CJ)
			diag := central && js < ciEnd && ciStart < jEnd

			for jb := 0; jb < lm.jBlocks; jb++ {
				off := js + jb*m
				jd.x = loadJ[R](ad.X[off:], lm.dup)
				jd.y = loadJ[R](ad.Y[off:], lm.dup)
				jd.z = loadJ[R](ad.Z[off:], lm.dup)
				jd.q = loadJ[R](ad.Q[off:], lm.dup)
				jd.grid = loadJ[R](ad.LJGrid[off:], lm.dup)
				for l := 0; l < m; l++ {
					b := js + lm.jAtom[jb][l]
					jd.index[l] = b
					jd.typ[l] = ad.Type[b]
					jd.group[l] = ad.EnergyGroup[b]
					jd.c0[l], jd.c1[l] = lj.params(ad, b)
				}

				var fjx, fjy, fjz R

				for r := 0; r < lm.regs; r++ {
					dx := simd.Sub(d.x[r], jd.x)
					dy := simd.Sub(d.y[r], jd.y)
					dz := simd.Sub(d.z[r], jd.z)
					rsq := simd.MulAdd(dx, dx, simd.MulAdd(dy, dy, simd.Mul(dz, dz)))

					interact := simd.TestBits[B](je.Excl, lm.filter[jb][r])
					within := ex.mask(simd.LessThan[B](rsq, rc2), interact, diag, &d.index[r], &jd.index)
					interactWithin := simd.And(within, interact)
					out.PairsWithinCutoff += int64(simd.CountTrue(interactWithin))

					rsq = simd.Max(rsq, minRsq)
					rinv := simd.Select(simd.InvSqrt(rsq), within)
					rinvsq := simd.Mul(rinv, rinv)
					rinvEx, rinvsqEx := ex.masked(rinv, rinvsq, interact)

					frc, vc := en.coulomb(kc, simd.Mul(d.q[r], jd.q), rsq, rinv, rinvEx, interact, within)

					// Lennard-Jones with pre-multiplied c6 = 6*C6, c12 = 12*C12.
					c6, c12 := lj.coeffs(&lookup, d.c0[r], d.c1[r], jd.c0, jd.c1, &d.typ[r], &jd.typ)
					rinvsix := simd.Mul(rinvsqEx, simd.Mul(rinvsqEx, rinvsqEx))
					vlj6 := simd.Mul(c6, rinvsix)
					vlj12 := simd.Mul(c12, simd.Mul(rinvsix, rinvsix))
					frlj := simd.Sub(vlj12, vlj6)
					vlj := en.lj(kc, c6, c12, vlj6, vlj12, interactWithin)

					frg, vg := lje.eval(kc, d.grid[r], jd.grid, rsq, rinvsq, interact, within)
					frlj, vlj = vdw.apply(kc, rsq, simd.Add(frlj, frg), simd.Add(vlj, vg))

					fscal := simd.Mul(rinvsq, simd.Add(frc, frlj))
					tx := simd.Mul(fscal, dx)
					ty := simd.Mul(fscal, dy)
					tz := simd.Mul(fscal, dz)
					fix[r] = simd.Add(fix[r], tx)
					fiy[r] = simd.Add(fiy[r], ty)
					fiz[r] = simd.Add(fiz[r], tz)
					fjx = simd.Add(fjx, tx)
					fjy = simd.Add(fjy, ty)
					fjz = simd.Add(fjz, tz)

					en.add(&acc, out, vc, vlj, &d.group[r], &jd.group)
				}

				for l := 0; l < m; l++ {
					b := 3 * jd.index[l]
					out.F[b] -= fjx[l]
					out.F[b+1] -= fjy[l]
					out.F[b+2] -= fjz[l]
				}
			}
		}

		var fs r3.Vec
		for r := 0; r < lm.regs; r++ {
			for l := 0; l < m; l++ {
				a := 3 * d.index[r][l]
				out.F[a] += fix[r][l]
				out.F[a+1] += fiy[r][l]
				out.F[a+2] += fiz[r][l]
			}
			fs.X += simd.ReduceSum(fix[r])
			fs.Y += simd.ReduceSum(fiy[r])
			fs.Z += simd.ReduceSum(fiz[r])
		}
		k := 3 * ie.Shift
		out.FShift[k] += fs.X
		out.FShift[k+1] += fs.Y
		out.FShift[k+2] += fs.Z
	}

	en.flush(&acc, out)
}

// loadJ loads one j-cluster quantity: a full register for 4xM and plain-c,
// the half cluster duplicated into both halves for 2xMM.
func loadJ[R simd.Reals](src []float64, dup bool) R {
	if dup {
		return simd.LoadDup[R](src)
	}
	return simd.Load[R](src)
}
