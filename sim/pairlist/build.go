package pairlist

import (
	"context"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/atomdata"
)

// Params configures the reference search.
type Params struct {
	RList    float64 // pair-search radius, cutoff plus buffer
	JSize    int     // atoms per j-cluster expected by the kernel
	NumLists int     // one list per worker
	// KeepExcluded retains cluster pairs whose atom pairs are all excluded,
	// for electrostatics that apply correction forces to exclusions.
	KeepExcluded bool
	// MinCIBalanced is recorded on the resulting Set; see Set.MinCIBalanced.
	MinCIBalanced int
}

// bbox is the axis-aligned bounding box of the real atoms of one cluster.
type bbox struct {
	lo, hi r3.Vec
	empty  bool
}

func clusterBoxes(ad *atomdata.AtomData, size int) []bbox {
	n := ad.NumPadded / size
	boxes := make([]bbox, n)
	for c := 0; c < n; c++ {
		b := bbox{empty: true}
		for a := c * size; a < (c+1)*size; a++ {
			if !ad.Real[a] {
				continue
			}
			p := ad.Position(a)
			if b.empty {
				b.lo, b.hi, b.empty = p, p, false
				continue
			}
			b.lo = r3.Vec{X: math.Min(b.lo.X, p.X), Y: math.Min(b.lo.Y, p.Y), Z: math.Min(b.lo.Z, p.Z)}
			b.hi = r3.Vec{X: math.Max(b.hi.X, p.X), Y: math.Max(b.hi.Y, p.Y), Z: math.Max(b.hi.Z, p.Z)}
		}
		boxes[c] = b
	}
	return boxes
}

// dist2 returns the squared distance between box i translated by shift and
// box j.
func (bi bbox) dist2(shift r3.Vec, bj bbox) float64 {
	gap := func(loI, hiI, loJ, hiJ float64) float64 {
		return math.Max(0, math.Max(loJ-hiI, loI-hiJ))
	}
	dx := gap(bi.lo.X+shift.X, bi.hi.X+shift.X, bj.lo.X, bj.hi.X)
	dy := gap(bi.lo.Y+shift.Y, bi.hi.Y+shift.Y, bj.lo.Y, bj.hi.Y)
	dz := gap(bi.lo.Z+shift.Z, bi.hi.Z+shift.Z, bj.lo.Z, bj.hi.Z)
	return dx*dx + dy*dy + dz*dz
}

// row holds the j-entries found for one i-cluster, per shift.
type row struct {
	shifts  []int
	entries [][]JEntry
}

// Build searches all cluster pairs by bounding-box distance. Every pair of
// atoms closer than p.RList under the minimum image appears in exactly one
// entry. Coordinates must already be wrapped into box. The search over
// i-clusters runs in parallel; the result does not depend on the number of
// goroutines.
func Build(ctx context.Context, ad *atomdata.AtomData, box sim.Box, excl Exclusions, p Params) (*Set, error) {
	if !(p.RList > 0) {
		return nil, sim.ConfigErrorf("pairlist: rlist must be positive, got %g", p.RList)
	}
	if p.JSize != ad.JSize {
		return nil, sim.ConfigErrorf("pairlist: kernel expects j-clusters of %d atoms, atom data has %d", p.JSize, ad.JSize)
	}
	if p.NumLists < 1 || p.NumLists > sim.MaxThreads {
		return nil, sim.ConfigErrorf("pairlist: list count must be in [1,%d], got %d", sim.MaxThreads, p.NumLists)
	}
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if maxRC := box.MaxCutoff(); p.RList > maxRC {
		return nil, sim.ConfigErrorf("pairlist: rlist %g exceeds the largest cutoff %g the box allows", p.RList, maxRC)
	}
	if p.MinCIBalanced < 0 {
		return nil, sim.ConfigErrorf("pairlist: balance unit count must not be negative, got %d", p.MinCIBalanced)
	}
	if len(excl) > ad.NumAtoms {
		return nil, sim.ConfigErrorf("pairlist: exclusions for %d atoms, system has %d", len(excl), ad.NumAtoms)
	}

	shifts := Shifts(box)
	iBoxes := clusterBoxes(ad, atomdata.IClusterSize)
	jBoxes := clusterBoxes(ad, ad.JSize)
	rows := make([]row, len(iBoxes))
	rlist2 := p.RList * p.RList

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	const chunk = 16
	for start := 0; start < len(iBoxes); start += chunk {
		start := start
		end := min(start+chunk, len(iBoxes))
		g.Go(func() error {
			for ci := start; ci < end; ci++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				rows[ci] = searchRow(ad, excl, p, ci, iBoxes[ci], jBoxes, shifts, rlist2)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := partition(rows, p)
	logrus.Debugf("[pairlist] %d cluster pairs in %d lists (rlist %.3f nm, j-size %d)",
		set.NumEntries(), len(set.Lists), p.RList, p.JSize)
	return set, nil
}

func searchRow(ad *atomdata.AtomData, excl Exclusions, p Params, ci int, bi bbox, jBoxes []bbox, shifts []r3.Vec, rlist2 float64) row {
	var r row
	if bi.empty {
		return r
	}
	iStart, _ := ad.IRange(ci)
	for s := 0; s < NumShifts; s++ {
		central := s == CentralShift
		if !central && !positiveHalf(s) {
			continue
		}
		var found []JEntry
		for cj, bj := range jBoxes {
			if bj.empty {
				continue
			}
			jStart, jEnd := ad.JRange(cj)
			if central && jEnd <= iStart {
				continue
			}
			if bi.dist2(shifts[s], bj) >= rlist2 {
				continue
			}
			word, candidates := exclusionWord(ad, excl, ci, jStart, central)
			if !candidates || (word == 0 && !p.KeepExcluded) {
				continue
			}
			found = append(found, JEntry{CJ: cj, Excl: word})
		}
		if len(found) > 0 {
			r.shifts = append(r.shifts, s)
			r.entries = append(r.entries, found)
		}
	}
	return r
}

// exclusionWord computes the interaction bits of i-cluster ci against the
// j-cluster starting at atom jStart. candidates reports whether any atom pair
// could interact at all, excluded or not.
func exclusionWord(ad *atomdata.AtomData, excl Exclusions, ci, jStart int, central bool) (word uint32, candidates bool) {
	iStart, _ := ad.IRange(ci)
	for i := 0; i < atomdata.IClusterSize; i++ {
		a := iStart + i
		if !ad.Real[a] {
			continue
		}
		for j := 0; j < ad.JSize; j++ {
			b := jStart + j
			if !ad.Real[b] || a == b || (central && b < a) {
				continue
			}
			candidates = true
			if !excl.Excluded(a, b) {
				word |= 1 << uint(i*ad.JSize+j)
			}
		}
	}
	return word, candidates
}

// partition concatenates rows in i-cluster order and cuts them into
// p.NumLists contiguous ranges of roughly equal j-entry count.
func partition(rows []row, p Params) *Set {
	total := 0
	for _, r := range rows {
		for _, e := range r.entries {
			total += len(e)
		}
	}
	target := (total + p.NumLists - 1) / p.NumLists
	set := &Set{JSize: p.JSize, RList: p.RList, TargetPartitionSize: target, MinCIBalanced: p.MinCIBalanced}
	newList := func() *List { return &List{JSize: p.JSize, RList: p.RList} }
	cur := newList()
	done := 0
	for ci, r := range rows {
		if len(set.Lists) < p.NumLists-1 && done >= target*(len(set.Lists)+1) {
			set.Lists = append(set.Lists, cur)
			cur = newList()
		}
		for k, s := range r.shifts {
			start := len(cur.JEntries)
			cur.JEntries = append(cur.JEntries, r.entries[k]...)
			cur.IEntries = append(cur.IEntries, IEntry{CI: ci, Shift: s, JStart: start, JEnd: len(cur.JEntries)})
			done += len(r.entries[k])
		}
	}
	set.Lists = append(set.Lists, cur)
	for len(set.Lists) < p.NumLists {
		set.Lists = append(set.Lists, newList())
	}
	return set
}
