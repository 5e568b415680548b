package pairlist

import (
	"slices"

	"github.com/nbforce/nbforce/sim"
)

// Exclusions lists, per atom, the atoms it must not have a plain non-bonded
// interaction with. The relation is symmetric; self-exclusion is implicit.
type Exclusions [][]int

// NewExclusions builds a symmetric exclusion structure for n atoms from
// unordered pairs.
func NewExclusions(n int, pairs [][2]int) (Exclusions, error) {
	ex := make(Exclusions, n)
	for _, p := range pairs {
		a, b := p[0], p[1]
		if a < 0 || b < 0 || a >= n || b >= n {
			return nil, sim.ConfigErrorf("pairlist: exclusion (%d,%d) out of range [0,%d)", a, b, n)
		}
		if a == b {
			continue
		}
		ex[a] = append(ex[a], b)
		ex[b] = append(ex[b], a)
	}
	for i := range ex {
		slices.Sort(ex[i])
		ex[i] = slices.Compact(ex[i])
	}
	return ex, nil
}

// Excluded reports whether a and b are excluded. Indices at or beyond the
// structure's length (padding atoms) are never listed.
func (ex Exclusions) Excluded(a, b int) bool {
	if a == b {
		return true
	}
	if a >= len(ex) {
		return false
	}
	_, found := slices.BinarySearch(ex[a], b)
	return found
}

// NumPairs returns the number of unordered excluded pairs.
func (ex Exclusions) NumPairs() int {
	n := 0
	for _, l := range ex {
		n += len(l)
	}
	return n / 2
}
