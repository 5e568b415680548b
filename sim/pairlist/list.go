// Package pairlist defines the cluster pair list consumed by the kernels and
// provides a reference builder for it.
//
// A list groups j-cluster entries by (i-cluster, shift). Each entry carries an
// exclusion word with bit i*JSize+j set when i-atom i and j-atom j should
// interact. Within one (i-cluster, central shift) group the j-clusters never
// lie entirely below the i-cluster, so every atom pair is listed once; the
// kernel removes the lower triangle of overlapping clusters itself.
package pairlist

import (
	"fmt"

	"github.com/nbforce/nbforce/sim/atomdata"
)

// JEntry is one j-cluster of an i-entry.
type JEntry struct {
	CJ   int
	Excl uint32
}

// IEntry is an i-cluster with one periodic shift and its j-cluster range
// JEntries[JStart:JEnd].
type IEntry struct {
	CI     int
	Shift  int
	JStart int
	JEnd   int
}

// Entry is the flattened view of one cluster pair.
type Entry struct {
	CI, CJ int
	Shift  int
	Excl   uint32
}

// List is the pair list of one worker: a contiguous range of i-clusters.
type List struct {
	IEntries []IEntry
	JEntries []JEntry
	JSize    int
	RList    float64
}

// NumEntries returns the number of cluster pairs.
func (l *List) NumEntries() int { return len(l.JEntries) }

// Entries returns all cluster pairs in list order.
func (l *List) Entries() []Entry {
	out := make([]Entry, 0, len(l.JEntries))
	for _, ie := range l.IEntries {
		for _, je := range l.JEntries[ie.JStart:ie.JEnd] {
			out = append(out, Entry{CI: ie.CI, CJ: je.CJ, Shift: ie.Shift, Excl: je.Excl})
		}
	}
	return out
}

// Validate checks the list against the atom data it will be evaluated with:
// matching cluster layout, i-clusters ascending, all indices in range.
func (l *List) Validate(ad *atomdata.AtomData) error {
	if l.JSize != ad.JSize {
		return fmt.Errorf("pairlist: list built for j-clusters of %d atoms, atom data has %d", l.JSize, ad.JSize)
	}
	prevCI := -1
	prevShift := -1
	next := 0
	for k, ie := range l.IEntries {
		if ie.CI < prevCI || (ie.CI == prevCI && ie.Shift <= prevShift) {
			return fmt.Errorf("pairlist: i-entry %d (ci %d shift %d) out of order", k, ie.CI, ie.Shift)
		}
		if ie.CI < 0 || ie.CI >= ad.NumIClusters() {
			return fmt.Errorf("pairlist: i-entry %d has ci %d, want [0,%d)", k, ie.CI, ad.NumIClusters())
		}
		if ie.Shift < 0 || ie.Shift >= NumShifts {
			return fmt.Errorf("pairlist: i-entry %d has shift %d", k, ie.Shift)
		}
		if ie.JStart != next || ie.JEnd < ie.JStart || ie.JEnd > len(l.JEntries) {
			return fmt.Errorf("pairlist: i-entry %d has j range [%d,%d)", k, ie.JStart, ie.JEnd)
		}
		for _, je := range l.JEntries[ie.JStart:ie.JEnd] {
			if je.CJ < 0 || je.CJ >= ad.NumJClusters() {
				return fmt.Errorf("pairlist: i-entry %d has cj %d, want [0,%d)", k, je.CJ, ad.NumJClusters())
			}
		}
		prevCI, prevShift, next = ie.CI, ie.Shift, ie.JEnd
	}
	if next != len(l.JEntries) {
		return fmt.Errorf("pairlist: %d j-entries not referenced by any i-entry", len(l.JEntries)-next)
	}
	return nil
}

// Set is the pair list of one search step, split into one list per worker.
type Set struct {
	Lists []*List
	JSize int
	RList float64
	// TargetPartitionSize is the number of j-entries each list aimed for.
	TargetPartitionSize int
	// MinCIBalanced is the smallest i-entry count an accelerator list needs
	// to keep all its compute units busy. CPU builds carry it through
	// unchanged; zero means no requirement.
	MinCIBalanced int
}

// NumEntries returns the total number of cluster pairs.
func (s *Set) NumEntries() int {
	n := 0
	for _, l := range s.Lists {
		n += l.NumEntries()
	}
	return n
}
