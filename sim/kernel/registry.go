// Package kernel implements the cluster pair kernels and the dispatcher that
// selects one of them at setup time.
//
// A kernel variant is identified by its Key: cluster layout, lane width and
// electrostatics kind. These are compile-time choices; each variant is a
// separate instantiation of generic code, registered from init() as a
// Builder. The remaining options (LJ combination, exclusion forces,
// energies, energy groups, LJ-Ewald, vdW cutoff check) are Setup flags that
// the Builder turns into strategy type parameters once, when the Setup is
// bound. The pair loops never branch on them.
package kernel

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/atomdata"
	"github.com/nbforce/nbforce/sim/force"
	"github.com/nbforce/nbforce/sim/pairlist"
)

// CoulombKind is the electrostatics evaluation compiled into a kernel.
type CoulombKind int

const (
	CoulombCutoff CoulombKind = iota
	CoulombReactionField
	CoulombEwaldTab
	CoulombEwaldAnalytical
)

// String returns the kind's name.
func (c CoulombKind) String() string {
	switch c {
	case CoulombCutoff:
		return "cutoff"
	case CoulombReactionField:
		return "reaction-field"
	case CoulombEwaldTab:
		return "ewald-tab"
	case CoulombEwaldAnalytical:
		return "ewald-analytical"
	default:
		return "unknown"
	}
}

// Key identifies a compiled kernel variant.
type Key struct {
	Layout  sim.KernelLayout // never LayoutAuto
	Width   int              // float64 lanes per register; 4 for plain-c
	Coulomb CoulombKind
}

// String returns e.g. "4xm/w4/ewald-analytical".
func (k Key) String() string {
	return fmt.Sprintf("%s/w%d/%s", k.Layout, k.Width, k.Coulomb)
}

// JSize returns the j-cluster size of the variant.
func (k Key) JSize() int {
	return JClusterSize(k.Layout, k.Width)
}

// JClusterSize returns the number of atoms per j-cluster for a layout and
// lane width, or 0 for an unknown layout.
func JClusterSize(layout sim.KernelLayout, width int) int {
	switch layout {
	case sim.LayoutPlainC:
		return 4
	case sim.Layout4xM:
		return width
	case sim.Layout2xMM:
		return width / 2
	default:
		return 0
	}
}

// Func evaluates every entry of one pair list and accumulates into out.
// It cannot fail: all inputs are validated before the first call.
type Func func(list *pairlist.List, ad *atomdata.AtomData, shifts []r3.Vec, out *force.ThreadOutput)

// Builder composes the Func of one variant for the options in s. The
// returned Func keeps s for its constants.
type Builder func(s *Setup) Func

var registry = map[Key]Builder{}

// Register makes a kernel variant available to the dispatcher. It panics on
// duplicate registration.
func Register(key Key, b Builder) {
	if _, dup := registry[key]; dup {
		panic(fmt.Sprintf("kernel.Register: duplicate variant %s", key))
	}
	registry[key] = b
}

// Lookup returns the builder registered under key.
func Lookup(key Key) (Builder, bool) {
	b, ok := registry[key]
	return b, ok
}

// Keys returns all registered variants in a stable order.
func Keys() []Key {
	keys := make([]Key, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Layout != b.Layout {
			return a.Layout < b.Layout
		}
		if a.Width != b.Width {
			return a.Width < b.Width
		}
		return a.Coulomb < b.Coulomb
	})
	return keys
}
