// Package nbv drives one non-bonded force engine: it owns the parameter
// tables, the packed atom data, the pair lists, the selected kernel and the
// worker pool, and exposes the per-step entry points to an outer MD loop.
//
// A run alternates search steps and plain steps:
//
//	e, err := nbv.New(opts, top, box)
//	err = e.Search(ctx)            // every nstlist steps
//	err = e.UpdateCoordinates(x)   // every other step
//	out := e.ComputeForces(nbv.FlagEnergies | nbv.FlagVirial)
package nbv

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/atomdata"
	"github.com/nbforce/nbforce/sim/force"
	"github.com/nbforce/nbforce/sim/kernel"
	"github.com/nbforce/nbforce/sim/pairlist"
	"github.com/nbforce/nbforce/sim/params"
	"github.com/nbforce/nbforce/sim/simd"
	"github.com/nbforce/nbforce/sim/workerpool"
)

// Flags select the optional outputs of one force evaluation.
type Flags uint8

const (
	// FlagEnergies requests Coulomb and LJ energies. It has no effect when
	// the engine was set up without compute_energies.
	FlagEnergies Flags = 1 << iota
	// FlagVirial requests the virial tensor.
	FlagVirial
)

// Topology is the fixed particle description of a run.
type Topology struct {
	Types        []params.ParticleType
	Interactions params.InteractionMap // explicit pair coefficients, may be nil
	System       atomdata.System
	Exclusions   [][2]int
}

// Engine is a configured non-bonded force engine. It is not safe for
// concurrent use; parallelism happens inside ComputeForces.
type Engine struct {
	opts       sim.Options
	box        sim.Box
	level      simd.Level
	table      *params.Table
	ic         *params.InteractionConst
	dispatcher *kernel.Dispatcher
	atoms      *atomdata.AtomData
	excl       pairlist.Exclusions
	shifts     []r3.Vec
	pool       *workerpool.Pool

	lists     *pairlist.Set
	outputs   []*force.ThreadOutput
	positions []r3.Vec // coordinates the kernels see, wrapped at the last search
	offsets   []r3.Vec // wrapped minus input position, per atom, from the last search
	closed    bool
}

// New validates opts and the topology, builds the parameter tables, selects
// the kernel for the detected SIMD level and starts the worker pool. All
// errors wrap sim.ErrConfig.
func New(opts sim.Options, top Topology, box sim.Box) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if rl, maxRC := opts.PairlistCutoff(), box.MaxCutoff(); rl > maxRC {
		return nil, sim.ConfigErrorf("nbv: pair-list cutoff %g nm exceeds the %g nm the box allows", rl, maxRC)
	}
	table, err := params.BuildParameters(top.Types, top.Interactions, opts.CombinationRule)
	if err != nil {
		return nil, err
	}
	ic, err := params.NewInteractionConst(opts)
	if err != nil {
		return nil, err
	}

	level := simd.DetectLevel()
	d := kernel.NewDispatcher()
	if err := d.Configure(opts, level, ic, table); err != nil {
		return nil, err
	}
	d.SetCoulomb(anyCharged(top.System.Charges))

	atoms, err := atomdata.New(top.System, table, d.JSize(), opts.NumEnergyGroups)
	if err != nil {
		return nil, err
	}
	excl, err := pairlist.NewExclusions(atoms.NumAtoms, top.Exclusions)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:       opts,
		box:        box,
		level:      level,
		table:      table,
		ic:         ic,
		dispatcher: d,
		atoms:      atoms,
		excl:       excl,
		shifts:     pairlist.Shifts(box),
		pool:       workerpool.New(opts.NumThreads),
		outputs:    make([]*force.ThreadOutput, opts.NumThreads),
		positions:  append([]r3.Vec(nil), top.System.Positions...),
		offsets:    make([]r3.Vec, atoms.NumAtoms),
	}
	for i := range e.outputs {
		e.outputs[i] = force.NewThreadOutput(atoms.NumPadded, pairlist.NumShifts, opts.NumEnergyGroups)
	}
	logrus.Infof("[nbv] %d atoms (%d padded), %d excluded pairs, %d threads, kernel %s",
		atoms.NumAtoms, atoms.NumPadded, excl.NumPairs(), opts.NumThreads, d.Key())
	return e, nil
}

func anyCharged(q []float64) bool {
	for _, v := range q {
		if v != 0 {
			return true
		}
	}
	return false
}

// Search puts the atoms in the box and rebuilds the pair lists, one per
// thread. It is the search step of the MD loop.
func (e *Engine) Search(ctx context.Context) error {
	e.mustBeOpen("Search")
	for i, p := range e.positions {
		w := e.box.Wrap(p)
		e.offsets[i] = r3.Add(e.offsets[i], r3.Sub(w, p))
		e.positions[i] = w
	}
	if err := e.atoms.SetCoordinates(e.positions); err != nil {
		return fmt.Errorf("nbv: search: %w", err)
	}

	start := time.Now()
	set, err := pairlist.Build(ctx, e.atoms, e.box, e.excl, pairlist.Params{
		RList:        e.ic.RList,
		JSize:        e.dispatcher.JSize(),
		NumLists:     e.opts.NumThreads,
		KeepExcluded: e.dispatcher.Setup().ExclForces,
	})
	if err != nil {
		return fmt.Errorf("nbv: search: %w", err)
	}
	e.lists = set
	logrus.Debugf("[nbv] search: %d cluster pairs in %v", set.NumEntries(), time.Since(start))
	return nil
}

// UpdateCoordinates sets new positions between search steps. Positions are
// given in the caller's frame; the engine re-applies the periodic images it
// chose at the last search so the pair lists stay valid.
func (e *Engine) UpdateCoordinates(x []r3.Vec) error {
	e.mustBeOpen("UpdateCoordinates")
	if len(x) != e.atoms.NumAtoms {
		return fmt.Errorf("nbv: got %d positions, want %d", len(x), e.atoms.NumAtoms)
	}
	for i, p := range x {
		e.positions[i] = r3.Add(p, e.offsets[i])
	}
	return e.atoms.SetCoordinates(e.positions)
}

// ComputeForces evaluates all pair lists on the worker pool and reduces the
// per-thread buffers. Forces are returned in input particle order. It panics
// if Search has not been called.
func (e *Engine) ComputeForces(flags Flags) *force.Outcome {
	e.mustBeOpen("ComputeForces")
	if e.lists == nil {
		panic("nbv.Engine.ComputeForces: no pair list, call Search first")
	}

	fn := e.dispatcher.Kernel()
	if flags&FlagEnergies == 0 {
		fn = e.dispatcher.ForceOnlyKernel()
	}
	e.pool.Run(len(e.lists.Lists), func(i int) {
		out := e.outputs[i]
		out.Reset()
		fn(e.lists.Lists[i], e.atoms, e.shifts, out)
	})

	res := force.Reduce(e.outputs, e.positions, e.shifts, e.pool)
	if flags&FlagVirial == 0 {
		res.Virial = nil
	}
	return res
}

// Close stops the worker pool. The engine cannot be used afterwards.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.pool.Close()
}

func (e *Engine) mustBeOpen(method string) {
	if e.closed {
		panic(fmt.Sprintf("nbv.Engine.%s: engine is closed", method))
	}
}

// Kernel returns the selected kernel variant.
func (e *Engine) Kernel() kernel.Key { return e.dispatcher.Key() }

// Level returns the SIMD level the kernel was selected for.
func (e *Engine) Level() simd.Level { return e.level }

// InteractionConst returns the derived electrostatics and cutoff constants.
func (e *Engine) InteractionConst() *params.InteractionConst { return e.ic }

// Table returns the LJ parameter table.
func (e *Engine) Table() *params.Table { return e.table }

// NumPairEntries returns the number of cluster pairs in the current lists,
// or 0 before the first search.
func (e *Engine) NumPairEntries() int {
	if e.lists == nil {
		return 0
	}
	return e.lists.NumEntries()
}

// Positions returns a copy of the coordinates the kernels currently see.
func (e *Engine) Positions() []r3.Vec { return append([]r3.Vec(nil), e.positions...) }
