// Package workerpool runs the per-step parallel work of the engine on a fixed
// set of goroutines that live as long as the engine. Each force evaluation
// issues one Run for the pair-list partitions and one ParallelFor for the
// force reduction, so spawning goroutines per step is avoided.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool. Run and ParallelFor block until all
// submitted work has finished, which is the only synchronization point the
// callers rely on.
type Pool struct {
	numWorkers int
	work       chan task
	closeOnce  sync.Once
	closed     atomic.Bool
}

type task struct {
	fn   func()
	done *sync.WaitGroup
}

// New starts numWorkers goroutines; numWorkers <= 0 uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		work:       make(chan task, numWorkers*2),
	}
	for w := 0; w < numWorkers; w++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for t := range p.work {
		t.fn()
		t.done.Done()
	}
}

// NumWorkers returns the number of worker goroutines.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the workers after pending work completes. Safe to call more
// than once; a closed pool runs work on the calling goroutine.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.work)
	})
}

// Run calls fn(i) for every i in [0, n), each call as its own task. Use it
// when every index owns a private output, such as one pair-list partition
// per thread buffer.
func (p *Pool) Run(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if p.closed.Load() || n == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		p.work <- task{fn: func() { fn(i) }, done: &wg}
	}
	wg.Wait()
}

// ParallelFor splits [0, n) into at most NumWorkers contiguous ranges and
// calls fn(start, end) for each.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := min(p.numWorkers, n)
	if p.closed.Load() || workers == 1 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		start := start
		end := min(start+chunk, n)
		wg.Add(1)
		p.work <- task{fn: func() { fn(start, end) }, done: &wg}
	}
	wg.Wait()
}
