// Package parallel provides the bounded-fan-out worker pool the
// classification driver (4.N) uses to invoke a SubsumptionOracle
// across goroutines. Adapted from the miniKanren solver's
// internal/parallel.WorkerPool, rebuilt directly on
// golang.org/x/sync/errgroup rather than a hand-rolled channel loop:
// errgroup already gives first-error propagation and context
// cancellation, which the original WorkerPool had to implement by hand
// with its own shutdownChan/once plumbing.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of independent work submitted to a Pool.
type Task func(ctx context.Context) error

// Pool bounds how many Tasks run concurrently. Unlike the teacher's
// WorkerPool, which pre-spawns a fixed set of long-lived goroutines
// reading off a shared channel, Pool spins up goroutines per Run call
// and lets errgroup's SetLimit do the bounding; there is no persistent
// pool to shut down between calls, matching the classification
// driver's call shape (one bounded fan-out per classification pass,
// not a long-lived service).
type Pool struct {
	maxWorkers int
}

// New returns a Pool bounded to maxWorkers concurrent goroutines. A
// non-positive maxWorkers defaults to runtime.NumCPU, mirroring the
// teacher's NewWorkerPool default.
func New(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Pool{maxWorkers: maxWorkers}
}

// Run submits every task in tasks, bounded to p.maxWorkers concurrent
// goroutines, and returns the first error encountered, after every
// task still in flight when that error occurred has finished (the
// errgroup default). A nil result means every task succeeded.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxWorkers)
	for _, t := range tasks {
		t := t
		g.Go(func() error { return t(gctx) })
	}
	return g.Wait()
}

// RunIndexed calls fn(ctx, i) for every i in [0,n), bounded to
// p.maxWorkers concurrent goroutines, and funnels the per-call results
// back into a single slice in index order once every call has
// returned — the "funneling results back to a single taxonomy
// builder" component N calls for, with the taxonomy builder itself
// living one layer up in taxonomy.go. The first error aborts the
// remaining in-flight calls via gctx and is returned; results is nil
// in that case.
func (p *Pool) RunIndexed(ctx context.Context, n int, fn func(ctx context.Context, i int) (bool, error)) ([]bool, error) {
	results := make([]bool, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxWorkers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			r, err := fn(gctx, i)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
