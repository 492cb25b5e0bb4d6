// Package pagerank computes approximate PageRank vectors by power iteration
// with a uniform restart probability. The iteration count is fixed by the
// caller; there is no convergence-based early stop.
package pagerank

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/papapumpkin/citrank/internal/graph"
)

// ErrInvalidRestart is returned when the restart probability is outside [0, 1].
var ErrInvalidRestart = errors.New("restart probability must be in [0, 1]")

// ErrInvalidIterations is returned for a negative iteration count.
var ErrInvalidIterations = errors.New("iteration count must be non-negative")

// ErrInvalidWorkers is returned for a negative worker count.
var ErrInvalidWorkers = errors.New("worker count must be non-negative")

// Graph is the read-only view of a graph the engine iterates over.
// *graph.Sparse satisfies it.
type Graph interface {
	NodeCount() int
	EdgeCount() int
	EdgeSlice(lo, hi int) []graph.Edge
	OutDegree(node uint32) int
}

var _ Graph = (*graph.Sparse)(nil)

// Round summarizes one completed power-iteration round.
type Round struct {
	Iteration int     // 1-based
	Mass      float64 // total mass after damping, before renormalization
	Residual  float64 // per-node correction added during renormalization
	Delta     float64 // L1 distance from the previous vector
}

// Options configures a PageRank computation. Restart and Iterations have no
// defaults; the zero value runs zero rounds with no restart.
type Options struct {
	// Restart is the probability that the walk teleports to a uniformly
	// random node instead of following an out-edge.
	Restart float64

	// Iterations is the exact number of rounds to run.
	Iterations int

	// Workers shards edge propagation across goroutines when greater than
	// one. Zero and one both mean sequential.
	Workers int

	// OnRound, if set, is called after every round.
	OnRound func(Round)
}

// Validate reports whether the options are usable.
func (o Options) Validate() error {
	if !(o.Restart >= 0 && o.Restart <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidRestart, o.Restart)
	}
	if o.Iterations < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidIterations, o.Iterations)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, o.Workers)
	}
	return nil
}

// Compute runs opts.Iterations rounds of power iteration over g, starting
// from the uniform vector, and returns the final probability vector indexed
// by node id.
//
// Each round distributes every node's mass equally among its out-edges,
// mixes in the restart probability, then spreads whatever mass is missing
// (lost at dangling nodes) uniformly so the vector sums to one. Sources with
// out-degree zero are skipped during propagation; their mass is recovered by
// the renormalization step.
//
// Cancellation is observed between rounds.
func Compute(ctx context.Context, g Graph, opts Options) (Vector, error) {
	return compute(ctx, g, opts, minEdgesPerWorker)
}

func compute(ctx context.Context, g Graph, opts Options, minPerShard int) (Vector, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("pagerank: %w", err)
	}

	n := g.NodeCount()
	if n == 0 {
		return Vector{}, nil
	}

	cur := make([]float64, n)
	for i := range cur {
		cur[i] = 1 / float64(n)
	}
	if opts.Iterations == 0 {
		return cur, nil
	}
	next := make([]float64, n)

	prop := newPropagator(g, opts.Workers, minPerShard)
	nf := float64(n)

	for it := 1; it <= opts.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := prop.step(ctx, cur, next); err != nil {
			return nil, err
		}

		floats.Scale(1-opts.Restart, next)
		floats.AddConst(opts.Restart/nf, next)

		mass := floats.Sum(next)
		residual := (1 - mass) / nf
		floats.AddConst(residual, next)

		if opts.OnRound != nil {
			opts.OnRound(Round{
				Iteration: it,
				Mass:      mass,
				Residual:  residual,
				Delta:     floats.Distance(cur, next, 1),
			})
		}

		cur, next = next, cur
	}

	return cur, nil
}
