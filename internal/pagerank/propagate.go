package pagerank

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// minEdgesPerWorker keeps tiny graphs from paying for goroutines that each
// do almost nothing.
const minEdgesPerWorker = 4096

// propagator performs the edge-propagation step of a round. With more than
// one shard, each shard owns a contiguous edge range and a private partial
// buffer; partials are reduced in shard order so results are reproducible.
type propagator struct {
	g        Graph
	bounds   []int       // shard i covers edges [bounds[i], bounds[i+1])
	partials [][]float64 // one per shard beyond the first
}

func newPropagator(g Graph, workers, minPerShard int) *propagator {
	m := g.EdgeCount()
	shards := max(workers, 1)
	if limit := m / max(minPerShard, 1); shards > limit {
		shards = max(limit, 1)
	}

	p := &propagator{g: g, bounds: make([]int, shards+1)}
	for i := range shards + 1 {
		p.bounds[i] = m * i / shards
	}
	if shards > 1 {
		n := g.NodeCount()
		p.partials = make([][]float64, shards-1)
		for i := range p.partials {
			p.partials[i] = make([]float64, n)
		}
	}
	return p
}

// step writes into next the mass each node receives from cur along edges.
func (p *propagator) step(ctx context.Context, cur, next []float64) error {
	if len(p.partials) == 0 {
		clear(next)
		p.spread(0, cur, next)
		return nil
	}

	eg, _ := errgroup.WithContext(ctx)
	for shard := range len(p.bounds) - 1 {
		dst := next
		if shard > 0 {
			dst = p.partials[shard-1]
		}
		eg.Go(func() error {
			clear(dst)
			p.spread(shard, cur, dst)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for _, part := range p.partials {
		for i, v := range part {
			next[i] += v
		}
	}
	return nil
}

// spread adds cur[s]/outdeg(s) into dst[t] for every edge (s, t) in the shard.
func (p *propagator) spread(shard int, cur, dst []float64) {
	for _, e := range p.g.EdgeSlice(p.bounds[shard], p.bounds[shard+1]) {
		d := p.g.OutDegree(e.Source)
		if d == 0 {
			continue
		}
		dst[e.Target] += cur[e.Source] / float64(d)
	}
}
