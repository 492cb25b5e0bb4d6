// Package graph provides the compact, read-only edge-list representation used
// for ranking. A Sparse graph stores its edges in ingestion order alongside a
// dense out-degree table indexed by node id.
package graph

import (
	"iter"
	"slices"
)

// Edge is a directed edge from Source to Target. Node ids are dense,
// zero-based indices.
type Edge struct {
	Source uint32
	Target uint32
}

// Sparse is an immutable directed graph stored as an edge list. The node
// count is one more than the largest id referenced by any edge, so ids that
// never appear in the input still occupy a slot.
type Sparse struct {
	nodes     int
	edges     []Edge
	outDegree []int
}

// New builds a Sparse graph from an in-memory edge list. The slice is copied;
// the caller may reuse it afterwards.
func New(edges []Edge) *Sparse {
	return build(slices.Clone(edges))
}

// build takes ownership of edges and derives the node count and out-degrees.
func build(edges []Edge) *Sparse {
	g := &Sparse{edges: edges}
	if len(edges) == 0 {
		g.edges = nil
		return g
	}

	var maxID uint32
	for _, e := range edges {
		maxID = max(maxID, e.Source, e.Target)
	}
	g.nodes = int(maxID) + 1

	g.outDegree = make([]int, g.nodes)
	for _, e := range edges {
		g.outDegree[e.Source]++
	}
	return g
}

// NodeCount returns the number of nodes.
func (g *Sparse) NodeCount() int { return g.nodes }

// EdgeCount returns the number of edges.
func (g *Sparse) EdgeCount() int { return len(g.edges) }

// Edge returns the i-th edge in ingestion order.
func (g *Sparse) Edge(i int) Edge { return g.edges[i] }

// Edges enumerates the edges in ingestion order together with their index.
func (g *Sparse) Edges() iter.Seq2[int, Edge] {
	return func(yield func(int, Edge) bool) {
		for i, e := range g.edges {
			if !yield(i, e) {
				return
			}
		}
	}
}

// EdgeSlice returns the contiguous edges in [lo, hi). The returned slice
// aliases the graph's storage and must not be modified.
func (g *Sparse) EdgeSlice(lo, hi int) []Edge { return g.edges[lo:hi:hi] }

// OutDegree returns the number of edges whose source is node. Ids outside
// the graph have out-degree zero.
func (g *Sparse) OutDegree(node uint32) int {
	if int(node) >= g.nodes {
		return 0
	}
	return g.outDegree[node]
}

// OutDegrees returns a copy of the out-degree table indexed by node id.
func (g *Sparse) OutDegrees() []int {
	return slices.Clone(g.outDegree)
}

// InDegrees counts, for every node, the edges that target it.
func (g *Sparse) InDegrees() []int {
	in := make([]int, g.nodes)
	for _, e := range g.edges {
		in[e.Target]++
	}
	return in
}

// Dangling returns the number of nodes with no outgoing edge.
func (g *Sparse) Dangling() int {
	n := 0
	for _, d := range g.outDegree {
		if d == 0 {
			n++
		}
	}
	return n
}
