package pagerank

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Vector is a probability vector indexed by node id.
type Vector []float64

// Score pairs a node id with its rank.
type Score struct {
	Node  int
	Value float64
}

// Sum returns the total probability mass.
func (v Vector) Sum() float64 {
	return floats.Sum(v)
}

// Top returns the n highest-ranked nodes, best first. Ties are broken by
// ascending node id. n larger than the vector returns every node.
func (v Vector) Top(n int) []Score {
	if n <= 0 || len(v) == 0 {
		return nil
	}
	all := make([]Score, len(v))
	for i, s := range v {
		all[i] = Score{Node: i, Value: s}
	}
	slices.SortStableFunc(all, func(a, b Score) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return all[:min(n, len(all))]
}
