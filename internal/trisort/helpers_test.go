package trisort

import (
	"math"
	"slices"
	"testing"

	"github.com/agentic-research/trisort/internal/octree"
	"github.com/stretchr/testify/require"
)

// mkTrivial puts two triangles on a unit square inside the (0,0,0) octant.
func mkTrivial() Mesh {
	return Mesh{
		Points: []Point{
			{1, 1, 1},
			{1, 1, 2},
			{1, 2, 1},
			{1, 2, 2},
		},
		Triangles: []Triangle{
			{0, 1, 2},
			{2, 1, 3},
		},
	}
}

// mkSphere returns a UV sphere centred in a domain of side 2^levels.
func mkSphere(levels, rings, segments int) Mesh {
	side := float64(int(1) << levels)
	c := side / 2
	r := side * 0.35

	var m Mesh
	m.Points = append(m.Points, Point{c, c, c + r})
	for i := 1; i < rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		for j := range segments {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			m.Points = append(m.Points, Point{
				c + r*math.Sin(theta)*math.Cos(phi),
				c + r*math.Sin(theta)*math.Sin(phi),
				c + r*math.Cos(theta),
			})
		}
	}
	south := len(m.Points)
	m.Points = append(m.Points, Point{c, c, c - r})

	ring := func(i, j int) int { return 1 + (i-1)*segments + j%segments }
	for j := range segments {
		m.Triangles = append(m.Triangles, Triangle{0, ring(1, j), ring(1, j+1)})
	}
	for i := 1; i < rings-1; i++ {
		for j := range segments {
			a, b := ring(i, j), ring(i, j+1)
			cc, d := ring(i+1, j), ring(i+1, j+1)
			m.Triangles = append(m.Triangles, Triangle{a, cc, b}, Triangle{b, cc, d})
		}
	}
	for j := range segments {
		m.Triangles = append(m.Triangles, Triangle{south, ring(rings-1, j+1), ring(rings-1, j)})
	}
	return m
}

// bucketSets returns each bucket's references sorted, keyed by address.
func bucketSets(tree *octree.Tree, bucketLevel int) map[octree.Address][]int {
	out := make(map[octree.Address][]int)
	for n := range tree.IterDepthFirst(bucketLevel, bucketLevel) {
		ids := slices.Clone(n.TriIDs)
		slices.Sort(ids)
		out[n.Address] = ids
	}
	return out
}

// requireSameBuckets asserts structural equality and equal per-bucket
// reference multisets.
func requireSameBuckets(t *testing.T, want, got *octree.Tree, bucketLevel int) {
	t.Helper()
	require.True(t, want.Equal(got), "trees differ structurally")
	require.Equal(t, bucketSets(want, bucketLevel), bucketSets(got, bucketLevel))
}
