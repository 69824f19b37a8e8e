package trisort

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// ErrTypeMalformedMesh marks triangles referencing missing points or
	// points with non-finite coordinates.
	ErrTypeMalformedMesh = "mesh-malformed"
	// ErrTypeLevelMismatch marks trees that cannot be merged into the
	// current accumulation.
	ErrTypeLevelMismatch = "levels-mismatch"
	// ErrTypeMergerFinished marks use of a Merger after Finish.
	ErrTypeMergerFinished = "merger-finished"
)

// Point is a vertex in grid units.
type Point [3]float64

// Triangle holds three indices into the point array.
type Triangle [3]int

// Mesh is the caller-owned geometry. Nothing in this package modifies it.
type Mesh struct {
	Points    []Point
	Triangles []Triangle
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Point
}

// Overlaps uses open-interval semantics on every axis: [a, b) and [c, d)
// overlap iff a < d and b > c.
func (b Box) Overlaps(o Box) bool {
	for i := range 3 {
		if !(b.Min[i] < o.Max[i] && b.Max[i] > o.Min[i]) {
			return false
		}
	}
	return true
}

// TriangleBox returns the bounding box of triangle i. The mesh must have
// been validated for i.
func (m Mesh) TriangleBox(i int) Box {
	tri := m.Triangles[i]
	box := Box{Min: m.Points[tri[0]], Max: m.Points[tri[0]]}
	for _, p := range tri[1:] {
		pt := m.Points[p]
		for k := range 3 {
			box.Min[k] = math.Min(box.Min[k], pt[k])
			box.Max[k] = math.Max(box.Max[k], pt[k])
		}
	}
	return box
}

// validate checks triangles [start, start+count) and the points they use.
func (m Mesh) validate(start, count int) error {
	if start < 0 || count < 0 || start+count > len(m.Triangles) {
		return errors.New("triangle range outside mesh").
			WithType(ErrTypeMalformedMesh).
			WithTag("start", start).
			WithTag("count", count).
			WithTag("triangles", len(m.Triangles))
	}
	for i := start; i < start+count; i++ {
		for _, p := range m.Triangles[i] {
			if p < 0 || p >= len(m.Points) {
				return errors.New("triangle references missing point").
					WithType(ErrTypeMalformedMesh).
					WithTag("triangle", i).
					WithTag("point", p).
					WithTag("points", len(m.Points))
			}
			for _, c := range m.Points[p] {
				if math.IsNaN(c) || math.IsInf(c, 0) {
					return errors.New("point has non-finite coordinate").
						WithType(ErrTypeMalformedMesh).
						WithTag("triangle", i).
						WithTag("point", p)
				}
			}
		}
	}
	return nil
}
