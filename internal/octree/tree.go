package octree

import (
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// Node is a read-only view of a materialized tree node.
// TriIDs aliases the tree's payload and must not be modified.
type Node struct {
	Address
	TriIDs []int
}

// Tree is a sparse existence map over a cube of side 2^levels. Existence is
// stored as one bitmap of Morton codes per level; triangle references hang
// off individual addresses, in practice only at the bucket level.
//
// A Tree is immutable once returned by a Builder.
type Tree struct {
	levels  int
	exists  []*roaring64.Bitmap // indexed by level, len levels+1
	payload map[Address][]int
}

// NewTree returns an empty tree. It has no nodes, not even the root.
func NewTree(levels int) *Tree {
	t := &Tree{
		levels:  levels,
		exists:  make([]*roaring64.Bitmap, levels+1),
		payload: make(map[Address][]int),
	}
	for i := range t.exists {
		t.exists[i] = roaring64.New()
	}
	return t
}

// Levels returns the domain exponent L.
func (t *Tree) Levels() int {
	return t.levels
}

// Has reports whether the address has been materialized.
func (t *Tree) Has(a Address) bool {
	if !a.Valid(t.levels) {
		return false
	}
	return t.exists[a.Level].Contains(a.Code())
}

// GetNode looks up an exact address. A miss is not an error.
func (t *Tree) GetNode(level int, offset Offset) (Node, bool) {
	a := Address{Level: level, Offset: offset}
	if !t.Has(a) {
		return Node{}, false
	}
	return Node{Address: a, TriIDs: t.payload[a]}, true
}

// Len returns the number of materialized nodes across all levels.
func (t *Tree) Len() int {
	var n uint64
	for _, bm := range t.exists {
		n += bm.GetCardinality()
	}
	return int(n)
}

// CountAt returns the number of materialized nodes at one level.
func (t *Tree) CountAt(level int) int {
	if level < 0 || level > t.levels {
		return 0
	}
	return int(t.exists[level].GetCardinality())
}

// All visits every materialized node, parents first.
func (t *Tree) All() iter.Seq[Node] {
	return t.IterDepthFirst(0, t.levels)
}

// IterDepthFirst yields the materialized nodes whose level lies in [lo, hi],
// each parent before its descendants and siblings in octant order.
// The sequence can be ranged over any number of times.
func (t *Tree) IterDepthFirst(lo, hi int) iter.Seq[Node] {
	lo = max(lo, 0)
	hi = min(hi, t.levels)
	return func(yield func(Node) bool) {
		if lo > hi {
			return
		}
		root := Address{Level: t.levels}
		if !t.Has(root) {
			return
		}
		t.visit(root, lo, hi, yield)
	}
}

func (t *Tree) visit(a Address, lo, hi int, yield func(Node) bool) bool {
	if a.Level <= hi {
		if !yield(Node{Address: a, TriIDs: t.payload[a]}) {
			return false
		}
	}
	if a.Level <= lo {
		return true
	}
	below := t.exists[a.Level-1]
	base := a.Code() << 3
	for octant := range 8 {
		if !below.Contains(base | uint64(octant)) {
			continue
		}
		if !t.visit(a.Child(octant), lo, hi, yield) {
			return false
		}
	}
	return true
}

// Equal reports structural equality: same levels and the same set of
// materialized addresses. Payload is ignored.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.levels != o.levels {
		return false
	}
	for i := range t.exists {
		if !t.exists[i].Equals(o.exists[i]) {
			return false
		}
	}
	return true
}

// PayloadEqual reports structural equality plus element-wise equal payloads
// for every node at level.
func (t *Tree) PayloadEqual(o *Tree, level int) bool {
	if !t.Equal(o) {
		return false
	}
	for n := range t.IterDepthFirst(level, level) {
		m, _ := o.GetNode(n.Level, n.Offset)
		if !slices.Equal(n.TriIDs, m.TriIDs) {
			return false
		}
	}
	return true
}
