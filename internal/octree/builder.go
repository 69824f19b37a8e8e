package octree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// ErrTypeCodec marks shard streams that cannot be decoded.
	ErrTypeCodec = "octree-codec"
	// ErrTypeAddress marks writes to addresses outside the domain.
	ErrTypeAddress = "octree-address"
	// ErrTypeLevels marks operations mixing trees of different depth.
	ErrTypeLevels = "octree-levels"
)

// Builder is the only way to populate a Tree. Calling Tree hands the
// accumulated tree over and leaves the builder empty.
type Builder struct {
	t *Tree
}

func NewBuilder(levels int) *Builder {
	return &Builder{t: NewTree(levels)}
}

// Levels returns the depth of the tree under construction.
func (b *Builder) Levels() int {
	return b.t.levels
}

// Insert materializes a and every ancestor up to the root, then appends refs
// to a's payload. Duplicates are kept.
func (b *Builder) Insert(a Address, refs ...int) error {
	if !a.Valid(b.t.levels) {
		return errors.New("address outside domain").
			WithType(ErrTypeAddress).
			WithTag("address", a.String()).
			WithTag("levels", b.t.levels)
	}
	b.materialize(a)
	if len(refs) > 0 {
		b.t.payload[a] = append(b.t.payload[a], refs...)
	}
	return nil
}

func (b *Builder) materialize(a Address) {
	code := a.Code()
	for lvl := a.Level; lvl <= b.t.levels; lvl++ {
		bm := b.t.exists[lvl]
		if bm.Contains(code) {
			// Ancestors of an existing node already exist.
			return
		}
		bm.Add(code)
		code >>= 3
	}
}

// Merge folds o into the builder: existence is the union, payload for each
// address is appended after what the builder already holds.
func (b *Builder) Merge(o *Tree) error {
	if o.levels != b.t.levels {
		return errors.New("cannot merge trees of different depth").
			WithType(ErrTypeLevels).
			WithTag("want", b.t.levels).
			WithTag("got", o.levels)
	}
	for i, bm := range o.exists {
		b.t.exists[i].Or(bm)
	}
	// Walk o in traversal order so payload concatenation does not depend on
	// map iteration order.
	for n := range o.All() {
		if len(n.TriIDs) == 0 {
			continue
		}
		b.t.payload[n.Address] = append(b.t.payload[n.Address], n.TriIDs...)
	}
	return nil
}

// Tree returns the accumulated tree and resets the builder to an empty tree
// of the same depth.
func (b *Builder) Tree() *Tree {
	t := b.t
	b.t = NewTree(t.levels)
	return t
}
