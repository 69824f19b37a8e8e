package trisort

import (
	"github.com/agentic-research/trisort/api"
	"github.com/agentic-research/trisort/internal/octree"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Merger reduces independently built trees into one. Node existence is the
// union of all inputs; each bucket's payload is the concatenation of the
// inputs' payloads in Add order.
//
// Merger does not deduplicate. Callers must give every global triangle
// reference to exactly one partial tree; adding overlapping trees yields
// duplicated references.
type Merger struct {
	cfg   api.BuildConfig
	b     *octree.Builder
	added int
}

func NewMerger(cfg api.BuildConfig) (*Merger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Merger{cfg: cfg, b: octree.NewBuilder(cfg.Levels)}, nil
}

// Add folds t into the accumulation. t is not retained.
func (m *Merger) Add(t *octree.Tree) error {
	if m.b == nil {
		return errors.New("merger already finished").WithType(ErrTypeMergerFinished)
	}
	if t == nil {
		return errors.New("cannot merge a nil tree").WithType(ErrTypeLevelMismatch)
	}
	if t.Levels() != m.cfg.Levels {
		return errors.New("tree depth does not match merger").
			WithType(ErrTypeLevelMismatch).
			WithTag("want", m.cfg.Levels).
			WithTag("got", t.Levels())
	}
	for lvl := 0; lvl < m.cfg.BucketLevel; lvl++ {
		if t.CountAt(lvl) > 0 {
			return errors.New("tree has nodes below the bucket level").
				WithType(ErrTypeLevelMismatch).
				WithTag("bucket_level", m.cfg.BucketLevel).
				WithTag("level", lvl)
		}
	}
	if err := m.b.Merge(t); err != nil {
		return errors.New("merge tree").WithType(ErrTypeLevelMismatch).Wrap(err)
	}
	m.added++
	treesMerged.Inc()
	return nil
}

// Added returns the number of trees folded in so far.
func (m *Merger) Added() int {
	return m.added
}

// Finish returns the merged tree. The merger cannot be used afterwards.
func (m *Merger) Finish() (*octree.Tree, error) {
	if m.b == nil {
		return nil, errors.New("merger already finished").WithType(ErrTypeMergerFinished)
	}
	t := m.b.Tree()
	m.b = nil
	return t, nil
}
