package trisort

import (
	"context"
	"time"

	"github.com/agentic-research/trisort/api"
	"github.com/agentic-research/trisort/internal/octree"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/sync/errgroup"
)

// Shard is a contiguous range of global triangle indices.
type Shard struct {
	Index int
	Start int
	Count int
}

// Partition splits [0, n) into workers contiguous shards, in order. Shard
// sizes differ by at most one; with more workers than triangles the
// trailing shards are empty.
func Partition(n, workers int) []Shard {
	if workers < 1 {
		return nil
	}
	size, rem := n/workers, n%workers
	shards := make([]Shard, workers)
	start := 0
	for i := range shards {
		count := size
		if i < rem {
			count++
		}
		shards[i] = Shard{Index: i, Start: start, Count: count}
		start += count
	}
	return shards
}

// BuildParallel sorts mesh with cfg.Workers independent shard builds and
// merges the partial trees in shard order. The result is structurally equal
// to Build on the same input and holds the same references per bucket.
//
// Shards share only read access to mesh. Any failing shard fails the call;
// cancelling ctx stops shards that have not started yet.
func BuildParallel(ctx context.Context, cfg api.BuildConfig, mesh Mesh) (*octree.Tree, error) {
	if err := cfg.ValidateParallel(); err != nil {
		return nil, err
	}
	if err := mesh.validate(0, len(mesh.Triangles)); err != nil {
		return nil, err
	}

	shards := Partition(len(mesh.Triangles), cfg.Workers)
	trees := make([]*octree.Tree, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range shards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			trees[s.Index] = buildShard(cfg, mesh, s.Start, s.Count)
			observeShard(start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m, err := NewMerger(cfg)
	if err != nil {
		return nil, err
	}
	for _, t := range trees {
		if err := m.Add(t); err != nil {
			return nil, err
		}
	}
	tree, err := m.Finish()
	if err != nil {
		return nil, err
	}

	logs.WithTag("triangles", len(mesh.Triangles)).
		WithTag("shards", len(shards)).
		WithTag("nodes", tree.Len()).
		WithTag("buckets", tree.CountAt(cfg.BucketLevel)).
		Info("parallel build finished")
	return tree, nil
}
