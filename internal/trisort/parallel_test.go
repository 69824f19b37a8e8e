package trisort

import (
	"context"
	"testing"

	"github.com/agentic-research/trisort/api"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	cases := []struct {
		n, workers int
		sizes      []int
	}{
		{10, 1, []int{10}},
		{10, 3, []int{4, 3, 3}},
		{10, 4, []int{3, 3, 2, 2}},
		{8, 8, []int{1, 1, 1, 1, 1, 1, 1, 1}},
		{2, 4, []int{1, 1, 0, 0}},
		{0, 2, []int{0, 0}},
	}
	for _, tc := range cases {
		shards := Partition(tc.n, tc.workers)
		require.Len(t, shards, tc.workers)
		next := 0
		for i, s := range shards {
			assert.Equal(t, i, s.Index)
			assert.Equal(t, next, s.Start, "shards must be contiguous")
			assert.Equal(t, tc.sizes[i], s.Count)
			next += s.Count
		}
		assert.Equal(t, tc.n, next)
	}
	assert.Nil(t, Partition(10, 0))
}

func TestBuildParallel(t *testing.T) {
	cfg := api.BuildConfig{Levels: 5, BucketLevel: 3}
	mesh := mkSphere(cfg.Levels, 16, 32)
	serial, err := Build(cfg, mesh)
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 3, 4, 8} {
		cfg.Workers = workers
		par, err := BuildParallel(context.Background(), cfg, mesh)
		require.NoError(t, err, "workers=%d", workers)
		requireSameBuckets(t, serial, par, cfg.BucketLevel)
		// Merging contiguous shards in order reproduces the serial order.
		assert.True(t, serial.PayloadEqual(par, cfg.BucketLevel), "workers=%d", workers)
	}
}

func TestBuildParallel_MoreWorkersThanTriangles(t *testing.T) {
	cfg := api.BuildConfig{Levels: 4, BucketLevel: 3, Workers: 16}
	serial, err := Build(cfg, mkTrivial())
	require.NoError(t, err)
	par, err := BuildParallel(context.Background(), cfg, mkTrivial())
	require.NoError(t, err)
	assert.True(t, serial.PayloadEqual(par, cfg.BucketLevel))
}

func TestBuildParallel_Empty(t *testing.T) {
	cfg := api.BuildConfig{Levels: 4, BucketLevel: 3, Workers: 4}
	tree, err := BuildParallel(context.Background(), cfg, Mesh{})
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
}

func TestBuildParallel_Errors(t *testing.T) {
	t.Run("no workers", func(t *testing.T) {
		cfg := api.BuildConfig{Levels: 4, BucketLevel: 3}
		_, err := BuildParallel(context.Background(), cfg, mkTrivial())
		require.Error(t, err)
		assert.Equal(t, api.ErrTypeConfig, errors.Type(err))
	})

	t.Run("malformed mesh fails before any shard runs", func(t *testing.T) {
		cfg := api.BuildConfig{Levels: 4, BucketLevel: 3, Workers: 2}
		mesh := mkTrivial()
		mesh.Triangles[1][2] = 99
		_, err := BuildParallel(context.Background(), cfg, mesh)
		require.Error(t, err)
		assert.Equal(t, ErrTypeMalformedMesh, errors.Type(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := api.BuildConfig{Levels: 4, BucketLevel: 3, Workers: 2}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := BuildParallel(ctx, cfg, mkTrivial())
		require.ErrorIs(t, err, context.Canceled)
	})
}
