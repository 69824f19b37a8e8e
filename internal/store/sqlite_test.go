package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/agentic-research/trisort/api"
	"github.com/agentic-research/trisort/internal/octree"
	"github.com/agentic-research/trisort/internal/trisort"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func buildTestTree(t *testing.T) *octree.Tree {
	t.Helper()
	mesh := trisort.Mesh{
		Points: []trisort.Point{
			{1, 1, 1}, {1, 1, 2}, {1, 2, 1}, {1, 2, 2},
			{7.5, 9, 9}, {8.5, 9, 9}, {8, 10, 9},
		},
		Triangles: []trisort.Triangle{{0, 1, 2}, {2, 1, 3}, {4, 5, 6}},
	}
	tree, err := trisort.Build(api.BuildConfig{Levels: 5, BucketLevel: 3}, mesh)
	require.NoError(t, err)
	return tree
}

func TestSaveLoad(t *testing.T) {
	tree := buildTestTree(t)
	path := filepath.Join(t.TempDir(), "index.db")

	require.NoError(t, Save(path, tree, 3))

	got, meta, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Meta{Levels: 5, BucketLevel: 3}, meta)
	assert.True(t, tree.PayloadEqual(got, 3))
	assert.Equal(t, tree.Len(), got.Len())
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, Save(path, buildTestTree(t), 3))
	require.NoError(t, Save(path, octree.NewTree(4), 2))

	got, meta, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Meta{Levels: 4, BucketLevel: 2}, meta)
	assert.Equal(t, 0, got.Len())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing tables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.db")
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec("CREATE TABLE unrelated (id INTEGER)")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		_, _, err = Load(path)
		require.Error(t, err)
		assert.Equal(t, ErrTypeStore, errors.Type(err))
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent.db")
		_, _, err := Load(path)
		require.Error(t, err)
		assert.Equal(t, ErrTypeStore, errors.Type(err))
		assert.NoFileExists(t, path)
	})

	t.Run("missing meta", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nometa.db")
		w, err := NewWriter(path)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, _, err = Load(path)
		require.Error(t, err)
		assert.Equal(t, ErrTypeStore, errors.Type(err))
	})
}
