package octree

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	b := NewBuilder(5)
	require.NoError(t, b.Insert(Address{Level: 2, Offset: Offset{0, 1, 2}}, 4, 4, 9))
	require.NoError(t, b.Insert(Address{Level: 2, Offset: Offset{7, 7, 7}}, 1<<30))
	require.NoError(t, b.Insert(Address{Level: 2, Offset: Offset{3, 0, 0}}))
	tree := b.Tree()

	var buf bytes.Buffer
	n, err := tree.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	got, err := ReadTree(&buf)
	require.NoError(t, err)
	assert.True(t, tree.PayloadEqual(got, 2))
	assert.Equal(t, tree.Len(), got.Len())

	empty, _ := got.GetNode(2, Offset{3, 0, 0})
	assert.Empty(t, empty.TriIDs)
}

func TestCodec_EmptyTree(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewTree(3).WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadTree(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Levels())
	assert.Equal(t, 0, got.Len())
}

func TestCodec_Errors(t *testing.T) {
	b := NewBuilder(3)
	require.NoError(t, b.Insert(Address{Level: 1, Offset: Offset{1, 1, 1}}, 5))
	var buf bytes.Buffer
	_, err := b.Tree().WriteTo(&buf)
	require.NoError(t, err)
	good := buf.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[0] ^= 0xff
		_, err := ReadTree(bytes.NewReader(bad))
		require.Error(t, err)
		assert.Equal(t, ErrTypeCodec, errors.Type(err))
	})

	t.Run("bad version", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[4] = 9
		_, err := ReadTree(bytes.NewReader(bad))
		require.Error(t, err)
		assert.Equal(t, ErrTypeCodec, errors.Type(err))
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := ReadTree(bytes.NewReader(good[:len(good)-1]))
		require.Error(t, err)
		assert.Equal(t, ErrTypeCodec, errors.Type(err))
	})

	t.Run("short header", func(t *testing.T) {
		_, err := ReadTree(bytes.NewReader(good[:8]))
		require.Error(t, err)
	})

	t.Run("oversized bitmap length", func(t *testing.T) {
		bad := binary.AppendUvarint(bytes.Clone(good[:ShardHeaderSize]), 1<<62)
		_, err := ReadTree(bytes.NewReader(bad))
		require.Error(t, err)
		assert.Equal(t, ErrTypeCodec, errors.Type(err))
	})

	t.Run("reference out of range", func(t *testing.T) {
		raw := binary.AppendUvarint(binary.AppendUvarint(nil, 1), math.MaxUint64)
		_, err := DecodeRefs(raw)
		require.Error(t, err)
		assert.Equal(t, ErrTypeCodec, errors.Type(err))
	})
}

func TestCodec_RejectsUnclosedTrees(t *testing.T) {
	encode := func(t *testing.T, tree *Tree) []byte {
		t.Helper()
		var buf bytes.Buffer
		_, err := tree.WriteTo(&buf)
		require.NoError(t, err)
		return buf.Bytes()
	}

	tests := []struct {
		name string
		fill func(tree *Tree)
	}{
		{"orphan node", func(tree *Tree) { tree.exists[1].Add(5) }},
		{"missing grandparent", func(tree *Tree) {
			tree.exists[3].Add(0)
			tree.exists[1].Add(5)
		}},
		{"root code not zero", func(tree *Tree) { tree.exists[3].Add(1) }},
		{"code outside domain", func(tree *Tree) {
			tree.exists[3].Add(0)
			tree.exists[2].Add(0)
			tree.exists[1].Add(64)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree := NewTree(3)
			tc.fill(tree)
			_, err := ReadTree(bytes.NewReader(encode(t, tree)))
			require.Error(t, err)
			assert.Equal(t, ErrTypeCodec, errors.Type(err))
		})
	}
}

func TestRefs_RoundTrip(t *testing.T) {
	refs := []int{0, 3, 3, 127, 128, 1 << 40}
	got, err := DecodeRefs(AppendRefs(nil, refs))
	require.NoError(t, err)
	assert.Equal(t, refs, got)

	got, err = DecodeRefs(AppendRefs(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}
