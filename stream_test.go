package veritree

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s *Stream) ([]string, []ValueRef) {
	t.Helper()

	var keys []string
	var refs []ValueRef
	for s.Next(context.Background()) {
		keys = append(keys, string(s.Key()))
		refs = append(refs, s.ValueRef())
	}
	require.NoError(t, s.Err())
	return keys, refs
}

func TestRangeAcrossSiblings(t *testing.T) {
	t.Parallel()

	tree, refs := setup(t, WithArity(4), WithAlpha(0.25))

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		putKey(t, tree, refs, k, "v-"+k)
	}
	require.Equal(t, 2, tree.Depth(), "five keys at arity 4 must have split")

	s, err := tree.Range(context.Background(), &lexCmd{key: []byte("a")})
	require.NoError(t, err)

	keys, got := collect(t, s)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, keys)
	assert.Equal(t, []ValueRef{1, 2, 3, 4, 5}, got)
}

func TestRangeFromMiddle(t *testing.T) {
	t.Parallel()

	tree, refs := setup(t, WithArity(4), WithAlpha(0.25))

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		putKey(t, tree, refs, k, "v")
	}

	s, err := tree.Range(context.Background(), &lexCmd{key: []byte("c")})
	require.NoError(t, err)
	keys, _ := collect(t, s)
	assert.Equal(t, []string{"c", "d", "e"}, keys)

	// A missing start key begins at its insertion point.
	s, err = tree.Range(context.Background(), &lexCmd{key: []byte("bb")})
	require.NoError(t, err)
	keys, _ = collect(t, s)
	assert.Equal(t, []string{"c", "d", "e"}, keys)
}

func TestRangeEmptyTree(t *testing.T) {
	t.Parallel()

	tree, _ := setup(t)

	s, err := tree.Range(context.Background(), &lexCmd{key: []byte("a")})
	require.NoError(t, err)
	assert.False(t, s.Next(context.Background()))
	assert.NoError(t, s.Err())
}

func TestRangeLargeScan(t *testing.T) {
	t.Parallel()

	tree, refs := setup(t, WithArity(4), WithAlpha(0.25))

	const n = 100
	for i := 0; i < n; i++ {
		putKey(t, tree, refs, fmt.Sprintf("key%04d", i*61%n), "v")
	}

	s, err := tree.Range(context.Background(), &lexCmd{key: []byte("key0000")})
	require.NoError(t, err)
	keys, _ := collect(t, s)
	require.Len(t, keys, n)
	for i, k := range keys {
		assert.Equal(t, fmt.Sprintf("key%04d", i), k)
	}

	// A scan from past the last key is empty.
	s, err = tree.Range(context.Background(), &lexCmd{key: []byte("zzz")})
	require.NoError(t, err)
	keys, _ = collect(t, s)
	assert.Empty(t, keys)
}

func TestRangeCancelStopsSiblingReads(t *testing.T) {
	t.Parallel()

	tree, refs := setup(t, WithArity(4), WithAlpha(0.25))

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		putKey(t, tree, refs, k, "v")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s, err := tree.Range(ctx, &lexCmd{key: []byte("a")})
	require.NoError(t, err)

	// Drain the first leaf, then cancel before the sibling hop.
	require.True(t, s.Next(ctx))
	require.True(t, s.Next(ctx))
	require.True(t, s.Next(ctx))
	cancel()

	assert.False(t, s.Next(ctx))
	assert.ErrorIs(t, s.Err(), context.Canceled)
}

func TestRangeDoesNotBlockWriters(t *testing.T) {
	t.Parallel()

	tree, refs := setup(t, WithArity(4), WithAlpha(0.25))

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		putKey(t, tree, refs, k, "v")
	}

	s, err := tree.Range(context.Background(), &lexCmd{key: []byte("a")})
	require.NoError(t, err)

	// The stream holds no lock between yields, so a writer proceeds while
	// the scan is mid-flight.
	require.True(t, s.Next(context.Background()))
	putKey(t, tree, refs, "f", "v")
	for s.Next(context.Background()) {
	}
	require.NoError(t, s.Err())
}
