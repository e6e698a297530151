package memkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritree/kv"
)

func TestGetPutHas(t *testing.T) {
	t.Parallel()

	db := New()
	defer db.Close()

	_, err := db.Get([]byte("missing"))
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))

	ok, err := db.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestBatchWrite(t *testing.T) {
	t.Parallel()

	db := New()
	defer db.Close()

	b := db.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	require.Equal(t, 2, b.Len())
	require.NoError(t, db.Write(b))

	got, err := db.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	b.Reset()
	assert.Equal(t, 0, b.Len())
}

func TestIteratorSnapshot(t *testing.T) {
	t.Parallel()

	db := New()
	defer db.Close()

	require.NoError(t, db.Put([]byte("a"), []byte("1")))
	require.NoError(t, db.Put([]byte("b"), []byte("2")))

	it := db.NewIterator()
	defer it.Release()

	seen := map[string]string{}
	for it.Next() {
		seen[string(it.Key())] = string(it.Value())
	}
	require.NoError(t, it.Error())
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, seen)
}

func TestGetCopies(t *testing.T) {
	t.Parallel()

	db := New()
	defer db.Close()

	require.NoError(t, db.Put([]byte("k"), []byte("abc")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	got[0] = 'z'

	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
