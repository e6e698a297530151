package leveldbkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritree/kv"
)

func TestLevelDBRoundTrip(t *testing.T) {
	t.Parallel()

	db, err := OpenDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("missing"))
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))

	ok, err := db.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestLevelDBBatch(t *testing.T) {
	t.Parallel()

	db, err := OpenDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	b := db.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	require.NoError(t, db.Write(b))

	it := db.NewIterator()
	defer it.Release()
	count := 0
	for it.Next() {
		count++
	}
	require.NoError(t, it.Error())
	assert.Equal(t, 2, count)
}
