package storage

import (
	"fmt"
	"testing"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/kv/logkv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, options ...StoreOption) *DocumentStore {
	t.Helper()
	kvStore, err := logkv.Open(t.TempDir(), logkv.WithCheckpointInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { kvStore.Close() })
	return NewDocumentStore(kvStore, options...)
}

func TestDocumentStore_PutGetDelete(t *testing.T) {
	for _, cacheSize := range []int{0, 16} {
		t.Run(fmt.Sprintf("cache=%d", cacheSize), func(t *testing.T) {
			ds := newTestStore(t, WithCacheSize(cacheSize))

			doc := domain.NewDocument("user1", domain.FieldsOf("name", "Alice", "age", 30))
			require.NoError(t, ds.Put(doc))

			got, err := ds.Get("user1")
			require.NoError(t, err)
			assert.Equal(t, "user1", got.Key)
			assert.True(t, doc.Fields.Equal(got.Fields))
			assert.Equal(t, []string{"name", "age"}, got.Fields.Names())

			require.NoError(t, ds.Delete("user1"))
			_, err = ds.Get("user1")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.ErrorIs(t, ds.Delete("user1"), domain.ErrNotFound)
		})
	}
}

func TestDocumentStore_PutReplaces(t *testing.T) {
	ds := newTestStore(t, WithCacheSize(4))

	require.NoError(t, ds.Put(domain.NewDocument("k", domain.FieldsOf("v", 1))))
	require.NoError(t, ds.Put(domain.NewDocument("k", domain.FieldsOf("w", "x"))))

	got, err := ds.Get("k")
	require.NoError(t, err)
	_, hasV := got.Get("v")
	assert.False(t, hasV)
	w, _ := got.Get("w")
	assert.True(t, w.Equal(domain.String("x")))
}

func TestDocumentStore_CacheIsolatedFromCaller(t *testing.T) {
	ds := newTestStore(t, WithCacheSize(4))
	fields := domain.FieldsOf("v", 1)
	require.NoError(t, ds.Put(domain.NewDocument("k", fields)))

	fields.Set("v", domain.Int(99))
	got, err := ds.Get("k")
	require.NoError(t, err)
	v, _ := got.Get("v")
	assert.True(t, v.Equal(domain.Int(1)))
}

func TestDocumentStore_InvalidKey(t *testing.T) {
	ds := newTestStore(t)
	assert.ErrorIs(t, ds.Put(domain.NewDocument("", nil)), domain.ErrInvalidArgument)
	_, err := ds.Get("")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.ErrorIs(t, ds.Put(nil), domain.ErrInvalidArgument)
}

func TestDocumentStore_ScanAcrossBatches(t *testing.T) {
	ds := newTestStore(t, WithScanBatch(3))
	for i := 0; i < 10; i++ {
		require.NoError(t, ds.Put(domain.NewDocument(fmt.Sprintf("doc%02d", i), domain.FieldsOf("n", i))))
	}

	cur := ds.Scan()
	var keys []string
	for cur.Next() {
		keys = append(keys, cur.Document().Key)
	}
	require.NoError(t, cur.Err())
	require.Len(t, keys, 10)
	assert.Equal(t, "doc00", keys[0])
	assert.Equal(t, "doc09", keys[9])

	cur.Reset()
	require.True(t, cur.Next())
	assert.Equal(t, "doc00", cur.Document().Key)
}

func TestDocumentStore_ScanEmpty(t *testing.T) {
	ds := newTestStore(t)
	cur := ds.Scan()
	assert.False(t, cur.Next())
	assert.NoError(t, cur.Err())
	assert.Nil(t, cur.Document())
}

func TestDocumentStore_Keys(t *testing.T) {
	ds := newTestStore(t)
	for _, k := range []string{"c", "a", "b", "d"} {
		require.NoError(t, ds.Put(domain.NewDocument(k, nil)))
	}

	keys, err := ds.Keys("", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	keys, err = ds.Keys("b", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, keys)
}

func TestDocumentStore_Stats(t *testing.T) {
	ds := newTestStore(t, WithCacheSize(8))
	require.NoError(t, ds.Put(domain.NewDocument("a", nil)))
	_, err := ds.Get("a")
	require.NoError(t, err)

	stats := ds.Stats()
	assert.Equal(t, "log", stats["engine"])
	assert.Equal(t, 8, stats["cache_capacity"])
	assert.Equal(t, int64(1), stats["cache_hits"])
}
