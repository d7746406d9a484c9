// Package kvtest holds the behavioural test suite every kv engine runs.
package kvtest

import (
	"fmt"
	"testing"

	"github.com/adfharrison1/neemo/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener opens a store rooted at dir. Calling it twice with the same dir
// must reopen the same data.
type Opener func(t *testing.T, dir string) kv.Store

// Run exercises the kv.Store contract against an engine.
func Run(t *testing.T, open Opener) {
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, open) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, open) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open) })
	t.Run("RangeOrder", func(t *testing.T) { testRangeOrder(t, open) })
	t.Run("RangePaging", func(t *testing.T) { testRangePaging(t, open) })
	t.Run("Reopen", func(t *testing.T) { testReopen(t, open) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, open) })
}

func testPutGet(t *testing.T, open Opener) {
	store := open(t, t.TempDir())
	defer store.Close()

	require.NoError(t, store.Put([]byte("a"), []byte("1")))
	got, err := store.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	_, err = store.Get([]byte("missing"))
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func testOverwrite(t *testing.T, open Opener) {
	store := open(t, t.TempDir())
	defer store.Close()

	require.NoError(t, store.Put([]byte("k"), []byte("old")))
	require.NoError(t, store.Put([]byte("k"), []byte("new")))
	got, err := store.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)

	pairs, err := store.Range(nil, 10)
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func testDelete(t *testing.T, open Opener) {
	store := open(t, t.TempDir())
	defer store.Close()

	require.NoError(t, store.Put([]byte("k"), []byte("v")))
	require.NoError(t, store.Delete([]byte("k")))
	_, err := store.Get([]byte("k"))
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
	assert.ErrorIs(t, store.Delete([]byte("k")), kv.ErrKeyNotFound)
}

func testRangeOrder(t *testing.T, open Opener) {
	store := open(t, t.TempDir())
	defer store.Close()

	for _, k := range []string{"user3", "user1", "user10", "user2"} {
		require.NoError(t, store.Put([]byte(k), []byte("v-"+k)))
	}

	pairs, err := store.Range(nil, 100)
	require.NoError(t, err)
	var keys []string
	for _, p := range pairs {
		keys = append(keys, string(p.Key))
		assert.Equal(t, "v-"+string(p.Key), string(p.Value))
	}
	assert.Equal(t, []string{"user1", "user10", "user2", "user3"}, keys)

	pairs, err = store.Range([]byte("user10"), 100)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "user2", string(pairs[0].Key))
}

func testRangePaging(t *testing.T, open Opener) {
	store := open(t, t.TempDir())
	defer store.Close()

	for i := 0; i < 25; i++ {
		require.NoError(t, store.Put([]byte(fmt.Sprintf("key%03d", i)), []byte{byte(i)}))
	}

	var after []byte
	seen := 0
	for {
		pairs, err := store.Range(after, 10)
		require.NoError(t, err)
		if len(pairs) == 0 {
			break
		}
		for _, p := range pairs {
			assert.Equal(t, fmt.Sprintf("key%03d", seen), string(p.Key))
			seen++
		}
		after = pairs[len(pairs)-1].Key
	}
	assert.Equal(t, 25, seen)
}

func testReopen(t *testing.T, open Opener) {
	dir := t.TempDir()
	store := open(t, dir)
	require.NoError(t, store.Put([]byte("a"), []byte("1")))
	require.NoError(t, store.Put([]byte("b"), []byte("2")))
	require.NoError(t, store.Delete([]byte("a")))
	require.NoError(t, store.Close())

	store = open(t, dir)
	defer store.Close()
	_, err := store.Get([]byte("a"))
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
	got, err := store.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}

func testClosed(t *testing.T, open Opener) {
	store := open(t, t.TempDir())
	require.NoError(t, store.Close())

	_, err := store.Get([]byte("a"))
	assert.ErrorIs(t, err, kv.ErrClosed)
	assert.ErrorIs(t, store.Put([]byte("a"), []byte("1")), kv.ErrClosed)
}
