package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cachedDoc(key string, pairs ...interface{}) *domain.Document {
	return domain.NewDocument(key, domain.FieldsOf(pairs...))
}

func TestDocumentCacheHitsAndMisses(t *testing.T) {
	cache := NewDocumentCache(10)
	assert.Equal(t, 10, cache.Limit())
	assert.Zero(t, cache.Len())

	cache.Put(cachedDoc("user1", "name", "Alice", "age", 30))
	cache.Put(cachedDoc("post1", "title", "Hello"))

	doc, found := cache.Get("user1")
	require.True(t, found)
	assert.Equal(t, "user1", doc.Key)

	_, found = cache.Get("nonexistent")
	assert.False(t, found)

	hits, misses := cache.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
}

func TestDocumentCacheEviction(t *testing.T) {
	tests := []struct {
		name    string
		touch   string
		evicted string
	}{
		{"oldest goes first", "", "doc1"},
		{"a read refreshes recency", "doc1", "doc2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewDocumentCache(2)
			cache.Put(cachedDoc("doc1"))
			cache.Put(cachedDoc("doc2"))
			if tt.touch != "" {
				cache.Get(tt.touch)
			}
			cache.Put(cachedDoc("doc3"))

			assert.Equal(t, 2, cache.Len())
			_, found := cache.Get(tt.evicted)
			assert.False(t, found)
			_, found = cache.Get("doc3")
			assert.True(t, found)
		})
	}
}

func TestDocumentCacheReplaceRemoveClear(t *testing.T) {
	cache := NewDocumentCache(10)

	cache.Put(cachedDoc("doc", "v", 1))
	cache.Put(cachedDoc("doc", "v", 2))
	assert.Equal(t, 1, cache.Len())

	doc, _ := cache.Get("doc")
	v, _ := doc.Get("v")
	assert.True(t, v.Equal(domain.Int(2)))

	cache.Remove("doc")
	_, found := cache.Get("doc")
	assert.False(t, found)

	cache.Put(cachedDoc("a"))
	cache.Clear()
	assert.Zero(t, cache.Len())
}

func TestDocumentCacheConcurrentUse(t *testing.T) {
	cache := NewDocumentCache(50)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*7+j)%80)
				cache.Put(cachedDoc(key))
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, cache.Len(), 50)
}
