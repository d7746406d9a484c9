package storage

import (
	"container/list"
	"sync"

	"github.com/adfharrison1/neemo/pkg/domain"
)

// DocumentCache keeps up to limit decoded documents, evicting the least
// recently used one when full. It is safe for concurrent use.
type DocumentCache struct {
	mu      sync.Mutex
	limit   int
	order   *list.List // front is most recently used; values are *domain.Document
	entries map[string]*list.Element
	hits    int64
	misses  int64
}

// NewDocumentCache creates a cache holding at most limit documents.
func NewDocumentCache(limit int) *DocumentCache {
	return &DocumentCache{
		limit:   limit,
		order:   list.New(),
		entries: make(map[string]*list.Element, limit),
	}
}

// Get returns the cached document for key and marks it recently used.
func (c *DocumentCache) Get(key string) (*domain.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*domain.Document), true
}

// Put caches doc under its key, replacing an older version.
func (c *DocumentCache) Put(doc *domain.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[doc.Key]; ok {
		el.Value = doc
		c.order.MoveToFront(el)
		return
	}
	c.entries[doc.Key] = c.order.PushFront(doc)
	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		delete(c.entries, oldest.Value.(*domain.Document).Key)
		c.order.Remove(oldest)
	}
}

// Remove drops key from the cache.
func (c *DocumentCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

// Clear empties the cache. Hit and miss counters are kept.
func (c *DocumentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element, c.limit)
}

func (c *DocumentCache) Limit() int { return c.limit }

func (c *DocumentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit and miss counts.
func (c *DocumentCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
