// Package storage maps document keys to their serialized fields on top of
// an ordered kv.Store.
package storage

import (
	"errors"
	"fmt"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/kv"
)

const defaultScanBatch = 256

// DocumentStore persists documents keyed by their string key. Documents
// returned by Get and Scan are shared with the cache and must not be
// mutated.
type DocumentStore struct {
	kv        kv.Store
	cache     *DocumentCache
	scanBatch int
}

// NewDocumentStore wraps a kv store.
func NewDocumentStore(store kv.Store, options ...StoreOption) *DocumentStore {
	ds := &DocumentStore{
		kv:        store,
		scanBatch: defaultScanBatch,
	}
	for _, option := range options {
		option(ds)
	}
	return ds
}

// Put stores a document, replacing any previous version.
func (ds *DocumentStore) Put(doc *domain.Document) error {
	if doc == nil {
		return domain.Invalidf("document must not be nil")
	}
	if err := domain.ValidateKey(doc.Key); err != nil {
		return err
	}
	data, err := domain.EncodeFields(doc.Fields)
	if err != nil {
		return domain.Invalidf("failed to encode document %q: %v", doc.Key, err)
	}
	if err := ds.kv.Put([]byte(doc.Key), data); err != nil {
		ds.invalidate(doc.Key)
		return fmt.Errorf("%w: failed to put %q: %w", domain.ErrStorageFault, doc.Key, err)
	}
	if ds.cache != nil {
		ds.cache.Put(doc.Clone())
	}
	return nil
}

// Get returns the document stored under key.
func (ds *DocumentStore) Get(key string) (*domain.Document, error) {
	if err := domain.ValidateKey(key); err != nil {
		return nil, err
	}
	if ds.cache != nil {
		if doc, ok := ds.cache.Get(key); ok {
			return doc, nil
		}
	}
	data, err := ds.kv.Get([]byte(key))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, domain.NotFoundf("document %q", key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get %q: %w", domain.ErrStorageFault, key, err)
	}
	doc, err := decodeDocument(key, data)
	if err != nil {
		return nil, err
	}
	if ds.cache != nil {
		ds.cache.Put(doc)
	}
	return doc, nil
}

// Delete removes the document stored under key.
func (ds *DocumentStore) Delete(key string) error {
	if err := domain.ValidateKey(key); err != nil {
		return err
	}
	ds.invalidate(key)
	err := ds.kv.Delete([]byte(key))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return domain.NotFoundf("document %q", key)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete %q: %w", domain.ErrStorageFault, key, err)
	}
	return nil
}

// Keys returns up to limit keys that sort after the given key.
func (ds *DocumentStore) Keys(after string, limit int) ([]string, error) {
	var from []byte
	if after != "" {
		from = []byte(after)
	}
	pairs, err := ds.kv.Range(from, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list keys: %w", domain.ErrStorageFault, err)
	}
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = string(p.Key)
	}
	return keys, nil
}

// Scan returns a cursor over every document in key order.
func (ds *DocumentStore) Scan() *Cursor {
	return &Cursor{ds: ds}
}

// Flush makes every stored document durable.
func (ds *DocumentStore) Flush() error {
	if err := ds.kv.Flush(); err != nil {
		return fmt.Errorf("%w: flush failed: %w", domain.ErrStorageFault, err)
	}
	return nil
}

// Stats merges cache counters with the engine's own stats.
func (ds *DocumentStore) Stats() map[string]interface{} {
	stats := map[string]interface{}{}
	if reporter, ok := ds.kv.(kv.StatsReporter); ok {
		for k, v := range reporter.Stats() {
			stats[k] = v
		}
	}
	if ds.cache != nil {
		hits, misses := ds.cache.Stats()
		stats["cache_capacity"] = ds.cache.Limit()
		stats["cache_len"] = ds.cache.Len()
		stats["cache_hits"] = hits
		stats["cache_misses"] = misses
	}
	return stats
}

func (ds *DocumentStore) invalidate(key string) {
	if ds.cache != nil {
		ds.cache.Remove(key)
	}
}

func decodeDocument(key string, data []byte) (*domain.Document, error) {
	fields, err := domain.DecodeFields(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %q: %v", domain.ErrStorageFault, key, err)
	}
	return domain.NewDocument(key, fields), nil
}
