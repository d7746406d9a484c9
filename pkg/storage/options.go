package storage

// StoreOption configures a DocumentStore
type StoreOption func(*DocumentStore)

// WithCacheSize keeps up to n decoded documents in an LRU cache. Zero
// disables the cache.
func WithCacheSize(n int) StoreOption {
	return func(ds *DocumentStore) {
		if n > 0 {
			ds.cache = NewDocumentCache(n)
		} else {
			ds.cache = nil
		}
	}
}

// WithScanBatch sets how many pairs a cursor fetches per round trip
func WithScanBatch(n int) StoreOption {
	return func(ds *DocumentStore) {
		if n > 0 {
			ds.scanBatch = n
		}
	}
}
