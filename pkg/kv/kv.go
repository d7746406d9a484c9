// Package kv defines the ordered, byte-keyed store documents persist into.
// Engines live in subpackages: logkv (memtable + write-ahead log + snapshot)
// and sqlitekv (a single SQLite table).
package kv

import "errors"

var (
	// ErrKeyNotFound is returned by Get and Delete for absent keys.
	ErrKeyNotFound = errors.New("kv: key not found")
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("kv: store closed")
)

// Pair is one key/value entry returned by Range.
type Pair struct {
	Key   []byte `msgpack:"k"`
	Value []byte `msgpack:"v"`
}

// Store is an ordered key/value store. Keys compare bytewise.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// Range returns up to limit pairs whose keys sort strictly after the
	// given key, in ascending order. A nil key starts at the first entry.
	Range(after []byte, limit int) ([]Pair, error)
	// Flush makes every acknowledged write durable.
	Flush() error
	Close() error
}

// StatsReporter is implemented by engines that expose internal counters.
type StatsReporter interface {
	Stats() map[string]interface{}
}
