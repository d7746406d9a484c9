// Package indexing maintains the in-memory secondary indexes derived from
// the document store: per-field equality buckets, a sorted numeric index per
// field for range scans, and an inverted token index for full-text search.
//
// Indexes are never persisted. They are rebuilt from a full scan when a
// database opens and kept current by OnInsert and OnDelete.
//
// A Manager is not safe for concurrent use. Callers serialize writers and
// exclude readers while a writer runs.
package indexing

import (
	"math"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/google/btree"
)

const rangeDegree = 16

// rangeItem orders a field's numeric values, with the document key breaking
// ties so every (value, key) pair is unique.
type rangeItem struct {
	num float64
	key string
}

func lessRangeItem(a, b rangeItem) bool {
	if a.num != b.num {
		return a.num < b.num
	}
	return a.key < b.key
}

// Scanner yields documents one at a time, as storage.Cursor does.
type Scanner interface {
	Next() bool
	Document() *domain.Document
	Err() error
}

// Manager owns every index of one database.
type Manager struct {
	equality map[string]map[string]keySet // field -> canonical value -> keys
	ranges   map[string]*btree.BTreeG[rangeItem]
	text     map[string]keySet // token -> keys
	docs     int
}

// NewManager creates an empty index manager.
func NewManager() *Manager {
	m := &Manager{}
	m.reset()
	return m
}

func (m *Manager) reset() {
	m.equality = make(map[string]map[string]keySet)
	m.ranges = make(map[string]*btree.BTreeG[rangeItem])
	m.text = make(map[string]keySet)
	m.docs = 0
}

// Rebuild discards every index and re-derives them from src. Running it
// twice over the same documents yields identical indexes.
func (m *Manager) Rebuild(src Scanner) error {
	m.reset()
	for src.Next() {
		doc := src.Document()
		m.OnInsert(doc.Key, nil, doc)
	}
	return src.Err()
}

// OnInsert updates the indexes after doc replaced old under key. old is nil
// when the key was absent. Entries old held that doc no longer holds are
// retracted before new ones are added.
func (m *Manager) OnInsert(key string, old, doc *domain.Document) {
	var oldFields, newFields *domain.Fields
	if old != nil {
		oldFields = old.Fields
	} else {
		m.docs++
	}
	if doc != nil {
		newFields = doc.Fields
	}

	oldFields.Range(func(name string, ov domain.Value) bool {
		if nv, ok := newFields.Get(name); !ok || !nv.Equal(ov) {
			m.retractValue(key, name, ov)
		}
		return true
	})
	newFields.Range(func(name string, nv domain.Value) bool {
		if ov, ok := oldFields.Get(name); !ok || !ov.Equal(nv) {
			m.addValue(key, name, nv)
		}
		return true
	})

	oldTokens := tokensOf(oldFields)
	newTokens := tokensOf(newFields)
	for tok := range oldTokens {
		if _, keep := newTokens[tok]; !keep {
			m.removeToken(tok, key)
		}
	}
	for tok := range newTokens {
		if _, had := oldTokens[tok]; !had {
			m.addToken(tok, key)
		}
	}
}

// OnDelete retracts every entry old contributed under key.
func (m *Manager) OnDelete(key string, old *domain.Document) {
	if old == nil {
		return
	}
	old.Fields.Range(func(name string, v domain.Value) bool {
		m.retractValue(key, name, v)
		return true
	})
	for tok := range tokensOf(old.Fields) {
		m.removeToken(tok, key)
	}
	m.docs--
}

// LookupEquality returns the sorted keys whose field equals value.
func (m *Manager) LookupEquality(field string, value domain.Value) []string {
	bucket, ok := m.equality[field][value.Key()]
	if !ok {
		return nil
	}
	return bucket.sorted()
}

// HasField reports whether any indexed document carries field.
func (m *Manager) HasField(field string) bool {
	return len(m.equality[field]) > 0
}

// LookupRange returns the keys whose numeric field value lies in
// [low, high], ordered by value and then key.
func (m *Manager) LookupRange(field string, low, high float64) []string {
	tree, ok := m.ranges[field]
	if !ok || math.IsNaN(low) || math.IsNaN(high) || low > high {
		return nil
	}
	var keys []string
	tree.AscendGreaterOrEqual(rangeItem{num: low}, func(it rangeItem) bool {
		if it.num > high {
			return false
		}
		keys = append(keys, it.key)
		return true
	})
	return keys
}

// LookupText returns the sorted keys whose text fields contain token. The
// token is normalized the same way indexed text is.
func (m *Manager) LookupText(token string) []string {
	tokens := Tokenize(token)
	if len(tokens) != 1 {
		return nil
	}
	return m.text[tokens[0]].sorted()
}

// Search tokenizes query and intersects the per-token key sets. A query
// without tokens matches nothing.
func (m *Manager) Search(query string) []string {
	tokens := uniqueTokens(query)
	if len(tokens) == 0 {
		return nil
	}
	sets := make([]keySet, 0, len(tokens))
	for _, tok := range tokens {
		set, ok := m.text[tok]
		if !ok {
			return nil
		}
		sets = append(sets, set)
	}
	return intersect(sets)
}

// Stats summarizes index sizes.
func (m *Manager) Stats() map[string]int {
	equalityEntries, rangeEntries := 0, 0
	for _, buckets := range m.equality {
		for _, keys := range buckets {
			equalityEntries += len(keys)
		}
	}
	for _, tree := range m.ranges {
		rangeEntries += tree.Len()
	}
	return map[string]int{
		"documents":        m.docs,
		"fields":           len(m.equality),
		"equality_entries": equalityEntries,
		"range_fields":     len(m.ranges),
		"range_entries":    rangeEntries,
		"tokens":           len(m.text),
	}
}

func (m *Manager) addValue(key, field string, v domain.Value) {
	buckets, ok := m.equality[field]
	if !ok {
		buckets = make(map[string]keySet)
		m.equality[field] = buckets
	}
	canonical := v.Key()
	bucket, ok := buckets[canonical]
	if !ok {
		bucket = make(keySet)
		buckets[canonical] = bucket
	}
	bucket[key] = struct{}{}

	if num, ok := v.Float64(); ok && !math.IsNaN(num) {
		tree, ok := m.ranges[field]
		if !ok {
			tree = btree.NewG(rangeDegree, lessRangeItem)
			m.ranges[field] = tree
		}
		tree.ReplaceOrInsert(rangeItem{num: num, key: key})
	}
}

func (m *Manager) retractValue(key, field string, v domain.Value) {
	if buckets, ok := m.equality[field]; ok {
		canonical := v.Key()
		if bucket, ok := buckets[canonical]; ok {
			delete(bucket, key)
			if len(bucket) == 0 {
				delete(buckets, canonical)
			}
		}
		if len(buckets) == 0 {
			delete(m.equality, field)
		}
	}

	if num, ok := v.Float64(); ok {
		if tree, ok := m.ranges[field]; ok {
			tree.Delete(rangeItem{num: num, key: key})
			if tree.Len() == 0 {
				delete(m.ranges, field)
			}
		}
	}
}

func (m *Manager) addToken(tok, key string) {
	set, ok := m.text[tok]
	if !ok {
		set = make(keySet)
		m.text[tok] = set
	}
	set[key] = struct{}{}
}

func (m *Manager) removeToken(tok, key string) {
	if set, ok := m.text[tok]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(m.text, tok)
		}
	}
}

// tokensOf collects the distinct tokens of a document's top-level string
// fields. Arrays and nested objects are not tokenized.
func tokensOf(fields *domain.Fields) map[string]struct{} {
	tokens := make(map[string]struct{})
	fields.Range(func(_ string, v domain.Value) bool {
		if s, ok := v.AsString(); ok {
			for _, tok := range Tokenize(s) {
				tokens[tok] = struct{}{}
			}
		}
		return true
	})
	return tokens
}
