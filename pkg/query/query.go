// Package query answers equality, range, full-text and aggregate queries by
// combining the index manager with the document store.
//
// The engine holds no locks of its own; callers run it inside a read
// section that excludes writers.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/indexing"
	"github.com/adfharrison1/neemo/pkg/storage"
)

// Documents is the read side of the document store the engine needs.
type Documents interface {
	Get(key string) (*domain.Document, error)
	Scan() *storage.Cursor
}

type Engine struct {
	docs  Documents
	index *indexing.Manager
}

func NewEngine(docs Documents, index *indexing.Manager) *Engine {
	return &Engine{docs: docs, index: index}
}

// Equal returns the documents whose field equals value, in key order. When
// no document carries the field in the index the engine falls back to a
// full scan comparing values directly.
func (e *Engine) Equal(field string, value domain.Value) ([]*domain.Document, error) {
	if field == "" {
		return nil, domain.Invalidf("field name must not be empty")
	}
	if e.index.HasField(field) {
		return e.fetch(e.index.LookupEquality(field, value))
	}
	return e.scan(Where(field, value))
}

// Range returns documents whose numeric field lies in [low, high], ordered
// by value then key.
func (e *Engine) Range(field string, low, high float64) ([]*domain.Document, error) {
	if field == "" {
		return nil, domain.Invalidf("field name must not be empty")
	}
	if err := validateBounds(low, high); err != nil {
		return nil, err
	}
	return e.fetch(e.index.LookupRange(field, low, high))
}

// Search returns documents containing every token of text, in key order.
func (e *Engine) Search(text string) ([]*domain.Document, error) {
	return e.fetch(e.index.Search(text))
}

// EqualKeys is Equal returning keys only.
func (e *Engine) EqualKeys(field string, value domain.Value) ([]string, error) {
	docs, err := e.Equal(field, value)
	if err != nil {
		return nil, err
	}
	return keysOf(docs), nil
}

// RangeKeys answers from the index alone.
func (e *Engine) RangeKeys(field string, low, high float64) ([]string, error) {
	if err := validateBounds(low, high); err != nil {
		return nil, err
	}
	return e.index.LookupRange(field, low, high), nil
}

func (e *Engine) SearchKeys(text string) []string {
	return e.index.Search(text)
}

// candidates picks the cheapest source of documents for a predicate.
func (e *Engine) candidates(pred Predicate) ([]*domain.Document, error) {
	switch p := pred.(type) {
	case nil:
		return e.scan(nil)
	case equalPredicate:
		return e.Equal(p.field, p.value)
	case rangePredicate:
		return e.Range(p.field, p.low, p.high)
	default:
		return e.scan(pred)
	}
}

// fetch loads the documents the index named. A key the index holds but the
// store lacks means the two have diverged.
func (e *Engine) fetch(keys []string) ([]*domain.Document, error) {
	docs := make([]*domain.Document, 0, len(keys))
	for _, key := range keys {
		doc, err := e.docs.Get(key)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: index references missing document %q", domain.ErrIndexInconsistency, key)
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (e *Engine) scan(pred Predicate) ([]*domain.Document, error) {
	var docs []*domain.Document
	cur := e.docs.Scan()
	for cur.Next() {
		doc := cur.Document()
		if pred == nil || pred.Match(doc) {
			docs = append(docs, doc)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func keysOf(docs []*domain.Document) []string {
	keys := make([]string, len(docs))
	for i, d := range docs {
		keys[i] = d.Key
	}
	return keys
}

// ParseOp accepts sum, count or avg in any case.
func ParseOp(s string) (Op, error) {
	switch op := Op(strings.ToLower(strings.TrimSpace(s))); op {
	case OpSum, OpCount, OpAvg:
		return op, nil
	default:
		return "", domain.Invalidf("unknown aggregate operation %q (want sum, count or avg)", s)
	}
}
