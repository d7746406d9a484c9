package storage

import (
	"fmt"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/kv"
)

// Cursor walks every document in key order. It fetches pairs lazily in
// batches and resumes after the last key it returned, so writes made
// between batches are visible to later batches. A cursor is not safe for
// concurrent use.
type Cursor struct {
	ds    *DocumentStore
	after []byte
	buf   []kv.Pair
	pos   int
	done  bool
	doc   *domain.Document
	err   error
}

// Next advances to the next document. It returns false at the end or on
// error; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	if c.pos >= len(c.buf) {
		if c.done {
			c.doc = nil
			return false
		}
		pairs, err := c.ds.kv.Range(c.after, c.ds.scanBatch)
		if err != nil {
			c.err = fmt.Errorf("%w: scan failed: %w", domain.ErrStorageFault, err)
			return false
		}
		if len(pairs) < c.ds.scanBatch {
			c.done = true
		}
		if len(pairs) == 0 {
			c.doc = nil
			return false
		}
		c.buf = pairs
		c.pos = 0
	}

	p := c.buf[c.pos]
	c.pos++
	c.after = p.Key
	doc, err := decodeDocument(string(p.Key), p.Value)
	if err != nil {
		c.err = err
		return false
	}
	c.doc = doc
	return true
}

// Document returns the document Next moved to.
func (c *Cursor) Document() *domain.Document { return c.doc }

func (c *Cursor) Err() error { return c.err }

// Reset rewinds the cursor to the first key.
func (c *Cursor) Reset() {
	c.after = nil
	c.buf = nil
	c.pos = 0
	c.done = false
	c.doc = nil
	c.err = nil
}
