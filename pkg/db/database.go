// Package db assembles one named database: a kv engine, the document store
// on top of it, the in-memory indexes, the query engine and the coordinator
// that orders mutations.
//
// Mutations (Insert, Delete, Batch, Import) return an Operation at once and
// apply asynchronously. Reads run in the coordinator's read section and see
// every mutation that completed before them.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adfharrison1/neemo/pkg/coordinator"
	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/indexing"
	"github.com/adfharrison1/neemo/pkg/kv"
	"github.com/adfharrison1/neemo/pkg/logging"
	"github.com/adfharrison1/neemo/pkg/query"
	"github.com/adfharrison1/neemo/pkg/storage"
)

// Operation kinds.
const (
	KindInsert  = "insert"
	KindDelete  = "delete"
	KindBatch   = "batch"
	KindImport  = "import"
	KindRestore = "restore"
)

// Database is one open store. The fields below coord are only touched
// inside the coordinator's sections.
type Database struct {
	name   string
	dir    string
	opts   Options
	logger logging.Logger
	coord  *coordinator.Coordinator

	kv    kv.Store
	docs  *storage.DocumentStore
	index *indexing.Manager
	query *query.Engine
}

// Open opens the database stored in dir, creating it if needed, and
// rebuilds its indexes from a full scan.
func Open(dir, name string, options ...Option) (*Database, error) {
	o := defaultOptions()
	for _, option := range options {
		option(&o)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create database directory: %w", domain.ErrStorageFault, err)
	}

	d := &Database{
		name:   name,
		dir:    dir,
		opts:   o,
		logger: logging.OrDiscard(o.Logger),
		index:  indexing.NewManager(),
	}
	if err := d.attach(); err != nil {
		return nil, err
	}
	d.coord = coordinator.New(
		coordinator.WithName(name),
		coordinator.WithWorkers(o.Workers),
		coordinator.WithQueueSize(o.QueueSize),
		coordinator.WithRetention(o.Retention),
		coordinator.WithLogger(d.logger),
	)
	return d, nil
}

// attach opens the kv engine and rebuilds the indexes from it.
func (d *Database) attach() error {
	store, err := openKV(d.dir, d.opts)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s engine: %w", domain.ErrStorageFault, d.opts.Engine, err)
	}
	d.kv = store
	d.docs = storage.NewDocumentStore(store, storage.WithCacheSize(d.opts.CacheSize))
	d.query = query.NewEngine(d.docs, d.index)

	start := time.Now()
	if err := d.index.Rebuild(d.docs.Scan()); err != nil {
		store.Close()
		return fmt.Errorf("failed to rebuild indexes: %w", err)
	}
	d.logger.Infof("[db] opened %q (%s engine), indexed %d documents in %v",
		d.name, d.opts.Engine, d.index.Stats()["documents"], time.Since(start))
	return nil
}

func (d *Database) Name() string { return d.name }

func (d *Database) Dir() string { return d.dir }

// Insert stores fields under key, replacing any previous document.
func (d *Database) Insert(key string, fields *domain.Fields) *coordinator.Operation {
	doc := domain.NewDocument(key, fields)
	return d.coord.Submit(KindInsert, []string{key}, func() (interface{}, error) {
		return nil, d.applyInsert(doc)
	})
}

// Delete removes the document under key. Deleting an absent key fails the
// operation with ErrNotFound.
func (d *Database) Delete(key string) *coordinator.Operation {
	return d.coord.Submit(KindDelete, []string{key}, func() (interface{}, error) {
		return nil, d.applyDelete(key)
	})
}

// applyInsert writes the document then moves index entries from the old
// version to the new one. Callers hold the writer section.
func (d *Database) applyInsert(doc *domain.Document) error {
	if err := domain.ValidateKey(doc.Key); err != nil {
		return err
	}
	old, err := d.docs.Get(doc.Key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := d.docs.Put(doc); err != nil {
		return err
	}
	d.index.OnInsert(doc.Key, old, doc)
	return nil
}

func (d *Database) applyDelete(key string) error {
	old, err := d.docs.Get(key)
	if err != nil {
		return err
	}
	if err := d.docs.Delete(key); err != nil {
		return err
	}
	d.index.OnDelete(key, old)
	return nil
}

// Get returns the document stored under key.
func (d *Database) Get(key string) (*domain.Document, error) {
	var doc *domain.Document
	err := d.coord.Read(func() error {
		var err error
		doc, err = d.docs.Get(key)
		return err
	})
	return doc, err
}

// List returns every key in order.
func (d *Database) List() ([]string, error) {
	var keys []string
	err := d.coord.Read(func() error {
		after := ""
		for {
			page, err := d.docs.Keys(after, 512)
			if err != nil {
				return err
			}
			keys = append(keys, page...)
			if len(page) < 512 {
				return nil
			}
			after = page[len(page)-1]
		}
	})
	return keys, err
}

// ListPage returns one page of keys.
func (d *Database) ListPage(opts *domain.PaginationOptions) (*domain.Page, error) {
	if opts == nil {
		opts = domain.DefaultPaginationOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	after, err := opts.AfterKey()
	if err != nil {
		return nil, err
	}

	page := &domain.Page{}
	err = d.coord.Read(func() error {
		keys, err := d.docs.Keys(after, opts.Limit+1)
		if err != nil {
			return err
		}
		if len(keys) > opts.Limit {
			page.HasNext = true
			keys = keys[:opts.Limit]
		}
		page.Keys = keys
		return nil
	})
	if err != nil {
		return nil, err
	}
	if page.Keys == nil {
		page.Keys = []string{}
	}
	if page.HasNext {
		page.NextCursor = domain.EncodeCursor(domain.Cursor{Key: page.Keys[len(page.Keys)-1]})
	}
	return page, nil
}

// QueryEqual returns documents whose field equals value.
func (d *Database) QueryEqual(field string, value domain.Value) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := d.coord.Read(func() error {
		var err error
		docs, err = d.query.Equal(field, value)
		return err
	})
	return docs, err
}

// QueryRange returns documents whose numeric field lies in [low, high].
func (d *Database) QueryRange(field string, low, high float64) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := d.coord.Read(func() error {
		var err error
		docs, err = d.query.Range(field, low, high)
		return err
	})
	return docs, err
}

// Search returns documents containing every token of text.
func (d *Database) Search(text string) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := d.coord.Read(func() error {
		var err error
		docs, err = d.query.Search(text)
		return err
	})
	return docs, err
}

// Aggregate runs sum, count or avg over field.
func (d *Database) Aggregate(field string, op query.Op, pred query.Predicate) (*query.Result, error) {
	var res *query.Result
	err := d.coord.Read(func() error {
		var err error
		res, err = d.query.Aggregate(field, op, pred)
		return err
	})
	return res, err
}

// Verify compares the live indexes with a rebuild from the store.
func (d *Database) Verify() error {
	return d.coord.Read(func() error {
		return d.index.Verify(d.docs.Scan())
	})
}

// Operation looks up a submitted operation.
func (d *Database) Operation(id string) (*coordinator.Operation, bool) {
	return d.coord.Lookup(id)
}

// Drain waits for every operation submitted so far.
func (d *Database) Drain(ctx context.Context) error {
	return d.coord.Drain(ctx)
}

// Flush makes every completed mutation durable.
func (d *Database) Flush() error {
	return d.coord.Read(d.docs.Flush)
}

// Stats gathers coordinator, index and storage counters.
func (d *Database) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"database":    d.name,
		"coordinator": d.coord.Stats(),
	}
	_ = d.coord.Read(func() error {
		stats["index"] = d.index.Stats()
		stats["storage"] = d.docs.Stats()
		return nil
	})
	return stats
}

// Close finishes queued operations, then flushes and closes the engine.
func (d *Database) Close() error {
	d.coord.Close()
	var err error
	if cerr := d.coord.Exclusive(d.kv.Close); cerr != nil {
		err = fmt.Errorf("%w: failed to close %q: %w", domain.ErrStorageFault, d.name, cerr)
	}
	d.logger.Infof("[db] closed %q", d.name)
	return err
}
