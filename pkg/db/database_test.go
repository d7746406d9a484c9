package db

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adfharrison1/neemo/pkg/coordinator"
	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/kv/logkv"
	"github.com/adfharrison1/neemo/pkg/logging"
	"github.com/adfharrison1/neemo/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, options ...Option) *Database {
	t.Helper()
	opts := append([]Option{WithWorkers(4), WithCheckpointInterval(0)}, options...)
	d, err := Open(t.TempDir(), "test", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func wait(t *testing.T, op *coordinator.Operation) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := op.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

func mustInsert(t *testing.T, d *Database, key string, pairs ...interface{}) {
	t.Helper()
	require.NoError(t, wait(t, d.Insert(key, domain.FieldsOf(pairs...))))
}

// logBuffer collects log output written from worker goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func field(doc *domain.Document, name string) domain.Value {
	v, _ := doc.Get(name)
	return v
}

func docKeys(docs []*domain.Document) []string {
	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = doc.Key
	}
	return out
}

func TestUserScenario(t *testing.T) {
	d := openTestDB(t)

	mustInsert(t, d, "user1", "name", "John Doe", "age", 30)

	doc, err := d.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, domain.String("John Doe"), field(doc, "name"))
	assert.Equal(t, domain.Int(30), field(doc, "age"))

	docs, err := d.QueryEqual("name", domain.String("John Doe"))
	require.NoError(t, err)
	assert.Equal(t, []string{"user1"}, docKeys(docs))

	docs, err = d.QueryRange("age", 25, 35)
	require.NoError(t, err)
	assert.Equal(t, []string{"user1"}, docKeys(docs))

	require.NoError(t, wait(t, d.Delete("user1")))

	_, err = d.Get("user1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, err = d.QueryEqual("name", domain.String("John Doe"))
	require.NoError(t, err)
	assert.Empty(t, docs)
	require.NoError(t, d.Verify())
}

func TestDeleteMissingKeyFails(t *testing.T) {
	d := openTestDB(t)
	op := d.Delete("ghost")
	err := wait(t, op)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, coordinator.StateFailed, op.State())
}

func TestInsertEmptyKeyFails(t *testing.T) {
	d := openTestDB(t)
	err := wait(t, d.Insert("", domain.FieldsOf("a", 1)))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestReinsertReplacesIndexEntries(t *testing.T) {
	d := openTestDB(t)
	mustInsert(t, d, "k", "color", "red", "size", 3, "note", "bright red paint")
	mustInsert(t, d, "k", "color", "blue")

	docs, err := d.QueryEqual("color", domain.String("red"))
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = d.QueryRange("size", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = d.Search("paint")
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = d.QueryEqual("color", domain.String("blue"))
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, docKeys(docs))
	require.NoError(t, d.Verify())
}

func TestSameKeyLastWriterWins(t *testing.T) {
	d := openTestDB(t, WithWorkers(8))

	var last *coordinator.Operation
	for i := 0; i < 100; i++ {
		last = d.Insert("hot", domain.FieldsOf("n", i))
	}
	require.NoError(t, wait(t, last))

	doc, err := d.Get("hot")
	require.NoError(t, err)
	assert.Equal(t, domain.Int(99), field(doc, "n"))

	docs, err := d.QueryRange("n", 0, 98)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestConcurrentReadersSeeConsistentIndexes(t *testing.T) {
	d := openTestDB(t, WithWorkers(8))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var mismatch error
	var mismatchOnce sync.Once
	for r := 0; r < 3; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				docs, err := d.QueryEqual("group", domain.String("even"))
				if err != nil {
					mismatchOnce.Do(func() { mismatch = err })
					return
				}
				for _, doc := range docs {
					if !field(doc, "group").Equal(domain.String("even")) {
						mismatchOnce.Do(func() { mismatch = fmt.Errorf("%s holds %s", doc.Key, field(doc, "group")) })
						return
					}
				}
			}
		}()
	}

	rng := rand.New(rand.NewSource(7))
	var ops []*coordinator.Operation
	for i := 0; i < 300; i++ {
		key := fmt.Sprintf("k%02d", rng.Intn(20))
		group := "odd"
		if rng.Intn(2) == 0 {
			group = "even"
		}
		if rng.Intn(5) == 0 {
			ops = append(ops, d.Delete(key))
			continue
		}
		ops = append(ops, d.Insert(key, domain.FieldsOf("group", group, "n", i)))
	}
	for _, op := range ops {
		_ = wait(t, op)
	}
	close(stop)
	wg.Wait()

	require.NoError(t, mismatch)
	require.NoError(t, d.Verify())
}

func TestIndexesRebuiltOnReopen(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(dir, "reopen", WithCheckpointInterval(0))
	require.NoError(t, err)
	mustInsert(t, d, "a", "city", "Oslo", "pop", 700000)
	mustInsert(t, d, "b", "city", "Bergen", "pop", 285000)
	require.NoError(t, d.Close())

	d, err = Open(dir, "reopen", WithCheckpointInterval(0))
	require.NoError(t, err)
	defer d.Close()

	docs, err := d.QueryEqual("city", domain.String("Bergen"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, docKeys(docs))

	docs, err = d.QueryRange("pop", 500000, 1e6)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, docKeys(docs))

	keys, err := d.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestListPage(t *testing.T) {
	d := openTestDB(t)
	for i := 0; i < 5; i++ {
		mustInsert(t, d, fmt.Sprintf("doc%d", i), "i", i)
	}

	page, err := d.ListPage(&domain.PaginationOptions{Limit: 2, MaxLimit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc0", "doc1"}, page.Keys)
	require.True(t, page.HasNext)

	page, err = d.ListPage(&domain.PaginationOptions{After: page.NextCursor, Limit: 2, MaxLimit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc2", "doc3"}, page.Keys)

	page, err = d.ListPage(&domain.PaginationOptions{After: page.NextCursor, Limit: 2, MaxLimit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc4"}, page.Keys)
	assert.False(t, page.HasNext)
	assert.Empty(t, page.NextCursor)
}

func TestAggregateThroughDatabase(t *testing.T) {
	d := openTestDB(t)
	mustInsert(t, d, "a", "dept", "eng", "salary", 100)
	mustInsert(t, d, "b", "dept", "eng", "salary", 150.5)
	mustInsert(t, d, "c", "dept", "ops", "salary", "n/a")

	res, err := d.Aggregate("salary", query.OpSum, nil)
	require.NoError(t, err)
	assert.InDelta(t, 250.5, res.Value().(query.Number).Float64(), 1e-9)

	res, err = d.Aggregate("salary", query.OpCount, query.Where("dept", domain.String("eng")))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Value())

	res, err = d.Aggregate("missing", query.OpAvg, nil)
	require.NoError(t, err)
	assert.True(t, res.NoData)

	_, err = d.QueryRange("salary", 10, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSQLiteEngine(t *testing.T) {
	d := openTestDB(t, WithEngine(EngineSQLite))
	mustInsert(t, d, "user1", "name", "John Doe", "tags", []interface{}{"a", "b"})

	doc, err := d.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, domain.String("John Doe"), field(doc, "name"))

	docs, err := d.Search("john")
	require.NoError(t, err)
	assert.Equal(t, []string{"user1"}, docKeys(docs))
	require.NoError(t, d.Flush())
}

func TestStats(t *testing.T) {
	d := openTestDB(t)
	mustInsert(t, d, "a", "x", 1)

	stats := d.Stats()
	assert.Equal(t, "test", stats["database"])
	assert.Contains(t, stats, "coordinator")
	assert.Equal(t, 1, stats["index"].(map[string]int)["documents"])
}

func TestOperationLookup(t *testing.T) {
	d := openTestDB(t)
	op := d.Insert("a", domain.FieldsOf("x", 1))
	require.NoError(t, wait(t, op))

	found, ok := d.Operation(op.ID)
	require.True(t, ok)
	assert.Equal(t, KindInsert, found.Kind)
	assert.Equal(t, coordinator.StateCompleted, found.State())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, d.Drain(ctx))
}

func TestFailedCheckpointKeepsIndexesConsistent(t *testing.T) {
	d := openTestDB(t, WithMaxWALSize(1))
	mustInsert(t, d, "a", "age", 30)

	blocker := filepath.Join(d.Dir(), logkv.SnapshotFile+".tmp")
	require.NoError(t, os.Mkdir(blocker, 0755))
	t.Cleanup(func() { os.Remove(blocker) })

	mustInsert(t, d, "b", "age", 30)
	docs, err := d.QueryEqual("age", domain.Int(30))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, docKeys(docs))
	require.NoError(t, d.Verify())

	require.NoError(t, wait(t, d.Delete("a")))
	docs, err = d.QueryEqual("age", domain.Int(30))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, docKeys(docs))
	assert.NoError(t, d.Verify())
}

func TestOperationOutcomesAreLogged(t *testing.T) {
	var out logBuffer
	d := openTestDB(t, WithLogger(logging.New(&out, logging.LevelInfo)))

	ok := d.Insert("user1", domain.FieldsOf("name", "John Doe"))
	require.NoError(t, wait(t, ok))
	missing := d.Delete("ghost")
	require.Error(t, wait(t, missing))

	log := out.String()
	assert.Contains(t, log, fmt.Sprintf("op=%s kind=insert keys=[user1] completed", ok.ID))
	assert.Contains(t, log, fmt.Sprintf("op=%s kind=delete keys=[ghost] failed", missing.ID))
}
