// Package coordinator serializes mutations against one database while
// letting callers continue immediately.
//
// Mutations are submitted as Operations and applied by a worker pool. Every
// mutation runs inside an exclusive writer section, so readers never see
// the document store and the indexes disagree. Operations touching the same
// key apply in submission order; operations without keys (imports, restores)
// act as barriers ordered against everything submitted before and after
// them.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/adfharrison1/neemo/pkg/logging"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrClosed fails operations submitted after Close.
var ErrClosed = errors.New("coordinator closed")

const (
	defaultQueueSize = 1024
	defaultRetention = 10 * time.Minute
)

// Coordinator owns the worker pool, the writer section and the operation
// status table of one database.
type Coordinator struct {
	name      string
	workers   int
	queueSize int
	retention time.Duration
	logger    logging.Logger

	// section excludes readers while a mutation applies
	section sync.RWMutex

	queue chan *Operation
	ops   *xsync.MapOf[string, *Operation]

	// submitMu orders dependency linking with enqueueing
	submitMu sync.Mutex
	closed   bool

	// tailsMu guards the last queued operation per key and the last barrier
	tailsMu sync.Mutex
	tails   map[string]*Operation
	barrier *Operation

	applied atomic.Int64
	failed  atomic.Int64

	workerWg  sync.WaitGroup
	janitorWg sync.WaitGroup
	stopChan  chan struct{}
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithName labels log lines and metrics with a database name
func WithName(name string) Option {
	return func(c *Coordinator) { c.name = name }
}

// WithWorkers sets the worker pool size
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize bounds how many operations may wait for a worker. Submit
// blocks while the queue is full.
func WithQueueSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithRetention sets how long finished operations stay queryable
func WithRetention(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.retention = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Coordinator) { c.logger = logging.OrDiscard(logger) }
}

// New starts a coordinator.
func New(options ...Option) *Coordinator {
	c := &Coordinator{
		name:      "default",
		workers:   runtime.GOMAXPROCS(0),
		queueSize: defaultQueueSize,
		retention: defaultRetention,
		logger:    logging.Discard,
		ops:       xsync.NewMapOf[string, *Operation](),
		tails:     make(map[string]*Operation),
		stopChan:  make(chan struct{}),
	}
	for _, option := range options {
		option(c)
	}
	c.queue = make(chan *Operation, c.queueSize)

	for i := 0; i < c.workers; i++ {
		c.workerWg.Add(1)
		go c.worker()
	}
	c.janitorWg.Add(1)
	go c.runJanitor()
	return c
}

// Submit queues task as an operation touching keys and returns at once.
// A nil keys slice orders the operation against every other operation.
func (c *Coordinator) Submit(kind string, keys []string, task Task) *Operation {
	op := newOperation(uuid.NewString(), kind, keys, task)
	metrics.GetOrCreateCounter(c.metricName("neemo_operations_submitted_total", kind, "")).Inc()

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	c.ops.Store(op.ID, op)
	if c.closed {
		op.finish(nil, ErrClosed)
		c.failed.Add(1)
		return op
	}
	op.deps = c.link(op)
	c.queue <- op
	return op
}

// link records op as the newest operation on its keys and returns the
// operations it must wait for.
func (c *Coordinator) link(op *Operation) []*Operation {
	c.tailsMu.Lock()
	defer c.tailsMu.Unlock()

	var deps []*Operation
	seen := make(map[*Operation]struct{})
	add := func(dep *Operation) {
		if dep == nil {
			return
		}
		if _, ok := seen[dep]; !ok {
			seen[dep] = struct{}{}
			deps = append(deps, dep)
		}
	}

	if op.Global() {
		for _, tail := range c.tails {
			add(tail)
		}
		add(c.barrier)
		c.tails = make(map[string]*Operation)
		c.barrier = op
		return deps
	}

	for _, key := range op.Keys {
		if tail, ok := c.tails[key]; ok {
			add(tail)
		} else {
			add(c.barrier)
		}
		c.tails[key] = op
	}
	return deps
}

func (c *Coordinator) unlink(op *Operation) {
	c.tailsMu.Lock()
	defer c.tailsMu.Unlock()
	for _, key := range op.Keys {
		if c.tails[key] == op {
			delete(c.tails, key)
		}
	}
	if c.barrier == op {
		c.barrier = nil
	}
}

func (c *Coordinator) worker() {
	defer c.workerWg.Done()
	for op := range c.queue {
		c.run(op)
	}
}

func (c *Coordinator) run(op *Operation) {
	op.setState(StateDispatched)
	for _, dep := range op.deps {
		<-dep.done
	}
	op.deps = nil

	start := time.Now()
	c.section.Lock()
	op.setState(StateApplying)
	result, err := safeCall(op.task)
	c.section.Unlock()

	state := StateCompleted
	if err != nil {
		state = StateFailed
		c.failed.Add(1)
	} else {
		c.applied.Add(1)
	}
	metrics.GetOrCreateCounter(c.metricName("neemo_operations_total", op.Kind, state.String())).Inc()
	metrics.GetOrCreateHistogram(c.metricName("neemo_operation_duration_seconds", op.Kind, "")).UpdateDuration(start)

	// Logged before finish: once Wait returns the outcome is in the log.
	if err != nil {
		c.logger.Errorf("[coordinator] db=%s op=%s kind=%s keys=%v failed after %v: %v",
			c.name, op.ID, op.Kind, op.Keys, time.Since(start), err)
	} else {
		c.logger.Infof("[coordinator] db=%s op=%s kind=%s keys=%v completed in %v",
			c.name, op.ID, op.Kind, op.Keys, time.Since(start))
	}

	c.unlink(op)
	op.finish(result, err)
}

func safeCall(task Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return task()
}

// Read runs fn while no mutation is applying. Reads may run concurrently
// with each other.
func (c *Coordinator) Read(fn func() error) error {
	c.section.RLock()
	defer c.section.RUnlock()
	return fn()
}

// Exclusive runs fn with readers and writers excluded. It does not wait for
// queued operations; call Drain first for that.
func (c *Coordinator) Exclusive(fn func() error) error {
	c.section.Lock()
	defer c.section.Unlock()
	return fn()
}

// Lookup finds an operation by id. Finished operations are forgotten after
// the retention period.
func (c *Coordinator) Lookup(id string) (*Operation, bool) {
	return c.ops.Load(id)
}

// Drain waits for every operation submitted before the call to finish.
func (c *Coordinator) Drain(ctx context.Context) error {
	var pending []*Operation
	c.ops.Range(func(_ string, op *Operation) bool {
		if !op.State().Done() {
			pending = append(pending, op)
		}
		return true
	})
	for _, op := range pending {
		select {
		case <-op.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Pending counts operations that have not finished.
func (c *Coordinator) Pending() int {
	n := 0
	c.ops.Range(func(_ string, op *Operation) bool {
		if !op.State().Done() {
			n++
		}
		return true
	})
	return n
}

// Stats reports counters for the STATS command.
func (c *Coordinator) Stats() map[string]interface{} {
	return map[string]interface{}{
		"workers":   c.workers,
		"queued":    len(c.queue),
		"pending":   c.Pending(),
		"tracked":   c.ops.Size(),
		"applied":   c.applied.Load(),
		"failed":    c.failed.Load(),
		"retention": c.retention.String(),
	}
}

// Close stops accepting operations, lets workers finish everything already
// queued and stops background work. It is safe to call more than once.
func (c *Coordinator) Close() {
	c.submitMu.Lock()
	if c.closed {
		c.submitMu.Unlock()
		return
	}
	c.closed = true
	close(c.queue)
	c.submitMu.Unlock()

	c.workerWg.Wait()
	close(c.stopChan)
	c.janitorWg.Wait()
}

func (c *Coordinator) runJanitor() {
	defer c.janitorWg.Done()

	interval := c.retention / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.prune(time.Now())
		case <-c.stopChan:
			return
		}
	}
}

// prune forgets operations that finished more than the retention period
// before now.
func (c *Coordinator) prune(now time.Time) int {
	removed := 0
	c.ops.Range(func(id string, op *Operation) bool {
		if op.State().Done() && now.Sub(op.FinishedAt()) > c.retention {
			c.ops.Delete(id)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debugf("[coordinator] db=%s pruned %d finished operations", c.name, removed)
	}
	return removed
}

func (c *Coordinator) metricName(name, kind, state string) string {
	if state == "" {
		return fmt.Sprintf(`%s{db=%q,kind=%q}`, name, c.name, kind)
	}
	return fmt.Sprintf(`%s{db=%q,kind=%q,state=%q}`, name, c.name, kind, state)
}
