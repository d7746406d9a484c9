package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// State is an operation's position in its lifecycle:
// Submitted -> Dispatched -> Applying -> Completed | Failed.
type State int32

const (
	StateSubmitted State = iota
	StateDispatched
	StateApplying
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateDispatched:
		return "dispatched"
	case StateApplying:
		return "applying"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether the state is terminal.
func (s State) Done() bool { return s == StateCompleted || s == StateFailed }

// Task is the work an operation applies inside the writer section.
type Task func() (interface{}, error)

// Operation is a handle on an asynchronous mutation.
type Operation struct {
	ID          string
	Kind        string
	Keys        []string // nil for operations that touch every key
	SubmittedAt time.Time

	state atomic.Int32
	done  chan struct{}
	task  Task
	deps  []*Operation

	mu         sync.Mutex
	result     interface{}
	err        error
	finishedAt time.Time
}

func newOperation(id, kind string, keys []string, task Task) *Operation {
	return &Operation{
		ID:          id,
		Kind:        kind,
		Keys:        keys,
		SubmittedAt: time.Now(),
		done:        make(chan struct{}),
		task:        task,
	}
}

func (op *Operation) State() State { return State(op.state.Load()) }

func (op *Operation) setState(s State) { op.state.Store(int32(s)) }

// Done is closed once the operation reaches a terminal state.
func (op *Operation) Done() <-chan struct{} { return op.done }

// Err returns the failure cause of a Failed operation.
func (op *Operation) Err() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.err
}

// Result returns what the task produced, if anything.
func (op *Operation) Result() interface{} {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.result
}

// FinishedAt is zero until the operation is done.
func (op *Operation) FinishedAt() time.Time {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.finishedAt
}

// Wait blocks until the operation finishes or ctx ends. It returns the
// operation's error, or the context's.
func (op *Operation) Wait(ctx context.Context) error {
	select {
	case <-op.done:
		return op.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Global reports whether the operation orders against every key.
func (op *Operation) Global() bool { return op.Keys == nil }

func (op *Operation) finish(result interface{}, err error) {
	op.mu.Lock()
	op.result = result
	op.err = err
	op.finishedAt = time.Now()
	op.mu.Unlock()
	if err != nil {
		op.setState(StateFailed)
	} else {
		op.setState(StateCompleted)
	}
	close(op.done)
}

// Status is a point-in-time view of an operation.
type Status struct {
	ID          string    `json:"id" yaml:"id"`
	Kind        string    `json:"kind" yaml:"kind"`
	Keys        []string  `json:"keys,omitempty" yaml:"keys,omitempty"`
	State       string    `json:"state" yaml:"state"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Status snapshots the operation.
func (op *Operation) Status() Status {
	st := Status{
		ID:          op.ID,
		Kind:        op.Kind,
		Keys:        op.Keys,
		State:       op.State().String(),
		SubmittedAt: op.SubmittedAt,
		FinishedAt:  op.FinishedAt(),
	}
	if err := op.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}
