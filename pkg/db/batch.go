package db

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adfharrison1/neemo/pkg/coordinator"
	"github.com/adfharrison1/neemo/pkg/domain"
)

// MutationKind is the type of one batch request.
type MutationKind int

const (
	MutationInsert MutationKind = iota + 1
	MutationDelete
)

func (k MutationKind) String() string {
	switch k {
	case MutationInsert:
		return "insert"
	case MutationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mutation is one request of a batch.
type Mutation struct {
	Kind   MutationKind
	Key    string
	Fields *domain.Fields
}

// InsertMutation builds an insert request.
func InsertMutation(key string, fields *domain.Fields) Mutation {
	return Mutation{Kind: MutationInsert, Key: key, Fields: fields}
}

// DeleteMutation builds a delete request.
func DeleteMutation(key string) Mutation {
	return Mutation{Kind: MutationDelete, Key: key}
}

// BatchFailure records why one request of a batch did not apply.
type BatchFailure struct {
	Index int
	Kind  MutationKind
	Key   string
	Err   error
}

func (f BatchFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index int    `json:"index"`
		Kind  string `json:"kind"`
		Key   string `json:"key"`
		Error string `json:"error"`
	}{f.Index, f.Kind.String(), f.Key, f.Err.Error()})
}

func (f BatchFailure) Error() string {
	return fmt.Sprintf("request %d (%s %q): %v", f.Index, f.Kind, f.Key, f.Err)
}

// BatchResult summarizes a batch. Requests apply in order; a failing
// request does not stop the ones after it.
type BatchResult struct {
	Total    int            `json:"total"`
	Applied  int            `json:"applied"`
	Failures []BatchFailure `json:"failures,omitempty"`
}

// Err returns a *BatchError when any request failed.
func (r *BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &BatchError{Result: r}
}

// BatchError reports a partially applied batch. errors.Is matches the
// kinds of the individual failures.
type BatchError struct {
	Result *BatchResult
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Result.Failures))
	for _, f := range e.Result.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("batch partially applied: %d of %d requests failed: %s",
		len(e.Result.Failures), e.Result.Total, strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Result.Failures))
	for i, f := range e.Result.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Batch submits mutations as one operation ordered against every key they
// touch. The operation completes when all requests apply and fails with a
// *BatchError otherwise; its Result is the *BatchResult either way.
func (d *Database) Batch(mutations []Mutation) *coordinator.Operation {
	keys := batchKeys(mutations)
	return d.coord.Submit(KindBatch, keys, func() (interface{}, error) {
		res := d.applyBatch(mutations)
		return res, res.Err()
	})
}

func (d *Database) applyBatch(mutations []Mutation) *BatchResult {
	res := &BatchResult{Total: len(mutations)}
	for i, m := range mutations {
		var err error
		switch m.Kind {
		case MutationInsert:
			err = d.applyInsert(domain.NewDocument(m.Key, m.Fields))
		case MutationDelete:
			err = d.applyDelete(m.Key)
		default:
			err = domain.Invalidf("unknown mutation kind %d", m.Kind)
		}
		if err != nil {
			res.Failures = append(res.Failures, BatchFailure{Index: i, Kind: m.Kind, Key: m.Key, Err: err})
			d.logger.Warnf("[batch] db=%s request %d (%s %q) skipped: %v", d.name, i, m.Kind, m.Key, err)
			continue
		}
		res.Applied++
	}
	return res
}

// batchKeys returns the distinct keys of a batch. An empty batch still
// gets a non-nil slice so it does not act as a barrier.
func batchKeys(mutations []Mutation) []string {
	keys := make([]string, 0, len(mutations))
	seen := make(map[string]struct{}, len(mutations))
	for _, m := range mutations {
		if _, ok := seen[m.Key]; ok {
			continue
		}
		seen[m.Key] = struct{}{}
		keys = append(keys, m.Key)
	}
	return keys
}
