package query

import (
	"encoding/json"

	"github.com/adfharrison1/neemo/pkg/domain"
)

// Op is an aggregate operation.
type Op string

const (
	OpSum   Op = "sum"
	OpCount Op = "count"
	OpAvg   Op = "avg"
)

// Result reports an aggregation. Matched counts documents the predicate
// selected, Present those carrying the field and Numeric those whose field
// value coerced to a number.
type Result struct {
	Field   string  `json:"field"`
	Op      Op      `json:"op"`
	Matched int     `json:"matched"`
	Present int     `json:"present"`
	Numeric int     `json:"numeric"`
	Sum     Number  `json:"sum"`
	Avg     float64 `json:"-"`
	// NoData is set for avg when no document contributed a numeric value.
	NoData bool `json:"no_data"`
}

// Value is the aggregate's answer: the count, the sum, the average, or nil
// for avg without data.
func (r *Result) Value() interface{} {
	switch r.Op {
	case OpCount:
		return r.Present
	case OpSum:
		return r.Sum
	default:
		if r.NoData {
			return nil
		}
		return r.Avg
	}
}

func (r *Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		*plain
		Avg   *float64    `json:"avg,omitempty"`
		Value interface{} `json:"value"`
	}{
		plain: (*plain)(r),
		Avg:   r.avgPtr(),
		Value: r.Value(),
	})
}

func (r *Result) avgPtr() *float64 {
	if r.Op != OpAvg || r.NoData {
		return nil
	}
	avg := r.Avg
	return &avg
}

// Aggregate computes op over field for every document pred selects (all
// documents when pred is nil). Non-numeric and missing values are skipped
// by sum and avg; count counts documents where the field is present.
func (e *Engine) Aggregate(field string, op Op, pred Predicate) (*Result, error) {
	if field == "" {
		return nil, domain.Invalidf("field name must not be empty")
	}
	op, err := ParseOp(string(op))
	if err != nil {
		return nil, err
	}
	docs, err := e.candidates(pred)
	if err != nil {
		return nil, err
	}

	res := &Result{Field: field, Op: op, Matched: len(docs)}
	for _, doc := range docs {
		v, ok := doc.Get(field)
		if !ok {
			continue
		}
		res.Present++
		if num, ok := toNumeric(v); ok {
			res.Numeric++
			res.Sum = res.Sum.add(num)
		}
	}
	if op == OpAvg {
		if res.Numeric == 0 {
			res.NoData = true
		} else {
			res.Avg = res.Sum.Float64() / float64(res.Numeric)
		}
	}
	return res, nil
}
