package query

import (
	"fmt"
	"math"

	"github.com/adfharrison1/neemo/pkg/domain"
)

// Predicate selects the documents an aggregation runs over.
type Predicate interface {
	Match(doc *domain.Document) bool
	String() string
}

// Where matches documents whose field equals value. Aggregations over it
// use the equality index.
func Where(field string, value domain.Value) Predicate {
	return equalPredicate{field: field, value: value}
}

// Between matches documents whose numeric field lies in [low, high].
// Aggregations over it use the range index.
func Between(field string, low, high float64) Predicate {
	return rangePredicate{field: field, low: low, high: high}
}

// Func adapts an arbitrary function; aggregations over it scan every
// document.
func Func(desc string, fn func(*domain.Document) bool) Predicate {
	return funcPredicate{desc: desc, fn: fn}
}

type equalPredicate struct {
	field string
	value domain.Value
}

func (p equalPredicate) Match(doc *domain.Document) bool {
	v, ok := doc.Get(p.field)
	return ok && v.Equal(p.value)
}

func (p equalPredicate) String() string { return fmt.Sprintf("%s = %s", p.field, p.value) }

type rangePredicate struct {
	field     string
	low, high float64
}

func (p rangePredicate) Match(doc *domain.Document) bool {
	v, ok := doc.Get(p.field)
	if !ok {
		return false
	}
	f, ok := v.Float64()
	return ok && f >= p.low && f <= p.high
}

func (p rangePredicate) String() string {
	return fmt.Sprintf("%s in [%g, %g]", p.field, p.low, p.high)
}

type funcPredicate struct {
	desc string
	fn   func(*domain.Document) bool
}

func (p funcPredicate) Match(doc *domain.Document) bool { return p.fn(doc) }
func (p funcPredicate) String() string                  { return p.desc }

func validateBounds(low, high float64) error {
	if math.IsNaN(low) || math.IsNaN(high) {
		return domain.Invalidf("range bounds must be numbers")
	}
	if low > high {
		return domain.Invalidf("range low %g is above high %g", low, high)
	}
	return nil
}
