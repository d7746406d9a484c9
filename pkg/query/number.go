package query

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/adfharrison1/neemo/pkg/domain"
)

// Number is an aggregation accumulator. It stays an exact int64 until a sum
// overflows or a float joins in, then continues in float64.
type Number struct {
	isFloat bool
	i       int64
	f       float64
}

func (n Number) IsFloat() bool { return n.isFloat }

func (n Number) Float64() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

// Int64 returns the exact integer value while the number has not been
// promoted to float.
func (n Number) Int64() (int64, bool) {
	return n.i, !n.isFloat
}

// Value converts the number to a document value.
func (n Number) Value() domain.Value {
	if n.isFloat {
		return domain.Float(n.f)
	}
	return domain.Int(n.i)
}

func (n Number) String() string {
	if n.isFloat {
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
	return strconv.FormatInt(n.i, 10)
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value())
}

// add returns n+v for a numeric value.
func (n Number) add(v domain.Value) Number {
	if i, ok := v.AsInt(); ok && !n.isFloat {
		sum := n.i + i
		if (i > 0 && sum < n.i) || (i < 0 && sum > n.i) {
			return Number{isFloat: true, f: float64(n.i) + float64(i)}
		}
		return Number{i: sum}
	}
	f, _ := v.Float64()
	return Number{isFloat: true, f: n.Float64() + f}
}

// toNumeric coerces a field value for aggregation. Only Int and Float
// values coerce; strings, booleans, null, arrays and objects are skipped.
func toNumeric(v domain.Value) (domain.Value, bool) {
	if !v.IsNumeric() {
		return v, false
	}
	if f, _ := v.Float64(); math.IsNaN(f) {
		return v, false
	}
	return v, true
}
