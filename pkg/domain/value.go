package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a dynamically typed field value. The zero Value is null.
// Values are treated as immutable once stored in a document.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  *Fields
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// Object wraps a nested field map. A nil map is stored as an empty object.
func Object(fields *Fields) Value {
	if fields == nil {
		fields = NewFields()
	}
	return Value{kind: KindObject, obj: fields}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumeric reports whether the value is an Int or a Float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

func (v Value) AsObject() (*Fields, bool) { return v.obj, v.kind == KindObject }

// Float64 returns the numeric value of an Int or Float.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal reports whether two values are equal. Numbers compare by numeric
// value, so Int(30) equals Float(30.0); values of other kinds never equal
// numbers. Arrays compare element-wise and objects ignore field order.
func (v Value) Equal(other Value) bool {
	return v.Key() == other.Key()
}

// Key returns the canonical encoding of the value. Two values have the same
// key exactly when Equal reports true, which makes the key usable as an
// index bucket name.
func (v Value) Key() string {
	var sb strings.Builder
	v.writeKey(&sb)
	return sb.String()
}

func (v Value) writeKey(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("z")
	case KindBool:
		if v.b {
			sb.WriteString("b:true")
		} else {
			sb.WriteString("b:false")
		}
	case KindInt:
		sb.WriteString("n:")
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString("n:")
		sb.WriteString(canonicalFloat(v.f))
	case KindString:
		sb.WriteString("s:")
		sb.WriteString(strconv.Quote(v.s))
	case KindArray:
		sb.WriteString("a:[")
		for i, item := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			item.writeKey(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		names := v.obj.Names()
		sort.Strings(names)
		sb.WriteString("o:{")
		for i, name := range names {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(name))
			sb.WriteByte(':')
			field, _ := v.obj.Get(name)
			field.writeKey(sb)
		}
		sb.WriteByte('}')
	}
}

// canonicalFloat renders integral floats the way their Int twin renders so
// both land on the same key.
func canonicalFloat(f float64) string {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return Array(items...)
	case KindObject:
		return Object(v.obj.Clone())
	default:
		return v
	}
}

// Interface converts the value to plain Go types: nil, bool, int64, float64,
// string, []interface{} and map[string]interface{}.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		items := make([]interface{}, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Interface()
		}
		return items
	case KindObject:
		out := make(map[string]interface{}, v.obj.Len())
		v.obj.Range(func(name string, field Value) bool {
			out[name] = field.Interface()
			return true
		})
		return out
	default:
		return nil
	}
}

// String renders the value as JSON text.
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(data)
}
