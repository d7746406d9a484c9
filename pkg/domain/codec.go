package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// ParseValue parses a JSON literal such as 42, 3.5, "Alice", true, null,
// [1,2] or {"a":1}. Integers that fit in int64 become Int, every other
// number becomes Float.
func ParseValue(literal string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(literal))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return Value{}, Invalidf("malformed value literal %q: %v", literal, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, Invalidf("malformed value literal %q: trailing data", literal)
	}
	return v, nil
}

// ParseFields parses a JSON object into an ordered field map.
func ParseFields(data []byte) (*Fields, error) {
	f := NewFields()
	if err := f.UnmarshalJSON(data); err != nil {
		return nil, Invalidf("%v", err)
	}
	return f, nil
}

// FromInterface converts plain Go values (as produced by encoding/json or
// yaml decoders) into a Value.
func FromInterface(in interface{}) (Value, error) {
	switch v := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return Float(float64(v)), nil
		}
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case json.Number:
		return parseNumber(string(v))
	case string:
		return String(v), nil
	case []interface{}:
		items := make([]Value, len(v))
		for i, item := range v {
			converted, err := FromInterface(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = converted
		}
		return Array(items...), nil
	case map[string]interface{}:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		fields := NewFields()
		for _, name := range names {
			converted, err := FromInterface(v[name])
			if err != nil {
				return Value{}, err
			}
			fields.Set(name, converted)
		}
		return Object(fields), nil
	default:
		return Value{}, Invalidf("unsupported value type %T", in)
	}
}

func parseNumber(text string) (Value, error) {
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", text, err)
	}
	return Float(f), nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			fields := NewFields()
			if err := decodeJSONObject(dec, fields); err != nil {
				return Value{}, err
			}
			return Object(fields), nil
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Array(items...), nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case json.Number:
		return parseNumber(string(t))
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

// decodeJSONObject reads object members after the opening brace.
func decodeJSONObject(dec *json.Decoder, fields *Fields) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected field name, got %v", tok)
		}
		v, err := decodeJSONValue(dec)
		if err != nil {
			return err
		}
		fields.Set(name, v)
	}
	_, err := dec.Token()
	return err
}

// MarshalJSON renders the value as JSON. Integral floats keep a fractional
// part so they read back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeJSONValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("unsupported float value %v", v.f)
		}
		text := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(text, ".eE") {
			text += ".0"
		}
		buf.WriteString(text)
	case KindString:
		data, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		return v.obj.writeJSON(buf)
	}
	return nil
}

func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *Fields) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	var err error
	first := true
	f.Range(func(name string, v Value) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		var key []byte
		if key, err = json.Marshal(name); err != nil {
			return false
		}
		buf.Write(key)
		buf.WriteByte(':')
		err = v.writeJSON(buf)
		return err == nil
	})
	if err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON parses a JSON object, keeping member order.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("document fields must be a JSON object")
	}
	f.names = nil
	f.values = make(map[string]Value)
	if err := decodeJSONObject(dec, f); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after JSON object")
	}
	return nil
}

var _ msgpack.CustomEncoder = Value{}
var _ msgpack.CustomDecoder = (*Value)(nil)

func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindInt:
		return enc.EncodeInt(v.i)
	case KindFloat:
		return enc.EncodeFloat64(v.f)
	case KindString:
		return enc.EncodeString(v.s)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, item := range v.arr {
			if err := item.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindObject:
		return v.obj.EncodeMsgpack(enc)
	default:
		return fmt.Errorf("cannot encode value of kind %s", v.kind)
	}
}

func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	switch {
	case c == msgpcode.Nil:
		*v = Null()
		return dec.DecodeNil()
	case c == msgpcode.False || c == msgpcode.True:
		b, err := dec.DecodeBool()
		if err != nil {
			return err
		}
		*v = Bool(b)
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		*v = Float(f)
	case c == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		if u > math.MaxInt64 {
			*v = Float(float64(u))
		} else {
			*v = Int(int64(u))
		}
	case msgpcode.IsFixedNum(c), c == msgpcode.Int8, c == msgpcode.Int16, c == msgpcode.Int32,
		c == msgpcode.Int64, c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32:
		i, err := dec.DecodeInt64()
		if err != nil {
			return err
		}
		*v = Int(i)
	case msgpcode.IsFixedString(c), c == msgpcode.Str8, c == msgpcode.Str16, c == msgpcode.Str32:
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}
		*v = String(s)
	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		items := make([]Value, 0, max(n, 0))
		for i := 0; i < n; i++ {
			var item Value
			if err := item.DecodeMsgpack(dec); err != nil {
				return err
			}
			items = append(items, item)
		}
		*v = Array(items...)
	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		fields := NewFields()
		if err := fields.DecodeMsgpack(dec); err != nil {
			return err
		}
		*v = Object(fields)
	default:
		return fmt.Errorf("unsupported msgpack code 0x%x", c)
	}
	return nil
}

func (f *Fields) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(f.Len()); err != nil {
		return err
	}
	var err error
	f.Range(func(name string, v Value) bool {
		if err = enc.EncodeString(name); err != nil {
			return false
		}
		err = v.EncodeMsgpack(enc)
		return err == nil
	})
	return err
}

func (f *Fields) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	f.names = nil
	f.values = make(map[string]Value, max(n, 0))
	for i := 0; i < n; i++ {
		name, err := dec.DecodeString()
		if err != nil {
			return err
		}
		var v Value
		if err := v.DecodeMsgpack(dec); err != nil {
			return err
		}
		f.Set(name, v)
	}
	return nil
}
