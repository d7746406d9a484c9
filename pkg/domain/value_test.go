package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	cases := []struct {
		literal string
		kind    Kind
	}{
		{"42", KindInt},
		{"-7", KindInt},
		{"3.5", KindFloat},
		{"1e3", KindFloat},
		{"30.0", KindFloat},
		{"18446744073709551615", KindFloat},
		{`"Alice"`, KindString},
		{"true", KindBool},
		{"null", KindNull},
		{"[1, 2, 3]", KindArray},
		{`{"a": 1}`, KindObject},
	}
	for _, c := range cases {
		t.Run(c.literal, func(t *testing.T) {
			v, err := ParseValue(c.literal)
			require.NoError(t, err)
			assert.Equal(t, c.kind, v.Kind())
		})
	}
}

func TestParseValue_Malformed(t *testing.T) {
	for _, literal := range []string{"Alice", "", "{", "1 2", "[1,]"} {
		_, err := ParseValue(literal)
		require.Error(t, err, literal)
		assert.True(t, errors.Is(err, ErrInvalidArgument), literal)
	}
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Int(30).Equal(Float(30.0)))
	assert.True(t, Float(2.5).Equal(Float(2.5)))
	assert.False(t, Int(30).Equal(String("30")))
	assert.False(t, Null().Equal(Bool(false)))
	assert.False(t, Int(1).Equal(Bool(true)))
	assert.True(t, Array(Int(1), String("x")).Equal(Array(Float(1), String("x"))))
	assert.False(t, Array(Int(1), Int(2)).Equal(Array(Int(2), Int(1))))

	a := Object(FieldsOf("x", 1, "y", "two"))
	b := Object(FieldsOf("y", "two", "x", 1.0))
	assert.True(t, a.Equal(b), "objects ignore member order")
}

func TestValueFloat64(t *testing.T) {
	f, ok := Int(7).Float64()
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	f, ok = Float(2.25).Float64()
	assert.True(t, ok)
	assert.Equal(t, 2.25, f)

	_, ok = String("7").Float64()
	assert.False(t, ok)
}

func TestFieldsKeepOrder(t *testing.T) {
	f, err := ParseFields([]byte(`{"name":"Alice","age":30,"tags":["a","b"],"meta":{"z":1,"a":2}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "tags", "meta"}, f.Names())

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Alice","age":30,"tags":["a","b"],"meta":{"z":1,"a":2}}`, string(data))
	assert.Equal(t, `{"name":"Alice","age":30,"tags":["a","b"],"meta":{"z":1,"a":2}}`, string(data))

	f.Set("name", String("Bob"))
	assert.Equal(t, []string{"name", "age", "tags", "meta"}, f.Names())
	assert.True(t, f.Delete("age"))
	assert.False(t, f.Delete("age"))
	assert.Equal(t, []string{"name", "tags", "meta"}, f.Names())
}

func TestJSONKeepsFloatKind(t *testing.T) {
	f := FieldsOf("score", Float(30), "count", Int(30), "big", Float(1e21))
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"score":30.0,"count":30,"big":1e+21}`, string(data))

	back, err := ParseFields(data)
	require.NoError(t, err)
	score, _ := back.Get("score")
	count, _ := back.Get("count")
	big, _ := back.Get("big")
	assert.Equal(t, KindFloat, score.Kind())
	assert.Equal(t, KindInt, count.Kind())
	assert.Equal(t, KindFloat, big.Kind())
}

func TestJSONRejectsNaN(t *testing.T) {
	_, err := json.Marshal(FieldsOf("x", Float(math.NaN())))
	assert.Error(t, err)
}

func TestMsgpackRoundTrip(t *testing.T) {
	nested := FieldsOf("city", "Paris", "zip", 75001)
	f := FieldsOf(
		"name", "Alice",
		"age", 30,
		"height", 1.72,
		"active", true,
		"nothing", nil,
		"tags", []interface{}{"x", int64(2)},
		"address", Object(nested),
		"huge", uint64(math.MaxUint64),
		"negative", int64(math.MinInt64),
	)

	data, err := EncodeFields(f)
	require.NoError(t, err)
	back, err := DecodeFields(data)
	require.NoError(t, err)

	assert.Equal(t, f.Names(), back.Names())
	assert.True(t, f.Equal(back))

	age, _ := back.Get("age")
	assert.Equal(t, KindInt, age.Kind())
	height, _ := back.Get("height")
	assert.Equal(t, KindFloat, height.Kind())
}

func TestFromInterface(t *testing.T) {
	var decoded interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"b":[1,"x",null],"a":true}`), &decoded))
	v, err := FromInterface(decoded)
	require.NoError(t, err)
	obj, ok := v.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, obj.Names())

	_, err = FromInterface(struct{}{})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestCloneIsDeep(t *testing.T) {
	inner := FieldsOf("x", 1)
	doc := NewDocument("k", FieldsOf("inner", Object(inner)))
	clone := doc.Clone()
	inner.Set("x", Int(2))

	v, _ := clone.Get("inner")
	obj, _ := v.AsObject()
	x, _ := obj.Get("x")
	assert.True(t, x.Equal(Int(1)))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("user1"))
	assert.True(t, errors.Is(ValidateKey(""), ErrInvalidArgument))
}
