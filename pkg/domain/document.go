package domain

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Document is a keyed set of fields. The key is unique within a database.
type Document struct {
	Key    string  `json:"key" yaml:"key"`
	Fields *Fields `json:"fields" yaml:"fields"`
}

// NewDocument creates a document. A nil field map becomes an empty one.
func NewDocument(key string, fields *Fields) *Document {
	if fields == nil {
		fields = NewFields()
	}
	return &Document{Key: key, Fields: fields}
}

// Get returns the named field.
func (d *Document) Get(field string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	return d.Fields.Get(field)
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{Key: d.Key, Fields: d.Fields.Clone()}
}

// ValidateKey rejects keys no document may carry.
func ValidateKey(key string) error {
	if key == "" {
		return Invalidf("document key must not be empty")
	}
	return nil
}

// EncodeFields serializes a field map in the binary form documents are
// stored in.
func EncodeFields(f *Fields) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := f.EncodeMsgpack(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeFields is the inverse of EncodeFields.
func DecodeFields(data []byte) (*Fields, error) {
	f := NewFields()
	if err := f.DecodeMsgpack(msgpack.NewDecoder(bytes.NewReader(data))); err != nil {
		return nil, err
	}
	return f, nil
}
