package domain

// Fields is an ordered map from field name to Value. Insertion order is kept
// so documents render the way they were written.
type Fields struct {
	names  []string
	values map[string]Value
}

// NewFields creates an empty field map.
func NewFields() *Fields {
	return &Fields{values: make(map[string]Value)}
}

// FieldsOf builds a field map from alternating name/value pairs.
func FieldsOf(pairs ...interface{}) *Fields {
	f := NewFields()
	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case Value:
			f.Set(name, v)
		default:
			value, err := FromInterface(v)
			if err != nil {
				panic(err)
			}
			f.Set(name, value)
		}
	}
	return f
}

// Set stores a value. Replacing an existing field keeps its position.
func (f *Fields) Set(name string, v Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, exists := f.values[name]; !exists {
		f.names = append(f.names, name)
	}
	f.values[name] = v
}

func (f *Fields) Get(name string) (Value, bool) {
	if f == nil {
		return Value{}, false
	}
	v, ok := f.values[name]
	return v, ok
}

// Delete removes a field and reports whether it was present.
func (f *Fields) Delete(name string) bool {
	if f == nil {
		return false
	}
	if _, ok := f.values[name]; !ok {
		return false
	}
	delete(f.values, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i], f.names[i+1:]...)
			break
		}
	}
	return true
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Names returns the field names in insertion order.
func (f *Fields) Names() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Range calls fn for each field in order until fn returns false.
func (f *Fields) Range(fn func(name string, v Value) bool) {
	if f == nil {
		return
	}
	for _, name := range f.names {
		if !fn(name, f.values[name]) {
			return
		}
	}
}

// Clone returns a deep copy.
func (f *Fields) Clone() *Fields {
	out := NewFields()
	f.Range(func(name string, v Value) bool {
		out.Set(name, v.Clone())
		return true
	})
	return out
}

// Equal compares two field maps ignoring order.
func (f *Fields) Equal(other *Fields) bool {
	return Object(f).Equal(Object(other))
}
