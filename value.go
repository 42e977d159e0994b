package sorbe

import (
	"bytes"
	"encoding/json"
	"iter"
	"strconv"
	"strings"
)

// Value is a node of a parsed configuration tree. It is one of Null, Bool,
// Int, Uint, Float, String or *Dict.
type Value interface {
	// TypeName returns the name used for this kind of value in error messages.
	TypeName() string
	isValue()
}

// Number is a numeric Value: Int, Uint or Float. The three representations
// are kept distinct until Cast narrows them.
type Number interface {
	Value
	isNumber()
}

type (
	// Null is the absent value of an optional field.
	Null struct{}
	// Bool is a boolean value.
	Bool bool
	// Int is a signed 64-bit integer.
	Int int64
	// Uint is an unsigned 64-bit integer.
	Uint uint64
	// Float is a 64-bit float.
	Float float64
	// String is a text value.
	String string
)

// Dict is a nested table of values in insertion order.
type Dict struct {
	Map[Value]
}

// The accessors below shadow the promoted Map methods so that a nil *Dict
// reads as empty.

func (d *Dict) entries() *Map[Value] {
	if d == nil {
		return nil
	}
	return &d.Map
}

// Len returns the number of entries.
func (d *Dict) Len() int { return d.entries().Len() }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string { return d.entries().Keys() }

// Get returns the entry for key.
func (d *Dict) Get(key string) (Value, bool) { return d.entries().Get(key) }

// All iterates over entries in insertion order.
func (d *Dict) All() iter.Seq2[string, Value] { return d.entries().All() }

func (Null) TypeName() string   { return "null" }
func (Bool) TypeName() string   { return "bool" }
func (Int) TypeName() string    { return "integer" }
func (Uint) TypeName() string   { return "unsigned_integer" }
func (Float) TypeName() string  { return "float" }
func (String) TypeName() string { return "string" }
func (*Dict) TypeName() string  { return "dict" }

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Int) isValue()    {}
func (Uint) isValue()   {}
func (Float) isValue()  {}
func (String) isValue() {}
func (*Dict) isValue()  {}

func (Int) isNumber()   {}
func (Uint) isNumber()  {}
func (Float) isNumber() {}

// Equal reports whether d and o hold equal entries in the same order.
func (d *Dict) Equal(o *Dict) bool {
	if d.Len() != o.Len() {
		return false
	}
	if d.Len() == 0 {
		return true
	}
	for i, k := range d.keys {
		if o.keys[i] != k {
			return false
		}
		if !valueEqual(d.values[k], o.values[k]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b Value) bool {
	if da, ok := a.(*Dict); ok {
		db, ok := b.(*Dict)
		return ok && da.Equal(db)
	}
	return a == b
}

// Lookup returns the value at a dotted key path.
func (d *Dict) Lookup(path string) (Value, bool) {
	var v Value = d
	for part := range strings.SplitSeq(path, ".") {
		dict, ok := v.(*Dict)
		if !ok {
			return nil, false
		}
		if v, ok = dict.Get(part); !ok {
			return nil, false
		}
	}
	return v, true
}

// valueKind builds value trees.
type valueKind struct{}

func (valueKind) branch(m *Map[Value]) Value { return &Dict{Map: *m} }

func (valueKind) children(v Value) (*Map[Value], bool) {
	d, ok := v.(*Dict)
	if !ok {
		return nil, false
	}
	return &d.Map, true
}

// buildDict assembles checked patterns into a value tree.
func buildDict(patterns []Pattern) *Dict {
	leaves := make([]leaf[Value], len(patterns))
	for i, p := range patterns {
		leaves[i] = leaf[Value]{keys: p.Keys, node: Infer(p.Value)}
	}

	return &Dict{Map: *buildTree[Value](valueKind{}, leaves)}
}

// Infer converts a raw statement value to a typed scalar. Quoted text is
// always a String. Plain text is tried, in order, as a boolean, a float (only
// when it contains a dot), an unsigned integer and a signed integer, and is
// otherwise kept as a String.
func Infer(raw RawValue) Value {
	if raw.Quoted {
		return String(raw.Text)
	}

	s := raw.Text
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Uint(u)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}

	return String(s)
}

// ToAny converts v to plain Go values: nil, bool, int64, uint64, float64,
// string and map[string]any.
func ToAny(v Value) any {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Int:
		return int64(v)
	case Uint:
		return uint64(v)
	case Float:
		return float64(v)
	case String:
		return string(v)
	case *Dict:
		m := make(map[string]any, v.Len())
		for k, e := range v.All() {
			m[k] = ToAny(e)
		}
		return m
	default:
		return nil
	}
}

// MarshalJSON encodes the dict as a JSON object, keeping insertion order.
func (d *Dict) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendJSON(buf *bytes.Buffer, v Value) error {
	d, ok := v.(*Dict)
	if !ok {
		b, err := json.Marshal(ToAny(v))
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	buf.WriteByte('{')
	i := 0
	for k, e := range d.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++

		b, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(b)
		buf.WriteByte(':')
		if err := appendJSON(buf, e); err != nil {
			return err
		}
	}
	buf.WriteByte('}')

	return nil
}
