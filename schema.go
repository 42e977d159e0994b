package sorbe

import (
	"iter"
	"strings"
)

// Schema is a node of a type tree. It is a Primitive, an Optional or a
// *SchemaDict.
type Schema interface {
	// Symbol returns the type symbol used in schema documents. Dict schemas
	// have no symbol of their own and render as "dict".
	Symbol() string
	isSchema()
}

// Primitive is a scalar schema type.
type Primitive uint8

const (
	StringType Primitive = iota + 1
	BoolType
	IntegerType
	UnsignedIntegerType
	FloatType
)

var primitiveSymbols = map[Primitive]string{
	StringType:          "string",
	BoolType:            "bool",
	IntegerType:         "integer",
	UnsignedIntegerType: "unsigned_integer",
	FloatType:           "float",
}

var symbolPrimitives = map[string]Primitive{
	"string":           StringType,
	"bool":             BoolType,
	"integer":          IntegerType,
	"unsigned_integer": UnsignedIntegerType,
	"float":            FloatType,
}

// symbolNames lists the primitive symbols in declaration order.
var symbolNames = []string{"string", "bool", "integer", "unsigned_integer", "float"}

func (p Primitive) Symbol() string {
	if s, ok := primitiveSymbols[p]; ok {
		return s
	}
	return "invalid"
}

func (p Primitive) String() string { return p.Symbol() }

// Optional accepts Null or anything Inner accepts.
type Optional struct {
	Inner Schema
}

func (o Optional) Symbol() string { return o.Inner.Symbol() + "?" }

// SchemaDict is a nested table of schemas in insertion order.
type SchemaDict struct {
	Map[Schema]
}

func (d *SchemaDict) entries() *Map[Schema] {
	if d == nil {
		return nil
	}
	return &d.Map
}

// Len returns the number of declared keys. A nil *SchemaDict is empty.
func (d *SchemaDict) Len() int { return d.entries().Len() }

// Keys returns the declared keys in insertion order.
func (d *SchemaDict) Keys() []string { return d.entries().Keys() }

// Get returns the schema declared for key.
func (d *SchemaDict) Get(key string) (Schema, bool) { return d.entries().Get(key) }

// All iterates over declarations in insertion order.
func (d *SchemaDict) All() iter.Seq2[string, Schema] { return d.entries().All() }

func (*SchemaDict) Symbol() string { return "dict" }

func (Primitive) isSchema()   {}
func (Optional) isSchema()    {}
func (*SchemaDict) isSchema() {}

// Equal reports whether d and o declare the same keys, in the same order,
// with equal types.
func (d *SchemaDict) Equal(o *SchemaDict) bool {
	if d.Len() != o.Len() {
		return false
	}
	if d.Len() == 0 {
		return true
	}
	for i, k := range d.keys {
		if o.keys[i] != k || !schemaEqual(d.values[k], o.values[k]) {
			return false
		}
	}
	return true
}

func schemaEqual(a, b Schema) bool {
	switch a := a.(type) {
	case *SchemaDict:
		b, ok := b.(*SchemaDict)
		return ok && a.Equal(b)
	case Optional:
		b, ok := b.(Optional)
		return ok && schemaEqual(a.Inner, b.Inner)
	}
	return a == b
}

// ParseSymbol returns the schema named by a type symbol: a primitive name,
// optionally followed by a single '?'.
func ParseSymbol(s string) (Schema, bool) {
	base, optional := strings.CutSuffix(s, "?")
	p, ok := symbolPrimitives[base]
	if !ok {
		return nil, false
	}
	if optional {
		return Optional{Inner: p}, true
	}
	return p, true
}

// schemaKind builds schema trees.
type schemaKind struct{}

func (schemaKind) branch(m *Map[Schema]) Schema { return &SchemaDict{Map: *m} }

func (schemaKind) children(s Schema) (*Map[Schema], bool) {
	d, ok := s.(*SchemaDict)
	if !ok {
		return nil, false
	}
	return &d.Map, true
}

// buildSchema assembles checked patterns into a schema tree, resolving each
// raw value as a type symbol.
func buildSchema(patterns []Pattern) (*SchemaDict, error) {
	leaves := make([]leaf[Schema], len(patterns))
	for i, p := range patterns {
		s, err := resolveSymbol(p)
		if err != nil {
			return nil, err
		}
		leaves[i] = leaf[Schema]{keys: p.Keys, node: s}
	}

	return &SchemaDict{Map: *buildTree[Schema](schemaKind{}, leaves)}, nil
}

func resolveSymbol(p Pattern) (Schema, error) {
	if p.Value.Quoted {
		return nil, &SchemaError{Key: p.Path(), Line: p.Line, Err: ErrQuotedNotAllowed}
	}

	s, ok := ParseSymbol(p.Value.Text)
	if ok {
		return s, nil
	}

	base, optional := strings.CutSuffix(p.Value.Text, "?")
	hint := ""
	if base != "" {
		hint = suggest(base, symbolNames)
	}
	if hint != "" && optional {
		hint += "?"
	}

	return nil, &SchemaError{
		Key:        p.Path(),
		Line:       p.Line,
		Symbol:     p.Value.Text,
		Suggestion: hint,
		Err:        ErrUnknownType,
	}
}
