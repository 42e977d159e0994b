// Package gen generates Go struct declarations from flat lists of dotted key
// paths, such as the leaves of a sorbe schema.
package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"unicode"

	sorbe "github.com/minty1202/sorbe-tpl"
)

// Field is one leaf of the generated structure.
type Field struct {
	Path []string // Key path, one element per nesting level.
	Type string   // Go type expression of the leaf.
}

// FromSchema flattens s into fields in declaration order. Primitive types
// map to string, bool, int64, uint64 and float64; optional types become
// pointers.
func FromSchema(s *sorbe.SchemaDict) []Field {
	var fields []Field
	var walk func(d *sorbe.SchemaDict, prefix []string)
	walk = func(d *sorbe.SchemaDict, prefix []string) {
		for k, e := range d.All() {
			path := append(append([]string(nil), prefix...), k)
			if inner, ok := e.(*sorbe.SchemaDict); ok {
				walk(inner, path)
				continue
			}
			fields = append(fields, Field{Path: path, Type: goType(e)})
		}
	}
	walk(s, nil)

	return fields
}

func goType(s sorbe.Schema) string {
	switch s := s.(type) {
	case sorbe.Optional:
		return "*" + goType(s.Inner)
	case sorbe.Primitive:
		switch s {
		case sorbe.StringType:
			return "string"
		case sorbe.BoolType:
			return "bool"
		case sorbe.IntegerType:
			return "int64"
		case sorbe.UnsignedIntegerType:
			return "uint64"
		case sorbe.FloatType:
			return "float64"
		}
	}
	return "any"
}

// node is a field of a generated struct: a leaf with a type, or a branch with
// its own struct.
type node struct {
	key      string
	typ      string  // Leaf type; empty for branches.
	children []*node // Branch fields in insertion order.
}

func (n *node) child(key string) *node {
	for _, c := range n.children {
		if c.key == key {
			return c
		}
	}
	c := &node{key: key}
	n.children = append(n.children, c)
	return c
}

// Generate returns gofmt-ed source declaring typeName in package pkg, with one
// nested struct type per branch of the key path tree. Paths must be free of
// duplicates and prefix conflicts.
func Generate(fields []Field, pkg, typeName string) ([]byte, error) {
	paths := make([][]string, len(fields))
	for i, f := range fields {
		if len(f.Path) == 0 {
			return nil, fmt.Errorf("field %d: empty key path", i)
		}
		paths[i] = f.Path
	}
	if err := sorbe.CheckKeyPaths(paths); err != nil {
		return nil, err
	}

	root := &node{}
	for _, f := range fields {
		n := root
		for _, k := range f.Path {
			n = n.child(k)
		}
		n.typ = f.Type
	}

	name := exportName(typeName)
	g := &generator{used: map[string]bool{name: true}}
	g.printf("// Code generated by sorbe gen. DO NOT EDIT.\n\n")
	g.printf("package %s\n", pkg)
	g.declare(root, name)

	src, err := format.Source(g.buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return src, nil
}

type generator struct {
	buf  bytes.Buffer
	used map[string]bool // Declared type names.
}

func (g *generator) printf(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
}

// declare writes the struct for branch n and then the structs of its
// branches, depth first. name must already be reserved.
func (g *generator) declare(n *node, name string) {
	type pending struct {
		n    *node
		name string
	}
	var nested []pending
	fieldNames := map[string]bool{}

	g.printf("\ntype %s struct {\n", name)
	for _, c := range n.children {
		field := exportName(c.key)
		for i, base := 2, field; fieldNames[field]; i++ {
			field = fmt.Sprintf("%s%d", base, i)
		}
		fieldNames[field] = true

		typ := c.typ
		if c.children != nil {
			typ = g.reserve(field, name)
			nested = append(nested, pending{n: c, name: typ})
		}
		g.printf("\t%s %s `sorbe:%q`\n", field, typ, c.key)
	}
	g.printf("}\n")

	for _, p := range nested {
		g.declare(p.n, p.name)
	}
}

// reserve picks the type name for a nested struct, qualifying it with the
// parent type name if the plain name is already taken.
func (g *generator) reserve(field, parent string) string {
	name := field
	if g.used[name] {
		name = parent + field
	}
	for i := 2; g.used[name]; i++ {
		name = fmt.Sprintf("%s%s%d", parent, field, i)
	}
	g.used[name] = true
	return name
}

// exportName converts a key segment such as "max-conns" into an exported Go
// identifier such as "MaxConns".
func exportName(key string) string {
	var b strings.Builder
	upper := true
	for _, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}

	name := b.String()
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "X" + name
	}
	return name
}
