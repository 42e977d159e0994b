package sorbe

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Marshal returns the configuration document encoding of v.
//
// The top-level value must be a struct, a map with string keys or a *Dict.
// Nested tables are flattened into dotted key paths, one statement per line:
//
//	server.host = "localhost"
//	server.port = 8080
//
// The mapping from Go types is as follows:
//   - bool -> true | false
//   - signed and unsigned integers -> number
//   - floats -> number with a decimal point; negative, NaN and infinite
//     floats have no representation and are rejected
//   - string -> "quoted string" with \n \t \r \\ \" and \0 escapes
//   - struct, map -> nested table
//   - nil pointers, nil interfaces and Null are omitted
//
// Slices and arrays are not supported. Map keys are written in sorted order,
// struct fields in declaration order and Dict entries in insertion order.
//
// Struct fields can be customized with `sorbe` tags. For example:
//
//	// Field appears as 'my_field'.
//	Field int `sorbe:"my_field"`
//
//	// Field is omitted when it holds its zero value or an empty map.
//	Field int `sorbe:"my_field,omitempty"`
//
//	// Field is ignored.
//	Field int `sorbe:"-"`
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalSchema returns the schema document encoding of s.
func MarshalSchema(s *SchemaDict) ([]byte, error) {
	var buf bytes.Buffer
	st := newState(&buf, SchemaDialect, ": ")
	st.marshalSchema(s)
	err := st.err
	putState(st)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// An Encoder writes configuration documents to an output stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the document encoding of v to the stream. See the
// documentation for Marshal for details about the conversion of Go values.
func (enc *Encoder) Encode(v any) error {
	s := newState(enc.w, ConfigDialect, " = ")
	s.marshalRoot(reflect.ValueOf(v))
	err := s.err
	putState(s)
	return err
}

// state holds the encoding state for a single Marshal or Encode call.
type state struct {
	w       io.Writer
	err     error
	dialect *Dialect // Dialect the output is read back with.
	sep     string
	path    []string // Key path of the value being encoded.
}

var statePool = sync.Pool{
	New: func() any {
		return new(state)
	},
}

func newState(w io.Writer, d *Dialect, sep string) *state {
	s := statePool.Get().(*state)
	s.w = w
	s.dialect = d
	s.sep = sep
	return s
}

func putState(s *state) {
	s.w = nil
	s.err = nil
	s.path = s.path[:0]
	statePool.Put(s)
}

// write writes str to the output, stopping after the first error.
func (s *state) write(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

func (s *state) errorf(format string, args ...any) {
	if s.err != nil {
		return
	}
	if len(s.path) > 0 {
		format = "sorbe: %q: " + format
		args = append([]any{strings.Join(s.path, ".")}, args...)
	} else {
		format = "sorbe: " + format
	}
	s.err = fmt.Errorf(format, args...)
}

var treeValueType = reflect.TypeFor[Value]()

func (s *state) marshalRoot(v reflect.Value) {
	if tv, ok := treeValue(v); ok {
		d, ok := tv.(*Dict)
		if !ok {
			s.errorf("top-level value must be a table, not %s", tv.TypeName())
			return
		}
		s.marshalDict(d)
		return
	}

	v = indirect(v, &s.err)
	if s.err != nil {
		return
	}
	if !v.IsValid() {
		s.errorf("top-level value is nil")
		return
	}

	switch v.Kind() {
	case reflect.Map:
		s.marshalMap(v)
	case reflect.Struct:
		s.marshalStruct(v)
	default:
		s.errorf("top-level value must be a struct or map, not %s", v.Type())
	}
}

// treeValue returns v as a Value if its dynamic type implements Value.
func treeValue(v reflect.Value) (Value, bool) {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() || !v.Type().Implements(treeValueType) || !v.CanInterface() {
		return nil, false
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, false
	}
	return v.Interface().(Value), true
}

// marshalValue encodes the value at the current path.
func (s *state) marshalValue(v reflect.Value) {
	if s.err != nil {
		return
	}

	if tv, ok := treeValue(v); ok {
		s.marshalTree(tv)
		return
	}

	v = indirect(v, &s.err)
	if s.err != nil {
		return
	}

	// Nothing to write for nil.
	if !v.IsValid() {
		return
	}

	switch v.Kind() {
	case reflect.Map:
		s.marshalMap(v)
	case reflect.Struct:
		s.marshalStruct(v)
	case reflect.String:
		s.writeStatement(s.quoteString(v.String()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s.writeStatement(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		s.writeStatement(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		s.writeStatement(s.formatFloat(v.Float()))
	case reflect.Bool:
		s.writeStatement(strconv.FormatBool(v.Bool()))
	default:
		s.errorf("unsupported type: %s", v.Type())
	}
}

// marshalTree encodes a parsed value.
func (s *state) marshalTree(v Value) {
	switch v := v.(type) {
	case Null:
	case Bool:
		s.writeStatement(strconv.FormatBool(bool(v)))
	case Int:
		s.writeStatement(strconv.FormatInt(int64(v), 10))
	case Uint:
		s.writeStatement(strconv.FormatUint(uint64(v), 10))
	case Float:
		s.writeStatement(s.formatFloat(float64(v)))
	case String:
		s.writeStatement(s.quoteString(string(v)))
	case *Dict:
		s.marshalDict(v)
	}
}

func (s *state) marshalDict(d *Dict) {
	for k, e := range d.All() {
		if !s.push(k) {
			return
		}
		s.marshalTree(e)
		s.pop()
	}
}

func (s *state) marshalSchema(d *SchemaDict) {
	for k, e := range d.All() {
		if !s.push(k) {
			return
		}
		if inner, ok := e.(*SchemaDict); ok {
			s.marshalSchema(inner)
		} else {
			s.writeStatement(e.Symbol())
		}
		s.pop()
	}
}

// marshalMap encodes a Go map as a table, in sorted key order.
func (s *state) marshalMap(v reflect.Value) {
	if v.Type().Key().Kind() != reflect.String {
		s.errorf("map key type must be a string, not %s", v.Type().Key())
		return
	}

	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	for _, key := range keys {
		if !s.push(key.String()) {
			return
		}
		s.marshalValue(v.MapIndex(key))
		s.pop()
	}
}

// marshalStruct encodes the exported fields of a struct as a table.
func (s *state) marshalStruct(v reflect.Value) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, opts := parseStructTag(field.Tag)
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if slices.Contains(opts, "omitempty") && isEmptyValue(v.Field(i)) {
			continue
		}

		if !s.push(name) {
			return
		}
		s.marshalValue(v.Field(i))
		s.pop()
	}
}

// push appends key to the current path after checking it can be written
// as a bare key segment.
func (s *state) push(key string) bool {
	s.path = append(s.path, key)
	if !validKey(s.dialect, key) {
		s.errorf("invalid key segment")
		return false
	}
	return true
}

func (s *state) pop() {
	s.path = s.path[:len(s.path)-1]
}

// writeStatement writes one "path sep value" line.
func (s *state) writeStatement(value string) {
	if s.err != nil {
		return
	}
	s.write(strings.Join(s.path, "."))
	s.write(s.sep)
	s.write(value)
	s.write("\n")
}

// formatFloat renders f so that it reads back as a Float.
func (s *state) formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		s.errorf("unsupported float value %v", f)
		return ""
	}
	if f < 0 {
		s.errorf("negative float %v cannot be represented", f)
		return ""
	}

	str := strconv.FormatFloat(math.Abs(f), 'f', -1, 64)
	if !strings.Contains(str, ".") {
		str += ".0"
	}
	return str
}

// quoteString returns str as a double-quoted identifier.
func (s *state) quoteString(str string) string {
	var b strings.Builder
	b.Grow(len(str) + 2)
	b.WriteByte('"')
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch c {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			if isControl(c) {
				s.errorf("string contains control character %q", c)
				return ""
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// IsValidKey reports whether key can be written as a key segment of a
// configuration document. It accepts exactly the segments ParseConfig
// produces.
func IsValidKey(key string) bool {
	return validKey(ConfigDialect, key)
}

// validKey reports whether key lexes as a single plain identifier under d
// and passes the key segment checks.
func validKey(d *Dialect, key string) bool {
	if key == "" || d.classify(key[0]) != classIdent {
		return false
	}
	if key[0] == '-' || key[len(key)-1] == '-' || isDigit(key[0]) {
		return false
	}
	for i := 1; i < len(key); i++ {
		switch d.classify(key[i]) {
		case classIdent, classComment, classQuote:
		default:
			return false
		}
	}
	return true
}

func isEmptyValue(v reflect.Value) bool {
	if v.Kind() == reflect.Map {
		return v.Len() == 0
	}
	return v.IsZero()
}

// indirect walks down a chain of pointers and interfaces to the concrete
// value. A nil pointer yields an invalid reflect.Value.
func indirect(v reflect.Value, err *error) reflect.Value {
	for i := 0; i < 1000; i++ {
		if !v.IsValid() {
			return v
		}
		kind := v.Kind()
		if kind != reflect.Pointer && kind != reflect.Interface {
			return v
		}
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}

	*err = fmt.Errorf("sorbe: encountered a circular or excessively deep data structure")
	return reflect.Value{}
}

// parseStructTag returns the key name from a `sorbe` struct tag and its
// comma-separated options.
func parseStructTag(tag reflect.StructTag) (string, []string) {
	parts := strings.Split(tag.Get("sorbe"), ",")
	return parts[0], parts[1:]
}
