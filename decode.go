package sorbe

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
)

// Decoder reads a configuration document from an input stream and decodes it
// into Go values.
type Decoder struct {
	r      io.Reader
	schema *SchemaDict
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Schema makes Decode validate the document against s and cast it before
// decoding.
func (dec *Decoder) Schema(s *SchemaDict) *Decoder {
	dec.schema = s
	return dec
}

// Decode reads the whole document and stores the result in the pointer v.
func (dec *Decoder) Decode(v any) error {
	d, err := ReadConfig(dec.r)
	if err != nil {
		return err
	}

	if dec.schema != nil {
		if d, err = Conform(d, dec.schema); err != nil {
			return err
		}
	}

	return DecodeValue(d, v)
}

// Unmarshal parses a configuration document and stores the result in the
// value pointed to by v.
//
// Values map onto Go types as follows:
//   - tables decode into structs (matched by `sorbe` tag or field name) and
//     maps with string keys
//   - strings and bools decode into string and bool kinds
//   - numbers decode into any integer or float kind when the conversion is
//     lossless: 2.0 fits an int, 2.5 does not, and negative numbers never fit
//     an unsigned kind
//   - null sets the destination to its zero value
//   - interface destinations receive the result of ToAny, or the Value
//     itself when the destination is a Value
func Unmarshal(data []byte, v any) error {
	d, err := ParseConfig(string(data))
	if err != nil {
		return err
	}

	return DecodeValue(d, v)
}

// DecodeValue stores src in the value pointed to by dst using the same rules
// as Unmarshal.
func DecodeValue(src Value, dst any) error {
	if dst == nil {
		return errors.New("cannot unmarshal into a nil value")
	}

	val := reflect.ValueOf(dst)
	if val.Kind() != reflect.Ptr {
		return errors.New("destination is not a pointer")
	}
	if val.IsNil() {
		return errors.New("destination pointer is nil")
	}

	return setValueReflect(val.Elem(), src, "")
}

var valueType = reflect.TypeFor[Value]()

// setValueReflect recursively sets dst from src. path is the dotted key path
// of src, used in error messages.
func setValueReflect(dst reflect.Value, src Value, path string) error {
	if _, ok := src.(Null); ok || src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.Kind() == reflect.Interface {
		if valueType.AssignableTo(dst.Type()) && dst.Type() != reflect.TypeFor[any]() {
			dst.Set(reflect.ValueOf(&src).Elem())
			return nil
		}
		if dst.NumMethod() > 0 {
			return decodeError(path, "cannot unmarshal %s into %s", src.TypeName(), dst.Type())
		}
		dst.Set(reflect.ValueOf(ToAny(src)))
		return nil
	}

	var err error
	switch dst.Kind() {
	case reflect.Struct:
		return setStruct(dst, src, path)
	case reflect.Map:
		return setMap(dst, src, path)
	case reflect.Ptr:
		return setPtr(dst, src, path)
	case reflect.String:
		err = setString(dst, src)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		err = setInt(dst, src)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		err = setUint(dst, src)
	case reflect.Float32, reflect.Float64:
		err = setFloat(dst, src)
	case reflect.Bool:
		err = setBool(dst, src)
	default:
		err = fmt.Errorf("cannot unmarshal %s into %s", src.TypeName(), dst.Type())
	}
	if err != nil && path != "" {
		return fmt.Errorf("%q: %w", path, err)
	}

	return err
}

func decodeError(path, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	if path != "" {
		return fmt.Errorf("%q: %w", path, err)
	}
	return err
}

// setStruct unmarshals a table into a struct. Keys without a matching field
// are ignored, and fields without a matching key keep their value.
func setStruct(dst reflect.Value, src Value, path string) error {
	d, ok := src.(*Dict)
	if !ok {
		return decodeError(path, "cannot unmarshal %s into struct %s", src.TypeName(), dst.Type())
	}

	structType := dst.Type()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldValue := dst.Field(i)

		// Skip unexported fields.
		if !fieldValue.CanSet() {
			continue
		}

		fieldName := getFieldName(field)
		if fieldName == "-" {
			continue
		}

		if srcValue, exists := d.Get(fieldName); exists {
			if err := setValueReflect(fieldValue, srcValue, joinPath(path, fieldName)); err != nil {
				return err
			}
		}
	}

	return nil
}

// getFieldName returns the key a struct field maps to.
func getFieldName(field reflect.StructField) string {
	name, _ := parseStructTag(field.Tag)
	if name == "" {
		return field.Name
	}
	return name
}

// setMap unmarshals a table into a map with string keys.
func setMap(dst reflect.Value, src Value, path string) error {
	d, ok := src.(*Dict)
	if !ok {
		return decodeError(path, "cannot unmarshal %s into map", src.TypeName())
	}

	mapType := dst.Type()
	if mapType.Key().Kind() != reflect.String {
		return decodeError(path, "maps with non-string keys are not supported")
	}

	newMap := reflect.MakeMapWithSize(mapType, d.Len())
	for key, srcValue := range d.All() {
		elem := reflect.New(mapType.Elem()).Elem()
		if err := setValueReflect(elem, srcValue, joinPath(path, key)); err != nil {
			return err
		}
		newMap.SetMapIndex(reflect.ValueOf(key).Convert(mapType.Key()), elem)
	}

	dst.Set(newMap)
	return nil
}

// setPtr allocates a new value and unmarshals into it.
func setPtr(dst reflect.Value, src Value, path string) error {
	newPtr := reflect.New(dst.Type().Elem())
	if err := setValueReflect(newPtr.Elem(), src, path); err != nil {
		return err
	}

	dst.Set(newPtr)
	return nil
}

func setString(dst reflect.Value, src Value) error {
	v, ok := src.(String)
	if !ok {
		return fmt.Errorf("cannot unmarshal %s into string", src.TypeName())
	}
	dst.SetString(string(v))
	return nil
}

// setInt stores a number into a signed integer kind if it fits exactly.
func setInt(dst reflect.Value, src Value) error {
	var i int64
	switch v := src.(type) {
	case Int:
		i = int64(v)
	case Uint:
		if v > math.MaxInt64 {
			return fmt.Errorf("value %d overflows %s", v, dst.Type())
		}
		i = int64(v)
	case Float:
		f := float64(v)
		if f != math.Trunc(f) {
			return fmt.Errorf("cannot unmarshal float %g into integer type", f)
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return fmt.Errorf("value %g overflows %s", f, dst.Type())
		}
		i = int64(f)
	default:
		return fmt.Errorf("cannot unmarshal %s into integer", src.TypeName())
	}

	if dst.OverflowInt(i) {
		return fmt.Errorf("value %d overflows %s", i, dst.Type())
	}
	dst.SetInt(i)
	return nil
}

// setUint stores a number into an unsigned integer kind if it fits exactly.
func setUint(dst reflect.Value, src Value) error {
	var u uint64
	switch v := src.(type) {
	case Uint:
		u = uint64(v)
	case Int:
		if v < 0 {
			return fmt.Errorf("cannot unmarshal negative value %d into unsigned integer", v)
		}
		u = uint64(v)
	case Float:
		f := float64(v)
		if f < 0 {
			return fmt.Errorf("cannot unmarshal negative value %g into unsigned integer", f)
		}
		if f != math.Trunc(f) {
			return fmt.Errorf("cannot unmarshal float %g into integer type", f)
		}
		if f >= math.MaxUint64 {
			return fmt.Errorf("value %g overflows %s", f, dst.Type())
		}
		u = uint64(f)
	default:
		return fmt.Errorf("cannot unmarshal %s into unsigned integer", src.TypeName())
	}

	if dst.OverflowUint(u) {
		return fmt.Errorf("value %d overflows %s", u, dst.Type())
	}
	dst.SetUint(u)
	return nil
}

// setFloat stores any number into a float kind.
func setFloat(dst reflect.Value, src Value) error {
	var f float64
	switch v := src.(type) {
	case Float:
		f = float64(v)
	case Int:
		f = float64(v)
	case Uint:
		f = float64(v)
	default:
		return fmt.Errorf("cannot unmarshal %s into float", src.TypeName())
	}

	if dst.OverflowFloat(f) {
		return fmt.Errorf("value %g overflows %s", f, dst.Type())
	}
	dst.SetFloat(f)
	return nil
}

func setBool(dst reflect.Value, src Value) error {
	v, ok := src.(Bool)
	if !ok {
		return fmt.Errorf("cannot unmarshal %s into bool", src.TypeName())
	}
	dst.SetBool(bool(v))
	return nil
}
