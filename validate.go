package sorbe

import (
	"fmt"
	"math"
)

// Validate checks that v conforms to s. Dict keys must match exactly:
// unknown keys are reported in value order before missing keys in schema
// order, and entries are then checked in schema order.
func Validate(v Value, s Schema) error {
	return validate(v, s, "")
}

func validate(v Value, s Schema, path string) error {
	switch s := s.(type) {
	case Primitive:
		if !accepts(s, v) {
			return mismatch(path, s, v)
		}
		return nil

	case Optional:
		if _, ok := v.(Null); ok {
			return nil
		}
		return validate(v, s.Inner, path)

	case *SchemaDict:
		d, ok := v.(*Dict)
		if !ok {
			return mismatch(path, s, v)
		}
		return validateDict(d, s, path)
	}

	return mismatch(path, s, v)
}

func validateDict(d *Dict, s *SchemaDict, path string) error {
	for k := range d.All() {
		if _, ok := s.Get(k); !ok {
			return &TypeError{
				Path:       joinPath(path, k),
				Suggestion: suggest(k, missingKeys(s, d)),
				Err:        ErrUnknownKey,
			}
		}
	}
	for k := range s.All() {
		if _, ok := d.Get(k); !ok {
			return &TypeError{Path: joinPath(path, k), Err: ErrMissingKey}
		}
	}

	for k, inner := range s.All() {
		e, _ := d.Get(k)
		if err := validate(e, inner, joinPath(path, k)); err != nil {
			return err
		}
	}

	return nil
}

// missingKeys returns the keys of s that d lacks, as suggestion candidates
// for a misspelled key.
func missingKeys(s *SchemaDict, d *Dict) []string {
	var keys []string
	for k := range s.All() {
		if _, ok := d.Get(k); !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// accepts reports whether scalar v is acceptable for primitive p.
func accepts(p Primitive, v Value) bool {
	switch p {
	case StringType:
		_, ok := v.(String)
		return ok
	case BoolType:
		_, ok := v.(Bool)
		return ok
	case FloatType:
		_, ok := v.(Float)
		return ok
	case IntegerType:
		switch v := v.(type) {
		case Int, Uint:
			return true
		case Float:
			return isWhole(float64(v))
		}
	case UnsignedIntegerType:
		switch v := v.(type) {
		case Uint:
			return true
		case Int:
			return v >= 0
		case Float:
			return v >= 0 && isWhole(float64(v))
		}
	}
	return false
}

func isWhole(f float64) bool {
	return !math.IsInf(f, 0) && f == math.Trunc(f)
}

func mismatch(path string, s Schema, v Value) error {
	return &TypeError{
		Path:     path,
		Expected: s.Symbol(),
		Found:    describe(v),
		Err:      ErrTypeMismatch,
	}
}

// describe renders a value for error messages.
func describe(v Value) string {
	switch v := v.(type) {
	case nil:
		return "nothing"
	case Null, *Dict:
		return v.TypeName()
	case String:
		return fmt.Sprintf("%s %q", v.TypeName(), string(v))
	}
	return fmt.Sprintf("%s %v", v.TypeName(), v)
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Cast returns a copy of v with numbers narrowed to the representation s
// asks for. Floats are truncated toward zero, saturating at the bounds of the
// target type. A negative Int cast to an unsigned integer keeps its two's
// complement bits; call Validate first to rule that out. Cast never fails:
// values that do not fit s are returned unchanged.
func Cast(v Value, s Schema) Value {
	switch s := s.(type) {
	case Primitive:
		n, ok := v.(Number)
		if !ok {
			return v
		}
		switch s {
		case IntegerType:
			return castInt(n)
		case UnsignedIntegerType:
			return castUint(n)
		}
		return v

	case Optional:
		return Cast(v, s.Inner)

	case *SchemaDict:
		d, ok := v.(*Dict)
		if !ok {
			return v
		}
		out := &Dict{}
		for k, inner := range s.All() {
			if e, ok := d.Get(k); ok {
				out.set(k, Cast(e, inner))
			}
		}
		return out
	}

	return v
}

func castInt(n Number) Int {
	switch n := n.(type) {
	case Int:
		return n
	case Uint:
		return Int(int64(n))
	case Float:
		f := math.Trunc(float64(n))
		switch {
		case math.IsNaN(f):
			return 0
		case f >= math.MaxInt64:
			return math.MaxInt64
		case f <= math.MinInt64:
			return math.MinInt64
		}
		return Int(int64(f))
	}
	return 0
}

func castUint(n Number) Uint {
	switch n := n.(type) {
	case Int:
		return Uint(uint64(n))
	case Uint:
		return n
	case Float:
		f := math.Trunc(float64(n))
		switch {
		case math.IsNaN(f) || f <= 0:
			return 0
		case f >= math.MaxUint64:
			return math.MaxUint64
		}
		return Uint(uint64(f))
	}
	return 0
}
