package sorbe

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

var (
	canonicalEnc cbor.EncMode
	canonicalDec cbor.DecMode
)

func init() {
	var err error
	if canonicalEnc, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(fmt.Sprintf("cbor canonical options: %v", err))
	}

	dec := cbor.DecOptions{
		DefaultMapType: reflect.TypeFor[map[string]any](),
		IntDec:         cbor.IntDecConvertNone,
	}
	if canonicalDec, err = dec.DecMode(); err != nil {
		panic(fmt.Sprintf("cbor decode options: %v", err))
	}
}

// EncodeCanonical returns the canonical CBOR encoding of v. Map keys are
// sorted, so documents that differ only in statement order encode the same.
// Int and Uint values that are numerically equal share an encoding; floats
// always encode as floats.
func EncodeCanonical(v Value) ([]byte, error) {
	data, err := canonicalEnc.Marshal(ToAny(v))
	if err != nil {
		return nil, fmt.Errorf("cbor encoding failed: %w", err)
	}
	return data, nil
}

// DecodeCanonical decodes CBOR produced by EncodeCanonical. Table entries
// come back in sorted key order, and non-negative integers come back as Uint.
func DecodeCanonical(data []byte) (Value, error) {
	var raw any
	if err := canonicalDec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cbor decoding failed: %w", err)
	}
	return FromAny(raw)
}

// Fingerprint returns a BLAKE2b-256 digest of the canonical encoding of v,
// formatted as "blake2b:<hex>".
func Fingerprint(v Value) (string, error) {
	data, err := EncodeCanonical(v)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("blake2b:%x", blake2b.Sum256(data)), nil
}

// SchemaFingerprint returns a BLAKE2b-256 digest of a schema, formatted like
// Fingerprint. Each leaf contributes its type symbol.
func SchemaFingerprint(s *SchemaDict) (string, error) {
	data, err := canonicalEnc.Marshal(schemaToAny(s))
	if err != nil {
		return "", fmt.Errorf("cbor encoding failed: %w", err)
	}

	return fmt.Sprintf("blake2b:%x", blake2b.Sum256(data)), nil
}

func schemaToAny(s Schema) any {
	d, ok := s.(*SchemaDict)
	if !ok {
		return s.Symbol()
	}
	m := make(map[string]any, d.Len())
	for k, e := range d.All() {
		m[k] = schemaToAny(e)
	}
	return m
}

// FromAny converts plain Go values, as produced by ToAny or by generic
// decoders, into a Value. Map keys are inserted in sorted order.
func FromAny(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case int:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint64:
		return Uint(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Float(x), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		d := &Dict{}
		for _, k := range keys {
			v, err := FromAny(x[k])
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			d.set(k, v)
		}
		return d, nil
	}

	return nil, fmt.Errorf("unsupported type %T", x)
}
