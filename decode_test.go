package sorbe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertions(t *testing.T) {
	f := func(name, input string, errorExpected bool) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			var result any
			err := Unmarshal([]byte(input), &result)
			if errorExpected {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			// Try again via the decoder.
			var result2 any
			err = NewDecoder(strings.NewReader(input)).Decode(&result2)
			if errorExpected {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, result, result2)
			}
		})
	}

	type assertion struct {
		Name  string `json:"name"`
		Input string `json:"input"`
		Error bool   `json:"error"`
	}

	files, err := filepath.Glob("testdata/assertions/*.json")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no assertion files in testdata/assertions")

	for _, path := range files {
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var tests []assertion
		require.NoError(t, json.Unmarshal(data, &tests), "error unmarshalling assertions file: %s", path)

		for n, a := range tests {
			// +2 to account for the opening [ and the line break in the test file.
			f(fmt.Sprintf("%s line %d: %s", filepath.Base(path), n+2, a.Name), a.Input, a.Error)
		}
	}
}

func TestValues(t *testing.T) {
	f := func(name, input string, expectedVal any) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			var result any
			require.NoError(t, Unmarshal([]byte(input), &result))
			assert.Equal(t, expectedVal, result)
		})
	}

	f("empty", "", map[string]any{})
	f("boolean_values", "t = true\nf = false", map[string]any{"t": true, "f": false})
	f("unsigned", "num = 42", map[string]any{"num": uint64(42)})
	f("signed", "num = -42", map[string]any{"num": int64(-42)})
	f("float", "num = 3.14", map[string]any{"num": 3.14})
	f("string", `str = "hello"`, map[string]any{"str": "hello"})
	f("plain_string", "str = hello", map[string]any{"str": "hello"})
	f("empty_string", "str =", map[string]any{"str": ""})
	f("nested", "a.b = 1\na.c.d = x", map[string]any{
		"a": map[string]any{"b": uint64(1), "c": map[string]any{"d": "x"}},
	})
}

// TestDocuments reads testdata/documents/*.conf files and compares them
// against the JSON file of the same name. When a .schema file is present
// the document is also validated against it.
func TestDocuments(t *testing.T) {
	files, err := filepath.Glob("testdata/documents/*.conf")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no documents in testdata/documents")

	for _, path := range files {
		base := strings.TrimSuffix(path, ".conf")
		t.Run(filepath.Base(base), func(t *testing.T) {
			b, err := os.ReadFile(path)
			require.NoError(t, err)

			var doc any
			require.NoError(t, Unmarshal(b, &doc))

			var want any
			b, err = os.ReadFile(base + ".json")
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(b, &want))

			assert.Equal(t, want, normalizeToJSON(doc))

			schema, err := os.ReadFile(base + ".schema")
			if errors.Is(err, os.ErrNotExist) {
				return
			}
			require.NoError(t, err)

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()

			var conformed any
			s, err := ParseSchema(string(schema))
			require.NoError(t, err)
			require.NoError(t, NewDecoder(f).Schema(s).Decode(&conformed))
			assert.Equal(t, want, normalizeToJSON(conformed))
		})
	}
}

// json uses float64 for all numbers. Convert all numbers to the same type
// in the parsed structure to make a deep comparison possible.
func normalizeToJSON(data any) any {
	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = normalizeToJSON(val)
		}
		return result
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return v
	}
}

func TestDecodeValue(t *testing.T) {
	f := func(name string, src Value, dst any, expected any) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			require.NoError(t, DecodeValue(src, dst))
			assert.Equal(t, expected, dst)
		})
	}

	f("int8", Int(-5), new(int8), pointer(int8(-5)))
	f("uint16", Uint(7), new(uint16), pointer(uint16(7)))
	f("float32", Float(0.5), new(float32), pointer(float32(0.5)))
	f("uint_into_int", Uint(3), new(int), pointer(3))
	f("whole_float_into_int", Float(4), new(int64), pointer(int64(4)))
	f("int_into_float", Int(-2), new(float64), pointer(-2.0))
	f("null_zeroes", Null{}, pointer("x"), pointer(""))
	f("value_interface", Uint(1), new(Value), pointer[Value](Uint(1)))
	f("pointer", String("s"), new(*string), pointer(pointer("s")))
	f("map_of_uint", dict("a", Uint(1), "b", Uint(2)), new(map[string]uint), &map[string]uint{"a": 1, "b": 2})

	type named string
	f("named_map_values", dict("k", String("v")), new(map[string]named), &map[string]named{"k": "v"})
}

func pointer[T any](v T) *T { return &v }

func TestDecodeValueErrors(t *testing.T) {
	f := func(name string, src Value, dst any, msg string) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			err := DecodeValue(src, dst)
			require.Error(t, err)
			assert.Contains(t, err.Error(), msg)
		})
	}

	var nilPtr *string
	f("nil_destination", String("x"), nil, "nil value")
	f("non_pointer", String("x"), "", "not a pointer")
	f("nil_pointer", String("x"), nilPtr, "pointer is nil")
	f("string_into_int", String("x"), new(int), "cannot unmarshal string into integer")
	f("fraction_into_int", Float(2.5), new(int), "cannot unmarshal float 2.5 into integer type")
	f("negative_into_uint", Int(-1), new(uint), "negative value -1")
	f("negative_float_into_uint", Float(-1), new(uint), "negative value -1")
	f("overflow_int8", Uint(300), new(int8), "value 300 overflows int8")
	f("overflow_uint8", Int(256), new(uint8), "value 256 overflows uint8")
	f("uint_overflows_int64", Uint(math.MaxUint64), new(int64), "overflows int64")
	f("overflow_float32", Float(1e300), new(float32), "overflows float32")
	f("bool_into_string", Bool(true), new(string), "cannot unmarshal bool into string")
	f("number_into_bool", Uint(1), new(bool), "cannot unmarshal unsigned_integer into bool")
	f("scalar_into_map", Uint(1), new(map[string]any), "cannot unmarshal unsigned_integer into map")
	f("int_keyed_map", dict("a", Uint(1)), new(map[int]any), "non-string keys")
	f("scalar_into_struct", String("x"), new(struct{ A int }), "into struct")
	f("slice", Uint(1), new([]int), "cannot unmarshal unsigned_integer into []int")
	f("non_empty_interface", Uint(1), new(io.Reader), "cannot unmarshal unsigned_integer into io.Reader")
	f("nested_path", dict("a", dict("b", String("x"))), new(map[string]map[string]int), `"a.b": cannot unmarshal string into integer`)
}

func TestDecoderSchema(t *testing.T) {
	s, err := ParseSchema("port: integer\nratio: float")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, NewDecoder(strings.NewReader("port = 8080\nratio = 1.0")).Schema(s).Decode(&out))
	assert.Equal(t, map[string]any{"port": int64(8080), "ratio": 1.0}, out)

	err = NewDecoder(strings.NewReader("port = 1.5\nratio = 1.0")).Schema(s).Decode(&out)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	err = NewDecoder(strings.NewReader("port = 1")).Schema(s).Decode(&out)
	assert.ErrorIs(t, err, ErrMissingKey)
}

// TestDecoderMultipleDecodes checks that a decoder consumes its input.
func TestDecoderMultipleDecodes(t *testing.T) {
	decoder := NewDecoder(strings.NewReader(`foo = "bar"`))

	var result1 any
	require.NoError(t, decoder.Decode(&result1))
	assert.Equal(t, map[string]any{"foo": "bar"}, result1)

	// The reader is drained, so the second document is empty.
	var result2 any
	require.NoError(t, decoder.Decode(&result2))
	assert.Equal(t, map[string]any{}, result2)
}

func TestDecoderWithDifferentReaderTypes(t *testing.T) {
	data := "count = 42\nactive = true"
	v := map[string]any{"count": uint64(42), "active": true}

	f := func(name string, reader func() io.Reader) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			var result any
			require.NoError(t, NewDecoder(reader()).Decode(&result))
			assert.Equal(t, v, result)
		})
	}

	f("strings.Reader", func() io.Reader { return strings.NewReader(data) })
	f("bytes.Buffer", func() io.Reader { return bytes.NewBufferString(data) })
	f("bytes.Reader", func() io.Reader { return bytes.NewReader([]byte(data)) })
}

func TestDecoderErrorHandling(t *testing.T) {
	t.Run("nil dest", func(t *testing.T) {
		err := NewDecoder(strings.NewReader(`key = "value"`)).Decode(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil value")
	})

	t.Run("non-pointer dest", func(t *testing.T) {
		err := NewDecoder(strings.NewReader(`key = "value"`)).Decode(make(map[string]any))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a pointer")
	})

	t.Run("reader error", func(t *testing.T) {
		var result any
		err := NewDecoder(&errorReader{err: errors.New("reader error")}).Decode(&result)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reader error")
	})

	t.Run("syntax error", func(t *testing.T) {
		var result any
		err := NewDecoder(strings.NewReader("a = 1\nb == 2")).Decode(&result)
		assert.ErrorIs(t, err, ErrMultipleSeparators)
	})
}

// errorReader is a helper type that always returns an error when reading
type errorReader struct {
	err error
}

func (e *errorReader) Read(p []byte) (n int, err error) {
	return 0, e.err
}

func FuzzParsing(f *testing.F) {
	inputs := []string{
		"",
		"   \n  \n  ",
		"# comment\n# another comment",
		"key = value",
		"key = true",
		"key = 123",
		"key = -123",
		"key = 123.456",
		"key = .5",
		"key = 1.2.3",
		"key = \"hello world\"",
		"key = 'single'",
		"key = \"esc \\n \\t \\\" \\\\\"",
		"key = \"unterminated",
		"key =",
		"key = # comment",
		"a.b.c = 1",
		"a..b = 1",
		"-a = 1",
		"a- = 1",
		"1a = 1",
		"a = 1\na.b = 2",
		"a = b = c",
		"= value",
		"key value",
		"key = @invalid",
		"key = x \"y\"",
		"server.port: unsigned_integer",
		"\r\n\r\n",
	}

	for _, seed := range inputs {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		_, _ = ParseSchema(input)

		d, err := ParseConfig(input)
		if err != nil {
			return
		}

		// Whatever parses must survive a round trip through the encoder
		// unless it holds a key or value the encoder cannot write. "-0"
		// reads back as an unsigned zero, so compare fingerprints.
		out, err := Marshal(d)
		if err != nil {
			return
		}
		again, err := ParseConfig(string(out))
		if err != nil {
			t.Fatalf("re-parsing %q: %v", out, err)
		}
		want, err := Fingerprint(d)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Fingerprint(again)
		if err != nil {
			t.Fatal(err)
		}
		if want != got {
			t.Fatalf("round trip mismatch for %q:\n%s", input, out)
		}
	})
}

func BenchmarkParse(b *testing.B) {
	data, err := os.ReadFile("testdata/documents/service.conf")
	if err != nil {
		b.Fatalf("failed to read service.conf: %v", err)
	}
	b.ReportAllocs()

	for b.Loop() {
		if _, err := ParseConfig(string(data)); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkParseJSON(b *testing.B) {
	data, err := os.ReadFile("testdata/documents/service.json")
	if err != nil {
		b.Fatalf("failed to read service.json: %v", err)
	}
	b.ReportAllocs()

	for b.Loop() {
		var result any
		if err := json.Unmarshal(data, &result); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}
