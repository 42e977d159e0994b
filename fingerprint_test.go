package sorbe

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fingerprintRegex = regexp.MustCompile(`^blake2b:[0-9a-f]{64}$`)

func TestFingerprint(t *testing.T) {
	fp := func(input string) string {
		t.Helper()
		d, err := ParseConfig(input)
		require.NoError(t, err)
		s, err := Fingerprint(d)
		require.NoError(t, err)
		return s
	}

	base := fp("a.b = 1\na.c = \"x\"\nd = true")
	assert.Regexp(t, fingerprintRegex, base)

	assert.Equal(t, base, fp("d = true\na.c = \"x\"\na.b = 1"), "statement order does not matter")
	assert.Equal(t, base, fp("# comment\n\na.b = 1 # one\na.c = 'x'\nd = true"), "layout does not matter")
	assert.NotEqual(t, base, fp("a.b = 2\na.c = \"x\"\nd = true"))
	assert.NotEqual(t, base, fp("a.b = 1.0\na.c = \"x\"\nd = true"), "floats differ from integers")
	assert.NotEqual(t, base, fp("a.b = \"1\"\na.c = \"x\"\nd = true"))

	// Int and Uint with the same value share a fingerprint.
	i, err := Fingerprint(dict("n", Int(5)))
	require.NoError(t, err)
	u, err := Fingerprint(dict("n", Uint(5)))
	require.NoError(t, err)
	assert.Equal(t, i, u)
}

func TestCanonicalRoundTrip(t *testing.T) {
	d := dict(
		"b", Int(-1),
		"a", Uint(2),
		"t", Bool(true),
		"n", Null{},
		"s", String("héllo"),
		"c", Float(1.5),
		"d", dict("z", Uint(1), "y", Float(0.1)),
	)

	data, err := EncodeCanonical(d)
	require.NoError(t, err)

	got, err := DecodeCanonical(data)
	require.NoError(t, err)

	// Entries come back sorted by key.
	expected := dict(
		"a", Uint(2),
		"b", Int(-1),
		"c", Float(1.5),
		"d", dict("y", Float(0.1), "z", Uint(1)),
		"n", Null{},
		"s", String("héllo"),
		"t", Bool(true),
	)
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := EncodeCanonical(got)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	_, err = DecodeCanonical([]byte{0xff})
	assert.ErrorContains(t, err, "cbor decoding failed")
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{"i": 1, "f": float32(0.5), "m": map[string]any{"x": nil}})
	require.NoError(t, err)
	assert.True(t, dict("f", Float(0.5), "i", Int(1), "m", dict("x", Null{})).Equal(v.(*Dict)))

	_, err = FromAny(map[string]any{"list": []any{1}})
	assert.EqualError(t, err, `"list": unsupported type []interface {}`)
}

func TestSchemaFingerprint(t *testing.T) {
	fp := func(input string) string {
		t.Helper()
		s, err := ParseSchema(input)
		require.NoError(t, err)
		out, err := SchemaFingerprint(s)
		require.NoError(t, err)
		return out
	}

	base := fp("a.b: integer\nc: string?")
	assert.Regexp(t, fingerprintRegex, base)
	assert.Equal(t, base, fp("c: string?\na.b: integer"))
	assert.NotEqual(t, base, fp("a.b: integer\nc: string"))
	assert.NotEqual(t, base, fp("a.b: unsigned_integer\nc: string?"))
}
