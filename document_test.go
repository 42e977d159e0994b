package sorbe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckKeyPaths(t *testing.T) {
	f := func(name string, paths []string, expectedErr error, key string) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			split := make([][]string, len(paths))
			for i, p := range paths {
				split[i] = strings.Split(p, ".")
			}

			err := CheckKeyPaths(split)
			if expectedErr == nil {
				assert.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, expectedErr)
			var docErr *DocumentError
			require.ErrorAs(t, err, &docErr)
			assert.Equal(t, key, docErr.Key)
			assert.Zero(t, docErr.Line)
		})
	}

	f("empty", nil, nil, "")
	f("distinct", []string{"a", "b", "c.d"}, nil, "")
	f("siblings", []string{"a.b", "a.c", "a.d.e"}, nil, "")
	f("shared_text_prefix", []string{"a.b", "a.bc"}, nil, "")
	f("shared_segment_prefix", []string{"ab", "a.b"}, nil, "")
	f("duplicate", []string{"a", "b", "a"}, ErrDuplicateKey, "a")
	f("duplicate_nested", []string{"a.b", "a.b"}, ErrDuplicateKey, "a.b")
	f("leaf_then_child", []string{"a", "a.b"}, ErrKeyPathConflict, "a")
	f("child_then_leaf", []string{"a.b", "a"}, ErrKeyPathConflict, "a")
	f("deep_conflict", []string{"x.y", "x.y.z.w"}, ErrKeyPathConflict, "x.y")
	f("first_path_with_children", []string{"a.b", "c", "c.d", "a"}, ErrKeyPathConflict, "c")
	f("ancestor_reported", []string{"x.y.z", "x.y", "x"}, ErrKeyPathConflict, "x.y")
	f("duplicate_reported_before_conflict", []string{"a.b", "a", "c", "c"}, ErrDuplicateKey, "c")
}

func TestDocumentErrorLines(t *testing.T) {
	f := func(name, input string, expectedErr error, msg string) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig(input)
			require.ErrorIs(t, err, expectedErr)
			assert.Equal(t, msg, err.Error())
		})
	}

	f("duplicate", "a = 1\nb = 2\na = 3", ErrDuplicateKey, `line 3: duplicate key "a"`)
	f("conflict_leaf_first", "a = 1\n\na.b = 2", ErrKeyPathConflict, `line 3: key path conflict "a"`)
	f("conflict_child_first", "a.b = 2\na = 1", ErrKeyPathConflict, `line 2: key path conflict "a"`)
	f("conflict_in_document_order", "a.b = 1\nc = 2\nc.d = 3\na = 4", ErrKeyPathConflict, `line 3: key path conflict "c"`)
}
