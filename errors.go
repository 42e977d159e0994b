package sorbe

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Lexical errors.
var (
	ErrInvalidChar        = errors.New("invalid character")
	ErrUnterminatedString = errors.New("unterminated string literal")
)

// Line structure errors.
var (
	ErrMissingSeparator       = errors.New("missing separator")
	ErrMultipleSeparators     = errors.New("multiple separators, expected exactly one")
	ErrMissingLeftSide        = errors.New("missing key before separator")
	ErrLeftSideMustBeIdent    = errors.New("token before separator must be an identifier")
	ErrRightSideInvalidTokens = errors.New("value contains invalid tokens")
)

// Key errors.
var (
	ErrUnexpectedTokenInKey = errors.New("unexpected token in key")
	ErrKeyStartsWithHyphen  = errors.New("key cannot start with hyphen")
	ErrKeyEndsWithHyphen    = errors.New("key cannot end with hyphen")
	ErrKeyNumeric           = errors.New("key cannot start with a digit")
)

// Value errors.
var (
	ErrMultipleQuotedIdents     = errors.New("value cannot contain multiple quoted identifiers")
	ErrMultipleMixedIdents      = errors.New("value cannot mix quoted and plain identifiers")
	ErrMultipleDots             = errors.New("value cannot contain multiple dots")
	ErrMultipleNonNumericIdents = errors.New("value cannot contain multiple non-numeric identifiers")
	ErrInvalidValueFormat       = errors.New("invalid value format")
)

// Document errors.
var (
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrKeyPathConflict = errors.New("key path conflict")
)

// Schema errors.
var (
	ErrUnknownType      = errors.New("unknown type")
	ErrQuotedNotAllowed = errors.New("quoted value not allowed in schema")
)

// Validation errors.
var (
	ErrUnknownKey   = errors.New("unknown key")
	ErrMissingKey   = errors.New("missing key")
	ErrTypeMismatch = errors.New("type mismatch")
)

// LexError is returned when the lexer cannot produce a token.
type LexError struct {
	Line   int
	Column int
	Char   rune // Offending character, for ErrInvalidChar.
	Err    error
}

func (e *LexError) Error() string {
	if errors.Is(e.Err, ErrInvalidChar) {
		return fmt.Sprintf("line %d: invalid character %q", e.Line, e.Char)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LexError) Unwrap() error { return e.Err }

// GrammarError is returned when a statement's tokens violate the line, key or
// value grammar.
type GrammarError struct {
	Line int
	Part string // Offending key segment, if any.
	Err  error
}

func (e *GrammarError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Part)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *GrammarError) Unwrap() error { return e.Err }

// DocumentError is returned when key paths collide across statements.
type DocumentError struct {
	Key  string // Dot-joined key path.
	Line int    // Line of the statement that collides, 0 if unknown.
	Err  error
}

func (e *DocumentError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v %q", e.Line, e.Err, e.Key)
	}
	return fmt.Sprintf("%v %q", e.Err, e.Key)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// SchemaError is returned when a schema statement does not name a valid type.
type SchemaError struct {
	Key        string
	Line       int
	Symbol     string
	Suggestion string
	Err        error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("line %d: %v", e.Line, e.Err)
	if e.Symbol != "" {
		msg += fmt.Sprintf(" %q", e.Symbol)
	}
	msg += fmt.Sprintf(" for key %q", e.Key)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// TypeError is returned by Validate when a value tree does not conform to a
// schema tree.
type TypeError struct {
	Path       string // Dot-joined path of the offending node, empty for the root.
	Expected   string
	Found      string
	Suggestion string
	Err        error
}

func (e *TypeError) Error() string {
	var msg string
	switch {
	case errors.Is(e.Err, ErrTypeMismatch):
		msg = fmt.Sprintf("%v: expected %s, found %s", e.Err, e.Expected, e.Found)
		if e.Path != "" {
			msg = fmt.Sprintf("%q: %s", e.Path, msg)
		}
	default:
		msg = fmt.Sprintf("%v %q", e.Err, e.Path)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return "validation error: " + msg
}

func (e *TypeError) Unwrap() error { return e.Err }

// suggest returns the closest candidate to target, or "" if nothing is close.
func suggest(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)

	return ranks[0].Target
}
