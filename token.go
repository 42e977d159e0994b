package sorbe

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota

	TokenIdent       // Plain identifier: key segment or unquoted value text.
	TokenQuotedIdent // Quoted identifier: '...' or "..." with escapes applied.
	TokenSeparator   // '=' in config documents, ':' in schema documents.
	TokenDot         // '.' key path or decimal separator.
	TokenNewline     // '\n' end of statement.
)

var tokenNames = []string{
	TokenEOF:         "EOF",
	TokenIdent:       "identifier",
	TokenQuotedIdent: "quoted identifier",
	TokenSeparator:   "separator",
	TokenDot:         "dot",
	TokenNewline:     "newline",
}

func (t TokenType) String() string {
	if t < 0 || int(t) >= len(tokenNames) {
		return "invalid"
	}
	return tokenNames[t]
}

// Token represents a lexical token from a document.
type Token struct {
	Type   TokenType
	Value  string // Identifier text; empty for punctuation.
	Line   int    // Line number (1-based).
	Column int    // Column position (1-based, in bytes).
}

// String returns a human-readable representation of the token.
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return fmt.Sprintf("Ident(%s)", t.Value)
	case TokenQuotedIdent:
		return fmt.Sprintf("QuotedIdent(%q)", t.Value)
	case TokenSeparator:
		return "Separator"
	case TokenDot:
		return "."
	case TokenNewline:
		return "Newline"
	default:
		return fmt.Sprintf("Unknown(%d)", t.Type)
	}
}

// isIdent reports whether the token is a plain or quoted identifier.
func (t Token) isIdent() bool {
	return t.Type == TokenIdent || t.Type == TokenQuotedIdent
}
