package sorbe

import (
	"strings"
)

// RawValue is the uninterpreted right-hand side of a statement.
type RawValue struct {
	Text   string
	Quoted bool // Text came from a quoted identifier.
}

func (r RawValue) String() string {
	if r.Quoted {
		return "Quoted(" + r.Text + ")"
	}
	return "Plain(" + r.Text + ")"
}

// Pattern is one parsed statement: a key path and its raw value.
type Pattern struct {
	Keys  []string
	Value RawValue
	Line  int
}

// Path returns the dot-joined key path.
func (p Pattern) Path() string {
	return strings.Join(p.Keys, ".")
}

// ParsePatterns splits tokens into newline-delimited statements and validates
// each one. Runs without tokens (blank or comment-only lines) produce nothing.
func ParsePatterns(tokens []Token) ([]Pattern, error) {
	var patterns []Pattern

	start := 0
	for i, tok := range tokens {
		if tok.Type != TokenNewline && tok.Type != TokenEOF {
			continue
		}
		run := tokens[start:i]
		start = i + 1
		if len(run) == 0 {
			continue
		}

		p, err := parseStatement(run)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)

		if tok.Type == TokenEOF {
			break
		}
	}

	return patterns, nil
}

// parseStatement validates one token run and converts it to a pattern.
func parseStatement(run []Token) (Pattern, error) {
	line := run[0].Line

	sep, err := checkLine(run)
	if err != nil {
		return Pattern{}, err
	}
	left, right := run[:sep], run[sep+1:]

	keys, err := checkKey(left, line)
	if err != nil {
		return Pattern{}, err
	}

	value, err := checkValue(right, line)
	if err != nil {
		return Pattern{}, err
	}

	return Pattern{Keys: keys, Value: value, Line: line}, nil
}

// checkLine verifies the statement has exactly one separator with an
// identifier on each side of it, and returns the separator's index.
func checkLine(run []Token) (int, error) {
	line := run[0].Line

	sep := -1
	for i, tok := range run {
		if tok.Type != TokenSeparator {
			continue
		}
		if sep >= 0 {
			return 0, &GrammarError{Line: line, Err: ErrMultipleSeparators}
		}
		sep = i
	}
	if sep < 0 {
		return 0, &GrammarError{Line: line, Err: ErrMissingSeparator}
	}

	if sep == 0 {
		return 0, &GrammarError{Line: line, Err: ErrMissingLeftSide}
	}
	if run[sep-1].Type != TokenIdent {
		return 0, &GrammarError{Line: line, Err: ErrLeftSideMustBeIdent}
	}

	if right := run[sep+1:]; len(right) > 0 && !right[len(right)-1].isIdent() {
		return 0, &GrammarError{Line: line, Err: ErrRightSideInvalidTokens}
	}

	return sep, nil
}

// checkKey verifies the key grammar Ident (Dot Ident)* and returns the segments.
func checkKey(tokens []Token, line int) ([]string, error) {
	keys := make([]string, 0, len(tokens)/2+1)

	for i := 0; ; i++ {
		if i >= len(tokens) || tokens[i].Type != TokenIdent {
			return nil, &GrammarError{Line: line, Err: ErrUnexpectedTokenInKey}
		}

		part := tokens[i].Value
		switch {
		case strings.HasPrefix(part, "-"):
			return nil, &GrammarError{Line: line, Part: part, Err: ErrKeyStartsWithHyphen}
		case strings.HasSuffix(part, "-"):
			return nil, &GrammarError{Line: line, Part: part, Err: ErrKeyEndsWithHyphen}
		case isDigit(part[0]):
			return nil, &GrammarError{Line: line, Part: part, Err: ErrKeyNumeric}
		}
		keys = append(keys, part)

		i++
		if i == len(tokens) {
			return keys, nil
		}
		if tokens[i].Type != TokenDot {
			return nil, &GrammarError{Line: line, Err: ErrUnexpectedTokenInKey}
		}
	}
}

// tokenKind classifies a right-hand side token for disambiguation.
type tokenKind uint8

const (
	kindNumeric tokenKind = iota
	kindText
	kindQuoted
	kindDot
)

func classifyValueToken(tok Token) tokenKind {
	switch tok.Type {
	case TokenDot:
		return kindDot
	case TokenQuotedIdent:
		return kindQuoted
	}
	if isNumeric(tok.Value) {
		return kindNumeric
	}
	return kindText
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// checkValue resolves the right-hand side of a statement. The only legal
// multi-token value is a dotted run of digit-only identifiers such as "1.5"
// or ".5", which the lexer splits at the dot.
func checkValue(tokens []Token, line int) (RawValue, error) {
	switch len(tokens) {
	case 0:
		return RawValue{}, nil
	case 1:
		switch tokens[0].Type {
		case TokenDot:
			return RawValue{}, &GrammarError{Line: line, Err: ErrInvalidValueFormat}
		case TokenQuotedIdent:
			return RawValue{Text: tokens[0].Value, Quoted: true}, nil
		default:
			return RawValue{Text: tokens[0].Value}, nil
		}
	}

	var counts [4]int
	kinds := make([]tokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = classifyValueToken(tok)
		counts[kinds[i]]++
	}

	valueErr := func(err error) (RawValue, error) {
		return RawValue{}, &GrammarError{Line: line, Err: err}
	}

	switch {
	case counts[kindQuoted] > 1:
		return valueErr(ErrMultipleQuotedIdents)
	case counts[kindQuoted] > 0 && counts[kindNumeric]+counts[kindText] > 0:
		return valueErr(ErrMultipleMixedIdents)
	case counts[kindDot] > 1:
		return valueErr(ErrMultipleDots)
	case kinds[len(kinds)-1] == kindDot:
		return valueErr(ErrInvalidValueFormat)
	case counts[kindQuoted] > 0:
		// A quoted identifier next to a dot.
		return valueErr(ErrInvalidValueFormat)
	case counts[kindText] > 1:
		return valueErr(ErrMultipleNonNumericIdents)
	case counts[kindText] > 0:
		// Text mixed with a dot or with digits.
		return valueErr(ErrInvalidValueFormat)
	}

	var b strings.Builder
	for i, tok := range tokens {
		if kinds[i] == kindDot {
			b.WriteByte('.')
			continue
		}
		if i > 0 && kinds[i-1] == kindNumeric {
			return valueErr(ErrInvalidValueFormat)
		}
		b.WriteString(tok.Value)
	}

	return RawValue{Text: b.String()}, nil
}
