package sorbe

import (
	"unicode/utf8"
)

// charClass is the lexical category of an ASCII byte under a dialect.
type charClass uint8

const (
	classInvalid charClass = iota
	classSkip
	classSeparator
	classDot
	classNewline
	classQuote
	classComment
	classIdent
)

// baseInvalid lists characters that are forbidden outside quoted identifiers in
// every dialect.
const baseInvalid = "[]{},;!@$%^&*()+"

// Dialect parameterizes the lexer for one kind of document.
type Dialect struct {
	name      string
	separator byte
	classes   [utf8.RuneSelf]charClass
}

var (
	// ConfigDialect lexes value documents: "key = value".
	ConfigDialect = NewDialect("config", '=', ";")

	// SchemaDialect lexes schema documents: "key: type". Quotes are not allowed.
	SchemaDialect = NewDialect("schema", ':', `="'`)
)

// NewDialect returns a dialect using sep as the statement separator and
// rejecting the characters in invalid in addition to the base set.
func NewDialect(name string, sep byte, invalid string) *Dialect {
	d := &Dialect{name: name, separator: sep}

	for c := 0x21; c < 0x7f; c++ {
		d.classes[c] = classIdent
	}
	d.classes[' '] = classSkip
	d.classes['\t'] = classSkip
	d.classes['\r'] = classSkip
	d.classes['\n'] = classNewline
	d.classes['.'] = classDot
	d.classes['#'] = classComment
	d.classes['"'] = classQuote
	d.classes['\''] = classQuote

	for i := 0; i < len(baseInvalid); i++ {
		d.classes[baseInvalid[i]] = classInvalid
	}
	for i := 0; i < len(invalid); i++ {
		if invalid[i] < utf8.RuneSelf {
			d.classes[invalid[i]] = classInvalid
		}
	}
	d.classes[sep] = classSeparator

	return d
}

// Name returns the dialect name.
func (d *Dialect) Name() string { return d.name }

// Separator returns the byte separating keys from values.
func (d *Dialect) Separator() byte { return d.separator }

func (d *Dialect) classify(c byte) charClass {
	if c >= utf8.RuneSelf {
		return classInvalid
	}
	return d.classes[c]
}

// lexer tokenizes a whole document held in memory.
type lexer struct {
	d      *Dialect
	src    string
	pos    int // Byte offset of the next unread character.
	line   int // Current line number (1-based).
	col    int // Column of src[pos] (1-based).
	tokens []Token
	strBuf []byte // Reusable buffer for escaped strings.
}

// Tokenize splits text into tokens under dialect d. The returned slice always
// ends with a single TokenEOF. On failure no tokens are returned.
func Tokenize(text string, d *Dialect) ([]Token, error) {
	if d == nil {
		d = ConfigDialect
	}

	l := &lexer{
		d:      d,
		src:    text,
		line:   1,
		col:    1,
		tokens: make([]Token, 0, len(text)/4+1),
	}
	if err := l.run(); err != nil {
		return nil, err
	}

	return l.tokens, nil
}

func (l *lexer) run() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		line, col := l.line, l.col

		switch l.d.classify(c) {
		case classSkip:
			l.advance()
		case classSeparator:
			l.advance()
			l.emit(TokenSeparator, "", line, col)
		case classDot:
			l.advance()
			l.emit(TokenDot, "", line, col)
		case classNewline:
			l.emit(TokenNewline, "", line, col)
			l.pos++
			l.line++
			l.col = 1
		case classComment:
			l.skipComment()
		case classQuote:
			s, err := l.scanQuoted(c)
			if err != nil {
				return err
			}
			l.emit(TokenQuotedIdent, s, line, col)
		case classIdent:
			s, err := l.scanIdent()
			if err != nil {
				return err
			}
			l.emit(TokenIdent, s, line, col)
		default:
			return l.invalidChar()
		}
	}

	l.emit(TokenEOF, "", l.line, l.col)
	return nil
}

func (l *lexer) emit(typ TokenType, value string, line, col int) {
	l.tokens = append(l.tokens, Token{Type: typ, Value: value, Line: line, Column: col})
}

func (l *lexer) advance() {
	l.pos++
	l.col++
}

// skipComment consumes a comment up to, but not including, the next newline.
func (l *lexer) skipComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance()
	}
}

// scanIdent reads a plain identifier. It stops at whitespace, a dot, the
// separator or a newline; '#' and quotes inside an identifier are kept.
func (l *lexer) scanIdent() (string, error) {
	start := l.pos
	for l.pos < len(l.src) {
		switch l.d.classify(l.src[l.pos]) {
		case classSkip, classDot, classSeparator, classNewline:
			return l.src[start:l.pos], nil
		case classInvalid:
			return "", l.invalidChar()
		}
		l.advance()
	}

	return l.src[start:], nil
}

// scanQuoted reads a quoted identifier opened by quote. Double-quoted bodies
// have their escapes applied; single-quoted bodies are taken verbatim.
func (l *lexer) scanQuoted(quote byte) (string, error) {
	line, col := l.line, l.col
	l.advance() // Consume opening quote.

	// Fast path: no escapes before the terminator.
	start := l.pos
	for i := l.pos; i < len(l.src); i++ {
		c := l.src[i]
		if isControl(c) {
			break
		}
		if c == '\\' && quote == '"' {
			break
		}
		if c == quote {
			l.col += i - l.pos + 1
			l.pos = i + 1
			return l.src[start:i], nil
		}
	}

	// Slow path: apply escapes.
	l.strBuf = l.strBuf[:0]
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isControl(c) {
			break
		}
		if c == quote {
			l.advance()
			return string(l.strBuf), nil
		}
		if c == '\\' && quote == '"' {
			l.advance()
			if l.pos >= len(l.src) || isControl(l.src[l.pos]) {
				break
			}

			switch esc := l.src[l.pos]; esc {
			case 'n':
				l.strBuf = append(l.strBuf, '\n')
			case 't':
				l.strBuf = append(l.strBuf, '\t')
			case 'r':
				l.strBuf = append(l.strBuf, '\r')
			case '0':
				l.strBuf = append(l.strBuf, 0)
			case '\\', '"', '\'':
				l.strBuf = append(l.strBuf, esc)
			default:
				l.strBuf = append(l.strBuf, '\\', esc)
			}
		} else {
			l.strBuf = append(l.strBuf, c)
		}
		l.advance()
	}

	return "", &LexError{Line: line, Column: col, Err: ErrUnterminatedString}
}

// invalidChar reports the character at the current position as invalid.
func (l *lexer) invalidChar() error {
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return &LexError{Line: l.line, Column: l.col, Char: r, Err: ErrInvalidChar}
}

func isControl(c byte) bool {
	return c < 0x20 || c == 0x7f
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
