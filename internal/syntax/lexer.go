package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Lexer turns Swift source text into tokens. It understands enough of the
// language to find declaration boundaries: comments, all string literal forms
// (including interpolation), numbers, identifiers and punctuation.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// NewLexer creates a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Tokenize lexes the whole source. The returned slice always ends with EOF.
func Tokenize(src string) ([]Token, error) {
	l := NewLexer(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) peekByte(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

// advance moves past one rune, keeping line and column current.
func (l *Lexer) advance() {
	if l.pos >= len(l.src) {
		return
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

// skipTrivia skips whitespace and comments and reports whether a newline was crossed.
func (l *Lexer) skipTrivia() (bool, error) {
	newline := false
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == '\n':
			newline = true
			l.advance()
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v':
			l.advance()
		case ch == '/' && l.peekByte(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekByte(1) == '*':
			start := l.position()
			l.advanceN(2)
			depth := 1
			for depth > 0 {
				if l.pos >= len(l.src) {
					return newline, errorAt(start, "unterminated block comment")
				}
				switch {
				case l.src[l.pos] == '/' && l.peekByte(1) == '*':
					depth++
					l.advanceN(2)
				case l.src[l.pos] == '*' && l.peekByte(1) == '/':
					depth--
					l.advanceN(2)
				default:
					if l.src[l.pos] == '\n' {
						newline = true
					}
					l.advance()
				}
			}
		default:
			return newline, nil
		}
	}
	return newline, nil
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	newline, err := l.skipTrivia()
	if err != nil {
		return Token{}, err
	}
	start := l.position()
	tok := Token{Pos: start, Start: l.pos, NewlineBefore: newline}
	if l.pos >= len(l.src) {
		tok.Type = EOF
		tok.End = l.pos
		return tok, nil
	}

	ch := l.src[l.pos]
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	switch {
	case ch == '"':
		if err := l.readString(0); err != nil {
			return Token{}, err
		}
		tok.Type = STRING
	case ch == '#':
		hashes := 0
		for l.peekByte(hashes) == '#' {
			hashes++
		}
		if l.peekByte(hashes) == '"' {
			l.advanceN(hashes)
			if err := l.readString(hashes); err != nil {
				return Token{}, err
			}
			tok.Type = STRING
		} else {
			// #if, #selector, #file ...
			l.advance()
			l.readIdentifier()
			tok.Type = IDENT
		}
	case ch == '`':
		l.advance()
		nameStart := l.pos
		for l.pos < len(l.src) && l.src[l.pos] != '`' && l.src[l.pos] != '\n' {
			l.advance()
		}
		if l.pos >= len(l.src) || l.src[l.pos] != '`' {
			return Token{}, errorAt(start, "unterminated backtick identifier")
		}
		name := l.src[nameStart:l.pos]
		l.advance()
		tok.Type = IDENT
		tok.Literal = norm.NFC.String(name)
		tok.End = l.pos
		return tok, nil
	case ch == '_' || ch == '$' || unicode.IsLetter(r):
		l.readIdentifier()
		tok.Type = IDENT
		tok.End = l.pos
		tok.Literal = norm.NFC.String(l.src[tok.Start:l.pos])
		return tok, nil
	case isDigit(ch):
		tok.Type = l.readNumber()
	default:
		typ, err := l.readPunct(start)
		if err != nil {
			return Token{}, err
		}
		tok.Type = typ
	}
	tok.End = l.pos
	tok.Literal = l.src[tok.Start:l.pos]
	return tok, nil
}

func (l *Lexer) readIdentifier() {
	for l.pos < len(l.src) {
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		if r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			l.advance()
			continue
		}
		break
	}
}

func (l *Lexer) readNumber() TokenType {
	typ := INT
	if l.src[l.pos] == '0' && strings.IndexByte("xXbBoO", l.peekByte(1)) >= 0 {
		hex := l.peekByte(1) == 'x' || l.peekByte(1) == 'X'
		l.advanceN(2)
		for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.advance()
		}
		if hex && l.peekByte(0) == '.' && isHexDigit(l.peekByte(1)) {
			typ = FLOAT
			l.advance()
			for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
				l.advance()
			}
		}
		if hex && (l.peekByte(0) == 'p' || l.peekByte(0) == 'P') {
			typ = FLOAT
			l.readExponent()
		}
		return typ
	}

	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.advance()
	}
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		typ = FLOAT
		l.advance()
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.advance()
		}
	}
	if e := l.peekByte(0); e == 'e' || e == 'E' {
		next := l.peekByte(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekByte(2))) {
			typ = FLOAT
			l.readExponent()
		}
	}
	return typ
}

func (l *Lexer) readExponent() {
	l.advance() // e, E, p, P
	if l.peekByte(0) == '+' || l.peekByte(0) == '-' {
		l.advance()
	}
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.advance()
	}
}

// readString reads a string literal whose opening quote is at the current
// position. hashes is the number of '#' delimiters already consumed for a raw
// string; the same number must follow the closing quote.
func (l *Lexer) readString(hashes int) error {
	start := l.position()
	multiline := strings.HasPrefix(l.src[l.pos:], `"""`)
	if multiline {
		l.advanceN(3)
	} else {
		l.advance()
	}
	closer := `"` + strings.Repeat("#", hashes)
	if multiline {
		closer = `"""` + strings.Repeat("#", hashes)
	}
	escape := `\` + strings.Repeat("#", hashes)

	for {
		if l.pos >= len(l.src) {
			return errorAt(start, "unterminated string literal")
		}
		rest := l.src[l.pos:]
		switch {
		case strings.HasPrefix(rest, closer):
			l.advanceN(len(closer))
			return nil
		case !multiline && rest[0] == '\n':
			return errorAt(start, "unterminated string literal")
		case strings.HasPrefix(rest, escape):
			l.advanceN(len(escape))
			if l.peekByte(0) == '(' {
				if err := l.skipInterpolation(); err != nil {
					return err
				}
				continue
			}
			l.advance()
		default:
			l.advance()
		}
	}
}

// skipInterpolation skips a balanced \( ... ) segment, which may itself contain strings.
func (l *Lexer) skipInterpolation() error {
	start := l.position()
	depth := 0
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '(':
			depth++
			l.advance()
		case ')':
			depth--
			l.advance()
			if depth == 0 {
				return nil
			}
		case '"':
			if err := l.readString(0); err != nil {
				return err
			}
		default:
			l.advance()
		}
	}
	return errorAt(start, "unterminated string interpolation")
}

const operatorChars = "+-*/%|^~=<>!&?."

func (l *Lexer) readPunct(start Position) (TokenType, error) {
	ch := l.src[l.pos]
	next := l.peekByte(1)
	switch ch {
	case '@':
		l.advance()
		return AT, nil
	case '(':
		l.advance()
		return LPAREN, nil
	case ')':
		l.advance()
		return RPAREN, nil
	case '{':
		l.advance()
		return LBRACE, nil
	case '}':
		l.advance()
		return RBRACE, nil
	case '[':
		l.advance()
		return LBRACKET, nil
	case ']':
		l.advance()
		return RBRACKET, nil
	case ',':
		l.advance()
		return COMMA, nil
	case ':':
		l.advance()
		return COLON, nil
	case ';':
		l.advance()
		return SEMICOLON, nil
	case '?':
		l.advance()
		return QUESTION, nil
	case '!':
		if next == '=' {
			l.readOperatorRun()
			return OPERATOR, nil
		}
		l.advance()
		return BANG, nil
	case '<':
		if next == '=' || next == '<' {
			l.readOperatorRun()
			return OPERATOR, nil
		}
		l.advance()
		return LT, nil
	case '>':
		l.advance()
		return GT, nil
	case '\\':
		l.advance()
		return OPERATOR, nil
	case '.':
		if next == '.' {
			l.readOperatorRun()
			return OPERATOR, nil
		}
		l.advance()
		return DOT, nil
	case '-':
		if next == '>' {
			l.advanceN(2)
			return ARROW, nil
		}
	case '=':
		if next != '=' {
			l.advance()
			return ASSIGN, nil
		}
	case '&':
		if next != '&' && next != '=' {
			l.advance()
			return AMP, nil
		}
	}
	if strings.IndexByte(operatorChars, ch) >= 0 {
		l.readOperatorRun()
		return OPERATOR, nil
	}
	return ILLEGAL, errorAt(start, "unexpected character %q", ch)
}

// readOperatorRun consumes a run of operator characters, stopping before
// comments and before a closing '>' so nested generics still close.
func (l *Lexer) readOperatorRun() {
	first := true
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		if strings.IndexByte(operatorChars, ch) < 0 {
			return
		}
		if ch == '/' && (l.peekByte(1) == '/' || l.peekByte(1) == '*') {
			return
		}
		if !first && (ch == '>' || ch == '?' || ch == '!') && l.src[l.pos-1] != '=' && l.src[l.pos-1] != '-' {
			return
		}
		first = false
		l.advance()
	}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}
