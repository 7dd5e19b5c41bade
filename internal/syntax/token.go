package syntax

import "fmt"

// TokenType represents the type of a token.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	IDENT  // name, `name`, $0, #selector
	INT    // 42, 0xFF, 1_000
	FLOAT  // 1.5, 1e3, 0x1p4
	STRING // "text", """multi""", #"raw"#

	AT        // @
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	COMMA     // ,
	COLON     // :
	SEMICOLON // ;
	DOT       // .
	ASSIGN    // =
	QUESTION  // ?
	BANG      // !
	AMP       // &
	LT        // <
	GT        // >
	ARROW     // ->
	OPERATOR  // any other operator run: +, ==, ..., &&
)

var tokenNames = map[TokenType]string{
	ILLEGAL:   "ILLEGAL",
	EOF:       "EOF",
	IDENT:     "IDENT",
	INT:       "INT",
	FLOAT:     "FLOAT",
	STRING:    "STRING",
	AT:        "@",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	LBRACKET:  "[",
	RBRACKET:  "]",
	COMMA:     ",",
	COLON:     ":",
	SEMICOLON: ";",
	DOT:       ".",
	ASSIGN:    "=",
	QUESTION:  "?",
	BANG:      "!",
	AMP:       "&",
	LT:        "<",
	GT:        ">",
	ARROW:     "->",
	OPERATOR:  "OPERATOR",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Position is a location in a source file.
type Position struct {
	Line   int `json:"line"`   // 1-based
	Column int `json:"column"` // 1-based, in runes
	Offset int `json:"offset"` // 0-based byte offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string // identifier name (NFC, without backticks) or raw token text
	Pos     Position
	Start   int // byte offset where the token starts
	End     int // byte offset after the token ends

	// NewlineBefore reports whether a line break separates this token from the previous one.
	NewlineBefore bool
}

// Error is a lexing or parsing failure at a source position.
type Error struct {
	Pos Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

func errorAt(pos Position, format string, args ...any) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
