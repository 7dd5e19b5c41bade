package syntax

// ExprKind tags the variants of an Expr tree.
type ExprKind int

const (
	OpaqueExpr ExprKind = iota
	StringLiteral
	IntegerLiteral
	FloatLiteral
	BooleanLiteral
	NilLiteral
	ArrayLiteral
	DictionaryLiteral
	NameRef      // foo
	MemberAccess // Foo.bar, .bar, self.bar
)

var exprKindNames = [...]string{
	OpaqueExpr:        "opaque",
	StringLiteral:     "string",
	IntegerLiteral:    "integer",
	FloatLiteral:      "float",
	BooleanLiteral:    "boolean",
	NilLiteral:        "nil",
	ArrayLiteral:      "array",
	DictionaryLiteral: "dictionary",
	NameRef:           "name",
	MemberAccess:      "member",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "unknown"
}

// Expr is a closed tagged tree over expression syntax. Only literals and
// simple references are decomposed; everything else is Opaque and keeps its
// source text.
type Expr struct {
	Kind     ExprKind
	Text     string // exact source text
	Pos      Position
	Elements []*Expr     // ArrayLiteral
	Entries  []DictEntry // DictionaryLiteral
}

// DictEntry is one key: value pair of a dictionary literal.
type DictEntry struct {
	Key   *Expr
	Value *Expr
}

// IsLiteral reports whether e is a scalar literal (string, number, boolean or nil).
func (e *Expr) IsLiteral() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case StringLiteral, IntegerLiteral, FloatLiteral, BooleanLiteral, NilLiteral:
		return true
	}
	return false
}

// IsReference reports whether e is a plain name or a member access.
func (e *Expr) IsReference() bool {
	return e != nil && (e.Kind == NameRef || e.Kind == MemberAccess)
}

// ParseExpr builds an Expr from the tokens of one complete expression.
// It returns nil for an empty token slice.
func ParseExpr(src string, toks []Token) *Expr {
	if len(toks) == 0 {
		return nil
	}
	first, last := toks[0], toks[len(toks)-1]
	e := &Expr{Kind: OpaqueExpr, Text: src[first.Start:last.End], Pos: first.Pos}

	switch {
	case len(toks) == 1:
		switch first.Type {
		case STRING:
			e.Kind = StringLiteral
		case INT:
			e.Kind = IntegerLiteral
		case FLOAT:
			e.Kind = FloatLiteral
		case IDENT:
			switch first.Literal {
			case "true", "false":
				e.Kind = BooleanLiteral
			case "nil":
				e.Kind = NilLiteral
			default:
				if !isReservedWord(first.Literal) {
					e.Kind = NameRef
				}
			}
		}
	case len(toks) == 2 && first.Type == OPERATOR && first.Literal == "-" && first.End == last.Start:
		switch last.Type {
		case INT:
			e.Kind = IntegerLiteral
		case FLOAT:
			e.Kind = FloatLiteral
		}
	case first.Type == LBRACKET && closesAt(toks, 0) == len(toks)-1:
		parseCollection(src, toks[1:len(toks)-1], e)
	case isMemberChain(toks):
		e.Kind = MemberAccess
	}
	return e
}

// parseCollection fills e as an array or dictionary literal, or leaves it
// opaque when the bracket contents are neither.
func parseCollection(src string, inner []Token, e *Expr) {
	if len(inner) == 1 && inner[0].Type == COLON {
		e.Kind = DictionaryLiteral
		return
	}
	segments := splitTopLevel(inner, COMMA)
	if n := len(segments); n > 0 && len(segments[n-1]) == 0 {
		segments = segments[:n-1] // trailing comma
	}
	if len(segments) == 0 {
		e.Kind = ArrayLiteral
		return
	}

	colons := 0
	for _, seg := range segments {
		if len(seg) == 0 {
			return
		}
		if indexTopLevel(seg, COLON) >= 0 {
			colons++
		}
	}
	switch colons {
	case 0:
		e.Kind = ArrayLiteral
		for _, seg := range segments {
			e.Elements = append(e.Elements, ParseExpr(src, seg))
		}
	case len(segments):
		e.Kind = DictionaryLiteral
		for _, seg := range segments {
			i := indexTopLevel(seg, COLON)
			if i == 0 || i == len(seg)-1 {
				e.Kind = OpaqueExpr
				e.Entries = nil
				return
			}
			e.Entries = append(e.Entries, DictEntry{
				Key:   ParseExpr(src, seg[:i]),
				Value: ParseExpr(src, seg[i+1:]),
			})
		}
	}
}

// isMemberChain matches `a.b.c`, `.b` and `.b.c` with adjacent tokens.
func isMemberChain(toks []Token) bool {
	if len(toks) < 2 {
		return false
	}
	i := 0
	if toks[0].Type == IDENT {
		if isReservedWord(toks[0].Literal) && toks[0].Literal != "self" && toks[0].Literal != "Self" {
			return false
		}
		i = 1
	}
	if i == len(toks) {
		return false
	}
	for i < len(toks) {
		if toks[i].Type != DOT || i+1 >= len(toks) || toks[i+1].Type != IDENT {
			return false
		}
		if i > 0 && toks[i-1].End != toks[i].Start {
			return false
		}
		if toks[i].End != toks[i+1].Start {
			return false
		}
		i += 2
	}
	return true
}

// closesAt returns the index of the token closing the bracket opened at open, or -1.
func closesAt(toks []Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Type {
		case LPAREN, LBRACKET, LBRACE:
			depth++
		case RPAREN, RBRACKET, RBRACE:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(toks []Token, sep TokenType) [][]Token {
	var out [][]Token
	depth, start := 0, 0
	for i, t := range toks {
		switch t.Type {
		case LPAREN, LBRACKET, LBRACE:
			depth++
		case RPAREN, RBRACKET, RBRACE:
			depth--
		case sep:
			if depth == 0 {
				out = append(out, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(out, toks[start:])
}

func indexTopLevel(toks []Token, typ TokenType) int {
	depth := 0
	for i, t := range toks {
		switch t.Type {
		case LPAREN, LBRACKET, LBRACE:
			depth++
		case RPAREN, RBRACKET, RBRACE:
			depth--
		case typ:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var reservedWords = map[string]bool{
	"true": true, "false": true, "nil": true, "self": true, "Self": true, "super": true,
	"var": true, "let": true, "func": true, "class": true, "struct": true, "enum": true,
	"protocol": true, "extension": true, "actor": true, "import": true, "return": true,
	"if": true, "else": true, "guard": true, "switch": true, "case": true, "default": true,
	"for": true, "while": true, "repeat": true, "in": true, "do": true, "try": true,
	"throw": true, "await": true, "is": true, "as": true, "init": true, "deinit": true,
	"subscript": true, "typealias": true, "static": true, "where": true,
}

func isReservedWord(s string) bool {
	return reservedWords[s]
}
