package syntax

import "strings"

// Parser parses declarations out of a token stream produced by Tokenize.
// It is random access: callers scan the tokens themselves and ask the parser
// for the declaration starting at a given index.
type Parser struct {
	src  string
	toks []Token
	pos  int
}

// NewParser creates a parser over src and its tokens.
func NewParser(src string, toks []Token) *Parser {
	return &Parser{src: src, toks: toks}
}

// ParseSource tokenizes src and parses the declaration at its first token.
func ParseSource(src string) (*Decl, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return NewParser(src, toks).ParseDecl(0)
}

func (p *Parser) cur() Token {
	return p.peek(0)
}

func (p *Parser) peek(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) next() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *Parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].End
}

func (p *Parser) expect(typ TokenType) (Token, error) {
	t := p.cur()
	if t.Type != typ {
		return t, errorAt(t.Pos, "expected %s, found %s", typ, describe(t))
	}
	p.next()
	return t, nil
}

func describe(t Token) string {
	if t.Type == EOF {
		return "end of file"
	}
	return "'" + t.Literal + "'"
}

var modifierWords = map[string]bool{
	"public": true, "private": true, "fileprivate": true, "internal": true, "open": true,
	"package": true, "static": true, "final": true, "override": true, "lazy": true,
	"weak": true, "unowned": true, "dynamic": true, "mutating": true, "nonmutating": true,
	"nonisolated": true, "required": true, "convenience": true, "optional": true,
	"indirect": true, "isolated": true,
}

// classModifierTargets are keywords after which `class` acts as a modifier.
var classModifierTargets = map[string]bool{
	"var": true, "let": true, "func": true, "subscript": true, "final": true,
	"override": true, "public": true, "private": true, "fileprivate": true,
	"internal": true, "open": true,
}

// DeclStart reports whether the token at index i can begin a declaration:
// it is the first token, follows a line break, or follows a brace or semicolon.
func DeclStart(toks []Token, i int) bool {
	if i == 0 || toks[i].NewlineBefore {
		return true
	}
	switch toks[i-1].Type {
	case LBRACE, RBRACE, SEMICOLON:
		return true
	}
	return false
}

// ParseDecl parses the declaration whose first attribute, modifier or keyword
// is at token index i.
func (p *Parser) ParseDecl(i int) (*Decl, error) {
	p.pos = i
	first := p.cur()
	d := &Decl{Pos: first.Pos, Start: first.Start}

	for p.cur().Type == AT {
		attr, err := p.parseAttribute()
		if err != nil {
			return nil, err
		}
		d.Attributes = append(d.Attributes, attr)
	}

	for p.isModifier() {
		t := p.cur()
		m := Modifier{Name: t.Literal, Pos: t.Pos}
		p.next()
		if p.cur().Type == LPAREN && p.peek(1).Type == IDENT && p.peek(2).Type == RPAREN {
			m.Detail = p.peek(1).Literal
			p.next()
			p.next()
			p.next()
		}
		d.Modifiers = append(d.Modifiers, m)
	}

	kw := p.cur()
	if kw.Type != IDENT {
		return nil, errorAt(kw.Pos, "expected declaration, found %s", describe(kw))
	}
	d.Keyword = kw.Literal
	d.KeywordPos = kw.Pos
	d.KeywordStart = kw.Start
	p.next()

	if d.IsVariable() {
		for {
			b, err := p.parseBinding()
			if err != nil {
				return nil, err
			}
			d.Bindings = append(d.Bindings, b)
			if p.cur().Type != COMMA {
				break
			}
			p.next()
		}
	}
	d.End = p.prevEnd()
	d.Next = p.pos
	return d, nil
}

func (p *Parser) isModifier() bool {
	t := p.cur()
	if t.Type != IDENT {
		return false
	}
	if t.Literal == "class" {
		n := p.peek(1)
		return n.Type == IDENT && classModifierTargets[n.Literal]
	}
	if !modifierWords[t.Literal] {
		return false
	}
	// `optional` and friends are only modifiers when something declaration-like follows.
	n := p.peek(1)
	return n.Type == IDENT || n.Type == LPAREN || n.Type == AT
}

func (p *Parser) parseAttribute() (*Attribute, error) {
	at := p.cur()
	p.next()
	name := p.cur()
	if name.Type != IDENT || name.Start != at.End {
		return nil, errorAt(name.Pos, "expected attribute name after '@'")
	}
	attr := &Attribute{Name: name.Literal, Pos: at.Pos, Start: at.Start}
	p.next()
	for p.cur().Type == DOT && p.peek(1).Type == IDENT {
		attr.Name += "." + p.peek(1).Literal
		p.next()
		p.next()
	}

	if p.cur().Type == LPAREN && p.cur().Start == p.prevEnd() {
		open := p.pos
		close := closesAt(p.toks, open)
		if close < 0 {
			return nil, errorAt(p.cur().Pos, "unterminated attribute argument list")
		}
		attr.HasParens = true
		inner := p.toks[open+1 : close]
		if len(inner) > 0 {
			for _, seg := range splitTopLevel(inner, COMMA) {
				if len(seg) == 0 {
					return nil, errorAt(p.toks[open].Pos, "empty attribute argument")
				}
				arg := &Argument{Pos: seg[0].Pos}
				if len(seg) > 2 && seg[0].Type == IDENT && seg[1].Type == COLON {
					arg.Label = seg[0].Literal
					seg = seg[2:]
				}
				arg.Value = ParseExpr(p.src, seg)
				attr.Args = append(attr.Args, arg)
			}
		}
		p.pos = close
		p.next()
	}
	attr.End = p.prevEnd()
	return attr, nil
}

func (p *Parser) parseBinding() (*Binding, error) {
	t := p.cur()
	b := &Binding{Pos: t.Pos}

	switch {
	case t.Type == IDENT && t.Literal == "_":
		b.Pattern = Pattern{Kind: WildcardPattern, Name: "_", Text: "_", Pos: t.Pos}
		p.next()
	case t.Type == IDENT && !isReservedWord(t.Literal) || t.Type == IDENT && strings.HasPrefix(p.src[t.Start:t.End], "`"):
		b.Pattern = Pattern{Kind: IdentPattern, Name: t.Literal, Text: p.src[t.Start:t.End], Pos: t.Pos}
		p.next()
	case t.Type == LPAREN:
		end, err := p.skipBalanced()
		if err != nil {
			return nil, err
		}
		b.Pattern = Pattern{Kind: TuplePattern, Text: p.src[t.Start:end.End], Pos: t.Pos}
	default:
		return nil, errorAt(t.Pos, "expected pattern, found %s", describe(t))
	}

	if p.cur().Type == COLON {
		p.next()
		b.TypePos = p.cur().Pos
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		b.Type = typ
	}

	if p.cur().Type == ASSIGN {
		p.next()
		init, err := p.parseInitializer()
		if err != nil {
			return nil, err
		}
		b.Init = init
	}

	if p.cur().Type == LBRACE && (b.Init == nil || p.isAccessorBlockStart()) {
		blk, err := p.parseAccessorBlock()
		if err != nil {
			return nil, err
		}
		b.Accessors = blk
	}
	return b, nil
}

// parseInitializer consumes the tokens of an initializer expression. The
// expression ends at a top-level comma, semicolon, closing bracket, an
// accessor block, or a line break that does not continue the expression.
func (p *Parser) parseInitializer() (*Expr, error) {
	first := p.pos
	depth, angle := 0, 0
loop:
	for {
		t := p.cur()
		if t.Type == EOF {
			break
		}
		if depth == 0 {
			if p.pos > first && t.NewlineBefore && !continuesExpression(p.toks[p.pos-1], t) {
				break
			}
			switch t.Type {
			case SEMICOLON, RPAREN, RBRACKET, RBRACE:
				break loop
			case COMMA:
				if angle == 0 {
					break loop
				}
			case LBRACE:
				if p.isAccessorBlockStart() {
					break loop
				}
			}
		}
		switch t.Type {
		case LPAREN, LBRACKET, LBRACE:
			depth++
		case RPAREN, RBRACKET, RBRACE:
			depth--
		case LT:
			if p.pos > first && p.toks[p.pos-1].Type == IDENT && p.toks[p.pos-1].End == t.Start {
				angle++
			}
		case GT:
			if angle > 0 {
				angle--
			}
		}
		p.next()
	}
	if p.pos == first {
		return nil, errorAt(p.cur().Pos, "expected initial value, found %s", describe(p.cur()))
	}
	return ParseExpr(p.src, p.toks[first:p.pos]), nil
}

func continuesExpression(prev, cur Token) bool {
	switch cur.Type {
	case DOT, OPERATOR, ARROW, QUESTION, COLON:
		return true
	}
	switch prev.Type {
	case OPERATOR, ASSIGN, DOT, AMP, ARROW, COMMA, LPAREN, LBRACKET, LBRACE, COLON, QUESTION:
		return true
	}
	return false
}

// isAccessorBlockStart reports whether the '{' at the current position opens
// an explicit accessor list rather than a closure.
func (p *Parser) isAccessorBlockStart() bool {
	if p.cur().Type != LBRACE {
		return false
	}
	save := p.pos
	p.next()
	ok := p.isAccessorStart()
	p.pos = save
	return ok
}

func (p *Parser) isAccessorStart() bool {
	i := 0
	for {
		t := p.peek(i)
		switch {
		case t.Type == AT:
			// @inlinable get
			i += 2
			continue
		case t.Type == IDENT && (t.Literal == "mutating" || t.Literal == "nonmutating"):
			i++
			continue
		case t.Type == IDENT:
			_, ok := accessorKeywords[t.Literal]
			if !ok {
				return false
			}
			n := p.peek(i + 1)
			return n.Type == LBRACE || n.Type == RBRACE || n.Type == LPAREN || n.NewlineBefore ||
				n.Type == SEMICOLON || (n.Type == IDENT && (n.Literal == "async" || n.Literal == "throws" || isAccessorWord(n.Literal)))
		}
		return false
	}
}

func isAccessorWord(s string) bool {
	_, ok := accessorKeywords[s]
	return ok
}

func (p *Parser) parseAccessorBlock() (*AccessorBlock, error) {
	open, err := p.expect(LBRACE)
	if err != nil {
		return nil, err
	}
	blk := &AccessorBlock{Pos: open.Pos}

	if !p.isAccessorStart() {
		// Implicit getter: the whole block is the getter body.
		p.pos--
		close, err := p.skipBalanced()
		if err != nil {
			return nil, err
		}
		blk.Accessors = []*Accessor{{
			Kind:     GetAccessor,
			Body:     p.src[open.End:close.Start],
			HasBody:  true,
			Implicit: true,
			Pos:      open.Pos,
		}}
		return blk, nil
	}

	for p.cur().Type != RBRACE {
		if p.cur().Type == EOF {
			return nil, errorAt(open.Pos, "unterminated accessor block")
		}
		for p.cur().Type == AT {
			if _, err := p.parseAttribute(); err != nil {
				return nil, err
			}
		}
		for p.cur().Type == IDENT && (p.cur().Literal == "mutating" || p.cur().Literal == "nonmutating") {
			p.next()
		}
		kw := p.cur()
		kind, ok := accessorKeywords[kw.Literal]
		if kw.Type != IDENT || !ok {
			return nil, errorAt(kw.Pos, "expected accessor, found %s", describe(kw))
		}
		p.next()
		acc := &Accessor{Kind: kind, Pos: kw.Pos}

		if p.cur().Type == LPAREN {
			p.next()
			name, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			acc.Param = name.Literal
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
		}
		for p.cur().Type == IDENT && (p.cur().Literal == "async" || p.cur().Literal == "throws") {
			p.next()
			if p.cur().Type == LPAREN {
				if _, err := p.skipBalanced(); err != nil {
					return nil, err
				}
			}
		}
		if p.cur().Type == LBRACE {
			bodyOpen := p.cur()
			close, err := p.skipBalanced()
			if err != nil {
				return nil, err
			}
			acc.Body = p.src[bodyOpen.End:close.Start]
			acc.HasBody = true
		}
		if p.cur().Type == SEMICOLON {
			p.next()
		}
		blk.Accessors = append(blk.Accessors, acc)
	}
	p.next()
	return blk, nil
}

// skipBalanced moves past the bracket opened at the current token and returns
// the closing token.
func (p *Parser) skipBalanced() (Token, error) {
	open := p.cur()
	close := closesAt(p.toks, p.pos)
	if close < 0 {
		return Token{}, errorAt(open.Pos, "unbalanced %s", open.Type)
	}
	p.pos = close
	t := p.cur()
	p.next()
	return t, nil
}

// parseType parses a type annotation.
func (p *Parser) parseType() (*Type, error) {
	for p.cur().Type == AT {
		// @escaping, @Sendable ...
		if _, err := p.parseAttribute(); err != nil {
			return nil, err
		}
	}
	start := p.cur()
	var t *Type

	switch {
	case start.Type == LBRACKET:
		p.next()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if p.cur().Type == COLON {
			p.next()
			val, err := p.parseType()
			if err != nil {
				return nil, err
			}
			t = DictionaryOf(elem, val)
		} else {
			t = ArrayOf(elem)
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}

	case start.Type == LPAREN:
		if _, err := p.skipBalanced(); err != nil {
			return nil, err
		}
		for p.cur().Type == IDENT && (p.cur().Literal == "async" || p.cur().Literal == "throws" || p.cur().Literal == "rethrows") {
			p.next()
		}
		if p.cur().Type == ARROW {
			p.next()
			if _, err := p.parseType(); err != nil {
				return nil, err
			}
		}
		t = Named(collapseSpace(p.src[start.Start:p.prevEnd()]))

	case start.Type == IDENT && (start.Literal == "some" || start.Literal == "any" || start.Literal == "inout"):
		p.next()
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		t = Named(start.Literal + " " + inner.String())

	case start.Type == IDENT && !isReservedWord(start.Literal) || start.Type == IDENT && start.Literal == "Self":
		name := start.Literal
		p.next()
		for p.cur().Type == DOT && p.peek(1).Type == IDENT && p.peek(1).Literal != "Type" && p.peek(1).Literal != "Protocol" {
			name += "." + p.peek(1).Literal
			p.next()
			p.next()
		}
		t = Named(name)
		if p.cur().Type == LT && p.cur().Start == p.prevEnd() {
			p.next()
			for {
				arg, err := p.parseType()
				if err != nil {
					return nil, err
				}
				t.Args = append(t.Args, arg)
				if p.cur().Type != COMMA {
					break
				}
				p.next()
			}
			if _, err := p.expect(GT); err != nil {
				return nil, err
			}
			if p.cur().Type == DOT && p.peek(1).Type == IDENT && p.peek(1).Literal != "Type" {
				// Outer<T>.Inner: keep as written.
				p.next()
				p.next()
				t = Named(collapseSpace(p.src[start.Start:p.prevEnd()]))
			}
		}

	default:
		return nil, errorAt(start.Pos, "expected type, found %s", describe(start))
	}

	for p.cur().Start == p.prevEnd() {
		switch c := p.cur(); {
		case c.Type == QUESTION:
			t = OptionalOf(t)
			p.next()
			continue
		case c.Type == BANG:
			t = ImplicitlyUnwrappedOf(t)
			p.next()
			continue
		case c.Type == DOT && p.peek(1).Type == IDENT && (p.peek(1).Literal == "Type" || p.peek(1).Literal == "Protocol"):
			p.next()
			p.next()
			t = Named(collapseSpace(p.src[start.Start:p.prevEnd()]))
			continue
		}
		break
	}
	return t, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
