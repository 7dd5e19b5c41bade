package rewrite

import (
	"strings"

	"github.com/dejo1307/assocgen/internal/syntax"
)

var typeKeywords = map[string]bool{
	"class": true, "struct": true, "enum": true, "extension": true, "actor": true, "protocol": true,
}

// notTypeNames follow `class` when it is used as a modifier.
var notTypeNames = map[string]bool{
	"var": true, "let": true, "func": true, "subscript": true, "final": true, "override": true,
	"public": true, "private": true, "fileprivate": true, "internal": true, "open": true, "static": true,
}

// ownerStack tracks the enclosing type declarations while scanning tokens.
// Every '{' pushes a scope; scopes opened by a type declaration carry its name.
type ownerStack struct {
	scopes  []string
	pending string
}

func newOwnerStack() *ownerStack {
	return &ownerStack{}
}

func (s *ownerStack) observe(toks []syntax.Token, i int) {
	t := toks[i]
	switch t.Type {
	case syntax.IDENT:
		if !typeKeywords[t.Literal] || i+1 >= len(toks) || (i > 0 && toks[i-1].Type == syntax.DOT) {
			return
		}
		if n := toks[i+1]; n.Type == syntax.IDENT && !notTypeNames[n.Literal] {
			s.pending = dottedName(toks, i+1)
		}
	case syntax.LBRACE:
		s.scopes = append(s.scopes, s.pending)
		s.pending = ""
	case syntax.RBRACE:
		if len(s.scopes) > 0 {
			s.scopes = s.scopes[:len(s.scopes)-1]
		}
	}
}

// current returns the dotted path of the enclosing types, or "" at file scope.
func (s *ownerStack) current() string {
	var names []string
	for _, n := range s.scopes {
		if n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ".")
}

func dottedName(toks []syntax.Token, i int) string {
	name := toks[i].Literal
	for i+2 < len(toks) && toks[i+1].Type == syntax.DOT && toks[i+2].Type == syntax.IDENT {
		name += "." + toks[i+2].Literal
		i += 2
	}
	return name
}
