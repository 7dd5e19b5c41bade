// Package rewrite applies the macro expansion to whole Swift source files.
//
// Every declaration carrying the macro attribute is replaced in place by its
// computed property, followed by the synthesized peer declarations. The
// synthesized is-set flag is expanded as well, so the output needs no macro
// support to compile. Declarations that produce diagnostics are left exactly
// as written.
package rewrite

import (
	"fmt"
	"log"
	"strings"

	"github.com/dejo1307/assocgen/internal/diag"
	"github.com/dejo1307/assocgen/internal/macro"
	"github.com/dejo1307/assocgen/internal/syntax"
)

const indentUnit = "    "

// Expansion describes one rewritten property.
type Expansion struct {
	File     string          `json:"file"`
	Owner    string          `json:"owner,omitempty"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Inferred bool            `json:"inferred,omitempty"`
	Shape    string          `json:"shape"`
	Key      string          `json:"key"`
	Policy   string          `json:"policy"`
	Flag     string          `json:"flag,omitempty"`
	Peers    []string        `json:"peers,omitempty"`
	Pos      syntax.Position `json:"pos"`
}

// Result is the outcome of rewriting one file.
type Result struct {
	File        string
	Source      string
	Changed     bool
	Expansions  []Expansion
	Diagnostics []diag.Diagnostic
}

// Rewriter rewrites sources with a fixed expander.
type Rewriter struct {
	x *macro.Expander
}

// New creates a Rewriter.
func New(opts macro.Options) *Rewriter {
	return &Rewriter{x: macro.New(opts)}
}

// Attribute returns the attribute name the rewriter looks for.
func (r *Rewriter) Attribute() string {
	return r.x.Options().Attribute
}

// Rewrite expands every annotated declaration in src. file is only used to
// label results and diagnostics. Lexing errors abort the file.
func (r *Rewriter) Rewrite(file, src string) (*Result, error) {
	toks, err := syntax.Tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("tokenizing %s: %w", file, err)
	}
	p := syntax.NewParser(src, toks)
	res := &Result{File: file}

	var out strings.Builder
	last := 0
	owners := newOwnerStack()

	for i := 0; i < len(toks); {
		tok := toks[i]
		if tok.Type != syntax.AT || !syntax.DeclStart(toks, i) || !r.annotated(toks, i) {
			owners.observe(toks, i)
			i++
			continue
		}

		decl, err := p.ParseDecl(i)
		if err != nil {
			log.Printf("[rewrite] %s: skipping unparsable declaration: %v", file, err)
			owners.observe(toks, i)
			i++
			continue
		}
		next := decl.Next
		if next <= i {
			next = i + 1
		}
		if decl.Attribute(r.Attribute()) == nil {
			i = next
			continue
		}

		exp, text, diags := r.expand(decl, src)
		if len(diags) > 0 {
			for _, d := range diags {
				d.File = file
				res.Diagnostics = append(res.Diagnostics, d)
			}
			i = next
			continue
		}

		exp.File = file
		exp.Owner = owners.current()
		res.Expansions = append(res.Expansions, exp)

		out.WriteString(src[last:decl.Start])
		out.WriteString(text)
		last = decl.End
		i = next
	}

	if len(res.Expansions) == 0 {
		res.Source = src
		return res, nil
	}
	out.WriteString(src[last:])
	res.Source = out.String()
	res.Changed = res.Source != src
	return res, nil
}

// annotated reports whether the attribute list starting at toks[i] names the
// macro attribute before reaching the declaration keyword.
func (r *Rewriter) annotated(toks []syntax.Token, i int) bool {
	name := r.Attribute()
	depth := 0
	for j := i; j < len(toks)-1; j++ {
		t := toks[j]
		switch t.Type {
		case syntax.LPAREN:
			depth++
		case syntax.RPAREN:
			depth--
		case syntax.AT:
			if depth == 0 && toks[j+1].Literal == name && toks[j+1].Start == t.End {
				return true
			}
		case syntax.IDENT:
			if depth == 0 && j > i && toks[j-1].Type != syntax.AT && toks[j-1].Type != syntax.DOT {
				return false
			}
		case syntax.EOF:
			return false
		}
	}
	return false
}

// expand runs both entry points and renders the replacement for decl.
func (r *Rewriter) expand(decl *syntax.Decl, src string) (Expansion, string, []diag.Diagnostic) {
	peers := r.x.ExpandPeers(decl)
	acc := r.x.ExpandAccessors(decl)
	if diags := merge(peers.Diagnostics, acc.Diagnostics); len(diags) > 0 {
		return Expansion{}, "", diags
	}

	p := acc.Property
	exp := Expansion{
		Name:     p.Name,
		Type:     acc.Type.String(),
		Inferred: p.Inferred,
		Shape:    acc.Shape.String(),
		Key:      acc.Key,
		Policy:   acc.Policy,
		Pos:      decl.Pos,
	}

	base := lineIndent(src, decl.Start)
	head := r.header(decl, src)
	sections := []string{computed(base, head, p.Ident, acc.Type.String(), acc.Getter.Text, acc.Setter.Text)}

	for _, d := range peers.Declarations {
		exp.Peers = append(exp.Peers, d.Name)
		text := d.Text
		if d.Kind == macro.FlagDeclaration {
			exp.Flag = d.Name
			flag, err := r.expandFlag(d)
			if err != nil {
				// The flag is synthesized by us; failing to expand it is a bug.
				panic(fmt.Sprintf("rewrite: expanding %s: %v", d.Name, err))
			}
			text = flag
		}
		sections = append(sections, prefixLines(base, text))
	}

	// The first line continues at decl.Start, which already sits after base.
	out := strings.Join(sections, "\n\n")
	return exp, strings.TrimPrefix(out, base), nil
}

// expandFlag turns the synthesized flag declaration into its computed form.
// Its peers were already emitted by the owning property.
func (r *Rewriter) expandFlag(d macro.Declaration) (string, error) {
	decl, err := syntax.ParseSource(d.Text)
	if err != nil {
		return "", err
	}
	acc := r.x.ExpandAccessors(decl)
	if acc.State != macro.Emitted {
		return "", fmt.Errorf("flag rejected: %s", diag.Format(acc.Diagnostics))
	}
	return computed("", "", acc.Property.Ident, acc.Type.String(), acc.Getter.Text, acc.Setter.Text), nil
}

// header is the source between the declaration start and its keyword, with
// the macro attribute and the whitespace following it removed.
func (r *Rewriter) header(decl *syntax.Decl, src string) string {
	head := src[decl.Start:decl.KeywordStart]
	attr := decl.Attribute(r.Attribute())
	from, to := attr.Start-decl.Start, attr.End-decl.Start
	for to < len(head) && strings.ContainsRune(" \t\r\n", rune(head[to])) {
		to++
	}
	return head[:from] + head[to:]
}

func computed(base, head, ident, typ, getter, setter string) string {
	var sb strings.Builder
	sb.WriteString(base + head + "var " + ident + ": " + typ + " {\n")
	sb.WriteString(prefixLines(base+indentUnit, getter))
	sb.WriteString("\n")
	sb.WriteString(prefixLines(base+indentUnit, setter))
	sb.WriteString("\n" + base + "}")
	return sb.String()
}

// lineIndent returns the leading whitespace of the line containing offset.
func lineIndent(src string, offset int) string {
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return src[start:end]
}

func prefixLines(prefix, text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// merge combines the diagnostics of both entry points without duplicates.
func merge(a, b []diag.Diagnostic) []diag.Diagnostic {
	var out []diag.Diagnostic
	seen := make(map[string]bool)
	for _, d := range append(append([]diag.Diagnostic{}, a...), b...) {
		k := string(d.Kind) + "@" + d.Pos.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}
