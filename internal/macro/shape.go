package macro

import (
	"fmt"

	"github.com/dejo1307/assocgen/internal/infer"
	"github.com/dejo1307/assocgen/internal/syntax"
)

// ShapeErrorKind classifies declarations that cannot be inspected at all.
type ShapeErrorKind int

const (
	NotAVariableDeclaration ShapeErrorKind = iota
	MultipleBindingsUnsupported
	NotASimpleIdentifierPattern
)

func (k ShapeErrorKind) String() string {
	switch k {
	case NotAVariableDeclaration:
		return "not a variable declaration"
	case MultipleBindingsUnsupported:
		return "multiple bindings unsupported"
	case NotASimpleIdentifierPattern:
		return "not a simple identifier pattern"
	}
	return "unknown shape error"
}

// ShapeError is returned by Inspect for declarations the macro cannot attach to.
type ShapeError struct {
	Kind ShapeErrorKind
	Pos  syntax.Position
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s at %s", e.Kind, e.Pos)
}

// Property is the inspected shape of an annotated variable declaration.
type Property struct {
	Decl    *syntax.Decl
	Binding *syntax.Binding

	Name  string // identifier, backticks stripped
	Ident string // identifier as written

	DeclaredType *syntax.Type // explicit annotation, if any
	Type         *syntax.Type // annotation, else literal inference; nil when unresolved
	Inferred     bool

	Default *syntax.Expr

	Getter  *syntax.Accessor
	Setter  *syntax.Accessor
	WillSet *syntax.Accessor
	DidSet  *syntax.Accessor
}

// IsOptional reports whether the resolved type is optional.
func (p *Property) IsOptional() bool {
	return p.Type.IsOptional()
}

// HasDefault reports whether the declaration has an initial value.
func (p *Property) HasDefault() bool {
	return p.Default != nil
}

// Shape selects the getter strategy for the property.
func (p *Property) Shape() Shape {
	switch {
	case p.IsOptional() && p.HasDefault():
		return ShapeA
	case p.HasDefault():
		return ShapeB
	}
	return ShapeC
}

// Inspect extracts the property shape from a declaration.
func Inspect(decl *syntax.Decl) (*Property, error) {
	if decl == nil || decl.Keyword != "var" || len(decl.Bindings) == 0 {
		pos := syntax.Position{}
		if decl != nil {
			pos = decl.Pos
		}
		return nil, &ShapeError{Kind: NotAVariableDeclaration, Pos: pos}
	}
	if len(decl.Bindings) > 1 {
		return nil, &ShapeError{Kind: MultipleBindingsUnsupported, Pos: decl.Bindings[0].Pos}
	}

	b := decl.Bindings[0]
	if b.Pattern.Kind != syntax.IdentPattern {
		return nil, &ShapeError{Kind: NotASimpleIdentifierPattern, Pos: b.Pattern.Pos}
	}

	p := &Property{
		Decl:         decl,
		Binding:      b,
		Name:         b.Pattern.Name,
		Ident:        b.Pattern.Text,
		DeclaredType: b.Type,
		Type:         b.Type,
		Default:      b.Init,
	}
	if p.Type == nil && p.Default != nil {
		p.Type = infer.Infer(p.Default)
		p.Inferred = p.Type != nil
	}

	if blk := b.Accessors; blk != nil {
		p.Getter = blk.Find(syntax.GetAccessor)
		if p.Getter == nil {
			p.Getter = blk.Find(syntax.ReadAccessor)
		}
		p.Setter = blk.Find(syntax.SetAccessor)
		if p.Setter == nil {
			p.Setter = blk.Find(syntax.ModifyAccessor)
		}
		p.WillSet = blk.Find(syntax.WillSetAccessor)
		p.DidSet = blk.Find(syntax.DidSetAccessor)
	}
	return p, nil
}

// Shape is one of the three getter strategies.
type Shape int

const (
	// ShapeA: optional with default. The default is materialized once and
	// tracked by the is-set flag.
	ShapeA Shape = iota + 1
	// ShapeB: non-optional with default. The default is stored whenever storage is empty.
	ShapeB
	// ShapeC: optional without default. Reads fall back to nil.
	ShapeC
)

func (s Shape) String() string {
	switch s {
	case ShapeA:
		return "A"
	case ShapeB:
		return "B"
	case ShapeC:
		return "C"
	}
	return "-"
}

// Description names the strategy in words.
func (s Shape) Description() string {
	switch s {
	case ShapeA:
		return "optional with default, materialized once"
	case ShapeB:
		return "default stored on empty read"
	case ShapeC:
		return "optional lookup"
	}
	return ""
}
