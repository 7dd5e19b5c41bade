package macro

import (
	"errors"

	"github.com/dejo1307/assocgen/internal/diag"
	"github.com/dejo1307/assocgen/internal/syntax"
)

// Stage selects which legality rules apply.
type Stage int

const (
	// PeerStage checks what key synthesis needs: shape, custom key and type.
	PeerStage Stage = iota
	// AccessorStage checks every rule.
	AccessorStage
)

// Validate inspects decl and applies the legality rules for stage.
// Shape failures abort with a single diagnostic; every other rule is checked
// independently and all findings are returned together.
func Validate(decl *syntax.Decl, args Arguments, stage Stage) (*Property, []diag.Diagnostic) {
	p, err := Inspect(decl)
	if err != nil {
		var se *ShapeError
		if errors.As(err, &se) && se.Kind == MultipleBindingsUnsupported {
			return nil, []diag.Diagnostic{diag.New(diag.MultipleBindings, se.Pos)}
		}
		pos := syntax.Position{}
		if decl != nil {
			pos = decl.Pos
		}
		return nil, []diag.Diagnostic{diag.New(diag.RequiresVariableDeclaration, pos)}
	}

	var diags []diag.Diagnostic
	if args.Key != nil && !args.Key.Value.IsReference() {
		diags = append(diags, diag.New(diag.InvalidCustomKey, args.Key.Pos))
	}
	if p.Type == nil {
		diags = append(diags, diag.New(diag.SpecifyTypeExplicitly, p.Binding.Pattern.Pos))
	}
	if stage == AccessorStage {
		if p.Getter != nil {
			diags = append(diags, diag.New(diag.AccessorImplemented, p.Getter.Pos))
		}
		if p.Setter != nil {
			diags = append(diags, diag.New(diag.AccessorImplemented, p.Setter.Pos))
		}
		if p.Type != nil && !p.IsOptional() && !p.HasDefault() {
			diags = append(diags, diag.New(diag.RequiresInitialValue, p.Binding.Pos))
		}
	}
	return p, diags
}
