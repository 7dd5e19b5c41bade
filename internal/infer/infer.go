// Package infer derives Swift types from literal expressions.
//
// Inference is purely syntactic: scalar literals map to String, Int, Double
// and Bool, and array and dictionary literals are inferred element-wise with
// the same rule at every nesting level. Anything that is not a literal makes
// inference fail, and the caller must ask for an explicit annotation.
package infer

import "github.com/dejo1307/assocgen/internal/syntax"

// Names of the primitive types literals infer to.
const (
	StringType = "String"
	IntType    = "Int"
	DoubleType = "Double"
	BoolType   = "Bool"
)

// Infer returns the type of a literal expression, or nil if it cannot be inferred.
// The nil literal on its own contributes no type.
func Infer(e *syntax.Expr) *syntax.Type {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case syntax.StringLiteral:
		return syntax.Named(StringType)
	case syntax.IntegerLiteral:
		return syntax.Named(IntType)
	case syntax.FloatLiteral:
		return syntax.Named(DoubleType)
	case syntax.BooleanLiteral:
		return syntax.Named(BoolType)
	case syntax.ArrayLiteral:
		elem := Sequence(e.Elements)
		if elem == nil {
			return nil
		}
		return syntax.ArrayOf(elem)
	case syntax.DictionaryLiteral:
		keys := make([]*syntax.Expr, len(e.Entries))
		values := make([]*syntax.Expr, len(e.Entries))
		for i, entry := range e.Entries {
			keys[i] = entry.Key
			values[i] = entry.Value
		}
		k, v := Sequence(keys), Sequence(values)
		if k == nil || v == nil {
			return nil
		}
		return syntax.DictionaryOf(k, v)
	}
	return nil
}

// Sequence infers the common type of an ordered list of expressions.
//
// Every element must be a literal (or nil). Non-nil elements must agree on a
// single type, except that a mix of Int and Double widens to Double. If any
// element is nil the result is wrapped in an optional.
func Sequence(exprs []*syntax.Expr) *syntax.Type {
	nilPresent := false
	var distinct []*syntax.Type
	seen := make(map[string]bool)

	for _, e := range exprs {
		if e != nil && e.Kind == syntax.NilLiteral {
			nilPresent = true
			continue
		}
		t := Infer(e)
		if t == nil {
			return nil
		}
		if name := t.String(); !seen[name] {
			seen[name] = true
			distinct = append(distinct, t)
		}
	}

	var result *syntax.Type
	switch {
	case len(distinct) == 1:
		result = distinct[0]
	case len(distinct) == 2 && seen[IntType] && seen[DoubleType]:
		result = syntax.Named(DoubleType)
	default:
		return nil
	}
	if nilPresent {
		result = syntax.OptionalOf(result)
	}
	return result
}
