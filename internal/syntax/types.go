package syntax

import "strings"

// TypeKind tags the variants of a Type tree.
type TypeKind int

const (
	NamedType TypeKind = iota
	OptionalType
	ImplicitlyUnwrappedType
	ArrayType
	DictionaryType
)

// Type is a closed tagged tree over Swift type syntax.
//
// NamedType carries Name (a dotted path, or the collapsed source text of a
// tuple, function or opaque type) and optional generic Args. OptionalType,
// ImplicitlyUnwrappedType and ArrayType wrap Elem. DictionaryType has Key and
// Elem (the value type).
type Type struct {
	Kind TypeKind
	Name string
	Args []*Type
	Elem *Type
	Key  *Type
}

// Named returns a named type.
func Named(name string, args ...*Type) *Type {
	return &Type{Kind: NamedType, Name: name, Args: args}
}

// OptionalOf wraps t in an optional.
func OptionalOf(t *Type) *Type {
	return &Type{Kind: OptionalType, Elem: t}
}

// ImplicitlyUnwrappedOf wraps t in an implicitly unwrapped optional.
func ImplicitlyUnwrappedOf(t *Type) *Type {
	return &Type{Kind: ImplicitlyUnwrappedType, Elem: t}
}

// ArrayOf returns [t].
func ArrayOf(t *Type) *Type {
	return &Type{Kind: ArrayType, Elem: t}
}

// DictionaryOf returns [k: v].
func DictionaryOf(k, v *Type) *Type {
	return &Type{Kind: DictionaryType, Key: k, Elem: v}
}

// IsOptional reports whether t is T?, T! or a type named exactly Optional.
func (t *Type) IsOptional() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case OptionalType, ImplicitlyUnwrappedType:
		return true
	case NamedType:
		return t.Name == "Optional"
	}
	return false
}

// Unwrapped strips one level of optionality. Non-optional types are returned as is.
func (t *Type) Unwrapped() *Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case OptionalType, ImplicitlyUnwrappedType:
		return t.Elem
	case NamedType:
		if t.Name == "Optional" && len(t.Args) == 1 {
			return t.Args[0]
		}
	}
	return t
}

// AsOptional renders t as a plain optional type: T! becomes T?, T? and
// Optional<T> stay as they are, anything else gains a trailing "?".
func (t *Type) AsOptional() string {
	switch {
	case t == nil:
		return ""
	case t.Kind == ImplicitlyUnwrappedType:
		return t.Elem.String() + "?"
	case t.IsOptional():
		return t.String()
	}
	return t.String() + "?"
}

// String renders the type as Swift source.
func (t *Type) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case OptionalType:
		return t.Elem.String() + "?"
	case ImplicitlyUnwrappedType:
		return t.Elem.String() + "!"
	case ArrayType:
		return "[" + t.Elem.String() + "]"
	case DictionaryType:
		return "[" + t.Key.String() + ": " + t.Elem.String() + "]"
	}
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return t.Name + "<" + strings.Join(args, ", ") + ">"
}

// Equal reports structural equality.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.String() == o.String()
}
