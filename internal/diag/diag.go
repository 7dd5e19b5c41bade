// Package diag models expansion diagnostics as plain values.
package diag

import (
	"fmt"
	"strings"

	"github.com/dejo1307/assocgen/internal/syntax"
)

// Kind identifies one of the diagnostics the expander can produce.
type Kind string

const (
	RequiresVariableDeclaration Kind = "requires_variable_declaration"
	MultipleBindings            Kind = "multiple_bindings"
	InvalidCustomKey            Kind = "invalid_custom_key"
	SpecifyTypeExplicitly       Kind = "specify_type_explicitly"
	AccessorImplemented         Kind = "getter_and_setter_must_not_be_implemented"
	RequiresInitialValue        Kind = "requires_initial_value"
)

// Severity of a diagnostic. Every expansion diagnostic is an error.
type Severity string

const SeverityError Severity = "error"

// Message texts are matched verbatim by consumers that snapshot diagnostics.
var messages = map[Kind]string{
	RequiresVariableDeclaration: "`@AssociatedObject` must be attached to the property declaration.",
	MultipleBindings:            "Multiple variable declarations in one statement are not supported when using `@AssociatedObject`.",
	InvalidCustomKey:            "Invalid custom key specification.",
	SpecifyTypeExplicitly:       "Specify a type explicitly when using `@AssociatedObject`.",
	AccessorImplemented:         "Getter and setter must not be implemented when using `@AssociatedObject`.",
	RequiresInitialValue:        "Initial values must be specified when using `@AssociatedObject`.",
}

// Message returns the fixed message text for kind.
func Message(kind Kind) string {
	return messages[kind]
}

// Diagnostic is one problem found while expanding a declaration.
type Diagnostic struct {
	Kind     Kind            `json:"kind"`
	Severity Severity        `json:"severity"`
	Message  string          `json:"message"`
	Pos      syntax.Position `json:"pos"`
	File     string          `json:"file,omitempty"`
}

// New creates an error diagnostic of the given kind anchored at pos.
func New(kind Kind, pos syntax.Position) Diagnostic {
	return Diagnostic{Kind: kind, Severity: SeverityError, Message: Message(kind), Pos: pos}
}

// String formats the diagnostic as file:line:column: severity: message.
func (d Diagnostic) String() string {
	loc := d.Pos.String()
	if d.File != "" {
		loc = d.File + ":" + loc
	}
	return fmt.Sprintf("%s: %s: %s", loc, d.Severity, d.Message)
}

// Format renders one diagnostic per line, in order.
func Format(diags []Diagnostic) string {
	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Kinds returns the kinds of diags in order.
func Kinds(diags []Diagnostic) []Kind {
	out := make([]Kind, len(diags))
	for i, d := range diags {
		out[i] = d.Kind
	}
	return out
}
