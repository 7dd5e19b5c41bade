package macro

import "text/template"

const associatedPrefix = "__associated_"

// KeyName is the synthesized storage key of property name.
func KeyName(name string) string {
	return associatedPrefix + name + "Key"
}

// FlagName is the synthesized is-set flag of property name.
func FlagName(name string) string {
	return associatedPrefix + name + "IsSet"
}

// DeclarationKind distinguishes synthesized peer declarations.
type DeclarationKind string

const (
	KeyDeclaration  DeclarationKind = "key"
	FlagDeclaration DeclarationKind = "flag"
)

// Declaration is a synthesized peer declaration. Text is unindented Swift.
type Declaration struct {
	Kind DeclarationKind
	Name string
	Text string
}

// Every expansion site gets its own closure literal, so the function address
// used as the key is distinct per declaration and stable for the process.
var keyTemplate = template.Must(template.New("key").Parse(
	`static var {{.}}: UnsafeRawPointer {
    let f: @convention(c) () -> Void = {}
    return unsafeBitCast(f, to: UnsafeRawPointer.self)
}`))

var flagTemplate = template.Must(template.New("flag").Parse(
	`@{{.Attribute}}({{.Policy}})
var {{.Name}}: Bool = false`))

// SynthesizeKeys returns the peer declarations for p: the storage key unless a
// custom key was given, and for Shape A the is-set flag plus the flag's own key.
//
// The flag is itself annotated with the macro so that it gets accessors, but
// its key is emitted here directly: peers of synthesized declarations are
// never expanded.
func SynthesizeKeys(p *Property, args Arguments, opts Options) []Declaration {
	opts = opts.withDefaults()
	var out []Declaration
	if args.Key == nil {
		out = append(out, keyDeclaration(KeyName(p.Name)))
	}
	if p.Shape() == ShapeA {
		flag := FlagName(p.Name)
		out = append(out, Declaration{
			Kind: FlagDeclaration,
			Name: flag,
			Text: render(flagTemplate, struct{ Attribute, Policy, Name string }{opts.Attribute, opts.FlagPolicy, flag}),
		})
		out = append(out, keyDeclaration(KeyName(flag)))
	}
	return out
}

func keyDeclaration(name string) Declaration {
	return Declaration{Kind: KeyDeclaration, Name: name, Text: render(keyTemplate, name)}
}
