package macro

import (
	"strings"
	"text/template"

	"github.com/dejo1307/assocgen/internal/syntax"
)

// Accessor is a synthesized get or set accessor. Text is unindented Swift.
type Accessor struct {
	Kind syntax.AccessorKind
	Text string
}

type accessorData struct {
	Ident    string // property identifier as written
	Type     string // declared or inferred type
	Wrapped  string // type with one level of optionality removed
	Optional string // type as a plain optional
	Default  string
	Key      string
	Policy   string
	Flag     string
}

// setCall renders the store call for value.
func (d accessorData) setCall(value string) string {
	return "setAssociatedObject(\n" +
		indentUnit + "self,\n" +
		indentUnit + d.Key + ",\n" +
		indentUnit + value + ",\n" +
		indentUnit + d.Policy + "\n" +
		")"
}

func (d accessorData) SetValue() string    { return d.setCall("value") }
func (d accessorData) SetNewValue() string { return d.setCall("newValue") }

// Shape A: materialize the default once, then trust storage.
var getterMaterializeOnce = template.Must(template.New("getterA").Funcs(templateFuncs).Parse(
	`if !self.{{.Flag}} {
    let value: {{.Type}} = {{continuation .Default 1}}
{{indent 1 .SetValue}}
    self.{{.Flag}} = true
    return value
} else {
    return getAssociatedObject(
        self,
        {{.Key}}
    ) as! {{.Optional}}
}`))

// Shape B: return the stored value, storing the default when storage is empty.
var getterStoreDefault = template.Must(template.New("getterB").Funcs(templateFuncs).Parse(
	`if let value = getAssociatedObject(
    self,
    {{.Key}}
) as? {{.Wrapped}} {
    return value
}
let value: {{.Type}} = {{continuation .Default 0}}
{{.SetValue}}
return value`))

// Shape C: plain lookup falling back to nil.
var getterLookup = template.Must(template.New("getterC").Funcs(templateFuncs).Parse(
	`getAssociatedObject(
    self,
    {{.Key}}
) as? {{.Optional}}
?? {{.Default}}`))

var observerTemplate = template.Must(template.New("observer").Funcs(templateFuncs).Parse(
	`let {{.Name}}: ({{.Type}}) -> Void = { [self] {{.Param}} in
{{- if .Body}}
{{indent 1 .Body}}
{{- end}}
}
{{.Name}}({{.Arg}})`))

type observerData struct {
	Name  string // willSet or didSet
	Type  string
	Param string
	Body  string
	Arg   string
}

// SynthesizeAccessors builds the getter and setter replacing p's storage.
// typ is the resolved type, key the storage key expression and policy the
// association policy expression.
func SynthesizeAccessors(p *Property, typ *syntax.Type, key, policy string) (getter, setter Accessor) {
	d := accessorData{
		Ident:    p.Ident,
		Type:     typ.String(),
		Wrapped:  typ.Unwrapped().String(),
		Optional: typ.AsOptional(),
		Key:      key,
		Policy:   policy,
		Flag:     FlagName(p.Name),
		Default:  "nil",
	}
	if p.Default != nil {
		d.Default = p.Default.Text
	}

	var body string
	switch p.Shape() {
	case ShapeA:
		body = render(getterMaterializeOnce, d)
	case ShapeB:
		body = render(getterStoreDefault, d)
	default:
		body = render(getterLookup, d)
	}
	getter = Accessor{Kind: syntax.GetAccessor, Text: block("get", body)}
	setter = Accessor{Kind: syntax.SetAccessor, Text: block("set", setterBody(p, d))}
	return getter, setter
}

// setterBody orders the setter exactly like native observers: willSet runs
// first, the old value is captured, the value is written, the is-set flag is
// raised, and didSet runs last.
func setterBody(p *Property, d accessorData) string {
	var sections []string
	if p.WillSet != nil {
		sections = append(sections, render(observerTemplate, observerData{
			Name:  "willSet",
			Type:  d.Type,
			Param: paramOr(p.WillSet, "newValue"),
			Body:  Dedent(p.WillSet.Body),
			Arg:   "newValue",
		}))
	}
	if p.DidSet != nil {
		sections = append(sections, "let oldValue = self."+d.Ident)
	}
	sections = append(sections, d.SetNewValue())
	if p.Shape() == ShapeA {
		sections = append(sections, "self."+d.Flag+" = true")
	}
	if p.DidSet != nil {
		sections = append(sections, render(observerTemplate, observerData{
			Name:  "didSet",
			Type:  d.Type,
			Param: paramOr(p.DidSet, "oldValue"),
			Body:  Dedent(p.DidSet.Body),
			Arg:   "oldValue",
		}))
	}
	return strings.Join(sections, "\n\n")
}

func paramOr(a *syntax.Accessor, fallback string) string {
	if a.Param != "" {
		return a.Param
	}
	return fallback
}

func block(keyword, body string) string {
	return keyword + " {\n" + indent(1, body) + "\n}"
}
