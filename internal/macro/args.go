package macro

import "github.com/dejo1307/assocgen/internal/syntax"

// Options configure the expander. Zero fields take the defaults below.
type Options struct {
	// Attribute is the macro attribute name, without '@'.
	Attribute string
	// DefaultPolicy is forwarded when the attribute has no positional policy argument.
	DefaultPolicy string
	// FlagPolicy is the policy of the synthesized is-set flag.
	FlagPolicy string
}

const (
	DefaultAttribute  = "AssociatedObject"
	DefaultPolicy     = ".retain(.nonatomic)"
	DefaultFlagPolicy = ".OBJC_ASSOCIATION_RETAIN_NONATOMIC"
)

func (o Options) withDefaults() Options {
	if o.Attribute == "" {
		o.Attribute = DefaultAttribute
	}
	if o.DefaultPolicy == "" {
		o.DefaultPolicy = DefaultPolicy
	}
	if o.FlagPolicy == "" {
		o.FlagPolicy = DefaultFlagPolicy
	}
	return o
}

// Arguments are the macro's own arguments: `@AssociatedObject(policy, key: ref)`.
type Arguments struct {
	Policy *syntax.Expr     // first positional argument
	Key    *syntax.Argument // `key:` argument
}

// ParseArguments extracts the policy and custom key from the attribute.
// Unknown labeled arguments are ignored.
func ParseArguments(attr *syntax.Attribute) Arguments {
	var args Arguments
	if attr == nil {
		return args
	}
	for _, a := range attr.Args {
		switch {
		case a.Label == "" && args.Policy == nil:
			args.Policy = a.Value
		case a.Label == "key" && args.Key == nil:
			args.Key = a
		}
	}
	return args
}

// PolicyExpr is the policy forwarded verbatim to every store call.
func (a Arguments) PolicyExpr(opts Options) string {
	if a.Policy != nil {
		return a.Policy.Text
	}
	return opts.withDefaults().DefaultPolicy
}

// KeyExpr is the key expression used at every storage call site: the custom
// key by reference, or the synthesized key through the owning type.
func (a Arguments) KeyExpr(name string) string {
	if a.Key != nil {
		return "&" + a.Key.Value.Text
	}
	return "Self." + KeyName(name)
}
