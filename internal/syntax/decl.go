package syntax

// Decl is a declaration headed by optional attributes and modifiers.
// Only variable declarations (var/let) have their bindings parsed; for every
// other keyword the parser stops right after the keyword.
type Decl struct {
	Attributes []*Attribute
	Modifiers  []Modifier
	Keyword    string
	KeywordPos Position
	Bindings   []*Binding

	Pos          Position
	Start        int // byte offset of the first attribute, modifier or keyword
	KeywordStart int // byte offset of the keyword
	End          int // byte offset after the declaration
	Next         int // index of the first token after the parsed part
}

// IsVariable reports whether the declaration introduces stored or computed variables.
func (d *Decl) IsVariable() bool {
	return d.Keyword == "var" || d.Keyword == "let"
}

// Attribute returns the first attribute with the given name, or nil.
func (d *Decl) Attribute(name string) *Attribute {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Attribute is `@Name` or `@Name(args...)`.
type Attribute struct {
	Name      string
	Args      []*Argument
	HasParens bool
	Pos       Position
	Start     int
	End       int
}

// Argument is one (optionally labeled) attribute argument.
type Argument struct {
	Label string
	Value *Expr
	Pos   Position
}

// Modifier is a declaration modifier such as `public`, `static` or `private(set)`.
type Modifier struct {
	Name   string
	Detail string // "set" for private(set)
	Pos    Position
}

// PatternKind tags binding patterns.
type PatternKind int

const (
	IdentPattern PatternKind = iota
	WildcardPattern
	TuplePattern
)

// Pattern is the left-hand side of a binding.
type Pattern struct {
	Kind PatternKind
	Name string // IdentPattern: identifier as written, backticks stripped
	Text string // source text
	Pos  Position
}

// Binding is one `pattern: Type = initializer { accessors }` clause.
type Binding struct {
	Pattern   Pattern
	Type      *Type
	TypePos   Position
	Init      *Expr
	Accessors *AccessorBlock
	Pos       Position
}

// AccessorKind tags accessors.
type AccessorKind int

const (
	GetAccessor AccessorKind = iota
	SetAccessor
	WillSetAccessor
	DidSetAccessor
	ReadAccessor
	ModifyAccessor
)

var accessorKeywords = map[string]AccessorKind{
	"get":     GetAccessor,
	"set":     SetAccessor,
	"willSet": WillSetAccessor,
	"didSet":  DidSetAccessor,
	"_read":   ReadAccessor,
	"_modify": ModifyAccessor,
}

func (k AccessorKind) String() string {
	for name, kind := range accessorKeywords {
		if kind == k {
			return name
		}
	}
	return "accessor"
}

// AccessorBlock is the `{ ... }` following a binding.
type AccessorBlock struct {
	Accessors []*Accessor
	Pos       Position
}

// Find returns the first accessor of the given kind, or nil.
func (b *AccessorBlock) Find(kind AccessorKind) *Accessor {
	if b == nil {
		return nil
	}
	for _, a := range b.Accessors {
		if a.Kind == kind {
			return a
		}
	}
	return nil
}

// Accessor is one accessor clause. Body holds the raw statements between the
// braces; Implicit marks a getter written as a bare code block.
type Accessor struct {
	Kind     AccessorKind
	Param    string
	Body     string
	HasBody  bool
	Implicit bool
	Pos      Position
}
