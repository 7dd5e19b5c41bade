package macro

import (
	"errors"
	"testing"

	"github.com/dejo1307/assocgen/internal/diag"
	"github.com/dejo1307/assocgen/internal/syntax"
	"github.com/nalgeon/be"
)

func parse(t *testing.T, src string) *syntax.Decl {
	t.Helper()
	decl, err := syntax.ParseSource(src)
	be.Err(t, err, nil)
	return decl
}

func TestInspect(t *testing.T) {
	tests := []struct {
		src      string
		name     string
		typ      string
		inferred bool
		shape    Shape
	}{
		{"var a: String? = \"x\"", "a", "String?", false, ShapeA},
		{"var a: Optional<Int> = 1", "a", "Optional<Int>", false, ShapeA},
		{"var a: Int! = 1", "a", "Int!", false, ShapeA},
		{"var a = 1", "a", "Int", true, ShapeB},
		{"var a = -2.5", "a", "Double", true, ShapeB},
		{"var a = [\"k\": [1, nil]]", "a", "[String: [Int?]]", true, ShapeB},
		{"var a: [String: Int] = [:]", "a", "[String: Int]", false, ShapeB},
		{"var a: String?", "a", "String?", false, ShapeC},
		{"public private(set) var a: URL?", "a", "URL?", false, ShapeC},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := Inspect(parse(t, tt.src))
			be.Err(t, err, nil)
			be.Equal(t, p.Name, tt.name)
			be.Equal(t, p.Type.String(), tt.typ)
			be.Equal(t, p.Inferred, tt.inferred)
			be.Equal(t, p.Shape(), tt.shape)
		})
	}
}

func TestInspect_Observers(t *testing.T) {
	p, err := Inspect(parse(t, "var a: Int = 1 {\n  willSet(next) { print(next) }\n  didSet { print(oldValue) }\n}"))
	be.Err(t, err, nil)
	be.True(t, p.WillSet != nil)
	be.Equal(t, p.WillSet.Param, "next")
	be.True(t, p.DidSet != nil)
	be.True(t, p.Getter == nil)
	be.True(t, p.Setter == nil)
}

func TestInspect_ShapeErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind ShapeErrorKind
	}{
		{"let a: Int = 1", NotAVariableDeclaration},
		{"func f() {}", NotAVariableDeclaration},
		{"var a = 1, b = 2", MultipleBindingsUnsupported},
		{"var (a, b) = (1, 2)", NotASimpleIdentifierPattern},
		{"var _ = 1", NotASimpleIdentifierPattern},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Inspect(parse(t, tt.src))
			var se *ShapeError
			be.True(t, errors.As(err, &se))
			be.Equal(t, se.Kind, tt.kind)
		})
	}
	_, err := Inspect(nil)
	be.Err(t, err)
}

func TestParseArguments(t *testing.T) {
	decl := parse(t, "@AssociatedObject(.copy(.atomic), key: myKey)\nvar a: Int?")
	args := ParseArguments(decl.Attribute(DefaultAttribute))
	be.Equal(t, args.Policy.Text, ".copy(.atomic)")
	be.Equal(t, args.Key.Value.Text, "myKey")
	be.Equal(t, args.PolicyExpr(Options{}), ".copy(.atomic)")
	be.Equal(t, args.KeyExpr("a"), "&myKey")

	none := ParseArguments(nil)
	be.Equal(t, none.PolicyExpr(Options{DefaultPolicy: ".assign"}), ".assign")
	be.Equal(t, none.PolicyExpr(Options{}), DefaultPolicy)
	be.Equal(t, none.KeyExpr("a"), "Self.__associated_aKey")
}

func TestValidate_PeerStageSkipsAccessorRules(t *testing.T) {
	decl := parse(t, "@AssociatedObject\nvar a: Int { get { 1 } }")
	args := ParseArguments(decl.Attribute(DefaultAttribute))

	_, diags := Validate(decl, args, PeerStage)
	be.Equal(t, len(diags), 0)

	_, diags = Validate(decl, args, AccessorStage)
	be.Equal(t, diag.Kinds(diags), []diag.Kind{diag.AccessorImplemented, diag.RequiresInitialValue})
}

func TestValidate_UnresolvedTypeSkipsInitialValueRule(t *testing.T) {
	decl := parse(t, "var a = make()")
	_, diags := Validate(decl, Arguments{}, AccessorStage)
	be.Equal(t, diag.Kinds(diags), []diag.Kind{diag.SpecifyTypeExplicitly})
}

func TestSynthesizeKeys(t *testing.T) {
	tests := []struct {
		src   string
		names []string
	}{
		{"@AssociatedObject\nvar a: Int = 1", []string{"__associated_aKey"}},
		{"@AssociatedObject\nvar a: Int?", []string{"__associated_aKey"}},
		{"@AssociatedObject\nvar a: Int? = 1", []string{"__associated_aKey", "__associated_aIsSet", "__associated___associated_aIsSetKey"}},
		{"@AssociatedObject(.assign, key: k)\nvar a: Int?", nil},
		{"@AssociatedObject(.assign, key: k)\nvar a: Int? = 1", []string{"__associated_aIsSet", "__associated___associated_aIsSetKey"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			decl := parse(t, tt.src)
			p, err := Inspect(decl)
			be.Err(t, err, nil)
			decls := SynthesizeKeys(p, ParseArguments(decl.Attribute(DefaultAttribute)), Options{})
			var names []string
			for _, d := range decls {
				names = append(names, d.Name)
			}
			be.Equal(t, names, tt.names)
		})
	}
}

func TestSynthesizeKeys_FlagUsesConfiguredNames(t *testing.T) {
	decl := parse(t, "@Assoc\nvar a: Int? = 1")
	p, err := Inspect(decl)
	be.Err(t, err, nil)
	decls := SynthesizeKeys(p, Arguments{}, Options{Attribute: "Assoc", FlagPolicy: ".retain(.atomic)"})
	be.Equal(t, decls[1].Kind, FlagDeclaration)
	be.Equal(t, decls[1].Text, "@Assoc(.retain(.atomic))\nvar __associated_aIsSet: Bool = false")
}

func TestExpander_States(t *testing.T) {
	x := New(Options{})

	ok := parse(t, "@AssociatedObject\nvar a: Int = 1")
	peers := x.ExpandPeers(ok)
	be.Equal(t, peers.State, Emitted)
	be.Equal(t, len(peers.Diagnostics), 0)
	acc := x.ExpandAccessors(ok)
	be.Equal(t, acc.State, Emitted)
	be.Equal(t, acc.Shape, ShapeB)
	be.Equal(t, acc.Key, "Self.__associated_aKey")
	be.Equal(t, acc.Policy, DefaultPolicy)
	be.Equal(t, acc.Getter.Kind, syntax.GetAccessor)
	be.Equal(t, acc.Setter.Kind, syntax.SetAccessor)

	bad := parse(t, "@AssociatedObject\nvar a: Int")
	peers = x.ExpandPeers(bad)
	be.Equal(t, peers.State, Emitted)
	acc = x.ExpandAccessors(bad)
	be.Equal(t, acc.State, Rejected)
	be.True(t, acc.Getter == nil)
	be.Equal(t, diag.Kinds(acc.Diagnostics), []diag.Kind{diag.RequiresInitialValue})
}

func TestExpander_Deterministic(t *testing.T) {
	src := "@AssociatedObject(.copy(.nonatomic))\nvar a: [String]? = [\"x\"] {\n  didSet { print(a) }\n}"
	x := New(Options{})
	first := x.ExpandAccessors(parse(t, src))
	second := x.ExpandAccessors(parse(t, src))
	be.Equal(t, first.Getter.Text, second.Getter.Text)
	be.Equal(t, first.Setter.Text, second.Setter.Text)
}

func TestState_IllegalTransitionPanics(t *testing.T) {
	defer func() {
		be.True(t, recover() != nil)
	}()
	Emitted.to(Validated)
}

func TestDedent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{" x ", "x"},
		{"\n        a()\n        if b {\n            c()\n        }\n    ", "a()\nif b {\n    c()\n}"},
		{"\n    a()\n\n    b()\n", "a()\n\nb()"},
	}
	for _, tt := range tests {
		be.Equal(t, Dedent(tt.in), tt.want)
	}
}

func TestContinuation(t *testing.T) {
	be.Equal(t, continuation("1", 2), "1")
	be.Equal(t, continuation("[\n        1,\n        2\n    ]", 1), "[\n        1,\n        2\n    ]")
	be.Equal(t, continuation("foo(\n  a\n)", 1), "foo(\n      a\n    )")
}
