package rewrite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dejo1307/assocgen/internal/macro"
	"github.com/dejo1307/assocgen/internal/syntax"
	"github.com/dejo1307/assocgen/internal/testcase"
	"github.com/nalgeon/be"
)

func TestRewrite_Golden(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("testdata", "files.md"))
	be.Err(t, err, nil)
	cases, err := testcase.Extract(string(content))
	be.Err(t, err, nil)
	be.True(t, len(cases) > 0)

	r := New(macro.Options{})
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			be.Equal(t, tc.InputType, testcase.InputFile)
			res, err := r.Rewrite("Input.swift", tc.Input)
			be.Err(t, err, nil)

			if want, ok := tc.Assertion(testcase.AssertRewritten); ok {
				be.Equal(t, res.Source, want)
				be.Equal(t, res.Changed, want != tc.Input)
			}
			if want, ok := tc.Assertion(testcase.AssertDiagnostics); ok {
				var lines []string
				for _, d := range res.Diagnostics {
					be.Equal(t, d.File, "Input.swift")
					lines = append(lines, fmt.Sprintf("%s: %s", d.Pos, d.Kind))
				}
				be.Equal(t, strings.Join(lines, "\n"), want)
			}
		})
	}
}

func TestRewrite_Expansions(t *testing.T) {
	src := `import UIKit

extension UIViewController {
    struct Keys {
        static var token = 0
    }

    @AssociatedObject(.retain(.nonatomic), key: Keys.token)
    var token: String? = nil
}

class Outer {
    class Inner {
        @AssociatedObject
        var score = 1.5
    }
    class var shared: Outer { Outer() }
}
`
	res, err := New(macro.Options{}).Rewrite("VC.swift", src)
	be.Err(t, err, nil)
	be.True(t, res.Changed)
	be.Equal(t, len(res.Diagnostics), 0)
	be.Equal(t, len(res.Expansions), 2)

	token := res.Expansions[0]
	be.Equal(t, token.File, "VC.swift")
	be.Equal(t, token.Owner, "UIViewController")
	be.Equal(t, token.Name, "token")
	be.Equal(t, token.Shape, "A")
	be.Equal(t, token.Key, "&Keys.token")
	be.Equal(t, token.Flag, "__associated_tokenIsSet")
	be.Equal(t, token.Peers, []string{"__associated_tokenIsSet", "__associated___associated_tokenIsSetKey"})
	be.Equal(t, token.Pos.Line, 8)

	score := res.Expansions[1]
	be.Equal(t, score.Owner, "Outer.Inner")
	be.Equal(t, score.Type, "Double")
	be.True(t, score.Inferred)
	be.Equal(t, score.Shape, "B")
	be.Equal(t, score.Policy, macro.DefaultPolicy)
	be.Equal(t, score.Peers, []string{"__associated_scoreKey"})

	be.True(t, !strings.Contains(res.Source, "@AssociatedObject(.retain"))
	be.True(t, strings.Contains(res.Source, "    class var shared: Outer { Outer() }\n"))
}

func TestRewrite_Unchanged(t *testing.T) {
	src := "struct S {\n    @Published var x = 1\n}\n"
	res, err := New(macro.Options{}).Rewrite("S.swift", src)
	be.Err(t, err, nil)
	be.Equal(t, res.Changed, false)
	be.Equal(t, res.Source, src)
	be.Equal(t, len(res.Expansions), 0)
}

func TestRewrite_CustomAttribute(t *testing.T) {
	src := "class C {\n    @Assoc var x: Int? = 1\n    @AssociatedObject var y: Int? = 1\n}"
	res, err := New(macro.Options{Attribute: "Assoc"}).Rewrite("C.swift", src)
	be.Err(t, err, nil)
	be.Equal(t, len(res.Expansions), 1)
	be.Equal(t, res.Expansions[0].Name, "x")
	be.True(t, strings.Contains(res.Source, "@AssociatedObject var y: Int? = 1"))
	be.True(t, strings.Contains(res.Source, "var __associated_xIsSet: Bool {"))
	be.True(t, !strings.Contains(res.Source, "@Assoc("))
}

func TestRewrite_LexError(t *testing.T) {
	_, err := New(macro.Options{}).Rewrite("Bad.swift", "let s = \"open")
	be.Err(t, err, "tokenizing Bad.swift")
}

func TestOwnerStack(t *testing.T) {
	src := "public final class A: B { func f() { } enum E { } }"
	res, err := New(macro.Options{}).Rewrite("A.swift", src)
	be.Err(t, err, nil)
	be.Equal(t, res.Source, src)

	s := newOwnerStack()
	toks := tokenize(t, "class A { enum E.F { } struct S { x")
	for i := range toks {
		s.observe(toks, i)
	}
	be.Equal(t, s.current(), "A.S")
}

func TestMerge(t *testing.T) {
	decl := mustDecl(t, "@AssociatedObject(key: 1)\nvar a = foo()")
	x := macro.New(macro.Options{})
	peers := x.ExpandPeers(decl)
	acc := x.ExpandAccessors(decl)
	be.Equal(t, len(merge(peers.Diagnostics, acc.Diagnostics)), 2)
}

func tokenize(t *testing.T, src string) []syntax.Token {
	t.Helper()
	toks, err := syntax.Tokenize(src)
	be.Err(t, err, nil)
	return toks
}

func mustDecl(t *testing.T, src string) *syntax.Decl {
	t.Helper()
	d, err := syntax.ParseSource(src)
	be.Err(t, err, nil)
	return d
}
