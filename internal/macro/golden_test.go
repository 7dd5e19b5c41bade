package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dejo1307/assocgen/internal/diag"
	"github.com/dejo1307/assocgen/internal/syntax"
	"github.com/dejo1307/assocgen/internal/testcase"
	"github.com/nalgeon/be"
)

func TestGolden(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	x := New(Options{})
	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".md"), func(t *testing.T) {
			content, err := os.ReadFile(file)
			be.Err(t, err, nil)
			cases, err := testcase.Extract(string(content))
			be.Err(t, err, nil)

			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) {
					decl, err := syntax.ParseSource(tc.Input)
					be.Err(t, err, nil)

					peers := x.ExpandPeers(decl)
					accessors := x.ExpandAccessors(decl)

					for _, a := range tc.Assertions {
						switch a.Type {
						case testcase.AssertShape:
							be.Equal(t, accessors.Shape.String(), a.Content)
						case testcase.AssertPeers:
							be.Equal(t, peers.State, Emitted)
							be.Equal(t, renderPeers(peers.Declarations), a.Content)
						case testcase.AssertAccessors:
							be.Equal(t, accessors.State, Emitted)
							be.Equal(t, accessors.Getter.Text+"\n"+accessors.Setter.Text, a.Content)
						case testcase.AssertDiagnostics:
							be.Equal(t, renderDiagnostics(accessors.Diagnostics), a.Content)
							if a.Content != "" {
								be.Equal(t, accessors.State, Rejected)
								be.True(t, accessors.Getter == nil && accessors.Setter == nil)
							}
						default:
							t.Fatalf("line %d: unsupported assertion %s", a.Line, a.Type)
						}
					}
				})
			}
		})
	}
}

func renderPeers(decls []Declaration) string {
	texts := make([]string, len(decls))
	for i, d := range decls {
		texts[i] = d.Text
	}
	return strings.Join(texts, "\n\n")
}

func renderDiagnostics(diags []diag.Diagnostic) string {
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = fmt.Sprintf("%s: %s", d.Pos, d.Kind)
	}
	return strings.Join(lines, "\n")
}
