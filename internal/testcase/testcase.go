// Package testcase loads expansion test cases written as Markdown.
//
// A test starts at a heading "Test: <name>" and is followed by exactly one
// input fence and one or more assertion fences:
//
//	## Test: optional with default
//	```swift
//	@AssociatedObject(.retain(.nonatomic))
//	var name: String? = "x"
//	```
//	```peers
//	...
//	```
package testcase

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType is the language of an input fence.
type InputType string

const (
	// InputDecl is a single annotated declaration.
	InputDecl InputType = "swift"
	// InputFile is a whole source file.
	InputFile InputType = "swift-file"
)

// AssertionType is the language of an assertion fence.
type AssertionType string

const (
	AssertPeers       AssertionType = "peers"
	AssertAccessors   AssertionType = "accessors"
	AssertDiagnostics AssertionType = "diagnostics"
	AssertRewritten   AssertionType = "rewritten"
	AssertShape       AssertionType = "shape"
)

// Assertion is one expected output.
type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

// TestCase is one test extracted from a Markdown document.
type TestCase struct {
	Name       string
	Input      string
	InputType  InputType
	Line       int
	Assertions []Assertion
}

// Assertion returns the content of the first assertion of typ.
func (tc *TestCase) Assertion(typ AssertionType) (string, bool) {
	for _, a := range tc.Assertions {
		if a.Type == typ {
			return a.Content, true
		}
	}
	return "", false
}

// Extract parses a Markdown document and returns its test cases in order.
func Extract(markdown string) ([]TestCase, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var cur *TestCase

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if cur != nil {
				if err := validate(cur); err != nil {
					return ast.WalkStop, err
				}
				cases = append(cases, *cur)
			}
			cur = &TestCase{Name: strings.TrimPrefix(heading, "Test: ")}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineOf(n, source)
			if cur == nil {
				if lang != "" {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test case", line, lang)
				}
				return ast.WalkContinue, nil
			}

			content := strings.TrimRight(codeBlockText(n, source), "\n")
			switch {
			case isInput(lang):
				if cur.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences in test %q", line, cur.Name)
				}
				cur.Input = content
				cur.InputType = InputType(lang)
				cur.Line = line
			case isAssertion(lang):
				cur.Assertions = append(cur.Assertions, Assertion{Type: AssertionType(lang), Content: content, Line: line})
			case lang != "":
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language %q in test %q", line, lang, cur.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking markdown: %w", err)
	}

	if cur != nil {
		if err := validate(cur); err != nil {
			return nil, err
		}
		cases = append(cases, *cur)
	}
	return cases, nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func codeBlockText(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func isInput(lang string) bool {
	switch InputType(lang) {
	case InputDecl, InputFile:
		return true
	}
	return false
}

func isAssertion(lang string) bool {
	switch AssertionType(lang) {
	case AssertPeers, AssertAccessors, AssertDiagnostics, AssertRewritten, AssertShape:
		return true
	}
	return false
}

func validate(tc *TestCase) error {
	if tc.Input == "" {
		return fmt.Errorf("test %q has no input fence", tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test %q has no assertion fences", tc.Name)
	}
	return nil
}

// lineOf returns the 1-based line of the first content line of node.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:min(start, len(source))], []byte("\n")) + 1
}
