package macro

import (
	"strings"
	"text/template"
)

const indentUnit = "    "

var templateFuncs = template.FuncMap{
	"indent":       indent,
	"continuation": continuation,
}

// render executes a package template. Templates are fixed at init, so an
// execution failure is a programming error.
func render(t *template.Template, data any) string {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		panic("macro: rendering " + t.Name() + ": " + err.Error())
	}
	return sb.String()
}

// indent prefixes every non-empty line of text with level indentation units.
func indent(level int, text string) string {
	prefix := strings.Repeat(indentUnit, level)
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// continuation re-indents the lines after the first of a multi-line
// expression so they sit under a line indented by level units.
func continuation(text string, level int) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		return text
	}
	rest := dedentLines(lines[1:])
	return lines[0] + "\n" + indent(level, strings.Join(rest, "\n"))
}

// Dedent normalizes a raw statement list: surrounding blank lines are
// dropped, the common leading whitespace is removed and trailing spaces are
// trimmed.
func Dedent(body string) string {
	lines := strings.Split(body, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(dedentLines(lines), "\n")
}

func dedentLines(lines []string) []string {
	common := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		l = strings.TrimRight(l, " \t\r")
		if len(l) >= common && common > 0 {
			l = l[common:]
		} else if strings.TrimSpace(l) == "" {
			l = ""
		}
		out[i] = l
	}
	return out
}
