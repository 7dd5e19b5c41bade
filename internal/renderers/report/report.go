// Package report renders a markdown summary of an expansion run.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dejo1307/assocgen/internal/facts"
)

// Renderer produces report.md. Sections are ordered by priority and the
// lower ones are cut first when the line budget runs out.
type Renderer struct {
	maxLines int
}

// New creates a Renderer with the given line budget.
func New(maxLines int) *Renderer {
	if maxLines <= 0 {
		maxLines = 400
	}
	return &Renderer{maxLines: maxLines}
}

func (r *Renderer) Name() string {
	return "report"
}

type section struct {
	name    string
	content string
}

// Render produces the report.md artifact.
func (r *Renderer) Render(ctx context.Context, run *facts.Run) ([]facts.Artifact, error) {
	sections := []section{
		{"Summary", renderSummary(run)},
		{"Diagnostics", renderDiagnostics(run)},
		{"Expansions", renderExpansions(run)},
		{"Shapes", renderShapes(run)},
		{"Outputs", renderOutputs(run)},
		{"Meta", renderMeta(run)},
	}

	header := "# Associated Object Expansion Report\n\n"
	remaining := r.maxLines - lineCount(header)

	var sb strings.Builder
	sb.WriteString(header)

	for i, sec := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sec.content == "" {
			continue
		}
		n := lineCount(sec.content)
		if n <= remaining {
			sb.WriteString(sec.content)
			remaining -= n
			continue
		}
		if remaining > 8 {
			// Keep what fits, leaving room for the marker.
			sb.WriteString(firstLines(sec.content, remaining-4))
			sb.WriteString(fmt.Sprintf("\n\n---\n*[Truncated in: %s]*\n", sec.name))
			var omitted []string
			for _, s := range sections[i+1:] {
				if s.content != "" {
					omitted = append(omitted, s.name)
				}
			}
			if len(omitted) > 0 {
				sb.WriteString(fmt.Sprintf("*[Omitted: %s]*\n", strings.Join(omitted, ", ")))
			}
			break
		}
		var omitted []string
		for _, s := range sections[i:] {
			if s.content != "" {
				omitted = append(omitted, s.name)
			}
		}
		sb.WriteString(fmt.Sprintf("\n---\n*[Omitted: %s]*\n", strings.Join(omitted, ", ")))
		break
	}

	return []facts.Artifact{
		{
			Name:    "report.md",
			Content: []byte(sb.String()),
			Type:    "text/markdown",
		},
	}, nil
}

func renderSummary(run *facts.Run) string {
	m := run.Meta
	var sb strings.Builder
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- Attribute: `@%s`\n", m.Attribute))
	sb.WriteString(fmt.Sprintf("- Files scanned: %d\n", m.FileCount))
	sb.WriteString(fmt.Sprintf("- Files rewritten: %d\n", m.ChangedCount))
	sb.WriteString(fmt.Sprintf("- Properties expanded: %d\n", m.ExpansionCount))
	sb.WriteString(fmt.Sprintf("- Diagnostics: %d\n\n", m.DiagnosticCount))
	return sb.String()
}

func renderDiagnostics(run *facts.Run) string {
	if len(run.Diagnostics) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Diagnostics\n\n")
	sb.WriteString("| Location | Kind | Message |\n")
	sb.WriteString("|----------|------|---------|\n")
	for _, d := range run.Diagnostics {
		loc := d.Pos.String()
		if d.File != "" {
			loc = d.File + ":" + loc
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s |\n", loc, d.Kind, escapeCell(d.Message)))
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderExpansions(run *facts.Run) string {
	props := filterByKind(run.Facts, facts.KindProperty)
	if len(props) == 0 {
		return "## Expansions\n\n_No annotated properties found._\n\n"
	}
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].File != props[j].File {
			return props[i].File < props[j].File
		}
		return props[i].Line < props[j].Line
	})

	var sb strings.Builder
	sb.WriteString("## Expansions\n\n")
	sb.WriteString("| Property | Type | Shape | Key | Policy | Location |\n")
	sb.WriteString("|----------|------|-------|-----|--------|----------|\n")
	for _, p := range props {
		typ := "`" + escapeCell(prop(p, facts.PropType)) + "`"
		if inferred, _ := p.Props[facts.PropInferred].(bool); inferred {
			typ += " (inferred)"
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | `%s` | `%s` | `%s:%d` |\n",
			p.Name, typ, prop(p, facts.PropShape), prop(p, facts.PropKey),
			prop(p, facts.PropPolicy), p.File, p.Line))
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderShapes(run *facts.Run) string {
	props := filterByKind(run.Facts, facts.KindProperty)
	if len(props) == 0 {
		return ""
	}
	shapes := make(map[string]int)
	owners := make(map[string]int)
	for _, p := range props {
		shapes[prop(p, facts.PropShape)]++
		owner := prop(p, facts.PropOwner)
		if owner == "" {
			owner = "(top level)"
		}
		owners[owner]++
	}

	var sb strings.Builder
	sb.WriteString("## Shapes\n\n")
	for _, s := range sortedKeys(shapes) {
		sb.WriteString(fmt.Sprintf("- Shape %s: %d\n", s, shapes[s]))
	}
	sb.WriteString("\n### Owners\n\n")
	for _, o := range sortedKeys(owners) {
		sb.WriteString(fmt.Sprintf("- `%s`: %d\n", o, owners[o]))
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderOutputs(run *facts.Run) string {
	if len(run.Outputs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Outputs\n\n")
	for _, o := range run.Outputs {
		sb.WriteString(fmt.Sprintf("- `%s` -> `%s` (%d)\n", o.Source, o.Path, o.Expansions))
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderMeta(run *facts.Run) string {
	var sb strings.Builder
	sb.WriteString("## Meta\n\n")
	sb.WriteString(fmt.Sprintf("- Repository: `%s`\n", run.Meta.RepoPath))
	sb.WriteString(fmt.Sprintf("- Generated: %s\n", run.Meta.GeneratedAt))
	sb.WriteString(fmt.Sprintf("- Duration: %s\n", run.Meta.Duration))
	return sb.String()
}

func filterByKind(ff []facts.Fact, kind string) []facts.Fact {
	var out []facts.Fact
	for _, f := range ff {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func prop(f facts.Fact, name string) string {
	if v, ok := f.Props[name]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func lineCount(s string) int {
	return strings.Count(s, "\n")
}

func firstLines(s string, n int) string {
	if n <= 0 {
		return ""
	}
	idx := 0
	for i := 0; i < n; i++ {
		next := strings.IndexByte(s[idx:], '\n')
		if next < 0 {
			return s
		}
		idx += next + 1
	}
	return s[:idx]
}
