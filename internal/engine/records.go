package engine

import (
	"strings"

	"github.com/dejo1307/assocgen/internal/diag"
	"github.com/dejo1307/assocgen/internal/facts"
	"github.com/dejo1307/assocgen/internal/macro"
	"github.com/dejo1307/assocgen/internal/rewrite"
	"github.com/dejo1307/assocgen/internal/syntax"
)

// recordFacts converts one rewrite result into facts. output is the path the
// expanded file was written to, or empty.
func recordFacts(res *rewrite.Result, output string) []facts.Fact {
	var out []facts.Fact

	for _, x := range res.Expansions {
		name := qualify(x.Owner, x.Name)
		keyName := macro.KeyName(x.Name)
		custom := !containsString(x.Peers, keyName)

		keyTarget := qualify(x.Owner, keyName)
		if custom {
			keyTarget = strings.TrimPrefix(x.Key, "&")
		}

		props := map[string]any{
			facts.PropOwner:  x.Owner,
			facts.PropType:   x.Type,
			facts.PropShape:  x.Shape,
			facts.PropKey:    x.Key,
			facts.PropPolicy: x.Policy,
		}
		if x.Inferred {
			props[facts.PropInferred] = true
		}
		if custom {
			props[facts.PropCustom] = true
		}
		if output != "" {
			props[facts.PropOutput] = output
		}

		out = append(out, facts.Fact{
			Kind:      facts.KindProperty,
			Name:      name,
			File:      res.File,
			Line:      x.Pos.Line,
			Props:     props,
			Relations: []facts.Relation{{Kind: facts.RelUsesKey, Target: keyTarget}},
		})

		for _, peer := range x.Peers {
			f := facts.Fact{
				Name:  qualify(x.Owner, peer),
				File:  res.File,
				Line:  x.Pos.Line,
				Props: map[string]any{facts.PropOwner: x.Owner},
			}
			if peer == x.Flag {
				f.Kind = facts.KindFlag
				f.Relations = []facts.Relation{
					{Kind: facts.RelTracks, Target: name},
					{Kind: facts.RelUsesKey, Target: qualify(x.Owner, macro.KeyName(peer))},
				}
			} else {
				f.Kind = facts.KindKey
			}
			out = append(out, f)
		}
	}

	for _, d := range res.Diagnostics {
		out = append(out, facts.Fact{
			Kind: facts.KindDiagnostic,
			Name: string(d.Kind),
			File: res.File,
			Line: d.Pos.Line,
			Props: map[string]any{
				facts.PropMessage: d.Message,
				facts.PropColumn:  d.Pos.Column,
			},
		})
	}
	return out
}

// diagnosticFromFact is the inverse of the diagnostic records above. The byte
// offset is not recorded.
func diagnosticFromFact(f facts.Fact) diag.Diagnostic {
	d := diag.New(diag.Kind(f.Name), syntax.Position{Line: f.Line, Column: intProp(f, facts.PropColumn)})
	if msg, ok := f.Props[facts.PropMessage].(string); ok && msg != "" {
		d.Message = msg
	}
	d.File = f.File
	return d
}

// intProp reads a numeric prop that may have been decoded from JSON.
func intProp(f facts.Fact, name string) int {
	switch v := f.Props[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func qualify(owner, name string) string {
	if owner == "" {
		return name
	}
	return owner + "." + name
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
