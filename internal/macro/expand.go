// Package macro expands `@AssociatedObject` property declarations.
//
// A declaration goes through two independent entry points, mirroring how a
// host compiler drives an attached macro: ExpandPeers synthesizes the storage
// key (and the is-set flag for optional properties with a default), and
// ExpandAccessors replaces the stored property with a getter and setter backed
// by getAssociatedObject/setAssociatedObject. Both are pure functions of the
// declaration syntax; problems are reported as diagnostics, and a rejected
// declaration produces no output at all.
package macro

import (
	"fmt"

	"github.com/dejo1307/assocgen/internal/diag"
	"github.com/dejo1307/assocgen/internal/syntax"
)

// State is the lifecycle of one expansion.
type State int

const (
	Unvalidated State = iota
	Validated
	Emitted
	Rejected
)

func (s State) String() string {
	switch s {
	case Unvalidated:
		return "unvalidated"
	case Validated:
		return "validated"
	case Emitted:
		return "emitted"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

var transitions = map[State][]State{
	Unvalidated: {Validated, Rejected},
	Validated:   {Emitted},
}

func (s State) to(next State) State {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return next
		}
	}
	panic(fmt.Sprintf("macro: illegal expansion transition %s -> %s", s, next))
}

// PeerExpansion is the result of ExpandPeers.
type PeerExpansion struct {
	State        State
	Property     *Property
	Declarations []Declaration
	Diagnostics  []diag.Diagnostic
}

// AccessorExpansion is the result of ExpandAccessors. Getter and Setter are
// either both set (Emitted) or both nil (Rejected).
type AccessorExpansion struct {
	State       State
	Property    *Property
	Shape       Shape
	Type        *syntax.Type
	Key         string
	Policy      string
	Getter      *Accessor
	Setter      *Accessor
	Diagnostics []diag.Diagnostic
}

// Expander runs the two entry points with fixed options. It holds no mutable
// state and is safe for concurrent use.
type Expander struct {
	opts Options
}

// New creates an Expander. Empty option fields take their defaults.
func New(opts Options) *Expander {
	return &Expander{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (x *Expander) Options() Options {
	return x.opts
}

// ExpandPeers synthesizes the peer declarations of decl.
func (x *Expander) ExpandPeers(decl *syntax.Decl) PeerExpansion {
	res := PeerExpansion{State: Unvalidated}
	args := x.arguments(decl)

	p, diags := Validate(decl, args, PeerStage)
	res.Property = p
	if len(diags) > 0 {
		res.State = res.State.to(Rejected)
		res.Diagnostics = diags
		return res
	}
	res.State = res.State.to(Validated)
	res.Declarations = SynthesizeKeys(p, args, x.opts)
	res.State = res.State.to(Emitted)
	return res
}

// ExpandAccessors synthesizes the getter and setter of decl.
func (x *Expander) ExpandAccessors(decl *syntax.Decl) AccessorExpansion {
	res := AccessorExpansion{State: Unvalidated}
	args := x.arguments(decl)

	p, diags := Validate(decl, args, AccessorStage)
	res.Property = p
	if len(diags) > 0 {
		res.State = res.State.to(Rejected)
		res.Diagnostics = diags
		return res
	}
	res.State = res.State.to(Validated)

	res.Shape = p.Shape()
	res.Type = p.Type
	res.Key = args.KeyExpr(p.Name)
	res.Policy = args.PolicyExpr(x.opts)
	getter, setter := SynthesizeAccessors(p, p.Type, res.Key, res.Policy)
	res.Getter, res.Setter = &getter, &setter
	res.State = res.State.to(Emitted)
	return res
}

func (x *Expander) arguments(decl *syntax.Decl) Arguments {
	if decl == nil {
		return Arguments{}
	}
	return ParseArguments(decl.Attribute(x.opts.Attribute))
}
