package assoc

import (
	"fmt"
	"strings"
)

// Policy controls how a value is held by the store.
type Policy int

const (
	// Assign stores the value as given.
	Assign Policy = iota
	// RetainNonatomic stores the value as given.
	RetainNonatomic
	// CopyNonatomic stores a deep copy taken before the write.
	CopyNonatomic
	// Retain stores the value as given, under the entry lock.
	Retain
	// Copy stores a deep copy taken under the entry lock.
	Copy
)

var policyExprs = [...]string{
	Assign:          ".assign",
	RetainNonatomic: ".retain(.nonatomic)",
	CopyNonatomic:   ".copy(.nonatomic)",
	Retain:          ".retain(.atomic)",
	Copy:            ".copy(.atomic)",
}

// String returns the policy as written in an attribute argument.
func (p Policy) String() string {
	if p.valid() {
		return policyExprs[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

func (p Policy) valid() bool {
	return p >= Assign && p <= Copy
}

func (p Policy) copies() bool {
	return p == CopyNonatomic || p == Copy
}

func (p Policy) atomic() bool {
	return p == Retain || p == Copy
}

var objcPolicies = map[string]Policy{
	"OBJC_ASSOCIATION_ASSIGN":           Assign,
	"OBJC_ASSOCIATION_RETAIN_NONATOMIC": RetainNonatomic,
	"OBJC_ASSOCIATION_COPY_NONATOMIC":   CopyNonatomic,
	"OBJC_ASSOCIATION_RETAIN":           Retain,
	"OBJC_ASSOCIATION_COPY":             Copy,
}

// ParsePolicy accepts the policy expressions used in attribute arguments,
// e.g. ".copy(.nonatomic)", ".retain" or ".OBJC_ASSOCIATION_ASSIGN".
// A bare ".retain" or ".copy" is atomic.
func ParsePolicy(expr string) (Policy, error) {
	s := strings.Join(strings.Fields(expr), "")
	s = strings.TrimPrefix(s, ".")
	if p, ok := objcPolicies[strings.TrimPrefix(s, "objc_AssociationPolicy.")]; ok {
		return p, nil
	}
	switch s {
	case "assign":
		return Assign, nil
	case "retain", "retain(.atomic)":
		return Retain, nil
	case "retain(.nonatomic)":
		return RetainNonatomic, nil
	case "copy", "copy(.atomic)":
		return Copy, nil
	case "copy(.nonatomic)":
		return CopyNonatomic, nil
	}
	return 0, fmt.Errorf("assoc: unknown policy %q", expr)
}
