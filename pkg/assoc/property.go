package assoc

import (
	"errors"
	"fmt"
)

// Shape is the getter strategy of a Property.
type Shape int

const (
	// ShapeA: optional with default. The default is materialized on the
	// first read and an is-set flag remembers that it happened.
	ShapeA Shape = iota + 1
	// ShapeB: non-optional with default. The default is stored whenever
	// storage holds no value of the property's type.
	ShapeB
	// ShapeC: optional without default. Reads fall back to the zero value.
	ShapeC
)

func (s Shape) String() string {
	switch s {
	case ShapeA:
		return "A"
	case ShapeB:
		return "B"
	case ShapeC:
		return "C"
	}
	return "-"
}

// ErrInitialValueRequired is returned for a non-optional property without a default.
var ErrInitialValueRequired = errors.New("assoc: non-optional property requires a default value")

// Config describes an associated property of owners of type O holding values of type V.
type Config[O, V any] struct {
	// Store defaults to Default.
	Store *Store
	// Key overrides the property's own key, like a custom `key:` argument.
	Key    *Key
	Policy Policy
	// Optional marks V as nilable: reads of an empty property return the zero value.
	Optional bool
	// Default computes the initial value. It is evaluated on each materialization.
	Default func() V

	WillSet func(owner *O, newValue V)
	DidSet  func(owner *O, oldValue V)
}

// Property is a typed associated property. It must not be copied after
// creation: its key and is-set flag are identified by address.
type Property[O, V any] struct {
	cfg     Config[O, V]
	shape   Shape
	key     *Key
	ownKey  Key
	flagKey Key
}

// NewProperty creates a property. The shape follows from Optional and Default.
func NewProperty[O, V any](cfg Config[O, V]) (*Property[O, V], error) {
	if !cfg.Policy.valid() {
		return nil, fmt.Errorf("assoc: invalid policy %d", int(cfg.Policy))
	}
	p := &Property[O, V]{cfg: cfg}
	switch {
	case cfg.Optional && cfg.Default != nil:
		p.shape = ShapeA
	case cfg.Default != nil:
		p.shape = ShapeB
	case cfg.Optional:
		p.shape = ShapeC
	default:
		return nil, ErrInitialValueRequired
	}
	if p.cfg.Store == nil {
		p.cfg.Store = Default
	}
	p.key = cfg.Key
	if p.key == nil {
		p.key = &p.ownKey
	}
	return p, nil
}

// MustProperty is like NewProperty but panics on error. It is intended for
// package-level property declarations.
func MustProperty[O, V any](cfg Config[O, V]) *Property[O, V] {
	p, err := NewProperty(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Shape returns the getter strategy.
func (p *Property[O, V]) Shape() Shape {
	return p.shape
}

// Key returns the key values are stored under.
func (p *Property[O, V]) Key() *Key {
	return p.key
}

// Get reads the property of owner.
//
// For ShapeA a stored value of another type is a programming error and
// panics. Get also panics if a materialized default cannot be stored.
func (p *Property[O, V]) Get(owner *O) V {
	var zero V
	if owner == nil {
		if p.cfg.Default != nil {
			return p.cfg.Default()
		}
		return zero
	}
	switch p.shape {
	case ShapeA:
		if !p.isSet(owner) {
			v := p.cfg.Default()
			p.mustStore(owner, v)
			p.markSet(owner)
			return v
		}
		stored, ok := Get(p.cfg.Store, owner, p.key)
		if !ok || stored == nil {
			return zero
		}
		return stored.(V)
	case ShapeB:
		if stored, ok := Get(p.cfg.Store, owner, p.key); ok {
			if v, ok := stored.(V); ok {
				return v
			}
		}
		v := p.cfg.Default()
		p.mustStore(owner, v)
		return v
	default:
		if stored, ok := Get(p.cfg.Store, owner, p.key); ok {
			if v, ok := stored.(V); ok {
				return v
			}
		}
		return zero
	}
}

// Set writes the property of owner. WillSet runs before the old value is
// read, and DidSet after the write, with the value read before it.
func (p *Property[O, V]) Set(owner *O, newValue V) error {
	if owner == nil {
		return ErrNilOwner
	}
	if p.cfg.WillSet != nil {
		p.cfg.WillSet(owner, newValue)
	}
	var old V
	if p.cfg.DidSet != nil {
		old = p.Get(owner)
	}
	if err := p.store(owner, newValue); err != nil {
		return err
	}
	if p.shape == ShapeA {
		p.markSet(owner)
	}
	if p.cfg.DidSet != nil {
		p.cfg.DidSet(owner, old)
	}
	return nil
}

func (p *Property[O, V]) store(owner *O, v V) error {
	return Set(p.cfg.Store, owner, p.key, any(v), p.cfg.Policy)
}

func (p *Property[O, V]) mustStore(owner *O, v V) {
	if err := p.store(owner, v); err != nil {
		panic(err)
	}
}

func (p *Property[O, V]) isSet(owner *O) bool {
	v, _ := Get(p.cfg.Store, owner, &p.flagKey)
	set, _ := v.(bool)
	return set
}

func (p *Property[O, V]) markSet(owner *O) {
	// Cannot fail: owner is non-nil and the policy does not copy.
	_ = Set(p.cfg.Store, owner, &p.flagKey, true, RetainNonatomic)
}
