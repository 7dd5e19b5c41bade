// Package assoc attaches values to arbitrary Go objects without changing
// their type.
//
// Values live in a side table keyed by the owner's identity and a Key's
// address. The table holds owners weakly: once an owner is garbage collected
// its values are released.
//
//	var labelKey assoc.Key
//
//	assoc.Set(assoc.Default, view, &labelKey, "hello", assoc.RetainNonatomic)
//	v, ok := assoc.Get(assoc.Default, view, &labelKey)
package assoc

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"weak"

	"github.com/mitchellh/copystructure"
)

// Key identifies one associated value. Its address is the identity, so a Key
// must be declared once per property (usually as a package-level variable)
// and never copied.
type Key struct {
	_ byte // non-zero size: distinct Keys have distinct addresses
}

var (
	ErrNilOwner = errors.New("assoc: nil owner")
	ErrNilKey   = errors.New("assoc: nil key")
)

// Store is a side table of associated values. The zero value is not usable;
// call NewStore.
type Store struct {
	mu     sync.Mutex
	owners map[any]*entry // weak.Pointer[T] -> values
}

type entry struct {
	mu     sync.RWMutex
	values map[*Key]any
}

// Default is the process-wide store.
var Default = NewStore()

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{owners: make(map[any]*entry)}
}

// Len returns the number of owners that currently have values.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owners)
}

func (s *Store) lookup(id any) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owners[id]
}

// acquire returns the entry for id, creating it and calling onCreate when
// absent.
func (s *Store) acquire(id any, onCreate func()) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.owners[id]
	if !ok {
		e = &entry{values: make(map[*Key]any)}
		s.owners[id] = e
		onCreate()
	}
	return e
}

func (s *Store) release(id any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.owners, id)
}

// Get returns the value associated with owner under key.
func Get[T any](s *Store, owner *T, key *Key) (any, bool) {
	if owner == nil || key == nil {
		return nil, false
	}
	e := s.lookup(weak.Make(owner))
	if e == nil {
		return nil, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[key]
	return v, ok
}

// Set associates value with owner under key using policy. A nil value
// removes the association. Copy policies store a deep copy of value.
func Set[T any](s *Store, owner *T, key *Key, value any, policy Policy) error {
	if owner == nil {
		return ErrNilOwner
	}
	if key == nil {
		return ErrNilKey
	}
	if !policy.valid() {
		return fmt.Errorf("assoc: invalid policy %d", int(policy))
	}

	// Nonatomic copies are taken before the entry is locked.
	if value != nil && policy.copies() && !policy.atomic() {
		c, err := copyValue(value)
		if err != nil {
			return err
		}
		value = c
	}

	id := weak.Make(owner)
	e := s.acquire(id, func() {
		runtime.AddCleanup(owner, s.release, any(id))
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if value == nil {
		delete(e.values, key)
		return nil
	}
	if policy.copies() && policy.atomic() {
		c, err := copyValue(value)
		if err != nil {
			return err
		}
		value = c
	}
	e.values[key] = value
	return nil
}

func copyValue(v any) (any, error) {
	c, err := copystructure.Copy(v)
	if err != nil {
		return nil, fmt.Errorf("assoc: copying %T: %w", v, err)
	}
	return c, nil
}
