package assoc

import (
	"fmt"
	"testing"

	"github.com/nalgeon/be"
)

func ptr[T any](v T) *T { return &v }

func TestNewProperty_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		optional bool
		def      bool
		want     Shape
	}{
		{"optional with default", true, true, ShapeA},
		{"default only", false, true, ShapeB},
		{"optional only", true, false, ShapeC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config[view, int]{Optional: tt.optional}
			if tt.def {
				cfg.Default = func() int { return 1 }
			}
			p, err := NewProperty(cfg)
			be.Err(t, err, nil)
			be.Equal(t, p.Shape(), tt.want)
		})
	}

	_, err := NewProperty(Config[view, int]{})
	be.Err(t, err, ErrInitialValueRequired)
	_, err = NewProperty(Config[view, int]{Optional: true, Policy: Policy(-1)})
	be.Err(t, err, "invalid policy")
}

func TestShapeB_RoundTrip(t *testing.T) {
	n := MustProperty(Config[view, int]{
		Store:   NewStore(),
		Default: func() int { return 5 },
	})
	v := &view{}

	be.Equal(t, n.Get(v), 5)
	be.Err(t, n.Set(v, 7), nil)
	be.Equal(t, n.Get(v), 7)
}

func TestShapeB_RestoresDefaultOnForeignValue(t *testing.T) {
	s := NewStore()
	n := MustProperty(Config[view, int]{Store: s, Default: func() int { return 5 }})
	v := &view{}

	be.Err(t, Set(s, v, n.Key(), "not an int", RetainNonatomic), nil)
	be.Equal(t, n.Get(v), 5)
	stored, _ := Get(s, v, n.Key())
	be.Equal(t, stored, any(5))
}

func TestShapeA_MaterializesOnce(t *testing.T) {
	calls := 0
	d := MustProperty(Config[view, *float64]{
		Store:    NewStore(),
		Optional: true,
		Default: func() *float64 {
			calls++
			return ptr(123.4)
		},
	})
	v := &view{}

	be.Equal(t, *d.Get(v), 123.4)
	be.Equal(t, *d.Get(v), 123.4)
	be.Equal(t, calls, 1)

	be.Err(t, d.Set(v, nil), nil)
	be.Equal(t, d.Get(v), (*float64)(nil))
	be.Equal(t, calls, 1)
}

func TestShapeA_SetBeforeReadSkipsDefault(t *testing.T) {
	d := MustProperty(Config[view, *string]{
		Store:    NewStore(),
		Optional: true,
		Default:  func() *string { panic("default evaluated") },
	})
	v := &view{}

	be.Err(t, d.Set(v, ptr("set")), nil)
	be.Equal(t, *d.Get(v), "set")
}

func TestShapeA_ForeignValuePanics(t *testing.T) {
	s := NewStore()
	d := MustProperty(Config[view, *int]{Store: s, Optional: true, Default: func() *int { return ptr(1) }})
	v := &view{}
	d.Get(v)
	be.Err(t, Set(s, v, d.Key(), "oops", RetainNonatomic), nil)

	defer func() {
		be.True(t, recover() != nil)
	}()
	d.Get(v)
	t.Error("expected panic")
}

func TestShapeC_Optional(t *testing.T) {
	str := MustProperty(Config[view, *string]{Store: NewStore(), Optional: true})
	v := &view{}

	be.Equal(t, str.Get(v), (*string)(nil))
	be.Err(t, str.Set(v, ptr("x")), nil)
	be.Equal(t, *str.Get(v), "x")
}

func TestCustomKeyIsShared(t *testing.T) {
	s := NewStore()
	var tagKey Key
	a := MustProperty(Config[view, *int]{Store: s, Key: &tagKey, Optional: true})
	b := MustProperty(Config[view, *int]{Store: s, Key: &tagKey, Optional: true})
	v := &view{}

	be.Err(t, a.Set(v, ptr(3)), nil)
	be.Equal(t, *b.Get(v), 3)
	be.True(t, a.Key() == &tagKey)
}

func TestSiblingPropertiesDoNotAlias(t *testing.T) {
	s := NewStore()
	type button struct{ view }
	type label struct{ view }
	buttonTitle := MustProperty(Config[button, string]{Store: s, Default: func() string { return "" }})
	labelTitle := MustProperty(Config[label, string]{Store: s, Default: func() string { return "" }})

	b, l := &button{}, &label{}
	be.Err(t, buttonTitle.Set(b, "ok"), nil)
	be.Err(t, labelTitle.Set(l, "name"), nil)

	be.Equal(t, buttonTitle.Get(b), "ok")
	be.Equal(t, labelTitle.Get(l), "name")
	be.True(t, buttonTitle.Key() != labelTitle.Key())
}

func TestObserverOrdering(t *testing.T) {
	var log []string
	var count *Property[view, int]
	count = MustProperty(Config[view, int]{
		Store:   NewStore(),
		Default: func() int { return 1 },
		WillSet: func(o *view, newValue int) {
			log = append(log, fmt.Sprintf("willSet new=%d current=%d", newValue, count.Get(o)))
		},
		DidSet: func(o *view, oldValue int) {
			log = append(log, fmt.Sprintf("didSet old=%d current=%d", oldValue, count.Get(o)))
		},
	})
	v := &view{}

	be.Err(t, count.Set(v, 2), nil)
	be.Err(t, count.Set(v, 3), nil)
	be.Equal(t, log, []string{
		"willSet new=2 current=1",
		"didSet old=1 current=2",
		"willSet new=3 current=2",
		"didSet old=2 current=3",
	})
}

func TestDidSetOnShapeA(t *testing.T) {
	var olds []string
	label := MustProperty(Config[view, *string]{
		Store:    NewStore(),
		Optional: true,
		Default:  func() *string { return ptr("none") },
		DidSet: func(_ *view, oldValue *string) {
			olds = append(olds, *oldValue)
		},
	})
	v := &view{}

	be.Err(t, label.Set(v, ptr("first")), nil)
	be.Err(t, label.Set(v, ptr("second")), nil)
	be.Equal(t, olds, []string{"none", "first"})
}

func TestProperty_NilOwner(t *testing.T) {
	n := MustProperty(Config[view, int]{Store: NewStore(), Default: func() int { return 5 }})
	be.Equal(t, n.Get(nil), 5)
	be.Err(t, n.Set(nil, 1), ErrNilOwner)
}

func TestMustProperty_Panics(t *testing.T) {
	defer func() {
		be.True(t, recover() != nil)
	}()
	MustProperty(Config[view, int]{})
	t.Error("expected panic")
}
