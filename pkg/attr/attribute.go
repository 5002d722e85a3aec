package attr

import (
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// DefaultFunc computes a default each time one is needed. owner is the
// element (or model) the attribute belongs to.
type DefaultFunc func(owner any, a *Attribute) any

// Attribute is a declared, typed field of a model.
type Attribute struct {
	Name    string
	Type    Type
	Indexed bool

	def     any
	defFunc DefaultFunc
}

// Option configures an Attribute.
type Option func(*Attribute)

// Indexed marks the attribute as backed by a secondary index.
func Indexed() Option {
	return func(a *Attribute) { a.Indexed = true }
}

// Default sets a static default value.
func Default(v any) Option {
	return func(a *Attribute) { a.def = v }
}

// DefaultBy sets a default generator.
func DefaultBy(fn DefaultFunc) Option {
	return func(a *Attribute) { a.defFunc = fn }
}

// New declares an attribute.
func New(name string, t Type, opts ...Option) *Attribute {
	a := &Attribute{Name: name, Type: t}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kind returns the type tag of the attribute.
func (a *Attribute) Kind() Kind { return a.Type.Kind() }

// KeyEligible reports whether the attribute may identify elements.
func (a *Attribute) KeyEligible() bool {
	return a.Kind() != KindDynamic && a.Kind().StorageClass() == InlineHash
}

// Default resolves the attribute default for owner. Generators run on every
// call.
func (a *Attribute) Default(owner any) (any, error) {
	var v any
	if a.defFunc != nil {
		v = a.defFunc(owner, a)
	} else {
		v = a.def
	}
	if a.blank(v) {
		return a.Type.Zero(), nil
	}
	return a.cast(v)
}

// Typecast converts raw into the canonical value, resolving blank input to
// the default. Failures are *types.InvalidValueError.
func (a *Attribute) Typecast(owner any, raw any) (any, error) {
	if a.blank(raw) {
		return a.Default(owner)
	}
	return a.cast(raw)
}

// Load decodes a value read from the store, the inverse of Dump. Blank
// input resolves to the default as in Typecast.
func (a *Attribute) Load(owner any, stored string) (any, error) {
	if a.blank(stored) {
		return a.Default(owner)
	}
	l, ok := a.Type.(Loader)
	if !ok {
		return a.cast(stored)
	}
	v, err := l.Load(stored)
	if err != nil {
		return nil, &types.InvalidValueError{Attribute: a.Name, Value: stored, Reason: err.Error()}
	}
	return v, nil
}

// Dump encodes an already typecast value.
func (a *Attribute) Dump(v any) (string, error) {
	s, err := a.Type.Dump(v)
	if err != nil {
		return "", &types.InvalidValueError{Attribute: a.Name, Value: v, Reason: err.Error()}
	}
	return s, nil
}

func (a *Attribute) cast(raw any) (any, error) {
	v, err := a.Type.Cast(raw)
	if err != nil {
		return nil, &types.InvalidValueError{Attribute: a.Name, Value: raw, Reason: err.Error()}
	}
	return v, nil
}

func (a *Attribute) blank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return a.Kind() != KindString
	}
	return false
}
