package element

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/kvgraph/pkg/attr"
	"github.com/mesh-intelligence/kvgraph/pkg/index"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// ImplicitKey is the attribute added to models that declare no key.
const ImplicitKey = "id"

// Names that can never be attributes.
var reserved = map[string]bool{"key": true, "class": true}

// Model describes an element type: its attributes, key, custom attributes
// and indexes. A Model is built once; afterwards only dynamic attributes
// are added to it.
type Model struct {
	name string
	key  *attr.Attribute

	mu      sync.RWMutex
	attrs   map[string]*attr.Attribute
	order   []string
	dynamic bool

	customs     map[string]attr.Kind
	customOrder []string

	validators []Validator
	hooks      hooks
}

// Option configures a Model under construction.
type Option func(*Model) error

// WithAttribute declares an attribute.
func WithAttribute(a *attr.Attribute) Option {
	return func(m *Model) error { return m.declare(a) }
}

// WithKey declares the attribute whose value identifies elements.
func WithKey(a *attr.Attribute) Option {
	return func(m *Model) error {
		if !a.KeyEligible() {
			return errors.Newf("%s: attribute %q of kind %s cannot be a key", m.name, a.Name, a.Kind())
		}
		if m.key != nil {
			return &types.NameInUseError{Model: m.name, Name: "key"}
		}
		if err := m.declare(a); err != nil {
			return err
		}
		m.key = a
		return nil
	}
}

// WithCounter declares a counter stored under its own key.
func WithCounter(name string) Option {
	return func(m *Model) error { return m.declareCustom(name, attr.KindCounter) }
}

// WithSet declares a set stored under its own key.
func WithSet(name string) Option {
	return func(m *Model) error { return m.declareCustom(name, attr.KindSet) }
}

// WithList declares a list stored under its own key.
func WithList(name string) Option {
	return func(m *Model) error { return m.declareCustom(name, attr.KindList) }
}

// WithDynamicAttributes lets writes to undeclared names register dynamic
// attributes on the model.
func WithDynamicAttributes() Option {
	return func(m *Model) error {
		m.dynamic = true
		return nil
	}
}

// WithValidator adds a validator run before every save.
func WithValidator(v Validator) Option {
	return func(m *Model) error {
		m.validators = append(m.validators, v)
		return nil
	}
}

// NewModel builds a model. Without WithKey the model gets a GUID key
// attribute named "id", or uses a declared key-eligible "id" attribute.
func NewModel(name string, opts ...Option) (*Model, error) {
	if name == "" {
		return nil, types.ErrModelNameEmpty
	}
	m := &Model{
		name:    name,
		attrs:   make(map[string]*attr.Attribute),
		customs: make(map[string]attr.Kind),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.key == nil {
		if a, ok := m.attrs[ImplicitKey]; ok && a.KeyEligible() {
			m.key = a
		} else if ok {
			return nil, errors.Newf("%s: attribute %q cannot be a key", name, ImplicitKey)
		} else {
			m.key = attr.New(ImplicitKey, attr.GUID())
			if err := m.declare(m.key); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// MustModel is NewModel for static declarations.
func MustModel(name string, opts ...Option) *Model {
	m, err := NewModel(name, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) declare(a *attr.Attribute) error {
	if err := m.checkName(a.Name); err != nil {
		return err
	}
	m.attrs[a.Name] = a
	m.order = append(m.order, a.Name)
	return nil
}

func (m *Model) declareCustom(name string, kind attr.Kind) error {
	if err := m.checkName(name); err != nil {
		return err
	}
	m.customs[name] = kind
	m.customOrder = append(m.customOrder, name)
	return nil
}

func (m *Model) checkName(name string) error {
	if name == "" {
		return errors.Newf("%s: attribute name must not be empty", m.name)
	}
	if reserved[name] || name == index.AllName {
		return &types.NameInUseError{Model: m.name, Name: name}
	}
	if _, ok := m.attrs[name]; ok {
		return &types.NameInUseError{Model: m.name, Name: name}
	}
	if _, ok := m.customs[name]; ok {
		return &types.NameInUseError{Model: m.name, Name: name}
	}
	return nil
}

// Name returns the type name used in store keys.
func (m *Model) Name() string { return m.name }

// KeyAttribute returns the attribute identifying elements.
func (m *Model) KeyAttribute() *attr.Attribute { return m.key }

// Dynamic reports whether undeclared names register dynamic attributes.
func (m *Model) Dynamic() bool { return m.dynamic }

// Attribute returns the named attribute, declared or dynamic.
func (m *Model) Attribute(name string) (*attr.Attribute, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attrs[name]
	return a, ok
}

// Attributes returns every attribute in declaration order, dynamic ones
// last.
func (m *Model) Attributes() []*attr.Attribute {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*attr.Attribute, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.attrs[name])
	}
	return out
}

// Indexed returns the indexed attributes.
func (m *Model) Indexed() []*attr.Attribute {
	var out []*attr.Attribute
	for _, a := range m.Attributes() {
		if a.Indexed {
			out = append(out, a)
		}
	}
	return out
}

// CustomKind returns the kind of a custom attribute.
func (m *Model) CustomKind(name string) (attr.Kind, bool) {
	k, ok := m.customs[name]
	return k, ok
}

// Customs returns the custom attribute names in declaration order.
func (m *Model) Customs() []string {
	return append([]string(nil), m.customOrder...)
}

// Index returns the index for name: "all" or an indexed attribute. Any
// other name fails with *types.UnsupportedFilterError.
func (m *Model) Index(name string) (*index.Index, error) {
	if name == index.AllName {
		return index.All(m.name), nil
	}
	a, ok := m.Attribute(name)
	if !ok || !a.Indexed {
		return nil, &types.UnsupportedFilterError{Model: m.name, Attribute: name}
	}
	return index.For(m.name, name), nil
}

// resolve returns the attribute for name, registering a dynamic attribute
// when the model allows it.
func (m *Model) resolve(name string) (*attr.Attribute, error) {
	if reserved[name] {
		return nil, &types.UndefinedAttributeError{Model: m.name, Attribute: name}
	}
	if a, ok := m.Attribute(name); ok {
		return a, nil
	}
	if _, ok := m.customs[name]; ok || !m.dynamic || name == index.AllName {
		return nil, &types.UndefinedAttributeError{Model: m.name, Attribute: name}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.attrs[name]; ok {
		return a, nil
	}
	a := attr.New(name, attr.Dynamic())
	m.attrs[name] = a
	m.order = append(m.order, name)
	return a, nil
}

// sortedNames returns the keys of values sorted, for stable iteration.
func sortedNames[V any](values map[string]V) []string {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
