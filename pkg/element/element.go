package element

import (
	"encoding/json"
	"sort"

	"github.com/mesh-intelligence/kvgraph/internal/logger"
	"github.com/mesh-intelligence/kvgraph/pkg/attr"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// State is the persistence state of an element.
type State int

const (
	// StateNew elements have never been stored.
	StateNew State = iota
	// StatePersisted elements have a record in the store.
	StatePersisted
	// StateDestroyed elements had their record removed. The state is
	// terminal.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePersisted:
		return "persisted"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Element is one stored object of a Model. Elements are not safe for
// concurrent use.
type Element struct {
	model    *Model
	store    types.Store
	attrs    *attributeStore
	state    State
	savedKey string
	errors   Errors
	customs  map[string]any
}

func newElement(m *Model, st types.Store) *Element {
	return &Element{
		model:   m,
		store:   st,
		attrs:   newAttributeStore(),
		errors:  make(Errors),
		customs: make(map[string]any),
	}
}

// Model returns the element's model.
func (e *Element) Model() *Model { return e.model }

// Store returns the store the element reads and writes.
func (e *Element) Store() types.Store { return e.store }

// State returns the persistence state.
func (e *Element) State() State { return e.state }

// Persisted reports whether the element has a current store record.
func (e *Element) Persisted() bool { return e.state == StatePersisted }

// Dirty reports whether any attribute changed since the last clean.
func (e *Element) Dirty() bool { return e.attrs.isDirty() }

// Clean forgets pending changes without reverting values.
func (e *Element) Clean() { e.attrs.clean() }

// Changed returns the names of dirty attributes, sorted.
func (e *Element) Changed() []string {
	return sortedNames(e.attrs.dirty)
}

// Previous returns the value an attribute had before its first write since
// the last clean.
func (e *Element) Previous(name string) (any, bool) {
	return e.attrs.previous(name)
}

// Key returns the current key, the store form of the key attribute. A key
// that cannot be resolved reads as ""; Save reports the error itself.
func (e *Element) Key() string {
	k, err := e.key()
	if err != nil {
		l := logger.Component("element")
		l.Debug().Err(err).Str("model", e.model.name).Msg("key unavailable")
	}
	return k
}

// SavedKey returns the key of the element's store record, or "" for new
// elements.
func (e *Element) SavedKey() string { return e.savedKey }

func (e *Element) key() (string, error) {
	a := e.model.key
	v, err := e.attrs.read(e, a)
	if err != nil {
		return "", err
	}
	return a.Dump(v)
}

// Get returns the current value of an attribute.
func (e *Element) Get(name string) (any, error) {
	if reserved[name] {
		return nil, &types.UndefinedAttributeError{Model: e.model.name, Attribute: name}
	}
	a, ok := e.model.Attribute(name)
	if !ok {
		return nil, &types.UndefinedAttributeError{Model: e.model.name, Attribute: name}
	}
	return e.attrs.read(e, a)
}

// MustGet is Get for attributes known to exist.
func (e *Element) MustGet(name string) any {
	v, err := e.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Set typecasts raw into the named attribute and marks it dirty. Undeclared
// names register a dynamic attribute when the model allows it.
func (e *Element) Set(name string, raw any) (any, error) {
	a, err := e.model.resolve(name)
	if err != nil {
		return nil, err
	}
	return e.attrs.write(e, a, raw)
}

// UpdateAttributes sets every value in name order. It stops at the first
// error and keeps the writes made before it.
func (e *Element) UpdateAttributes(values map[string]any) error {
	for _, name := range sortedNames(values) {
		if _, err := e.Set(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// Attributes materializes current values by name. Dynamic attributes are
// included only when this element holds a value for them.
func (e *Element) Attributes() map[string]any {
	out := make(map[string]any)
	for _, a := range e.model.Attributes() {
		if a.Kind() == attr.KindDynamic && !e.attrs.has(a.Name) {
			continue
		}
		v, err := e.attrs.read(e, a)
		if err != nil {
			v = nil
		}
		out[a.Name] = v
	}
	return out
}

// MarshalJSON encodes the attribute map.
func (e *Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Attributes())
}

// Errors returns the validation errors of the last Valid or Save call.
func (e *Element) Errors() Errors { return e.errors }

// Valid runs the model validators and reports whether none failed.
func (e *Element) Valid() bool {
	e.errors = make(Errors)
	for _, v := range e.model.validators {
		v.Validate(e, e.errors)
	}
	return e.errors.Empty()
}

// dumped returns the store form of every attribute the record holds.
func (e *Element) dumped() (map[string]string, error) {
	fields := make(map[string]string)
	for _, a := range e.model.Attributes() {
		if a.Kind() == attr.KindDynamic && !e.attrs.has(a.Name) {
			continue
		}
		s, err := e.dump(a)
		if err != nil {
			return nil, err
		}
		fields[a.Name] = s
	}
	return fields, nil
}

func (e *Element) dump(a *attr.Attribute) (string, error) {
	v, err := e.attrs.read(e, a)
	if err != nil {
		return "", err
	}
	return a.Dump(v)
}

// savedValue returns the store form an attribute had at the last save.
func (e *Element) savedValue(a *attr.Attribute) (string, error) {
	if prev, ok := e.attrs.previous(a.Name); ok {
		return a.Dump(prev)
	}
	return e.dump(a)
}

// Errors collects validation messages by attribute name.
type Errors map[string][]string

// Add records a message for name.
func (errs Errors) Add(name, msg string) {
	errs[name] = append(errs[name], msg)
}

// On returns the messages for name.
func (errs Errors) On(name string) []string { return errs[name] }

// Empty reports whether no messages were recorded.
func (errs Errors) Empty() bool { return len(errs) == 0 }

// Full returns "name message" strings sorted by name.
func (errs Errors) Full() []string {
	names := make([]string, 0, len(errs))
	for n := range errs {
		names = append(names, n)
	}
	sort.Strings(names)
	var out []string
	for _, n := range names {
		for _, msg := range errs[n] {
			out = append(out, n+" "+msg)
		}
	}
	return out
}

// Validator checks an element before it is saved and records failures in
// errs.
type Validator interface {
	Validate(e *Element, errs Errors)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(e *Element, errs Errors)

// Validate calls f.
func (f ValidatorFunc) Validate(e *Element, errs Errors) { f(e, errs) }

// RequirePresent fails when any named attribute is nil or "".
func RequirePresent(names ...string) Validator {
	return ValidatorFunc(func(e *Element, errs Errors) {
		for _, n := range names {
			v, err := e.Get(n)
			if err != nil || v == nil || v == "" {
				errs.Add(n, MsgBlank)
			}
		}
	})
}
