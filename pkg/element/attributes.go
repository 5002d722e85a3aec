package element

import (
	"github.com/mesh-intelligence/kvgraph/pkg/attr"
)

// attributeStore holds the current values of one element and the value
// each dirty attribute had before its first write since the last clean.
type attributeStore struct {
	values map[string]any
	dirty  map[string]any
}

func newAttributeStore() *attributeStore {
	return &attributeStore{
		values: make(map[string]any),
		dirty:  make(map[string]any),
	}
}

// read returns the current value, resolving and keeping the default when
// the attribute was never written. Keeping it makes generated defaults
// stable.
func (s *attributeStore) read(owner any, a *attr.Attribute) (any, error) {
	if v, ok := s.values[a.Name]; ok {
		return v, nil
	}
	v, err := a.Default(owner)
	if err != nil {
		return nil, err
	}
	s.values[a.Name] = v
	return v, nil
}

// write typecasts raw and stores it, recording the pre-write value unless
// one is already recorded.
func (s *attributeStore) write(owner any, a *attr.Attribute, raw any) (any, error) {
	v, err := a.Typecast(owner, raw)
	if err != nil {
		return nil, err
	}
	if _, seen := s.dirty[a.Name]; !seen {
		prev, err := s.read(owner, a)
		if err != nil {
			return nil, err
		}
		s.dirty[a.Name] = prev
	}
	s.values[a.Name] = v
	return v, nil
}

// load decodes a stored field without marking it dirty.
func (s *attributeStore) load(owner any, a *attr.Attribute, stored string) error {
	v, err := a.Load(owner, stored)
	if err != nil {
		return err
	}
	s.values[a.Name] = v
	return nil
}

func (s *attributeStore) isDirty() bool {
	return len(s.dirty) > 0
}

func (s *attributeStore) previous(name string) (any, bool) {
	v, ok := s.dirty[name]
	return v, ok
}

func (s *attributeStore) clean() {
	s.dirty = make(map[string]any)
}

func (s *attributeStore) has(name string) bool {
	_, ok := s.values[name]
	return ok
}
