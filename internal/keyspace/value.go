// Package keyspace executes store commands against an abstract keyspace.
// The in-memory and SQLite backends share it so both follow the same
// command semantics; each supplies a Space that loads and stores values.
//
// Values are copy-on-write: Apply never mutates a loaded value, it stores a
// modified clone. Spaces may therefore hand out shared pointers.
package keyspace

import (
	"maps"
	"slices"
)

// Kind is the data type held by a key.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindHash
	KindSet
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindHash:
		return "hash"
	case KindSet:
		return "set"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is the content of one key.
type Value struct {
	Kind Kind                `json:"kind"`
	Str  string              `json:"str,omitempty"`
	Hash map[string]string   `json:"hash,omitempty"`
	Set  map[string]struct{} `json:"set,omitempty"`
	List []string            `json:"list,omitempty"`
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	return &Value{
		Kind: v.Kind,
		Str:  v.Str,
		Hash: maps.Clone(v.Hash),
		Set:  maps.Clone(v.Set),
		List: slices.Clone(v.List),
	}
}

// Empty reports whether v holds nothing. Empty aggregates are deleted, as
// in Redis.
func (v *Value) Empty() bool {
	if v == nil {
		return true
	}
	switch v.Kind {
	case KindHash:
		return len(v.Hash) == 0
	case KindSet:
		return len(v.Set) == 0
	case KindList:
		return len(v.List) == 0
	default:
		return false
	}
}

// Members returns the set members in sorted order.
func (v *Value) Members() []string {
	if v == nil {
		return []string{}
	}
	out := make([]string, 0, len(v.Set))
	for m := range v.Set {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

func newSet(members ...string) *Value {
	v := &Value{Kind: KindSet, Set: make(map[string]struct{}, len(members))}
	for _, m := range members {
		v.Set[m] = struct{}{}
	}
	return v
}
