package element

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/kvgraph/pkg/attr"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// custom is the shared part of counters, sets and lists.
type custom struct {
	el   *Element
	name string
}

// Name returns the attribute name.
func (c custom) Name() string { return c.name }

// Key returns the store key, derived from the element's saved key.
func (c custom) Key() string {
	return types.CustomKey(c.el.model.name, c.el.savedKey, c.name)
}

func (c custom) mutable() error {
	if !c.el.Persisted() {
		return &types.NotPersistedError{Model: c.el.model.name, Attribute: c.name}
	}
	return nil
}

func (c custom) do(ctx context.Context, cmd types.Cmd) (types.Reply, error) {
	r, err := c.el.store.Do(ctx, cmd)
	return r, errors.Wrapf(err, "%s.%s", c.el.model.name, c.name)
}

func lookupCustom[T any](e *Element, name string, kind attr.Kind, build func(custom) T) (T, error) {
	var zero T
	k, ok := e.model.CustomKind(name)
	if !ok || k != kind {
		return zero, &types.UndefinedAttributeError{Model: e.model.name, Attribute: name}
	}
	if v, ok := e.customs[name]; ok {
		return v.(T), nil
	}
	v := build(custom{el: e, name: name})
	e.customs[name] = v
	return v, nil
}

// Counter is an integer mutated atomically in the store.
type Counter struct {
	custom
	value  int64
	loaded bool
}

// Counter returns the named counter.
func (e *Element) Counter(name string) (*Counter, error) {
	return lookupCustom(e, name, attr.KindCounter, func(c custom) *Counter { return &Counter{custom: c} })
}

// Increment adds by and returns the new value.
func (c *Counter) Increment(ctx context.Context, by int64) (int64, error) {
	if err := c.mutable(); err != nil {
		return 0, err
	}
	r, err := c.do(ctx, types.IncrBy(c.Key(), by))
	if err != nil {
		return 0, err
	}
	c.value, c.loaded = r.Int, true
	return c.value, nil
}

// Decrement subtracts by and returns the new value.
func (c *Counter) Decrement(ctx context.Context, by int64) (int64, error) {
	return c.Increment(ctx, -by)
}

// Value returns the cached value, loading it on first use.
func (c *Counter) Value(ctx context.Context) (int64, error) {
	if c.loaded {
		return c.value, nil
	}
	return c.Reload(ctx)
}

// Reload fetches the value from the store. Unsaved elements read zero.
func (c *Counter) Reload(ctx context.Context) (int64, error) {
	if !c.el.Persisted() {
		return 0, nil
	}
	r, err := c.do(ctx, types.Get(c.Key()))
	if err != nil {
		return 0, err
	}
	var n int64
	if !r.Nil {
		if n, err = strconv.ParseInt(r.Str, 10, 64); err != nil {
			return 0, errors.Wrapf(err, "%s.%s", c.el.model.name, c.name)
		}
	}
	c.value, c.loaded = n, true
	return n, nil
}

// Set is an unordered collection of unique strings.
type Set struct {
	custom
	members []string
}

// CustomSet returns the named set attribute.
func (e *Element) CustomSet(name string) (*Set, error) {
	return lookupCustom(e, name, attr.KindSet, func(c custom) *Set { return &Set{custom: c} })
}

// Add adds members in one command and returns how many were new.
func (s *Set) Add(ctx context.Context, members ...string) (int64, error) {
	if err := s.mutable(); err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}
	s.members = nil
	r, err := s.do(ctx, types.SAdd(s.Key(), members...))
	return r.Int, err
}

// Remove removes members in one command and returns how many were present.
func (s *Set) Remove(ctx context.Context, members ...string) (int64, error) {
	if err := s.mutable(); err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}
	s.members = nil
	r, err := s.do(ctx, types.SRem(s.Key(), members...))
	return r.Int, err
}

// Members returns the cached members, loading them on first use.
func (s *Set) Members(ctx context.Context) ([]string, error) {
	if s.members != nil {
		return s.members, nil
	}
	return s.Reload(ctx)
}

// Reload fetches the members from the store.
func (s *Set) Reload(ctx context.Context) ([]string, error) {
	if !s.el.Persisted() {
		return []string{}, nil
	}
	r, err := s.do(ctx, types.SMembers(s.Key()))
	if err != nil {
		return nil, err
	}
	s.members = append([]string{}, r.Strs...)
	return s.members, nil
}

// Contains reports whether member is in the set.
func (s *Set) Contains(ctx context.Context, member string) (bool, error) {
	if !s.el.Persisted() {
		return false, nil
	}
	r, err := s.do(ctx, types.SIsMember(s.Key(), member))
	return r.Int == 1, err
}

// Count returns the set size.
func (s *Set) Count(ctx context.Context) (int64, error) {
	if !s.el.Persisted() {
		return 0, nil
	}
	r, err := s.do(ctx, types.SCard(s.Key()))
	return r.Int, err
}

// List is an ordered sequence of strings.
type List struct {
	custom
	items []string
}

// List returns the named list.
func (e *Element) List(name string) (*List, error) {
	return lookupCustom(e, name, attr.KindList, func(c custom) *List { return &List{custom: c} })
}

// Push appends values in one command and returns the new length.
func (l *List) Push(ctx context.Context, values ...string) (int64, error) {
	return l.push(ctx, types.RPush(l.Key(), values...), len(values))
}

// Unshift prepends values in one command and returns the new length.
func (l *List) Unshift(ctx context.Context, values ...string) (int64, error) {
	return l.push(ctx, types.LPush(l.Key(), values...), len(values))
}

func (l *List) push(ctx context.Context, cmd types.Cmd, n int) (int64, error) {
	if err := l.mutable(); err != nil {
		return 0, err
	}
	if n == 0 {
		return l.Len(ctx)
	}
	l.items = nil
	r, err := l.do(ctx, cmd)
	return r.Int, err
}

// Pop removes and returns the last value. ok is false when the list is
// empty.
func (l *List) Pop(ctx context.Context) (v string, ok bool, err error) {
	return l.pop(ctx, types.RPop(l.Key()))
}

// Shift removes and returns the first value.
func (l *List) Shift(ctx context.Context) (v string, ok bool, err error) {
	return l.pop(ctx, types.LPop(l.Key()))
}

func (l *List) pop(ctx context.Context, cmd types.Cmd) (string, bool, error) {
	if err := l.mutable(); err != nil {
		return "", false, err
	}
	l.items = nil
	r, err := l.do(ctx, cmd)
	if err != nil || r.Nil {
		return "", false, err
	}
	return r.Str, true, nil
}

// At returns the value at i. Negative indexes count from the end.
func (l *List) At(ctx context.Context, i int64) (v string, ok bool, err error) {
	if !l.el.Persisted() {
		return "", false, nil
	}
	r, err := l.do(ctx, types.LIndex(l.Key(), i))
	if err != nil || r.Nil {
		return "", false, err
	}
	return r.Str, true, nil
}

// SetAt replaces the value at i.
func (l *List) SetAt(ctx context.Context, i int64, v string) error {
	if err := l.mutable(); err != nil {
		return err
	}
	l.items = nil
	_, err := l.do(ctx, types.LSet(l.Key(), i, v))
	return err
}

// Items returns the cached values, loading them on first use.
func (l *List) Items(ctx context.Context) ([]string, error) {
	if l.items != nil {
		return l.items, nil
	}
	return l.Reload(ctx)
}

// Range returns values from start to stop inclusive.
func (l *List) Range(ctx context.Context, start, stop int64) ([]string, error) {
	if !l.el.Persisted() {
		return []string{}, nil
	}
	r, err := l.do(ctx, types.LRange(l.Key(), start, stop))
	if err != nil {
		return nil, err
	}
	return r.Strs, nil
}

// Reload fetches all values from the store.
func (l *List) Reload(ctx context.Context) ([]string, error) {
	items, err := l.Range(ctx, 0, -1)
	if err != nil {
		return nil, err
	}
	l.items = append([]string{}, items...)
	return l.items, nil
}

// Len returns the list length.
func (l *List) Len(ctx context.Context) (int64, error) {
	if !l.el.Persisted() {
		return 0, nil
	}
	r, err := l.do(ctx, types.LLen(l.Key()))
	return r.Int, err
}
