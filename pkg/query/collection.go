package query

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/kvgraph/internal/logger"
	"github.com/mesh-intelligence/kvgraph/internal/metrics"
	"github.com/mesh-intelligence/kvgraph/pkg/element"
	"github.com/mesh-intelligence/kvgraph/pkg/index"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// Collection is a lazily evaluated query over one model. The matching keys
// are fetched on first use and kept until Reload.
type Collection struct {
	model *element.Model
	store types.Store
	root  Node

	keys   []string
	loaded bool
}

// All returns every element of m.
func All(m *element.Model, st types.Store) *Collection {
	return &Collection{model: m, store: st, root: NewOperand(index.All(m.Name()), "")}
}

// Where returns the elements of m matching every filter. Filter values are
// typecast by their attribute. Filtering on an attribute without an index
// fails with *types.UnsupportedFilterError before the store is touched.
func Where(m *element.Model, st types.Store, filters map[string]any) (*Collection, error) {
	if len(filters) == 0 {
		return All(m, st), nil
	}
	root, err := filterNode(m, filters)
	if err != nil {
		return nil, err
	}
	return &Collection{model: m, store: st, root: root}, nil
}

// New wraps an already built tree.
func New(m *element.Model, st types.Store, root Node) *Collection {
	return &Collection{model: m, store: st, root: root}
}

func filterNode(m *element.Model, filters map[string]any) (Node, error) {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	operands := make([]Node, 0, len(names))
	for _, name := range names {
		ix, err := m.Index(name)
		if err != nil {
			return nil, err
		}
		var value string
		if !ix.IsAll() {
			a, _ := m.Attribute(name)
			v, err := a.Typecast(m, filters[name])
			if err != nil {
				return nil, err
			}
			if value, err = a.Dump(v); err != nil {
				return nil, err
			}
		}
		operands = append(operands, NewOperand(ix, value))
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return And(operands...), nil
}

// Model returns the queried model.
func (c *Collection) Model() *element.Model { return c.model }

// Root returns the query tree.
func (c *Collection) Root() Node { return c.root }

// And returns the intersection of c and other without evaluating either.
func (c *Collection) And(other *Collection) *Collection {
	return New(c.model, c.store, And(c.root, other.root))
}

// Or returns the union of c and other without evaluating either.
func (c *Collection) Or(other *Collection) *Collection {
	return New(c.model, c.store, Or(c.root, other.root))
}

// Where narrows c to elements also matching filters.
func (c *Collection) Where(filters map[string]any) (*Collection, error) {
	n, err := filterNode(c.model, filters)
	if err != nil {
		return nil, err
	}
	return New(c.model, c.store, And(c.root, n)), nil
}

// OrWhere widens c with the elements matching filters.
func (c *Collection) OrWhere(filters map[string]any) (*Collection, error) {
	n, err := filterNode(c.model, filters)
	if err != nil {
		return nil, err
	}
	return New(c.model, c.store, Or(c.root, n)), nil
}

// Reload forgets the memoized keys.
func (c *Collection) Reload() {
	c.keys, c.loaded = nil, false
}

// Keys returns the matching element keys, sorted.
func (c *Collection) Keys(ctx context.Context) ([]string, error) {
	if c.loaded {
		return c.keys, nil
	}
	keys, err := c.evaluate(ctx, c.root)
	if err != nil {
		return nil, err
	}
	c.keys, c.loaded = keys, true
	return keys, nil
}

func (c *Collection) evaluate(ctx context.Context, root Node) ([]string, error) {
	keys, err := c.run(ctx, root)
	metrics.QueryEvaluations.WithLabelValues(c.model.Name(), metrics.Result(err)).Inc()
	return keys, err
}

func (c *Collection) run(ctx context.Context, root Node) ([]string, error) {
	b, err := Compile(root)
	if err != nil {
		return nil, err
	}
	r, err := b.Execute(ctx, c.store)
	if err != nil {
		return nil, err
	}
	if op, ok := root.(*Operation); ok && op.Kind() == KindRandom {
		if r.Nil || r.Str == "" {
			return []string{}, nil
		}
		return []string{r.Str}, nil
	}
	keys := append([]string{}, r.Strs...)
	sort.Strings(keys)
	return keys, nil
}

// Count returns the number of matching keys.
func (c *Collection) Count(ctx context.Context) (int, error) {
	keys, err := c.Keys(ctx)
	return len(keys), err
}

// Elements loads every matching element. Keys whose record is gone are
// skipped.
func (c *Collection) Elements(ctx context.Context) ([]*element.Element, error) {
	var out []*element.Element
	err := c.Each(ctx, func(e *element.Element) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

// Each loads the matching elements in key order and calls fn for each. An
// error from fn stops the iteration and is returned.
func (c *Collection) Each(ctx context.Context, fn func(*element.Element) error) error {
	keys, err := c.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		e, err := c.load(ctx, key)
		if err != nil {
			return err
		}
		if e == nil {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// First returns the element with the lowest key, or nil.
func (c *Collection) First(ctx context.Context) (*element.Element, error) {
	keys, err := c.Keys(ctx)
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	return c.load(ctx, keys[0])
}

// Random returns one arbitrary matching element, or nil. It always runs a
// fresh query.
func (c *Collection) Random(ctx context.Context) (*element.Element, error) {
	keys, err := c.evaluate(ctx, Random(c.root))
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	return c.load(ctx, keys[0])
}

func (c *Collection) load(ctx context.Context, key string) (*element.Element, error) {
	e, err := c.model.Get(ctx, c.store, key)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", c.model.Name())
	}
	if e == nil {
		l := logger.Component("query")
		l.Debug().Str("model", c.model.Name()).Str("key", key).Msg("indexed key has no record")
	}
	return e, nil
}
