package element

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/kvgraph/internal/logger"
	"github.com/mesh-intelligence/kvgraph/internal/metrics"
	"github.com/mesh-intelligence/kvgraph/pkg/index"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// Messages recorded in Errors by Save.
const (
	MsgBlank = "can't be blank"
	MsgTaken = "is already taken"
)

// New returns an unsaved element bound to st with values applied.
func (m *Model) New(st types.Store, values map[string]any) (*Element, error) {
	e := newElement(m, st)
	if err := e.UpdateAttributes(values); err != nil {
		return nil, err
	}
	return e, nil
}

// Get loads the element stored under key. It returns nil, nil when there is
// no record.
func (m *Model) Get(ctx context.Context, st types.Store, key string) (*Element, error) {
	r, err := st.Do(ctx, types.HGetAll(types.ElementKey(m.name, key)))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s %q", m.name, key)
	}
	if len(r.Map) == 0 {
		return nil, nil
	}
	return m.hydrate(st, key, r.Map)
}

// Find is Get for keys that must exist. A missing record fails with
// *types.NotFoundError.
func (m *Model) Find(ctx context.Context, st types.Store, key string) (*Element, error) {
	e, err := m.Get(ctx, st, key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &types.NotFoundError{Model: m.name, Key: key}
	}
	return e, nil
}

// Exists reports whether a record is stored under key.
func (m *Model) Exists(ctx context.Context, st types.Store, key string) (bool, error) {
	r, err := st.Do(ctx, types.Exists(types.ElementKey(m.name, key)))
	if err != nil {
		return false, err
	}
	return r.Int > 0, nil
}

func (m *Model) hydrate(st types.Store, key string, fields map[string]string) (*Element, error) {
	e := newElement(m, st)
	l := logger.Component("element")
	for _, name := range sortedNames(fields) {
		a, err := m.resolve(name)
		if err != nil {
			l.Debug().Str("model", m.name).Str("key", key).Str("field", name).Msg("skipping undeclared field")
			continue
		}
		if err := e.attrs.load(e, a, fields[name]); err != nil {
			return nil, errors.Wrapf(err, "load %s %q", m.name, key)
		}
	}
	if _, ok := fields[m.key.Name]; !ok {
		if err := e.attrs.load(e, m.key, key); err != nil {
			return nil, err
		}
	}
	e.state = StatePersisted
	e.savedKey = key
	return e, nil
}

// Save writes the element. It returns false without writing when validation
// fails or the key is blank or already taken; the reasons are in Errors.
// The error return is reserved for hook and store failures.
func (e *Element) Save(ctx context.Context) (bool, error) {
	switch {
	case e.state == StateDestroyed:
		return false, types.ErrDestroyed
	case e.state == StatePersisted && !e.Dirty():
		return true, nil
	}

	if err := runHooks(ctx, e, e.model.hooks.beforeSave); err != nil {
		return false, err
	}

	path := "update"
	if e.state == StateNew {
		path = "create"
	}
	if !e.Valid() {
		metrics.ElementSaves.WithLabelValues(e.model.name, path, "invalid").Inc()
		return false, nil
	}

	key, err := e.key()
	if err != nil {
		return false, err
	}
	if key == "" {
		e.errors.Add(e.model.key.Name, MsgBlank)
		metrics.ElementSaves.WithLabelValues(e.model.name, path, "invalid").Inc()
		return false, nil
	}

	var saved bool
	if e.state == StateNew {
		saved, err = e.create(ctx, key)
	} else {
		saved, err = e.update(ctx, key)
	}
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case !saved:
		result = "taken"
	}
	metrics.ElementSaves.WithLabelValues(e.model.name, path, result).Inc()
	if err != nil || !saved {
		return false, err
	}

	l := logger.Component("element")
	l.Debug().Str("model", e.model.name).Str("key", key).Str("path", path).Msg("saved")

	if err := runHooks(ctx, e, e.model.hooks.afterSave); err != nil {
		return true, err
	}
	return true, nil
}

// taken checks the destination key before a create or rename.
func (e *Element) taken(ctx context.Context, key string) (bool, error) {
	exists, err := e.model.Exists(ctx, e.store, key)
	if err != nil {
		return false, err
	}
	if exists {
		e.errors.Add(e.model.key.Name, MsgTaken)
	}
	return exists, nil
}

func (e *Element) create(ctx context.Context, key string) (bool, error) {
	if taken, err := e.taken(ctx, key); err != nil || taken {
		return false, err
	}

	fields, err := e.dumped()
	if err != nil {
		return false, err
	}
	cmds := []types.Cmd{
		types.HSet(types.ElementKey(e.model.name, key), fields),
		index.All(e.model.name).AddCmd(key, ""),
	}
	for _, a := range e.model.Indexed() {
		cmds = append(cmds, index.For(e.model.name, a.Name).AddCmd(key, fields[a.Name]))
	}
	if err := e.exec(ctx, cmds); err != nil {
		return false, err
	}

	e.state = StatePersisted
	e.savedKey = key
	e.attrs.clean()
	return true, nil
}

func (e *Element) update(ctx context.Context, key string) (bool, error) {
	oldKey := e.savedKey
	renamed := key != oldKey
	m := e.model

	var cmds []types.Cmd
	if renamed {
		moved, ok, err := e.checkRename(ctx, key)
		if err != nil || !ok {
			return false, err
		}
		cmds = append(cmds, types.Rename(types.ElementKey(m.name, oldKey), types.ElementKey(m.name, key)))
		for _, name := range moved {
			cmds = append(cmds, types.Rename(types.CustomKey(m.name, oldKey, name), types.CustomKey(m.name, key, name)))
		}
	}

	fields := make(map[string]string)
	for _, name := range e.Changed() {
		a, ok := m.Attribute(name)
		if !ok {
			continue
		}
		s, err := e.dump(a)
		if err != nil {
			return false, err
		}
		fields[name] = s
	}
	if len(fields) > 0 {
		cmds = append(cmds, types.HSet(types.ElementKey(m.name, key), fields))
	}

	if renamed {
		all := index.All(m.name)
		cmds = append(cmds, all.DeleteCmd(oldKey, ""), all.AddCmd(key, ""))
	}
	for _, a := range m.Indexed() {
		prev, err := e.savedValue(a)
		if err != nil {
			return false, err
		}
		cur, err := e.dump(a)
		if err != nil {
			return false, err
		}
		if !renamed && prev == cur {
			continue
		}
		ix := index.For(m.name, a.Name)
		cmds = append(cmds, ix.DeleteCmd(oldKey, prev), ix.AddCmd(key, cur))
	}

	if err := e.exec(ctx, cmds); err != nil {
		return false, err
	}
	e.savedKey = key
	e.attrs.clean()
	return true, nil
}

// checkRename verifies the new key is free and returns the custom
// attributes that have records to move, in one round trip.
func (e *Element) checkRename(ctx context.Context, key string) (moved []string, ok bool, err error) {
	m := e.model
	customs := m.Customs()
	cmds := make([]types.Cmd, 0, 1+len(customs))
	cmds = append(cmds, types.Exists(types.ElementKey(m.name, key)))
	for _, name := range customs {
		cmds = append(cmds, types.Exists(types.CustomKey(m.name, e.savedKey, name)))
	}
	replies, err := e.store.Exec(ctx, cmds)
	if err != nil {
		return nil, false, &types.BatchExecutionError{Commands: len(cmds), Err: err}
	}
	if replies[0].Int > 0 {
		e.errors.Add(m.key.Name, MsgTaken)
		return nil, false, nil
	}
	for i, name := range customs {
		if replies[i+1].Int > 0 {
			moved = append(moved, name)
		}
	}
	return moved, true, nil
}

// Destroy removes the record, its index memberships and its custom
// attributes in one batch. Unsaved key changes are ignored: the record
// under the last saved key is removed.
func (e *Element) Destroy(ctx context.Context) (bool, error) {
	if e.state != StatePersisted {
		return true, nil
	}
	if err := runHooks(ctx, e, e.model.hooks.beforeDestroy); err != nil {
		return false, err
	}

	m := e.model
	key := e.savedKey
	cmds := []types.Cmd{index.All(m.name).DeleteCmd(key, "")}
	for _, a := range m.Indexed() {
		v, err := e.savedValue(a)
		if err != nil {
			return false, err
		}
		cmds = append(cmds, index.For(m.name, a.Name).DeleteCmd(key, v))
	}
	dels := []string{types.ElementKey(m.name, key)}
	for _, name := range m.Customs() {
		dels = append(dels, types.CustomKey(m.name, key, name))
	}
	cmds = append(cmds, types.Del(dels...))

	err := e.exec(ctx, cmds)
	metrics.ElementDestroys.WithLabelValues(m.name, metrics.Result(err)).Inc()
	if err != nil {
		return false, err
	}
	e.state = StateDestroyed
	e.customs = make(map[string]any)

	l := logger.Component("element")
	l.Debug().Str("model", m.name).Str("key", key).Msg("destroyed")

	if err := runHooks(ctx, e, m.hooks.afterDestroy); err != nil {
		return true, err
	}
	return true, nil
}

func (e *Element) exec(ctx context.Context, cmds []types.Cmd) error {
	if _, err := e.store.Exec(ctx, cmds); err != nil {
		return &types.BatchExecutionError{Commands: len(cmds), Err: err}
	}
	return nil
}
