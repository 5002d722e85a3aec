// Package memstore implements an in-process store.
//
// The keyspace lives in an xsync map. Read-only commands run under a shared
// lock and writes under the exclusive lock, so a batch submitted with Exec
// is isolated from other callers. A failed batch is undone from a journal
// and leaves no partial writes.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/mesh-intelligence/kvgraph/internal/keyspace"
	"github.com/mesh-intelligence/kvgraph/internal/metrics"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

const backendName = types.BackendMemory

// Store is an in-memory types.Store.
type Store struct {
	mu     sync.RWMutex
	data   *xsync.MapOf[string, *keyspace.Value]
	closed bool
}

// New returns an empty store.
func New() *Store {
	return &Store{data: xsync.NewMapOf[string, *keyspace.Value]()}
}

// Do executes one command.
func (s *Store) Do(ctx context.Context, cmd types.Cmd) (types.Reply, error) {
	if err := ctx.Err(); err != nil {
		return types.Reply{}, err
	}
	if keyspace.ReadOnly(cmd.Op) {
		s.mu.RLock()
		defer s.mu.RUnlock()
	} else {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if s.closed {
		return types.Reply{}, types.ErrStoreClosed
	}
	r, err := keyspace.Apply(space{s.data}, cmd)
	metrics.StoreCommands.WithLabelValues(backendName, string(cmd.Op), metrics.Result(err)).Inc()
	return r, err
}

// Exec executes cmds as one atomic group. On error every write made by the
// group is undone.
func (s *Store) Exec(ctx context.Context, cmds []types.Cmd) (replies []types.Reply, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.ObserveBatch(backendName, start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.ErrStoreClosed
	}

	j := keyspace.NewJournal(space{s.data})
	replies = make([]types.Reply, 0, len(cmds))
	for i, cmd := range cmds {
		r, err := keyspace.Apply(j, cmd)
		metrics.StoreCommands.WithLabelValues(backendName, string(cmd.Op), metrics.Result(err)).Inc()
		if err != nil {
			if rbErr := j.Rollback(); rbErr != nil {
				err = errors.CombineErrors(err, rbErr)
			}
			return nil, errors.Wrapf(err, "command %d (%s)", i, cmd.Op)
		}
		replies = append(replies, r)
	}
	return replies, nil
}

// Close discards the keyspace. Later calls fail with types.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data.Clear()
	return nil
}

// Len returns the number of keys.
func (s *Store) Len() int {
	return s.data.Size()
}

type space struct {
	m *xsync.MapOf[string, *keyspace.Value]
}

func (sp space) Load(key string) (*keyspace.Value, error) {
	v, _ := sp.m.Load(key)
	return v, nil
}

func (sp space) Store(key string, v *keyspace.Value) error {
	if v.Empty() {
		sp.m.Delete(key)
		return nil
	}
	sp.m.Store(key, v)
	return nil
}

func (sp space) Keys() ([]string, error) {
	out := make([]string, 0, sp.m.Size())
	sp.m.Range(func(k string, _ *keyspace.Value) bool {
		out = append(out, k)
		return true
	})
	return out, nil
}
