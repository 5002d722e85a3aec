// Package sqlite implements the SQLite storage backend for kvgraph.
//
// Every key is one row of the entries table holding its kind and a JSON
// encoding of its value. Commands run through the shared keyspace engine
// inside a SQL transaction, so Exec is all-or-nothing.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/kvgraph/internal/keyspace"
	"github.com/mesh-intelligence/kvgraph/internal/logger"
	"github.com/mesh-intelligence/kvgraph/internal/metrics"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// DBFile is the database file name inside DataDir.
const DBFile = "kvgraph.db"

const backendName = types.BackendSQLite

// Backend implements types.Store on SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Open creates a backend and attaches it.
func Open(config types.Config) (*Backend, error) {
	b := NewBackend()
	if err := b.Attach(config); err != nil {
		return nil, err
	}
	return b, nil
}

// Attach opens the database in config.DataDir, creating the directory and
// schema if needed. Existing data is kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return errors.Wrap(err, "create data dir")
	}

	dbPath := filepath.Join(dataDir, DBFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return errors.Wrapf(err, "open %s", dbPath)
	}
	// One connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return errors.Wrap(err, "apply schema")
		}
	}

	b.db = db
	b.config = config
	b.attached = true

	l := logger.Component("sqlite")
	l.Debug().Str("path", dbPath).Msg("attached")
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrStoreClosed. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// Close detaches the backend.
func (b *Backend) Close() error {
	return b.Detach()
}

// Do executes one command in its own transaction.
func (b *Backend) Do(ctx context.Context, cmd types.Cmd) (types.Reply, error) {
	replies, err := b.run(ctx, []types.Cmd{cmd}, keyspace.ReadOnly(cmd.Op))
	if err != nil {
		return types.Reply{}, err
	}
	return replies[0], nil
}

// Exec executes cmds in a single transaction.
func (b *Backend) Exec(ctx context.Context, cmds []types.Cmd) (replies []types.Reply, err error) {
	start := time.Now()
	defer func() { metrics.ObserveBatch(backendName, start, err) }()
	return b.run(ctx, cmds, false)
}

func (b *Backend) run(ctx context.Context, cmds []types.Cmd, readOnly bool) ([]types.Reply, error) {
	if readOnly {
		b.mu.RLock()
		defer b.mu.RUnlock()
	} else {
		b.mu.Lock()
		defer b.mu.Unlock()
	}
	if !b.attached {
		return nil, types.ErrStoreClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	sp := &space{ctx: ctx, tx: tx}

	replies := make([]types.Reply, 0, len(cmds))
	for i, cmd := range cmds {
		r, err := keyspace.Apply(sp, cmd)
		metrics.StoreCommands.WithLabelValues(backendName, string(cmd.Op), metrics.Result(err)).Inc()
		if err != nil {
			_ = tx.Rollback()
			if len(cmds) > 1 {
				return nil, errors.Wrapf(err, "command %d (%s)", i, cmd.Op)
			}
			return nil, err
		}
		replies = append(replies, r)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return replies, nil
}
