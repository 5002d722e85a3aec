package query

import (
	"context"

	"github.com/mesh-intelligence/kvgraph/internal/logger"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// Batch is the compiled form of a query tree: store commands in order plus
// the temporary keys they create.
type Batch struct {
	cmds  []types.Cmd
	temps []string
}

// Compile builds the batch for root. It does not touch the store.
func Compile(root Node) (*Batch, error) {
	b := &Batch{}
	if err := root.compile(b, true); err != nil {
		return nil, err
	}
	return b, nil
}

// Add appends a command.
func (b *Batch) Add(cmd types.Cmd) { b.cmds = append(b.cmds, cmd) }

// AddTemp registers a temporary key to delete after execution.
func (b *Batch) AddTemp(key string) { b.temps = append(b.temps, key) }

// Commands returns the compiled commands.
func (b *Batch) Commands() []types.Cmd { return b.cmds }

// TempKeys returns the registered temporary keys.
func (b *Batch) TempKeys() []string { return b.temps }

// Execute runs the batch and returns the reply of its last real command.
// More than one command runs as a single atomic group that also deletes
// the temporary keys. An empty batch returns the zero Reply.
func (b *Batch) Execute(ctx context.Context, st types.Store) (types.Reply, error) {
	l := logger.Component("query")
	switch len(b.cmds) {
	case 0:
		return types.Reply{}, nil
	case 1:
		l.Debug().Int("commands", 1).Msg("executing query")
		r, err := st.Do(ctx, b.cmds[0])
		if err != nil {
			return types.Reply{}, &types.BatchExecutionError{Commands: 1, Err: err}
		}
		return r, nil
	}

	cmds := append([]types.Cmd(nil), b.cmds...)
	cleanup := 0
	if len(b.temps) > 0 {
		cmds = append(cmds, types.Del(b.temps...))
		cleanup = 1
	}
	l.Debug().Int("commands", len(cmds)).Int("temp_keys", len(b.temps)).Msg("executing query")

	replies, err := st.Exec(ctx, cmds)
	if err != nil {
		b.cleanup(ctx, st)
		return types.Reply{}, &types.BatchExecutionError{Commands: len(cmds), Err: err}
	}
	return replies[len(replies)-1-cleanup], nil
}

// cleanup deletes the temporary keys after a failed batch. Failures are
// logged; SweepTempKeys collects what is left.
func (b *Batch) cleanup(ctx context.Context, st types.Store) {
	if len(b.temps) == 0 {
		return
	}
	if _, err := st.Do(context.WithoutCancel(ctx), types.Del(b.temps...)); err != nil {
		l := logger.Component("query")
		l.Warn().Err(err).Strs("temp_keys", b.temps).Msg("temp key cleanup failed")
	}
}
