package storetest

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// Recorder wraps a store and records every command it forwards. Exec
// batches are recorded as one entry each.
type Recorder struct {
	types.Store

	mu      sync.Mutex
	single  []types.Cmd
	batches [][]types.Cmd
}

// NewRecorder wraps st.
func NewRecorder(st types.Store) *Recorder {
	return &Recorder{Store: st}
}

// Do records cmd and forwards it.
func (r *Recorder) Do(ctx context.Context, cmd types.Cmd) (types.Reply, error) {
	r.mu.Lock()
	r.single = append(r.single, cmd)
	r.mu.Unlock()
	return r.Store.Do(ctx, cmd)
}

// Exec records the batch and forwards it.
func (r *Recorder) Exec(ctx context.Context, cmds []types.Cmd) ([]types.Reply, error) {
	r.mu.Lock()
	r.batches = append(r.batches, append([]types.Cmd(nil), cmds...))
	r.mu.Unlock()
	return r.Store.Exec(ctx, cmds)
}

// Commands returns the commands sent with Do.
func (r *Recorder) Commands() []types.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Cmd(nil), r.single...)
}

// Batches returns the batches sent with Exec.
func (r *Recorder) Batches() [][]types.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]types.Cmd(nil), r.batches...)
}

// LastBatch returns the most recent Exec batch, or nil.
func (r *Recorder) LastBatch() []types.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.batches) == 0 {
		return nil
	}
	return r.batches[len(r.batches)-1]
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.single = nil
	r.batches = nil
}

// Find returns the recorded batch commands with op, in order.
func Find(batch []types.Cmd, op types.Op) []types.Cmd {
	var out []types.Cmd
	for _, c := range batch {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
