package query

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/kvgraph/internal/logger"
	"github.com/mesh-intelligence/kvgraph/internal/metrics"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// SweepTempKeys deletes temporary query keys left behind by failed batches
// and returns how many were removed. Running it while queries are in
// flight can delete their intermediate results.
func SweepTempKeys(ctx context.Context, st types.Store) (int64, error) {
	r, err := st.Do(ctx, types.Keys(types.TempKeyPrefix+"*"))
	if err != nil {
		return 0, errors.Wrap(err, "list temp keys")
	}
	if len(r.Strs) == 0 {
		return 0, nil
	}
	d, err := st.Do(ctx, types.Del(r.Strs...))
	if err != nil {
		return 0, errors.Wrap(err, "delete temp keys")
	}
	metrics.TempKeysSwept.Add(float64(d.Int))
	l := logger.Component("query")
	l.Info().Int64("deleted", d.Int).Msg("swept temp keys")
	return d.Int, nil
}
