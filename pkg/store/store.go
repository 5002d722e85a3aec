// Package store opens the backing store named by a Config.
package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/kvgraph/internal/memstore"
	"github.com/mesh-intelligence/kvgraph/internal/redis"
	"github.com/mesh-intelligence/kvgraph/internal/sqlite"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// Open validates cfg and returns a connected store for cfg.Backend.
func Open(ctx context.Context, cfg types.Config) (types.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case types.BackendMemory:
		return memstore.New(), nil
	case types.BackendSQLite:
		b, err := sqlite.Open(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	case types.BackendRedis:
		r, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, errors.Wrapf(types.ErrBackendUnknown, "backend %q", cfg.Backend)
	}
}
