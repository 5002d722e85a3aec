package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  types.Config
	}{
		{"memory", types.Config{Backend: types.BackendMemory}},
		{"sqlite", types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}},
		{"redis", types.Config{Backend: types.BackendRedis, Redis: types.RedisConfig{Addr: mr.Addr()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Open(context.Background(), tt.cfg)
			require.NoError(t, err)
			defer st.Close()

			_, err = st.Do(context.Background(), types.Set("k", "v"))
			require.NoError(t, err)
			r, err := st.Do(context.Background(), types.Get("k"))
			require.NoError(t, err)
			assert.Equal(t, "v", r.Str)
		})
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), types.Config{Backend: "etcd"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)

	_, err = Open(context.Background(), types.Config{Backend: types.BackendRedis})
	assert.ErrorIs(t, err, types.ErrRedisAddrEmpty)
}
