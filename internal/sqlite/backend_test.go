package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kvgraph/internal/storetest"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

func testConfig(t *testing.T) types.Config {
	return types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}
}

func TestConformance(t *testing.T) {
	storetest.Run(t, "sqlite", func(t *testing.T) types.Store {
		b, err := Open(testConfig(t))
		require.NoError(t, err)
		return b
	}, storetest.FeatureRollback)
}

func TestBackend_Attach(t *testing.T) {
	config := testConfig(t)
	b := NewBackend()
	require.NoError(t, b.Attach(config))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(config.DataDir, DBFile))
	assert.NoError(t, err, "database file created")

	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
}

func TestBackend_AttachValidatesConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: ""})
	assert.ErrorIs(t, err, types.ErrBackendEmpty)
}

func TestBackend_Detach(t *testing.T) {
	b, err := Open(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach is idempotent")

	_, err = b.Do(context.Background(), types.Get("k"))
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestBackend_DataSurvivesReattach(t *testing.T) {
	config := testConfig(t)
	ctx := context.Background()

	b, err := Open(config)
	require.NoError(t, err)
	_, err = b.Exec(ctx, []types.Cmd{
		types.HSet("Person:bob", map[string]string{"name": "bob", "mood": "happy"}),
		types.SAdd("Person::indices::all", "bob"),
		types.RPush("Person:bob:log", "a", "b"),
	})
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	require.NoError(t, b.Attach(config))
	defer b.Detach()

	r, err := b.Do(ctx, types.HGetAll("Person:bob"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "bob", "mood": "happy"}, r.Map)

	r, err = b.Do(ctx, types.SMembers("Person::indices::all"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, r.Strs)

	r, err = b.Do(ctx, types.LRange("Person:bob:log", 0, -1))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Strs)
}
