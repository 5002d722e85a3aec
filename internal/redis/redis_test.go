package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kvgraph/internal/storetest"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	st, err := Open(context.Background(), types.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	return st, mr
}

func TestConformance(t *testing.T) {
	storetest.Run(t, "redis", func(t *testing.T) types.Store {
		st, _ := newStore(t)
		return st
	})
}

func TestKeyLayoutOnServer(t *testing.T) {
	st, mr := newStore(t)
	defer st.Close()
	ctx := context.Background()

	_, err := st.Exec(ctx, []types.Cmd{
		types.HSet(types.ElementKey("Person", "bob"), map[string]string{"mood": "happy"}),
		types.SAdd(types.IndexKey("Person", "all"), "bob"),
		types.SAdd(types.BucketKey("Person", "mood", "happy"), "bob"),
	})
	require.NoError(t, err)

	assert.Equal(t, "happy", mr.HGet("Person:bob", "mood"))
	members, err := mr.Members("Person::indices::mood::happy")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, members)
	assert.True(t, mr.Exists("Person::indices::all"))
}

func TestExecReportsNilReplies(t *testing.T) {
	st, _ := newStore(t)
	defer st.Close()

	replies, err := st.Exec(context.Background(), []types.Cmd{
		types.Get("missing"),
		types.Set("k", "v"),
		types.Get("k"),
	})
	require.NoError(t, err)
	require.Len(t, replies, 3)
	assert.True(t, replies[0].Nil)
	assert.Equal(t, "OK", replies[1].Str)
	assert.Equal(t, "v", replies[2].Str)
}

func TestOpenFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), types.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestToMap(t *testing.T) {
	m, err := toMap([]any{"a", "1", "b", "2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, m)

	m, err = toMap(map[any]any{"a": "1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, m)
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(goredis.ErrClosed), types.ErrStoreClosed)
}
