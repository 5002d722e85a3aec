package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kvgraph/internal/memstore"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "Person::indices::all", All("Person").Key("ignored"))
	assert.Equal(t, "Person::indices::mood::happy", For("Person", "mood").Key("happy"))
	assert.True(t, All("Person").IsAll())
	assert.False(t, For("Person", "mood").IsAll())
}

func TestIndexOperations(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	defer st.Close()
	ix := For("Person", "mood")

	require.NoError(t, ix.Add(ctx, st, "bob", "happy"))
	require.NoError(t, ix.Add(ctx, st, "jim", "happy"))

	keys, err := ix.Members(ctx, st, "happy")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "jim"}, keys)

	n, err := ix.Count(ctx, st, "happy")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, ix.Modify(ctx, st, "bob", "happy", "sad"))
	ok, err := ix.Contains(ctx, st, "bob", "happy")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = ix.Contains(ctx, st, "bob", "sad")
	require.NoError(t, err)
	assert.True(t, ok)

	key, ok, err := ix.RandomMember(ctx, st, "sad")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob", key)

	require.NoError(t, ix.Delete(ctx, st, "bob", "sad"))
	_, ok, err = ix.RandomMember(ctx, st, "sad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModifyFailureIsBatchError(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	defer st.Close()
	ix := For("Person", "mood")

	_, err := st.Do(ctx, types.Set(ix.Key("sad"), "not a set"))
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, st, "bob", "happy"))

	err = ix.Modify(ctx, st, "bob", "happy", "sad")
	assert.ErrorIs(t, err, types.ErrBatchExecution)
	assert.ErrorIs(t, err, types.ErrWrongType)

	ok, err := ix.Contains(ctx, st, "bob", "happy")
	require.NoError(t, err)
	assert.True(t, ok, "failed modify leaves the old bucket intact")
}
