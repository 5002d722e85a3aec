// Package storetest is a conformance suite for types.Store implementations.
// Every backend runs the same tests so element, index and query code can
// rely on one set of command semantics.
package storetest

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// Factory creates an empty store. The suite closes it.
type Factory func(t *testing.T) types.Store

// Feature is an optional backend guarantee.
type Feature int

const (
	// FeatureRollback means a failed Exec leaves no partial writes.
	FeatureRollback Feature = iota
)

// Run runs the suite against stores from factory.
func Run(t *testing.T, name string, factory Factory, features ...Feature) {
	has := func(f Feature) bool {
		for _, x := range features {
			if x == f {
				return true
			}
		}
		return false
	}

	t.Run(name, func(t *testing.T) {
		t.Run("Strings", func(t *testing.T) { testStrings(t, open(t, factory)) })
		t.Run("Hashes", func(t *testing.T) { testHashes(t, open(t, factory)) })
		t.Run("Sets", func(t *testing.T) { testSets(t, open(t, factory)) })
		t.Run("SetAlgebra", func(t *testing.T) { testSetAlgebra(t, open(t, factory)) })
		t.Run("Lists", func(t *testing.T) { testLists(t, open(t, factory)) })
		t.Run("Generic", func(t *testing.T) { testGeneric(t, open(t, factory)) })
		t.Run("Rename", func(t *testing.T) { testRename(t, open(t, factory)) })
		t.Run("WrongType", func(t *testing.T) { testWrongType(t, open(t, factory)) })
		t.Run("Exec", func(t *testing.T) { testExec(t, open(t, factory)) })
		t.Run("ExecRollback", func(t *testing.T) {
			if !has(FeatureRollback) {
				t.Skip("backend does not roll back failed batches")
			}
			testExecRollback(t, open(t, factory))
		})
		t.Run("Closed", func(t *testing.T) { testClosed(t, factory(t)) })
	})
}

func open(t *testing.T, factory Factory) types.Store {
	st := factory(t)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func do(t *testing.T, st types.Store, cmd types.Cmd) types.Reply {
	t.Helper()
	r, err := st.Do(context.Background(), cmd)
	require.NoError(t, err, cmd.String())
	return r
}

func testStrings(t *testing.T, st types.Store) {
	assert.True(t, do(t, st, types.Get("missing")).Nil)

	do(t, st, types.Set("greeting", "hello"))
	r := do(t, st, types.Get("greeting"))
	assert.False(t, r.Nil)
	assert.Equal(t, "hello", r.Str)

	assert.Equal(t, int64(5), do(t, st, types.IncrBy("n", 5)).Int)
	assert.Equal(t, int64(2), do(t, st, types.IncrBy("n", -3)).Int)
	assert.Equal(t, "2", do(t, st, types.Get("n")).Str)

	_, err := st.Do(context.Background(), types.IncrBy("greeting", 1))
	assert.Error(t, err)
}

func testHashes(t *testing.T, st types.Store) {
	assert.Empty(t, do(t, st, types.HGetAll("Person:bob")).Map)

	r := do(t, st, types.HSet("Person:bob", map[string]string{"name": "bob", "mood": "happy"}))
	assert.Equal(t, int64(2), r.Int)
	r = do(t, st, types.HSet("Person:bob", map[string]string{"mood": "sad", "age": "3"}))
	assert.Equal(t, int64(1), r.Int, "only new fields count")

	assert.Equal(t, map[string]string{"name": "bob", "mood": "sad", "age": "3"},
		do(t, st, types.HGetAll("Person:bob")).Map)

	assert.Equal(t, int64(2), do(t, st, types.HDel("Person:bob", "age", "nope", "mood")).Int)
	assert.Equal(t, int64(1), do(t, st, types.HDel("Person:bob", "name")).Int)
	assert.Equal(t, int64(0), do(t, st, types.Exists("Person:bob")).Int, "empty hash is removed")
}

func testSets(t *testing.T, st types.Store) {
	assert.Equal(t, int64(2), do(t, st, types.SAdd("s", "a", "b")).Int)
	assert.Equal(t, int64(1), do(t, st, types.SAdd("s", "b", "c")).Int)
	assert.Equal(t, int64(3), do(t, st, types.SCard("s")).Int)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, do(t, st, types.SMembers("s")).Strs)

	assert.Equal(t, int64(1), do(t, st, types.SIsMember("s", "a")).Int)
	assert.Equal(t, int64(0), do(t, st, types.SIsMember("s", "z")).Int)
	assert.Equal(t, int64(0), do(t, st, types.SIsMember("missing", "a")).Int)
	assert.Equal(t, int64(0), do(t, st, types.SCard("missing")).Int)
	assert.Empty(t, do(t, st, types.SMembers("missing")).Strs)

	r := do(t, st, types.SRandMember("s"))
	assert.False(t, r.Nil)
	assert.Contains(t, []string{"a", "b", "c"}, r.Str)
	assert.True(t, do(t, st, types.SRandMember("missing")).Nil)

	assert.Equal(t, int64(2), do(t, st, types.SRem("s", "a", "b", "z")).Int)
	assert.Equal(t, int64(1), do(t, st, types.SRem("s", "c")).Int)
	assert.Equal(t, int64(0), do(t, st, types.Exists("s")).Int, "empty set is removed")
}

func testSetAlgebra(t *testing.T, st types.Store) {
	do(t, st, types.SAdd("a", "1", "2", "3"))
	do(t, st, types.SAdd("b", "2", "3", "4"))
	do(t, st, types.SAdd("c", "3", "9"))

	assert.ElementsMatch(t, []string{"2", "3"}, do(t, st, types.SInter("a", "b")).Strs)
	assert.ElementsMatch(t, []string{"3"}, do(t, st, types.SInter("a", "b", "c")).Strs)
	assert.Empty(t, do(t, st, types.SInter("a", "missing")).Strs)
	assert.ElementsMatch(t, []string{"1", "2", "3", "4"}, do(t, st, types.SUnion("a", "b")).Strs)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, do(t, st, types.SUnion("a", "missing")).Strs)

	assert.Equal(t, int64(2), do(t, st, types.SInterStore("ab", "a", "b")).Int)
	assert.ElementsMatch(t, []string{"2", "3"}, do(t, st, types.SMembers("ab")).Strs)
	assert.Equal(t, int64(3), do(t, st, types.SUnionStore("abc", "ab", "c")).Int)
	assert.ElementsMatch(t, []string{"2", "3", "9"}, do(t, st, types.SMembers("abc")).Strs)

	assert.Equal(t, int64(0), do(t, st, types.SInterStore("ab", "a", "missing")).Int)
	assert.Empty(t, do(t, st, types.SMembers("ab")).Strs)
}

func testLists(t *testing.T, st types.Store) {
	assert.Equal(t, int64(2), do(t, st, types.RPush("l", "b", "c")).Int)
	assert.Equal(t, int64(4), do(t, st, types.LPush("l", "a", "z")).Int)
	assert.Equal(t, []string{"z", "a", "b", "c"}, do(t, st, types.LRange("l", 0, -1)).Strs)
	assert.Equal(t, []string{"a", "b"}, do(t, st, types.LRange("l", 1, 2)).Strs)
	assert.Equal(t, []string{"c"}, do(t, st, types.LRange("l", -1, 10)).Strs)
	assert.Empty(t, do(t, st, types.LRange("l", 3, 1)).Strs)
	assert.Empty(t, do(t, st, types.LRange("missing", 0, -1)).Strs)

	assert.Equal(t, "a", do(t, st, types.LIndex("l", 1)).Str)
	assert.Equal(t, "c", do(t, st, types.LIndex("l", -1)).Str)
	assert.True(t, do(t, st, types.LIndex("l", 9)).Nil)
	assert.Equal(t, int64(4), do(t, st, types.LLen("l")).Int)

	do(t, st, types.LSet("l", 0, "y"))
	assert.Equal(t, "y", do(t, st, types.LIndex("l", 0)).Str)

	_, err := st.Do(context.Background(), types.LSet("l", 10, "x"))
	assert.True(t, errors.Is(err, types.ErrIndexOutOfRange), "got %v", err)
	_, err = st.Do(context.Background(), types.LSet("missing", 0, "x"))
	assert.True(t, errors.Is(err, types.ErrNoSuchKey), "got %v", err)

	assert.Equal(t, "y", do(t, st, types.LPop("l")).Str)
	assert.Equal(t, "c", do(t, st, types.RPop("l")).Str)
	assert.True(t, do(t, st, types.RPop("missing")).Nil)
	do(t, st, types.LPop("l"))
	do(t, st, types.LPop("l"))
	assert.Equal(t, int64(0), do(t, st, types.Exists("l")).Int, "empty list is removed")
}

func testGeneric(t *testing.T, st types.Store) {
	do(t, st, types.Set("k1", "v"))
	do(t, st, types.SAdd("kvgraph::tmp::one", "x"))
	do(t, st, types.SAdd("kvgraph::tmp::two", "x"))

	assert.ElementsMatch(t, []string{"kvgraph::tmp::one", "kvgraph::tmp::two"},
		do(t, st, types.Keys(types.TempKeyPrefix+"*")).Strs)
	assert.Empty(t, do(t, st, types.Keys("nothing*")).Strs)

	assert.Equal(t, int64(1), do(t, st, types.Exists("k1")).Int)
	assert.Equal(t, int64(2), do(t, st, types.Del("k1", "kvgraph::tmp::one", "missing")).Int)
	assert.Equal(t, int64(0), do(t, st, types.Exists("k1")).Int)
}

func testRename(t *testing.T, st types.Store) {
	do(t, st, types.HSet("Person:bob", map[string]string{"name": "bob"}))
	do(t, st, types.Rename("Person:bob", "Person:robert"))
	assert.Equal(t, int64(0), do(t, st, types.Exists("Person:bob")).Int)
	assert.Equal(t, map[string]string{"name": "bob"}, do(t, st, types.HGetAll("Person:robert")).Map)

	_, err := st.Do(context.Background(), types.Rename("Person:bob", "Person:x"))
	assert.True(t, errors.Is(err, types.ErrNoSuchKey), "got %v", err)

	do(t, st, types.Set("taken", "1"))
	assert.Equal(t, int64(0), do(t, st, types.RenameNX("Person:robert", "taken")).Int)
	assert.Equal(t, "1", do(t, st, types.Get("taken")).Str)
	assert.Equal(t, int64(1), do(t, st, types.RenameNX("Person:robert", "Person:rob")).Int)
	assert.Equal(t, int64(1), do(t, st, types.Exists("Person:rob")).Int)
}

func testWrongType(t *testing.T, st types.Store) {
	do(t, st, types.HSet("h", map[string]string{"f": "v"}))
	for _, cmd := range []types.Cmd{
		types.SAdd("h", "x"),
		types.Get("h"),
		types.RPush("h", "x"),
		types.SInter("h"),
	} {
		_, err := st.Do(context.Background(), cmd)
		assert.True(t, errors.Is(err, types.ErrWrongType), "%s: got %v", cmd, err)
	}
}

func testExec(t *testing.T, st types.Store) {
	replies, err := st.Exec(context.Background(), []types.Cmd{
		types.HSet("Person:bob", map[string]string{"mood": "happy"}),
		types.SAdd("Person::indices::all", "bob"),
		types.SAdd("Person::indices::mood::happy", "bob"),
		types.SMembers("Person::indices::mood::happy"),
		types.Exists("Person:bob"),
	})
	require.NoError(t, err)
	require.Len(t, replies, 5)
	assert.Equal(t, int64(1), replies[0].Int)
	assert.Equal(t, []string{"bob"}, replies[3].Strs)
	assert.Equal(t, int64(1), replies[4].Int)

	replies, err = st.Exec(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func testExecRollback(t *testing.T, st types.Store) {
	do(t, st, types.HSet("h", map[string]string{"f": "v"}))

	_, err := st.Exec(context.Background(), []types.Cmd{
		types.SAdd("s", "member"),
		types.HSet("h", map[string]string{"f": "changed"}),
		types.SAdd("h", "boom"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrWrongType), "got %v", err)

	assert.Equal(t, int64(0), do(t, st, types.Exists("s")).Int)
	assert.Equal(t, map[string]string{"f": "v"}, do(t, st, types.HGetAll("h")).Map)
}

func testClosed(t *testing.T, st types.Store) {
	require.NoError(t, st.Close())
	_, err := st.Do(context.Background(), types.Get("k"))
	assert.True(t, errors.Is(err, types.ErrStoreClosed), "got %v", err)
	_, err = st.Exec(context.Background(), []types.Cmd{types.Get("k")})
	assert.True(t, errors.Is(err, types.ErrStoreClosed), "got %v", err)
}
