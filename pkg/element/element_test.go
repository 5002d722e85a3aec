package element

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kvgraph/internal/logger"
	"github.com/mesh-intelligence/kvgraph/internal/memstore"
	"github.com/mesh-intelligence/kvgraph/internal/storetest"
	"github.com/mesh-intelligence/kvgraph/pkg/attr"
	"github.com/mesh-intelligence/kvgraph/pkg/index"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

func personModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel("Person",
		WithKey(attr.New("name", attr.String())),
		WithAttribute(attr.New("mood", attr.String(), attr.Indexed())),
		WithAttribute(attr.New("age", attr.Integer())),
		WithCounter("counter"),
		WithSet("tags"),
		WithList("log"),
	)
	require.NoError(t, err)
	return m
}

func newStore(t *testing.T) *storetest.Recorder {
	t.Helper()
	st := memstore.New()
	t.Cleanup(func() { st.Close() })
	return storetest.NewRecorder(st)
}

func create(t *testing.T, m *Model, st types.Store, values map[string]any) *Element {
	t.Helper()
	e, err := m.New(st, values)
	require.NoError(t, err)
	ok, err := e.Save(context.Background())
	require.NoError(t, err)
	require.True(t, ok, "save failed: %v", e.Errors().Full())
	return e
}

func bucket(t *testing.T, st types.Store, m *Model, attribute, value string) []string {
	t.Helper()
	ix, err := m.Index(attribute)
	require.NoError(t, err)
	keys, err := ix.Members(context.Background(), st, value)
	require.NoError(t, err)
	return keys
}

func TestNewModel(t *testing.T) {
	t.Run("implicit id key", func(t *testing.T) {
		m, err := NewModel("Note", WithAttribute(attr.New("body", attr.String())))
		require.NoError(t, err)
		assert.Equal(t, ImplicitKey, m.KeyAttribute().Name)
		assert.Equal(t, attr.KindGUID, m.KeyAttribute().Kind())
	})

	t.Run("declared id is the key", func(t *testing.T) {
		m, err := NewModel("Note", WithAttribute(attr.New("id", attr.Integer())))
		require.NoError(t, err)
		assert.Equal(t, attr.KindInteger, m.KeyAttribute().Kind())
	})

	t.Run("reserved names", func(t *testing.T) {
		for _, name := range []string{"key", "class", "all"} {
			_, err := NewModel("Note", WithAttribute(attr.New(name, attr.String())))
			assert.ErrorIs(t, err, types.ErrNameInUse, name)
		}
	})

	t.Run("duplicate names", func(t *testing.T) {
		_, err := NewModel("Note",
			WithAttribute(attr.New("body", attr.String())),
			WithCounter("body"),
		)
		assert.ErrorIs(t, err, types.ErrNameInUse)
	})

	t.Run("dynamic attributes cannot be keys", func(t *testing.T) {
		_, err := NewModel("Note", WithKey(attr.New("k", attr.Dynamic())))
		assert.Error(t, err)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := NewModel("")
		assert.ErrorIs(t, err, types.ErrModelNameEmpty)
	})

	t.Run("index lookup", func(t *testing.T) {
		m := personModel(t)
		ix, err := m.Index("mood")
		require.NoError(t, err)
		assert.Equal(t, "Person::indices::mood::happy", ix.Key("happy"))

		_, err = m.Index("age")
		assert.ErrorIs(t, err, types.ErrUnsupportedFilter)

		all, err := m.Index(index.AllName)
		require.NoError(t, err)
		assert.True(t, all.IsAll())
	})
}

func TestDirtyTracking(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	e := create(t, m, st, map[string]any{"name": "bob", "mood": "happy"})
	assert.False(t, e.Dirty())

	_, err := e.Set("mood", "sad")
	require.NoError(t, err)
	_, err = e.Set("mood", "angry")
	require.NoError(t, err)

	assert.True(t, e.Dirty())
	assert.Equal(t, []string{"mood"}, e.Changed())
	prev, ok := e.Previous("mood")
	require.True(t, ok)
	assert.Equal(t, "happy", prev)

	e.Clean()
	assert.False(t, e.Dirty())
	assert.Equal(t, "angry", e.MustGet("mood"))
}

func TestSaveSendsOnlyChangedFields(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()
	e := create(t, m, st, map[string]any{"name": "bob", "mood": "happy", "age": 30})

	st.Reset()
	ok, err := e.Save(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, st.Batches(), "clean persisted element must not write")

	_, err = e.Set("age", "31")
	require.NoError(t, err)
	ok, err = e.Save(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	batch := st.LastBatch()
	hsets := storetest.Find(batch, types.OpHSet)
	require.Len(t, hsets, 1)
	assert.Equal(t, map[string]string{"age": "31"}, types.HSetFields(hsets[0]))
	assert.Empty(t, storetest.Find(batch, types.OpSAdd), "unindexed change must not touch indexes")
}

func TestRoundTrip(t *testing.T) {
	color := attr.MustEnum("red", "green", "blue")
	m, err := NewModel("Thing",
		WithAttribute(attr.New("label", attr.String())),
		WithAttribute(attr.New("count", attr.Integer())),
		WithAttribute(attr.New("active", attr.Boolean())),
		WithAttribute(attr.New("color", color)),
		WithAttribute(attr.New("at", attr.DateTime())),
		WithAttribute(attr.New("ref", attr.GUID())),
	)
	require.NoError(t, err)
	st := newStore(t)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	e := create(t, m, st, map[string]any{
		"label":  "widget",
		"count":  int64(7),
		"active": true,
		"color":  "green",
		"at":     at,
	})

	got, err := m.Find(ctx, st, e.Key())
	require.NoError(t, err)
	assert.Equal(t, e.Attributes(), got.Attributes())
	assert.Equal(t, int64(7), got.MustGet("count"))
	assert.Equal(t, true, got.MustGet("active"))
	assert.Equal(t, "green", got.MustGet("color"))
	assert.Equal(t, at, got.MustGet("at"))
	assert.False(t, got.Dirty())
	assert.Equal(t, StatePersisted, got.State())
}

func TestFind(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()

	e, err := m.Get(ctx, st, "nobody")
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = m.Find(ctx, st, "nobody")
	var nf *types.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "nobody", nf.Key)
}

func TestUndefinedAttributes(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	e, err := m.New(st, nil)
	require.NoError(t, err)

	for _, name := range []string{"missing", "key", "class"} {
		_, err := e.Set(name, "x")
		assert.ErrorIs(t, err, types.ErrUndefinedAttribute, name)
		_, err = e.Get(name)
		assert.ErrorIs(t, err, types.ErrUndefinedAttribute, name)
	}

	_, err = m.New(st, map[string]any{"age": "old"})
	assert.ErrorIs(t, err, types.ErrInvalidValue)
}

func TestUpdateAttributesKeepsEarlierWrites(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	e := create(t, m, st, map[string]any{"name": "bob", "age": 1})

	err := e.UpdateAttributes(map[string]any{"age": 3, "zzz": 1})
	assert.ErrorIs(t, err, types.ErrUndefinedAttribute)
	assert.Equal(t, int64(3), e.MustGet("age"))
	assert.True(t, e.Dirty())
	assert.Equal(t, []string{"age"}, e.Changed())
}

func TestUnresolvableKey(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { logger.Init(logger.Config{Level: "disabled", Output: io.Discard}) })

	m, err := NewModel("Ticket", WithKey(attr.New("code", attr.Integer(),
		attr.DefaultBy(func(any, *attr.Attribute) any { return "not a number" }))))
	require.NoError(t, err)
	e, err := m.New(newStore(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "", e.Key())
	assert.Contains(t, buf.String(), "key unavailable")
	_, err = e.Save(context.Background())
	assert.ErrorIs(t, err, types.ErrInvalidValue)
}

func TestNumericEnumSurvivesReload(t *testing.T) {
	m, err := NewModel("Review",
		WithKey(attr.New("title", attr.String())),
		WithAttribute(attr.New("stars", attr.MustEnum("5", "4", "3", "2", "1"), attr.Indexed())),
	)
	require.NoError(t, err)
	st := newStore(t)
	ctx := context.Background()

	create(t, m, st, map[string]any{"title": "great", "stars": "5"})
	create(t, m, st, map[string]any{"title": "awful", "stars": "1"})

	for title, want := range map[string]string{"great": "5", "awful": "1"} {
		got, err := m.Find(ctx, st, title)
		require.NoError(t, err)
		assert.Equal(t, want, got.MustGet("stars"), title)
		assert.False(t, got.Dirty())
	}
	assert.Equal(t, []string{"great"}, bucket(t, st, m, "stars", "1"), "buckets hold the stored position")
}

func TestDynamicAttributes(t *testing.T) {
	m, err := NewModel("Bag", WithDynamicAttributes())
	require.NoError(t, err)
	st := newStore(t)
	ctx := context.Background()

	e := create(t, m, st, map[string]any{"color": "red", "size": 3})
	assert.Equal(t, map[string]any{"id": e.Key(), "color": "red", "size": "3"}, e.Attributes())

	other, err := m.New(st, nil)
	require.NoError(t, err)
	assert.NotContains(t, other.Attributes(), "color")

	got, err := m.Find(ctx, st, e.Key())
	require.NoError(t, err)
	assert.Equal(t, "red", got.MustGet("color"))

	_, err = e.Set("key", "x")
	assert.ErrorIs(t, err, types.ErrUndefinedAttribute)
}

func TestMarshalJSON(t *testing.T) {
	m := personModel(t)
	e, err := m.New(newStore(t), map[string]any{"name": "bob", "age": 4})
	require.NoError(t, err)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"bob","mood":"","age":4}`, string(data))
}

func TestSaveRejections(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()

	t.Run("blank key", func(t *testing.T) {
		e, err := m.New(st, map[string]any{"mood": "happy"})
		require.NoError(t, err)
		ok, err := e.Save(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []string{MsgBlank}, e.Errors().On("name"))
	})

	t.Run("taken key", func(t *testing.T) {
		create(t, m, st, map[string]any{"name": "taken"})
		e, err := m.New(st, map[string]any{"name": "taken"})
		require.NoError(t, err)
		ok, err := e.Save(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []string{MsgTaken}, e.Errors().On("name"))
		assert.Equal(t, StateNew, e.State())
	})

	t.Run("rename onto taken key", func(t *testing.T) {
		create(t, m, st, map[string]any{"name": "a"})
		b := create(t, m, st, map[string]any{"name": "b"})
		_, err := b.Set("name", "a")
		require.NoError(t, err)
		ok, err := b.Save(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "b", b.SavedKey())
	})

	t.Run("validator", func(t *testing.T) {
		vm, err := NewModel("Strict",
			WithAttribute(attr.New("title", attr.String())),
			WithValidator(RequirePresent("title")),
		)
		require.NoError(t, err)
		e, err := vm.New(st, nil)
		require.NoError(t, err)
		ok, err := e.Save(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []string{"title can't be blank"}, e.Errors().Full())
	})
}

// Scenario: indexed lookups after creating two people.
func TestIndexedMembership(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	create(t, m, st, map[string]any{"name": "bob", "mood": "happy"})
	create(t, m, st, map[string]any{"name": "jim", "mood": "sad"})

	assert.Equal(t, []string{"bob"}, bucket(t, st, m, "mood", "happy"))
	assert.Equal(t, []string{"jim"}, bucket(t, st, m, "mood", "sad"))
	assert.ElementsMatch(t, []string{"bob", "jim"}, bucket(t, st, m, index.AllName, ""))
}

// Scenario: counters refuse writes before the element is saved.
func TestCounterRequiresPersistence(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()

	bob, err := m.New(st, map[string]any{"name": "bob"})
	require.NoError(t, err)
	c, err := bob.Counter("counter")
	require.NoError(t, err)

	_, err = c.Increment(ctx, 5)
	assert.ErrorIs(t, err, types.ErrNotPersisted)
	n, err := c.Reload(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := bob.Save(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	n, err = c.Increment(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	r, err := st.Do(ctx, types.Get(types.CustomKey("Person", "bob", "counter")))
	require.NoError(t, err)
	assert.Equal(t, "5", r.Str)

	fresh, err := m.Find(ctx, st, "bob")
	require.NoError(t, err)
	fc, err := fresh.Counter("counter")
	require.NoError(t, err)
	v, err := fc.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	_, err = bob.Counter("tags")
	assert.ErrorIs(t, err, types.ErrUndefinedAttribute)
}

// Scenario: index buckets move only when the change is saved.
func TestIndexMovesOnSave(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()
	bob := create(t, m, st, map[string]any{"name": "bob", "mood": "happy"})

	_, err := bob.Set("mood", "sad")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, bucket(t, st, m, "mood", "happy"))
	assert.Empty(t, bucket(t, st, m, "mood", "sad"))

	st.Reset()
	ok, err := bob.Save(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, bucket(t, st, m, "mood", "happy"))
	assert.Equal(t, []string{"bob"}, bucket(t, st, m, "mood", "sad"))

	require.Len(t, st.Batches(), 1, "record and index updates go in one batch")
	batch := st.LastBatch()
	assert.Len(t, storetest.Find(batch, types.OpSRem), 1)
	assert.Len(t, storetest.Find(batch, types.OpSAdd), 1)
}

// Scenario: renaming moves the record, index memberships and custom keys.
func TestRename(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()
	bob := create(t, m, st, map[string]any{"name": "bob", "mood": "happy"})

	c, err := bob.Counter("counter")
	require.NoError(t, err)
	_, err = c.Increment(ctx, 3)
	require.NoError(t, err)
	tags, err := bob.CustomSet("tags")
	require.NoError(t, err)
	_, err = tags.Add(ctx, "x", "y")
	require.NoError(t, err)

	_, err = bob.Set("name", "robert")
	require.NoError(t, err)
	st.Reset()
	ok, err := bob.Save(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "robert", bob.SavedKey())

	require.Len(t, st.Batches(), 2, "rename check and rename batch")
	renames := storetest.Find(st.LastBatch(), types.OpRename)
	assert.Len(t, renames, 3, "record, counter and set move together")

	old, err := m.Get(ctx, st, "bob")
	require.NoError(t, err)
	assert.Nil(t, old)
	robert, err := m.Get(ctx, st, "robert")
	require.NoError(t, err)
	require.NotNil(t, robert)
	assert.Equal(t, "happy", robert.MustGet("mood"))

	assert.Equal(t, []string{"robert"}, bucket(t, st, m, index.AllName, ""))
	assert.Equal(t, []string{"robert"}, bucket(t, st, m, "mood", "happy"))

	v, err := c.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	members, err := tags.Reload(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, members)

	r, err := st.Do(ctx, types.Exists(types.CustomKey("Person", "bob", "counter")))
	require.NoError(t, err)
	assert.Zero(t, r.Int)
}

func TestRenameWithIndexChange(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()
	bob := create(t, m, st, map[string]any{"name": "bob", "mood": "happy"})

	require.NoError(t, bob.UpdateAttributes(map[string]any{"name": "rob", "mood": "sad"}))
	ok, err := bob.Save(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Empty(t, bucket(t, st, m, "mood", "happy"))
	assert.Equal(t, []string{"rob"}, bucket(t, st, m, "mood", "sad"))
}

func TestDestroy(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()
	bob := create(t, m, st, map[string]any{"name": "bob", "mood": "happy"})
	list, err := bob.List("log")
	require.NoError(t, err)
	_, err = list.Push(ctx, "a")
	require.NoError(t, err)

	_, err = bob.Set("name", "unsaved")
	require.NoError(t, err)
	_, err = bob.Set("mood", "sad")
	require.NoError(t, err)

	ok, err := bob.Destroy(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateDestroyed, bob.State())

	gone, err := m.Get(ctx, st, "bob")
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Empty(t, bucket(t, st, m, "mood", "happy"))
	assert.Empty(t, bucket(t, st, m, index.AllName, ""))
	r, err := st.Do(ctx, types.Exists(types.CustomKey("Person", "bob", "log")))
	require.NoError(t, err)
	assert.Zero(t, r.Int)

	_, err = bob.Save(ctx)
	assert.ErrorIs(t, err, types.ErrDestroyed)

	ok, err = bob.Destroy(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCustomSetAndList(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()
	bob := create(t, m, st, map[string]any{"name": "bob"})

	tags, err := bob.CustomSet("tags")
	require.NoError(t, err)
	n, err := tags.Add(ctx, "a", "b", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	has, err := tags.Contains(ctx, "a")
	require.NoError(t, err)
	assert.True(t, has)
	_, err = tags.Remove(ctx, "a")
	require.NoError(t, err)
	count, err := tags.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	log, err := bob.List("log")
	require.NoError(t, err)
	_, err = log.Push(ctx, "b", "c")
	require.NoError(t, err)
	_, err = log.Unshift(ctx, "a")
	require.NoError(t, err)
	items, err := log.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)

	v, ok, err := log.At(ctx, -1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	require.NoError(t, log.SetAt(ctx, 1, "B"))
	v, ok, err = log.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c", v)
	v, _, err = log.Shift(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	items, err = log.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, items)

	same, err := bob.List("log")
	require.NoError(t, err)
	assert.Same(t, log, same)
}

func TestHooks(t *testing.T) {
	m := personModel(t)
	st := newStore(t)
	ctx := context.Background()

	var calls []string
	m.BeforeSave(func(_ context.Context, e *Element) error {
		calls = append(calls, "before-save")
		_, err := e.Set("mood", "fresh")
		return err
	})
	m.AfterSave(func(context.Context, *Element) error {
		calls = append(calls, "after-save")
		return nil
	})
	m.BeforeDestroy(func(context.Context, *Element) error {
		calls = append(calls, "before-destroy")
		return nil
	})
	m.AfterDestroy(func(context.Context, *Element) error {
		calls = append(calls, "after-destroy")
		return nil
	})

	e := create(t, m, st, map[string]any{"name": "bob"})
	assert.Equal(t, "fresh", e.MustGet("mood"))
	assert.Equal(t, []string{"bob"}, bucket(t, st, m, "mood", "fresh"))

	_, err := e.Destroy(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"before-save", "after-save", "before-destroy", "after-destroy"}, calls)

	stop := errors.New("stop")
	m2 := personModel(t)
	m2.BeforeSave(func(context.Context, *Element) error { return stop })
	e2, err := m2.New(st, map[string]any{"name": "x"})
	require.NoError(t, err)
	ok, err := e2.Save(ctx)
	assert.ErrorIs(t, err, stop)
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(personModel(t)))
	assert.ErrorIs(t, r.Register(personModel(t)), types.ErrNameInUse)

	err := r.RegisterSpecs([]types.ModelSpec{{
		Name: "Post",
		Key:  "slug",
		Attributes: []types.AttributeSpec{
			{Name: "slug", Type: "string"},
			{Name: "state", Type: "enum", Values: []string{"draft", "live"}, Indexed: true, Default: "draft"},
		},
		Counters: []string{"views"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Person", "Post"}, r.Names())

	post, ok := r.Lookup("Post")
	require.True(t, ok)
	assert.Equal(t, "slug", post.KeyAttribute().Name)
	assert.Len(t, post.Indexed(), 1)
	k, ok := post.CustomKind("views")
	require.True(t, ok)
	assert.Equal(t, attr.KindCounter, k)

	e, err := post.New(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "draft", e.MustGet("state"))
}

func TestFromSpecErrors(t *testing.T) {
	_, err := FromSpec(types.ModelSpec{Name: "X", Key: "missing"})
	assert.ErrorIs(t, err, types.ErrUndefinedAttribute)

	_, err = FromSpec(types.ModelSpec{Name: "X", Attributes: []types.AttributeSpec{{Name: "a", Type: "float"}}})
	assert.Error(t, err)
}
