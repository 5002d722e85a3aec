package types

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestKeyFormats(t *testing.T) {
	assert.Equal(t, "Person:bob", ElementKey("Person", "bob"))
	assert.Equal(t, "Person:bob:visits", CustomKey("Person", "bob", "visits"))
	assert.Equal(t, "Person::indices::all", IndexKey("Person", "all"))
	assert.Equal(t, "Person::indices::mood::happy", BucketKey("Person", "mood", "happy"))
	assert.True(t, IsTempKey(TempKey("abc")))
	assert.False(t, IsTempKey("Person::indices::all"))
}

func TestCmdKeys(t *testing.T) {
	tests := []struct {
		cmd  Cmd
		want []string
	}{
		{HGetAll("a"), []string{"a"}},
		{Del("a", "b"), []string{"a", "b"}},
		{Rename("a", "b"), []string{"a", "b"}},
		{SInterStore("t", "a", "b"), []string{"t", "a", "b"}},
		{SAdd("s", "x", "y"), []string{"s"}},
		{Keys("*"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Keys())
		})
	}
}

func TestHSetIsDeterministic(t *testing.T) {
	cmd := HSet("Person:bob", map[string]string{"mood": "happy", "name": "bob", "age": "3"})
	assert.Equal(t, []string{"Person:bob", "age", "3", "mood", "happy", "name", "bob"}, cmd.Args)
	assert.Equal(t, map[string]string{"mood": "happy", "name": "bob", "age": "3"}, HSetFields(cmd))
}

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		err    error
		target error
	}{
		{&InvalidValueError{Attribute: "age", Value: "x"}, ErrInvalidValue},
		{&UndefinedAttributeError{Model: "Person", Attribute: "x"}, ErrUndefinedAttribute},
		{&NameInUseError{Model: "Person", Name: "mood"}, ErrNameInUse},
		{&NotPersistedError{Model: "Person", Attribute: "visits"}, ErrNotPersisted},
		{&UnsupportedFilterError{Model: "Person", Attribute: "age"}, ErrUnsupportedFilter},
		{&NotFoundError{Model: "Person", Key: "bob"}, ErrNotFound},
		{&BatchExecutionError{Commands: 2, Err: ErrStoreClosed}, ErrBatchExecution},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := errors.Wrap(tt.err, "context")
			assert.True(t, errors.Is(wrapped, tt.target))
		})
	}

	batchErr := &BatchExecutionError{Commands: 2, Err: ErrStoreClosed}
	assert.True(t, errors.Is(batchErr, ErrStoreClosed))
}
