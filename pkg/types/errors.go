package types

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Attribute and model errors.
var (
	ErrInvalidValue       = errors.New("invalid attribute value")
	ErrUndefinedAttribute = errors.New("undefined attribute")
	ErrNameInUse          = errors.New("name already in use")
	ErrNotPersisted       = errors.New("element is not persisted")
	ErrUnsupportedFilter  = errors.New("unsupported filter")
	ErrNotFound           = errors.New("element not found")
	ErrDestroyed          = errors.New("element is destroyed")
)

// Store errors.
var (
	ErrBatchExecution  = errors.New("batch execution failed")
	ErrStoreClosed     = errors.New("store is closed")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrWrongType       = errors.New("operation against a key holding the wrong kind of value")
	ErrNoSuchKey       = errors.New("no such key")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidCommand  = errors.New("invalid command")
)

// InvalidValueError reports a raw value that an attribute type refused to
// typecast.
type InvalidValueError struct {
	Attribute string
	Value     any
	Reason    string
}

func (e *InvalidValueError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid value %#v for attribute %q", e.Value, e.Attribute)
	}
	return fmt.Sprintf("invalid value %#v for attribute %q: %s", e.Value, e.Attribute, e.Reason)
}

func (e *InvalidValueError) Is(target error) bool { return target == ErrInvalidValue }

// UndefinedAttributeError reports access to an attribute the model does not
// declare, or to a restricted name.
type UndefinedAttributeError struct {
	Model     string
	Attribute string
}

func (e *UndefinedAttributeError) Error() string {
	return fmt.Sprintf("undefined attribute %q on %s", e.Attribute, e.Model)
}

func (e *UndefinedAttributeError) Is(target error) bool { return target == ErrUndefinedAttribute }

// NameInUseError reports a declaration colliding with an existing one.
type NameInUseError struct {
	Model string
	Name  string
}

func (e *NameInUseError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("name %q is already in use", e.Name)
	}
	return fmt.Sprintf("name %q is already in use on %s", e.Name, e.Model)
}

func (e *NameInUseError) Is(target error) bool { return target == ErrNameInUse }

// NotPersistedError reports a custom attribute mutation on an element whose
// primary record does not exist yet.
type NotPersistedError struct {
	Model     string
	Attribute string
}

func (e *NotPersistedError) Error() string {
	return fmt.Sprintf("cannot mutate %s.%s before the element is saved", e.Model, e.Attribute)
}

func (e *NotPersistedError) Is(target error) bool { return target == ErrNotPersisted }

// UnsupportedFilterError reports a query on an attribute without an index.
type UnsupportedFilterError struct {
	Model     string
	Attribute string
}

func (e *UnsupportedFilterError) Error() string {
	return fmt.Sprintf("attribute %q on %s is not indexed", e.Attribute, e.Model)
}

func (e *UnsupportedFilterError) Is(target error) bool { return target == ErrUnsupportedFilter }

// NotFoundError reports a strict lookup that found no record.
type NotFoundError struct {
	Model string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Model, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// BatchExecutionError reports a store failure while executing a grouped
// batch. Commands is the number of commands submitted.
type BatchExecutionError struct {
	Commands int
	Err      error
}

func (e *BatchExecutionError) Error() string {
	return fmt.Sprintf("batch of %d commands failed: %v", e.Commands, e.Err)
}

func (e *BatchExecutionError) Unwrap() error { return e.Err }

func (e *BatchExecutionError) Is(target error) bool { return target == ErrBatchExecution }
