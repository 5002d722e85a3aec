package attr

import (
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// EnumType is an ordered set of allowed strings. Values are held as the
// string and stored as their 1-based position.
type EnumType struct {
	values []string
}

// Enum builds an enum type. The list must be non-empty and free of
// duplicates and blanks.
func Enum(values ...string) (*EnumType, error) {
	if len(values) == 0 {
		return nil, errors.New("enum needs at least one value")
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			return nil, errors.New("enum values cannot be blank")
		}
		if _, dup := seen[v]; dup {
			return nil, errors.Newf("duplicate enum value %q", v)
		}
		seen[v] = struct{}{}
	}
	return &EnumType{values: slices.Clone(values)}, nil
}

// MustEnum is Enum for static declarations.
func MustEnum(values ...string) *EnumType {
	e, err := Enum(values...)
	if err != nil {
		panic(err)
	}
	return e
}

// Values returns the allowed values in order.
func (e *EnumType) Values() []string { return slices.Clone(e.values) }

func (e *EnumType) Kind() Kind { return KindEnum }
func (e *EnumType) Zero() any  { return nil }

// Cast accepts a listed value, or a 1-based position given as an integer or
// a numeric string.
func (e *EnumType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		if slices.Contains(e.values, v) {
			return v, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, errors.Newf("%q is not one of %v", v, e.values)
		}
		return e.at(n)
	case int:
		return e.at(int64(v))
	case int32:
		return e.at(int64(v))
	case int64:
		return e.at(v)
	default:
		return nil, errors.Newf("cannot use %T as enum", raw)
	}
}

func (e *EnumType) Dump(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		i := slices.Index(e.values, s)
		if i < 0 {
			return "", errors.Newf("%q is not one of %v", s, e.values)
		}
		return strconv.Itoa(i + 1), nil
	default:
		return "", errNotCanonical
	}
}

// Load decodes a stored position. The stored form is always a position,
// even when the listed values themselves look like numbers.
func (e *EnumType) Load(stored string) (any, error) {
	n, err := strconv.ParseInt(stored, 10, 64)
	if err != nil {
		return nil, errors.Newf("stored enum %q is not a position", stored)
	}
	return e.at(n)
}

func (e *EnumType) at(n int64) (any, error) {
	if n < 1 || n > int64(len(e.values)) {
		return nil, errors.Newf("enum position %d out of range 1..%d", n, len(e.values))
	}
	return e.values[n-1], nil
}
