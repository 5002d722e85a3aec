package attr

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type guidType struct{}

// GUID returns the UUID type. Values are canonical lower-case strings and an
// attribute without a default gets a fresh time-ordered UUID.
func GUID() Type { return guidType{} }

func (guidType) Kind() Kind { return KindGUID }

func (guidType) Zero() any {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (guidType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v.String(), nil
	case [16]byte:
		return uuid.UUID(v).String(), nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, errors.Newf("%q is not a uuid", v)
		}
		return id.String(), nil
	default:
		return nil, errors.Newf("cannot use %T as uuid", raw)
	}
}

func (guidType) Dump(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", errNotCanonical
	}
}
