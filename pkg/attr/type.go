package attr

import (
	"github.com/cockroachdb/errors"
)

// Kind tags an attribute type.
type Kind string

// Inline kinds are stored as fields of the element hash.
const (
	KindString   Kind = "string"
	KindInteger  Kind = "integer"
	KindBoolean  Kind = "boolean"
	KindGUID     Kind = "guid"
	KindEnum     Kind = "enum"
	KindDateTime Kind = "datetime"
	KindDynamic  Kind = "dynamic"
)

// Custom kinds live under their own store key and are mutated in place.
const (
	KindCounter Kind = "counter"
	KindSet     Kind = "set"
	KindList    Kind = "list"
)

// StorageClass tells where values of a kind live in the store.
type StorageClass int

const (
	// InlineHash values are fields of the element record.
	InlineHash StorageClass = iota
	// SeparateKey values are stored under {Type}:{key}:{attr}.
	SeparateKey
)

// StorageClass returns where values of kind k are stored.
func (k Kind) StorageClass() StorageClass {
	switch k {
	case KindCounter, KindSet, KindList:
		return SeparateKey
	default:
		return InlineHash
	}
}

// Type is a typecasting strategy.
type Type interface {
	// Kind returns the type tag.
	Kind() Kind
	// Cast converts a non-blank raw value into the canonical value.
	// Cast must accept its own output unchanged.
	Cast(raw any) (any, error)
	// Dump encodes a canonical value for the store. nil dumps to "".
	Dump(v any) (string, error)
	// Zero returns the value used when an attribute has no default.
	// It may be generated per call.
	Zero() any
}

// Loader is implemented by types whose store form Cast would misread.
// Load decodes a non-blank string produced by Dump.
type Loader interface {
	Load(stored string) (any, error)
}

var errNotCanonical = errors.New("value is not a typecast value")

// ByName returns the Type for a kind name. values is only used by enum.
func ByName(name string, values []string) (Type, error) {
	switch Kind(name) {
	case KindString, "":
		return String(), nil
	case KindInteger:
		return Integer(), nil
	case KindBoolean:
		return Boolean(), nil
	case KindGUID:
		return GUID(), nil
	case KindEnum:
		e, err := Enum(values...)
		if err != nil {
			return nil, err
		}
		return e, nil
	case KindDateTime:
		return DateTime(), nil
	case KindDynamic:
		return Dynamic(), nil
	default:
		return nil, errors.Newf("unknown attribute type %q", name)
	}
}
