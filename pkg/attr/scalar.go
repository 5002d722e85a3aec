package attr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

type stringType struct{}

// String returns the text type. The empty string is a legal value.
func String() Type { return stringType{} }

func (stringType) Kind() Kind { return KindString }
func (stringType) Zero() any  { return "" }

func (stringType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), nil
	default:
		return nil, errors.Newf("cannot use %T as string", raw)
	}
}

func (stringType) Dump(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", errNotCanonical
	}
}

type integerType struct{}

// Integer returns the signed 64-bit integer type.
func Integer() Type { return integerType{} }

func (integerType) Kind() Kind { return KindInteger }
func (integerType) Zero() any  { return nil }

func (integerType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		return uintToInt(uint64(v))
	case uint64:
		return uintToInt(v)
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, errors.Newf("%q is not an integer", v)
		}
		return n, nil
	default:
		return nil, errors.Newf("cannot use %T as integer", raw)
	}
}

func (integerType) Dump(v any) (string, error) {
	switch n := v.(type) {
	case nil:
		return "", nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	default:
		return "", errNotCanonical
	}
}

func uintToInt(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, errors.Newf("%d overflows int64", u)
	}
	return int64(u), nil
}

func floatToInt(f float64) (any, error) {
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, errors.Newf("%v is not a whole number", f)
	}
	return int64(f), nil
}

type booleanType struct{}

// Boolean returns the boolean type. Values dump to "t" and "f".
func Boolean() Type { return booleanType{} }

func (booleanType) Kind() Kind { return KindBoolean }
func (booleanType) Zero() any  { return nil }

func (booleanType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "t", "true", "1":
			return true, nil
		case "f", "false", "0":
			return false, nil
		}
	case int:
		return intToBool(int64(v))
	case int64:
		return intToBool(v)
	case int32:
		return intToBool(int64(v))
	}
	return nil, errors.Newf("%v is not a boolean", raw)
}

func (booleanType) Dump(v any) (string, error) {
	switch b := v.(type) {
	case nil:
		return "", nil
	case bool:
		if b {
			return "t", nil
		}
		return "f", nil
	default:
		return "", errNotCanonical
	}
}

func intToBool(n int64) (any, error) {
	switch n {
	case 1:
		return true, nil
	case 0:
		return false, nil
	}
	return nil, errors.Newf("%d is not a boolean", n)
}

type dynamicType struct{}

// Dynamic returns the type of attributes registered at write time. Any
// value is accepted and stored as its string form. Dynamic attributes
// cannot be keys.
func Dynamic() Type { return dynamicType{} }

func (dynamicType) Kind() Kind { return KindDynamic }
func (dynamicType) Zero() any  { return nil }

func (dynamicType) Cast(raw any) (any, error) {
	if s, ok := raw.(string); ok {
		return s, nil
	}
	return fmt.Sprint(raw), nil
}

func (dynamicType) Dump(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return fmt.Sprint(v), nil
	}
}
