package attr

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type datetimeType struct{}

// DateTime returns the timestamp type. Values are UTC time.Time and are
// stored as RFC 3339 with nanoseconds.
func DateTime() Type { return datetimeType{} }

func (datetimeType) Kind() Kind { return KindDateTime }
func (datetimeType) Zero() any  { return nil }

func (datetimeType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case *time.Time:
		if v == nil {
			return nil, errors.New("nil time")
		}
		return v.UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
		return nil, errors.Newf("%q is not a timestamp", v)
	default:
		return nil, errors.Newf("cannot use %T as timestamp", raw)
	}
}

func (datetimeType) Dump(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	default:
		return "", errNotCanonical
	}
}
