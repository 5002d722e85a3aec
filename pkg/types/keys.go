package types

import (
	"sort"
	"strings"
)

// Key layout. These formats are the wire contract with data already in a
// store and must not change.
//
//	element record:   {Type}:{key}
//	custom attribute: {Type}:{key}:{attr}
//	index:            {Type}::indices::{index}
//	index bucket:     {Type}::indices::{index}::{value}
const (
	keySep       = ":"
	indicesInfix = "::indices::"
	bucketSep    = "::"

	// TempKeyPrefix prefixes every temporary query result key. Nothing
	// else is ever stored under it.
	TempKeyPrefix = "kvgraph::tmp::"
)

// ElementKey returns the address of an element record.
func ElementKey(typeName, key string) string {
	return typeName + keySep + key
}

// CustomKey returns the address of a custom attribute (counter, set, list).
func CustomKey(typeName, key, attr string) string {
	return typeName + keySep + key + keySep + attr
}

// IndexKey returns the address of an index without a value bucket.
func IndexKey(typeName, index string) string {
	return typeName + indicesInfix + index
}

// BucketKey returns the address of the value bucket of an index.
func BucketKey(typeName, index, value string) string {
	return IndexKey(typeName, index) + bucketSep + value
}

// TempKey returns a temporary key for the given unique id.
func TempKey(id string) string {
	return TempKeyPrefix + id
}

// IsTempKey reports whether key is a temporary query key.
func IsTempKey(key string) bool {
	return strings.HasPrefix(key, TempKeyPrefix)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
