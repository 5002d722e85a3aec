// Package index maintains secondary indexes: per attribute value, the set of
// element keys currently holding that value, plus the type-wide "all" set.
//
// Bucket values are the store encoding of the attribute value, so an index
// bucket matches what the element record holds.
package index

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// AllName is the name of the implicit type-wide index.
const AllName = "all"

// Index addresses one index of one element type.
type Index struct {
	typeName string
	name     string
}

// All returns the implicit membership index of a type.
func All(typeName string) *Index {
	return &Index{typeName: typeName, name: AllName}
}

// For returns the index of an indexed attribute.
func For(typeName, attribute string) *Index {
	return &Index{typeName: typeName, name: attribute}
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.name }

// TypeName returns the element type the index belongs to.
func (ix *Index) TypeName() string { return ix.typeName }

// IsAll reports whether ix is the type-wide index.
func (ix *Index) IsAll() bool { return ix.name == AllName }

// Key returns the storage address of the bucket for value. The all index
// has a single bucket and ignores value.
func (ix *Index) Key(value string) string {
	if ix.IsAll() {
		return types.IndexKey(ix.typeName, ix.name)
	}
	return types.BucketKey(ix.typeName, ix.name, value)
}

// AddCmd returns the command adding key to the bucket for value.
func (ix *Index) AddCmd(key, value string) types.Cmd {
	return types.SAdd(ix.Key(value), key)
}

// DeleteCmd returns the command removing key from the bucket for value.
func (ix *Index) DeleteCmd(key, value string) types.Cmd {
	return types.SRem(ix.Key(value), key)
}

// ModifyCmds returns the pair of commands moving key between buckets. Both
// must be submitted in the same batch.
func (ix *Index) ModifyCmds(key, oldValue, newValue string) []types.Cmd {
	return []types.Cmd{ix.DeleteCmd(key, oldValue), ix.AddCmd(key, newValue)}
}

// Add adds key to the bucket for value.
func (ix *Index) Add(ctx context.Context, st types.Store, key, value string) error {
	_, err := st.Do(ctx, ix.AddCmd(key, value))
	return errors.Wrapf(err, "index %s add", ix.name)
}

// Delete removes key from the bucket for value.
func (ix *Index) Delete(ctx context.Context, st types.Store, key, value string) error {
	_, err := st.Do(ctx, ix.DeleteCmd(key, value))
	return errors.Wrapf(err, "index %s delete", ix.name)
}

// Modify moves key from the old bucket to the new one in a single atomic
// batch.
func (ix *Index) Modify(ctx context.Context, st types.Store, key, oldValue, newValue string) error {
	if _, err := st.Exec(ctx, ix.ModifyCmds(key, oldValue, newValue)); err != nil {
		return &types.BatchExecutionError{Commands: 2, Err: err}
	}
	return nil
}

// Members returns the keys in the bucket for value.
func (ix *Index) Members(ctx context.Context, st types.Store, value string) ([]string, error) {
	r, err := st.Do(ctx, types.SMembers(ix.Key(value)))
	if err != nil {
		return nil, errors.Wrapf(err, "index %s members", ix.name)
	}
	return r.Strs, nil
}

// Count returns the bucket size without fetching members.
func (ix *Index) Count(ctx context.Context, st types.Store, value string) (int64, error) {
	r, err := st.Do(ctx, types.SCard(ix.Key(value)))
	if err != nil {
		return 0, errors.Wrapf(err, "index %s count", ix.name)
	}
	return r.Int, nil
}

// Contains reports whether key is in the bucket for value.
func (ix *Index) Contains(ctx context.Context, st types.Store, key, value string) (bool, error) {
	r, err := st.Do(ctx, types.SIsMember(ix.Key(value), key))
	if err != nil {
		return false, errors.Wrapf(err, "index %s contains", ix.name)
	}
	return r.Int == 1, nil
}

// RandomMember returns an arbitrary key from the bucket for value. ok is
// false when the bucket is empty.
func (ix *Index) RandomMember(ctx context.Context, st types.Store, value string) (key string, ok bool, err error) {
	r, err := st.Do(ctx, types.SRandMember(ix.Key(value)))
	if err != nil {
		return "", false, errors.Wrapf(err, "index %s random member", ix.name)
	}
	if r.Nil {
		return "", false, nil
	}
	return r.Str, true, nil
}
