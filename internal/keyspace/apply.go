package keyspace

import (
	"math/rand/v2"
	"path"
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// Space is the storage a command runs against.
type Space interface {
	// Load returns the value of key, or nil when the key is absent.
	Load(key string) (*Value, error)
	// Store replaces the value of key. A nil or empty value deletes it.
	Store(key string, v *Value) error
	// Keys returns every key.
	Keys() ([]string, error)
}

var okReply = types.Reply{Str: "OK"}

// ReadOnly reports whether op never writes.
func ReadOnly(op types.Op) bool {
	switch op {
	case types.OpExists, types.OpKeys, types.OpGet, types.OpHGetAll,
		types.OpSIsMember, types.OpSCard, types.OpSMembers, types.OpSInter,
		types.OpSUnion, types.OpSRandMember, types.OpLIndex, types.OpLRange, types.OpLLen:
		return true
	default:
		return false
	}
}

// Apply executes one command against sp.
func Apply(sp Space, cmd types.Cmd) (types.Reply, error) {
	if err := checkArity(cmd); err != nil {
		return types.Reply{}, err
	}
	a := cmd.Args
	switch cmd.Op {
	case types.OpDel:
		return del(sp, a)
	case types.OpExists:
		return exists(sp, a)
	case types.OpRename:
		return rename(sp, a[0], a[1], false)
	case types.OpRenameNX:
		return rename(sp, a[0], a[1], true)
	case types.OpKeys:
		return keys(sp, a[0])
	case types.OpGet:
		return get(sp, a[0])
	case types.OpSet:
		return okReply, sp.Store(a[0], &Value{Kind: KindString, Str: a[1]})
	case types.OpIncrBy:
		return incrBy(sp, a[0], a[1])
	case types.OpHGetAll:
		return hgetall(sp, a[0])
	case types.OpHSet:
		return hset(sp, a[0], a[1:])
	case types.OpHDel:
		return hdel(sp, a[0], a[1:])
	case types.OpSAdd:
		return sadd(sp, a[0], a[1:])
	case types.OpSRem:
		return srem(sp, a[0], a[1:])
	case types.OpSIsMember:
		return sismember(sp, a[0], a[1])
	case types.OpSCard:
		return scard(sp, a[0])
	case types.OpSMembers:
		return smembers(sp, a[0])
	case types.OpSInter, types.OpSUnion:
		v, err := combine(sp, cmd.Op == types.OpSInter, a)
		if err != nil {
			return types.Reply{}, err
		}
		return types.Reply{Strs: v.Members()}, nil
	case types.OpSInterStore, types.OpSUnionStore:
		v, err := combine(sp, cmd.Op == types.OpSInterStore, a[1:])
		if err != nil {
			return types.Reply{}, err
		}
		return types.Reply{Int: int64(len(v.Set))}, sp.Store(a[0], v)
	case types.OpSRandMember:
		return srandmember(sp, a[0])
	case types.OpRPush, types.OpLPush:
		return push(sp, a[0], a[1:], cmd.Op == types.OpLPush)
	case types.OpRPop, types.OpLPop:
		return pop(sp, a[0], cmd.Op == types.OpLPop)
	case types.OpLIndex:
		return lindex(sp, a[0], a[1])
	case types.OpLSet:
		return lset(sp, a[0], a[1], a[2])
	case types.OpLRange:
		return lrange(sp, a[0], a[1], a[2])
	case types.OpLLen:
		return llen(sp, a[0])
	default:
		return types.Reply{}, errors.Wrapf(types.ErrInvalidCommand, "unknown command %s", cmd.Op)
	}
}

func checkArity(cmd types.Cmd) error {
	n := len(cmd.Args)
	var valid bool
	switch cmd.Op {
	case types.OpDel, types.OpExists, types.OpSInter, types.OpSUnion:
		valid = n >= 1
	case types.OpKeys, types.OpGet, types.OpHGetAll, types.OpSCard, types.OpSMembers,
		types.OpSRandMember, types.OpRPop, types.OpLPop, types.OpLLen:
		valid = n == 1
	case types.OpRename, types.OpRenameNX, types.OpSet, types.OpIncrBy,
		types.OpSIsMember, types.OpLIndex:
		valid = n == 2
	case types.OpLSet, types.OpLRange:
		valid = n == 3
	case types.OpHSet:
		valid = n >= 3 && n%2 == 1
	case types.OpHDel, types.OpSAdd, types.OpSRem, types.OpRPush, types.OpLPush,
		types.OpSInterStore, types.OpSUnionStore:
		valid = n >= 2
	default:
		valid = true
	}
	if !valid {
		return errors.Wrapf(types.ErrInvalidCommand, "wrong number of arguments for %s", cmd.Op)
	}
	return nil
}

// load returns the value of key if it holds kind, nil when absent.
func load(sp Space, key string, kind Kind) (*Value, error) {
	v, err := sp.Load(key)
	if err != nil {
		return nil, err
	}
	if v != nil && v.Kind != kind {
		return nil, errors.Wrapf(types.ErrWrongType, "%s holds a %s, not a %s", key, v.Kind, kind)
	}
	return v, nil
}

// loadForWrite returns a private copy of the value of key, or a fresh empty
// value of kind.
func loadForWrite(sp Space, key string, kind Kind) (*Value, error) {
	v, err := load(sp, key, kind)
	if err != nil {
		return nil, err
	}
	if v != nil {
		return v.Clone(), nil
	}
	v = &Value{Kind: kind}
	switch kind {
	case KindHash:
		v.Hash = make(map[string]string)
	case KindSet:
		v.Set = make(map[string]struct{})
	}
	return v, nil
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(types.ErrInvalidCommand, "%q is not an integer", s)
	}
	return n, nil
}

func del(sp Space, keys []string) (types.Reply, error) {
	var n int64
	for _, k := range keys {
		v, err := sp.Load(k)
		if err != nil {
			return types.Reply{}, err
		}
		if v == nil {
			continue
		}
		if err := sp.Store(k, nil); err != nil {
			return types.Reply{}, err
		}
		n++
	}
	return types.Reply{Int: n}, nil
}

func exists(sp Space, keys []string) (types.Reply, error) {
	var n int64
	for _, k := range keys {
		v, err := sp.Load(k)
		if err != nil {
			return types.Reply{}, err
		}
		if v != nil {
			n++
		}
	}
	return types.Reply{Int: n}, nil
}

func rename(sp Space, src, dst string, nx bool) (types.Reply, error) {
	v, err := sp.Load(src)
	if err != nil {
		return types.Reply{}, err
	}
	if v == nil {
		return types.Reply{}, errors.Wrapf(types.ErrNoSuchKey, "rename %s", src)
	}
	if nx {
		existing, err := sp.Load(dst)
		if err != nil {
			return types.Reply{}, err
		}
		if existing != nil {
			return types.Reply{Int: 0}, nil
		}
	}
	if src == dst {
		if nx {
			return types.Reply{Int: 0}, nil
		}
		return okReply, nil
	}
	if err := sp.Store(dst, v); err != nil {
		return types.Reply{}, err
	}
	if err := sp.Store(src, nil); err != nil {
		return types.Reply{}, err
	}
	if nx {
		return types.Reply{Int: 1}, nil
	}
	return okReply, nil
}

func keys(sp Space, pattern string) (types.Reply, error) {
	all, err := sp.Keys()
	if err != nil {
		return types.Reply{}, err
	}
	out := make([]string, 0)
	for _, k := range all {
		matched, err := path.Match(pattern, k)
		if err != nil {
			return types.Reply{}, errors.Wrapf(types.ErrInvalidCommand, "bad pattern %q", pattern)
		}
		if matched {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return types.Reply{Strs: out}, nil
}

func get(sp Space, key string) (types.Reply, error) {
	v, err := load(sp, key, KindString)
	if err != nil || v == nil {
		return types.Reply{Nil: v == nil}, err
	}
	return types.Reply{Str: v.Str}, nil
}

func incrBy(sp Space, key, by string) (types.Reply, error) {
	delta, err := parseInt(by)
	if err != nil {
		return types.Reply{}, err
	}
	v, err := load(sp, key, KindString)
	if err != nil {
		return types.Reply{}, err
	}
	var cur int64
	if v != nil {
		if cur, err = parseInt(v.Str); err != nil {
			return types.Reply{}, err
		}
	}
	cur += delta
	return types.Reply{Int: cur}, sp.Store(key, &Value{Kind: KindString, Str: strconv.FormatInt(cur, 10)})
}

func hgetall(sp Space, key string) (types.Reply, error) {
	v, err := load(sp, key, KindHash)
	if err != nil {
		return types.Reply{}, err
	}
	out := make(map[string]string)
	if v != nil {
		for f, val := range v.Hash {
			out[f] = val
		}
	}
	return types.Reply{Map: out}, nil
}

func hset(sp Space, key string, pairs []string) (types.Reply, error) {
	v, err := loadForWrite(sp, key, KindHash)
	if err != nil {
		return types.Reply{}, err
	}
	var added int64
	for i := 0; i+1 < len(pairs); i += 2 {
		if _, exists := v.Hash[pairs[i]]; !exists {
			added++
		}
		v.Hash[pairs[i]] = pairs[i+1]
	}
	return types.Reply{Int: added}, sp.Store(key, v)
}

func hdel(sp Space, key string, fields []string) (types.Reply, error) {
	v, err := loadForWrite(sp, key, KindHash)
	if err != nil {
		return types.Reply{}, err
	}
	var removed int64
	for _, f := range fields {
		if _, exists := v.Hash[f]; exists {
			delete(v.Hash, f)
			removed++
		}
	}
	if removed == 0 {
		return types.Reply{}, nil
	}
	return types.Reply{Int: removed}, sp.Store(key, v)
}

func sadd(sp Space, key string, members []string) (types.Reply, error) {
	v, err := loadForWrite(sp, key, KindSet)
	if err != nil {
		return types.Reply{}, err
	}
	var added int64
	for _, m := range members {
		if _, exists := v.Set[m]; !exists {
			v.Set[m] = struct{}{}
			added++
		}
	}
	if added == 0 {
		return types.Reply{}, nil
	}
	return types.Reply{Int: added}, sp.Store(key, v)
}

func srem(sp Space, key string, members []string) (types.Reply, error) {
	v, err := loadForWrite(sp, key, KindSet)
	if err != nil {
		return types.Reply{}, err
	}
	var removed int64
	for _, m := range members {
		if _, exists := v.Set[m]; exists {
			delete(v.Set, m)
			removed++
		}
	}
	if removed == 0 {
		return types.Reply{}, nil
	}
	return types.Reply{Int: removed}, sp.Store(key, v)
}

func sismember(sp Space, key, member string) (types.Reply, error) {
	v, err := load(sp, key, KindSet)
	if err != nil || v == nil {
		return types.Reply{}, err
	}
	if _, exists := v.Set[member]; exists {
		return types.Reply{Int: 1}, nil
	}
	return types.Reply{}, nil
}

func scard(sp Space, key string) (types.Reply, error) {
	v, err := load(sp, key, KindSet)
	if err != nil || v == nil {
		return types.Reply{}, err
	}
	return types.Reply{Int: int64(len(v.Set))}, nil
}

func smembers(sp Space, key string) (types.Reply, error) {
	v, err := load(sp, key, KindSet)
	if err != nil {
		return types.Reply{}, err
	}
	return types.Reply{Strs: v.Members()}, nil
}

// combine intersects or unions the sets at keys. Missing keys are empty
// sets.
func combine(sp Space, intersect bool, keys []string) (*Value, error) {
	out := newSet()
	for i, k := range keys {
		v, err := load(sp, k, KindSet)
		if err != nil {
			return nil, err
		}
		switch {
		case !intersect:
			if v != nil {
				for m := range v.Set {
					out.Set[m] = struct{}{}
				}
			}
		case i == 0:
			if v != nil {
				out = v.Clone()
			}
		default:
			for m := range out.Set {
				if v == nil {
					delete(out.Set, m)
					continue
				}
				if _, exists := v.Set[m]; !exists {
					delete(out.Set, m)
				}
			}
		}
	}
	return out, nil
}

func srandmember(sp Space, key string) (types.Reply, error) {
	v, err := load(sp, key, KindSet)
	if err != nil {
		return types.Reply{}, err
	}
	members := v.Members()
	if len(members) == 0 {
		return types.Reply{Nil: true}, nil
	}
	return types.Reply{Str: members[rand.IntN(len(members))]}, nil
}

func push(sp Space, key string, values []string, left bool) (types.Reply, error) {
	v, err := loadForWrite(sp, key, KindList)
	if err != nil {
		return types.Reply{}, err
	}
	for _, val := range values {
		if left {
			v.List = slices.Insert(v.List, 0, val)
		} else {
			v.List = append(v.List, val)
		}
	}
	return types.Reply{Int: int64(len(v.List))}, sp.Store(key, v)
}

func pop(sp Space, key string, left bool) (types.Reply, error) {
	v, err := loadForWrite(sp, key, KindList)
	if err != nil {
		return types.Reply{}, err
	}
	if len(v.List) == 0 {
		return types.Reply{Nil: true}, nil
	}
	var out string
	if left {
		out, v.List = v.List[0], v.List[1:]
	} else {
		out, v.List = v.List[len(v.List)-1], v.List[:len(v.List)-1]
	}
	return types.Reply{Str: out}, sp.Store(key, v)
}

// normalize resolves a possibly negative list index.
func normalize(i int64, n int) int64 {
	if i < 0 {
		return int64(n) + i
	}
	return i
}

func lindex(sp Space, key, index string) (types.Reply, error) {
	i, err := parseInt(index)
	if err != nil {
		return types.Reply{}, err
	}
	v, err := load(sp, key, KindList)
	if err != nil {
		return types.Reply{}, err
	}
	if v == nil {
		return types.Reply{Nil: true}, nil
	}
	i = normalize(i, len(v.List))
	if i < 0 || i >= int64(len(v.List)) {
		return types.Reply{Nil: true}, nil
	}
	return types.Reply{Str: v.List[i]}, nil
}

func lset(sp Space, key, index, value string) (types.Reply, error) {
	i, err := parseInt(index)
	if err != nil {
		return types.Reply{}, err
	}
	v, err := load(sp, key, KindList)
	if err != nil {
		return types.Reply{}, err
	}
	if v == nil {
		return types.Reply{}, errors.Wrapf(types.ErrNoSuchKey, "lset %s", key)
	}
	i = normalize(i, len(v.List))
	if i < 0 || i >= int64(len(v.List)) {
		return types.Reply{}, errors.Wrapf(types.ErrIndexOutOfRange, "lset %s %s", key, index)
	}
	v = v.Clone()
	v.List[i] = value
	return okReply, sp.Store(key, v)
}

func lrange(sp Space, key, startArg, stopArg string) (types.Reply, error) {
	start, err := parseInt(startArg)
	if err != nil {
		return types.Reply{}, err
	}
	stop, err := parseInt(stopArg)
	if err != nil {
		return types.Reply{}, err
	}
	v, err := load(sp, key, KindList)
	if err != nil {
		return types.Reply{}, err
	}
	out := []string{}
	if v == nil {
		return types.Reply{Strs: out}, nil
	}
	n := len(v.List)
	start = max(normalize(start, n), 0)
	stop = min(normalize(stop, n), int64(n)-1)
	if start > stop {
		return types.Reply{Strs: out}, nil
	}
	return types.Reply{Strs: append(out, v.List[start:stop+1]...)}, nil
}

func llen(sp Space, key string) (types.Reply, error) {
	v, err := load(sp, key, KindList)
	if err != nil || v == nil {
		return types.Reply{}, err
	}
	return types.Reply{Int: int64(len(v.List))}, nil
}
