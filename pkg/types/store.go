package types

import (
	"context"
	"strconv"
	"strings"
)

// Op names a store command. The names follow the Redis command set so the
// redis backend can forward them unchanged.
type Op string

// Generic and string commands.
const (
	OpDel      Op = "DEL"
	OpExists   Op = "EXISTS"
	OpRename   Op = "RENAME"
	OpRenameNX Op = "RENAMENX"
	OpKeys     Op = "KEYS"
	OpGet      Op = "GET"
	OpSet      Op = "SET"
	OpIncrBy   Op = "INCRBY"
)

// Hash commands.
const (
	OpHGetAll Op = "HGETALL"
	OpHSet    Op = "HSET"
	OpHDel    Op = "HDEL"
)

// Set commands.
const (
	OpSAdd        Op = "SADD"
	OpSRem        Op = "SREM"
	OpSIsMember   Op = "SISMEMBER"
	OpSCard       Op = "SCARD"
	OpSMembers    Op = "SMEMBERS"
	OpSInter      Op = "SINTER"
	OpSUnion      Op = "SUNION"
	OpSInterStore Op = "SINTERSTORE"
	OpSUnionStore Op = "SUNIONSTORE"
	OpSRandMember Op = "SRANDMEMBER"
)

// List commands.
const (
	OpRPush  Op = "RPUSH"
	OpLPush  Op = "LPUSH"
	OpRPop   Op = "RPOP"
	OpLPop   Op = "LPOP"
	OpLIndex Op = "LINDEX"
	OpLSet   Op = "LSET"
	OpLRange Op = "LRANGE"
	OpLLen   Op = "LLEN"
)

// Cmd is a single store command. Args holds the raw arguments after the
// command name, keys first, in Redis argument order.
type Cmd struct {
	Op   Op
	Args []string
}

// Strings renders the command as the argument vector a Redis server expects.
func (c Cmd) Strings() []string {
	out := make([]string, 0, len(c.Args)+1)
	out = append(out, string(c.Op))
	return append(out, c.Args...)
}

func (c Cmd) String() string {
	return strings.Join(c.Strings(), " ")
}

// Keys returns the keys the command reads or writes.
func (c Cmd) Keys() []string {
	if len(c.Args) == 0 {
		return nil
	}
	switch c.Op {
	case OpDel, OpSInter, OpSUnion, OpSInterStore, OpSUnionStore:
		return c.Args
	case OpRename, OpRenameNX:
		return c.Args[:min(2, len(c.Args))]
	case OpKeys:
		return nil
	default:
		return c.Args[:1]
	}
}

// Reply is the result of one command. Which field is meaningful depends on
// the command: Map for HGETALL, Strs for multi-member replies, Int for
// counts, Str for single values. Nil marks a missing single value.
type Reply struct {
	Str  string
	Int  int64
	Strs []string
	Map  map[string]string
	Nil  bool
}

// Store is the backing key-value store. Do executes one command. Exec
// executes the commands as a single atomic group and returns one reply per
// command, in order.
type Store interface {
	Do(ctx context.Context, cmd Cmd) (Reply, error)
	Exec(ctx context.Context, cmds []Cmd) ([]Reply, error)
	Close() error
}

// Command builders.

func Del(keys ...string) Cmd       { return Cmd{Op: OpDel, Args: keys} }
func Exists(key string) Cmd        { return Cmd{Op: OpExists, Args: []string{key}} }
func Rename(src, dst string) Cmd   { return Cmd{Op: OpRename, Args: []string{src, dst}} }
func RenameNX(src, dst string) Cmd { return Cmd{Op: OpRenameNX, Args: []string{src, dst}} }
func Keys(pattern string) Cmd      { return Cmd{Op: OpKeys, Args: []string{pattern}} }
func Get(key string) Cmd           { return Cmd{Op: OpGet, Args: []string{key}} }
func Set(key, value string) Cmd    { return Cmd{Op: OpSet, Args: []string{key, value}} }
func IncrBy(key string, n int64) Cmd {
	return Cmd{Op: OpIncrBy, Args: []string{key, strconv.FormatInt(n, 10)}}
}
func HGetAll(key string) Cmd      { return Cmd{Op: OpHGetAll, Args: []string{key}} }
func SIsMember(key, m string) Cmd { return Cmd{Op: OpSIsMember, Args: []string{key, m}} }
func SCard(key string) Cmd        { return Cmd{Op: OpSCard, Args: []string{key}} }
func SMembers(key string) Cmd     { return Cmd{Op: OpSMembers, Args: []string{key}} }
func SRandMember(key string) Cmd  { return Cmd{Op: OpSRandMember, Args: []string{key}} }
func RPop(key string) Cmd         { return Cmd{Op: OpRPop, Args: []string{key}} }
func LPop(key string) Cmd         { return Cmd{Op: OpLPop, Args: []string{key}} }
func LLen(key string) Cmd         { return Cmd{Op: OpLLen, Args: []string{key}} }
func LIndex(key string, i int64) Cmd {
	return Cmd{Op: OpLIndex, Args: []string{key, strconv.FormatInt(i, 10)}}
}
func SInter(keys ...string) Cmd        { return Cmd{Op: OpSInter, Args: keys} }
func SUnion(keys ...string) Cmd        { return Cmd{Op: OpSUnion, Args: keys} }
func SAdd(key string, m ...string) Cmd { return Cmd{Op: OpSAdd, Args: append([]string{key}, m...)} }
func SRem(key string, m ...string) Cmd { return Cmd{Op: OpSRem, Args: append([]string{key}, m...)} }
func HDel(key string, f ...string) Cmd { return Cmd{Op: OpHDel, Args: append([]string{key}, f...)} }
func RPush(key string, v ...string) Cmd {
	return Cmd{Op: OpRPush, Args: append([]string{key}, v...)}
}
func LPush(key string, v ...string) Cmd {
	return Cmd{Op: OpLPush, Args: append([]string{key}, v...)}
}

func SInterStore(dst string, keys ...string) Cmd {
	return Cmd{Op: OpSInterStore, Args: append([]string{dst}, keys...)}
}

func SUnionStore(dst string, keys ...string) Cmd {
	return Cmd{Op: OpSUnionStore, Args: append([]string{dst}, keys...)}
}

func LSet(key string, i int64, value string) Cmd {
	return Cmd{Op: OpLSet, Args: []string{key, strconv.FormatInt(i, 10), value}}
}

func LRange(key string, start, stop int64) Cmd {
	return Cmd{Op: OpLRange, Args: []string{key, strconv.FormatInt(start, 10), strconv.FormatInt(stop, 10)}}
}

// HSet writes fields in sorted field order so the command is deterministic.
func HSet(key string, fields map[string]string) Cmd {
	args := make([]string, 0, 1+2*len(fields))
	args = append(args, key)
	for _, f := range sortedKeys(fields) {
		args = append(args, f, fields[f])
	}
	return Cmd{Op: OpHSet, Args: args}
}

// HSetFields decodes the field/value pairs of an HSET command.
func HSetFields(c Cmd) map[string]string {
	out := make(map[string]string)
	for i := 1; i+1 < len(c.Args); i += 2 {
		out[c.Args[i]] = c.Args[i+1]
	}
	return out
}
