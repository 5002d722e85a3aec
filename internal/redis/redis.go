// Package redis implements the store on a Redis server. Commands are
// forwarded unchanged; Exec wraps them in MULTI/EXEC.
//
// Redis does not roll back a transaction when one of its commands fails at
// run time, so a failed Exec may leave earlier writes of the batch applied.
package redis

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/kvgraph/internal/logger"
	"github.com/mesh-intelligence/kvgraph/internal/metrics"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

const backendName = types.BackendRedis

// Store implements types.Store on a go-redis client.
type Store struct {
	rdb    goredis.UniversalClient
	closed atomic.Bool
}

// Open connects to the server in cfg and pings it.
func Open(ctx context.Context, cfg types.RedisConfig) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", cfg.Addr)
	}
	l := logger.Component("redis")
	l.Debug().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected")
	return New(rdb), nil
}

// New wraps an existing client. Close closes it.
func New(rdb goredis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

// Do executes one command.
func (s *Store) Do(ctx context.Context, cmd types.Cmd) (types.Reply, error) {
	if s.closed.Load() {
		return types.Reply{}, types.ErrStoreClosed
	}
	val, err := s.rdb.Do(ctx, args(cmd)...).Result()
	r, err := toReply(cmd, val, err)
	metrics.StoreCommands.WithLabelValues(backendName, string(cmd.Op), metrics.Result(err)).Inc()
	return r, err
}

// Exec executes cmds inside MULTI/EXEC.
func (s *Store) Exec(ctx context.Context, cmds []types.Cmd) (replies []types.Reply, err error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}
	if len(cmds) == 0 {
		return []types.Reply{}, nil
	}
	start := time.Now()
	defer func() { metrics.ObserveBatch(backendName, start, err) }()

	pending := make([]*goredis.Cmd, len(cmds))
	_, txErr := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, cmd := range cmds {
			pending[i] = pipe.Do(ctx, args(cmd)...)
		}
		return nil
	})
	replies = make([]types.Reply, len(cmds))
	for i, c := range pending {
		val, cerr := c.Result()
		r, cerr := toReply(cmds[i], val, cerr)
		metrics.StoreCommands.WithLabelValues(backendName, string(cmds[i].Op), metrics.Result(cerr)).Inc()
		if cerr != nil {
			return nil, errors.Wrapf(cerr, "command %d (%s)", i, cmds[i].Op)
		}
		replies[i] = r
	}
	// A nil reply also surfaces as the pipeline error.
	if txErr != nil && !errors.Is(txErr, goredis.Nil) {
		return nil, mapError(txErr)
	}
	return replies, nil
}

// Close closes the client.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.rdb.Close()
}

func args(cmd types.Cmd) []any {
	out := make([]any, 0, len(cmd.Args)+1)
	out = append(out, string(cmd.Op))
	for _, a := range cmd.Args {
		out = append(out, a)
	}
	return out
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.ErrClosed) {
		return types.ErrStoreClosed
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "WRONGTYPE"):
		return errors.Wrap(types.ErrWrongType, msg)
	case strings.HasPrefix(msg, "ERR no such key"):
		return errors.Wrap(types.ErrNoSuchKey, msg)
	case strings.HasPrefix(msg, "ERR index out of range"):
		return errors.Wrap(types.ErrIndexOutOfRange, msg)
	case strings.HasPrefix(msg, "ERR wrong number of arguments"), strings.HasPrefix(msg, "ERR unknown command"):
		return errors.Wrap(types.ErrInvalidCommand, msg)
	}
	return err
}

// toReply converts a RESP2 or RESP3 value into a Reply.
func toReply(cmd types.Cmd, val any, err error) (types.Reply, error) {
	if errors.Is(err, goredis.Nil) {
		return types.Reply{Nil: true}, nil
	}
	if err != nil {
		return types.Reply{}, mapError(err)
	}
	if cmd.Op == types.OpHGetAll {
		m, err := toMap(val)
		return types.Reply{Map: m}, err
	}
	switch v := val.(type) {
	case nil:
		return types.Reply{Nil: true}, nil
	case string:
		return types.Reply{Str: v}, nil
	case int64:
		return types.Reply{Int: v}, nil
	case bool:
		if v {
			return types.Reply{Int: 1}, nil
		}
		return types.Reply{}, nil
	case []any:
		strs := make([]string, 0, len(v))
		for _, x := range v {
			strs = append(strs, fmt.Sprint(x))
		}
		return types.Reply{Strs: strs}, nil
	case map[any]bool:
		strs := make([]string, 0, len(v))
		for x := range v {
			strs = append(strs, fmt.Sprint(x))
		}
		return types.Reply{Strs: strs}, nil
	default:
		return types.Reply{}, errors.Newf("unexpected reply %T to %s", val, cmd.Op)
	}
}

func toMap(val any) (map[string]string, error) {
	out := make(map[string]string)
	switch v := val.(type) {
	case nil:
	case []any:
		for i := 0; i+1 < len(v); i += 2 {
			out[fmt.Sprint(v[i])] = fmt.Sprint(v[i+1])
		}
	case map[any]any:
		for k, x := range v {
			out[fmt.Sprint(k)] = fmt.Sprint(x)
		}
	default:
		return nil, errors.Newf("unexpected hash reply %T", val)
	}
	return out, nil
}
