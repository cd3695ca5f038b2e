// Package redisdb stores the topology in Redis, one hash per row keyed
// "TABLE|id".
//
// Apply runs every change of a commit in one MULTI/EXEC transaction under
// WATCH on the touched keys. A row modified by another writer since the
// session loaded it aborts the commit with util.ErrConflict.
package redisdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// DefaultRemoteAddr is the Redis address dialed through an SSH tunnel
const DefaultRemoteAddr = "127.0.0.1:6379"

// Options configures the backend connection.
type Options struct {
	Addr     string // host:port, ignored when SSHHost is set
	DB       int
	Password string

	// SSHHost, when set, reaches Redis at RemoteAddr through an SSH tunnel
	SSHHost    string
	SSHUser    string
	SSHPass    string
	RemoteAddr string
}

// Backend is a store.Backend on a Redis database.
type Backend struct {
	client *redis.Client
	tunnel *SSHTunnel
	addr   string
}

// Open connects to Redis, through an SSH tunnel when configured, and
// checks the connection.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	b := &Backend{addr: opts.Addr}

	if opts.SSHHost != "" {
		remote := opts.RemoteAddr
		if remote == "" {
			remote = DefaultRemoteAddr
		}
		tun, err := NewSSHTunnel(opts.SSHHost, opts.SSHUser, opts.SSHPass, remote)
		if err != nil {
			return nil, fmt.Errorf("SSH tunnel to %s: %w", opts.SSHHost, err)
		}
		b.tunnel = tun
		b.addr = tun.LocalAddr()
	}

	b.client = redis.NewClient(&redis.Options{
		Addr:     b.addr,
		DB:       opts.DB,
		Password: opts.Password,
	})
	if err := b.client.Ping(ctx).Err(); err != nil {
		b.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w: %v", b.addr, util.ErrNotConnected, err)
	}
	util.WithBackend(b.Name()).Debugf("Connected to %s db %d", b.addr, opts.DB)
	return b, nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *Backend {
	return &Backend{client: client, addr: client.Options().Addr}
}

// Name implements store.Backend
func (b *Backend) Name() string { return "redis" }

// Close closes the client and the tunnel
func (b *Backend) Close() error {
	var err error
	if b.client != nil {
		err = b.client.Close()
	}
	if b.tunnel != nil {
		b.tunnel.Close()
		b.tunnel = nil
	}
	return err
}

// Key returns the Redis key of a row
func Key(table store.Table, id int64) string {
	return fmt.Sprintf("%s|%d", table, id)
}

// ParseKey splits a "TABLE|id" key. ok is false for keys of other tables.
func ParseKey(key string) (store.Table, int64, bool) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	table := store.Table(parts[0])
	if !knownTable(table) {
		return "", 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return table, id, true
}

func knownTable(t store.Table) bool {
	for _, known := range store.Tables {
		if t == known {
			return true
		}
	}
	return false
}

// Load implements store.Backend. Keys of other applications sharing the
// database are ignored.
func (b *Backend) Load(ctx context.Context) (store.Snapshot, error) {
	snap := store.NewSnapshot()
	for _, table := range store.Tables {
		keys, err := scanKeys(ctx, b.client, string(table)+"|*", 100)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		if len(keys) == 0 {
			continue
		}

		cmds := make(map[string]*redis.StringStringMapCmd, len(keys))
		if _, err := b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, key := range keys {
				cmds[key] = pipe.HGetAll(ctx, key)
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("reading %s: %w", table, err)
		}

		for key, cmd := range cmds {
			t, id, ok := ParseKey(key)
			if !ok || t != table {
				continue
			}
			vals, err := cmd.Result()
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", key, err)
			}
			delete(vals, "NULL")
			snap[table][id] = store.Row(vals)
		}
	}
	return snap, nil
}

// Apply implements store.Backend.
func (b *Backend) Apply(ctx context.Context, changes []store.Change) error {
	if len(changes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(changes))
	for _, c := range changes {
		keys = append(keys, c.RedisKey())
	}

	err := b.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := verifyUnchanged(ctx, tx, changes); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, c := range changes {
				key := c.RedisKey()
				switch c.Type {
				case store.ChangeDelete:
					pipe.Del(ctx, key)
				case store.ChangeModify:
					pipe.Del(ctx, key)
					pipe.HSet(ctx, key, hsetArgs(c.NewValue)...)
				case store.ChangeAdd:
					pipe.HSet(ctx, key, hsetArgs(c.NewValue)...)
				}
			}
			return nil
		})
		return err
	}, keys...)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("rows changed during commit: %w", util.ErrConflict)
	}
	if errors.Is(err, util.ErrConflict) {
		return err
	}
	if err != nil && err != redis.Nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}

// verifyUnchanged checks, under WATCH, that every row still holds the value
// the change was computed from.
func verifyUnchanged(ctx context.Context, tx *redis.Tx, changes []store.Change) error {
	for _, c := range changes {
		current, err := tx.HGetAll(ctx, c.RedisKey()).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		delete(current, "NULL")
		switch c.Type {
		case store.ChangeAdd:
			if len(current) > 0 {
				return fmt.Errorf("%s already exists: %w", c.RedisKey(), util.ErrConflict)
			}
		default:
			if !store.Row(current).Equal(c.OldValue) {
				return fmt.Errorf("%s changed since load: %w", c.RedisKey(), util.ErrConflict)
			}
		}
	}
	return nil
}

// hsetArgs flattens a row for HSET. An empty row is written as the
// "NULL":"NULL" sentinel so the key exists.
func hsetArgs(row store.Row) []interface{} {
	if len(row) == 0 {
		return []interface{}{"NULL", "NULL"}
	}
	args := make([]interface{}, 0, len(row)*2)
	for k, v := range row {
		args = append(args, k, v)
	}
	return args
}

// scanKeys iterates Redis keys matching the given pattern using cursor-based
// SCAN instead of the blocking O(N) KEYS command.
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

var _ store.Backend = (*Backend)(nil)
