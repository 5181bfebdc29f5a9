// Package redis implements the container backend on Redis: each cluster's
// container is one hash, so several processes can share a persistent tier.
//
// Unlike the local backend, writes are visible as soon as Put returns; there
// is no commit-on-close step. Close on a container is a no-op.
package redis

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/clusterstore/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

const defaultNamespace = "clusterstore"

// markerField pins a hash into existence so that a container stored with an
// empty field set is still listed. Redis drops hashes with zero fields, which
// would let the two tiers' cluster sets drift apart. The leading NUL keeps it
// out of any legal field namespace; Keys filters it.
const markerField = "\x00created"

type Backend struct {
	rdb         goredis.UniversalClient
	ns          string
	closeClient bool
}

var _ backend.Backend = (*Backend)(nil)

type Config struct {
	Client goredis.UniversalClient
	// Namespace isolates this store's hashes from other users of the same
	// Redis instance. Defaults to "clusterstore".
	Namespace string
	// CloseClient should be true only if this backend exclusively owns the
	// client.
	CloseClient bool
}

func New(cfg Config) (*Backend, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	return &Backend{rdb: cfg.Client, ns: ns, closeClient: cfg.CloseClient}, nil
}

func (b *Backend) key(name string) string { return b.ns + ":" + name }

func (b *Backend) Open(ctx context.Context, name string, mode backend.Mode) (backend.Container, error) {
	switch mode {
	case backend.ModeRead:
		ok, err := b.Exists(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, backend.ErrNotFound
		}
	case backend.ModeAppend:
	case backend.ModeCreate:
		if err := b.rdb.Del(ctx, b.key(name)).Err(); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("redis backend: invalid open mode")
	}
	if mode != backend.ModeRead {
		if err := b.rdb.HSetNX(ctx, b.key(name), markerField, "1").Err(); err != nil {
			return nil, err
		}
	}
	return &container{rdb: b.rdb, key: b.key(name), mode: mode}, nil
}

func (b *Backend) Exists(ctx context.Context, name string) (bool, error) {
	n, err := b.rdb.Exists(ctx, b.key(name)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *Backend) List(ctx context.Context) ([]string, error) {
	var (
		names  []string
		cursor uint64
	)
	prefix := b.ns + ":"
	for {
		keys, next, err := b.rdb.Scan(ctx, cursor, prefix+"*", 256).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			names = append(names, strings.TrimPrefix(k, prefix))
		}
		if next == 0 {
			return names, nil
		}
		cursor = next
	}
}

func (b *Backend) Remove(ctx context.Context, name string) error {
	return b.rdb.Del(ctx, b.key(name)).Err()
}

// Close releases the underlying Redis client only when this backend owns it.
// Safe to call multiple times.
func (b *Backend) Close(context.Context) error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type container struct {
	rdb  goredis.UniversalClient
	key  string
	mode backend.Mode
}

func (c *container) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.HGet(ctx, c.key, key).Bytes()
	if err == goredis.Nil {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *container) Put(ctx context.Context, key string, value []byte) error {
	if c.mode == backend.ModeRead {
		return backend.ErrReadOnly
	}
	return c.rdb.HSet(ctx, c.key, key, value).Err()
}

func (c *container) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.rdb.HKeys(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if k != markerField {
			out = append(out, k)
		}
	}
	return out, nil
}

func (c *container) Close(context.Context) error { return nil }
