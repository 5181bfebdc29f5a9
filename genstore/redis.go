package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGenStore shares per-container generations across processes and
// survives restarts. Pair it with the Redis container backend when several
// processes read the same persistent tier through caching wrappers.
//
// Optionally a TTL can be applied to generation keys to bound growth. If a
// generation key expires, readers observe gen=0 and simply re-read the
// container from the backend.
type RedisGenStore struct {
	rdb         redis.UniversalClient
	ns          string        // logical namespace isolating this store's keys
	ttl         time.Duration // optional TTL for generation keys; 0 disables expiry
	closeClient bool
}

var _ GenStore = (*RedisGenStore)(nil)

// NewRedisGenStore creates a Redis-backed generation store without TTL.
// closeClient should be true only if this store exclusively owns the client;
// a client shared with the Redis container backend must stay open.
func NewRedisGenStore(client redis.UniversalClient, namespace string, closeClient bool) *RedisGenStore {
	return &RedisGenStore{rdb: client, ns: namespace, closeClient: closeClient}
}

// NewRedisGenStoreWithTTL creates a Redis-backed generation store with TTL.
// If ttl <= 0, keys do not expire.
func NewRedisGenStoreWithTTL(client redis.UniversalClient, namespace string, ttl time.Duration, closeClient bool) *RedisGenStore {
	return &RedisGenStore{rdb: client, ns: namespace, ttl: ttl, closeClient: closeClient}
}

func (s *RedisGenStore) key(name string) string { return "gen:" + s.ns + ":" + name }

// Snapshot returns the current generation. Missing keys are generation 0.
func (s *RedisGenStore) Snapshot(ctx context.Context, name string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(name)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis gen parse: %w", err)
	}
	return u, nil
}

// Bump atomically increments the generation and (optionally) refreshes TTL.
// When ttl > 0, INCR + EXPIRE are pipelined in a single round-trip.
func (s *RedisGenStore) Bump(ctx context.Context, name string) (uint64, error) {
	k := s.key(name)

	if s.ttl <= 0 {
		v, err := s.rdb.Incr(ctx, k).Result()
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	}

	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

// Cleanup is not applicable for RedisGenStore (Redis handles expiry via TTL).
func (s *RedisGenStore) Cleanup(time.Duration) {}

// Close releases the underlying Redis client only when this store owns it.
func (s *RedisGenStore) Close(context.Context) error {
	if !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
