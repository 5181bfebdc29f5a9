// Package bytecache defines a small byte-store abstraction used by the
// read-caching container backend wrapper.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the []byte previously passed to Set for a key (no metadata, no re-encoding).
// Unlike the cluster store tiers, a byte cache MAY evict entries at will; the
// wrapping backend always treats the inner backend as authoritative.
package bytecache

import "context"

// Cache is a minimal, possibly-evicting byte store.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// IO/remote errors return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. cost is advisory; stores without a cost model may
	// ignore it. Returns ok=false when the write was rejected under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
