// Package genstore tracks a monotonically increasing generation per container
// name. The read-caching backend wrapper stamps cached entries with the
// generation observed at read time and bumps it whenever a container is
// written or removed, so cached bytes from before the write can never be
// served again.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where container generations live.
// Use LocalGenStore (default) for a single process, or RedisGenStore when the
// same persistent tier is shared between processes.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, name string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, name string) (uint64, error)
	// Cleanup prunes long-inactive entries if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
