package clusterstore

import "context"

// FieldProvider computes field values for clusters from raw upstream data.
// Implementations declare the fields they own, and the cache calls
// ComputeAndStore to (re)build a cluster's values from its member
// observations.
//
// Reaction to clustering changes has sensible defaults supplied by the
// cache: every added cluster is recomputed from its new membership, and a
// merge is handled like a reassignment. A provider opts into specialized
// behavior by additionally implementing Assigner and/or Merger.
type FieldProvider interface {
	// Name labels the provider in diagnostics.
	Name() string

	// Fields lists the (name, location) pairs this provider owns.
	// Must be non-empty.
	Fields() []Field

	// ComputeAndStore pulls raw data from the model for one cluster and
	// writes the resulting field values through the store.
	ComputeAndStore(ctx context.Context, id ClusterID, members []int) error
}

// Assigner is an optional FieldProvider specialization for reassignment
// changes. The default recomputes every added cluster; deleted clusters are
// already purged by the time this runs and never need touching.
type Assigner interface {
	Assign(ctx context.Context, ch Change) error
}

// Merger is an optional FieldProvider specialization for merge changes.
// Implement it only as a performance shortcut producing results identical to
// the assign path (e.g. combining two cached means instead of recomputing).
type Merger interface {
	Merge(ctx context.Context, ch Change) error
}

// Accessor loads one registered field's value for a cluster.
type Accessor func(ctx context.Context, id ClusterID) (any, error)

// Options configure a Cache.
type Options struct {
	// Store is the two-tier dispatching store the cache reads and writes
	// through. Required.
	Store *Store

	// Model is the opaque upstream data source handed to field providers.
	// The cache itself only looks for an optional Name() string used as a
	// diagnostic label during Generate.
	Model any

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// New creates a Cache over the given store.
func New(opts Options) (*Cache, error) {
	return newCache(opts)
}
