// Package clusterstore implements a two-tier cache of per-cluster computed
// attributes for a clustering pipeline, together with the registry that keeps
// cached values coherent as the clustering changes.
//
// Components:
//   - MemoryTier: volatile in-process field storage.
//   - DiskTier: persistent field storage, one keyed binary container per
//     cluster on a pluggable backend (local filesystem, Redis, in-memory).
//   - Store: routes each named field to exactly one tier and presents a
//     unified store/load/delete surface over both. The two tiers must always
//     agree on which clusters exist; a mismatch is a fatal consistency fault.
//   - Cache: registers field providers, exposes per-field accessors, selects
//     concatenated field rows by member observation index, and propagates
//     clustering changes (merges and reassignments) to every provider.
//   - FieldProvider: pluggable computation of field values from the raw
//     upstream model.
//
// The store is exact, not bounded: nothing is evicted, and Clear or Delete
// are the only ways data leaves it. No concurrent access is supported;
// callers serialize their own use.
//
// Typical flow:
//
//	st, _ := clusterstore.NewStore(clusterstore.StoreOptions{Directory: dir})
//	cache, _ := clusterstore.New(clusterstore.Options{Store: st, Model: model})
//	_ = cache.RegisterProvider(&WaveformProvider{model: model, store: st})
//	_ = cache.Generate(ctx, membersByCluster)
//	mean, _ := cache.Field(ctx, "mean", 5)
package clusterstore
