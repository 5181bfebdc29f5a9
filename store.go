package clusterstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/unkn0wn-root/clusterstore/backend"
	"github.com/unkn0wn-root/clusterstore/codec"
)

// Store routes named fields to a volatile memory tier or an optional
// persistent disk tier and presents a unified surface over both.
//
// Every field has exactly one location for the lifetime of the store.
// Whenever a disk tier is configured, both tiers must hold the same cluster
// id set at all times; Clusters fails with ErrStoreInconsistency when they
// diverge, and the divergence is never repaired silently.
type Store struct {
	memory *MemoryTier
	disk   *DiskTier
	routes map[string]Location

	log   Logger
	hooks Hooks
}

// StoreOptions configure a Store. All fields are optional: the zero value
// yields a memory-only store.
type StoreOptions struct {
	// Directory, when non-empty, configures a persistent tier backed by
	// local files under this root.
	Directory string

	// Backend configures the persistent tier explicitly (Redis, in-memory,
	// caching wrappers). Mutually exclusive with Directory.
	Backend backend.Backend

	// Codec serializes persistent field values. Defaults to msgpack.
	Codec codec.Codec[any]

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Directory != "" && opts.Backend != nil {
		return nil, fmt.Errorf("clusterstore: Directory and Backend are mutually exclusive")
	}

	s := &Store{
		memory: NewMemoryTier(),
		routes: make(map[string]Location),
	}
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	be := opts.Backend
	if opts.Directory != "" {
		local, err := backend.NewLocal(opts.Directory)
		if err != nil {
			return nil, err
		}
		be = local
	}
	if be != nil {
		disk, err := NewDiskTier(DiskTierOptions{Backend: be, Codec: opts.Codec})
		if err != nil {
			return nil, err
		}
		s.disk = disk
	}
	return s, nil
}

// Memory returns the volatile tier.
func (s *Store) Memory() *MemoryTier { return s.memory }

// Disk returns the persistent tier, or nil when none is configured.
func (s *Store) Disk() *DiskTier { return s.disk }

// maxFieldNameLen is the longest field name a container entry key can encode.
const maxFieldNameLen = 0xFFFF

func validFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidFieldName)
	}
	if len(name) > maxFieldNameLen {
		return fmt.Errorf("%w: %d bytes", ErrInvalidFieldName, len(name))
	}
	return nil
}

// RegisterField routes a field name to a tier. Registering a name again with
// the same location is a no-op; a different location fails with
// ErrFieldRebound, and a name that cannot be stored with ErrInvalidFieldName.
func (s *Store) RegisterField(name string, loc Location) error {
	if err := validFieldName(name); err != nil {
		return err
	}
	if !loc.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLocation, loc)
	}
	if prev, ok := s.routes[name]; ok && prev != loc {
		return fmt.Errorf("%w: %q is %q, requested %q", ErrFieldRebound, name, prev, loc)
	}
	s.routes[name] = loc
	return nil
}

// Location returns the tier a field is routed to.
func (s *Store) Location(name string) (Location, bool) {
	loc, ok := s.routes[name]
	return loc, ok
}

// Store splits fields by their routed tier and forwards each subset. Both
// tiers are always touched: storing to a cluster creates its record and its
// container even when one subset is empty, keeping the tiers' cluster sets
// identical.
//
// Fields with no routing entry are dropped, not stored: the per-tier filter
// only passes registered names. Drops are surfaced through Hooks.FieldDropped
// and a debug log line. Use StoreAt to register and store in one call.
func (s *Store) Store(ctx context.Context, id ClusterID, fields FieldMap) error {
	memFields := make(FieldMap)
	diskFields := make(FieldMap)
	for name, v := range fields {
		switch s.routes[name] {
		case Volatile:
			memFields[name] = v
		case Persistent:
			if s.disk == nil {
				s.drop(id, name)
				continue
			}
			diskFields[name] = v
		default:
			s.drop(id, name)
		}
	}

	s.memory.Store(id, memFields)
	if s.disk != nil {
		return s.disk.Store(ctx, id, diskFields)
	}
	return nil
}

// StoreAt registers every incoming field name to loc, then stores. Fails with
// ErrFieldRebound if a name is already routed elsewhere.
func (s *Store) StoreAt(ctx context.Context, id ClusterID, loc Location, fields FieldMap) error {
	for name := range fields {
		if err := s.RegisterField(name, loc); err != nil {
			return err
		}
	}
	return s.Store(ctx, id, fields)
}

func (s *Store) drop(id ClusterID, name string) {
	s.hooks.FieldDropped(id, name)
	s.log.Debug("dropping field with no usable routing", LogFields{"cluster": id, "field": name})
}

// Load returns every field stored for the cluster across both tiers. On the
// empty intersection of a healthy store the merge is disjoint; should a value
// somehow exist under the same name in both tiers, the persistent one wins.
func (s *Store) Load(ctx context.Context, id ClusterID) (FieldMap, error) {
	out := s.memory.Load(id)
	if s.disk == nil {
		return out, nil
	}
	diskFields, err := s.disk.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	for k, v := range diskFields {
		out[k] = v
	}
	return out, nil
}

// LoadField resolves the field's tier and loads from it. A field with no
// routing entry fails with ErrUnregisteredField; a missing cluster or value
// resolves to nil.
func (s *Store) LoadField(ctx context.Context, id ClusterID, name string) (any, error) {
	loc, ok := s.routes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregisteredField, name)
	}
	switch loc {
	case Volatile:
		return s.memory.LoadField(id, name), nil
	default:
		if s.disk == nil {
			return nil, fmt.Errorf("clusterstore: field %q routed to persistent tier but none is configured", name)
		}
		return s.disk.LoadField(ctx, id, name)
	}
}

// LoadFields loads the requested names from their routed tiers and merges the
// results. Registered-but-missing values come back nil; names with no routing
// entry are omitted from the result entirely, mirroring Store's filter.
func (s *Store) LoadFields(ctx context.Context, id ClusterID, names []string) (FieldMap, error) {
	var memNames, diskNames []string
	for _, name := range names {
		switch s.routes[name] {
		case Volatile:
			memNames = append(memNames, name)
		case Persistent:
			if s.disk != nil {
				diskNames = append(diskNames, name)
			}
		}
	}

	out := s.memory.LoadFields(id, memNames)
	if s.disk == nil || len(diskNames) == 0 {
		return out, nil
	}
	diskFields, err := s.disk.LoadFields(ctx, id, diskNames)
	if err != nil {
		return nil, err
	}
	for k, v := range diskFields {
		out[k] = v
	}
	return out, nil
}

// Clusters returns the cluster ids present in the store, sorted ascending.
// With a persistent tier configured the two tiers must agree exactly;
// otherwise an *InconsistencyError (matching ErrStoreInconsistency) is
// returned.
func (s *Store) Clusters(ctx context.Context) ([]ClusterID, error) {
	memIDs := s.memory.Clusters()
	if s.disk == nil {
		return memIDs, nil
	}
	diskIDs, err := s.disk.Clusters(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(memIDs, diskIDs) {
		s.hooks.TierMismatch(memIDs, diskIDs)
		s.log.Error("tier cluster sets diverged", LogFields{"volatile": memIDs, "persistent": diskIDs})
		return nil, &InconsistencyError{Volatile: memIDs, Persistent: diskIDs}
	}
	return memIDs, nil
}

// Delete removes all information about the given clusters from both tiers.
func (s *Store) Delete(ctx context.Context, ids []ClusterID) error {
	s.memory.Delete(ids)
	if s.disk != nil {
		return s.disk.Delete(ctx, ids)
	}
	return nil
}

// Clear removes every cluster from both tiers.
func (s *Store) Clear(ctx context.Context) error {
	s.memory.Clear()
	if s.disk != nil {
		return s.disk.Clear(ctx)
	}
	return nil
}

// Close releases the persistent tier's backend, if any.
func (s *Store) Close(ctx context.Context) error {
	if s.disk != nil {
		return s.disk.Close(ctx)
	}
	return nil
}
