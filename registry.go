package clusterstore

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// Cache is the registry over a Store: it owns the membership map, the
// registered field providers and the per-field accessor table, and it
// propagates clustering changes so cached values stay valid without a full
// recompute.
type Cache struct {
	store     *Store
	model     any
	members   map[ClusterID][]int
	providers []FieldProvider
	accessors map[string]Accessor

	log   Logger
	hooks Hooks
}

func newCache(opts Options) (*Cache, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("clusterstore: store is required")
	}
	c := &Cache{
		store:     opts.Store,
		model:     opts.Model,
		members:   make(map[ClusterID][]int),
		accessors: make(map[string]Accessor),
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	return c, nil
}

// Store returns the underlying dispatching store.
func (c *Cache) Store() *Store { return c.store }

// Close releases the underlying store.
func (c *Cache) Close(ctx context.Context) error { return c.store.Close(ctx) }

// RegisterProvider registers every field the provider declares with the
// store and installs a load accessor for it. Fails with ErrDuplicateAccessor
// when a field name collides with an already-installed accessor, and with
// the store's routing errors on invalid or rebound locations. A failed
// registration installs nothing: the whole field list is validated before
// any route or accessor is touched.
func (c *Cache) RegisterProvider(p FieldProvider) error {
	fields := p.Fields()
	if len(fields) == 0 {
		return fmt.Errorf("clusterstore: provider %q declares no fields", p.Name())
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if err := validFieldName(f.Name); err != nil {
			return err
		}
		if !f.Location.valid() {
			return fmt.Errorf("%w: %q", ErrInvalidLocation, f.Location)
		}
		if prev, ok := c.store.Location(f.Name); ok && prev != f.Location {
			return fmt.Errorf("%w: %q is %q, requested %q", ErrFieldRebound, f.Name, prev, f.Location)
		}
		if _, ok := c.accessors[f.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateAccessor, f.Name)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateAccessor, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	for _, f := range fields {
		if err := c.store.RegisterField(f.Name, f.Location); err != nil {
			return err
		}
		name := f.Name // captured by value per accessor
		c.accessors[name] = func(ctx context.Context, id ClusterID) (any, error) {
			return c.store.LoadField(ctx, id, name)
		}
	}

	c.providers = append(c.providers, p)
	c.log.Debug("registered provider", LogFields{"provider": p.Name(), "fields": len(fields)})
	return nil
}

// Accessor returns the load accessor installed for a field.
func (c *Cache) Accessor(name string) (Accessor, bool) {
	a, ok := c.accessors[name]
	return a, ok
}

// Field loads one registered field's value for a cluster through its
// accessor. Unknown names fail with ErrUnregisteredField.
func (c *Cache) Field(ctx context.Context, name string, id ClusterID) (any, error) {
	a, ok := c.accessors[name]
	if !ok {
		return nil, fmt.Errorf("%w: no accessor for %q", ErrUnregisteredField, name)
	}
	return a(ctx, id)
}

// Members returns a copy of the member observation indices of one cluster.
func (c *Cache) Members(id ClusterID) []int {
	return slices.Clone(c.members[id])
}

// MembersByCluster returns a copy of the full membership map. The index
// slices are shared; treat them as read-only.
func (c *Cache) MembersByCluster() map[ClusterID][]int {
	out := make(map[ClusterID][]int, len(c.members))
	for id, m := range c.members {
		out[id] = m
	}
	return out
}

// Load concatenates the rows of one field across the given clusters in
// ascending id order and returns the rows matching the requested member
// observation indices, in the order members are given.
//
// Every requested cluster must be present in the store (ErrUnknownCluster)
// and every requested member index must appear in the concatenated
// membership of those clusters (ErrMemberNotFound). The field's per-cluster
// values must be slices with one row per member, in membership order.
func (c *Cache) Load(ctx context.Context, field string, clusters []ClusterID, members []int) ([]any, error) {
	known, err := c.store.Clusters(ctx)
	if err != nil {
		return nil, err
	}
	ids := slices.Clone(clusters)
	slices.Sort(ids)
	for _, id := range ids {
		if !slices.Contains(known, id) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCluster, id)
		}
	}

	var (
		rows   []any
		concat []int
	)
	for _, id := range ids {
		v, err := c.store.LoadField(ctx, id, field)
		if err != nil {
			return nil, err
		}
		rs, err := rowsOf(field, id, v)
		if err != nil {
			return nil, err
		}
		membership := c.members[id]
		if len(rs) != len(membership) {
			return nil, fmt.Errorf("clusterstore: field %q of cluster %d has %d rows for %d members",
				field, id, len(rs), len(membership))
		}
		rows = append(rows, rs...)
		concat = append(concat, membership...)
	}

	pos := make(map[int]int, len(concat))
	for i, m := range concat {
		if _, ok := pos[m]; !ok {
			pos[m] = i
		}
	}

	out := make([]any, len(members))
	for i, m := range members {
		p, ok := pos[m]
		if !ok {
			return nil, fmt.Errorf("%w: member %d not in clusters %v", ErrMemberNotFound, m, clusters)
		}
		out[i] = rows[p]
	}
	return out, nil
}

// LoadAs is Load with the row type asserted to E.
func LoadAs[E any](ctx context.Context, c *Cache, field string, clusters []ClusterID, members []int) ([]E, error) {
	rows, err := c.Load(ctx, field, clusters, members)
	if err != nil {
		return nil, err
	}
	out := make([]E, len(rows))
	for i, r := range rows {
		e, ok := r.(E)
		if !ok {
			return nil, fmt.Errorf("clusterstore: field %q row %d is %T, not %T", field, i, r, out[i])
		}
		out[i] = e
	}
	return out, nil
}

// rowsOf turns one cluster's field value into its per-member rows. Values
// must be slices or arrays; anything else (including nil from a missing
// value) is a shape error.
func rowsOf(field string, id ClusterID, v any) ([]any, error) {
	if v == nil {
		return nil, fmt.Errorf("clusterstore: no value stored for field %q of cluster %d", field, id)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("clusterstore: field %q of cluster %d is not row-shaped (%T)", field, id, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// Update applies one clustering change: deleted clusters are purged from the
// store first so their stale values can never resurface, then the change is
// dispatched to every provider. Unknown kinds fail with ErrUnsupportedChange.
//
// A failing provider aborts the remaining sequence; providers are expected
// to be idempotent per call, so the update can simply be retried.
func (c *Cache) Update(ctx context.Context, ch Change) error {
	if err := c.store.Delete(ctx, ch.Deleted); err != nil {
		return err
	}
	switch ch.Kind {
	case ChangeMerge:
		return c.Merge(ctx, ch)
	case ChangeAssign:
		return c.Assign(ctx, ch)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedChange, ch.Kind)
	}
}

// Merge propagates a merge change to every provider in registration order.
// Providers without a Merge specialization fall back to the assign path.
func (c *Cache) Merge(ctx context.Context, ch Change) error {
	for _, p := range c.providers {
		if m, ok := p.(Merger); ok {
			if err := m.Merge(ctx, ch); err != nil {
				return fmt.Errorf("provider %q: merge: %w", p.Name(), err)
			}
			continue
		}
		if err := c.assignOne(ctx, p, ch); err != nil {
			return err
		}
	}
	return nil
}

// Assign propagates a reassignment change to every provider in registration
// order.
func (c *Cache) Assign(ctx context.Context, ch Change) error {
	for _, p := range c.providers {
		if err := c.assignOne(ctx, p, ch); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) assignOne(ctx context.Context, p FieldProvider, ch Change) error {
	if a, ok := p.(Assigner); ok {
		if err := a.Assign(ctx, ch); err != nil {
			return fmt.Errorf("provider %q: assign: %w", p.Name(), err)
		}
		return nil
	}
	added := slices.Clone(ch.Added)
	slices.Sort(added)
	for _, id := range added {
		if err := p.ComputeAndStore(ctx, id, ch.NewMembers[id]); err != nil {
			return fmt.Errorf("provider %q: compute cluster %d: %w", p.Name(), id, err)
		}
	}
	return nil
}

// Generate rebuilds the whole cache: the membership map is replaced
// wholesale and every provider recomputes every cluster from raw model data,
// in ascending cluster order. Nothing short-circuits on already-cached
// values: Generate is a rebuild, not an incremental refresh.
func (c *Cache) Generate(ctx context.Context, membersByCluster map[ClusterID][]int) error {
	clusters := make([]ClusterID, 0, len(membersByCluster))
	members := make(map[ClusterID][]int, len(membersByCluster))
	for id, m := range membersByCluster {
		clusters = append(clusters, id)
		members[id] = m
	}
	slices.Sort(clusters)
	c.members = members

	label := "the current model"
	if n, ok := c.model.(interface{ Name() string }); ok {
		label = n.Name()
	}
	c.log.Info("generating the cluster store", LogFields{
		"model":     label,
		"clusters":  len(clusters),
		"providers": len(c.providers),
	})

	for _, p := range c.providers {
		for _, id := range clusters {
			c.log.Debug("computing cluster", LogFields{"provider": p.Name(), "cluster": id})
			if err := p.ComputeAndStore(ctx, id, members[id]); err != nil {
				return fmt.Errorf("provider %q: compute cluster %d: %w", p.Name(), id, err)
			}
		}
	}

	c.log.Info("cluster store generated", LogFields{"model": label})
	return nil
}
