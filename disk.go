package clusterstore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/unkn0wn-root/clusterstore/backend"
	"github.com/unkn0wn-root/clusterstore/codec"
	"github.com/unkn0wn-root/clusterstore/internal/util"
)

// DiskTier stores per-cluster field maps durably: one keyed binary container
// per cluster on a pluggable backend, field values serialized through a
// codec. Container handles are scoped to a single call; nothing stays open
// between operations.
//
// Backend I/O failures propagate to the caller unchanged. Missing clusters or
// fields are not errors and resolve to empty maps or nil values.
type DiskTier struct {
	backend backend.Backend
	codec   codec.Codec[any]
}

// DiskTierOptions configure a DiskTier. Backend is required; Codec defaults
// to msgpack.
type DiskTierOptions struct {
	Backend backend.Backend
	Codec   codec.Codec[any]
}

func NewDiskTier(opts DiskTierOptions) (*DiskTier, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("clusterstore: disk tier backend is required")
	}
	t := &DiskTier{backend: opts.Backend}
	if opts.Codec != nil {
		t.codec = opts.Codec
	} else {
		t.codec = codec.Msgpack[any]{}
	}
	return t, nil
}

// Store opens (or creates) the cluster's container in append mode and writes
// each field's value. Storing an empty map still materializes the container.
func (t *DiskTier) Store(ctx context.Context, id ClusterID, fields FieldMap) error {
	c, err := t.backend.Open(ctx, util.ContainerName(int(id)), backend.ModeAppend)
	if err != nil {
		return err
	}
	for name, v := range fields {
		b, err := t.codec.Encode(v)
		if err != nil {
			c.Close(ctx)
			return fmt.Errorf("encode field %q of cluster %d: %w", name, id, err)
		}
		if err := c.Put(ctx, name, b); err != nil {
			c.Close(ctx)
			return err
		}
	}
	return c.Close(ctx)
}

// Load returns all fields stored for the cluster, or an empty map if the
// cluster has no container.
func (t *DiskTier) Load(ctx context.Context, id ClusterID) (FieldMap, error) {
	c, err := t.open(ctx, id)
	if err != nil || c == nil {
		return FieldMap{}, err
	}
	defer c.Close(ctx)

	keys, err := c.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(FieldMap, len(keys))
	for _, key := range keys {
		v, err := t.get(ctx, c, id, key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// LoadField returns the value stored for one field, or nil if the cluster or
// the field is absent.
func (t *DiskTier) LoadField(ctx context.Context, id ClusterID, name string) (any, error) {
	c, err := t.open(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}
	defer c.Close(ctx)
	return t.get(ctx, c, id, name)
}

// LoadFields returns a map over the requested names, each defaulting to nil
// when the cluster or the field is missing.
func (t *DiskTier) LoadFields(ctx context.Context, id ClusterID, names []string) (FieldMap, error) {
	out := make(FieldMap, len(names))
	c, err := t.open(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		for _, name := range names {
			out[name] = nil
		}
		return out, nil
	}
	defer c.Close(ctx)

	for _, name := range names {
		v, err := t.get(ctx, c, id, name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// open returns a read handle on the cluster's container, or (nil, nil) when
// the container does not exist.
func (t *DiskTier) open(ctx context.Context, id ClusterID) (backend.Container, error) {
	c, err := t.backend.Open(ctx, util.ContainerName(int(id)), backend.ModeRead)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (t *DiskTier) get(ctx context.Context, c backend.Container, id ClusterID, key string) (any, error) {
	b, err := c.Get(ctx, key)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v, err := t.codec.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode field %q of cluster %d: %w", key, id, err)
	}
	return v, nil
}

// Clusters returns the sorted cluster ids present on the backend, decoded
// from container names. Foreign names are skipped.
func (t *DiskTier) Clusters(ctx context.Context) ([]ClusterID, error) {
	names, err := t.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]ClusterID, 0, len(names))
	for _, name := range names {
		id, err := util.ParseContainerName(name)
		if err != nil {
			continue
		}
		ids = append(ids, ClusterID(id))
	}
	slices.Sort(ids)
	return ids, nil
}

// Delete removes the containers for the given ids; absent ids are no-ops.
func (t *DiskTier) Delete(ctx context.Context, ids []ClusterID) error {
	for _, id := range ids {
		if err := t.backend.Remove(ctx, util.ContainerName(int(id))); err != nil {
			return err
		}
	}
	return nil
}

// Clear deletes every container the tier knows about.
func (t *DiskTier) Clear(ctx context.Context) error {
	ids, err := t.Clusters(ctx)
	if err != nil {
		return err
	}
	return t.Delete(ctx, ids)
}

// Close releases the backend.
func (t *DiskTier) Close(ctx context.Context) error {
	return t.backend.Close(ctx)
}
