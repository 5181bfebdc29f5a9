package backend

import (
	"context"
	"fmt"
	"strconv"

	"github.com/unkn0wn-root/clusterstore/bytecache"
	"github.com/unkn0wn-root/clusterstore/genstore"
)

// Caching wraps a Backend and serves repeated reads of container entries from
// a byte cache. Every container carries a generation: writes and removals
// bump it, and cached bytes are keyed by the generation observed at read
// time, so a read can never return bytes from before the latest write.
//
// The byte cache may evict freely; the inner backend stays authoritative and
// a miss simply falls through. This keeps the exact-storage contract of the
// Backend interface intact.
//
// Caching owns its collaborators: Close closes the inner backend, the byte
// cache and the generation store.
type Caching struct {
	inner Backend
	bytes bytecache.Cache
	gens  genstore.GenStore
}

var _ Backend = (*Caching)(nil)

// NewCaching wraps inner with a read cache. gens may be nil, in which case an
// in-process generation store is used (correct for a single process; use
// genstore.RedisGenStore when several processes write the same backend).
func NewCaching(inner Backend, bytes bytecache.Cache, gens genstore.GenStore) (*Caching, error) {
	if inner == nil {
		return nil, fmt.Errorf("clusterstore: inner backend is required")
	}
	if bytes == nil {
		return nil, fmt.Errorf("clusterstore: byte cache is required")
	}
	if gens == nil {
		gens = genstore.NewLocalGenStore(0, 0)
	}
	return &Caching{inner: inner, bytes: bytes, gens: gens}, nil
}

func (c *Caching) Open(ctx context.Context, name string, mode Mode) (Container, error) {
	if mode == ModeRead {
		// Verify existence up front so ModeRead keeps its ErrNotFound
		// contract without opening the inner container yet.
		ok, err := c.inner.Exists(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotFound
		}
		gen, err := c.gens.Snapshot(ctx, name)
		if err != nil {
			return nil, err
		}
		return &cachingContainer{parent: c, name: name, gen: gen}, nil
	}

	// Writable opens pass through; the generation is bumped on commit.
	inner, err := c.inner.Open(ctx, name, mode)
	if err != nil {
		return nil, err
	}
	// ModeCreate discards previous contents even without a single Put, so it
	// always invalidates.
	return &writeThroughContainer{Container: inner, parent: c, name: name, wrote: mode == ModeCreate}, nil
}

func (c *Caching) Exists(ctx context.Context, name string) (bool, error) {
	return c.inner.Exists(ctx, name)
}

func (c *Caching) List(ctx context.Context) ([]string, error) {
	return c.inner.List(ctx)
}

func (c *Caching) Remove(ctx context.Context, name string) error {
	if err := c.inner.Remove(ctx, name); err != nil {
		return err
	}
	_, err := c.gens.Bump(ctx, name)
	return err
}

func (c *Caching) Close(ctx context.Context) error {
	err := c.inner.Close(ctx)
	if cerr := c.bytes.Close(ctx); err == nil {
		err = cerr
	}
	if gerr := c.gens.Close(ctx); err == nil {
		err = gerr
	}
	return err
}

func (c *Caching) cacheKey(name string, gen uint64, key string) string {
	return name + "@" + strconv.FormatUint(gen, 10) + "/" + key
}

// cachingContainer opens the inner container lazily: a fully cached read
// never touches the backend at all.
type cachingContainer struct {
	parent *Caching
	name   string
	gen    uint64
	inner  Container
}

func (cc *cachingContainer) open(ctx context.Context) (Container, error) {
	if cc.inner != nil {
		return cc.inner, nil
	}
	inner, err := cc.parent.inner.Open(ctx, cc.name, ModeRead)
	if err != nil {
		return nil, err
	}
	cc.inner = inner
	return inner, nil
}

func (cc *cachingContainer) Get(ctx context.Context, key string) ([]byte, error) {
	ck := cc.parent.cacheKey(cc.name, cc.gen, key)
	if b, ok, err := cc.parent.bytes.Get(ctx, ck); err == nil && ok {
		return b, nil
	}

	inner, err := cc.open(ctx)
	if err != nil {
		return nil, err
	}
	b, err := inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	_, _ = cc.parent.bytes.Set(ctx, ck, cp, int64(len(cp)))
	return b, nil
}

func (cc *cachingContainer) Put(context.Context, string, []byte) error {
	return ErrReadOnly
}

func (cc *cachingContainer) Keys(ctx context.Context) ([]string, error) {
	inner, err := cc.open(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Keys(ctx)
}

func (cc *cachingContainer) Close(ctx context.Context) error {
	if cc.inner == nil {
		return nil
	}
	return cc.inner.Close(ctx)
}

// writeThroughContainer commits via the inner container, then bumps the
// generation so cached reads from before the write go stale.
type writeThroughContainer struct {
	Container
	parent *Caching
	name   string
	wrote  bool
}

func (wc *writeThroughContainer) Put(ctx context.Context, key string, value []byte) error {
	if err := wc.Container.Put(ctx, key, value); err != nil {
		return err
	}
	wc.wrote = true
	return nil
}

func (wc *writeThroughContainer) Close(ctx context.Context) error {
	if err := wc.Container.Close(ctx); err != nil {
		return err
	}
	if !wc.wrote {
		return nil
	}
	_, err := wc.parent.gens.Bump(ctx, wc.name)
	return err
}
