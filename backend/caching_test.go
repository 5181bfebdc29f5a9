package backend

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/clusterstore/bytecache"
)

// countingCache is a transparent bytecache.Cache that counts hits and misses.
type countingCache struct {
	m      map[string][]byte
	hits   int
	misses int
}

var _ bytecache.Cache = (*countingCache)(nil)

func newCountingCache() *countingCache { return &countingCache{m: make(map[string][]byte)} }

func (c *countingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return b, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value []byte, _ int64) (bool, error) {
	c.m[key] = value
	return true, nil
}

func (c *countingCache) Del(_ context.Context, key string) error { delete(c.m, key); return nil }
func (c *countingCache) Close(context.Context) error             { return nil }

func storeField(t *testing.T, b Backend, name, key string, val []byte) {
	t.Helper()
	ctx := context.Background()
	c, err := b.Open(ctx, name, ModeAppend)
	if err != nil {
		t.Fatalf("Open %s: %v", name, err)
	}
	if err := c.Put(ctx, key, val); err != nil {
		t.Fatalf("Put %s/%s: %v", name, key, err)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close %s: %v", name, err)
	}
}

func readField(t *testing.T, b Backend, name, key string) []byte {
	t.Helper()
	ctx := context.Background()
	c, err := b.Open(ctx, name, ModeRead)
	if err != nil {
		t.Fatalf("Open read %s: %v", name, err)
	}
	defer c.Close(ctx)
	v, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get %s/%s: %v", name, key, err)
	}
	return v
}

func TestCachingConformance(t *testing.T) {
	c, err := NewCaching(NewMemory(), newCountingCache(), nil)
	if err != nil {
		t.Fatal(err)
	}
	runBackendConformance(t, c)
}

func TestCachingServesRepeatedReadsFromCache(t *testing.T) {
	inner := NewMemory()
	bc := newCountingCache()
	c, err := NewCaching(inner, bc, nil)
	if err != nil {
		t.Fatal(err)
	}

	storeField(t, c, "00001", "mean", []byte{1, 2})

	if got := readField(t, c, "00001", "mean"); !bytes.Equal(got, []byte{1, 2}) {
		t.Fatalf("first read: %v", got)
	}
	if got := readField(t, c, "00001", "mean"); !bytes.Equal(got, []byte{1, 2}) {
		t.Fatalf("second read: %v", got)
	}
	if bc.hits != 1 {
		t.Fatalf("expected exactly one cache hit, got %d (misses %d)", bc.hits, bc.misses)
	}
}

func TestCachingInvalidatesOnWrite(t *testing.T) {
	c, err := NewCaching(NewMemory(), newCountingCache(), nil)
	if err != nil {
		t.Fatal(err)
	}

	storeField(t, c, "00001", "mean", []byte{1})
	if got := readField(t, c, "00001", "mean"); !bytes.Equal(got, []byte{1}) {
		t.Fatalf("read before overwrite: %v", got)
	}

	storeField(t, c, "00001", "mean", []byte{2})
	if got := readField(t, c, "00001", "mean"); !bytes.Equal(got, []byte{2}) {
		t.Fatalf("read after overwrite: got %v, want [2]", got)
	}
}

func TestCachingInvalidatesOnRemove(t *testing.T) {
	ctx := context.Background()
	c, err := NewCaching(NewMemory(), newCountingCache(), nil)
	if err != nil {
		t.Fatal(err)
	}

	storeField(t, c, "00001", "mean", []byte{1})
	_ = readField(t, c, "00001", "mean") // warm the cache

	if err := c.Remove(ctx, "00001"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Open(ctx, "00001", ModeRead); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open after Remove: err=%v, want ErrNotFound", err)
	}
}

func TestNewCachingValidation(t *testing.T) {
	if _, err := NewCaching(nil, newCountingCache(), nil); err == nil {
		t.Fatal("expected error for nil inner backend")
	}
	if _, err := NewCaching(NewMemory(), nil, nil); err == nil {
		t.Fatal("expected error for nil byte cache")
	}
}
