package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unkn0wn-root/clusterstore/internal/wire"
)

const fileExt = ".kc"

// Local stores each container as a single framed file under a root directory.
// Writes are committed atomically on Close via a temp file and rename, so a
// crash mid-write never leaves a half-written container behind.
type Local struct {
	root string
}

var _ Backend = (*Local)(nil)

// NewLocal creates a Local backend rooted at dir, creating the directory if
// needed and resolving it to its canonical real path.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("clusterstore: backend directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("clusterstore: create backend directory: %w", err)
	}
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("clusterstore: resolve backend directory: %w", err)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("clusterstore: resolve backend directory: %w", err)
	}
	return &Local{root: root}, nil
}

// Root returns the canonical directory the backend writes to.
func (l *Local) Root() string { return l.root }

func (l *Local) path(name string) string {
	return filepath.Join(l.root, name+fileExt)
}

func (l *Local) Open(_ context.Context, name string, mode Mode) (Container, error) {
	c := &localContainer{path: l.path(name), mode: mode}

	switch mode {
	case ModeCreate:
		c.fields = make(map[string][]byte)
		return c, nil
	case ModeRead, ModeAppend:
		raw, err := os.ReadFile(c.path)
		if os.IsNotExist(err) {
			if mode == ModeRead {
				return nil, ErrNotFound
			}
			c.fields = make(map[string][]byte)
			return c, nil
		}
		if err != nil {
			return nil, err
		}
		fields, err := wire.DecodeContainer(raw)
		if err != nil {
			return nil, fmt.Errorf("container %q: %w", name, err)
		}
		c.fields = fields
		c.existed = true
		return c, nil
	default:
		return nil, fmt.Errorf("clusterstore: invalid open mode %d", mode)
	}
}

func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(l.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Local) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	return names, nil
}

func (l *Local) Remove(_ context.Context, name string) error {
	err := os.Remove(l.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (l *Local) Close(context.Context) error { return nil }

type localContainer struct {
	path    string
	mode    Mode
	fields  map[string][]byte
	existed bool
	dirty   bool
	closed  bool
}

func (c *localContainer) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.fields[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (c *localContainer) Put(_ context.Context, key string, value []byte) error {
	if c.mode == ModeRead {
		return ErrReadOnly
	}
	// The container framing encodes key lengths as u16 and rejects empty
	// keys, so refuse them here instead of failing at commit.
	if key == "" || len(key) > 0xFFFF {
		return fmt.Errorf("clusterstore: invalid container key length %d", len(key))
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	c.fields[key] = cp
	c.dirty = true
	return nil
}

func (c *localContainer) Keys(context.Context) ([]string, error) {
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	return keys, nil
}

// Close commits pending writes atomically. Writable opens materialize the
// container even when no fields were put: ModeCreate always writes, and
// ModeAppend writes when the container did not exist before. Storing an
// empty field set must still bring a cluster's container into existence, or
// the two tiers' cluster sets would drift apart.
func (c *localContainer) Close(context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.mode == ModeRead || (!c.dirty && c.mode != ModeCreate && c.existed) {
		return nil
	}

	img := wire.EncodeContainer(c.fields)
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".tmp-container-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(img); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
