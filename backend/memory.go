package backend

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a map-backed Backend for tests and ephemeral runs. It mirrors the
// commit-on-close semantics of Local: writes staged through a container only
// become visible when the container closes cleanly.
type Memory struct {
	mu         sync.RWMutex
	containers map[string]map[string][]byte
}

var _ Backend = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{containers: make(map[string]map[string][]byte)}
}

func (m *Memory) Open(_ context.Context, name string, mode Mode) (Container, error) {
	switch mode {
	case ModeRead, ModeAppend:
		m.mu.RLock()
		existing, ok := m.containers[name]
		m.mu.RUnlock()
		if !ok {
			if mode == ModeRead {
				return nil, ErrNotFound
			}
			return &memContainer{store: m, name: name, mode: mode, fields: map[string][]byte{}}, nil
		}
		fields := make(map[string][]byte, len(existing))
		for k, v := range existing {
			fields[k] = v
		}
		return &memContainer{store: m, name: name, mode: mode, fields: fields, existed: true}, nil
	case ModeCreate:
		return &memContainer{store: m, name: name, mode: mode, fields: map[string][]byte{}}, nil
	default:
		return nil, fmt.Errorf("clusterstore: invalid open mode %d", mode)
	}
}

func (m *Memory) Exists(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	_, ok := m.containers[name]
	m.mu.RUnlock()
	return ok, nil
}

func (m *Memory) List(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.containers))
	for name := range m.containers {
		names = append(names, name)
	}
	return names, nil
}

func (m *Memory) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.containers, name)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

type memContainer struct {
	store   *Memory
	name    string
	mode    Mode
	fields  map[string][]byte
	existed bool
	dirty   bool
	closed  bool
}

func (c *memContainer) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.fields[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (c *memContainer) Put(_ context.Context, key string, value []byte) error {
	if c.mode == ModeRead {
		return ErrReadOnly
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	c.fields[key] = cp
	c.dirty = true
	return nil
}

func (c *memContainer) Keys(context.Context) ([]string, error) {
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	return keys, nil
}

func (c *memContainer) Close(context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.mode == ModeRead || (!c.dirty && c.mode != ModeCreate && c.existed) {
		return nil
	}
	c.store.mu.Lock()
	c.store.containers[c.name] = c.fields
	c.store.mu.Unlock()
	return nil
}
