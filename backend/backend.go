// Package backend defines the keyed-container storage abstraction behind the
// persistent tier. Each cluster owns one container, addressed by a
// deterministic name, holding field-name -> payload pairs.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the []byte previously passed to Put for the same name/key. Containers are
// exact storage; backends must never evict or expire entries on their own.
package backend

import (
	"context"
	"errors"
)

// Mode selects how a container is opened.
type Mode int

const (
	// ModeRead opens an existing container for queries only.
	ModeRead Mode = iota + 1
	// ModeAppend opens a container for read/write, creating it if absent.
	// Existing entries are preserved; Put overwrites per key.
	ModeAppend
	// ModeCreate opens a fresh container for writing, discarding any
	// previous contents under the same name.
	ModeCreate
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeAppend:
		return "append"
	case ModeCreate:
		return "create"
	default:
		return "invalid"
	}
}

var (
	// ErrNotFound is returned when a container or a key inside one is absent.
	ErrNotFound = errors.New("clusterstore: not found")
	// ErrReadOnly is returned by Put on a container opened with ModeRead.
	ErrReadOnly = errors.New("clusterstore: container opened read-only")
)

// Backend manages keyed binary containers. Writes performed through a
// container become visible to subsequent opens once the container is closed.
type Backend interface {
	// Open opens the named container in the given mode.
	// ModeRead on an absent container returns ErrNotFound.
	Open(ctx context.Context, name string, mode Mode) (Container, error)

	// Exists reports whether the named container exists.
	Exists(ctx context.Context, name string) (bool, error)

	// List returns the names of all containers, in no particular order.
	List(ctx context.Context) ([]string, error)

	// Remove deletes the named container. Removing an absent container is a
	// no-op.
	Remove(ctx context.Context, name string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// Container is an open handle on one cluster's keyed storage. Handles are
// scoped to a single synchronous operation: open, use, close.
type Container interface {
	// Get returns the payload stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the payload under key, overwriting any previous value.
	// Fails with ErrReadOnly on containers opened with ModeRead.
	Put(ctx context.Context, key string, value []byte) error

	// Keys enumerates the field names stored in the container.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the handle. For writable modes this commits the writes;
	// a Close error means the container contents are unchanged on storage.
	Close(ctx context.Context) error
}
