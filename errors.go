package clusterstore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLocation reports a location outside {Volatile, Persistent}.
	ErrInvalidLocation = errors.New("clusterstore: invalid location")

	// ErrInvalidFieldName reports a field name that cannot be stored: empty,
	// or longer than a container entry key can encode.
	ErrInvalidFieldName = errors.New("clusterstore: invalid field name")

	// ErrUnregisteredField reports a scalar load of a field with no routing
	// entry.
	ErrUnregisteredField = errors.New("clusterstore: unregistered field")

	// ErrFieldRebound reports an attempt to re-register a field to a
	// different location than the one it already has.
	ErrFieldRebound = errors.New("clusterstore: field already routed to a different location")

	// ErrStoreInconsistency reports that the two tiers disagree about which
	// clusters exist. This is fatal and never auto-repaired.
	ErrStoreInconsistency = errors.New("clusterstore: tier inconsistency")

	// ErrDuplicateAccessor reports a provider field name colliding with an
	// accessor already installed on the cache.
	ErrDuplicateAccessor = errors.New("clusterstore: duplicate accessor")

	// ErrUnsupportedChange reports a Change with an unknown Kind.
	ErrUnsupportedChange = errors.New("clusterstore: unsupported clustering change")

	// ErrMemberNotFound reports a requested member observation index absent
	// from the membership of the given clusters.
	ErrMemberNotFound = errors.New("clusterstore: member not found")

	// ErrUnknownCluster reports a requested cluster id not present in the
	// store.
	ErrUnknownCluster = errors.New("clusterstore: unknown cluster")
)

// InconsistencyError carries both tiers' cluster id sets when they diverge.
// It matches ErrStoreInconsistency under errors.Is.
type InconsistencyError struct {
	Volatile   []ClusterID
	Persistent []ClusterID
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("clusterstore: tier inconsistency: volatile has %d clusters %v, persistent has %d clusters %v",
		len(e.Volatile), e.Volatile, len(e.Persistent), e.Persistent)
}

func (e *InconsistencyError) Is(target error) bool {
	return target == ErrStoreInconsistency
}
