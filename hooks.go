package clusterstore

// Hooks are lightweight callbacks for high-signal events. Implementations
// MUST be cheap and non-blocking; the store calls them on hot paths.
type Hooks interface {
	// FieldDropped: a value passed to Store had no routing entry, or was
	// routed to a persistent tier that is not configured, and was discarded.
	FieldDropped(cluster ClusterID, field string)

	// TierMismatch: the two tiers disagreed about which clusters exist.
	// Always followed by an ErrStoreInconsistency returned to the caller.
	TierMismatch(volatile, persistent []ClusterID)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) FieldDropped(ClusterID, string)        {}
func (NopHooks) TierMismatch([]ClusterID, []ClusterID) {}
