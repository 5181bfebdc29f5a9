package clusterstore

// ClusterID identifies one cluster. Ids are non-negative and unique across
// both tiers at any instant.
type ClusterID int

// FieldMap holds named field values for one cluster.
type FieldMap map[string]any

// Location names the tier a field is routed to. A field keeps its location
// for the lifetime of the store.
type Location string

const (
	// Volatile routes a field to the in-process memory tier.
	Volatile Location = "volatile"
	// Persistent routes a field to the durable disk tier.
	Persistent Location = "persistent"
)

func (l Location) valid() bool {
	return l == Volatile || l == Persistent
}

// Field pairs a field name with its storage location. Providers declare the
// fields they own as a list of these.
type Field struct {
	Name     string
	Location Location
}
