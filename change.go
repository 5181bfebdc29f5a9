package clusterstore

// ChangeKind names the clustering operation a Change describes.
type ChangeKind string

const (
	// ChangeMerge merges several clusters into a new one.
	ChangeMerge ChangeKind = "merge"
	// ChangeAssign reassigns member observations between clusters.
	ChangeAssign ChangeKind = "assign"
)

// Change describes one clustering update: clusters that stopped existing,
// clusters that came into existence, and the membership of the new ones.
// Deleted clusters are purged from the store before providers see the change,
// so provider code never needs to clean up after them.
type Change struct {
	Kind ChangeKind

	// Deleted are the cluster ids invalidated by the change.
	Deleted []ClusterID

	// Added are the newly valid cluster ids.
	Added []ClusterID

	// NewMembers maps each added cluster to its ordered member observation
	// indices.
	NewMembers map[ClusterID][]int
}
