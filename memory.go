package clusterstore

import "slices"

// MemoryTier stores per-cluster field maps in process memory. It never fails:
// loads of absent clusters or fields resolve to empty maps or nil values.
type MemoryTier struct {
	recs map[ClusterID]FieldMap
}

func NewMemoryTier() *MemoryTier {
	return &MemoryTier{recs: make(map[ClusterID]FieldMap)}
}

// Store merges fields into the cluster's record, creating the record if
// absent. Storing an empty map still creates the record, so the cluster
// counts as present afterwards.
func (t *MemoryTier) Store(id ClusterID, fields FieldMap) {
	rec, ok := t.recs[id]
	if !ok {
		rec = make(FieldMap, len(fields))
		t.recs[id] = rec
	}
	for k, v := range fields {
		rec[k] = v
	}
}

// Load returns a copy of the cluster's record, or an empty map if the
// cluster is absent.
func (t *MemoryTier) Load(id ClusterID) FieldMap {
	rec := t.recs[id]
	out := make(FieldMap, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// LoadField returns the value stored for one field, or nil if the cluster or
// the field is absent.
func (t *MemoryTier) LoadField(id ClusterID, name string) any {
	return t.recs[id][name]
}

// LoadFields returns a map over the requested names, each defaulting to nil
// when missing.
func (t *MemoryTier) LoadFields(id ClusterID, names []string) FieldMap {
	rec := t.recs[id]
	out := make(FieldMap, len(names))
	for _, name := range names {
		out[name] = rec[name]
	}
	return out
}

// Clusters returns the sorted list of cluster ids present in the tier.
func (t *MemoryTier) Clusters() []ClusterID {
	ids := make([]ClusterID, 0, len(t.recs))
	for id := range t.recs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Delete removes the records for the given ids; absent ids are no-ops.
func (t *MemoryTier) Delete(ids []ClusterID) {
	for _, id := range ids {
		delete(t.recs, id)
	}
}

// Clear removes all records.
func (t *MemoryTier) Clear() {
	t.recs = make(map[ClusterID]FieldMap)
}
