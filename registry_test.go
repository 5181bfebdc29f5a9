package clusterstore

import (
	"context"
	"errors"
	"slices"
	"testing"
)

// featProvider owns one volatile field holding a row per member, each row
// equal to the member's observation index. That makes row identity trivially
// checkable after loads and reorderings.
type featProvider struct {
	store *Store
	calls map[ClusterID]int
}

func newFeatProvider(s *Store) *featProvider {
	return &featProvider{store: s, calls: make(map[ClusterID]int)}
}

func (p *featProvider) Name() string    { return "features" }
func (p *featProvider) Fields() []Field { return []Field{{Name: "feat", Location: Volatile}} }

func (p *featProvider) ComputeAndStore(ctx context.Context, id ClusterID, members []int) error {
	p.calls[id]++
	rows := make([]any, len(members))
	for i, m := range members {
		rows[i] = float64(m)
	}
	return p.store.Store(ctx, id, FieldMap{"feat": rows})
}

type assigningProvider struct {
	*featProvider
	assigned []Change
}

func (p *assigningProvider) Assign(_ context.Context, ch Change) error {
	p.assigned = append(p.assigned, ch)
	return nil
}

type mergingProvider struct {
	*featProvider
	merged []Change
}

func (p *mergingProvider) Merge(_ context.Context, ch Change) error {
	p.merged = append(p.merged, ch)
	return nil
}

type testModel struct{}

func (testModel) Name() string { return "session-01" }

func newTestCache(t *testing.T) (*Cache, *featProvider) {
	t.Helper()
	s, err := NewStore(StoreOptions{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	c, err := New(Options{Store: s, Model: testModel{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := newFeatProvider(s)
	if err := c.RegisterProvider(p); err != nil {
		t.Fatalf("RegisterProvider: %v", err)
	}
	return c, p
}

func mustGenerate(t *testing.T, c *Cache, members map[ClusterID][]int) {
	t.Helper()
	if err := c.Generate(context.Background(), members); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("New without store: want error")
	}
}

func TestRegisterProviderInstallsAccessors(t *testing.T) {
	c, _ := newTestCache(t)

	if _, ok := c.Accessor("feat"); !ok {
		t.Fatal("no accessor installed for feat")
	}
	if _, ok := c.Accessor("nope"); ok {
		t.Fatal("accessor for unregistered field")
	}
	if _, err := c.Field(context.Background(), "nope", 1); !errors.Is(err, ErrUnregisteredField) {
		t.Fatalf("Field(nope) err = %v, want ErrUnregisteredField", err)
	}
}

func TestRegisterProviderRejectsDuplicates(t *testing.T) {
	c, p := newTestCache(t)

	err := c.RegisterProvider(newFeatProvider(p.store))
	if !errors.Is(err, ErrDuplicateAccessor) {
		t.Fatalf("duplicate provider err = %v, want ErrDuplicateAccessor", err)
	}
}

type emptyProvider struct{}

func (emptyProvider) Name() string    { return "empty" }
func (emptyProvider) Fields() []Field { return nil }
func (emptyProvider) ComputeAndStore(context.Context, ClusterID, []int) error {
	return nil
}

func TestRegisterProviderRejectsNoFields(t *testing.T) {
	c, _ := newTestCache(t)
	if err := c.RegisterProvider(emptyProvider{}); err == nil {
		t.Fatal("provider with no fields: want error")
	}
}

type multiProvider struct {
	fields []Field
}

func (p *multiProvider) Name() string    { return "multi" }
func (p *multiProvider) Fields() []Field { return p.fields }
func (p *multiProvider) ComputeAndStore(context.Context, ClusterID, []int) error {
	return nil
}

// A provider whose field list fails validation partway through must leave no
// routes or accessors behind for the fields listed before the bad one.
func TestRegisterProviderLeavesNoPartialState(t *testing.T) {
	cases := map[string]struct {
		fields []Field
		want   error
	}{
		"rebound location": {
			fields: []Field{{Name: "extra", Location: Volatile}, {Name: "feat", Location: Persistent}},
			want:   ErrFieldRebound,
		},
		"duplicate accessor": {
			fields: []Field{{Name: "extra", Location: Volatile}, {Name: "feat", Location: Volatile}},
			want:   ErrDuplicateAccessor,
		},
		"duplicate within provider": {
			fields: []Field{{Name: "extra", Location: Volatile}, {Name: "extra", Location: Volatile}},
			want:   ErrDuplicateAccessor,
		},
		"invalid name": {
			fields: []Field{{Name: "extra", Location: Volatile}, {Name: "", Location: Volatile}},
			want:   ErrInvalidFieldName,
		},
		"invalid location": {
			fields: []Field{{Name: "extra", Location: Volatile}, {Name: "other", Location: Location("tape")}},
			want:   ErrInvalidLocation,
		},
	}
	for name, tc := range cases {
		c, _ := newTestCache(t) // has "feat" registered as Volatile

		err := c.RegisterProvider(&multiProvider{fields: tc.fields})
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", name, err, tc.want)
		}
		if _, ok := c.Accessor("extra"); ok {
			t.Fatalf("%s: accessor installed for field of a failed provider", name)
		}
		if _, ok := c.Store().Location("extra"); ok {
			t.Fatalf("%s: route installed for field of a failed provider", name)
		}
	}
}

func TestGenerateComputesEveryCluster(t *testing.T) {
	ctx := context.Background()
	c, p := newTestCache(t)

	members := map[ClusterID][]int{
		2: {10, 11},
		5: {12},
		3: {13, 14, 15},
	}
	mustGenerate(t, c, members)

	for id := range members {
		if p.calls[id] != 1 {
			t.Fatalf("cluster %d computed %d times, want 1", id, p.calls[id])
		}
	}
	ids, err := c.Store().Clusters(ctx)
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if !slices.Equal(ids, []ClusterID{2, 3, 5}) {
		t.Fatalf("Clusters = %v, want [2 3 5]", ids)
	}

	v, err := c.Field(ctx, "feat", 5)
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	rows, ok := v.([]any)
	if !ok || len(rows) != 1 || rows[0] != 12.0 {
		t.Fatalf("feat of 5 = %v (%T)", v, v)
	}

	got := c.Members(3)
	if !slices.Equal(got, []int{13, 14, 15}) {
		t.Fatalf("Members(3) = %v", got)
	}
	got[0] = 99
	if c.Members(3)[0] != 13 {
		t.Fatal("mutating Members result leaked into the cache")
	}
}

func TestLoadSelectsRequestedMembers(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	mustGenerate(t, c, map[ClusterID][]int{
		2: {10, 11},
		7: {20, 21, 22},
	})

	// Clusters given out of order, members scrambled across both clusters.
	members := []int{21, 10, 22, 11}
	rows, err := c.Load(ctx, "feat", []ClusterID{7, 2}, members)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i, m := range members {
		if rows[i] != float64(m) {
			t.Fatalf("row %d = %v, want %v", i, rows[i], float64(m))
		}
	}
}

func TestLoadUnknownCluster(t *testing.T) {
	c, _ := newTestCache(t)
	mustGenerate(t, c, map[ClusterID][]int{2: {10}})

	_, err := c.Load(context.Background(), "feat", []ClusterID{2, 9}, []int{10})
	if !errors.Is(err, ErrUnknownCluster) {
		t.Fatalf("err = %v, want ErrUnknownCluster", err)
	}
}

func TestLoadMemberNotFound(t *testing.T) {
	c, _ := newTestCache(t)
	mustGenerate(t, c, map[ClusterID][]int{2: {10, 11}})

	_, err := c.Load(context.Background(), "feat", []ClusterID{2}, []int{10, 42})
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("err = %v, want ErrMemberNotFound", err)
	}
}

func TestLoadAs(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	mustGenerate(t, c, map[ClusterID][]int{2: {10, 11}})

	rows, err := LoadAs[float64](ctx, c, "feat", []ClusterID{2}, []int{11, 10})
	if err != nil {
		t.Fatalf("LoadAs: %v", err)
	}
	if !slices.Equal(rows, []float64{11, 10}) {
		t.Fatalf("rows = %v, want [11 10]", rows)
	}

	if _, err := LoadAs[string](ctx, c, "feat", []ClusterID{2}, []int{10}); err == nil {
		t.Fatal("LoadAs with wrong row type: want error")
	}
}

func TestUpdateAssignDefault(t *testing.T) {
	ctx := context.Background()
	c, p := newTestCache(t)
	mustGenerate(t, c, map[ClusterID][]int{2: {10}, 3: {11}})

	err := c.Update(ctx, Change{
		Kind:       ChangeAssign,
		Deleted:    []ClusterID{3},
		Added:      []ClusterID{7},
		NewMembers: map[ClusterID][]int{7: {11}},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	ids, err := c.Store().Clusters(ctx)
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if !slices.Equal(ids, []ClusterID{2, 7}) {
		t.Fatalf("Clusters after assign = %v, want [2 7]", ids)
	}
	if p.calls[2] != 1 {
		t.Fatalf("untouched cluster 2 recomputed: %d calls", p.calls[2])
	}
	if p.calls[7] != 1 {
		t.Fatalf("added cluster 7 computed %d times, want 1", p.calls[7])
	}
}

func TestUpdateMergeFallsBackToAssign(t *testing.T) {
	ctx := context.Background()
	c, p := newTestCache(t)
	mustGenerate(t, c, map[ClusterID][]int{2: {10}, 3: {11}})

	err := c.Update(ctx, Change{
		Kind:       ChangeMerge,
		Deleted:    []ClusterID{2, 3},
		Added:      []ClusterID{4},
		NewMembers: map[ClusterID][]int{4: {10, 11}},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.calls[4] != 1 {
		t.Fatalf("merged cluster 4 computed %d times, want 1", p.calls[4])
	}
	ids, err := c.Store().Clusters(ctx)
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if !slices.Equal(ids, []ClusterID{4}) {
		t.Fatalf("Clusters after merge = %v, want [4]", ids)
	}
}

func TestUpdateUsesAssignerSpecialization(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(StoreOptions{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	c, err := New(Options{Store: s})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := &assigningProvider{featProvider: newFeatProvider(s)}
	if err := c.RegisterProvider(p); err != nil {
		t.Fatalf("RegisterProvider: %v", err)
	}
	mustGenerate(t, c, map[ClusterID][]int{2: {10}})
	calls := p.calls[2]

	ch := Change{Kind: ChangeAssign, Added: []ClusterID{5}, NewMembers: map[ClusterID][]int{5: {10}}}
	if err := c.Update(ctx, ch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(p.assigned) != 1 {
		t.Fatalf("Assign calls = %d, want 1", len(p.assigned))
	}
	if p.calls[5] != 0 || p.calls[2] != calls {
		t.Fatalf("default compute ran despite Assigner: %v", p.calls)
	}
}

func TestUpdateUsesMergerSpecialization(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(StoreOptions{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	c, err := New(Options{Store: s})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := &mergingProvider{featProvider: newFeatProvider(s)}
	if err := c.RegisterProvider(p); err != nil {
		t.Fatalf("RegisterProvider: %v", err)
	}
	mustGenerate(t, c, map[ClusterID][]int{2: {10}, 3: {11}})

	ch := Change{
		Kind:       ChangeMerge,
		Deleted:    []ClusterID{2, 3},
		Added:      []ClusterID{4},
		NewMembers: map[ClusterID][]int{4: {10, 11}},
	}
	if err := c.Update(ctx, ch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(p.merged) != 1 {
		t.Fatalf("Merge calls = %d, want 1", len(p.merged))
	}
	if p.calls[4] != 0 {
		t.Fatalf("default compute ran despite Merger: %v", p.calls)
	}

	// An assign change must not take the merge shortcut.
	ch2 := Change{Kind: ChangeAssign, Added: []ClusterID{9}, NewMembers: map[ClusterID][]int{9: {10}}}
	if err := c.Update(ctx, ch2); err != nil {
		t.Fatalf("Update assign: %v", err)
	}
	if len(p.merged) != 1 {
		t.Fatalf("Merge called for an assign change")
	}
	if p.calls[9] != 1 {
		t.Fatalf("assign change not computed: %v", p.calls)
	}
}

func TestUpdateDeletesBeforeDispatch(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	mustGenerate(t, c, map[ClusterID][]int{2: {10}})

	// Deleting everything with no additions is a valid change.
	err := c.Update(ctx, Change{Kind: ChangeAssign, Deleted: []ClusterID{2}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	ids, err := c.Store().Clusters(ctx)
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("Clusters = %v, want empty", ids)
	}
}

func TestUpdateUnsupportedKind(t *testing.T) {
	c, _ := newTestCache(t)
	err := c.Update(context.Background(), Change{Kind: ChangeKind("split")})
	if !errors.Is(err, ErrUnsupportedChange) {
		t.Fatalf("err = %v, want ErrUnsupportedChange", err)
	}
}

func TestGenerateReplacesMembership(t *testing.T) {
	c, _ := newTestCache(t)
	mustGenerate(t, c, map[ClusterID][]int{2: {10}})
	mustGenerate(t, c, map[ClusterID][]int{5: {20, 21}})

	if m := c.Members(2); len(m) != 0 {
		t.Fatalf("Members(2) after regenerate = %v, want empty", m)
	}
	if m := c.Members(5); !slices.Equal(m, []int{20, 21}) {
		t.Fatalf("Members(5) = %v", m)
	}
	all := c.MembersByCluster()
	if len(all) != 1 {
		t.Fatalf("MembersByCluster = %v, want one entry", all)
	}
}
