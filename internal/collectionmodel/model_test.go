package collectionmodel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nerrad567/ringclient-core/internal/collection"
	"github.com/nerrad567/ringclient-core/internal/notify"
)

// fakeCollection is a collection.Interface with scripted behaviour.
type fakeCollection struct {
	handle   collection.Handle
	parent   collection.Handle
	name     string
	features collection.Feature
	enabled  bool
	size     int

	saves, loads int
	failSave     error
}

func (f *fakeCollection) Handle() collection.Handle { return f.handle }
func (f *fakeCollection) Parent() collection.Handle { return f.parent }
func (f *fakeCollection) Kind() collection.Kind     { return "fake" }
func (f *fakeCollection) ID() []byte                { return []byte("fk1") }
func (f *fakeCollection) Name() string              { return f.name }
func (f *fakeCollection) Category() string          { return "Tests" }
func (f *fakeCollection) Icon() string              { return "folder" }
func (f *fakeCollection) Features() collection.Feature {
	return f.features
}
func (f *fakeCollection) IsEnabled() bool { return f.enabled }
func (f *fakeCollection) SetEnabled(enabled bool) error {
	if !f.features.Has(collection.FeatureDisableable) {
		return collection.ErrUnsupported
	}
	f.enabled = enabled
	return nil
}
func (f *fakeCollection) Load(context.Context) error   { f.loads++; return nil }
func (f *fakeCollection) Reload(context.Context) error { return nil }
func (f *fakeCollection) Clear(context.Context) error  { return nil }
func (f *fakeCollection) SaveAll(context.Context) error {
	f.saves++
	return f.failSave
}
func (f *fakeCollection) Size() int { return f.size }

// fakeSource is a minimal manager.
type fakeSource struct {
	list           []collection.Interface
	added, removed notify.Signal[collection.Interface]
}

func (s *fakeSource) Collections() []collection.Interface           { return s.list }
func (s *fakeSource) Added() *notify.Signal[collection.Interface]   { return &s.added }
func (s *fakeSource) Removed() *notify.Signal[collection.Interface] { return &s.removed }

func (s *fakeSource) add(c *fakeCollection) {
	s.list = append(s.list, c)
	s.added.Emit(c)
}

func (s *fakeSource) remove(c *fakeCollection) {
	for i, x := range s.list {
		if x == collection.Interface(c) {
			s.list = append(s.list[:i], s.list[i+1:]...)
			break
		}
	}
	s.removed.Emit(c)
}

func newFake(h, parent collection.Handle, name string, features collection.Feature) *fakeCollection {
	return &fakeCollection{handle: h, parent: parent, name: name, features: features, enabled: true}
}

// checkBijection verifies that every row's index round-trips through Parent
// and Index.
func checkBijection(t *testing.T, m *Model, parent Index) int {
	t.Helper()
	n := 0
	for row := 0; row < m.RowCount(parent); row++ {
		idx := m.Index(row, 0, parent)
		if !idx.IsValid() || idx.Row() != row {
			t.Fatalf("Index(%d) under %v invalid", row, parent)
		}
		p := m.Parent(idx)
		if p.IsValid() != parent.IsValid() || (p.IsValid() && p.item != parent.item) {
			t.Fatalf("Parent(Index(%d)) mismatch", row)
		}
		n += 1 + checkBijection(t, m, idx)
	}
	return n
}

func TestModelTreeShape(t *testing.T) {
	src := &fakeSource{}
	a := newFake(1, 0, "Contacts", collection.FeatureLoad)
	src.add(a)

	m := New()
	var inserted []RowsChange
	m.RowsInserted().Connect(func(r RowsChange) { inserted = append(inserted, r) })
	m.Watch(src)
	defer m.Close()

	src.add(newFake(2, 1, "Kids", collection.FeatureLoad))
	src.add(newFake(3, 0, "Address book", collection.FeatureSave))
	src.add(newFake(4, 1, "Friends", 0))

	if got := m.RowCount(Index{}); got != 2 {
		t.Fatalf("top-level rows = %d, want 2", got)
	}
	top := m.Index(0, 0, Index{})
	if m.Data(top, RoleDisplay) != "Contacts" {
		t.Errorf("row 0 = %v", m.Data(top, RoleDisplay))
	}
	if got := m.RowCount(top); got != 2 {
		t.Errorf("children of Contacts = %d, want 2", got)
	}
	if got := m.Data(m.Index(1, 0, top), RoleDisplay); got != "Friends" {
		t.Errorf("second child = %v, want Friends", got)
	}
	if got := m.Data(m.Index(1, 0, Index{}), RoleDisplay); got != "Address book" {
		t.Errorf("row 1 = %v", got)
	}

	if n := checkBijection(t, m, Index{}); n != 4 {
		t.Errorf("rows walked = %d, want 4", n)
	}

	// One insertion for the pre-existing collection plus three.
	if len(inserted) != 4 {
		t.Fatalf("RowsInserted fired %d times, want 4", len(inserted))
	}
	last := inserted[3]
	if !last.Parent.IsValid() || last.First != 1 || last.Last != 1 {
		t.Errorf("last insertion = %+v", last)
	}
}

func TestModelIndexOutOfRange(t *testing.T) {
	src := &fakeSource{}
	src.add(newFake(1, 0, "Only", 0))
	m := New()
	m.Watch(src)

	tests := []struct {
		name     string
		row, col int
	}{
		{"negative row", -1, 0},
		{"row past end", 1, 0},
		{"negative column", 0, -1},
		{"column past end", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if m.Index(tt.row, tt.col, Index{}).IsValid() {
				t.Errorf("Index(%d, %d) is valid", tt.row, tt.col)
			}
		})
	}

	reserved := m.Index(0, ColumnReserved, Index{})
	if !reserved.IsValid() {
		t.Fatal("reserved column index invalid")
	}
	if m.RowCount(reserved) != 0 {
		t.Error("non-label column has children")
	}
	if m.Data(reserved, RoleDisplay) != nil {
		t.Error("reserved column has data")
	}
	if m.Parent(Index{}).IsValid() {
		t.Error("root has a parent")
	}
}

func TestModelRemoveRenumbers(t *testing.T) {
	src := &fakeSource{}
	a := newFake(1, 0, "A", 0)
	b := newFake(2, 0, "B", 0)
	c := newFake(3, 0, "C", 0)
	child := newFake(4, 1, "A child", 0)
	for _, f := range []*fakeCollection{a, b, c, child} {
		src.add(f)
	}
	m := New()
	m.Watch(src)

	var removed []RowsChange
	m.RowsRemoved().Connect(func(r RowsChange) { removed = append(removed, r) })

	src.remove(child)
	src.remove(a)

	if len(removed) != 2 || removed[1].First != 0 || removed[1].Parent.IsValid() {
		t.Fatalf("RowsRemoved = %+v", removed)
	}
	if got := m.RowCount(Index{}); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
	for row, want := range []string{"B", "C"} {
		idx := m.Index(row, 0, Index{})
		if m.Data(idx, RoleDisplay) != want || idx.item.Row() != row {
			t.Errorf("row %d = %v (item row %d), want %s", row, m.Data(idx, RoleDisplay), idx.item.Row(), want)
		}
	}
	if m.IndexOf(1).IsValid() || m.IndexOf(4).IsValid() {
		t.Error("removed collections still indexed")
	}
	checkBijection(t, m, Index{})
}

func TestModelRemovingParentDropsSubtree(t *testing.T) {
	src := &fakeSource{}
	parent := newFake(1, 0, "P", 0)
	src.add(parent)
	src.add(newFake(2, 1, "child", 0))
	m := New()
	m.Watch(src)

	src.remove(parent)
	if m.RowCount(Index{}) != 0 || m.IndexOf(2).IsValid() {
		t.Error("subtree survived parent removal")
	}
}

func TestModelOrphanGoesTopLevel(t *testing.T) {
	src := &fakeSource{}
	src.add(newFake(7, 99, "Orphan", 0))
	m := New()
	m.Watch(src)
	if m.RowCount(Index{}) != 1 {
		t.Errorf("orphan not shown at top level")
	}
}

func TestModelData(t *testing.T) {
	src := &fakeSource{}
	c := newFake(5, 0, "Work", collection.FeatureLoad|collection.FeatureDisableable)
	src.add(c)
	m := New()
	m.Watch(src)
	idx := m.Index(0, 0, Index{})

	tests := []struct {
		role Role
		want any
	}{
		{RoleDisplay, "Work"},
		{RoleCheckState, true},
		{RoleDecoration, "folder"},
		{RoleCategory, "Tests"},
		{RoleFeatures, collection.FeatureLoad | collection.FeatureDisableable},
		{RoleKind, collection.Kind("fake")},
		{RoleHandle, collection.Handle(5)},
		{RoleExtensionBase, nil},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			if got := m.Data(idx, tt.role); got != tt.want {
				t.Errorf("Data(%s) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}

	if m.Data(Index{}, RoleDisplay) != nil {
		t.Error("root has data")
	}
	got, ok := m.CollectionAt(idx)
	if !ok || got != collection.Interface(c) {
		t.Error("CollectionAt returned the wrong collection")
	}
}

func TestModelCheckStateFiresOnce(t *testing.T) {
	src := &fakeSource{}
	c := newFake(1, 0, "Disableable", collection.FeatureLoad|collection.FeatureDisableable)
	src.add(c)
	m := New()
	m.Watch(src)
	idx := m.Index(0, 0, Index{})

	fired := 0
	m.CheckStateChanged().Connect(func(got collection.Interface) {
		if got != collection.Interface(c) {
			t.Errorf("signal for %s", got.Name())
		}
		fired++
	})
	var changes []DataChange
	m.DataChanged().Connect(func(d DataChange) { changes = append(changes, d) })

	if err := m.SetData(idx, false, RoleCheckState); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := m.SetData(idx, false, RoleCheckState); err != nil {
		t.Fatalf("SetData unchanged: %v", err)
	}
	if fired != 1 {
		t.Errorf("CheckStateChanged fired %d times, want 1", fired)
	}
	if len(changes) != 1 || changes[0].TopLeft.Row() != 0 {
		t.Errorf("DataChanged = %+v", changes)
	}
	if m.Data(idx, RoleCheckState) != false {
		t.Error("check state not cleared")
	}

	// Enablement leaves feature-gated operations alone.
	if err := c.Load(context.Background()); err != nil || c.loads != 1 {
		t.Errorf("Load on disabled collection: err=%v loads=%d", err, c.loads)
	}
	if !c.Features().Has(collection.FeatureLoad) {
		t.Error("features changed with enablement")
	}
}

func TestModelSetDataErrors(t *testing.T) {
	src := &fakeSource{}
	src.add(newFake(1, 0, "Fixed", collection.FeatureLoad))
	m := New()
	m.Watch(src)
	idx := m.Index(0, 0, Index{})

	tests := []struct {
		name  string
		idx   Index
		value any
		role  Role
		want  error
	}{
		{"root", Index{}, false, RoleCheckState, ErrInvalidIndex},
		{"reserved column", idx.Sibling(ColumnReserved), false, RoleCheckState, ErrInvalidIndex},
		{"display role", idx, "x", RoleDisplay, ErrReadOnlyRole},
		{"non-bool", idx, 0, RoleCheckState, ErrInvalidValue},
		{"not disableable", idx, false, RoleCheckState, collection.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.SetData(tt.idx, tt.value, tt.role); !errors.Is(err, tt.want) {
				t.Errorf("SetData() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestModelFlags(t *testing.T) {
	src := &fakeSource{}
	src.add(newFake(1, 0, "Checkable", collection.FeatureDisableable))
	src.add(newFake(2, 0, "Plain", 0))
	m := New()
	m.Watch(src)

	checkable := m.Flags(m.Index(0, 0, Index{}))
	if !checkable.Has(FlagSelectable | FlagEnabled | FlagUserCheckable) {
		t.Errorf("flags = %b, want checkable", checkable)
	}
	if m.Flags(m.Index(1, 0, Index{})).Has(FlagUserCheckable) {
		t.Error("plain collection is checkable")
	}
	if m.Flags(m.Index(0, ColumnReserved, Index{})).Has(FlagUserCheckable) {
		t.Error("reserved column is checkable")
	}
	if m.Flags(Index{}) != 0 {
		t.Error("root has flags")
	}
}

func TestModelExtensions(t *testing.T) {
	src := &fakeSource{}
	c := newFake(1, 0, "Work", 0)
	c.size = 3
	src.add(c)
	m := New()
	m.Watch(src)

	ext := &SizeExtension{}
	m.AddExtension(ext)

	if m.ColumnCount() != 3 {
		t.Fatalf("ColumnCount = %d, want 3", m.ColumnCount())
	}
	if got := m.HeaderData(2, RoleDisplay); got != "Items" {
		t.Errorf("header 2 = %v", got)
	}
	if got := m.HeaderData(0, RoleDisplay); got != "Name" {
		t.Errorf("header 0 = %v", got)
	}
	if m.HeaderData(3, RoleDisplay) != nil || m.HeaderData(0, RoleDecoration) != nil {
		t.Error("unexpected header data")
	}

	idx := m.Index(0, 0, Index{})
	if got := m.Data(idx.Sibling(2), RoleDisplay); got != 3 {
		t.Errorf("extension column = %v, want 3", got)
	}
	if got := m.Data(idx, RoleExtensionBase); got != 3 {
		t.Errorf("extension role = %v, want 3", got)
	}

	names := m.RoleNames()
	if names[RoleExtensionBase] != "extension0" || names[RoleCheckState] != "checkState" {
		t.Errorf("RoleNames = %v", names)
	}

	var changes []DataChange
	m.DataChanged().Connect(func(d DataChange) { changes = append(changes, d) })
	c.size = 4
	ext.Touch(c)
	if len(changes) != 1 || changes[0].TopLeft.Column() != 2 || changes[0].TopLeft.Row() != 0 {
		t.Fatalf("DataChanged = %+v", changes)
	}

	tree := m.Tree()
	if tree[0].Extensions["Items"] != 4 {
		t.Errorf("tree extensions = %v", tree[0].Extensions)
	}

	m.Close()
	ext.Touch(c)
	if len(changes) != 1 {
		t.Error("extension still connected after Close")
	}
}

func TestModelSaveLoadFanOut(t *testing.T) {
	src := &fakeSource{}
	saveable := newFake(1, 0, "Saveable", collection.FeatureSave|collection.FeatureLoad)
	loadOnly := newFake(2, 1, "LoadOnly", collection.FeatureLoad)
	broken := newFake(3, 0, "Broken", collection.FeatureSave)
	broken.failSave = errors.New("disk full")
	for _, f := range []*fakeCollection{saveable, loadOnly, broken} {
		src.add(f)
	}
	m := New()
	m.Watch(src)

	err := m.Save(context.Background())
	if err == nil {
		t.Fatal("Save() error = nil, want the broken collection's error")
	}
	if saveable.saves != 1 || loadOnly.saves != 0 || broken.saves != 1 {
		t.Errorf("saves = %d/%d/%d, want 1/0/1", saveable.saves, loadOnly.saves, broken.saves)
	}

	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saveable.loads != 1 || loadOnly.loads != 1 || broken.loads != 0 {
		t.Errorf("loads = %d/%d/%d, want 1/1/0", saveable.loads, loadOnly.loads, broken.loads)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Load(cancelled) error = %v", err)
	}
}

func TestModelTreeSnapshot(t *testing.T) {
	src := &fakeSource{}
	src.add(newFake(1, 0, "Root", collection.FeatureLoad|collection.FeatureDisableable))
	src.add(newFake(2, 1, "Child", 0))
	m := New()
	m.Watch(src)

	tree := m.Tree()
	if len(tree) != 1 || len(tree[0].Children) != 1 {
		t.Fatalf("tree = %+v", tree)
	}
	root := tree[0]
	if root.Name != "Root" || root.ID != "fk1" || !root.Checkable || !root.Enabled {
		t.Errorf("root node = %+v", root)
	}
	if fmt.Sprint(root.Features) != "[LOAD DISABLEABLE]" {
		t.Errorf("features = %v", root.Features)
	}
	if tree[0].Children[0].Checkable {
		t.Error("child is checkable")
	}
}

func TestModelCloseStopsFollowing(t *testing.T) {
	src := &fakeSource{}
	m := New()
	m.Watch(src)
	m.Close()
	src.add(newFake(1, 0, "Late", 0))
	if m.RowCount(Index{}) != 0 {
		t.Error("model followed source after Close")
	}
}

// memoryStore is an in-memory StateStore.
type memoryStore struct {
	state map[string]bool
	err   error
}

func (s *memoryStore) LoadEnabled(_ context.Context, id []byte, name string) (bool, bool, error) {
	if s.err != nil {
		return false, false, s.err
	}
	v, ok := s.state[string(id)+"/"+name]
	return v, ok, nil
}

func (s *memoryStore) SaveEnabled(_ context.Context, id []byte, name string, enabled bool) error {
	if s.err != nil {
		return s.err
	}
	s.state[string(id)+"/"+name] = enabled
	return nil
}

func TestModelRestoresSavedState(t *testing.T) {
	store := &memoryStore{state: map[string]bool{"fk1/Work": false}}
	src := &fakeSource{}
	work := newFake(1, 0, "Work", collection.FeatureDisableable)
	fixed := newFake(2, 0, "Fixed", 0)
	store.state["fk1/Fixed"] = false

	m := New()
	m.SetStateStore(store)
	m.Watch(src)
	src.add(work)
	src.add(fixed)

	if work.IsEnabled() {
		t.Error("saved disabled state not applied")
	}
	if !fixed.IsEnabled() {
		t.Error("state applied to a non-disableable collection")
	}

	if err := m.SetData(m.IndexOf(1), true, RoleCheckState); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if !store.state["fk1/Work"] {
		t.Error("enablement not persisted")
	}
}

func TestModelStoreFailureIsNotFatal(t *testing.T) {
	store := &memoryStore{state: map[string]bool{}, err: errors.New("locked")}
	src := &fakeSource{}
	c := newFake(1, 0, "Work", collection.FeatureDisableable)
	m := New()
	m.SetStateStore(store)
	m.Watch(src)
	src.add(c)

	fired := 0
	m.CheckStateChanged().Connect(func(collection.Interface) { fired++ })
	if err := m.SetData(m.IndexOf(1), false, RoleCheckState); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if fired != 1 || c.IsEnabled() {
		t.Errorf("fired=%d enabled=%v", fired, c.IsEnabled())
	}
}
