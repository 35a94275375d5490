package collectionmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/ringclient-core/internal/collection"
	"github.com/nerrad567/ringclient-core/internal/notify"
)

// stateTimeout bounds each StateStore call.
const stateTimeout = 5 * time.Second

// ProxyItem is one row of the tree.
type ProxyItem struct {
	row        int
	parent     *ProxyItem
	collection collection.Interface
	children   []*ProxyItem
}

// Row returns the item's position among its siblings.
func (p *ProxyItem) Row() int { return p.row }

// Collection returns the collection shown by the item.
func (p *ProxyItem) Collection() collection.Interface { return p.collection }

// Index addresses a cell. The zero Index is the invisible root.
type Index struct {
	row, col int
	item     *ProxyItem
}

// IsValid reports whether the index addresses a row.
func (i Index) IsValid() bool { return i.item != nil }

// Row returns the row within the parent.
func (i Index) Row() int { return i.row }

// Column returns the column.
func (i Index) Column() int { return i.col }

// Sibling returns the index of column col on the same row.
func (i Index) Sibling(col int) Index {
	if !i.IsValid() {
		return Index{}
	}
	return Index{row: i.row, col: col, item: i.item}
}

// DataChange is the payload of DataChanged: an inclusive cell rectangle
// sharing one parent.
type DataChange struct {
	TopLeft     Index
	BottomRight Index
}

// RowsChange is the payload of RowsInserted and RowsRemoved.
type RowsChange struct {
	Parent      Index
	First, Last int
}

// Source is a collection manager the model can follow. *collection.Manager
// implements it for every entity type.
type Source interface {
	Collections() []collection.Interface
	Added() *notify.Signal[collection.Interface]
	Removed() *notify.Signal[collection.Interface]
}

// StateStore persists collection enablement across restarts.
type StateStore interface {
	LoadEnabled(ctx context.Context, id []byte, name string) (enabled, found bool, err error)
	SaveEnabled(ctx context.Context, id []byte, name string, enabled bool) error
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type watch struct {
	src              Source
	added, removed   notify.Connection
	extension        Extension
	extensionChanged notify.Connection
}

// Model is the collection tree.
//
// Mutating methods must run on the event loop. Tree and the read accessors
// are safe from any goroutine.
type Model struct {
	mu         sync.RWMutex
	top        []*ProxyItem
	nodes      map[collection.Handle]*ProxyItem
	extensions []Extension
	watches    []watch

	store  StateStore
	logger Logger

	checkStateChanged notify.Signal[collection.Interface]
	dataChanged       notify.Signal[DataChange]
	rowsInserted      notify.Signal[RowsChange]
	rowsRemoved       notify.Signal[RowsChange]
}

// New creates an empty model.
func New() *Model {
	return &Model{
		nodes:  make(map[collection.Handle]*ProxyItem),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger.
func (m *Model) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// SetStateStore enables persistence of check states. Collections registered
// afterwards get their saved enablement applied.
func (m *Model) SetStateStore(store StateStore) {
	m.store = store
}

// CheckStateChanged fires once per effective enablement change.
func (m *Model) CheckStateChanged() *notify.Signal[collection.Interface] {
	return &m.checkStateChanged
}

// DataChanged fires when cells change.
func (m *Model) DataChanged() *notify.Signal[DataChange] { return &m.dataChanged }

// RowsInserted fires after rows are inserted.
func (m *Model) RowsInserted() *notify.Signal[RowsChange] { return &m.rowsInserted }

// RowsRemoved fires after rows are removed.
func (m *Model) RowsRemoved() *notify.Signal[RowsChange] { return &m.rowsRemoved }

// =============================================================================
// Tree maintenance
// =============================================================================

// Watch registers every existing collection of src and follows its Added
// and Removed signals.
func (m *Model) Watch(src Source) {
	for _, c := range src.Collections() {
		m.register(c)
	}
	w := watch{src: src}
	w.added = src.Added().Connect(m.register)
	w.removed = src.Removed().Connect(m.unregister)

	m.mu.Lock()
	m.watches = append(m.watches, w)
	m.mu.Unlock()
}

// Close disconnects from every watched source and extension.
func (m *Model) Close() {
	m.mu.Lock()
	watches := m.watches
	m.watches = nil
	m.mu.Unlock()

	for _, w := range watches {
		if w.src != nil {
			w.src.Added().Disconnect(w.added)
			w.src.Removed().Disconnect(w.removed)
		}
		if w.extension != nil {
			w.extension.Changed().Disconnect(w.extensionChanged)
		}
	}
}

func (m *Model) register(c collection.Interface) {
	m.mu.Lock()
	if _, exists := m.nodes[c.Handle()]; exists {
		m.mu.Unlock()
		return
	}

	item := &ProxyItem{collection: c}
	var parentIdx Index
	parent := m.nodes[c.Parent()]
	if parent == nil && c.Parent() != collection.NoHandle {
		m.logger.Warn("collection parent not in tree, showing at top level",
			"collection", c.Name(), "parent", uint64(c.Parent()))
	}
	if parent != nil {
		item.parent = parent
		item.row = len(parent.children)
		parent.children = append(parent.children, item)
		parentIdx = Index{row: parent.row, item: parent}
	} else {
		item.row = len(m.top)
		m.top = append(m.top, item)
	}
	m.nodes[c.Handle()] = item
	m.mu.Unlock()

	m.restoreState(c)
	m.rowsInserted.Emit(RowsChange{Parent: parentIdx, First: item.row, Last: item.row})
}

func (m *Model) unregister(c collection.Interface) {
	m.mu.Lock()
	item, ok := m.nodes[c.Handle()]
	if !ok {
		m.mu.Unlock()
		return
	}

	m.forget(item)

	var parentIdx Index
	siblings := &m.top
	if item.parent != nil {
		siblings = &item.parent.children
		parentIdx = Index{row: item.parent.row, item: item.parent}
	}
	row := item.row
	*siblings = append((*siblings)[:row:row], (*siblings)[row+1:]...)
	for i := row; i < len(*siblings); i++ {
		(*siblings)[i].row = i
	}
	m.mu.Unlock()

	m.rowsRemoved.Emit(RowsChange{Parent: parentIdx, First: row, Last: row})
}

// forget drops item and its subtree from the node map. Callers hold mu.
func (m *Model) forget(item *ProxyItem) {
	for _, child := range item.children {
		m.forget(child)
	}
	delete(m.nodes, item.collection.Handle())
}

func (m *Model) restoreState(c collection.Interface) {
	if m.store == nil || !c.Features().Has(collection.FeatureDisableable) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()

	enabled, found, err := m.store.LoadEnabled(ctx, c.ID(), c.Name())
	if err != nil {
		m.logger.Warn("loading collection state failed", "collection", c.Name(), "error", err)
		return
	}
	if found && enabled != c.IsEnabled() {
		if err := c.SetEnabled(enabled); err != nil {
			m.logger.Warn("restoring collection state failed", "collection", c.Name(), "error", err)
		}
	}
}

// =============================================================================
// Extensions
// =============================================================================

// AddExtension appends ext. Its column is ColumnCount()-1 afterwards and its
// role is RoleExtensionBase plus its position.
func (m *Model) AddExtension(ext Extension) {
	m.mu.Lock()
	pos := len(m.extensions)
	m.extensions = append(m.extensions, ext)
	m.mu.Unlock()

	conn := ext.Changed().Connect(func(c collection.Interface) {
		m.extensionChanged(pos, c)
	})

	m.mu.Lock()
	m.watches = append(m.watches, watch{extension: ext, extensionChanged: conn})
	m.mu.Unlock()
}

// Extensions returns the attached extensions in column order.
func (m *Model) Extensions() []Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Extension(nil), m.extensions...)
}

func (m *Model) extensionChanged(pos int, c collection.Interface) {
	idx := m.IndexOf(c.Handle())
	if !idx.IsValid() {
		return
	}
	cell := idx.Sibling(fixedColumns + pos)
	m.dataChanged.Emit(DataChange{TopLeft: cell, BottomRight: cell})
}

// =============================================================================
// Table interface
// =============================================================================

// Index returns the index of (row, col) under parent, or the zero Index
// when out of range.
func (m *Model) Index(row, col int, parent Index) Index {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if col < 0 || col >= fixedColumns+len(m.extensions) || row < 0 {
		return Index{}
	}
	rows := m.top
	if parent.IsValid() {
		if parent.col != ColumnLabel {
			return Index{}
		}
		rows = parent.item.children
	}
	if row >= len(rows) {
		return Index{}
	}
	return Index{row: row, col: col, item: rows[row]}
}

// IndexOf returns the column-0 index of the collection with handle h.
func (m *Model) IndexOf(h collection.Handle) Index {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.nodes[h]
	if !ok {
		return Index{}
	}
	return Index{row: item.row, item: item}
}

// Parent returns the index of idx's parent row, or the zero Index for
// top-level rows.
func (m *Model) Parent(idx Index) Index {
	if !idx.IsValid() {
		return Index{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := idx.item.parent
	if p == nil {
		return Index{}
	}
	return Index{row: p.row, item: p}
}

// RowCount returns the number of top-level collections for the root, or the
// number of children of the collection at parent.
func (m *Model) RowCount(parent Index) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !parent.IsValid() {
		return len(m.top)
	}
	if parent.col != ColumnLabel {
		return 0
	}
	return len(parent.item.children)
}

// ColumnCount returns the label and reserved columns plus one per extension.
func (m *Model) ColumnCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fixedColumns + len(m.extensions)
}

// Data returns the value of role at idx, or nil.
func (m *Model) Data(idx Index, role Role) any {
	if !idx.IsValid() {
		return nil
	}
	c := idx.item.collection

	m.mu.RLock()
	exts := m.extensions
	m.mu.RUnlock()

	if role >= RoleExtensionBase {
		pos := int(role - RoleExtensionBase)
		if pos >= len(exts) {
			return nil
		}
		return exts[pos].Data(c, RoleDisplay)
	}

	switch {
	case idx.col == ColumnLabel:
		return labelData(c, role)
	case idx.col == ColumnReserved:
		return nil
	default:
		pos := idx.col - fixedColumns
		if pos >= len(exts) {
			return nil
		}
		return exts[pos].Data(c, role)
	}
}

func labelData(c collection.Interface, role Role) any {
	switch role {
	case RoleDisplay:
		return c.Name()
	case RoleCheckState:
		return c.IsEnabled()
	case RoleDecoration:
		return c.Icon()
	case RoleCategory:
		return c.Category()
	case RoleFeatures:
		return c.Features()
	case RoleKind:
		return c.Kind()
	case RoleHandle:
		return c.Handle()
	}
	return nil
}

// SetData writes role at idx. Only RoleCheckState on the label column is
// writable; value must be a bool. Setting the current state is a no-op.
func (m *Model) SetData(idx Index, value any, role Role) error {
	if !idx.IsValid() || idx.col != ColumnLabel {
		return ErrInvalidIndex
	}
	if role != RoleCheckState {
		return fmt.Errorf("%w: %s", ErrReadOnlyRole, role)
	}
	enabled, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%w: check state must be bool, got %T", ErrInvalidValue, value)
	}

	c := idx.item.collection
	if c.IsEnabled() == enabled {
		return nil
	}
	if err := c.SetEnabled(enabled); err != nil {
		return err
	}

	if m.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
		err := m.store.SaveEnabled(ctx, c.ID(), c.Name(), enabled)
		cancel()
		if err != nil {
			m.logger.Warn("saving collection state failed", "collection", c.Name(), "error", err)
		}
	}

	m.logger.Info("collection enablement changed", "collection", c.Name(), "enabled", enabled)
	m.dataChanged.Emit(DataChange{TopLeft: idx, BottomRight: idx})
	m.checkStateChanged.Emit(c)
	return nil
}

// Flags returns the interaction flags for idx.
func (m *Model) Flags(idx Index) ItemFlag {
	if !idx.IsValid() {
		return 0
	}
	flags := FlagSelectable | FlagEnabled
	if idx.col == ColumnLabel && idx.item.collection.Features().Has(collection.FeatureDisableable) {
		flags |= FlagUserCheckable
	}
	return flags
}

// HeaderData returns the column header for section. Only RoleDisplay has
// headers.
func (m *Model) HeaderData(section int, role Role) any {
	if role != RoleDisplay {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case section == ColumnLabel:
		return "Name"
	case section == ColumnReserved:
		return ""
	case section >= fixedColumns && section < fixedColumns+len(m.extensions):
		return m.extensions[section-fixedColumns].Name()
	}
	return nil
}

// RoleNames returns the consumer-facing name of every role, including one
// per extension.
func (m *Model) RoleNames() map[Role]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Role]string, len(roleNames)+len(m.extensions))
	for r, name := range roleNames {
		out[r] = name
	}
	for i := range m.extensions {
		r := RoleExtensionBase + Role(i)
		out[r] = r.String()
	}
	return out
}

// CollectionAt returns the collection at idx.
func (m *Model) CollectionAt(idx Index) (collection.Interface, bool) {
	if !idx.IsValid() {
		return nil, false
	}
	return idx.item.collection, true
}

// =============================================================================
// Fan-out
// =============================================================================

// Save saves every collection advertising SAVE, in tree order.
func (m *Model) Save(ctx context.Context) error {
	return m.fanOut(ctx, collection.FeatureSave, "save", func(c collection.Interface) error {
		return c.SaveAll(ctx)
	})
}

// Load loads every collection advertising LOAD, in tree order. Children
// registered by a load are not loaded by the same call.
func (m *Model) Load(ctx context.Context) error {
	return m.fanOut(ctx, collection.FeatureLoad, "load", func(c collection.Interface) error {
		return c.Load(ctx)
	})
}

func (m *Model) fanOut(ctx context.Context, bit collection.Feature, verb string, fn func(collection.Interface) error) error {
	var errs []error
	for _, c := range m.preorder() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !c.Features().Has(bit) {
			continue
		}
		if err := fn(c); err != nil {
			m.logger.Warn("collection "+verb+" failed", "collection", c.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s %q: %w", verb, c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Model) preorder() []collection.Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []collection.Interface
	var walk func(items []*ProxyItem)
	walk = func(items []*ProxyItem) {
		for _, it := range items {
			out = append(out, it.collection)
			walk(it.children)
		}
	}
	walk(m.top)
	return out
}

// =============================================================================
// Snapshot
// =============================================================================

// Node is a JSON-friendly snapshot of one tree row.
type Node struct {
	Handle     uint64         `json:"handle"`
	Kind       string         `json:"kind"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Category   string         `json:"category"`
	Icon       string         `json:"icon,omitempty"`
	Features   []string       `json:"features"`
	Enabled    bool           `json:"enabled"`
	Checkable  bool           `json:"checkable"`
	Size       int            `json:"size"`
	Extensions map[string]any `json:"extensions,omitempty"`
	Children   []Node         `json:"children,omitempty"`
}

// Tree returns a snapshot of the whole tree.
func (m *Model) Tree() []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(m.top)
}

func (m *Model) snapshot(items []*ProxyItem) []Node {
	out := make([]Node, 0, len(items))
	for _, it := range items {
		c := it.collection
		n := Node{
			Handle:    uint64(c.Handle()),
			Kind:      string(c.Kind()),
			ID:        string(c.ID()),
			Name:      c.Name(),
			Category:  c.Category(),
			Icon:      c.Icon(),
			Features:  c.Features().Names(),
			Enabled:   c.IsEnabled(),
			Checkable: c.Features().Has(collection.FeatureDisableable),
			Size:      c.Size(),
			Children:  m.snapshot(it.children),
		}
		if len(m.extensions) > 0 {
			n.Extensions = make(map[string]any, len(m.extensions))
			for _, ext := range m.extensions {
				n.Extensions[ext.Name()] = ext.Data(c, RoleDisplay)
			}
		}
		out = append(out, n)
	}
	return out
}
