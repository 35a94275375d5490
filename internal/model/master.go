package model

import (
	"sort"
	"sync"

	"github.com/nerrad567/ringclient-core/internal/collection"
	"github.com/nerrad567/ringclient-core/internal/notify"
)

// Entity is the constraint for master model rows.
type Entity[T any] interface {
	UID() string

	// MergeFrom folds other's attributes into the receiver and reports
	// whether anything changed. Scalars already set on the receiver are
	// kept; multi-valued attributes are unioned.
	MergeFrom(other T) bool
}

// RowEvent describes an inclusive range of affected rows.
type RowEvent struct {
	First int
	Last  int
}

// Stats summarises the table.
type Stats struct {
	Rows          int `json:"rows"`
	Collections   int `json:"collections"`
	Contributions int `json:"contributions"`
}

// Logger defines the logging interface used by the Master.
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

// Master is the deduplicated table of all entities of one type.
// It implements collection.Sink.
//
// All public methods are thread-safe. Signals are emitted with no lock held.
type Master[T Entity[T]] struct {
	name   string
	logger Logger

	mu    sync.RWMutex
	rows  []T
	index map[string]int // uid -> row

	// contributors counts, per uid, how many times each collection offered it.
	contributors map[string]map[collection.Handle]int

	rowsInserted notify.Signal[RowEvent]
	rowsRemoved  notify.Signal[RowEvent]
	dataChanged  notify.Signal[RowEvent]
}

// NewMaster creates an empty master model for the entity type called name.
func NewMaster[T Entity[T]](name string) *Master[T] {
	return &Master[T]{
		name:         name,
		logger:       noopLogger{},
		index:        make(map[string]int),
		contributors: make(map[string]map[collection.Handle]int),
	}
}

// SetLogger sets the logger for the master model.
func (m *Master[T]) SetLogger(logger Logger) {
	m.logger = logger
}

// Name returns the entity type name.
func (m *Master[T]) Name() string { return m.name }

// RowsInserted fires after rows are appended.
func (m *Master[T]) RowsInserted() *notify.Signal[RowEvent] { return &m.rowsInserted }

// RowsRemoved fires after rows are removed. Indices refer to the table
// before the removal.
func (m *Master[T]) RowsRemoved() *notify.Signal[RowEvent] { return &m.rowsRemoved }

// DataChanged fires after a merge or an in-place edit changed an existing
// row. Exact duplicates are absorbed silently.
func (m *Master[T]) DataChanged() *notify.Signal[RowEvent] { return &m.dataChanged }

// MediatorFor returns the sink a collection uses to feed this model.
func (m *Master[T]) MediatorFor(h collection.Handle) collection.Mediator[T] {
	return &mediator[T]{master: m, handle: h}
}

// DetachCollection withdraws every contribution of h.
func (m *Master[T]) DetachCollection(h collection.Handle) {
	m.mu.RLock()
	var uids []string
	for uid, by := range m.contributors {
		if _, ok := by[h]; ok {
			uids = append(uids, uid)
		}
	}
	m.mu.RUnlock()

	// Deterministic removal order.
	sort.Strings(uids)
	for _, uid := range uids {
		m.withdraw(h, uid, true)
	}
}

// ClearAllCollections removes every row.
func (m *Master[T]) ClearAllCollections() {
	m.mu.Lock()
	n := len(m.rows)
	m.rows = nil
	m.index = make(map[string]int)
	m.contributors = make(map[string]map[collection.Handle]int)
	m.mu.Unlock()

	if n > 0 {
		m.logger.Debug("master model cleared", "model", m.name, "rows", n)
		m.rowsRemoved.Emit(RowEvent{First: 0, Last: n - 1})
	}
}

func (m *Master[T]) add(h collection.Handle, item T) {
	uid := item.UID()
	if uid == "" {
		m.logger.Warn("ignoring entity", "model", m.name, "collection", uint64(h), "error", ErrEmptyUID)
		return
	}

	m.mu.Lock()
	by, ok := m.contributors[uid]
	if !ok {
		by = make(map[collection.Handle]int)
		m.contributors[uid] = by
	}
	by[h]++

	if row, exists := m.index[uid]; exists {
		existing := m.rows[row]
		changed := any(existing) != any(item) && existing.MergeFrom(item)
		m.mu.Unlock()
		if changed {
			m.dataChanged.Emit(RowEvent{First: row, Last: row})
		}
		return
	}

	row := len(m.rows)
	m.rows = append(m.rows, item)
	m.index[uid] = row
	m.mu.Unlock()

	m.rowsInserted.Emit(RowEvent{First: row, Last: row})
}

// changed emits DataChanged for item's row. When the row holds another
// contributor's entity, item is merged into it first and only a real change
// is reported.
func (m *Master[T]) changed(h collection.Handle, item T) {
	uid := item.UID()
	m.mu.Lock()
	row, ok := m.index[uid]
	if !ok || m.contributors[uid][h] == 0 {
		m.mu.Unlock()
		m.logger.Debug("ignoring change of unknown entity", "model", m.name, "collection", uint64(h), "uid", uid)
		return
	}
	existing := m.rows[row]
	emit := any(existing) == any(item) || existing.MergeFrom(item)
	m.mu.Unlock()

	if emit {
		m.dataChanged.Emit(RowEvent{First: row, Last: row})
	}
}

// withdraw drops one (or, with all, every) contribution of h to uid and
// removes the row once no contributor remains.
func (m *Master[T]) withdraw(h collection.Handle, uid string, all bool) {
	m.mu.Lock()
	by, ok := m.contributors[uid]
	if !ok {
		m.mu.Unlock()
		return
	}
	if _, has := by[h]; !has {
		m.mu.Unlock()
		return
	}
	if all {
		delete(by, h)
	} else if by[h]--; by[h] <= 0 {
		delete(by, h)
	}
	if len(by) > 0 {
		m.mu.Unlock()
		return
	}

	delete(m.contributors, uid)
	row := m.index[uid]
	delete(m.index, uid)
	m.rows = append(m.rows[:row], m.rows[row+1:]...)
	for i := row; i < len(m.rows); i++ {
		m.index[m.rows[i].UID()] = i
	}
	m.mu.Unlock()

	m.rowsRemoved.Emit(RowEvent{First: row, Last: row})
}

// Touch emits DataChanged for the row of uid after its entity was changed
// in place. It reports whether uid has a row.
func (m *Master[T]) Touch(uid string) bool {
	row := m.RowOf(uid)
	if row < 0 {
		return false
	}
	m.dataChanged.Emit(RowEvent{First: row, Last: row})
	return true
}

// FindByUID returns the entity with uid.
func (m *Master[T]) FindByUID(uid string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.index[uid]
	if !ok {
		var zero T
		return zero, false
	}
	return m.rows[row], true
}

// RowOf returns the row of uid, or -1.
func (m *Master[T]) RowOf(uid string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row, ok := m.index[uid]; ok {
		return row
	}
	return -1
}

// At returns the entity at row.
func (m *Master[T]) At(row int) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row < 0 || row >= len(m.rows) {
		var zero T
		return zero, false
	}
	return m.rows[row], true
}

// RowCount returns the number of rows.
func (m *Master[T]) RowCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Items returns a snapshot of all rows in order.
func (m *Master[T]) Items() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.rows))
	copy(out, m.rows)
	return out
}

// Contributors returns the collections that offered uid, in handle order.
func (m *Master[T]) Contributors(uid string) []collection.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	by := m.contributors[uid]
	out := make([]collection.Handle, 0, len(by))
	for h := range by {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CountFor returns the number of rows h contributes to.
func (m *Master[T]) CountFor(h collection.Handle) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, by := range m.contributors {
		if _, ok := by[h]; ok {
			n++
		}
	}
	return n
}

// Stats returns table statistics.
func (m *Master[T]) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[collection.Handle]struct{})
	total := 0
	for _, by := range m.contributors {
		for h := range by {
			seen[h] = struct{}{}
			total++
		}
	}
	return Stats{Rows: len(m.rows), Collections: len(seen), Contributions: total}
}

// mediator binds a master model to one collection handle.
type mediator[T Entity[T]] struct {
	master *Master[T]
	handle collection.Handle
}

func (md *mediator[T]) AddItem(item T) {
	md.master.add(md.handle, item)
}

func (md *mediator[T]) RemoveItem(item T) {
	md.master.withdraw(md.handle, item.UID(), false)
}

func (md *mediator[T]) ItemChanged(item T) {
	md.master.changed(md.handle, item)
}

func (md *mediator[T]) ClearAllCollections() {
	md.master.ClearAllCollections()
}
