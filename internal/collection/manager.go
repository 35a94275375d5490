package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/ringclient-core/internal/notify"
)

// Logger defines the logging interface used by the Manager.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Poster schedules work on the event loop.
type Poster interface {
	Post(fn func())
}

// Sink is the master-model side of a manager: it hands out one mediator per
// collection and forgets a collection's contributions when it is removed.
type Sink[T Item] interface {
	MediatorFor(h Handle) Mediator[T]
	DetachCollection(h Handle)
}

// Factory constructs a backend for a kind. params is kind-specific; factories
// return ErrInvalidParams for values they cannot use.
type Factory[T Item] func(b Binding[T], params any) (Backend[T], error)

// Binding is what a backend receives from its manager at construction.
type Binding[T Item] struct {
	// Handle is the handle the collection will be registered under.
	Handle Handle

	// Mediator streams items into the master model.
	Mediator Mediator[T]

	// Logger is the manager's logger.
	Logger Logger

	spawn func(kind Kind, params any)
}

// Log returns the binding's logger, or a no-op logger when unset.
func (b Binding[T]) Log() Logger {
	if b.Logger == nil {
		return noopLogger{}
	}
	return b.Logger
}

// Spawn registers a child collection of this one on the next loop tick.
// The registration is dropped if the manager has closed or this collection
// was removed in the meantime.
func (b Binding[T]) Spawn(kind Kind, params any) {
	if b.spawn != nil {
		b.spawn(kind, params)
	}
}

// Manager owns every collection of one entity type.
//
// Collections are kept in registration order. Added fires after a collection
// is registered; Removed fires after it is gone. Removing a collection
// removes its children first.
//
// All public methods are thread-safe. Signals are emitted without internal
// locks held, so slots may call back into the manager.
type Manager[T Item] struct {
	name   string
	arena  *Arena
	sink   Sink[T]
	loop   Poster
	logger Logger

	mu         sync.RWMutex
	kinds      map[Kind]Factory[T]
	order      []*Collection[T]
	byHandle   map[Handle]*Collection[T]
	generation uint64
	closed     bool

	added   notify.Signal[Interface]
	removed notify.Signal[Interface]
}

// NewManager creates a manager for the entity type called name.
func NewManager[T Item](name string, arena *Arena, sink Sink[T], loop Poster) *Manager[T] {
	return &Manager[T]{
		name:     name,
		arena:    arena,
		sink:     sink,
		loop:     loop,
		logger:   noopLogger{},
		kinds:    make(map[Kind]Factory[T]),
		byHandle: make(map[Handle]*Collection[T]),
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager[T]) SetLogger(logger Logger) {
	m.logger = logger
}

// Name returns the entity type name.
func (m *Manager[T]) Name() string { return m.name }

// Added fires after a collection is registered.
func (m *Manager[T]) Added() *notify.Signal[Interface] { return &m.added }

// Removed fires after a collection is unregistered.
func (m *Manager[T]) Removed() *notify.Signal[Interface] { return &m.removed }

// RegisterKind binds a factory to kind.
func (m *Manager[T]) RegisterKind(kind Kind, factory Factory[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.kinds[kind]; exists {
		return fmt.Errorf("%w: %s", ErrKindExists, kind)
	}
	m.kinds[kind] = factory
	return nil
}

// AddCollection constructs a backend of kind, registers it with the master
// model and the arena, and emits Added. parent is NoHandle for top-level
// collections and must otherwise name a collection of this manager.
func (m *Manager[T]) AddCollection(kind Kind, params any, parent Handle) (*Collection[T], error) {
	m.mu.RLock()
	closed := m.closed
	factory, ok := m.kinds[kind]
	_, parentOwned := m.byHandle[parent]
	gen := m.generation
	m.mu.RUnlock()

	if closed {
		return nil, ErrManagerClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if parent != NoHandle && !parentOwned {
		if _, live := m.arena.Get(parent); live {
			return nil, fmt.Errorf("%w: parent %d", ErrParentMismatch, parent)
		}
		return nil, fmt.Errorf("parent %d: %w", parent, ErrNotFound)
	}

	h := m.arena.allocate()
	binding := Binding[T]{
		Handle:   h,
		Mediator: m.sink.MediatorFor(h),
		Logger:   m.logger,
		spawn: func(k Kind, p any) {
			m.spawnLater(gen, k, p, h)
		},
	}

	backend, err := factory(binding, params)
	if err != nil {
		m.sink.DetachCollection(h)
		return nil, fmt.Errorf("creating %s collection: %w", kind, err)
	}
	c := newCollection(h, parent, kind, backend)

	m.mu.Lock()
	if m.closed || m.generation != gen {
		m.mu.Unlock()
		m.sink.DetachCollection(h)
		return nil, ErrManagerClosed
	}
	m.order = append(m.order, c)
	m.byHandle[h] = c
	m.mu.Unlock()
	m.arena.insert(c)

	m.logger.Debug("collection added",
		"manager", m.name,
		"kind", string(kind),
		"handle", uint64(h),
		"parent", uint64(parent),
		"name", c.Name(),
	)
	m.added.Emit(c)
	return c, nil
}

// spawnLater registers a child collection on the next loop tick.
func (m *Manager[T]) spawnLater(gen uint64, kind Kind, params any, parent Handle) {
	m.loop.Post(func() {
		m.mu.RLock()
		stale := m.closed || m.generation != gen
		_, parentLive := m.byHandle[parent]
		m.mu.RUnlock()

		if stale {
			m.logger.Warn("dropping child collection registration",
				"manager", m.name,
				"kind", string(kind),
				"error", ErrManagerClosed,
			)
			return
		}
		if !parentLive {
			m.logger.Debug("dropping child of removed collection",
				"manager", m.name,
				"kind", string(kind),
				"parent", uint64(parent),
			)
			return
		}
		if _, err := m.AddCollection(kind, params, parent); err != nil {
			m.logger.Error("registering child collection failed",
				"manager", m.name,
				"kind", string(kind),
				"error", err,
			)
		}
	})
}

// Get returns the collection with handle h.
func (m *Manager[T]) Get(h Handle) (*Collection[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byHandle[h]
	return c, ok
}

// List returns the collections in registration order.
func (m *Manager[T]) List() []*Collection[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Collection[T], len(m.order))
	copy(out, m.order)
	return out
}

// Collections returns the type-erased collections in registration order.
func (m *Manager[T]) Collections() []Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Interface, len(m.order))
	for i, c := range m.order {
		out[i] = c
	}
	return out
}

// Len returns the number of registered collections.
func (m *Manager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Load loads every collection advertising FeatureLoad, in order.
// Children discovered during loading register on later ticks and are
// loaded by their own callers.
func (m *Manager[T]) Load(ctx context.Context) error {
	return m.fanOut(ctx, FeatureLoad, "loading", func(c *Collection[T]) error {
		return c.Load(ctx)
	})
}

// Clear clears every collection advertising FeatureClear, in order.
func (m *Manager[T]) Clear(ctx context.Context) error {
	return m.fanOut(ctx, FeatureClear, "clearing", func(c *Collection[T]) error {
		return c.Clear(ctx)
	})
}

func (m *Manager[T]) fanOut(ctx context.Context, bit Feature, verb string, fn func(*Collection[T]) error) error {
	var errs []error
	for _, c := range m.List() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !c.Features().Has(bit) {
			continue
		}
		if err := fn(c); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", verb, c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// RemoveCollection unregisters h and, first, all of its descendants.
func (m *Manager[T]) RemoveCollection(h Handle) error {
	if _, ok := m.Get(h); !ok {
		return fmt.Errorf("collection %d: %w", h, ErrNotFound)
	}
	m.removeTree(h)
	return nil
}

func (m *Manager[T]) removeTree(h Handle) {
	for _, c := range m.List() {
		if c.Parent() == h {
			m.removeTree(c.Handle())
		}
	}

	m.mu.Lock()
	c, ok := m.byHandle[h]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.byHandle, h)
	for i, oc := range m.order {
		if oc == c {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.sink.DetachCollection(h)
	m.arena.remove(h)

	m.logger.Debug("collection removed",
		"manager", m.name,
		"handle", uint64(h),
		"name", c.Name(),
	)
	m.removed.Emit(c)
}

// Close removes every collection and refuses further registrations.
// Child registrations already queued on the loop are dropped when they run.
func (m *Manager[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.generation++
	m.mu.Unlock()

	for _, c := range m.List() {
		if c.Parent() == NoHandle {
			m.removeTree(c.Handle())
		}
	}
	// Orphans whose parent vanished mid-removal.
	for _, c := range m.List() {
		m.removeTree(c.Handle())
	}

	m.logger.Info("collection manager closed", "manager", m.name)
}
