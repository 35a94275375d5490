package collection

import (
	"fmt"
	"sync"
)

// Item is the identity every collected entity exposes.
type Item interface {
	UID() string
}

// Mediator is the narrow sink through which a collection streams items into
// its entity's master model.
type Mediator[T Item] interface {
	// AddItem inserts item, or merges it into the existing row with the same UID.
	AddItem(item T)

	// RemoveItem withdraws this collection's contribution for item's UID.
	RemoveItem(item T)

	// ItemChanged reports that item was modified in place.
	ItemChanged(item T)

	// ClearAllCollections removes every row from the master model.
	ClearAllCollections()
}

// Editor performs the per-item operations of one collection.
type Editor[T Item] interface {
	Save(item T) error
	Remove(item T) error
	Edit(item T) error
	AddNew(item T) error
	AddExisting(item T) error

	// Items returns a snapshot of the items owned by the collection.
	Items() []T
}

// BaseEditor holds the authoritative item vector of a collection and its
// mediator. Concrete editors embed it and implement Save, Remove, Edit and
// AddNew.
//
// All methods are thread-safe.
type BaseEditor[T Item] struct {
	mediator Mediator[T]

	mu    sync.RWMutex
	items []T
}

// NewBaseEditor creates an editor bound to mediator.
func NewBaseEditor[T Item](mediator Mediator[T]) *BaseEditor[T] {
	return &BaseEditor[T]{mediator: mediator}
}

// Mediator returns the sink this editor feeds.
func (e *BaseEditor[T]) Mediator() Mediator[T] {
	return e.mediator
}

// AddExisting appends item and forwards it to the master model. Duplicate
// UIDs are not filtered here; the master model merges them.
func (e *BaseEditor[T]) AddExisting(item T) error {
	e.mu.Lock()
	e.items = append(e.items, item)
	e.mu.Unlock()

	e.mediator.AddItem(item)
	return nil
}

// Items returns a snapshot of the owned items.
func (e *BaseEditor[T]) Items() []T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]T, len(e.items))
	copy(out, e.items)
	return out
}

// Len returns the number of owned items.
func (e *BaseEditor[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// Find returns the first owned item with the given UID.
func (e *BaseEditor[T]) Find(uid string) (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, it := range e.items {
		if it.UID() == uid {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Forget drops every owned item with item's UID and withdraws each copy from
// the master model. Returns ErrItemNotFound if the editor does not own it.
func (e *BaseEditor[T]) Forget(item T) error {
	uid := item.UID()

	e.mu.Lock()
	kept := e.items[:0]
	var dropped []T
	for _, it := range e.items {
		if it.UID() == uid {
			dropped = append(dropped, it)
			continue
		}
		kept = append(kept, it)
	}
	var zero T
	for i := len(kept); i < len(e.items); i++ {
		e.items[i] = zero
	}
	e.items = kept
	e.mu.Unlock()

	if len(dropped) == 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, uid)
	}
	for _, it := range dropped {
		e.mediator.RemoveItem(it)
	}
	return nil
}

// Owned returns the set of UIDs the editor currently holds.
func (e *BaseEditor[T]) Owned() map[string]struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]struct{}, len(e.items))
	for _, it := range e.items {
		out[it.UID()] = struct{}{}
	}
	return out
}

// ForgetAll drops every owned item and withdraws each from the master model.
func (e *BaseEditor[T]) ForgetAll() {
	e.mu.Lock()
	items := e.items
	e.items = nil
	e.mu.Unlock()

	for _, it := range items {
		e.mediator.RemoveItem(it)
	}
}

// gate enforces the feature bitset in front of a backend editor.
type gate[T Item] struct {
	inner    Editor[T]
	features func() Feature
}

func (g *gate[T]) allow(op string, bits Feature) error {
	if !g.features().Any(bits) {
		return fmt.Errorf("%w: %s requires %s", ErrUnsupported, op, bits)
	}
	return nil
}

func (g *gate[T]) Save(item T) error {
	if err := g.allow("save", FeatureSave); err != nil {
		return err
	}
	return g.inner.Save(item)
}

func (g *gate[T]) Remove(item T) error {
	if err := g.allow("remove", FeatureRemove); err != nil {
		return err
	}
	return g.inner.Remove(item)
}

func (g *gate[T]) Edit(item T) error {
	if err := g.allow("edit", FeatureEdit); err != nil {
		return err
	}
	return g.inner.Edit(item)
}

func (g *gate[T]) AddNew(item T) error {
	if err := g.allow("add new", FeatureAdd); err != nil {
		return err
	}
	return g.inner.AddNew(item)
}

func (g *gate[T]) AddExisting(item T) error {
	if err := g.allow("add existing", FeatureLoad|FeatureAdd); err != nil {
		return err
	}
	return g.inner.AddExisting(item)
}

func (g *gate[T]) Items() []T {
	return g.inner.Items()
}
