package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handle identifies one live collection instance. The zero Handle means
// "no collection" and is used for top-level parents.
type Handle uint64

// NoHandle is the parent of top-level collections.
const NoHandle Handle = 0

// Kind names a collection class registered with a manager.
type Kind string

// Backend is the contract a concrete data source implements.
//
// Load, Reload and Clear are only invoked when the matching feature bit is
// set. Backends may still return ErrUnsupported for calls they refuse.
type Backend[T Item] interface {
	// ID is a short persistent tag for the collection class.
	ID() []byte
	Name() string
	Category() string
	Icon() string
	Features() Feature

	Load(ctx context.Context) error
	Reload(ctx context.Context) error
	Clear(ctx context.Context) error

	Editor() Editor[T]
}

// Interface is the type-erased view of a collection used by the collection
// tree and the API.
type Interface interface {
	Handle() Handle
	Parent() Handle
	Kind() Kind
	ID() []byte
	Name() string
	Category() string
	Icon() string
	Features() Feature
	IsEnabled() bool
	SetEnabled(enabled bool) error
	Load(ctx context.Context) error
	Reload(ctx context.Context) error
	Clear(ctx context.Context) error
	SaveAll(ctx context.Context) error
	Size() int
}

// Collection is a registered backend together with its handle, parent link
// and enablement. It implements Interface.
type Collection[T Item] struct {
	handle  Handle
	parent  Handle
	kind    Kind
	backend Backend[T]
	editor  *gate[T]

	mu      sync.RWMutex
	enabled bool
}

func newCollection[T Item](h, parent Handle, kind Kind, backend Backend[T]) *Collection[T] {
	c := &Collection[T]{
		handle:  h,
		parent:  parent,
		kind:    kind,
		backend: backend,
		enabled: true,
	}
	c.editor = &gate[T]{inner: backend.Editor(), features: backend.Features}
	return c
}

// Handle returns the instance handle.
func (c *Collection[T]) Handle() Handle { return c.handle }

// Parent returns the parent handle, or NoHandle.
func (c *Collection[T]) Parent() Handle { return c.parent }

// Kind returns the kind the collection was created from.
func (c *Collection[T]) Kind() Kind { return c.kind }

// ID returns the persistent class tag.
func (c *Collection[T]) ID() []byte { return c.backend.ID() }

// Name returns the display name.
func (c *Collection[T]) Name() string { return c.backend.Name() }

// Category returns the display category.
func (c *Collection[T]) Category() string { return c.backend.Category() }

// Icon returns the icon name, possibly empty.
func (c *Collection[T]) Icon() string { return c.backend.Icon() }

// Features returns the advertised feature bitset.
func (c *Collection[T]) Features() Feature { return c.backend.Features() }

// Backend returns the concrete backend, for capability type assertions.
func (c *Collection[T]) Backend() Backend[T] { return c.backend }

// Editor returns the feature-gated editor.
func (c *Collection[T]) Editor() Editor[T] { return c.editor }

// IsEnabled reports whether the collection is enabled.
func (c *Collection[T]) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled changes enablement. Requires FeatureDisableable.
func (c *Collection[T]) SetEnabled(enabled bool) error {
	if !c.Features().Has(FeatureDisableable) {
		return fmt.Errorf("%w: set enabled requires %s", ErrUnsupported, FeatureDisableable)
	}
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
	return nil
}

// Load populates the editor from the backing store.
func (c *Collection[T]) Load(ctx context.Context) error {
	if !c.Features().Has(FeatureLoad) {
		return fmt.Errorf("%w: load requires %s", ErrUnsupported, FeatureLoad)
	}
	return c.backend.Load(ctx)
}

// Reload refreshes the collection from the backing store.
func (c *Collection[T]) Reload(ctx context.Context) error {
	if !c.Features().Has(FeatureLoad) {
		return fmt.Errorf("%w: reload requires %s", ErrUnsupported, FeatureLoad)
	}
	return c.backend.Reload(ctx)
}

// Clear flushes the backing store.
func (c *Collection[T]) Clear(ctx context.Context) error {
	if !c.Features().Has(FeatureClear) {
		return fmt.Errorf("%w: clear requires %s", ErrUnsupported, FeatureClear)
	}
	return c.backend.Clear(ctx)
}

// SaveAll saves every owned item. Failures are joined; saving continues past
// individual errors.
func (c *Collection[T]) SaveAll(ctx context.Context) error {
	if !c.Features().Has(FeatureSave) {
		return fmt.Errorf("%w: save requires %s", ErrUnsupported, FeatureSave)
	}
	var errs []error
	for _, item := range c.editor.Items() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.editor.Save(item); err != nil {
			errs = append(errs, fmt.Errorf("saving %s: %w", item.UID(), err))
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of items the collection owns.
func (c *Collection[T]) Size() int {
	return len(c.editor.Items())
}
