package collection

import "sync"

// Arena owns every live collection across all managers and hands out
// handles. Parent links resolve through it.
//
// All methods are thread-safe.
type Arena struct {
	mu    sync.RWMutex
	next  Handle
	items map[Handle]Interface
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{items: make(map[Handle]Interface)}
}

// allocate reserves a fresh handle. Handles are never reused.
func (a *Arena) allocate() Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return a.next
}

func (a *Arena) insert(c Interface) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items[c.Handle()] = c
}

func (a *Arena) remove(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.items, h)
}

// Get resolves a handle.
func (a *Arena) Get(h Handle) (Interface, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.items[h]
	return c, ok
}

// Len returns the number of live collections.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}
