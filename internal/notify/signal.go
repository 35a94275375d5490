// Package notify provides typed change-notification signals.
//
// A Signal fans a value out to every connected slot, in connection order.
// Models use signals for row insert/remove/change notifications and the
// video registry uses them for preview and call lifecycle events.
//
// Slots run synchronously on the emitting goroutine. For model state that is
// the event loop goroutine, so slots must not block.
package notify

import "sync"

// Connection identifies a connected slot so it can be disconnected later.
type Connection uint64

// Signal is a typed, multi-slot notification channel.
// The zero value is ready to use.
//
// Thread Safety:
//   - Connect, Disconnect and Emit are safe for concurrent use.
//   - Slots connected during an Emit are not called for that emission.
type Signal[T any] struct {
	mu    sync.RWMutex
	next  Connection
	slots []slot[T]
}

type slot[T any] struct {
	id Connection
	fn func(T)
}

// Connect registers fn and returns a handle for Disconnect.
func (s *Signal[T]) Connect(fn func(T)) Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.slots = append(s.slots, slot[T]{id: s.next, fn: fn})
	return s.next
}

// Disconnect removes a slot. Unknown handles are ignored.
func (s *Signal[T]) Disconnect(c Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sl := range s.slots {
		if sl.id == c {
			s.slots = append(s.slots[:i:i], s.slots[i+1:]...)
			return
		}
	}
}

// Emit calls every connected slot with v.
func (s *Signal[T]) Emit(v T) {
	s.mu.RLock()
	slots := make([]slot[T], len(s.slots))
	copy(slots, s.slots)
	s.mu.RUnlock()

	for _, sl := range slots {
		sl.fn(v)
	}
}

// Len returns the number of connected slots.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
