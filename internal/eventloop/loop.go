// Package eventloop provides the single-threaded cooperative scheduler that
// owns all model state.
//
// Collections, master models and the collection tree are mutated only from
// tasks running on the loop. Work that must not run inline (for example the
// registration of child collections discovered during a load) is posted and
// runs on the next tick, after the current task returns.
//
// # Usage
//
//	loop := eventloop.New()
//	go loop.Run(ctx)
//
//	loop.Post(func() { manager.AddCollection(...) })
//
//	// From another goroutine, wait for a result computed on the loop:
//	err := loop.Call(ctx, func() error { return model.Save(ctx) })
//
// Tests that never start Run can execute pending work deterministically with
// Drain.
package eventloop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Call when the loop stopped before running the task.
var ErrStopped = errors.New("eventloop: stopped")

// Loop is an unbounded FIFO task queue executed by a single goroutine.
//
// Post never blocks, so tasks may post further tasks freely.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post queues fn to run on the loop after every task queued before it.
// Tasks posted after the loop stopped are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Run executes tasks until ctx is cancelled. It must be called at most once.
// Tasks still queued when ctx ends are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.pending = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		l.runBatch()

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Drain runs queued tasks on the calling goroutine until the queue is empty,
// including tasks posted by the tasks it runs. It returns the number of tasks
// executed. Drain must not be used while Run is active.
func (l *Loop) Drain() int {
	total := 0
	for {
		n := l.runBatch()
		if n == 0 {
			return total
		}
		total += n
	}
}

// Call posts fn and waits for it to finish, returning its error.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	l.Post(func() {
		result <- fn()
	})

	select {
	case err := <-result:
		return err
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runBatch executes the tasks queued at the time of the call.
func (l *Loop) runBatch() int {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}
