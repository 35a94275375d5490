package video

import (
	"context"
	"errors"
	"sync"

	"github.com/nerrad567/ringclient-core/internal/eventloop"
)

// Worker is the goroutine that owns renderers after they are handed over.
// Messages posted to it run in order on that goroutine.
type Worker struct {
	loop *eventloop.Loop

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
}

// NewWorker creates a stopped worker.
func NewWorker() *Worker {
	return &Worker{loop: eventloop.New()}
}

// Start launches the worker goroutine. Calling Start on a running or
// stopped worker does nothing.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.stopped {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true
	go w.loop.Run(ctx)
}

// Running reports whether the worker goroutine is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Post queues fn on the worker. Messages posted before Start run once the
// worker starts; messages posted after Stop are dropped.
func (w *Worker) Post(fn func()) {
	w.loop.Post(fn)
}

// Sync waits until every message posted before the call has run.
func (w *Worker) Sync(ctx context.Context) error {
	err := w.loop.Call(ctx, func() error { return nil })
	if errors.Is(err, eventloop.ErrStopped) {
		return ErrWorkerStopped
	}
	return err
}

// Stop ends the worker goroutine and waits for it to exit. Pending messages
// are discarded.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.stopped = true
		w.mu.Unlock()
		return
	}
	w.running = false
	w.stopped = true
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	<-w.loop.Done()
}
