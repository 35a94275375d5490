package video

import "sync"

// PreviewKey is the renderer key reserved for the local camera preview.
const PreviewKey = "local"

// Renderer displays one decoded stream read from shared memory.
//
// Once affined to a Worker, every mutation is queued to the worker; reads
// return the state as of the last mutation that ran there.
type Renderer struct {
	key string

	mu         sync.RWMutex
	shmPath    string
	res        Resolution
	rendering  bool
	destroyed  bool
	bufferSize int
	worker     *Worker
}

func newRenderer(key, shmPath string, res Resolution, bufferSize int) *Renderer {
	return &Renderer{key: key, shmPath: shmPath, res: res, bufferSize: bufferSize}
}

// Key returns the call id, or PreviewKey.
func (r *Renderer) Key() string { return r.key }

// IsPreview reports whether this is the local preview renderer.
func (r *Renderer) IsPreview() bool { return r.key == PreviewKey }

// ShmPath returns the shared-memory path frames are read from.
func (r *Renderer) ShmPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shmPath
}

// Resolution returns the frame size.
func (r *Renderer) Resolution() Resolution {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.res
}

// IsRendering reports whether the renderer is started.
func (r *Renderer) IsRendering() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rendering
}

// IsDestroyed reports whether the renderer was torn down.
func (r *Renderer) IsDestroyed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.destroyed
}

// BufferSize returns the frame buffer size in bytes, 0 for the default.
func (r *Renderer) BufferSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bufferSize
}

// Worker returns the worker the renderer is affined to, or nil.
func (r *Renderer) Worker() *Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.worker
}

// affine hands the renderer to w. It happens at most once.
func (r *Renderer) affine(w *Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.worker == nil {
		r.worker = w
	}
}

// send runs fn on the owning worker, or inline before affinity.
func (r *Renderer) send(fn func()) {
	if w := r.Worker(); w != nil {
		w.Post(fn)
		return
	}
	fn()
}

// Update changes the shared-memory path and frame size.
func (r *Renderer) Update(shmPath string, res Resolution) {
	r.send(func() {
		r.mu.Lock()
		r.shmPath = shmPath
		r.res = res
		r.mu.Unlock()
	})
}

// SetBufferSize changes the frame buffer size.
func (r *Renderer) SetBufferSize(size int) {
	r.send(func() {
		r.mu.Lock()
		r.bufferSize = size
		r.mu.Unlock()
	})
}

// StartRendering begins reading frames.
func (r *Renderer) StartRendering() {
	r.send(func() {
		r.mu.Lock()
		if !r.destroyed {
			r.rendering = true
		}
		r.mu.Unlock()
	})
}

// StopRendering stops reading frames.
func (r *Renderer) StopRendering() {
	r.send(func() {
		r.mu.Lock()
		r.rendering = false
		r.mu.Unlock()
	})
}

// destroy releases the renderer. It is never used again.
func (r *Renderer) destroy() {
	r.send(func() {
		r.mu.Lock()
		r.rendering = false
		r.destroyed = true
		r.mu.Unlock()
	})
}
