package video

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/ringclient-core/internal/notify"
)

// Options configures a Registry.
type Options struct {
	// Worker, when set, owns every renderer after creation. It is started on
	// the first decoding event.
	Worker *Worker

	// Recorder, when set, receives session telemetry.
	Recorder SessionRecorder

	// BufferSize is the initial frame buffer size for new renderers.
	BufferSize int

	Logger Logger
}

// Registry maps stream keys to renderers and tracks the preview state.
//
// Decoding events and preview control are expected on the event loop.
// Queries are thread-safe.
type Registry struct {
	vm       VideoManager
	devices  *DeviceModel
	worker   *Worker
	recorder SessionRecorder
	logger   Logger

	// startStop serialises renderer start/stop crossings with the worker.
	startStop sync.Mutex

	mu         sync.RWMutex
	renderers  map[string]*Renderer
	sessions   map[string]session
	previewing bool
	bufferSize int

	previewStarted      notify.Signal[*Renderer]
	previewStopped      notify.Signal[*Renderer]
	previewStateChanged notify.Signal[bool]
	callInitiated       notify.Signal[*Renderer]
	callEnded           notify.Signal[*Renderer]
}

// session is the event-loop view of a decoding stream, kept apart from the
// renderer so it never waits on the worker.
type session struct {
	started time.Time
	res     Resolution
}

// NewRegistry creates a registry controlling vm and reading devices from
// devices.
func NewRegistry(vm VideoManager, devices *DeviceModel, opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		vm:         vm,
		devices:    devices,
		worker:     opts.Worker,
		recorder:   opts.Recorder,
		logger:     logger,
		renderers:  make(map[string]*Renderer),
		sessions:   make(map[string]session),
		bufferSize: opts.BufferSize,
	}
}

// PreviewStarted fires when the preview renderer starts rendering.
func (r *Registry) PreviewStarted() *notify.Signal[*Renderer] { return &r.previewStarted }

// PreviewStopped fires when the preview renderer stops.
func (r *Registry) PreviewStopped() *notify.Signal[*Renderer] { return &r.previewStopped }

// PreviewStateChanged fires when the previewing flag flips.
func (r *Registry) PreviewStateChanged() *notify.Signal[bool] { return &r.previewStateChanged }

// VideoCallInitiated fires when a call renderer starts rendering.
func (r *Registry) VideoCallInitiated() *notify.Signal[*Renderer] { return &r.callInitiated }

// VideoCallEnded fires when a call renderer stops, before it is destroyed.
func (r *Registry) VideoCallEnded() *notify.Signal[*Renderer] { return &r.callEnded }

// StartStopMutex returns the lock serialising renderer start/stop.
func (r *Registry) StartStopMutex() *sync.Mutex { return &r.startStop }

// DeviceModel returns the device model.
func (r *Registry) DeviceModel() *DeviceModel { return r.devices }

// StartedDecoding handles the daemon's startedDecoding event. isMixer is
// part of the daemon signal and is not used.
func (r *Registry) StartedDecoding(key, shmPath string, width, height int, isMixer bool) {
	res := Resolution{Width: width, Height: height}

	r.startStop.Lock()
	r.mu.Lock()
	ren, exists := r.renderers[key]
	if !exists {
		ren = newRenderer(key, shmPath, res, r.bufferSize)
		r.renderers[key] = ren
	}
	sess, live := r.sessions[key]
	if !live {
		sess.started = time.Now()
	}
	sess.res = res
	r.sessions[key] = sess
	previewFlipped := false
	if key == PreviewKey && !r.previewing {
		r.previewing = true
		previewFlipped = true
	}
	r.mu.Unlock()

	if exists {
		ren.Update(shmPath, res)
	} else if key != PreviewKey {
		r.logger.Info("decoding started for unknown call", "key", key, "shm", shmPath, "resolution", res.String())
	}
	r.affine(ren)
	ren.StartRendering()
	r.startStop.Unlock()

	r.logger.Debug("decoding started", "key", key, "shm", shmPath, "resolution", res.String(), "mixer", isMixer)
	if r.recorder != nil {
		r.recorder.SessionStarted(key, shmPath, res)
	}

	if key == PreviewKey {
		if d, ok := r.devices.Current(); ok {
			d.RenderingStarted().Emit(ren)
		}
		r.previewStarted.Emit(ren)
		if previewFlipped {
			r.previewStateChanged.Emit(true)
		}
		return
	}
	r.callInitiated.Emit(ren)
}

// StoppedDecoding handles the daemon's stoppedDecoding event. Unknown keys
// are ignored. isMixer is part of the daemon signal and is not used.
func (r *Registry) StoppedDecoding(key, shmPath string, isMixer bool) {
	r.startStop.Lock()
	r.mu.Lock()
	ren, ok := r.renderers[key]
	if !ok {
		r.mu.Unlock()
		r.startStop.Unlock()
		r.logger.Debug("decoding stopped for unknown key", "key", key, "shm", shmPath)
		return
	}
	delete(r.renderers, key)
	sess := r.sessions[key]
	delete(r.sessions, key)
	previewFlipped := false
	if key == PreviewKey && r.previewing {
		r.previewing = false
		previewFlipped = true
	}
	r.mu.Unlock()

	ren.StopRendering()
	r.startStop.Unlock()

	r.logger.Debug("decoding stopped", "key", key, "shm", shmPath, "mixer", isMixer)
	if r.recorder != nil {
		var elapsed time.Duration
		if !sess.started.IsZero() {
			elapsed = time.Since(sess.started)
		}
		r.recorder.SessionEnded(key, sess.res, elapsed)
	}

	if key == PreviewKey {
		if d, ok := r.devices.Current(); ok {
			d.RenderingStopped().Emit(ren)
		}
		r.previewStopped.Emit(ren)
		if previewFlipped {
			r.previewStateChanged.Emit(false)
		}
	} else {
		r.callEnded.Emit(ren)
	}
	ren.destroy()
}

// affine starts the worker if needed and hands ren to it.
func (r *Registry) affine(ren *Renderer) {
	if r.worker == nil {
		return
	}
	if !r.worker.Running() {
		r.worker.Start()
	}
	ren.affine(r.worker)
}

// PreviewRenderer returns the preview renderer, creating it on first use
// with the active device's active resolution. When the daemon reports no
// active device the renderer starts with a zero resolution.
func (r *Registry) PreviewRenderer(ctx context.Context) *Renderer {
	if ren, ok := r.Lookup(PreviewKey); ok {
		return ren
	}

	var res Resolution
	if d, err := r.devices.ActiveDevice(ctx); err != nil {
		r.logger.Warn("preview renderer without active device", "error", err)
	} else {
		res = d.ActiveResolution()
	}

	r.mu.Lock()
	ren, ok := r.renderers[PreviewKey]
	if !ok {
		ren = newRenderer(PreviewKey, "", res, r.bufferSize)
		r.renderers[PreviewKey] = ren
	}
	r.mu.Unlock()
	if !ok {
		r.affine(ren)
	}
	return ren
}

// StartPreview asks the daemon to start the camera. Calling it while
// previewing does nothing.
func (r *Registry) StartPreview(ctx context.Context) error {
	r.startStop.Lock()
	r.mu.RLock()
	previewing := r.previewing
	r.mu.RUnlock()
	if previewing {
		r.startStop.Unlock()
		return nil
	}
	if err := r.vm.StartCamera(ctx); err != nil {
		r.startStop.Unlock()
		return fmt.Errorf("starting camera: %w", err)
	}
	r.mu.Lock()
	r.previewing = true
	r.mu.Unlock()
	r.startStop.Unlock()

	r.previewStateChanged.Emit(true)
	return nil
}

// StopPreview asks the daemon to stop the camera. Calling it while not
// previewing does nothing.
func (r *Registry) StopPreview(ctx context.Context) error {
	r.startStop.Lock()
	r.mu.RLock()
	previewing := r.previewing
	r.mu.RUnlock()
	if !previewing {
		r.startStop.Unlock()
		return nil
	}
	if err := r.vm.StopCamera(ctx); err != nil {
		r.startStop.Unlock()
		return fmt.Errorf("stopping camera: %w", err)
	}
	r.mu.Lock()
	r.previewing = false
	r.mu.Unlock()
	r.startStop.Unlock()

	r.previewStateChanged.Emit(false)
	return nil
}

// IsPreviewing reports whether the preview is on.
func (r *Registry) IsPreviewing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.previewing
}

// Lookup returns the renderer for key.
func (r *Registry) Lookup(key string) (*Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ren, ok := r.renderers[key]
	return ren, ok
}

// RendererFor returns the renderer of the call with callID.
func (r *Registry) RendererFor(callID string) (*Renderer, bool) {
	if callID == PreviewKey {
		return nil, false
	}
	return r.Lookup(callID)
}

// Renderers returns every live renderer.
func (r *Registry) Renderers() []*Renderer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Renderer, 0, len(r.renderers))
	for _, ren := range r.renderers {
		out = append(out, ren)
	}
	return out
}

// SetBufferSize changes the frame buffer size of every live and future
// renderer.
func (r *Registry) SetBufferSize(size int) {
	r.mu.Lock()
	r.bufferSize = size
	live := make([]*Renderer, 0, len(r.renderers))
	for _, ren := range r.renderers {
		live = append(live, ren)
	}
	r.mu.Unlock()

	for _, ren := range live {
		ren.SetBufferSize(size)
	}
}

// ActiveDevice returns the daemon's active device.
func (r *Registry) ActiveDevice(ctx context.Context) (*Device, error) {
	return r.devices.ActiveDevice(ctx)
}

// SwitchDevice makes d the daemon's input.
func (r *Registry) SwitchDevice(ctx context.Context, d *Device) error {
	return r.devices.SwitchTo(ctx, d)
}

// Devices reconciles and returns the device roster.
func (r *Registry) Devices(ctx context.Context) []*Device {
	return r.devices.Reconcile(ctx)
}

// Device returns the cached device with id.
func (r *Registry) Device(id string) (*Device, bool) {
	return r.devices.Device(id)
}

// DeviceEvent handles the daemon's deviceEvent signal by refreshing the
// roster.
func (r *Registry) DeviceEvent(ctx context.Context) {
	devices := r.devices.Reconcile(ctx)
	r.logger.Debug("video device event", "devices", len(devices))
}

// CapabilitiesChanged handles a capabilities update for device id.
func (r *Registry) CapabilitiesChanged(ctx context.Context, id string) {
	r.devices.RefreshCapabilities(ctx, id)
}
