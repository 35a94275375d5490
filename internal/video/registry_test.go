package video

import (
	"context"
	"testing"
	"time"
)

func newTestRegistry(vm *mockVideoManager, opts Options) *Registry {
	return NewRegistry(vm, NewDeviceModel(vm), opts)
}

func TestPreviewLifecycle(t *testing.T) {
	vm := newMockVideoManager("cam0")
	vm.caps["cam0"] = []ChannelCapabilities{{Name: "default", Resolutions: []Resolution{{320, 240}, {640, 480}}}}
	r := newTestRegistry(vm, Options{})
	sig := countSignals(r)
	ctx := context.Background()

	ren := r.PreviewRenderer(ctx)
	if ren.Key() != PreviewKey {
		t.Fatalf("Key() = %q, want %q", ren.Key(), PreviewKey)
	}
	if got := ren.Resolution(); got != (Resolution{320, 240}) {
		t.Errorf("initial Resolution() = %v, want active device resolution 320x240", got)
	}
	if again := r.PreviewRenderer(ctx); again != ren {
		t.Error("PreviewRenderer() built a second renderer")
	}

	r.StartedDecoding("local", "/tmp/shm", 640, 480, false)
	if sig.previewStarted != 1 || sig.lastRenderer != ren {
		t.Errorf("previewStarted = %d (renderer reused: %v), want 1", sig.previewStarted, sig.lastRenderer == ren)
	}
	if !r.IsPreviewing() {
		t.Error("IsPreviewing() = false after startedDecoding(local)")
	}
	if ren.ShmPath() != "/tmp/shm" || ren.Resolution() != (Resolution{640, 480}) {
		t.Errorf("renderer = %s %v, want /tmp/shm 640x480", ren.ShmPath(), ren.Resolution())
	}
	if !ren.IsRendering() {
		t.Error("IsRendering() = false")
	}

	r.StoppedDecoding("local", "/tmp/shm", false)
	if sig.previewStopped != 1 {
		t.Errorf("previewStopped = %d, want 1", sig.previewStopped)
	}
	if r.IsPreviewing() {
		t.Error("IsPreviewing() = true after stoppedDecoding(local)")
	}
	if _, ok := r.Lookup("local"); ok {
		t.Error("Lookup(local) still succeeds")
	}
	if !ren.IsDestroyed() {
		t.Error("renderer not destroyed")
	}
	if len(sig.stateChanges) != 2 || !sig.stateChanges[0] || sig.stateChanges[1] {
		t.Errorf("state changes = %v, want [true false]", sig.stateChanges)
	}
}

func TestCallVideo(t *testing.T) {
	vm := newMockVideoManager()
	rec := &mockRecorder{}
	r := newTestRegistry(vm, Options{Recorder: rec})
	sig := countSignals(r)

	r.StartedDecoding("call-42", "/tmp/shm2", 1280, 720, false)
	if sig.callInitiated != 1 {
		t.Fatalf("callInitiated = %d, want 1", sig.callInitiated)
	}
	ren, ok := r.RendererFor("call-42")
	if !ok || ren != sig.lastRenderer {
		t.Fatal("RendererFor(call-42) does not return the announced renderer")
	}
	if ren.Resolution() != (Resolution{1280, 720}) {
		t.Errorf("Resolution() = %v", ren.Resolution())
	}
	if r.IsPreviewing() {
		t.Error("call video turned preview on")
	}

	r.StoppedDecoding("call-42", "/tmp/shm2", false)
	if sig.callEnded != 1 {
		t.Errorf("callEnded = %d, want 1", sig.callEnded)
	}
	if _, ok := r.Lookup("call-42"); ok {
		t.Error("Lookup(call-42) still succeeds")
	}
	if !ren.IsDestroyed() {
		t.Error("renderer not destroyed")
	}
	if len(rec.started) != 1 || len(rec.ended) != 1 {
		t.Errorf("recorder started=%v ended=%v", rec.started, rec.ended)
	}
}

func TestStartStopExactlyOnceEach(t *testing.T) {
	keys := []string{"local", "call-1", "conf-xyz"}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			r := newTestRegistry(newMockVideoManager(), Options{})
			sig := countSignals(r)

			r.StartedDecoding(key, "/shm", 10, 10, true)
			r.StoppedDecoding(key, "/shm", true)

			if _, ok := r.Lookup(key); ok {
				t.Error("renderer still registered")
			}
			started := sig.previewStarted + sig.callInitiated
			stopped := sig.previewStopped + sig.callEnded
			if started != 1 || stopped != 1 {
				t.Errorf("started=%d stopped=%d, want 1 and 1", started, stopped)
			}
		})
	}
}

func TestStartedDecodingUpdatesExisting(t *testing.T) {
	r := newTestRegistry(newMockVideoManager(), Options{})
	sig := countSignals(r)

	r.StartedDecoding("call-1", "/a", 640, 480, false)
	first, _ := r.Lookup("call-1")
	r.StartedDecoding("call-1", "/b", 1920, 1080, false)
	second, _ := r.Lookup("call-1")

	if first != second {
		t.Fatal("second startedDecoding replaced the renderer")
	}
	if second.ShmPath() != "/b" || second.Resolution() != (Resolution{1920, 1080}) {
		t.Errorf("renderer = %s %v, want /b 1920x1080", second.ShmPath(), second.Resolution())
	}
	if sig.callInitiated != 2 {
		t.Errorf("callInitiated = %d, want 2", sig.callInitiated)
	}
}

func TestStoppedDecodingUnknownKey(t *testing.T) {
	r := newTestRegistry(newMockVideoManager(), Options{})
	sig := countSignals(r)

	r.StoppedDecoding("ghost", "/shm", false)
	if sig.callEnded != 0 || sig.previewStopped != 0 {
		t.Error("signals emitted for unknown key")
	}
}

func TestStartPreviewIdempotent(t *testing.T) {
	vm := newMockVideoManager()
	r := newTestRegistry(vm, Options{})
	sig := countSignals(r)
	ctx := context.Background()

	if err := r.StartPreview(ctx); err != nil {
		t.Fatalf("StartPreview: %v", err)
	}
	if err := r.StartPreview(ctx); err != nil {
		t.Fatalf("StartPreview: %v", err)
	}
	if vm.startCalls != 1 {
		t.Errorf("StartCamera calls = %d, want 1", vm.startCalls)
	}
	if !r.IsPreviewing() {
		t.Error("IsPreviewing() = false")
	}

	// The daemon confirming the preview does not flip the state again.
	r.StartedDecoding(PreviewKey, "/shm", 1, 1, false)
	if len(sig.stateChanges) != 1 {
		t.Errorf("state changes = %v, want one", sig.stateChanges)
	}

	if err := r.StopPreview(ctx); err != nil {
		t.Fatalf("StopPreview: %v", err)
	}
	if err := r.StopPreview(ctx); err != nil {
		t.Fatalf("StopPreview: %v", err)
	}
	if vm.stopCalls != 1 {
		t.Errorf("StopCamera calls = %d, want 1", vm.stopCalls)
	}
	if r.IsPreviewing() {
		t.Error("IsPreviewing() = true after StopPreview")
	}
}

func TestPreviewRendererWithoutActiveDevice(t *testing.T) {
	vm := newMockVideoManager()
	vm.listErr = errDaemonDown
	r := newTestRegistry(vm, Options{})

	ren := r.PreviewRenderer(context.Background())
	if ren == nil {
		t.Fatal("PreviewRenderer() = nil")
	}
	if !ren.Resolution().IsZero() {
		t.Errorf("Resolution() = %v, want zero", ren.Resolution())
	}
}

func TestWorkerAffinity(t *testing.T) {
	w := NewWorker()
	defer w.Stop()
	r := newTestRegistry(newMockVideoManager(), Options{Worker: w})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if w.Running() {
		t.Fatal("worker started before any decoding")
	}

	r.StartedDecoding("call-7", "/shm", 320, 240, false)
	ren, _ := r.Lookup("call-7")
	if !w.Running() {
		t.Error("worker not started by first decoding event")
	}
	if ren.Worker() != w {
		t.Error("renderer not affined to the worker")
	}
	if err := w.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !ren.IsRendering() {
		t.Error("IsRendering() = false after worker sync")
	}

	r.SetBufferSize(4096)
	r.StoppedDecoding("call-7", "/shm", false)
	if err := w.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !ren.IsDestroyed() || ren.IsRendering() {
		t.Error("renderer not stopped and destroyed on the worker")
	}
	if ren.BufferSize() != 4096 {
		t.Errorf("BufferSize() = %d, want 4096", ren.BufferSize())
	}
}

func TestSetBufferSizeAppliesToNewRenderers(t *testing.T) {
	r := newTestRegistry(newMockVideoManager(), Options{BufferSize: 1024})
	r.StartedDecoding("a", "/shm", 1, 1, false)
	r.SetBufferSize(2048)
	r.StartedDecoding("b", "/shm", 1, 1, false)

	a, _ := r.Lookup("a")
	b, _ := r.Lookup("b")
	if a.BufferSize() != 2048 || b.BufferSize() != 2048 {
		t.Errorf("buffer sizes = %d, %d, want 2048", a.BufferSize(), b.BufferSize())
	}
}

func TestDeviceRenderingSignals(t *testing.T) {
	vm := newMockVideoManager("cam0")
	r := newTestRegistry(vm, Options{})
	ctx := context.Background()

	dev, err := r.ActiveDevice(ctx)
	if err != nil {
		t.Fatalf("ActiveDevice: %v", err)
	}
	var started, stopped int
	dev.RenderingStarted().Connect(func(*Renderer) { started++ })
	dev.RenderingStopped().Connect(func(*Renderer) { stopped++ })

	r.StartedDecoding(PreviewKey, "/shm", 1, 1, false)
	r.StoppedDecoding(PreviewKey, "/shm", false)
	r.StartedDecoding("call", "/shm", 1, 1, false)

	if started != 1 || stopped != 1 {
		t.Errorf("device signals started=%d stopped=%d, want 1 and 1", started, stopped)
	}
}

func TestSwitchDevice(t *testing.T) {
	vm := newMockVideoManager("cam0", "cam1")
	r := newTestRegistry(vm, Options{})
	ctx := context.Background()

	devices := r.Devices(ctx)
	if len(devices) != 2 {
		t.Fatalf("Devices() len = %d, want 2", len(devices))
	}
	var changed []string
	r.DeviceModel().ActiveChanged().Connect(func(d *Device) { changed = append(changed, d.ID()) })

	if err := r.SwitchDevice(ctx, devices[1]); err != nil {
		t.Fatalf("SwitchDevice: %v", err)
	}
	if len(vm.switchedTo) != 1 || vm.switchedTo[0] != "cam1" {
		t.Errorf("SwitchInput calls = %v", vm.switchedTo)
	}
	active, err := r.ActiveDevice(ctx)
	if err != nil || active.ID() != "cam1" {
		t.Errorf("ActiveDevice() = %v, %v, want cam1", active, err)
	}
	if len(changed) != 1 {
		t.Errorf("ActiveChanged fired %d times, want 1", len(changed))
	}

	if err := r.SwitchDevice(ctx, NewDevice("ghost")); err == nil {
		t.Error("SwitchDevice to unknown device succeeded")
	}
}

func TestSessionDurationWithWorker(t *testing.T) {
	w := NewWorker()
	defer w.Stop()
	rec := &mockRecorder{}
	r := newTestRegistry(newMockVideoManager(), Options{Worker: w, Recorder: rec})

	// Hold the worker so the queued start has not run when the stop arrives.
	w.Start()
	release := make(chan struct{})
	w.Post(func() { <-release })
	defer close(release)

	r.StartedDecoding("call-9", "/shm", 320, 240, false)
	time.Sleep(10 * time.Millisecond)
	r.StoppedDecoding("call-9", "/shm", false)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.durations) != 1 {
		t.Fatalf("SessionEnded calls = %d, want 1", len(rec.durations))
	}
	if rec.durations[0] < 10*time.Millisecond {
		t.Errorf("session duration = %v, want at least 10ms", rec.durations[0])
	}
}
