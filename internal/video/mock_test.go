package video

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errDaemonDown = errors.New("daemon unreachable")

// mockVideoManager is a scriptable daemon.
type mockVideoManager struct {
	mu           sync.Mutex
	devices      []string
	active       string
	caps         map[string][]ChannelCapabilities
	listErr      error
	startCalls   int
	stopCalls    int
	switchedTo   []string
	capsRequests int
}

func newMockVideoManager(devices ...string) *mockVideoManager {
	active := ""
	if len(devices) > 0 {
		active = devices[0]
	}
	return &mockVideoManager{
		devices: devices,
		active:  active,
		caps:    make(map[string][]ChannelCapabilities),
	}
}

func (m *mockVideoManager) StartCamera(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	return nil
}

func (m *mockVideoManager) StopCamera(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return nil
}

func (m *mockVideoManager) GetActiveDevice(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return "", m.listErr
	}
	return m.active, nil
}

func (m *mockVideoManager) SwitchInput(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switchedTo = append(m.switchedTo, id)
	m.active = id
	return nil
}

func (m *mockVideoManager) GetDeviceList(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.devices...), nil
}

func (m *mockVideoManager) GetCapabilities(_ context.Context, id string) ([]ChannelCapabilities, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capsRequests++
	caps, ok := m.caps[id]
	if !ok {
		return nil, errors.New("no capabilities")
	}
	return caps, nil
}

func (m *mockVideoManager) setDevices(devices ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = devices
}

// mockRecorder records session telemetry.
type mockRecorder struct {
	mu        sync.Mutex
	started   []string
	ended     []string
	durations []time.Duration
}

func (m *mockRecorder) SessionStarted(key, _ string, _ Resolution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, key)
}

func (m *mockRecorder) SessionEnded(key string, _ Resolution, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, key)
	m.durations = append(m.durations, elapsed)
}

// signalCounts counts registry signal emissions.
type signalCounts struct {
	previewStarted int
	previewStopped int
	callInitiated  int
	callEnded      int
	stateChanges   []bool
	lastRenderer   *Renderer
}

func countSignals(r *Registry) *signalCounts {
	c := &signalCounts{}
	r.PreviewStarted().Connect(func(ren *Renderer) { c.previewStarted++; c.lastRenderer = ren })
	r.PreviewStopped().Connect(func(*Renderer) { c.previewStopped++ })
	r.VideoCallInitiated().Connect(func(ren *Renderer) { c.callInitiated++; c.lastRenderer = ren })
	r.VideoCallEnded().Connect(func(*Renderer) { c.callEnded++ })
	r.PreviewStateChanged().Connect(func(on bool) { c.stateChanges = append(c.stateChanges, on) })
	return c
}
