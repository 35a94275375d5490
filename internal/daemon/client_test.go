package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ringclient-core/internal/eventloop"
	"github.com/nerrad567/ringclient-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/ringclient-core/internal/model"
	"github.com/nerrad567/ringclient-core/internal/video"
)

// =============================================================================
// Fixtures
// =============================================================================

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// fakeBus records publishes and routes deliver() calls to subscribers.
type fakeBus struct {
	mu           sync.Mutex
	subs         map[string]mqtt.MessageHandler
	published    []published
	subscribeErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBus) Publish(topic string, payload []byte, _ byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{topic, payload, retained})
	return nil
}

func (b *fakeBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return b.subscribeErr
	}
	b.subs[topic] = handler
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, topic)
	return nil
}

func (b *fakeBus) deliver(t *testing.T, topic string, v any) {
	t.Helper()
	var payload []byte
	switch p := v.(type) {
	case nil:
	case []byte:
		payload = p
	default:
		var err error
		payload, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}

	b.mu.Lock()
	var handlers []mqtt.MessageHandler
	for pattern, h := range b.subs {
		if topicMatches(pattern, topic) {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	if len(handlers) == 0 {
		t.Fatalf("no subscriber for %s", topic)
	}
	for _, h := range handlers {
		if err := h(topic, payload); err != nil {
			t.Logf("handler error for %s: %v", topic, err)
		}
	}
}

func (b *fakeBus) publishes() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.published...)
}

func topicMatches(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	s := strings.Split(topic, "/")
	for i, level := range p {
		if level == "#" {
			return true
		}
		if i >= len(s) {
			return false
		}
		if level != "+" && level != s[i] {
			return false
		}
	}
	return len(p) == len(s)
}

type call struct {
	name    string
	key     string
	shm     string
	w, h    int
	isMixer bool
}

type recordingHandler struct {
	calls []call
}

func (r *recordingHandler) StartedDecoding(key, shm string, w, h int, isMixer bool) {
	r.calls = append(r.calls, call{"started", key, shm, w, h, isMixer})
}

func (r *recordingHandler) StoppedDecoding(key, shm string, isMixer bool) {
	r.calls = append(r.calls, call{name: "stopped", key: key, shm: shm, isMixer: isMixer})
}

func (r *recordingHandler) DeviceEvent(context.Context) {
	r.calls = append(r.calls, call{name: "device_event"})
}

func (r *recordingHandler) CapabilitiesChanged(_ context.Context, id string) {
	r.calls = append(r.calls, call{name: "capabilities", key: id})
}

func startedClient(t *testing.T) (*Client, *fakeBus, *eventloop.Loop, *recordingHandler) {
	t.Helper()
	bus := newFakeBus()
	loop := eventloop.New()
	c := New(bus, loop, Options{ClientID: "desk", QoS: 1, Timeout: 50 * time.Millisecond})
	h := &recordingHandler{}
	if err := c.Start(context.Background(), h); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return c, bus, loop, h
}

var topics = mqtt.Topics{}

// =============================================================================
// Signals
// =============================================================================

func TestSignals_PostedInArrivalOrder(t *testing.T) {
	_, bus, loop, h := startedClient(t)

	bus.deliver(t, topics.VideoSignal(mqtt.SignalStartedDecoding),
		DecodingMessage{ID: "local", ShmPath: "/shm/a", Width: 640, Height: 480})
	bus.deliver(t, topics.VideoSignal(mqtt.SignalDeviceEvent), nil)
	bus.deliver(t, topics.VideoSignal(mqtt.SignalStoppedDecoding),
		DecodingMessage{ID: "local", ShmPath: "/shm/a", IsMixer: true})

	if len(h.calls) != 0 {
		t.Fatalf("handler ran before the loop: %v", h.calls)
	}

	if n := loop.Drain(); n != 3 {
		t.Errorf("Drain() = %d, want 3", n)
	}

	want := []call{
		{"started", "local", "/shm/a", 640, 480, false},
		{name: "device_event"},
		{name: "stopped", key: "local", shm: "/shm/a", isMixer: true},
	}
	if len(h.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", h.calls, want)
	}
	for i := range want {
		if h.calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, h.calls[i], want[i])
		}
	}
}

func TestSignals_MalformedPayloadDropped(t *testing.T) {
	_, bus, loop, h := startedClient(t)

	bus.deliver(t, topics.VideoSignal(mqtt.SignalStartedDecoding), []byte("{not json"))
	loop.Drain()

	if len(h.calls) != 0 {
		t.Errorf("calls = %v, want none", h.calls)
	}
}

func TestSignals_IgnoredAfterStop(t *testing.T) {
	c, bus, loop, h := startedClient(t)

	handler := bus.subs[topics.AllVideoSignals()]
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(bus.subs) != 0 {
		t.Errorf("subscriptions after Stop = %d, want 0", len(bus.subs))
	}

	// A message already in flight when Stop ran.
	_ = handler(topics.VideoSignal(mqtt.SignalDeviceEvent), nil)
	loop.Drain()

	if len(h.calls) != 0 {
		t.Errorf("calls = %v, want none", h.calls)
	}
}

func TestStart_Twice(t *testing.T) {
	c, _, _, h := startedClient(t)
	if err := c.Start(context.Background(), h); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestStart_SubscribeFailure(t *testing.T) {
	bus := newFakeBus()
	bus.subscribeErr = mqtt.ErrNotConnected
	c := New(bus, eventloop.New(), Options{})

	if err := c.Start(context.Background(), &recordingHandler{}); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Fatalf("Start() error = %v, want ErrNotConnected", err)
	}

	// A failed Start leaves the client startable.
	bus.subscribeErr = nil
	if err := c.Start(context.Background(), &recordingHandler{}); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
}

// =============================================================================
// Retained state
// =============================================================================

func TestDeviceList_FromRetainedState(t *testing.T) {
	c, bus, _, _ := startedClient(t)

	bus.deliver(t, topics.VideoState(mqtt.StateDevices), DevicesMessage{Devices: []string{"cam0", "cam1"}})
	bus.deliver(t, topics.VideoState(mqtt.StateActiveDevice), ActiveDeviceMessage{Device: "cam1"})

	list, err := c.GetDeviceList(context.Background())
	if err != nil {
		t.Fatalf("GetDeviceList() error = %v", err)
	}
	if len(list) != 2 || list[0] != "cam0" || list[1] != "cam1" {
		t.Errorf("GetDeviceList() = %v", list)
	}

	active, err := c.GetActiveDevice(context.Background())
	if err != nil || active != "cam1" {
		t.Errorf("GetActiveDevice() = %q, %v; want cam1", active, err)
	}

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestDeviceList_TimesOutWithoutState(t *testing.T) {
	c, _, _, _ := startedClient(t)

	if _, err := c.GetDeviceList(context.Background()); !errors.Is(err, ErrNoState) {
		t.Errorf("GetDeviceList() error = %v, want ErrNoState", err)
	}
	if _, err := c.GetActiveDevice(context.Background()); !errors.Is(err, ErrNoState) {
		t.Errorf("GetActiveDevice() error = %v, want ErrNoState", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNoState) {
		t.Errorf("HealthCheck() error = %v, want ErrNoState", err)
	}
}

func TestDeviceList_WaitsForLateState(t *testing.T) {
	bus := newFakeBus()
	c := New(bus, eventloop.New(), Options{Timeout: 2 * time.Second})
	if err := c.Start(context.Background(), &recordingHandler{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	handler := bus.subs[topics.AllVideoState()]
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = handler(topics.VideoState(mqtt.StateDevices), []byte(`{"devices":["cam0"]}`))
	}()

	list, err := c.GetDeviceList(context.Background())
	if err != nil {
		t.Fatalf("GetDeviceList() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("GetDeviceList() = %v, want [cam0]", list)
	}
}

func TestDeviceList_ContextCancelled(t *testing.T) {
	bus := newFakeBus()
	c := New(bus, eventloop.New(), Options{Timeout: time.Minute})
	if err := c.Start(context.Background(), &recordingHandler{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.GetDeviceList(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("GetDeviceList() error = %v, want context.Canceled", err)
	}
}

func TestCapabilities_EscapedDeviceKey(t *testing.T) {
	c, bus, _, _ := startedClient(t)

	id := "v4l2:/dev/video0"
	caps := []video.ChannelCapabilities{{
		Name:        "default",
		Resolutions: []video.Resolution{{Width: 1280, Height: 720}, {Width: 640, Height: 480}},
	}}
	bus.deliver(t, topics.VideoCapabilities(DeviceKey(id)), CapabilitiesMessage{Device: id, Channels: caps})

	got, err := c.GetCapabilities(context.Background(), id)
	if err != nil {
		t.Fatalf("GetCapabilities() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "default" || len(got[0].Resolutions) != 2 {
		t.Fatalf("GetCapabilities() = %+v", got)
	}
	if got[0].Resolutions[0] != (video.Resolution{Width: 1280, Height: 720}) {
		t.Errorf("first resolution = %v", got[0].Resolutions[0])
	}

	// Returned slices are copies.
	got[0].Resolutions[0] = video.Resolution{}
	again, _ := c.GetCapabilities(context.Background(), id)
	if again[0].Resolutions[0].IsZero() {
		t.Error("GetCapabilities() exposed the cache")
	}

	// An empty retained message clears the entry.
	bus.deliver(t, topics.VideoCapabilities(DeviceKey(id)), nil)
	if _, err := c.GetCapabilities(context.Background(), id); !errors.Is(err, ErrNoState) {
		t.Errorf("GetCapabilities() after clear error = %v, want ErrNoState", err)
	}
}

func TestCapabilities_CacheReadDoesNotWait(t *testing.T) {
	bus := newFakeBus()
	loop := eventloop.New()
	c := New(bus, loop, Options{Timeout: time.Minute})
	h := &recordingHandler{}
	if err := c.Start(context.Background(), h); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	begin := time.Now()
	if _, err := c.GetCapabilities(context.Background(), "cam0"); !errors.Is(err, ErrNoState) {
		t.Errorf("GetCapabilities() error = %v, want ErrNoState", err)
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("GetCapabilities() took %v without cached state", elapsed)
	}

	bus.deliver(t, topics.VideoCapabilities("cam0"), CapabilitiesMessage{Device: "cam0"})
	loop.Drain()
	if len(h.calls) != 1 || h.calls[0].name != "capabilities" || h.calls[0].key != "cam0" {
		t.Errorf("handler calls = %+v, want one capabilities call for cam0", h.calls)
	}
}

// =============================================================================
// Commands
// =============================================================================

func TestCommands_Published(t *testing.T) {
	c, bus, _, _ := startedClient(t)
	ctx := context.Background()

	if err := c.StartCamera(ctx); err != nil {
		t.Fatalf("StartCamera() error = %v", err)
	}
	if err := c.SwitchInput(ctx, "cam1"); err != nil {
		t.Fatalf("SwitchInput() error = %v", err)
	}
	if err := c.StopCamera(ctx); err != nil {
		t.Fatalf("StopCamera() error = %v", err)
	}

	got := bus.publishes()
	wantTopics := []string{
		"ring/daemon/video/command/start_camera",
		"ring/daemon/video/command/switch_input",
		"ring/daemon/video/command/stop_camera",
	}
	if len(got) != len(wantTopics) {
		t.Fatalf("published %d messages, want %d", len(got), len(wantTopics))
	}
	for i, want := range wantTopics {
		if got[i].topic != want {
			t.Errorf("publish %d topic = %q, want %q", i, got[i].topic, want)
		}
		if got[i].retained {
			t.Errorf("publish %d retained, commands must not be", i)
		}
	}

	var sw CommandMessage
	if err := json.Unmarshal(got[1].payload, &sw); err != nil {
		t.Fatalf("decoding switch_input: %v", err)
	}
	if sw.Device != "cam1" || sw.ClientID != "desk" || sw.ID == "" {
		t.Errorf("switch_input payload = %+v", sw)
	}
}

func TestCommands_BeforeStart(t *testing.T) {
	c := New(newFakeBus(), eventloop.New(), Options{})
	if err := c.StartCamera(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("StartCamera() error = %v, want ErrNotStarted", err)
	}
}

// =============================================================================
// Registry integration
// =============================================================================

func TestRegistry_PreviewThroughBus(t *testing.T) {
	bus := newFakeBus()
	loop := eventloop.New()
	c := New(bus, loop, Options{Timeout: 50 * time.Millisecond})

	devices := video.NewDeviceModel(c)
	reg := video.NewRegistry(c, devices, video.Options{})
	if err := c.Start(context.Background(), reg); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	bus.deliver(t, topics.VideoState(mqtt.StateDevices), DevicesMessage{Devices: []string{"cam0"}})
	bus.deliver(t, topics.VideoState(mqtt.StateActiveDevice), ActiveDeviceMessage{Device: "cam0"})
	bus.deliver(t, topics.VideoCapabilities("cam0"), CapabilitiesMessage{
		Device:   "cam0",
		Channels: []video.ChannelCapabilities{{Name: "default", Resolutions: []video.Resolution{{Width: 320, Height: 240}}}},
	})

	var started int
	reg.PreviewStarted().Connect(func(*video.Renderer) { started++ })

	bus.deliver(t, topics.VideoSignal(mqtt.SignalDeviceEvent), nil)
	bus.deliver(t, topics.VideoSignal(mqtt.SignalStartedDecoding),
		DecodingMessage{ID: video.PreviewKey, ShmPath: "/shm/local", Width: 320, Height: 240})
	loop.Drain()

	if started != 1 {
		t.Errorf("PreviewStarted fired %d times, want 1", started)
	}
	if !reg.IsPreviewing() {
		t.Error("IsPreviewing() = false after started_decoding")
	}
	if got := len(devices.Devices()); got != 1 {
		t.Errorf("device roster size = %d, want 1", got)
	}
}

func TestRegistry_RosterWithoutCapabilities(t *testing.T) {
	bus := newFakeBus()
	loop := eventloop.New()
	c := New(bus, loop, Options{Timeout: time.Minute})

	devices := video.NewDeviceModel(c)
	reg := video.NewRegistry(c, devices, video.Options{})
	if err := c.Start(context.Background(), reg); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	bus.deliver(t, topics.VideoState(mqtt.StateDevices), DevicesMessage{Devices: []string{"cam0", "cam1", "cam2"}})

	begin := time.Now()
	reg.DeviceEvent(context.Background())
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Fatalf("DeviceEvent() held the caller for %v", elapsed)
	}
	if got := len(devices.Devices()); got != 3 {
		t.Fatalf("device roster size = %d, want 3", got)
	}

	var changed []int
	devices.Master().DataChanged().Connect(func(e model.RowEvent) { changed = append(changed, e.First) })

	bus.deliver(t, topics.VideoCapabilities("cam1"), CapabilitiesMessage{
		Device:   "cam1",
		Channels: []video.ChannelCapabilities{{Name: "default", Resolutions: []video.Resolution{{Width: 640, Height: 480}}}},
	})
	loop.Drain()

	d, _ := devices.Device("cam1")
	if len(d.Channels()) != 1 {
		t.Errorf("cam1 channels = %d after late capabilities, want 1", len(d.Channels()))
	}
	if len(changed) != 1 || changed[0] != 1 {
		t.Errorf("DataChanged rows = %v, want [1]", changed)
	}
}

func TestOffline(t *testing.T) {
	var vm video.VideoManager = Offline{}
	ctx := context.Background()

	if err := vm.StartCamera(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("StartCamera() error = %v", err)
	}
	if _, err := vm.GetDeviceList(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("GetDeviceList() error = %v", err)
	}

	// The device model treats an unavailable daemon as an empty roster.
	if got := video.NewDeviceModel(vm).Reconcile(ctx); got == nil || len(got) != 0 {
		t.Errorf("Reconcile() = %v, want empty non-nil", got)
	}
}
