package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/ringclient-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/ringclient-core/internal/video"
)

// defaultTimeout bounds waits for retained state when Options.Timeout is zero.
const defaultTimeout = 2 * time.Second

// Bus is the subset of *mqtt.Client the bridge uses.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Poster runs functions on the model's event loop.
type Poster interface {
	Post(fn func())
}

// SignalHandler receives the daemon's video signals. *video.Registry
// implements it.
type SignalHandler interface {
	StartedDecoding(key, shmPath string, width, height int, isMixer bool)
	StoppedDecoding(key, shmPath string, isMixer bool)
	DeviceEvent(ctx context.Context)
	CapabilitiesChanged(ctx context.Context, id string)
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Client.
type Options struct {
	Topics   mqtt.Topics
	QoS      byte
	ClientID string

	// Timeout bounds waits for retained state. Zero means two seconds.
	Timeout time.Duration

	Logger Logger
}

// Client implements video.VideoManager over MQTT.
//
// All public methods are thread-safe.
type Client struct {
	bus    Bus
	loop   Poster
	opts   Options
	logger Logger

	mu       sync.Mutex
	started  bool
	ctx      context.Context
	handler  SignalHandler
	devices  []string
	haveList bool
	active   string
	haveAct  bool
	caps     map[string][]video.ChannelCapabilities
	changed  chan struct{}
}

var _ video.VideoManager = (*Client)(nil)

// New creates a client that posts signal handling onto loop.
func New(bus Bus, loop Poster, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		bus:     bus,
		loop:    loop,
		opts:    opts,
		logger:  logger,
		caps:    make(map[string][]video.ChannelCapabilities),
		changed: make(chan struct{}),
	}
}

// Start subscribes to the daemon's retained state and signals. Signals are
// delivered to handler on the loop; ctx is handed to DeviceEvent.
func (c *Client) Start(ctx context.Context, handler SignalHandler) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.ctx = ctx
	c.handler = handler
	c.mu.Unlock()

	if err := c.bus.Subscribe(c.opts.Topics.AllVideoState(), c.opts.QoS, c.handleState); err != nil {
		c.reset()
		return fmt.Errorf("daemon: subscribing to state: %w", err)
	}
	if err := c.bus.Subscribe(c.opts.Topics.AllVideoSignals(), c.opts.QoS, c.handleSignal); err != nil {
		_ = c.bus.Unsubscribe(c.opts.Topics.AllVideoState())
		c.reset()
		return fmt.Errorf("daemon: subscribing to signals: %w", err)
	}

	c.logger.Info("daemon bridge started", "prefix", c.opts.Topics.VideoState(""))
	return nil
}

// Stop unsubscribes from the daemon. The state cache is kept.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	errSignals := c.bus.Unsubscribe(c.opts.Topics.AllVideoSignals())
	errState := c.bus.Unsubscribe(c.opts.Topics.AllVideoState())
	c.reset()

	if errSignals != nil {
		return fmt.Errorf("daemon: unsubscribing: %w", errSignals)
	}
	if errState != nil {
		return fmt.Errorf("daemon: unsubscribing: %w", errState)
	}
	return nil
}

func (c *Client) reset() {
	c.mu.Lock()
	c.started = false
	c.handler = nil
	c.mu.Unlock()
}

// HealthCheck reports ErrNoState until the device roster has been received.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("daemon health check: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return ErrNotStarted
	}
	if !c.haveList {
		return ErrNoState
	}
	return nil
}

// =============================================================================
// video.VideoManager
// =============================================================================

// StartCamera asks the daemon to start the local camera.
func (c *Client) StartCamera(ctx context.Context) error {
	return c.command(ctx, mqtt.CommandStartCamera, "")
}

// StopCamera asks the daemon to stop the local camera.
func (c *Client) StopCamera(ctx context.Context) error {
	return c.command(ctx, mqtt.CommandStopCamera, "")
}

// SwitchInput asks the daemon to select device id.
func (c *Client) SwitchInput(ctx context.Context, id string) error {
	return c.command(ctx, mqtt.CommandSwitchInput, id)
}

// GetDeviceList returns the daemon's device roster.
func (c *Client) GetDeviceList(ctx context.Context) ([]string, error) {
	var out []string
	err := c.waitFor(ctx, func() bool {
		if !c.haveList {
			return false
		}
		out = append([]string(nil), c.devices...)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("daemon: device list: %w", err)
	}
	return out, nil
}

// GetActiveDevice returns the daemon's selected device.
func (c *Client) GetActiveDevice(ctx context.Context) (string, error) {
	var out string
	err := c.waitFor(ctx, func() bool {
		if !c.haveAct {
			return false
		}
		out = c.active
		return true
	})
	if err != nil {
		return "", fmt.Errorf("daemon: active device: %w", err)
	}
	return out, nil
}

// GetCapabilities returns the cached channels of device id without waiting.
// Capabilities published later reach the handler as CapabilitiesChanged.
func (c *Client) GetCapabilities(ctx context.Context, id string) ([]video.ChannelCapabilities, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	caps, ok := c.caps[id]
	if !ok {
		return nil, fmt.Errorf("daemon: capabilities of %q: %w", id, ErrNoState)
	}
	return cloneCaps(caps), nil
}

func (c *Client) command(ctx context.Context, name, device string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	payload, err := json.Marshal(CommandMessage{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		ClientID:  c.opts.ClientID,
		Device:    device,
	})
	if err != nil {
		return fmt.Errorf("daemon: encoding %s: %w", name, err)
	}

	if err := c.bus.Publish(c.opts.Topics.VideoCommand(name), payload, c.opts.QoS, false); err != nil {
		return fmt.Errorf("daemon: %s: %w", name, err)
	}
	c.logger.Debug("daemon command sent", "command", name, "device", device)
	return nil
}

// waitFor blocks until ready reports true under the cache lock, the request
// timeout elapses, or ctx ends.
func (c *Client) waitFor(ctx context.Context, ready func() bool) error {
	timer := time.NewTimer(c.opts.Timeout)
	defer timer.Stop()

	for {
		c.mu.Lock()
		if !c.started && !c.haveList {
			c.mu.Unlock()
			return ErrNotStarted
		}
		if ready() {
			c.mu.Unlock()
			return nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-timer.C:
			return ErrNoState
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// =============================================================================
// Inbound messages
// =============================================================================

// handleState updates the retained-state cache. It runs on the MQTT goroutine.
func (c *Client) handleState(topic string, payload []byte) error {
	name := strings.TrimPrefix(topic, c.opts.Topics.VideoState(""))

	switch {
	case name == mqtt.StateDevices:
		var msg DevicesMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decoding %s: %w", topic, err)
		}
		c.update(func() {
			c.devices = msg.Devices
			c.haveList = true
		})

	case name == mqtt.StateActiveDevice:
		var msg ActiveDeviceMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decoding %s: %w", topic, err)
		}
		c.update(func() {
			c.active = msg.Device
			c.haveAct = msg.Device != ""
		})

	case strings.HasPrefix(name, mqtt.StateCapabilities+"/"):
		key := strings.TrimPrefix(name, mqtt.StateCapabilities+"/")
		id, err := url.PathUnescape(key)
		if err != nil {
			return fmt.Errorf("decoding device key %q: %w", key, err)
		}
		// An empty retained payload clears the entry.
		if len(payload) == 0 {
			c.update(func() { delete(c.caps, id) })
		} else {
			var msg CapabilitiesMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				return fmt.Errorf("decoding %s: %w", topic, err)
			}
			c.update(func() { c.caps[id] = msg.Channels })
		}
		c.mu.Lock()
		handler, ctx := c.handler, c.ctx
		c.mu.Unlock()
		if handler != nil {
			c.loop.Post(func() { handler.CapabilitiesChanged(ctx, id) })
		}

	default:
		c.logger.Debug("ignoring daemon state", "topic", topic)
	}
	return nil
}

// update applies fn under the cache lock and wakes waiters.
func (c *Client) update(fn func()) {
	c.mu.Lock()
	fn()
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

// handleSignal decodes a signal and posts its handling to the loop. It runs
// on the MQTT goroutine; paho delivers messages in order, and Post keeps it.
func (c *Client) handleSignal(topic string, payload []byte) error {
	c.mu.Lock()
	handler, ctx := c.handler, c.ctx
	c.mu.Unlock()
	if handler == nil {
		return nil
	}

	name := strings.TrimPrefix(topic, c.opts.Topics.VideoSignal(""))

	switch name {
	case mqtt.SignalStartedDecoding:
		var msg DecodingMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decoding %s: %w", topic, err)
		}
		c.loop.Post(func() {
			handler.StartedDecoding(msg.ID, msg.ShmPath, msg.Width, msg.Height, msg.IsMixer)
		})

	case mqtt.SignalStoppedDecoding:
		var msg DecodingMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decoding %s: %w", topic, err)
		}
		c.loop.Post(func() {
			handler.StoppedDecoding(msg.ID, msg.ShmPath, msg.IsMixer)
		})

	case mqtt.SignalDeviceEvent:
		c.loop.Post(func() { handler.DeviceEvent(ctx) })

	default:
		c.logger.Debug("ignoring daemon signal", "topic", topic)
	}
	return nil
}

// DeviceKey escapes a device id for use as a single topic level.
func DeviceKey(id string) string {
	return url.PathEscape(id)
}

func cloneCaps(in []video.ChannelCapabilities) []video.ChannelCapabilities {
	out := make([]video.ChannelCapabilities, len(in))
	for i, c := range in {
		out[i] = video.ChannelCapabilities{
			Name:        c.Name,
			Resolutions: append([]video.Resolution(nil), c.Resolutions...),
		}
	}
	return out
}
