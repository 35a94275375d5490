package video

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/ringclient-core/internal/collection"
	"github.com/nerrad567/ringclient-core/internal/model"
	"github.com/nerrad567/ringclient-core/internal/notify"
)

// Device is a video input known to the daemon. Its id is the daemon's
// device name.
type Device struct {
	id string

	mu       sync.RWMutex
	channels []*Channel
	active   int

	renderingStarted notify.Signal[*Renderer]
	renderingStopped notify.Signal[*Renderer]
}

// NewDevice creates a device with the given channels. The first channel is
// active.
func NewDevice(id string, channels ...*Channel) *Device {
	return &Device{id: id, channels: channels}
}

// UID returns the device id.
func (d *Device) UID() string { return d.id }

// ID returns the device id.
func (d *Device) ID() string { return d.id }

// MergeFrom adopts other's channels when d has none.
func (d *Device) MergeFrom(other *Device) bool {
	other.mu.RLock()
	channels := append([]*Channel(nil), other.channels...)
	other.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) > 0 || len(channels) == 0 {
		return false
	}
	d.channels = channels
	d.active = 0
	return true
}

// setChannels replaces the channels, keeping the active channel by name when
// it survives. It reports whether anything changed.
func (d *Device) setChannels(channels []*Channel) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) == 0 && len(channels) == 0 {
		return false
	}
	active := ""
	if d.active < len(d.channels) {
		active = d.channels[d.active].Name()
	}
	d.channels = channels
	d.active = 0
	for i, c := range channels {
		if c.Name() == active {
			d.active = i
			break
		}
	}
	return true
}

// Channels returns the device's channels.
func (d *Device) Channels() []*Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Channel(nil), d.channels...)
}

// ActiveChannel returns the selected channel, or nil when there is none.
func (d *Device) ActiveChannel() *Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.active < 0 || d.active >= len(d.channels) {
		return nil
	}
	return d.channels[d.active]
}

// SetActiveChannel selects the channel called name.
func (d *Device) SetActiveChannel(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.channels {
		if c.Name() == name {
			d.active = i
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrChannelNotFound, name, d.id)
}

// ActiveResolution returns the active channel's active resolution, or the
// zero value.
func (d *Device) ActiveResolution() Resolution {
	if c := d.ActiveChannel(); c != nil {
		return c.ActiveResolution()
	}
	return Resolution{}
}

// RenderingStarted fires when a renderer fed by this device starts.
func (d *Device) RenderingStarted() *notify.Signal[*Renderer] { return &d.renderingStarted }

// RenderingStopped fires when a renderer fed by this device stops.
func (d *Device) RenderingStopped() *notify.Signal[*Renderer] { return &d.renderingStopped }

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

// rosterSource is the master-model contributor handle used for the daemon
// roster, which is the only source of devices.
const rosterSource collection.Handle = collection.NoHandle

// DeviceModel mirrors the daemon's device roster into a master model.
//
// All public methods are thread-safe.
type DeviceModel struct {
	vm       VideoManager
	master   *model.Master[*Device]
	mediator collection.Mediator[*Device]
	logger   Logger

	mu     sync.RWMutex
	byName map[string]*Device
	order  []string
	active string

	activeChanged notify.Signal[*Device]
}

// NewDeviceModel creates an empty device model backed by vm.
func NewDeviceModel(vm VideoManager) *DeviceModel {
	master := model.NewMaster[*Device]("video-device")
	return &DeviceModel{
		vm:       vm,
		master:   master,
		mediator: master.MediatorFor(rosterSource),
		logger:   noopLogger{},
		byName:   make(map[string]*Device),
	}
}

// SetLogger sets the logger for the device model.
func (m *DeviceModel) SetLogger(logger Logger) {
	m.logger = logger
	m.master.SetLogger(logger)
}

// Master returns the device master model.
func (m *DeviceModel) Master() *model.Master[*Device] { return m.master }

// ActiveChanged fires after the active device changed.
func (m *DeviceModel) ActiveChanged() *notify.Signal[*Device] { return &m.activeChanged }

// Reconcile fetches the daemon's device list and brings the local roster in
// line with it, comparing by name. It returns the roster in daemon order. A
// daemon error yields an empty list and leaves the roster untouched.
func (m *DeviceModel) Reconcile(ctx context.Context) []*Device {
	names, err := m.vm.GetDeviceList(ctx)
	if err != nil {
		m.logger.Warn("video device list unavailable", "error", err)
		return []*Device{}
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	m.mu.RLock()
	var added []string
	for _, name := range names {
		if _, ok := m.byName[name]; !ok {
			added = append(added, name)
		}
	}
	var gone []*Device
	for _, name := range m.order {
		if !wanted[name] {
			gone = append(gone, m.byName[name])
		}
	}
	m.mu.RUnlock()

	fresh := make(map[string]*Device, len(added))
	for _, name := range added {
		fresh[name] = m.newDevice(ctx, name)
	}

	m.mu.Lock()
	for _, d := range gone {
		delete(m.byName, d.ID())
	}
	for name, d := range fresh {
		m.byName[name] = d
	}
	m.order = dedupe(names)
	out := make([]*Device, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.byName[name])
	}
	m.mu.Unlock()

	for _, d := range gone {
		m.mediator.RemoveItem(d)
	}
	for _, name := range added {
		m.mediator.AddItem(fresh[name])
	}
	if len(added) > 0 || len(gone) > 0 {
		m.logger.Info("video devices reconciled", "added", len(added), "removed", len(gone), "total", len(out))
	}
	return out
}

// newDevice builds a device from the capabilities known so far. Missing
// capabilities leave the device without channels until RefreshCapabilities.
func (m *DeviceModel) newDevice(ctx context.Context, name string) *Device {
	channels, err := m.channelsOf(ctx, name)
	if err != nil {
		m.logger.Debug("video device capabilities unavailable", "device", name, "error", err)
		return NewDevice(name)
	}
	return NewDevice(name, channels...)
}

func (m *DeviceModel) channelsOf(ctx context.Context, name string) ([]*Channel, error) {
	caps, err := m.vm.GetCapabilities(ctx, name)
	if err != nil {
		return nil, err
	}
	channels := make([]*Channel, 0, len(caps))
	for _, c := range caps {
		channels = append(channels, NewChannel(c.Name, c.Resolutions...))
	}
	return channels, nil
}

// RefreshCapabilities re-reads the channels of device id and emits
// DataChanged on the device master when they changed. Unknown devices are
// ignored; withdrawn capabilities leave the device without channels.
func (m *DeviceModel) RefreshCapabilities(ctx context.Context, id string) {
	d, ok := m.Device(id)
	if !ok {
		return
	}
	channels, err := m.channelsOf(ctx, id)
	if err != nil {
		m.logger.Debug("video device capabilities unavailable", "device", id, "error", err)
		channels = nil
	}
	if d.setChannels(channels) {
		m.master.Touch(id)
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Devices returns the cached roster without asking the daemon.
func (m *DeviceModel) Devices() []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Device, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.byName[name])
	}
	return out
}

// Device returns the cached device with id.
func (m *DeviceModel) Device(id string) (*Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byName[id]
	return d, ok
}

// Current returns the last known active device without asking the daemon.
func (m *DeviceModel) Current() (*Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byName[m.active]
	return d, ok
}

// ActiveDevice asks the daemon for the active device, reconciling the
// roster first if the device is not known yet.
func (m *DeviceModel) ActiveDevice(ctx context.Context) (*Device, error) {
	id, err := m.vm.GetActiveDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting active device: %w", err)
	}
	if id == "" {
		return nil, ErrNoActiveDevice
	}

	d, ok := m.Device(id)
	if !ok {
		m.Reconcile(ctx)
		if d, ok = m.Device(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
		}
	}
	m.setActive(d)
	return d, nil
}

// SwitchTo asks the daemon to use d as input.
func (m *DeviceModel) SwitchTo(ctx context.Context, d *Device) error {
	if _, ok := m.Device(d.ID()); !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, d.ID())
	}
	if err := m.vm.SwitchInput(ctx, d.ID()); err != nil {
		return fmt.Errorf("switching input to %s: %w", d.ID(), err)
	}
	m.setActive(d)
	return nil
}

func (m *DeviceModel) setActive(d *Device) {
	m.mu.Lock()
	changed := m.active != d.ID()
	m.active = d.ID()
	m.mu.Unlock()
	if changed {
		m.activeChanged.Emit(d)
	}
}
