package video

import (
	"context"
	"time"
)

// VideoManager is the daemon's video control surface.
type VideoManager interface {
	StartCamera(ctx context.Context) error
	StopCamera(ctx context.Context) error

	// GetActiveDevice returns the id of the selected input device.
	GetActiveDevice(ctx context.Context) (string, error)

	// SwitchInput selects the input device with id.
	SwitchInput(ctx context.Context, id string) error

	// GetDeviceList returns the ids of every known input device.
	GetDeviceList(ctx context.Context) ([]string, error)

	// GetCapabilities returns the channels and resolutions of device id. It
	// must not wait for the daemon; it runs on the event loop.
	GetCapabilities(ctx context.Context, id string) ([]ChannelCapabilities, error)
}

// SessionRecorder receives renderer session telemetry.
type SessionRecorder interface {
	SessionStarted(key, shmPath string, res Resolution)
	SessionEnded(key string, res Resolution, elapsed time.Duration)
}
