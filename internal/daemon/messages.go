package daemon

import (
	"time"

	"github.com/nerrad567/ringclient-core/internal/video"
)

// Wire types exchanged with the daemon. All payloads are JSON.

// DecodingMessage is published by the daemon when a sink starts or stops
// decoding.
// Topic: {daemon}/video/signal/started_decoding, .../stopped_decoding
type DecodingMessage struct {
	// ID is the sink key: "local" for the camera preview, else a call id.
	ID string `json:"id"`

	// ShmPath is the shared-memory path the frames are written to.
	ShmPath string `json:"shm_path"`

	// Width and Height are only meaningful on started_decoding.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	IsMixer bool `json:"is_mixer,omitempty"`
}

// DevicesMessage is the retained input device roster.
// Topic: {daemon}/video/state/devices
// QoS: 1, Retained: Yes
type DevicesMessage struct {
	Devices []string `json:"devices"`
}

// ActiveDeviceMessage is the retained selected input device.
// Topic: {daemon}/video/state/active_device
// QoS: 1, Retained: Yes
type ActiveDeviceMessage struct {
	Device string `json:"device"`
}

// CapabilitiesMessage describes one device's channels.
// Topic: {daemon}/video/state/capabilities/{escaped device id}
// QoS: 1, Retained: Yes
type CapabilitiesMessage struct {
	Device   string                      `json:"device"`
	Channels []video.ChannelCapabilities `json:"channels"`
}

// CommandMessage is sent from the client to the daemon.
// Topic: {daemon}/video/command/{start_camera|stop_camera|switch_input}
type CommandMessage struct {
	// ID uniquely identifies this command in daemon logs.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC).
	Timestamp time.Time `json:"timestamp"`

	// ClientID identifies the issuing client.
	ClientID string `json:"client_id,omitempty"`

	// Device is set for switch_input.
	Device string `json:"device,omitempty"`
}
