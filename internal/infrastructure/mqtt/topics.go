package mqtt

import "fmt"

// Topic prefixes for the ringclient bus.
//
// The telephony daemon owns everything under its prefix:
//
//	{daemon}/video/signal/{name}        daemon → client events
//	{daemon}/video/command/{name}       client → daemon requests
//	{daemon}/video/state/{name}         retained daemon state
//
// Clients announce themselves under TopicPrefixClient.
const (
	// DefaultDaemonPrefix is the daemon root used when Topics.Daemon is empty.
	DefaultDaemonPrefix = "ring/daemon"

	// TopicPrefixClient is the base for per-client topics.
	TopicPrefixClient = "ring/client"
)

// Video signal names published by the daemon.
const (
	SignalDeviceEvent     = "device_event"
	SignalStartedDecoding = "started_decoding"
	SignalStoppedDecoding = "stopped_decoding"
)

// Video command names accepted by the daemon.
const (
	CommandStartCamera = "start_camera"
	CommandStopCamera  = "stop_camera"
	CommandSwitchInput = "switch_input"
)

// Retained video state names published by the daemon.
const (
	StateDevices      = "devices"
	StateActiveDevice = "active_device"
	StateCapabilities = "capabilities"
)

// Topics provides builders for ringclient MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{Daemon: "ring/daemon"}
//	topic := topics.VideoSignal(mqtt.SignalStartedDecoding)
//	// Returns: "ring/daemon/video/signal/started_decoding"
type Topics struct {
	// Daemon is the daemon topic root. Empty means DefaultDaemonPrefix.
	Daemon string
}

func (t Topics) daemon() string {
	if t.Daemon == "" {
		return DefaultDaemonPrefix
	}
	return t.Daemon
}

// =============================================================================
// Daemon Video Topics
// =============================================================================

// VideoSignal returns the topic for a video signal from the daemon.
//
// Example: ring/daemon/video/signal/started_decoding
func (t Topics) VideoSignal(name string) string {
	return fmt.Sprintf("%s/video/signal/%s", t.daemon(), name)
}

// VideoCommand returns the topic for a video command to the daemon.
//
// Example: ring/daemon/video/command/start_camera
func (t Topics) VideoCommand(name string) string {
	return fmt.Sprintf("%s/video/command/%s", t.daemon(), name)
}

// VideoState returns the retained video state topic for name.
//
// Example: ring/daemon/video/state/devices
func (t Topics) VideoState(name string) string {
	return fmt.Sprintf("%s/video/state/%s", t.daemon(), name)
}

// VideoCapabilities returns the retained capabilities topic for one device.
//
// Example: ring/daemon/video/state/capabilities/v4l2:%2Fdev%2Fvideo0
func (t Topics) VideoCapabilities(deviceKey string) string {
	return fmt.Sprintf("%s/video/state/%s/%s", t.daemon(), StateCapabilities, deviceKey)
}

// =============================================================================
// Client Topics
// =============================================================================

// ClientStatus returns the retained online/offline topic for a client.
//
// Example: ring/client/desk-phone/status
func (Topics) ClientStatus(clientID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixClient, clientID)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllVideoSignals returns a pattern matching every video signal.
//
// Pattern: ring/daemon/video/signal/+
func (t Topics) AllVideoSignals() string {
	return fmt.Sprintf("%s/video/signal/+", t.daemon())
}

// AllVideoState returns a pattern matching all retained video state,
// including per-device capabilities.
//
// Pattern: ring/daemon/video/state/#
func (t Topics) AllVideoState() string {
	return fmt.Sprintf("%s/video/state/#", t.daemon())
}

// AllClientStatus returns a pattern matching every client status topic.
//
// Pattern: ring/client/+/status
func (Topics) AllClientStatus() string {
	return TopicPrefixClient + "/+/status"
}
