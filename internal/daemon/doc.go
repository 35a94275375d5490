// Package daemon bridges the telephony daemon's video surface onto MQTT.
//
// The daemon publishes video signals and retained device state; the client
// publishes camera commands:
//
//	daemon ──signal/started_decoding──▶ Client ──Post──▶ loop ──▶ video.Registry
//	daemon ──state/devices (retained)─▶ Client cache ◀── GetDeviceList
//	daemon ◀──command/start_camera───── Client ◀─────── StartCamera
//
// Signals are decoded on the MQTT goroutine and handed to the event loop in
// arrival order, so the registry only ever runs on the loop. Queries are
// answered from the retained-state cache; an empty cache after the request
// timeout is reported as ErrNoState, which the device model treats as an
// unreachable daemon.
//
// When no daemon is configured, Offline satisfies video.VideoManager and
// fails every call with ErrUnavailable.
package daemon
