package video

import "errors"

// Domain errors for the video package.
var (
	// ErrNoActiveDevice is returned when the daemon reports no active device.
	ErrNoActiveDevice = errors.New("video: no active device")

	// ErrDeviceNotFound is returned for device ids not in the roster.
	ErrDeviceNotFound = errors.New("video: device not found")

	// ErrChannelNotFound is returned for unknown channel names.
	ErrChannelNotFound = errors.New("video: channel not found")

	// ErrResolutionNotFound is returned for resolutions a channel does not offer.
	ErrResolutionNotFound = errors.New("video: resolution not found")

	// ErrWorkerStopped is returned when syncing with a worker that has stopped.
	ErrWorkerStopped = errors.New("video: worker stopped")
)
