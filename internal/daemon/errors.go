package daemon

import "errors"

// Domain-specific errors for daemon operations.
var (
	// ErrNoState is returned when the daemon has not published the
	// requested state within the request timeout.
	ErrNoState = errors.New("daemon: state not available")

	// ErrUnavailable is returned by Offline for every call.
	ErrUnavailable = errors.New("daemon: not configured")

	// ErrNotStarted is returned when a command is issued before Start.
	ErrNotStarted = errors.New("daemon: client not started")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("daemon: client already started")
)
