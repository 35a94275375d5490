package model

import "errors"

// Domain errors for the model package.
var (
	// ErrEmptyUID is logged when a collection offers an entity without a UID.
	ErrEmptyUID = errors.New("model: entity has empty uid")

	// ErrNotFound is returned when no row has the requested UID.
	ErrNotFound = errors.New("model: entity not found")
)
