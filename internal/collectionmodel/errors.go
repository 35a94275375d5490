package collectionmodel

import "errors"

// Domain-specific errors for collection model operations.
var (
	// ErrInvalidIndex is returned for an index that does not address a row.
	ErrInvalidIndex = errors.New("collectionmodel: invalid index")

	// ErrReadOnlyRole is returned by SetData for roles that cannot be written.
	ErrReadOnlyRole = errors.New("collectionmodel: role is read-only")

	// ErrInvalidValue is returned by SetData when the value has the wrong type.
	ErrInvalidValue = errors.New("collectionmodel: invalid value")
)
