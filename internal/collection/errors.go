package collection

import "errors"

// Domain errors for the collection package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, collection.ErrUnsupported) {
//	    // the feature bit is not set
//	}
var (
	// ErrUnsupported is returned when an operation's feature bit is not set
	// or the backend refuses it.
	ErrUnsupported = errors.New("collection: operation not supported")

	// ErrUnknownKind is returned when no factory is registered for a kind.
	ErrUnknownKind = errors.New("collection: unknown kind")

	// ErrKindExists is returned when registering a kind twice.
	ErrKindExists = errors.New("collection: kind already registered")

	// ErrInvalidParams is returned by factories given parameters of the wrong type.
	ErrInvalidParams = errors.New("collection: invalid parameters")

	// ErrParentMismatch is returned when a parent handle does not belong to the
	// same manager as the new collection.
	ErrParentMismatch = errors.New("collection: parent belongs to another manager")

	// ErrNotFound is returned when a handle does not name a live collection.
	ErrNotFound = errors.New("collection: not found")

	// ErrManagerClosed is returned when registering with a manager that has
	// shut down.
	ErrManagerClosed = errors.New("collection: manager closed")

	// ErrItemNotFound is returned when an editor does not own the given item.
	ErrItemNotFound = errors.New("collection: item not found")
)
