package contact

import "errors"

// Domain errors for the contact package.
var (
	// ErrMissingUID is returned when saving a person without a UID.
	ErrMissingUID = errors.New("contact: person has no uid")

	// ErrInvalidUID is returned when a UID cannot be used as a file name.
	ErrInvalidUID = errors.New("contact: uid not usable as file name")

	// ErrPersonNotFound is returned when a person does not exist in a store.
	ErrPersonNotFound = errors.New("contact: person not found")

	// ErrNoRepository is returned when an address book is created without a repository.
	ErrNoRepository = errors.New("contact: address book requires a repository")
)
