package auth

import "errors"

// Domain-specific errors for authentication.
var (
	// ErrInvalidCredentials is returned when the passphrase does not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrTokenInvalid is returned for malformed, expired or forged tokens.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrInvalidHash is returned for a stored hash that is not an Argon2id
	// PHC string.
	ErrInvalidHash = errors.New("auth: invalid passphrase hash")
)
