package domain

import (
	"github.com/gateproof/authcore/internal/errors"
)

// Authentication and authorization errors.
var (
	// ErrClientNotFound indicates a client with the specified ID was not found.
	ErrClientNotFound = errors.Wrap(errors.ErrNotFound, "client not found")

	// ErrTokenNotFound indicates a token with the specified ID was not found.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrInvalidCredentials is the generic failure for unknown clients, wrong
	// secrets and invalid, expired or revoked tokens. Kept indistinct to
	// prevent enumeration.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrClientInactive indicates the client exists but cannot authenticate.
	ErrClientInactive = errors.Wrap(errors.ErrForbidden, "client is not active")

	// ErrClientLocked indicates the client is locked out after repeated
	// authentication failures.
	ErrClientLocked = errors.Wrap(errors.ErrLocked, "client is locked")

	// ErrInsufficientScope indicates the client lacks the required scope.
	ErrInsufficientScope = errors.Wrap(errors.ErrForbidden, "insufficient scope")
)
