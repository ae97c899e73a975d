// Package domain defines the core session domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/errors"
)

// Session represents an authenticated browser session. The IP address and
// user agent captured at creation are the baseline the anomaly check compares
// refreshes against.
type Session struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastSeenAt time.Time
}

// Expired reports whether the session has passed its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Domain-specific errors for session operations.
var (
	// ErrSessionNotFound indicates the session does not exist or was revoked.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "session not found")

	// ErrSessionExpired indicates the session has passed its expiry.
	ErrSessionExpired = errors.Wrap(errors.ErrUnauthorized, "session expired")

	// ErrInvalidSessionToken indicates the session token failed verification.
	ErrInvalidSessionToken = errors.Wrap(errors.ErrUnauthorized, "invalid session token")
)
