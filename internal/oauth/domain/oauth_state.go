package domain

import (
	"time"

	"github.com/google/uuid"
)

// SecurityMetadata records how a state token was produced, persisted with the
// row so a callback can re-check the verifier without recomputing history.
type SecurityMetadata struct {
	Entropy         float64 `json:"entropy"`
	ChallengeMethod string  `json:"challenge_method"`
	SecurityVersion string  `json:"security_version"`
}

// OAuthState is a pending authorization request. Rows are single-use: the
// callback consumes the row atomically, so a replayed state finds nothing.
type OAuthState struct {
	ID               uuid.UUID
	State            string
	CodeVerifier     string
	Provider         Provider
	RedirectURI      string
	UserID           *uuid.UUID
	SecurityMetadata SecurityMetadata
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// Expired reports whether the state outlived its TTL at the given instant.
func (s *OAuthState) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// CallbackResult is the outcome of a successful callback validation.
type CallbackResult struct {
	Code         string
	CodeVerifier string
	Provider     Provider
	RedirectURI  string
	UserID       *uuid.UUID
}
