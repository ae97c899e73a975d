package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is a bearer token issued to an admin client. Only the SHA-256 hash is
// stored; the plain token is shown exactly once at issuance.
type Token struct {
	ID        uuid.UUID
	TokenHash string
	ClientID  uuid.UUID
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token is neither expired nor revoked at the
// given instant.
func (t *Token) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
