package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
)

// OAuthAccount links a local user to one provider account. Tokens are stored
// encrypted; the row is upserted on every login so tokens stay current.
type OAuthAccount struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Provider          Provider
	ProviderAccountID string
	Username          string
	Email             string
	AccessToken       *cryptoDomain.EncryptedToken
	RefreshToken      *cryptoDomain.EncryptedToken
	TokenExpiresAt    *time.Time
	Scopes            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Profile is the subset of a provider user profile the exchange flow needs.
type Profile struct {
	ProviderAccountID string
	Username          string
	Email             string
	Name              string
	AvatarURL         string
}

// TokenSet is the plaintext token material returned by a provider token
// endpoint. Callers must encrypt it before persisting.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    *time.Time
}
