package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	apperrors "github.com/gateproof/authcore/internal/errors"
)

// TokenService generates bearer tokens and derives their storage hashes.
type TokenService interface {
	GenerateToken() (plainToken string, tokenHash string, err error)
	HashToken(plainToken string) string
}

type tokenService struct{}

// NewTokenService creates a TokenService hashing tokens with SHA-256.
func NewTokenService() TokenService {
	return &tokenService{}
}

// GenerateToken creates a 32-byte random token, returning the base64 plain
// form and its SHA-256 hex hash. Only the hash is ever stored.
func (t *tokenService) GenerateToken() (string, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random token")
	}

	plainToken := base64.URLEncoding.EncodeToString(randomBytes)
	return plainToken, t.HashToken(plainToken), nil
}

// HashToken hashes a plain token with SHA-256, hex-encoded. Lookup by hash
// keeps the comparison constant-time at the database index.
func (t *tokenService) HashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}
