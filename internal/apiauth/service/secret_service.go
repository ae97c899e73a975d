// Package service provides credential generation and verification for admin
// API clients. Secrets are hashed with Argon2id; bearer tokens are random and
// stored as SHA-256 hashes.
package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/gateproof/authcore/internal/errors"
)

// SecretService generates and verifies hashed client secrets.
type SecretService interface {
	GenerateSecret() (plainSecret string, hashedSecret string, err error)
	HashSecret(plainSecret string) (string, error)
	CompareSecret(plainSecret, hashedSecret string) bool
}

type secretService struct {
	hasher *pwdhash.PasswordHasher
}

// NewSecretService creates a SecretService using Argon2id with the moderate
// policy.
func NewSecretService() SecretService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// only reachable with an invalid policy constant
		panic(err)
	}
	return &secretService{hasher: hasher}
}

// GenerateSecret creates a 32-byte random secret, returning the base64 plain
// form and its Argon2id hash.
func (s *secretService) GenerateSecret() (string, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random secret")
	}

	plainSecret := base64.URLEncoding.EncodeToString(randomBytes)
	hashedSecret, err := s.HashSecret(plainSecret)
	if err != nil {
		return "", "", err
	}
	return plainSecret, hashedSecret, nil
}

// HashSecret hashes a plain secret with Argon2id.
func (s *secretService) HashSecret(plainSecret string) (string, error) {
	hashedSecret, err := s.hasher.Hash([]byte(plainSecret))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash secret")
	}
	return hashedSecret, nil
}

// CompareSecret verifies a plain secret against its hash in constant time.
func (s *secretService) CompareSecret(plainSecret, hashedSecret string) bool {
	ok, err := s.hasher.Verify([]byte(plainSecret), hashedSecret)
	if err != nil {
		return false
	}
	return ok
}
