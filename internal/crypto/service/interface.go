// Package service provides cryptographic services for OAuth token encryption.
// Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305) and key lifecycle
// management backed by a KMS master key.
package service

import (
	"context"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// TokenCipher encrypts and decrypts OAuth tokens under managed encryption keys.
type TokenCipher interface {
	// EncryptToken encrypts plaintext under the given key with optional AAD.
	// A fresh nonce is generated per call.
	EncryptToken(plaintext []byte, key *cryptoDomain.EncryptionKey, aad []byte) (*cryptoDomain.EncryptedToken, error)

	// DecryptToken decrypts a token. Any failure, including structural or
	// algorithm mismatch, is reported as cryptoDomain.ErrDecryptionFailed.
	DecryptToken(token *cryptoDomain.EncryptedToken, key *cryptoDomain.EncryptionKey, aad []byte) ([]byte, error)
}

// KeyManager manages encryption key generation and KMS wrapping.
type KeyManager interface {
	// GenerateKey creates a new encryption key wrapped by the KMS master key.
	GenerateKey(ctx context.Context, keeper cryptoDomain.KMSKeeper, alg cryptoDomain.Algorithm) (*cryptoDomain.EncryptionKey, error)

	// UnwrapKey decrypts the key material of a stored key using the KMS master key.
	UnwrapKey(ctx context.Context, keeper cryptoDomain.KMSKeeper, key *cryptoDomain.EncryptionKey) error

	// ExportKey serializes plaintext key material to the storable contract form.
	ExportKey(key *cryptoDomain.EncryptionKey) (*cryptoDomain.ExportedKey, error)

	// ImportKey reconstructs an encryption key from its exported form.
	ImportKey(exported *cryptoDomain.ExportedKey) (*cryptoDomain.EncryptionKey, error)
}
