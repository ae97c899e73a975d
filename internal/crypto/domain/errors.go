package domain

import (
	"github.com/gateproof/authcore/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors to
// provide context for cryptographic failures.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	// All keys must be exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This covers wrong keys, tampered ciphertext, malformed structure, and
	// algorithm mismatch. The specific cause is deliberately not disclosed to
	// prevent oracle attacks.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrNoActiveKey indicates no active encryption key exists. The
	// create-encryption-key command must be run before tokens can be encrypted.
	ErrNoActiveKey = errors.Wrap(errors.ErrNotFound, "no active encryption key")

	// ErrKeyNotFound indicates the referenced encryption key does not exist.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "encryption key not found")
)
