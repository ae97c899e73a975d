package domain

import (
	"github.com/google/uuid"
)

// EncryptedToken is an OAuth token encrypted at rest. Instances are immutable:
// re-encryption produces a new value, never mutates an existing one. The
// authentication tag is appended to the ciphertext by the AEAD.
type EncryptedToken struct {
	Ciphertext []byte    // Ciphertext with the 16-byte authentication tag appended
	Nonce      []byte    // 12-byte nonce, unique per encryption under a given key
	Algorithm  Algorithm // AEAD algorithm used for this token
	KeyID      uuid.UUID // Encryption key the token was encrypted under
}

// Validate checks the structural invariants that must hold before any decrypt
// attempt: known algorithm, exact nonce length, and a ciphertext at least as
// long as the authentication tag. A mismatch is a hard failure, never silently
// ignored.
func (e *EncryptedToken) Validate() error {
	if !e.Algorithm.Valid() {
		return ErrDecryptionFailed
	}
	if len(e.Nonce) != NonceSize {
		return ErrDecryptionFailed
	}
	if len(e.Ciphertext) < TagSize {
		return ErrDecryptionFailed
	}
	if e.KeyID == uuid.Nil {
		return ErrDecryptionFailed
	}
	return nil
}
