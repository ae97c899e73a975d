package service

import (
	"fmt"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
)

// TokenCipherService encrypts and decrypts OAuth tokens under managed
// encryption keys. Decryption failures are always reported as the generic
// cryptoDomain.ErrDecryptionFailed: a wrong key, a flipped ciphertext bit, a
// malformed structure, and an algorithm mismatch are indistinguishable to the
// caller, closing the oracle that distinguishing them would open.
type TokenCipherService struct {
	aeadManager AEADManager
}

// NewTokenCipher creates a new TokenCipherService using the provided AEADManager.
func NewTokenCipher(aeadManager AEADManager) *TokenCipherService {
	return &TokenCipherService{aeadManager: aeadManager}
}

// BindAAD builds the additional authenticated data binding a token to its
// owning user and provider. Tokens encrypted with this binding cannot be
// replayed under a different account without failing authentication.
func BindAAD(userID, provider string) []byte {
	return []byte(userID + "|" + provider)
}

// EncryptToken encrypts plaintext under the given key with optional AAD.
// The key must carry unwrapped material and a valid algorithm. A fresh
// 12-byte nonce is generated per call; nonces are never reused for a key.
func (t *TokenCipherService) EncryptToken(
	plaintext []byte,
	key *cryptoDomain.EncryptionKey,
	aad []byte,
) (*cryptoDomain.EncryptedToken, error) {
	aead, err := t.aeadManager.CreateCipher(key.Key, key.Algorithm)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, err := aead.Encrypt(plaintext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt token: %w", err)
	}

	return &cryptoDomain.EncryptedToken{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Algorithm:  key.Algorithm,
		KeyID:      key.ID,
	}, nil
}

// DecryptToken decrypts a token under the given key with optional AAD.
//
// The token's structural invariants (algorithm, nonce length, minimum
// ciphertext length) are checked before the AEAD open, and the token's
// algorithm and key reference must match the key. Every failure path returns
// cryptoDomain.ErrDecryptionFailed with no further detail.
func (t *TokenCipherService) DecryptToken(
	token *cryptoDomain.EncryptedToken,
	key *cryptoDomain.EncryptionKey,
	aad []byte,
) ([]byte, error) {
	if err := token.Validate(); err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if token.Algorithm != key.Algorithm || token.KeyID != key.ID {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	aead, err := t.aeadManager.CreateCipher(key.Key, key.Algorithm)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	plaintext, err := aead.Decrypt(token.Ciphertext, token.Nonce, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}
