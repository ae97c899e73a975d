package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
)

// KeyManagerService implements the KeyManager interface for the token
// encryption key lifecycle.
//
// Encryption keys are generated as random 256-bit values and stored wrapped
// by the KMS master key. The plaintext material only exists in memory after
// an explicit unwrap and is zeroed by the owning KeyChain on replacement or
// shutdown.
type KeyManagerService struct{}

// NewKeyManager creates a new KeyManagerService instance.
func NewKeyManager() *KeyManagerService {
	return &KeyManagerService{}
}

// GenerateKey creates a new 256-bit encryption key for the given algorithm,
// wrapped by the KMS master key. The returned key carries both the wrapped
// and the plaintext material; the caller decides what to persist.
func (km *KeyManagerService) GenerateKey(
	ctx context.Context,
	keeper cryptoDomain.KMSKeeper,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.EncryptionKey, error) {
	if !alg.Valid() {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}

	material := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	wrapped, err := keeper.Encrypt(ctx, material)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap key material: %w", err)
	}

	return &cryptoDomain.EncryptionKey{
		ID:           uuid.Must(uuid.NewV7()),
		Algorithm:    alg,
		EncryptedKey: wrapped,
		Key:          material,
		Version:      1,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// UnwrapKey decrypts the wrapped key material of a stored key in place,
// populating the plaintext Key field.
func (km *KeyManagerService) UnwrapKey(
	ctx context.Context,
	keeper cryptoDomain.KMSKeeper,
	key *cryptoDomain.EncryptionKey,
) error {
	material, err := keeper.Decrypt(ctx, key.EncryptedKey)
	if err != nil {
		return fmt.Errorf("failed to unwrap key material: %w", err)
	}
	if len(material) != cryptoDomain.KeySize {
		cryptoDomain.Zero(material)
		return cryptoDomain.ErrInvalidKeySize
	}

	key.Key = material
	return nil
}

// ExportKey serializes plaintext key material to the storable contract form.
// The key must be unwrapped first.
func (km *KeyManagerService) ExportKey(key *cryptoDomain.EncryptionKey) (*cryptoDomain.ExportedKey, error) {
	if len(key.Key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	material := make([]byte, len(key.Key))
	copy(material, key.Key)

	return &cryptoDomain.ExportedKey{
		KeyID:     key.ID,
		Algorithm: key.Algorithm,
		Material:  material,
	}, nil
}

// ImportKey reconstructs an encryption key from its exported form.
func (km *KeyManagerService) ImportKey(exported *cryptoDomain.ExportedKey) (*cryptoDomain.EncryptionKey, error) {
	if !exported.Algorithm.Valid() {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
	if len(exported.Material) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	material := make([]byte, len(exported.Material))
	copy(material, exported.Material)

	return &cryptoDomain.EncryptionKey{
		ID:        exported.KeyID,
		Algorithm: exported.Algorithm,
		Key:       material,
	}, nil
}
