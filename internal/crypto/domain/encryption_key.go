// Package domain defines the core cryptographic domain models for token
// encryption at rest.
//
// Encryption keys form a two-tier hierarchy: a master key held in a KMS wraps
// each EncryptionKey, and EncryptionKeys encrypt OAuth tokens. Exactly one key
// is active at a time; rotation creates a new active key, marks the prior one
// rotated, and re-encrypts stored tokens under the new key.
package domain

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EncryptionKey represents a token encryption key. The key material is stored
// wrapped by the KMS master key; the plaintext Key field is populated only
// after unwrapping and is never persisted.
type EncryptionKey struct {
	ID           uuid.UUID // Unique identifier (UUIDv7)
	Algorithm    Algorithm // AEAD algorithm this key is used with
	EncryptedKey []byte    // Key material wrapped by the KMS master key
	Key          []byte    // Plaintext key material (populated after unwrap, never persisted)
	Version      uint      // Monotonic version for rotation tracking
	IsActive     bool      // Whether this is the current encryption key
	CreatedAt    time.Time
	RotatedAt    *time.Time // Set when the key is retired by rotation
}

// ExportedKey is the serialization contract for key material round-trips.
// Other components rely on this shape when persisting or transporting keys.
type ExportedKey struct {
	KeyID     uuid.UUID `json:"key_id"`
	Algorithm Algorithm `json:"algorithm"`
	Material  []byte    `json:"material"`
}

// KMSKeeper abstracts the KMS master key used to wrap encryption keys.
// *secrets.Keeper from gocloud.dev implements this interface.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// KeyChain manages unwrapped encryption keys with thread-safe access. The
// active key encrypts new tokens; retired keys remain available to decrypt
// tokens that have not been re-encrypted yet.
type KeyChain struct {
	mu       sync.RWMutex
	activeID uuid.UUID
	keys     map[uuid.UUID]*EncryptionKey
}

// NewKeyChain creates a KeyChain from unwrapped keys. Exactly one key must be
// active; its ID becomes the chain's active ID.
func NewKeyChain(keys []*EncryptionKey) *KeyChain {
	kc := &KeyChain{keys: make(map[uuid.UUID]*EncryptionKey, len(keys))}
	for _, key := range keys {
		kc.keys[key.ID] = key
		if key.IsActive {
			kc.activeID = key.ID
		}
	}
	return kc
}

// Active returns the currently active encryption key, or false if none.
func (k *KeyChain) Active() (*EncryptionKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[k.activeID]
	return key, ok
}

// Get retrieves an encryption key by its ID.
func (k *KeyChain) Get(id uuid.UUID) (*EncryptionKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[id]
	return key, ok
}

// Replace swaps the chain contents for a freshly loaded key set, zeroing the
// material of keys being dropped.
func (k *KeyChain) Replace(keys []*EncryptionKey) {
	k.mu.Lock()
	defer k.mu.Unlock()

	next := make(map[uuid.UUID]*EncryptionKey, len(keys))
	var activeID uuid.UUID
	for _, key := range keys {
		next[key.ID] = key
		if key.IsActive {
			activeID = key.ID
		}
	}

	for id, old := range k.keys {
		if _, kept := next[id]; !kept {
			Zero(old.Key)
		}
	}

	k.keys = next
	k.activeID = activeID
}

// Close securely clears all key material from the chain.
func (k *KeyChain) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range k.keys {
		Zero(key.Key)
	}
	k.keys = map[uuid.UUID]*EncryptionKey{}
	k.activeID = uuid.Nil
}
