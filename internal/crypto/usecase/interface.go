// Package usecase implements business logic orchestration for encryption key
// management: key creation, keychain loading, rotation, and the background
// re-encryption of stored tokens after a rotation.
package usecase

import (
	"context"

	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
)

// RotationAuditor records key lifecycle events in the security audit log.
// Implemented by the audit log use case.
type RotationAuditor interface {
	LogSecurityEvent(ctx context.Context, entry auditUseCase.LogEntry) (*auditDomain.SecurityAuditLog, error)
}

// KeyRepository defines encryption key persistence operations.
type KeyRepository interface {
	Create(ctx context.Context, key *cryptoDomain.EncryptionKey) error
	Get(ctx context.Context, id uuid.UUID) (*cryptoDomain.EncryptionKey, error)
	GetActive(ctx context.Context) (*cryptoDomain.EncryptionKey, error)
	List(ctx context.Context) ([]*cryptoDomain.EncryptionKey, error)
	MaxVersion(ctx context.Context) (uint, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// ReencryptableToken is the narrow view of a stored OAuth account the
// re-encryption job operates on. RefreshToken is nil when the provider did not
// issue one.
type ReencryptableToken struct {
	ID           uuid.UUID
	KeyID        uuid.UUID
	AccessToken  *cryptoDomain.EncryptedToken
	RefreshToken *cryptoDomain.EncryptedToken
	AAD          []byte
}

// EncryptedTokenStore lists and updates stored tokens by encryption key.
// Implemented by the OAuth account repository.
type EncryptedTokenStore interface {
	// ListByKeyIDNot returns up to limit tokens encrypted under any key other
	// than keyID, excluding the given record IDs.
	ListByKeyIDNot(ctx context.Context, keyID uuid.UUID, exclude []uuid.UUID, limit int) ([]*ReencryptableToken, error)

	// UpdateEncryptedTokens persists re-encrypted token material for a record.
	UpdateEncryptedTokens(ctx context.Context, token *ReencryptableToken) error
}

// KeyUseCase manages the encryption key lifecycle.
type KeyUseCase interface {
	// CreateKey creates the initial active encryption key.
	// Returns errors.ErrConflict if an active key already exists.
	CreateKey(ctx context.Context, alg cryptoDomain.Algorithm) (*cryptoDomain.EncryptionKey, error)

	// LoadKeyChain loads and unwraps all keys into a KeyChain.
	LoadKeyChain(ctx context.Context) (*cryptoDomain.KeyChain, error)

	// Rotate creates a new active key and retires the previous one atomically.
	// If no key exists yet the rotation degenerates to initial creation.
	// Stored tokens are re-encrypted by the ReencryptionJob, not inline.
	Rotate(ctx context.Context, alg cryptoDomain.Algorithm) (*cryptoDomain.EncryptionKey, error)
}
