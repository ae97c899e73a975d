// Package usecase implements business logic orchestration for admin API
// authentication.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/apiauth/domain"
)

// ClientRepository defines persistence operations for admin clients.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	Get(ctx context.Context, clientID uuid.UUID) (*domain.Client, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Client, error)
	UpdateLockState(ctx context.Context, clientID uuid.UUID, failedAttempts int, lockedUntil *time.Time) error
}

// TokenRepository defines persistence operations for bearer tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *domain.Token) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Token, error)
	Revoke(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ClientUseCase defines business logic operations for managing admin clients.
type ClientUseCase interface {
	// Create generates a new client with a random secret. The plain secret is
	// returned once and never stored.
	Create(ctx context.Context, input *domain.CreateClientInput) (*domain.CreateClientOutput, error)

	// Update modifies name, active flag and scopes. Secret and ID are fixed.
	Update(ctx context.Context, clientID uuid.UUID, input *domain.UpdateClientInput) error

	// Get retrieves a client by ID.
	Get(ctx context.Context, clientID uuid.UUID) (*domain.Client, error)

	// List retrieves clients with pagination.
	List(ctx context.Context, offset, limit int) ([]*domain.Client, error)

	// Deactivate soft-deletes a client by clearing its active flag.
	Deactivate(ctx context.Context, clientID uuid.UUID) error

	// Unlock clears the lockout state for a client.
	Unlock(ctx context.Context, clientID uuid.UUID) error
}

// TokenUseCase defines token issuance and authentication.
type TokenUseCase interface {
	// Issue authenticates client credentials and creates a bearer token.
	// Repeated failures lock the client out.
	Issue(ctx context.Context, input *domain.IssueTokenInput) (*domain.IssueTokenOutput, error)

	// Authenticate resolves a token hash to its active client.
	Authenticate(ctx context.Context, tokenHash string) (*domain.Client, error)

	// CleanExpired removes tokens past their expiry.
	CleanExpired(ctx context.Context) (int64, error)
}
