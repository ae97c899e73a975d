package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/apiauth/domain"
	apiauthService "github.com/gateproof/authcore/internal/apiauth/service"
	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
)

// UnlockAuditor records admin unlock events in the security audit log.
// Implemented by the audit log use case.
type UnlockAuditor interface {
	LogSecurityEvent(ctx context.Context, entry auditUseCase.LogEntry) (*auditDomain.SecurityAuditLog, error)
}

// clientUseCase implements ClientUseCase.
type clientUseCase struct {
	clientRepo    ClientRepository
	secretService apiauthService.SecretService
	auditor       UnlockAuditor
	logger        *slog.Logger
}

// NewClientUseCase creates a new ClientUseCase. auditor may be nil, disabling
// unlock audit events.
func NewClientUseCase(
	clientRepo ClientRepository,
	secretService apiauthService.SecretService,
	auditor UnlockAuditor,
	logger *slog.Logger,
) ClientUseCase {
	return &clientUseCase{
		clientRepo:    clientRepo,
		secretService: secretService,
		auditor:       auditor,
		logger:        logger,
	}
}

// Create generates and persists a new client with a random secret.
func (c *clientUseCase) Create(ctx context.Context, input *domain.CreateClientInput) (*domain.CreateClientOutput, error) {
	plainSecret, hashedSecret, err := c.secretService.GenerateSecret()
	if err != nil {
		return nil, err
	}

	client := &domain.Client{
		ID:        uuid.Must(uuid.NewV7()),
		Secret:    hashedSecret,
		Name:      input.Name,
		IsActive:  input.IsActive,
		Scopes:    input.Scopes,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	return &domain.CreateClientOutput{
		ID:          client.ID,
		PlainSecret: plainSecret,
	}, nil
}

// Update modifies an existing client's name, active flag and scopes.
func (c *clientUseCase) Update(ctx context.Context, clientID uuid.UUID, input *domain.UpdateClientInput) error {
	client, err := c.clientRepo.Get(ctx, clientID)
	if err != nil {
		return err
	}

	client.Name = input.Name
	client.IsActive = input.IsActive
	client.Scopes = input.Scopes
	return c.clientRepo.Update(ctx, client)
}

// Get retrieves a client by ID.
func (c *clientUseCase) Get(ctx context.Context, clientID uuid.UUID) (*domain.Client, error) {
	return c.clientRepo.Get(ctx, clientID)
}

// List retrieves clients with pagination.
func (c *clientUseCase) List(ctx context.Context, offset, limit int) ([]*domain.Client, error) {
	return c.clientRepo.List(ctx, offset, limit)
}

// Deactivate soft-deletes the client so it can no longer authenticate while
// its history remains.
func (c *clientUseCase) Deactivate(ctx context.Context, clientID uuid.UUID) error {
	client, err := c.clientRepo.Get(ctx, clientID)
	if err != nil {
		return err
	}

	client.IsActive = false
	return c.clientRepo.Update(ctx, client)
}

// Unlock clears the lockout state, resetting failed_attempts and locked_until.
func (c *clientUseCase) Unlock(ctx context.Context, clientID uuid.UUID) error {
	client, err := c.clientRepo.Get(ctx, clientID)
	if err != nil {
		return err
	}
	if err := c.clientRepo.UpdateLockState(ctx, clientID, 0, nil); err != nil {
		return err
	}

	// the lock state is already cleared, audit delivery is best effort
	if c.auditor != nil {
		_, logErr := c.auditor.LogSecurityEvent(ctx, auditUseCase.LogEntry{
			EventType: auditDomain.EventAccountUnlocked,
			Success:   true,
			Payload: auditDomain.RawPayload{
				"client_id":   clientID.String(),
				"client_name": client.Name,
			},
		})
		if logErr != nil {
			c.logger.Warn("failed to record unlock event",
				slog.String("client_id", clientID.String()),
				slog.String("error", logErr.Error()))
		}
	}
	return nil
}
