package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/apiauth/domain"
	apiauthService "github.com/gateproof/authcore/internal/apiauth/service"
)

// TokenOptions configures token issuance and client lockout.
type TokenOptions struct {
	// TokenExpiration is the lifetime of issued bearer tokens.
	TokenExpiration time.Duration
	// MaxFailedAttempts is the number of consecutive wrong secrets before a
	// lockout.
	MaxFailedAttempts int
	// LockDuration is how long a locked client stays locked.
	LockDuration time.Duration
}

func (o TokenOptions) withDefaults() TokenOptions {
	if o.TokenExpiration <= 0 {
		o.TokenExpiration = 4 * time.Hour
	}
	if o.MaxFailedAttempts <= 0 {
		o.MaxFailedAttempts = 5
	}
	if o.LockDuration <= 0 {
		o.LockDuration = 30 * time.Minute
	}
	return o
}

// tokenUseCase implements TokenUseCase.
type tokenUseCase struct {
	clientRepo    ClientRepository
	tokenRepo     TokenRepository
	secretService apiauthService.SecretService
	tokenService  apiauthService.TokenService
	opts          TokenOptions
	now           func() time.Time
}

// NewTokenUseCase creates a new TokenUseCase.
func NewTokenUseCase(
	clientRepo ClientRepository,
	tokenRepo TokenRepository,
	secretService apiauthService.SecretService,
	tokenService apiauthService.TokenService,
	opts TokenOptions,
) TokenUseCase {
	return &tokenUseCase{
		clientRepo:    clientRepo,
		tokenRepo:     tokenRepo,
		secretService: secretService,
		tokenService:  tokenService,
		opts:          opts.withDefaults(),
		now:           time.Now,
	}
}

// Issue authenticates a client and generates a new bearer token.
//
// Unknown clients and wrong secrets both return ErrInvalidCredentials so the
// response does not reveal which half of the credential was wrong. Wrong
// secrets count toward a lockout; a correct secret resets the counter.
func (t *tokenUseCase) Issue(ctx context.Context, input *domain.IssueTokenInput) (*domain.IssueTokenOutput, error) {
	client, err := t.clientRepo.Get(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := t.now().UTC()
	if client.Locked(now) {
		return nil, domain.ErrClientLocked
	}
	if !client.IsActive {
		return nil, domain.ErrClientInactive
	}

	if !t.secretService.CompareSecret(input.ClientSecret, client.Secret) {
		if err := t.recordFailure(ctx, client, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidCredentials
	}

	if client.FailedAttempts > 0 {
		if err := t.clientRepo.UpdateLockState(ctx, client.ID, 0, nil); err != nil {
			return nil, err
		}
	}

	plainToken, tokenHash, err := t.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	token := &domain.Token{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: tokenHash,
		ClientID:  client.ID,
		ExpiresAt: now.Add(t.opts.TokenExpiration),
		CreatedAt: now,
	}
	if err := t.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	return &domain.IssueTokenOutput{
		PlainToken: plainToken,
		ExpiresAt:  token.ExpiresAt,
	}, nil
}

func (t *tokenUseCase) recordFailure(ctx context.Context, client *domain.Client, now time.Time) error {
	attempts := client.FailedAttempts + 1
	var lockedUntil *time.Time
	if attempts >= t.opts.MaxFailedAttempts {
		until := now.Add(t.opts.LockDuration)
		lockedUntil = &until
	}
	return t.clientRepo.UpdateLockState(ctx, client.ID, attempts, lockedUntil)
}

// Authenticate resolves a token hash to its active client.
//
// Token not found, expired and revoked all collapse to ErrInvalidCredentials.
func (t *tokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*domain.Client, error) {
	token, err := t.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !token.Usable(t.now().UTC()) {
		return nil, domain.ErrInvalidCredentials
	}

	client, err := t.clientRepo.Get(ctx, token.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !client.IsActive {
		return nil, domain.ErrClientInactive
	}

	return client, nil
}

// CleanExpired removes tokens past their expiry.
func (t *tokenUseCase) CleanExpired(ctx context.Context) (int64, error) {
	return t.tokenRepo.DeleteExpired(ctx, t.now().UTC())
}
