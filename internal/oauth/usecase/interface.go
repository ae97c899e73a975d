// Package usecase orchestrates the OAuth flow: authorization URL generation,
// timing-protected callback validation, code-for-token exchange with
// encrypted persistence, token refresh, unlinking, and attack detection.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	cryptoUseCase "github.com/gateproof/authcore/internal/crypto/usecase"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
	userDomain "github.com/gateproof/authcore/internal/user/domain"
)

// StateRepository persists pending OAuth states.
type StateRepository interface {
	Create(ctx context.Context, state *oauthDomain.OAuthState) error

	// Consume atomically reads and deletes the state row. Returns
	// ErrStateInvalid when the state is unknown or already consumed.
	Consume(ctx context.Context, state string) (*oauthDomain.OAuthState, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AccountRepository persists linked OAuth accounts.
type AccountRepository interface {
	Upsert(ctx context.Context, account *oauthDomain.OAuthAccount) error
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) (*oauthDomain.OAuthAccount, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*oauthDomain.OAuthAccount, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) error

	cryptoUseCase.EncryptedTokenStore
}

// UserResolver finds or creates the local user a provider profile maps to
// and exposes the lockout state checked before a login completes.
// Implemented by the user use case.
type UserResolver interface {
	FindOrCreate(ctx context.Context, username, email string) (uuid.UUID, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
}

// AuditLogger records security events and authentication outcomes for the
// OAuth flow. Implemented by the audit log use case.
type AuditLogger interface {
	LogSecurityEvent(ctx context.Context, entry auditUseCase.LogEntry) (*auditDomain.SecurityAuditLog, error)
	LogAuthenticationAttempt(ctx context.Context, userID uuid.UUID, success bool, ip, userAgent, failureReason string) error
}

// AuthorizationRequest describes a GenerateAuthorizationURL call.
type AuthorizationRequest struct {
	Provider    oauthDomain.Provider
	RedirectURI string
	Scopes      []string
	UserID      *uuid.UUID
	IPAddress   string
	UserAgent   string
}

// AuthorizationResponse carries the provider URL and the state bound to it.
type AuthorizationResponse struct {
	URL   string
	State string
}

// CallbackParams are the query parameters of a provider callback plus the
// request context used for attack bookkeeping.
type CallbackParams struct {
	State            string
	Code             string
	ProviderError    string
	ProviderErrorDsc string
	ClientID         string
	IPAddress        string
	UserAgent        string
}

// ExchangeRequest describes a code-for-token exchange.
type ExchangeRequest struct {
	Provider     oauthDomain.Provider
	Code         string
	CodeVerifier string
	RedirectURI  string
	UserID       *uuid.UUID
	FetchProfile bool
	IPAddress    string
	UserAgent    string
}

// ExchangeResult is the outcome of a successful exchange.
type ExchangeResult struct {
	UserID  uuid.UUID
	Account *oauthDomain.OAuthAccount
	Profile *oauthDomain.Profile
}

// OAuthUseCase defines the OAuth flow business operations.
type OAuthUseCase interface {
	// GenerateAuthorizationURL validates the redirect URI and PKCE entropy,
	// persists a single-use state row, and returns the provider URL.
	GenerateAuthorizationURL(ctx context.Context, req AuthorizationRequest) (*AuthorizationResponse, error)

	// ValidateCallback consumes the state row and returns the material needed
	// for the code exchange. The state lookup is padded to a minimum duration
	// and the row is consumed even when validation fails afterwards.
	ValidateCallback(ctx context.Context, params CallbackParams) (*oauthDomain.CallbackResult, error)

	// ExchangeCode exchanges the code for tokens, resolves the local user,
	// and upserts the linked account with encrypted tokens. The outcome is
	// recorded as an authentication attempt; a locked user cannot complete
	// the exchange.
	ExchangeCode(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error)

	// RefreshTokens exchanges the stored refresh token for fresh tokens and
	// re-encrypts them under the active key.
	RefreshTokens(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) (*oauthDomain.OAuthAccount, error)

	// Unlink removes the provider link unless it is the user's last
	// authentication method.
	Unlink(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) error

	// ListAccounts returns the user's linked provider accounts.
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]*oauthDomain.OAuthAccount, error)

	// DetectAttack scores the request against abuse patterns and audits
	// anything that is not allowed through. The error reports a failed audit
	// write; the assessment is valid either way.
	DetectAttack(ctx context.Context, clientID, ip, userAgent, requestType string) (oauthDomain.AttackAssessment, error)

	// CleanExpiredStates removes expired state rows.
	CleanExpiredStates(ctx context.Context) (int64, error)
}
