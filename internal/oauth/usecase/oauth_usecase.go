package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	cryptoService "github.com/gateproof/authcore/internal/crypto/service"
	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
	oauthService "github.com/gateproof/authcore/internal/oauth/service"
	"github.com/gateproof/authcore/internal/pkce"
)

// Options configures the OAuth flow thresholds.
type Options struct {
	// StateTTL is the lifetime of a pending state row.
	StateTTL time.Duration
	// MinStateLookup pads state lookups that finish earlier, so response
	// timing does not reveal whether a state exists.
	MinStateLookup time.Duration
	// EntropyFloor is the minimum PKCE verifier entropy in bits per symbol.
	EntropyFloor float64
	// ExchangeTimeout bounds the whole exchange including the profile fetch.
	ExchangeTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.StateTTL <= 0 {
		o.StateTTL = 10 * time.Minute
	}
	if o.MinStateLookup <= 0 {
		o.MinStateLookup = 100 * time.Millisecond
	}
	if o.EntropyFloor <= 0 {
		o.EntropyFloor = 4.0
	}
	if o.ExchangeTimeout <= 0 {
		o.ExchangeTimeout = 30 * time.Second
	}
	return o
}

type oauthUseCase struct {
	txManager   database.TxManager
	states      StateRepository
	accounts    AccountRepository
	users       UserResolver
	providers   *oauthService.ProviderRegistry
	stateTokens oauthService.StateTokenGenerator
	redirects   oauthService.RedirectValidator
	detector    oauthService.AttackDetector
	tokenCipher cryptoService.TokenCipher
	keyChain    *cryptoDomain.KeyChain
	audit       AuditLogger
	logger      *slog.Logger
	opts        Options
	now         func() time.Time
}

// NewOAuthUseCase creates the OAuth flow use case.
func NewOAuthUseCase(
	txManager database.TxManager,
	states StateRepository,
	accounts AccountRepository,
	users UserResolver,
	providers *oauthService.ProviderRegistry,
	stateTokens oauthService.StateTokenGenerator,
	redirects oauthService.RedirectValidator,
	detector oauthService.AttackDetector,
	tokenCipher cryptoService.TokenCipher,
	keyChain *cryptoDomain.KeyChain,
	audit AuditLogger,
	logger *slog.Logger,
	opts Options,
) OAuthUseCase {
	return &oauthUseCase{
		txManager:   txManager,
		states:      states,
		accounts:    accounts,
		users:       users,
		providers:   providers,
		stateTokens: stateTokens,
		redirects:   redirects,
		detector:    detector,
		tokenCipher: tokenCipher,
		keyChain:    keyChain,
		audit:       audit,
		logger:      logger,
		opts:        opts.withDefaults(),
		now:         time.Now,
	}
}

func (u *oauthUseCase) GenerateAuthorizationURL(ctx context.Context, req AuthorizationRequest) (*AuthorizationResponse, error) {
	provider, err := u.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	if err := u.redirects.Validate(req.RedirectURI); err != nil {
		if logErr := u.logEvent(ctx, auditUseCase.LogEntry{
			EventType:    auditDomain.EventInvalidRedirectURI,
			UserID:       req.UserID,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
			Payload:      auditDomain.RawPayload{"redirect_uri": req.RedirectURI},
			Success:      false,
			ErrorMessage: err.Error(),
		}); logErr != nil {
			return nil, logErr
		}
		return nil, err
	}

	challenge, err := pkce.GenerateChallenge()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate pkce challenge")
	}
	if challenge.Entropy < u.opts.EntropyFloor {
		return nil, oauthDomain.ErrInsufficientEntropy
	}

	stateUserID := uuid.Nil
	if req.UserID != nil {
		stateUserID = *req.UserID
	}
	stateToken, err := u.stateTokens.Generate(stateUserID)
	if err != nil {
		return nil, err
	}

	now := u.now().UTC()
	state := &oauthDomain.OAuthState{
		ID:           uuid.Must(uuid.NewV7()),
		State:        stateToken,
		CodeVerifier: challenge.Verifier,
		Provider:     req.Provider,
		RedirectURI:  req.RedirectURI,
		UserID:       req.UserID,
		SecurityMetadata: oauthDomain.SecurityMetadata{
			Entropy:         challenge.Entropy,
			ChallengeMethod: challenge.ChallengeMethod,
			SecurityVersion: oauthDomain.SecurityVersion,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(u.opts.StateTTL),
	}
	if err := u.states.Create(ctx, state); err != nil {
		return nil, err
	}

	return &AuthorizationResponse{
		URL:   provider.AuthorizationURL(stateToken, challenge.Challenge, req.RedirectURI, req.Scopes),
		State: stateToken,
	}, nil
}

func (u *oauthUseCase) ValidateCallback(ctx context.Context, params CallbackParams) (*oauthDomain.CallbackResult, error) {
	if params.ProviderError != "" {
		if logErr := u.logEvent(ctx, auditUseCase.LogEntry{
			EventType:    auditDomain.EventOAuthLogin,
			IPAddress:    params.IPAddress,
			UserAgent:    params.UserAgent,
			Payload:      auditDomain.RawPayload{"provider_error": params.ProviderError},
			Success:      false,
			ErrorMessage: params.ProviderErrorDsc,
		}); logErr != nil {
			return nil, logErr
		}
		return nil, apperrors.Wrap(oauthDomain.ErrProviderError, params.ProviderError)
	}

	started := u.now()
	var state *oauthDomain.OAuthState
	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		var consumeErr error
		state, consumeErr = u.states.Consume(ctx, params.State)
		return consumeErr
	})
	if padErr := u.padLookup(ctx, started); padErr != nil {
		return nil, padErr
	}

	if err != nil {
		if apperrors.Is(err, oauthDomain.ErrStateInvalid) {
			u.detector.RecordInvalidState(params.ClientID, params.IPAddress)
			if logErr := u.logEvent(ctx, auditUseCase.LogEntry{
				EventType: auditDomain.EventOAuthStateInvalid,
				IPAddress: params.IPAddress,
				UserAgent: params.UserAgent,
				Success:   false,
			}); logErr != nil {
				return nil, logErr
			}
		}
		return nil, err
	}

	// the row is already consumed: even a failure below cannot be retried
	// with the same state
	if state.Expired(u.now().UTC()) {
		if logErr := u.logEvent(ctx, auditUseCase.LogEntry{
			EventType: auditDomain.EventOAuthStateExpired,
			UserID:    state.UserID,
			IPAddress: params.IPAddress,
			UserAgent: params.UserAgent,
			Success:   false,
		}); logErr != nil {
			return nil, logErr
		}
		return nil, oauthDomain.ErrStateExpired
	}

	if state.SecurityMetadata.Entropy > 0 && state.SecurityMetadata.Entropy < u.opts.EntropyFloor {
		if logErr := u.logEvent(ctx, auditUseCase.LogEntry{
			EventType: auditDomain.EventPKCEFailure,
			UserID:    state.UserID,
			IPAddress: params.IPAddress,
			UserAgent: params.UserAgent,
			Success:   false,
		}); logErr != nil {
			return nil, logErr
		}
		return nil, oauthDomain.ErrInsufficientEntropy
	}

	return &oauthDomain.CallbackResult{
		Code:         params.Code,
		CodeVerifier: state.CodeVerifier,
		Provider:     state.Provider,
		RedirectURI:  state.RedirectURI,
		UserID:       state.UserID,
	}, nil
}

func (u *oauthUseCase) ExchangeCode(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	// one deadline spans the token exchange, the profile fetch and
	// persistence, so a hung provider cannot block the callback indefinitely
	ctx, cancel := context.WithTimeout(ctx, u.opts.ExchangeTimeout)
	defer cancel()

	provider, err := u.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	tokens, err := provider.ExchangeCode(ctx, req.Code, req.CodeVerifier, req.RedirectURI)
	if err != nil {
		if logErr := u.logEvent(ctx, auditUseCase.LogEntry{
			EventType:    auditDomain.EventTokenExchangeFailure,
			UserID:       req.UserID,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
			Payload:      auditDomain.OAuthData{Provider: req.Provider.String()},
			Success:      false,
			ErrorMessage: err.Error(),
		}); logErr != nil {
			return nil, logErr
		}
		// the attempt counts toward lockout only when a user is bound to the
		// state; a pure login has no identity to count against yet
		if req.UserID != nil {
			if logErr := u.audit.LogAuthenticationAttempt(
				ctx, *req.UserID, false, req.IPAddress, req.UserAgent, "token exchange failed",
			); logErr != nil {
				return nil, logErr
			}
		}
		return nil, err
	}

	var profile *oauthDomain.Profile
	if req.FetchProfile || req.UserID == nil {
		profile, err = provider.FetchProfile(ctx, tokens.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	userID, providerAccountID, err := u.resolveIdentity(ctx, req, profile)
	if err != nil {
		return nil, err
	}

	user, err := u.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Locked(u.now().UTC()) {
		if logErr := u.audit.LogAuthenticationAttempt(
			ctx, userID, false, req.IPAddress, req.UserAgent, "account locked",
		); logErr != nil {
			return nil, logErr
		}
		return nil, apperrors.Wrap(apperrors.ErrLocked, "account is locked")
	}

	account, err := u.buildAccount(userID, req.Provider, providerAccountID, profile, tokens)
	if err != nil {
		return nil, err
	}
	if err := u.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}

	if logErr := u.logEvent(ctx, auditUseCase.LogEntry{
		EventType: auditDomain.EventOAuthLink,
		UserID:    &userID,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		Payload: auditDomain.OAuthData{
			Provider:          req.Provider.String(),
			ProviderAccountID: providerAccountID,
		},
		Success: true,
	}); logErr != nil {
		return nil, logErr
	}
	if logErr := u.audit.LogAuthenticationAttempt(
		ctx, userID, true, req.IPAddress, req.UserAgent, "",
	); logErr != nil {
		return nil, logErr
	}

	return &ExchangeResult{UserID: userID, Account: account, Profile: profile}, nil
}

func (u *oauthUseCase) RefreshTokens(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) (*oauthDomain.OAuthAccount, error) {
	client, err := u.providers.Get(provider)
	if err != nil {
		return nil, err
	}

	account, err := u.accounts.GetByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	if account.RefreshToken == nil {
		return nil, oauthDomain.ErrNoRefreshToken
	}

	aad := cryptoService.BindAAD(userID.String(), provider.String())
	key, ok := u.keyChain.Get(account.RefreshToken.KeyID)
	if !ok {
		return nil, cryptoDomain.ErrKeyNotFound
	}
	refreshPlain, err := u.tokenCipher.DecryptToken(account.RefreshToken, key, aad)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(refreshPlain)

	tokens, err := client.RefreshToken(ctx, string(refreshPlain))
	if err != nil {
		if logErr := u.logEvent(ctx, auditUseCase.LogEntry{
			EventType:    auditDomain.EventOAuthRefresh,
			UserID:       &userID,
			Payload:      auditDomain.OAuthData{Provider: provider.String()},
			Success:      false,
			ErrorMessage: err.Error(),
		}); logErr != nil {
			return nil, logErr
		}
		return nil, err
	}
	// providers may rotate the refresh token or keep the old one valid
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = string(refreshPlain)
	}

	updated, err := u.buildAccount(userID, provider, account.ProviderAccountID, nil, tokens)
	if err != nil {
		return nil, err
	}
	updated.ID = account.ID
	updated.Username = account.Username
	updated.Email = account.Email
	updated.CreatedAt = account.CreatedAt
	if err := u.accounts.Upsert(ctx, updated); err != nil {
		return nil, err
	}

	if logErr := u.logEvent(ctx, auditUseCase.LogEntry{
		EventType: auditDomain.EventOAuthRefresh,
		UserID:    &userID,
		Payload:   auditDomain.OAuthData{Provider: provider.String()},
		Success:   true,
	}); logErr != nil {
		return nil, logErr
	}
	return updated, nil
}

func (u *oauthUseCase) Unlink(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) error {
	count, err := u.accounts.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return oauthDomain.ErrLastAuthMethod
	}

	if err := u.accounts.Delete(ctx, userID, provider); err != nil {
		return err
	}
	return u.logEvent(ctx, auditUseCase.LogEntry{
		EventType: auditDomain.EventOAuthUnlink,
		UserID:    &userID,
		Payload:   auditDomain.OAuthData{Provider: provider.String()},
		Success:   true,
	})
}

func (u *oauthUseCase) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*oauthDomain.OAuthAccount, error) {
	return u.accounts.ListByUser(ctx, userID)
}

func (u *oauthUseCase) DetectAttack(ctx context.Context, clientID, ip, userAgent, requestType string) (oauthDomain.AttackAssessment, error) {
	assessment := u.detector.Assess(clientID, ip, userAgent, requestType)
	if assessment.Action == oauthDomain.ActionAllow {
		return assessment, nil
	}

	eventType := auditDomain.EventSuspiciousActivity
	if assessment.RiskLevel == oauthDomain.RiskCritical {
		eventType = auditDomain.EventAttackDetected
	}
	err := u.logEvent(ctx, auditUseCase.LogEntry{
		EventType: eventType,
		IPAddress: ip,
		UserAgent: userAgent,
		Payload: auditDomain.AttackData{
			ClientID:  clientID,
			RiskLevel: string(assessment.RiskLevel),
			Action:    string(assessment.Action),
			Patterns:  assessment.Patterns,
		},
		Success: false,
	})
	return assessment, err
}

func (u *oauthUseCase) CleanExpiredStates(ctx context.Context) (int64, error) {
	return u.states.DeleteExpired(ctx, u.now().UTC())
}

func (u *oauthUseCase) resolveIdentity(ctx context.Context, req ExchangeRequest, profile *oauthDomain.Profile) (uuid.UUID, string, error) {
	if profile != nil {
		userID := uuid.Nil
		if req.UserID != nil {
			userID = *req.UserID
		} else {
			var err error
			userID, err = u.users.FindOrCreate(ctx, profile.Username, profile.Email)
			if err != nil {
				return uuid.Nil, "", err
			}
		}
		return userID, profile.ProviderAccountID, nil
	}

	// no profile: only an already linked account can receive the new tokens
	account, err := u.accounts.GetByUserAndProvider(ctx, *req.UserID, req.Provider)
	if err != nil {
		return uuid.Nil, "", err
	}
	return *req.UserID, account.ProviderAccountID, nil
}

func (u *oauthUseCase) buildAccount(
	userID uuid.UUID,
	provider oauthDomain.Provider,
	providerAccountID string,
	profile *oauthDomain.Profile,
	tokens *oauthDomain.TokenSet,
) (*oauthDomain.OAuthAccount, error) {
	key, ok := u.keyChain.Active()
	if !ok {
		return nil, cryptoDomain.ErrNoActiveKey
	}
	aad := cryptoService.BindAAD(userID.String(), provider.String())

	access, err := u.tokenCipher.EncryptToken([]byte(tokens.AccessToken), key, aad)
	if err != nil {
		return nil, err
	}
	var refresh *cryptoDomain.EncryptedToken
	if tokens.RefreshToken != "" {
		refresh, err = u.tokenCipher.EncryptToken([]byte(tokens.RefreshToken), key, aad)
		if err != nil {
			return nil, err
		}
	}

	now := u.now().UTC()
	account := &oauthDomain.OAuthAccount{
		ID:                uuid.Must(uuid.NewV7()),
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: providerAccountID,
		AccessToken:       access,
		RefreshToken:      refresh,
		TokenExpiresAt:    tokens.ExpiresAt,
		Scopes:            tokens.Scope,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if profile != nil {
		account.Username = profile.Username
		account.Email = profile.Email
	}
	return account, nil
}

// padLookup sleeps until at least MinStateLookup has elapsed since started.
func (u *oauthUseCase) padLookup(ctx context.Context, started time.Time) error {
	remaining := u.opts.MinStateLookup - u.now().Sub(started)
	if remaining <= 0 {
		return nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// logEvent persists a security event. The audit log is the system of record
// for these events, so a failed write fails the surrounding operation.
func (u *oauthUseCase) logEvent(ctx context.Context, entry auditUseCase.LogEntry) error {
	if _, err := u.audit.LogSecurityEvent(ctx, entry); err != nil {
		u.logger.Error(
			"failed to record security event",
			slog.String("event_type", string(entry.EventType)),
			slog.String("error", err.Error()),
		)
		return apperrors.Wrap(err, "failed to record security event")
	}
	return nil
}
