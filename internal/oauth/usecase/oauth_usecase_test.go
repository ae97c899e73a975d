package usecase

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	cryptoService "github.com/gateproof/authcore/internal/crypto/service"
	cryptoUseCase "github.com/gateproof/authcore/internal/crypto/usecase"
	apperrors "github.com/gateproof/authcore/internal/errors"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
	oauthService "github.com/gateproof/authcore/internal/oauth/service"
	userDomain "github.com/gateproof/authcore/internal/user/domain"
)

type fakeTxManager struct{}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockStateRepository struct {
	mock.Mock
}

func (m *mockStateRepository) Create(ctx context.Context, state *oauthDomain.OAuthState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *mockStateRepository) Consume(ctx context.Context, state string) (*oauthDomain.OAuthState, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.OAuthState), args.Error(1)
}

func (m *mockStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Upsert(ctx context.Context, account *oauthDomain.OAuthAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) (*oauthDomain.OAuthAccount, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.OAuthAccount), args.Error(1)
}

func (m *mockAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*oauthDomain.OAuthAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*oauthDomain.OAuthAccount), args.Error(1)
}

func (m *mockAccountRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockAccountRepository) Delete(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) error {
	args := m.Called(ctx, userID, provider)
	return args.Error(0)
}

func (m *mockAccountRepository) ListByKeyIDNot(ctx context.Context, keyID uuid.UUID, exclude []uuid.UUID, limit int) ([]*cryptoUseCase.ReencryptableToken, error) {
	args := m.Called(ctx, keyID, exclude, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoUseCase.ReencryptableToken), args.Error(1)
}

func (m *mockAccountRepository) UpdateEncryptedTokens(ctx context.Context, token *cryptoUseCase.ReencryptableToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type mockUserResolver struct {
	mock.Mock
}

func (m *mockUserResolver) FindOrCreate(ctx context.Context, username, email string) (uuid.UUID, error) {
	args := m.Called(ctx, username, email)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockUserResolver) GetUserByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

type mockAuditLogger struct {
	mock.Mock
}

func (m *mockAuditLogger) LogSecurityEvent(ctx context.Context, entry auditUseCase.LogEntry) (*auditDomain.SecurityAuditLog, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.SecurityAuditLog), args.Error(1)
}

func (m *mockAuditLogger) LogAuthenticationAttempt(
	ctx context.Context,
	userID uuid.UUID,
	success bool,
	ip, userAgent, failureReason string,
) error {
	args := m.Called(ctx, userID, success, ip, userAgent, failureReason)
	return args.Error(0)
}

type fakeProvider struct {
	name         oauthDomain.Provider
	exchangeFn   func(ctx context.Context, code, verifier, redirectURI string) (*oauthDomain.TokenSet, error)
	refreshFn    func(ctx context.Context, refreshToken string) (*oauthDomain.TokenSet, error)
	profileFn    func(ctx context.Context, accessToken string) (*oauthDomain.Profile, error)
	lastExchange struct {
		code, verifier, redirectURI string
	}
}

func (f *fakeProvider) Name() oauthDomain.Provider {
	return f.name
}

func (f *fakeProvider) AuthorizationURL(state, codeChallenge, redirectURI string, scopes []string) string {
	query := url.Values{}
	query.Set("state", state)
	query.Set("code_challenge", codeChallenge)
	query.Set("redirect_uri", redirectURI)
	return "https://provider.example.com/authorize?" + query.Encode()
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (*oauthDomain.TokenSet, error) {
	f.lastExchange.code = code
	f.lastExchange.verifier = verifier
	f.lastExchange.redirectURI = redirectURI
	return f.exchangeFn(ctx, code, verifier, redirectURI)
}

func (f *fakeProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauthDomain.TokenSet, error) {
	return f.refreshFn(ctx, refreshToken)
}

func (f *fakeProvider) FetchProfile(ctx context.Context, accessToken string) (*oauthDomain.Profile, error) {
	return f.profileFn(ctx, accessToken)
}

type fakeDetector struct {
	invalidStates []string
	assessment    oauthDomain.AttackAssessment
}

func (f *fakeDetector) Assess(clientID, ip, userAgent, requestType string) oauthDomain.AttackAssessment {
	return f.assessment
}

func (f *fakeDetector) RecordInvalidState(clientID, ip string) {
	f.invalidStates = append(f.invalidStates, clientID+"|"+ip)
}

type testEnv struct {
	states   *mockStateRepository
	accounts *mockAccountRepository
	users    *mockUserResolver
	audit    *mockAuditLogger
	provider *fakeProvider
	detector *fakeDetector
	keyChain *cryptoDomain.KeyChain
	cipher   cryptoService.TokenCipher
	uc       OAuthUseCase
}

func newActiveKey(t *testing.T) *cryptoDomain.EncryptionKey {
	t.Helper()
	key := make([]byte, cryptoDomain.KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return &cryptoDomain.EncryptionKey{
		ID:        uuid.Must(uuid.NewV7()),
		Algorithm: cryptoDomain.AESGCM,
		Key:       key,
		Version:   1,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		states:   &mockStateRepository{},
		accounts: &mockAccountRepository{},
		users:    &mockUserResolver{},
		audit:    &mockAuditLogger{},
		detector: &fakeDetector{assessment: oauthDomain.AttackAssessment{RiskLevel: oauthDomain.RiskLow, Action: oauthDomain.ActionAllow}},
		provider: &fakeProvider{name: oauthDomain.Github},
		keyChain: cryptoDomain.NewKeyChain([]*cryptoDomain.EncryptionKey{newActiveKey(t)}),
		cipher:   cryptoService.NewTokenCipher(cryptoService.NewAEADManager()),
	}

	env.uc = NewOAuthUseCase(
		&fakeTxManager{},
		env.states,
		env.accounts,
		env.users,
		oauthService.NewProviderRegistry(env.provider),
		oauthService.NewStateTokenGenerator(),
		oauthService.NewRedirectValidator([]string{"https://app.example.com/cb"}),
		env.detector,
		env.cipher,
		env.keyChain,
		env.audit,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		opts,
	)
	return env
}

func TestOAuthUseCase_GenerateAuthorizationURL(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	var created *oauthDomain.OAuthState
	env.states.On("Create", ctx, mock.AnythingOfType("*domain.OAuthState")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*oauthDomain.OAuthState) }).
		Return(nil)

	resp, err := env.uc.GenerateAuthorizationURL(ctx, AuthorizationRequest{
		Provider:    oauthDomain.Github,
		RedirectURI: "https://app.example.com/cb",
		Scopes:      []string{"read:user"},
		UserID:      &userID,
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, resp.State, created.State)
	assert.NotEmpty(t, created.CodeVerifier)
	assert.Equal(t, "S256", created.SecurityMetadata.ChallengeMethod)
	assert.GreaterOrEqual(t, created.SecurityMetadata.Entropy, 4.0)
	assert.WithinDuration(t, created.CreatedAt.Add(10*time.Minute), created.ExpiresAt, time.Second)
	require.NotNil(t, created.UserID)
	assert.Equal(t, userID, *created.UserID)

	parsed, err := url.Parse(resp.URL)
	require.NoError(t, err)
	assert.Equal(t, resp.State, parsed.Query().Get("state"))
	assert.NotEmpty(t, parsed.Query().Get("code_challenge"))
}

func TestOAuthUseCase_GenerateAuthorizationURL_InvalidRedirect(t *testing.T) {
	env := newTestEnv(t, Options{})

	var logged auditUseCase.LogEntry
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logged = args.Get(1).(auditUseCase.LogEntry) }).
		Return(nil, nil)

	_, err := env.uc.GenerateAuthorizationURL(context.Background(), AuthorizationRequest{
		Provider:    oauthDomain.Github,
		RedirectURI: "https://evil.example.com/cb",
		IPAddress:   "203.0.113.7",
	})
	assert.ErrorIs(t, err, oauthDomain.ErrInvalidRedirectURI)
	env.states.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, auditDomain.EventInvalidRedirectURI, logged.EventType)
	assert.Equal(t, "203.0.113.7", logged.IPAddress)
}

func TestOAuthUseCase_GenerateAuthorizationURL_UnknownProvider(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.uc.GenerateAuthorizationURL(context.Background(), AuthorizationRequest{
		Provider:    oauthDomain.Google,
		RedirectURI: "https://app.example.com/cb",
	})
	assert.ErrorIs(t, err, oauthDomain.ErrUnknownProvider)
}

func TestOAuthUseCase_ValidateCallback(t *testing.T) {
	env := newTestEnv(t, Options{MinStateLookup: time.Millisecond})
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	now := time.Now().UTC()
	stored := &oauthDomain.OAuthState{
		ID:           uuid.Must(uuid.NewV7()),
		State:        "state-token",
		CodeVerifier: "the-verifier",
		Provider:     oauthDomain.Github,
		RedirectURI:  "https://app.example.com/cb",
		UserID:       &userID,
		SecurityMetadata: oauthDomain.SecurityMetadata{
			Entropy:         4.8,
			ChallengeMethod: "S256",
			SecurityVersion: oauthDomain.SecurityVersion,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
	env.states.On("Consume", mock.Anything, "state-token").Return(stored, nil)

	result, err := env.uc.ValidateCallback(ctx, CallbackParams{
		State: "state-token",
		Code:  "auth-code",
	})
	require.NoError(t, err)
	assert.Equal(t, "auth-code", result.Code)
	assert.Equal(t, "the-verifier", result.CodeVerifier)
	assert.Equal(t, oauthDomain.Github, result.Provider)
	require.NotNil(t, result.UserID)
	assert.Equal(t, userID, *result.UserID)
}

func TestOAuthUseCase_ValidateCallback_ProviderErrorFirst(t *testing.T) {
	env := newTestEnv(t, Options{MinStateLookup: time.Millisecond})
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := env.uc.ValidateCallback(context.Background(), CallbackParams{
		State:            "state-token",
		ProviderError:    "access_denied",
		ProviderErrorDsc: "The user denied the request.",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, oauthDomain.ErrProviderError))
	// the state is not consumed when the provider already reported an error
	env.states.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
}

func TestOAuthUseCase_ValidateCallback_InvalidStateRecorded(t *testing.T) {
	env := newTestEnv(t, Options{MinStateLookup: time.Millisecond})
	env.states.On("Consume", mock.Anything, "unknown").Return(nil, oauthDomain.ErrStateInvalid)

	var logged auditUseCase.LogEntry
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logged = args.Get(1).(auditUseCase.LogEntry) }).
		Return(nil, nil)

	_, err := env.uc.ValidateCallback(context.Background(), CallbackParams{
		State:     "unknown",
		ClientID:  "client-1",
		IPAddress: "203.0.113.7",
	})
	assert.ErrorIs(t, err, oauthDomain.ErrStateInvalid)
	assert.Equal(t, []string{"client-1|203.0.113.7"}, env.detector.invalidStates)
	assert.Equal(t, auditDomain.EventOAuthStateInvalid, logged.EventType)
}

func TestOAuthUseCase_ValidateCallback_ExpiredStateStillConsumed(t *testing.T) {
	env := newTestEnv(t, Options{MinStateLookup: time.Millisecond})
	now := time.Now().UTC()
	stored := &oauthDomain.OAuthState{
		ID:        uuid.Must(uuid.NewV7()),
		State:     "stale",
		Provider:  oauthDomain.Github,
		CreatedAt: now.Add(-20 * time.Minute),
		ExpiresAt: now.Add(-10 * time.Minute),
	}
	env.states.On("Consume", mock.Anything, "stale").Return(stored, nil)

	var logged auditUseCase.LogEntry
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logged = args.Get(1).(auditUseCase.LogEntry) }).
		Return(nil, nil)

	_, err := env.uc.ValidateCallback(context.Background(), CallbackParams{State: "stale"})
	assert.ErrorIs(t, err, oauthDomain.ErrStateExpired)
	assert.Equal(t, auditDomain.EventOAuthStateExpired, logged.EventType)
	env.states.AssertCalled(t, "Consume", mock.Anything, "stale")
}

func TestOAuthUseCase_ValidateCallback_LookupPadded(t *testing.T) {
	env := newTestEnv(t, Options{MinStateLookup: 50 * time.Millisecond})
	env.states.On("Consume", mock.Anything, "unknown").Return(nil, oauthDomain.ErrStateInvalid)
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).Return(nil, nil)

	started := time.Now()
	_, err := env.uc.ValidateCallback(context.Background(), CallbackParams{State: "unknown"})
	elapsed := time.Since(started)

	assert.ErrorIs(t, err, oauthDomain.ErrStateInvalid)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestOAuthUseCase_ExchangeCode(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	expiresAt := time.Now().UTC().Add(time.Hour)
	env.provider.exchangeFn = func(ctx context.Context, code, verifier, redirectURI string) (*oauthDomain.TokenSet, error) {
		return &oauthDomain.TokenSet{
			AccessToken:  "access-plain",
			RefreshToken: "refresh-plain",
			Scope:        "read:user",
			ExpiresAt:    &expiresAt,
		}, nil
	}
	env.provider.profileFn = func(ctx context.Context, accessToken string) (*oauthDomain.Profile, error) {
		assert.Equal(t, "access-plain", accessToken)
		return &oauthDomain.Profile{ProviderAccountID: "583231", Username: "octocat", Email: "octo@example.com"}, nil
	}
	env.users.On("FindOrCreate", mock.Anything, "octocat", "octo@example.com").Return(userID, nil)
	env.users.On("GetUserByID", mock.Anything, userID).Return(&userDomain.User{ID: userID}, nil)

	var upserted *oauthDomain.OAuthAccount
	env.accounts.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.OAuthAccount")).
		Run(func(args mock.Arguments) { upserted = args.Get(1).(*oauthDomain.OAuthAccount) }).
		Return(nil)

	var logged auditUseCase.LogEntry
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logged = args.Get(1).(auditUseCase.LogEntry) }).
		Return(nil, nil)
	env.audit.On("LogAuthenticationAttempt", mock.Anything, userID, true, mock.Anything, mock.Anything, "").
		Return(nil)

	result, err := env.uc.ExchangeCode(ctx, ExchangeRequest{
		Provider:     oauthDomain.Github,
		Code:         "auth-code",
		CodeVerifier: "the-verifier",
		RedirectURI:  "https://app.example.com/cb",
		FetchProfile: true,
	})
	require.NoError(t, err)
	assert.Equal(t, userID, result.UserID)
	assert.Equal(t, "the-verifier", env.provider.lastExchange.verifier)

	// tokens are stored encrypted under the active key, bound to user+provider
	require.NotNil(t, upserted)
	key, ok := env.keyChain.Active()
	require.True(t, ok)
	aad := cryptoService.BindAAD(userID.String(), "github")
	accessPlain, err := env.cipher.DecryptToken(upserted.AccessToken, key, aad)
	require.NoError(t, err)
	assert.Equal(t, "access-plain", string(accessPlain))
	require.NotNil(t, upserted.RefreshToken)
	refreshPlain, err := env.cipher.DecryptToken(upserted.RefreshToken, key, aad)
	require.NoError(t, err)
	assert.Equal(t, "refresh-plain", string(refreshPlain))

	assert.Equal(t, auditDomain.EventOAuthLink, logged.EventType)
	assert.True(t, logged.Success)
	env.audit.AssertCalled(t, "LogAuthenticationAttempt", mock.Anything, userID, true, mock.Anything, mock.Anything, "")
}

func TestOAuthUseCase_ExchangeCode_LockedUserRejected(t *testing.T) {
	env := newTestEnv(t, Options{})
	userID := uuid.Must(uuid.NewV7())
	lockedUntil := time.Now().UTC().Add(30 * time.Minute)

	env.provider.exchangeFn = func(ctx context.Context, code, verifier, redirectURI string) (*oauthDomain.TokenSet, error) {
		return &oauthDomain.TokenSet{AccessToken: "access-plain"}, nil
	}
	env.provider.profileFn = func(ctx context.Context, accessToken string) (*oauthDomain.Profile, error) {
		return &oauthDomain.Profile{ProviderAccountID: "583231", Username: "octocat", Email: "octo@example.com"}, nil
	}
	env.users.On("FindOrCreate", mock.Anything, "octocat", "octo@example.com").Return(userID, nil)
	env.users.On("GetUserByID", mock.Anything, userID).
		Return(&userDomain.User{ID: userID, LockedUntil: &lockedUntil}, nil)
	env.audit.On("LogAuthenticationAttempt", mock.Anything, userID, false, mock.Anything, mock.Anything, "account locked").
		Return(nil)

	_, err := env.uc.ExchangeCode(context.Background(), ExchangeRequest{
		Provider:     oauthDomain.Github,
		Code:         "auth-code",
		FetchProfile: true,
	})
	assert.ErrorIs(t, err, apperrors.ErrLocked)
	env.accounts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	env.audit.AssertCalled(t, "LogAuthenticationAttempt",
		mock.Anything, userID, false, mock.Anything, mock.Anything, "account locked")
}

func TestOAuthUseCase_ExchangeCode_FailureCountsForBoundUser(t *testing.T) {
	env := newTestEnv(t, Options{})
	userID := uuid.Must(uuid.NewV7())

	env.provider.exchangeFn = func(ctx context.Context, code, verifier, redirectURI string) (*oauthDomain.TokenSet, error) {
		return nil, apperrors.Wrap(oauthDomain.ErrTokenExchangeFailed, "bad_verification_code")
	}
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).Return(nil, nil)
	env.audit.On("LogAuthenticationAttempt", mock.Anything, userID, false, mock.Anything, mock.Anything, "token exchange failed").
		Return(nil)

	_, err := env.uc.ExchangeCode(context.Background(), ExchangeRequest{
		Provider: oauthDomain.Github,
		Code:     "bad",
		UserID:   &userID,
	})
	assert.True(t, apperrors.Is(err, oauthDomain.ErrTokenExchangeFailed))
	env.audit.AssertExpectations(t)
}

func TestOAuthUseCase_ExchangeCode_ExchangeFailureAudited(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.provider.exchangeFn = func(ctx context.Context, code, verifier, redirectURI string) (*oauthDomain.TokenSet, error) {
		return nil, apperrors.Wrap(oauthDomain.ErrTokenExchangeFailed, "bad_verification_code")
	}

	var logged auditUseCase.LogEntry
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logged = args.Get(1).(auditUseCase.LogEntry) }).
		Return(nil, nil)

	_, err := env.uc.ExchangeCode(context.Background(), ExchangeRequest{
		Provider: oauthDomain.Github,
		Code:     "bad",
	})
	assert.True(t, apperrors.Is(err, oauthDomain.ErrTokenExchangeFailed))
	assert.Equal(t, auditDomain.EventTokenExchangeFailure, logged.EventType)
	env.accounts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestOAuthUseCase_ExchangeCode_ProfileFailureDistinct(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.provider.exchangeFn = func(ctx context.Context, code, verifier, redirectURI string) (*oauthDomain.TokenSet, error) {
		return &oauthDomain.TokenSet{AccessToken: "access-plain"}, nil
	}
	env.provider.profileFn = func(ctx context.Context, accessToken string) (*oauthDomain.Profile, error) {
		return nil, oauthDomain.ErrProfileFetchFailed
	}

	_, err := env.uc.ExchangeCode(context.Background(), ExchangeRequest{
		Provider:     oauthDomain.Github,
		Code:         "auth-code",
		FetchProfile: true,
	})
	assert.True(t, apperrors.Is(err, oauthDomain.ErrProfileFetchFailed))
	assert.False(t, apperrors.Is(err, oauthDomain.ErrTokenExchangeFailed))
}

func TestOAuthUseCase_RefreshTokens(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	key, ok := env.keyChain.Active()
	require.True(t, ok)
	aad := cryptoService.BindAAD(userID.String(), "github")
	storedRefresh, err := env.cipher.EncryptToken([]byte("old-refresh"), key, aad)
	require.NoError(t, err)
	storedAccess, err := env.cipher.EncryptToken([]byte("old-access"), key, aad)
	require.NoError(t, err)

	existing := &oauthDomain.OAuthAccount{
		ID:                uuid.Must(uuid.NewV7()),
		UserID:            userID,
		Provider:          oauthDomain.Github,
		ProviderAccountID: "583231",
		Username:          "octocat",
		AccessToken:       storedAccess,
		RefreshToken:      storedRefresh,
		CreatedAt:         time.Now().UTC().Add(-time.Hour),
	}
	env.accounts.On("GetByUserAndProvider", mock.Anything, userID, oauthDomain.Github).Return(existing, nil)

	env.provider.refreshFn = func(ctx context.Context, refreshToken string) (*oauthDomain.TokenSet, error) {
		assert.Equal(t, "old-refresh", refreshToken)
		// provider keeps the old refresh token valid
		return &oauthDomain.TokenSet{AccessToken: "new-access"}, nil
	}

	var upserted *oauthDomain.OAuthAccount
	env.accounts.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.OAuthAccount")).
		Run(func(args mock.Arguments) { upserted = args.Get(1).(*oauthDomain.OAuthAccount) }).
		Return(nil)
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).Return(nil, nil)

	updated, err := env.uc.RefreshTokens(ctx, userID, oauthDomain.Github)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, updated.ID)
	assert.Equal(t, "octocat", updated.Username)

	require.NotNil(t, upserted)
	accessPlain, err := env.cipher.DecryptToken(upserted.AccessToken, key, aad)
	require.NoError(t, err)
	assert.Equal(t, "new-access", string(accessPlain))
	refreshPlain, err := env.cipher.DecryptToken(upserted.RefreshToken, key, aad)
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", string(refreshPlain))
}

func TestOAuthUseCase_RefreshTokens_NoRefreshToken(t *testing.T) {
	env := newTestEnv(t, Options{})
	userID := uuid.Must(uuid.NewV7())

	key, ok := env.keyChain.Active()
	require.True(t, ok)
	storedAccess, err := env.cipher.EncryptToken([]byte("old-access"), key, cryptoService.BindAAD(userID.String(), "github"))
	require.NoError(t, err)

	env.accounts.On("GetByUserAndProvider", mock.Anything, userID, oauthDomain.Github).Return(&oauthDomain.OAuthAccount{
		ID:          uuid.Must(uuid.NewV7()),
		UserID:      userID,
		Provider:    oauthDomain.Github,
		AccessToken: storedAccess,
	}, nil)

	_, err = env.uc.RefreshTokens(context.Background(), userID, oauthDomain.Github)
	assert.ErrorIs(t, err, oauthDomain.ErrNoRefreshToken)
}

func TestOAuthUseCase_Unlink_RefusesLastMethod(t *testing.T) {
	env := newTestEnv(t, Options{})
	userID := uuid.Must(uuid.NewV7())

	env.accounts.On("CountByUser", mock.Anything, userID).Return(1, nil)

	err := env.uc.Unlink(context.Background(), userID, oauthDomain.Github)
	assert.ErrorIs(t, err, oauthDomain.ErrLastAuthMethod)
	env.accounts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestOAuthUseCase_Unlink(t *testing.T) {
	env := newTestEnv(t, Options{})
	userID := uuid.Must(uuid.NewV7())

	env.accounts.On("CountByUser", mock.Anything, userID).Return(2, nil)
	env.accounts.On("Delete", mock.Anything, userID, oauthDomain.Github).Return(nil)

	var logged auditUseCase.LogEntry
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logged = args.Get(1).(auditUseCase.LogEntry) }).
		Return(nil, nil)

	require.NoError(t, env.uc.Unlink(context.Background(), userID, oauthDomain.Github))
	assert.Equal(t, auditDomain.EventOAuthUnlink, logged.EventType)
}

func TestOAuthUseCase_DetectAttack_AllowIsSilent(t *testing.T) {
	env := newTestEnv(t, Options{})

	assessment, err := env.uc.DetectAttack(context.Background(), "client-1", "203.0.113.7", "Mozilla/5.0", "authorize")
	require.NoError(t, err)
	assert.Equal(t, oauthDomain.ActionAllow, assessment.Action)
	env.audit.AssertNotCalled(t, "LogSecurityEvent", mock.Anything, mock.Anything)
}

func TestOAuthUseCase_DetectAttack_CriticalAudited(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.detector.assessment = oauthDomain.AttackAssessment{
		RiskLevel: oauthDomain.RiskCritical,
		Action:    oauthDomain.ActionBlock,
		Patterns:  []string{oauthDomain.PatternRapidAttempts, oauthDomain.PatternInvalidStateHistory},
	}

	var logged auditUseCase.LogEntry
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logged = args.Get(1).(auditUseCase.LogEntry) }).
		Return(nil, nil)

	assessment, err := env.uc.DetectAttack(context.Background(), "client-1", "203.0.113.7", "curl/8.4.0", "callback")
	require.NoError(t, err)
	assert.True(t, assessment.Blocked())
	assert.Equal(t, auditDomain.EventAttackDetected, logged.EventType)
}

func TestOAuthUseCase_AuditWriteFailurePropagates(t *testing.T) {
	env := newTestEnv(t, Options{MinStateLookup: time.Millisecond})
	env.states.On("Consume", mock.Anything, "unknown").Return(nil, oauthDomain.ErrStateInvalid)

	storageErr := apperrors.Wrap(apperrors.ErrUnavailable, "audit store down")
	env.audit.On("LogSecurityEvent", mock.Anything, mock.Anything).Return(nil, storageErr)

	_, err := env.uc.ValidateCallback(context.Background(), CallbackParams{State: "unknown"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnavailable))
	assert.False(t, apperrors.Is(err, oauthDomain.ErrStateInvalid))
}

func TestOAuthUseCase_CleanExpiredStates(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.states.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	deleted, err := env.uc.CleanExpiredStates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
