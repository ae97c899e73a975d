package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	apperrors "github.com/gateproof/authcore/internal/errors"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
	oauthUseCase "github.com/gateproof/authcore/internal/oauth/usecase"
	sessionDomain "github.com/gateproof/authcore/internal/session/domain"
	sessionHTTP "github.com/gateproof/authcore/internal/session/http"
	sessionUseCase "github.com/gateproof/authcore/internal/session/usecase"
)

// mockOAuthUseCase is a mock implementation of OAuthUseCase for testing.
type mockOAuthUseCase struct {
	mock.Mock
}

func (m *mockOAuthUseCase) GenerateAuthorizationURL(
	ctx context.Context,
	req oauthUseCase.AuthorizationRequest,
) (*oauthUseCase.AuthorizationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthUseCase.AuthorizationResponse), args.Error(1)
}

func (m *mockOAuthUseCase) ValidateCallback(
	ctx context.Context,
	params oauthUseCase.CallbackParams,
) (*oauthDomain.CallbackResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.CallbackResult), args.Error(1)
}

func (m *mockOAuthUseCase) ExchangeCode(
	ctx context.Context,
	req oauthUseCase.ExchangeRequest,
) (*oauthUseCase.ExchangeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthUseCase.ExchangeResult), args.Error(1)
}

func (m *mockOAuthUseCase) RefreshTokens(
	ctx context.Context,
	userID uuid.UUID,
	provider oauthDomain.Provider,
) (*oauthDomain.OAuthAccount, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.OAuthAccount), args.Error(1)
}

func (m *mockOAuthUseCase) Unlink(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) error {
	args := m.Called(ctx, userID, provider)
	return args.Error(0)
}

func (m *mockOAuthUseCase) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*oauthDomain.OAuthAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*oauthDomain.OAuthAccount), args.Error(1)
}

func (m *mockOAuthUseCase) DetectAttack(
	ctx context.Context,
	clientID, ip, userAgent, requestType string,
) (oauthDomain.AttackAssessment, error) {
	args := m.Called(ctx, clientID, ip, userAgent, requestType)
	return args.Get(0).(oauthDomain.AttackAssessment), args.Error(1)
}

func (m *mockOAuthUseCase) CleanExpiredStates(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// mockSessionUseCase is a mock implementation of the session UseCase for testing.
type mockSessionUseCase struct {
	mock.Mock
}

func (m *mockSessionUseCase) Start(
	ctx context.Context,
	userID uuid.UUID,
	ipAddress, userAgent string,
) (*sessionUseCase.StartedSession, error) {
	args := m.Called(ctx, userID, ipAddress, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionUseCase.StartedSession), args.Error(1)
}

func (m *mockSessionUseCase) Validate(ctx context.Context, token string) (*sessionDomain.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionDomain.Session), args.Error(1)
}

func (m *mockSessionUseCase) Refresh(
	ctx context.Context,
	token, currentIP, currentUA string,
) (*sessionUseCase.StartedSession, []auditDomain.Anomaly, error) {
	args := m.Called(ctx, token, currentIP, currentUA)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var anomalies []auditDomain.Anomaly
	if args.Get(1) != nil {
		anomalies = args.Get(1).([]auditDomain.Anomaly)
	}
	return args.Get(0).(*sessionUseCase.StartedSession), anomalies, args.Error(2)
}

func (m *mockSessionUseCase) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockSessionUseCase) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionUseCase) CleanExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func allowAssessment() oauthDomain.AttackAssessment {
	return oauthDomain.AttackAssessment{
		RiskLevel: oauthDomain.RiskLow,
		Action:    oauthDomain.ActionAllow,
	}
}

func newTestRouter(handler *OAuthHandler, sessions sessionUseCase.UseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/oauth/:provider/authorize", handler.AuthorizeHandler)
	router.GET("/v1/oauth/:provider/callback", handler.CallbackHandler)
	router.POST("/v1/oauth/:provider/refresh",
		sessionHTTP.SessionMiddleware(sessions, testLogger()), handler.RefreshTokensHandler)
	router.DELETE("/v1/oauth/:provider",
		sessionHTTP.SessionMiddleware(sessions, testLogger()), handler.UnlinkHandler)
	router.GET("/v1/oauth/accounts",
		sessionHTTP.SessionMiddleware(sessions, testLogger()), handler.ListAccountsHandler)
	return router
}

func TestOAuthHandler_Authorize(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		sessions := &mockSessionUseCase{}
		handler := NewOAuthHandler(oauth, sessions, testLogger())

		oauth.On("DetectAttack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "authorize").
			Return(allowAssessment(), nil)
		oauth.On("GenerateAuthorizationURL", mock.Anything, mock.MatchedBy(func(req oauthUseCase.AuthorizationRequest) bool {
			return req.Provider == oauthDomain.Github &&
				req.RedirectURI == "https://app.example.com/cb" &&
				req.UserID == nil
		})).Return(&oauthUseCase.AuthorizationResponse{
			URL:   "https://github.com/login/oauth/authorize?state=abc",
			State: "abc",
		}, nil)

		body, _ := json.Marshal(map[string]any{"redirect_uri": "https://app.example.com/cb"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth/github/authorize", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		newTestRouter(handler, sessions).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "https://github.com/login/oauth/authorize")
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		handler := NewOAuthHandler(&mockOAuthUseCase{}, &mockSessionUseCase{}, testLogger())

		body, _ := json.Marshal(map[string]any{"redirect_uri": "https://app.example.com/cb"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth/gitlab/authorize", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		newTestRouter(handler, &mockSessionUseCase{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("MissingRedirectURI", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		handler := NewOAuthHandler(oauth, &mockSessionUseCase{}, testLogger())
		oauth.On("DetectAttack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "authorize").
			Return(allowAssessment(), nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth/github/authorize", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		newTestRouter(handler, &mockSessionUseCase{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("BlockedByAttackDetection", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		handler := NewOAuthHandler(oauth, &mockSessionUseCase{}, testLogger())
		oauth.On("DetectAttack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "authorize").
			Return(oauthDomain.AttackAssessment{
				RiskLevel: oauthDomain.RiskCritical,
				Action:    oauthDomain.ActionBlock,
			}, nil)

		body, _ := json.Marshal(map[string]any{"redirect_uri": "https://app.example.com/cb"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth/github/authorize", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		newTestRouter(handler, &mockSessionUseCase{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		oauth.AssertNotCalled(t, "GenerateAuthorizationURL", mock.Anything, mock.Anything)
	})

	t.Run("RateLimitedByAttackDetection", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		handler := NewOAuthHandler(oauth, &mockSessionUseCase{}, testLogger())
		oauth.On("DetectAttack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "authorize").
			Return(oauthDomain.AttackAssessment{
				RiskLevel: oauthDomain.RiskMedium,
				Action:    oauthDomain.ActionRateLimit,
			}, nil)

		body, _ := json.Marshal(map[string]any{"redirect_uri": "https://app.example.com/cb"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth/github/authorize", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		newTestRouter(handler, &mockSessionUseCase{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})
}

func TestOAuthHandler_Callback(t *testing.T) {
	userID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		sessions := &mockSessionUseCase{}
		handler := NewOAuthHandler(oauth, sessions, testLogger())

		oauth.On("DetectAttack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "callback").
			Return(allowAssessment(), nil)
		oauth.On("ValidateCallback", mock.Anything, mock.MatchedBy(func(params oauthUseCase.CallbackParams) bool {
			return params.State == "state-abc" && params.Code == "code-xyz"
		})).Return(&oauthDomain.CallbackResult{
			Code:         "code-xyz",
			CodeVerifier: "verifier",
			Provider:     oauthDomain.Github,
			RedirectURI:  "https://app.example.com/cb",
		}, nil)
		oauth.On("ExchangeCode", mock.Anything, mock.MatchedBy(func(req oauthUseCase.ExchangeRequest) bool {
			return req.Code == "code-xyz" && req.CodeVerifier == "verifier" && req.FetchProfile
		})).Return(&oauthUseCase.ExchangeResult{
			UserID: userID,
			Account: &oauthDomain.OAuthAccount{
				ID:                uuid.Must(uuid.NewV7()),
				UserID:            userID,
				Provider:          oauthDomain.Github,
				ProviderAccountID: "12345",
				Username:          "octocat",
				Email:             "octocat@example.com",
			},
		}, nil)
		sessions.On("Start", mock.Anything, userID, mock.Anything, mock.Anything).
			Return(&sessionUseCase.StartedSession{
				Session: &sessionDomain.Session{
					ID:        uuid.Must(uuid.NewV7()),
					UserID:    userID,
					ExpiresAt: time.Now().UTC().Add(time.Hour),
				},
				Token: "session-jwt",
			}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/v1/oauth/github/callback?state=state-abc&code=code-xyz", nil)
		newTestRouter(handler, sessions).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "session-jwt")
		assert.Contains(t, w.Body.String(), "octocat")
	})

	t.Run("ProviderMismatch", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		handler := NewOAuthHandler(oauth, &mockSessionUseCase{}, testLogger())

		oauth.On("DetectAttack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "callback").
			Return(allowAssessment(), nil)
		oauth.On("ValidateCallback", mock.Anything, mock.Anything).Return(&oauthDomain.CallbackResult{
			Code:     "code-xyz",
			Provider: oauthDomain.Google,
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/v1/oauth/github/callback?state=state-abc&code=code-xyz", nil)
		newTestRouter(handler, &mockSessionUseCase{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		oauth.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
	})

	t.Run("InvalidState", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		handler := NewOAuthHandler(oauth, &mockSessionUseCase{}, testLogger())

		oauth.On("DetectAttack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "callback").
			Return(allowAssessment(), nil)
		oauth.On("ValidateCallback", mock.Anything, mock.Anything).
			Return(nil, oauthDomain.ErrStateInvalid)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/v1/oauth/github/callback?state=bogus&code=code-xyz", nil)
		newTestRouter(handler, &mockSessionUseCase{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("LockedAccount", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		sessions := &mockSessionUseCase{}
		handler := NewOAuthHandler(oauth, sessions, testLogger())

		oauth.On("DetectAttack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "callback").
			Return(allowAssessment(), nil)
		oauth.On("ValidateCallback", mock.Anything, mock.Anything).Return(&oauthDomain.CallbackResult{
			Code:         "code-xyz",
			CodeVerifier: "verifier",
			Provider:     oauthDomain.Github,
			RedirectURI:  "https://app.example.com/cb",
		}, nil)
		oauth.On("ExchangeCode", mock.Anything, mock.Anything).
			Return(nil, apperrors.Wrap(apperrors.ErrLocked, "account is locked"))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/v1/oauth/github/callback?state=state-abc&code=code-xyz", nil)
		newTestRouter(handler, sessions).ServeHTTP(w, req)

		assert.Equal(t, http.StatusLocked, w.Code)
		sessions.AssertNotCalled(t, "Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingState", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		handler := NewOAuthHandler(oauth, &mockSessionUseCase{}, testLogger())
		oauth.On("DetectAttack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "callback").
			Return(allowAssessment(), nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/oauth/github/callback?code=code-xyz", nil)
		newTestRouter(handler, &mockSessionUseCase{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestOAuthHandler_RefreshTokens(t *testing.T) {
	userID := uuid.Must(uuid.NewV7())
	session := &sessionDomain.Session{
		ID:     uuid.Must(uuid.NewV7()),
		UserID: userID,
	}

	t.Run("Success", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		sessions := &mockSessionUseCase{}
		handler := NewOAuthHandler(oauth, sessions, testLogger())

		sessions.On("Validate", mock.Anything, "session-jwt").Return(session, nil)
		oauth.On("RefreshTokens", mock.Anything, userID, oauthDomain.Github).
			Return(&oauthDomain.OAuthAccount{
				UserID:   userID,
				Provider: oauthDomain.Github,
				Username: "octocat",
			}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth/github/refresh", nil)
		req.Header.Set("Authorization", "Bearer session-jwt")
		newTestRouter(handler, sessions).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "octocat")
	})

	t.Run("NoSession", func(t *testing.T) {
		handler := NewOAuthHandler(&mockOAuthUseCase{}, &mockSessionUseCase{}, testLogger())

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth/github/refresh", nil)
		newTestRouter(handler, &mockSessionUseCase{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOAuthHandler_Unlink(t *testing.T) {
	userID := uuid.Must(uuid.NewV7())
	session := &sessionDomain.Session{
		ID:     uuid.Must(uuid.NewV7()),
		UserID: userID,
	}

	t.Run("Success", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		sessions := &mockSessionUseCase{}
		handler := NewOAuthHandler(oauth, sessions, testLogger())

		sessions.On("Validate", mock.Anything, "session-jwt").Return(session, nil)
		oauth.On("Unlink", mock.Anything, userID, oauthDomain.Github).Return(nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/v1/oauth/github", nil)
		req.Header.Set("Authorization", "Bearer session-jwt")
		newTestRouter(handler, sessions).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("LastAuthMethod", func(t *testing.T) {
		oauth := &mockOAuthUseCase{}
		sessions := &mockSessionUseCase{}
		handler := NewOAuthHandler(oauth, sessions, testLogger())

		sessions.On("Validate", mock.Anything, "session-jwt").Return(session, nil)
		oauth.On("Unlink", mock.Anything, userID, oauthDomain.Github).
			Return(oauthDomain.ErrLastAuthMethod)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/v1/oauth/github", nil)
		req.Header.Set("Authorization", "Bearer session-jwt")
		newTestRouter(handler, sessions).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestOAuthHandler_ListAccounts(t *testing.T) {
	userID := uuid.Must(uuid.NewV7())
	session := &sessionDomain.Session{
		ID:     uuid.Must(uuid.NewV7()),
		UserID: userID,
	}

	oauth := &mockOAuthUseCase{}
	sessions := &mockSessionUseCase{}
	handler := NewOAuthHandler(oauth, sessions, testLogger())

	sessions.On("Validate", mock.Anything, "session-jwt").Return(session, nil)
	oauth.On("ListAccounts", mock.Anything, userID).Return([]*oauthDomain.OAuthAccount{
		{UserID: userID, Provider: oauthDomain.Github, Username: "octocat"},
		{UserID: userID, Provider: oauthDomain.Google, Username: "octo@gmail"},
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/oauth/accounts", nil)
	req.Header.Set("Authorization", "Bearer session-jwt")
	newTestRouter(handler, sessions).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "github")
	assert.Contains(t, w.Body.String(), "google")
}
