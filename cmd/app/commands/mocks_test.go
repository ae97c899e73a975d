package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	apiauthDomain "github.com/gateproof/authcore/internal/apiauth/domain"
	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
	oauthUseCase "github.com/gateproof/authcore/internal/oauth/usecase"
	sessionDomain "github.com/gateproof/authcore/internal/session/domain"
	sessionUseCase "github.com/gateproof/authcore/internal/session/usecase"
)

type mockAuditLogUseCase struct {
	mock.Mock
}

func (m *mockAuditLogUseCase) LogSecurityEvent(ctx context.Context, entry auditUseCase.LogEntry) (*auditDomain.SecurityAuditLog, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.SecurityAuditLog), args.Error(1)
}

func (m *mockAuditLogUseCase) LogAuthenticationAttempt(ctx context.Context, userID uuid.UUID, success bool, ip, userAgent, failureReason string) error {
	args := m.Called(ctx, userID, success, ip, userAgent, failureReason)
	return args.Error(0)
}

func (m *mockAuditLogUseCase) LogSessionActivity(ctx context.Context, activity auditUseCase.SessionActivity) ([]auditDomain.Anomaly, error) {
	args := m.Called(ctx, activity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]auditDomain.Anomaly), args.Error(1)
}

func (m *mockAuditLogUseCase) DetectAnomalies(ctx context.Context, userID uuid.UUID, eventType auditDomain.EventType) ([]auditDomain.Anomaly, error) {
	args := m.Called(ctx, userID, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]auditDomain.Anomaly), args.Error(1)
}

func (m *mockAuditLogUseCase) GetSecurityMetrics(ctx context.Context, timeRange, groupBy string) (*auditDomain.SecurityMetrics, error) {
	args := m.Called(ctx, timeRange, groupBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.SecurityMetrics), args.Error(1)
}

func (m *mockAuditLogUseCase) ExportReport(ctx context.Context, format string, from, to time.Time) ([]byte, error) {
	args := m.Called(ctx, format, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockAuditLogUseCase) VerifyIntegrity(ctx context.Context, logID uuid.UUID) (bool, error) {
	args := m.Called(ctx, logID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuditLogUseCase) ListLogs(ctx context.Context, filter auditDomain.LogFilter) ([]*auditDomain.SecurityAuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.SecurityAuditLog), args.Error(1)
}

func (m *mockAuditLogUseCase) Delete(ctx context.Context, logID uuid.UUID) error {
	args := m.Called(ctx, logID)
	return args.Error(0)
}

func (m *mockAuditLogUseCase) CleanExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockTokenUseCase struct {
	mock.Mock
}

func (m *mockTokenUseCase) Issue(ctx context.Context, input *apiauthDomain.IssueTokenInput) (*apiauthDomain.IssueTokenOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apiauthDomain.IssueTokenOutput), args.Error(1)
}

func (m *mockTokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*apiauthDomain.Client, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apiauthDomain.Client), args.Error(1)
}

func (m *mockTokenUseCase) CleanExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockClientUseCase struct {
	mock.Mock
}

func (m *mockClientUseCase) Create(ctx context.Context, input *apiauthDomain.CreateClientInput) (*apiauthDomain.CreateClientOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apiauthDomain.CreateClientOutput), args.Error(1)
}

func (m *mockClientUseCase) Update(ctx context.Context, clientID uuid.UUID, input *apiauthDomain.UpdateClientInput) error {
	args := m.Called(ctx, clientID, input)
	return args.Error(0)
}

func (m *mockClientUseCase) Get(ctx context.Context, clientID uuid.UUID) (*apiauthDomain.Client, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apiauthDomain.Client), args.Error(1)
}

func (m *mockClientUseCase) List(ctx context.Context, offset, limit int) ([]*apiauthDomain.Client, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*apiauthDomain.Client), args.Error(1)
}

func (m *mockClientUseCase) Deactivate(ctx context.Context, clientID uuid.UUID) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

func (m *mockClientUseCase) Unlock(ctx context.Context, clientID uuid.UUID) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

type mockKeyUseCase struct {
	mock.Mock
}

func (m *mockKeyUseCase) CreateKey(ctx context.Context, alg cryptoDomain.Algorithm) (*cryptoDomain.EncryptionKey, error) {
	args := m.Called(ctx, alg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.EncryptionKey), args.Error(1)
}

func (m *mockKeyUseCase) LoadKeyChain(ctx context.Context) (*cryptoDomain.KeyChain, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.KeyChain), args.Error(1)
}

func (m *mockKeyUseCase) Rotate(ctx context.Context, alg cryptoDomain.Algorithm) (*cryptoDomain.EncryptionKey, error) {
	args := m.Called(ctx, alg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.EncryptionKey), args.Error(1)
}

type mockSessionUseCase struct {
	mock.Mock
}

func (m *mockSessionUseCase) Start(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*sessionUseCase.StartedSession, error) {
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

func (m *mockSessionUseCase) Refresh(ctx context.Context, token, currentIP, currentUA string) (*sessionUseCase.StartedSession, []auditDomain.Anomaly, error) {
	args := m.Called(ctx, token, currentIP, currentUA)
	var started *sessionUseCase.StartedSession
	if args.Get(0) != nil {
		started = args.Get(0).(*sessionUseCase.StartedSession)
	}
	var anomalies []auditDomain.Anomaly
	if args.Get(1) != nil {
		anomalies = args.Get(1).([]auditDomain.Anomaly)
	}
	return started, anomalies, args.Error(2)
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

type mockOAuthUseCase struct {
	mock.Mock
}

func (m *mockOAuthUseCase) GenerateAuthorizationURL(ctx context.Context, req oauthUseCase.AuthorizationRequest) (*oauthUseCase.AuthorizationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthUseCase.AuthorizationResponse), args.Error(1)
}

func (m *mockOAuthUseCase) ValidateCallback(ctx context.Context, params oauthUseCase.CallbackParams) (*oauthDomain.CallbackResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.CallbackResult), args.Error(1)
}

func (m *mockOAuthUseCase) ExchangeCode(ctx context.Context, req oauthUseCase.ExchangeRequest) (*oauthUseCase.ExchangeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthUseCase.ExchangeResult), args.Error(1)
}

func (m *mockOAuthUseCase) RefreshTokens(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) (*oauthDomain.OAuthAccount, error) {
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

func (m *mockOAuthUseCase) DetectAttack(ctx context.Context, clientID, ip, userAgent, requestType string) (oauthDomain.AttackAssessment, error) {
	args := m.Called(ctx, clientID, ip, userAgent, requestType)
	return args.Get(0).(oauthDomain.AttackAssessment), args.Error(1)
}

func (m *mockOAuthUseCase) CleanExpiredStates(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
