// Package usecase implements the session business logic.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	"github.com/gateproof/authcore/internal/session/domain"
	sessionService "github.com/gateproof/authcore/internal/session/service"
)

// SessionRepository defines session repository operations
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Touch(ctx context.Context, id uuid.UUID, lastSeen, expiresAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ActivityLogger receives session refresh activity for anomaly detection and
// session lifecycle events for the audit trail. Implemented by the audit log
// use case.
type ActivityLogger interface {
	LogSessionActivity(ctx context.Context, activity auditUseCase.SessionActivity) ([]auditDomain.Anomaly, error)
	LogSecurityEvent(ctx context.Context, entry auditUseCase.LogEntry) (*auditDomain.SecurityAuditLog, error)
}

// StartedSession pairs a session with its signed token.
type StartedSession struct {
	Session *domain.Session
	Token   string
}

// UseCase defines the interface for session business logic operations
type UseCase interface {
	// Start creates a session for the user and issues its token.
	Start(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*StartedSession, error)
	// Validate verifies the token and loads the live session it references.
	Validate(ctx context.Context, token string) (*domain.Session, error)
	// Refresh extends the session and reissues the token. IP or user-agent
	// drift is reported through the activity logger; anomalies are returned
	// alongside the refreshed session, never blocking it.
	Refresh(ctx context.Context, token, currentIP, currentUA string) (*StartedSession, []auditDomain.Anomaly, error)
	// Revoke ends a single session.
	Revoke(ctx context.Context, sessionID uuid.UUID) error
	// RevokeAll ends every session for the user.
	RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error)
	// CleanExpired removes sessions past their expiry.
	CleanExpired(ctx context.Context) (int64, error)
}

// SessionUseCase handles session lifecycle and anomaly reporting.
type SessionUseCase struct {
	sessions   SessionRepository
	tokens     sessionService.TokenService
	activity   ActivityLogger
	logger     *slog.Logger
	expiration time.Duration
	now        func() time.Time
}

// NewSessionUseCase creates a new SessionUseCase.
func NewSessionUseCase(
	sessions SessionRepository,
	tokens sessionService.TokenService,
	activity ActivityLogger,
	logger *slog.Logger,
	expiration time.Duration,
) *SessionUseCase {
	if expiration <= 0 {
		expiration = time.Hour
	}
	return &SessionUseCase{
		sessions:   sessions,
		tokens:     tokens,
		activity:   activity,
		logger:     logger,
		expiration: expiration,
		now:        time.Now,
	}
}

// Start creates a session for the user and issues its token.
func (uc *SessionUseCase) Start(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*StartedSession, error) {
	now := uc.now().UTC()
	session := &domain.Session{
		ID:         uuid.Must(uuid.NewV7()),
		UserID:     userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(uc.expiration),
		LastSeenAt: now,
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	token, err := uc.tokens.Issue(session.ID, userID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	uc.logEvent(ctx, auditDomain.EventSessionCreated, userID, ipAddress, userAgent,
		auditDomain.RawPayload{"session_id": session.ID.String()})

	return &StartedSession{Session: session, Token: token}, nil
}

// Validate verifies the token and loads the live session it references.
func (uc *SessionUseCase) Validate(ctx context.Context, token string) (*domain.Session, error) {
	sessionID, userID, err := uc.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// a token replayed against a recycled session id must not pass
	if session.UserID != userID {
		return nil, domain.ErrInvalidSessionToken
	}
	if session.Expired(uc.now().UTC()) {
		uc.logEvent(ctx, auditDomain.EventSessionExpired, session.UserID, session.IPAddress, session.UserAgent,
			auditDomain.RawPayload{"session_id": session.ID.String()})
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Refresh extends the session and reissues the token.
func (uc *SessionUseCase) Refresh(ctx context.Context, token, currentIP, currentUA string) (*StartedSession, []auditDomain.Anomaly, error) {
	session, err := uc.Validate(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	anomalies, err := uc.activity.LogSessionActivity(ctx, auditUseCase.SessionActivity{
		UserID:     session.UserID,
		SessionID:  session.ID.String(),
		OriginalIP: session.IPAddress,
		OriginalUA: session.UserAgent,
		CurrentIP:  currentIP,
		CurrentUA:  currentUA,
	})
	if err != nil {
		uc.logger.Warn("failed to log session activity",
			slog.String("session_id", session.ID.String()),
			slog.String("error", err.Error()))
	}

	now := uc.now().UTC()
	session.LastSeenAt = now
	session.ExpiresAt = now.Add(uc.expiration)
	if err := uc.sessions.Touch(ctx, session.ID, session.LastSeenAt, session.ExpiresAt); err != nil {
		return nil, nil, err
	}

	newToken, err := uc.tokens.Issue(session.ID, session.UserID, session.ExpiresAt)
	if err != nil {
		return nil, nil, err
	}

	uc.logEvent(ctx, auditDomain.EventSessionRefreshed, session.UserID, currentIP, currentUA,
		auditDomain.RawPayload{"session_id": session.ID.String()})

	return &StartedSession{Session: session, Token: newToken}, anomalies, nil
}

// Revoke ends a single session.
func (uc *SessionUseCase) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	uc.logEvent(ctx, auditDomain.EventLogout, session.UserID, session.IPAddress, session.UserAgent,
		auditDomain.RawPayload{"session_id": session.ID.String()})

	return nil
}

// RevokeAll ends every session for the user.
func (uc *SessionUseCase) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	revoked, err := uc.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return revoked, err
	}
	if revoked > 0 {
		uc.logEvent(ctx, auditDomain.EventSessionRevoked, userID, "", "",
			auditDomain.RawPayload{"revoked_sessions": revoked})
	}
	return revoked, nil
}

// CleanExpired removes sessions past their expiry.
func (uc *SessionUseCase) CleanExpired(ctx context.Context) (int64, error) {
	return uc.sessions.DeleteExpired(ctx, uc.now().UTC())
}

// logEvent records a session lifecycle event. Delivery is best effort; the
// session operation itself has already succeeded.
func (uc *SessionUseCase) logEvent(
	ctx context.Context,
	eventType auditDomain.EventType,
	userID uuid.UUID,
	ip, userAgent string,
	payload auditDomain.EventPayload,
) {
	_, err := uc.activity.LogSecurityEvent(ctx, auditUseCase.LogEntry{
		EventType: eventType,
		UserID:    &userID,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
		Payload:   payload,
	})
	if err != nil {
		uc.logger.Warn("failed to record session event",
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
	}
}
