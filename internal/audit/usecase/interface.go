// Package usecase implements business logic orchestration for security audit
// logging: event recording with severity classification and tamper-evident
// checksums, lockout-by-history, anomaly detection, metrics aggregation,
// report export, and retention-checked deletion.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
)

// AuditLogRepository defines persistence operations for the audit log.
type AuditLogRepository interface {
	Create(ctx context.Context, log *auditDomain.SecurityAuditLog) error
	Get(ctx context.Context, id uuid.UUID) (*auditDomain.SecurityAuditLog, error)
	List(ctx context.Context, filter auditDomain.LogFilter) ([]*auditDomain.SecurityAuditLog, error)
	CountEventsSince(ctx context.Context, userID uuid.UUID, eventType auditDomain.EventType, since time.Time) (int64, error)
	CountEvents(ctx context.Context, eventType auditDomain.EventType, since time.Time) (int64, error)
	Distribution(ctx context.Context, from, to time.Time) ([]auditDomain.EventTypeCount, error)
	TopUsers(ctx context.Context, from, to time.Time, limit int) ([]auditDomain.UserEventCount, error)
	Timeline(ctx context.Context, from, to time.Time, bucket string) ([]auditDomain.TimelineBucket, error)
	HourHistogram(ctx context.Context, userID uuid.UUID, since time.Time) ([24]int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AccountLocker applies and inspects account locks. Implemented by the user
// repository.
type AccountLocker interface {
	Lock(ctx context.Context, userID uuid.UUID, until time.Time) error
	IsLocked(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
}

// Alerter delivers critical-event alerts to an external endpoint. Delivery is
// best effort; failures are logged, never propagated.
type Alerter interface {
	SendAlert(ctx context.Context, alert auditDomain.Alert) error
}

// LogEntry carries the caller-supplied fields of a security event.
type LogEntry struct {
	EventType    auditDomain.EventType
	UserID       *uuid.UUID
	IPAddress    string
	UserAgent    string
	Payload      auditDomain.EventPayload
	Success      bool
	ErrorMessage string
}

// SessionActivity describes a session refresh being checked for IP or
// user-agent drift.
type SessionActivity struct {
	UserID     uuid.UUID
	SessionID  string
	OriginalIP string
	OriginalUA string
	CurrentIP  string
	CurrentUA  string
}

// LockoutPolicy configures lockout-by-history enforcement.
type LockoutPolicy struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// AuditLogUseCase defines audit logging business operations.
type AuditLogUseCase interface {
	LogSecurityEvent(ctx context.Context, entry LogEntry) (*auditDomain.SecurityAuditLog, error)
	LogAuthenticationAttempt(ctx context.Context, userID uuid.UUID, success bool, ip, userAgent, failureReason string) error
	LogSessionActivity(ctx context.Context, activity SessionActivity) ([]auditDomain.Anomaly, error)
	DetectAnomalies(ctx context.Context, userID uuid.UUID, eventType auditDomain.EventType) ([]auditDomain.Anomaly, error)
	GetSecurityMetrics(ctx context.Context, timeRange, groupBy string) (*auditDomain.SecurityMetrics, error)
	ExportReport(ctx context.Context, format string, from, to time.Time) ([]byte, error)
	VerifyIntegrity(ctx context.Context, logID uuid.UUID) (bool, error)
	ListLogs(ctx context.Context, filter auditDomain.LogFilter) ([]*auditDomain.SecurityAuditLog, error)
	Delete(ctx context.Context, logID uuid.UUID) error
	CleanExpired(ctx context.Context) (int64, error)
}
