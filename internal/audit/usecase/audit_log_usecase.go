package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditService "github.com/gateproof/authcore/internal/audit/service"
	apperrors "github.com/gateproof/authcore/internal/errors"
)

const historyWindow = 30 * 24 * time.Hour

// auditLogUseCase implements AuditLogUseCase.
type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	checksums    auditService.ChecksumService
	detector     auditService.AnomalyDetector
	locker       AccountLocker
	alerter      Alerter
	logger       *slog.Logger
	lockout      LockoutPolicy
	environment  string
}

// NewAuditLogUseCase creates a new AuditLogUseCase with the provided
// dependencies. The alerter may be nil when no webhook is configured.
func NewAuditLogUseCase(
	auditLogRepo AuditLogRepository,
	checksums auditService.ChecksumService,
	detector auditService.AnomalyDetector,
	locker AccountLocker,
	alerter Alerter,
	logger *slog.Logger,
	lockout LockoutPolicy,
	environment string,
) AuditLogUseCase {
	return &auditLogUseCase{
		auditLogRepo: auditLogRepo,
		checksums:    checksums,
		detector:     detector,
		locker:       locker,
		alerter:      alerter,
		logger:       logger,
		lockout:      lockout,
		environment:  environment,
	}
}

// LogSecurityEvent persists one audit entry. The severity comes from the
// static event classification; critical entries get a checksum before the
// write and a best-effort webhook alert after it.
func (a *auditLogUseCase) LogSecurityEvent(
	ctx context.Context,
	entry LogEntry,
) (*auditDomain.SecurityAuditLog, error) {
	log := &auditDomain.SecurityAuditLog{
		ID:           uuid.Must(uuid.NewV7()),
		EventType:    entry.EventType,
		Severity:     auditDomain.SeverityFor(entry.EventType),
		UserID:       entry.UserID,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Success:      entry.Success,
		ErrorMessage: entry.ErrorMessage,
		CreatedAt:    time.Now().UTC(),
	}
	if entry.Payload != nil {
		log.EventData = entry.Payload.Fields()
	}

	if log.Severity == auditDomain.SeverityCritical {
		checksum, err := a.checksums.Compute(log)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to compute audit log checksum")
		}
		log.Checksum = checksum
	}

	if err := a.auditLogRepo.Create(ctx, log); err != nil {
		return nil, apperrors.Wrap(err, "failed to create audit log")
	}

	if log.Severity == auditDomain.SeverityCritical && a.alerter != nil {
		alert := auditDomain.Alert{
			AlertType:   "security_event",
			Severity:    string(log.Severity),
			Event:       string(log.EventType),
			Timestamp:   log.CreatedAt,
			Environment: a.environment,
		}
		if err := a.alerter.SendAlert(ctx, alert); err != nil {
			a.logger.Warn("failed to deliver security alert",
				"event_type", log.EventType,
				"error", err,
			)
		}
	}

	return log, nil
}

// LogAuthenticationAttempt records a login attempt and enforces lockout by
// history: the failure count is re-derived from the log itself inside the
// rolling window, keeping the log the source of truth. An already locked
// account is never locked a second time.
func (a *auditLogUseCase) LogAuthenticationAttempt(
	ctx context.Context,
	userID uuid.UUID,
	success bool,
	ip, userAgent, failureReason string,
) error {
	eventType := auditDomain.EventLoginSuccess
	if !success {
		eventType = auditDomain.EventLoginFailure
	}

	entry := LogEntry{
		EventType:    eventType,
		UserID:       &userID,
		IPAddress:    ip,
		UserAgent:    userAgent,
		Payload:      auditDomain.AuthenticationData{Method: "oauth", FailureReason: failureReason},
		Success:      success,
		ErrorMessage: failureReason,
	}
	if _, err := a.LogSecurityEvent(ctx, entry); err != nil {
		return err
	}

	if success {
		return nil
	}

	now := time.Now().UTC()

	locked, err := a.locker.IsLocked(ctx, userID, now)
	if err != nil {
		return apperrors.Wrap(err, "failed to check account lock")
	}
	if locked {
		return nil
	}

	failures, err := a.auditLogRepo.CountEventsSince(
		ctx, userID, auditDomain.EventLoginFailure, now.Add(-a.lockout.Window))
	if err != nil {
		return apperrors.Wrap(err, "failed to count failed logins")
	}
	if failures < int64(a.lockout.MaxAttempts) {
		return nil
	}

	lockedUntil := now.Add(a.lockout.LockDuration)
	if err := a.locker.Lock(ctx, userID, lockedUntil); err != nil {
		return apperrors.Wrap(err, "failed to lock account")
	}

	_, err = a.LogSecurityEvent(ctx, LogEntry{
		EventType: auditDomain.EventAccountLocked,
		UserID:    &userID,
		IPAddress: ip,
		UserAgent: userAgent,
		Payload: auditDomain.LockoutData{
			FailedAttempts: int(failures),
			WindowMinutes:  int(a.lockout.Window.Minutes()),
			LockedUntil:    lockedUntil.Format(time.RFC3339),
		},
	})
	return err
}

// LogSessionActivity compares a session refresh against the session's
// originally recorded IP and user agent. Drift is logged at warning severity
// and reported to the caller, but never blocks the refresh.
func (a *auditLogUseCase) LogSessionActivity(
	ctx context.Context,
	activity SessionActivity,
) ([]auditDomain.Anomaly, error) {
	var anomalies []auditDomain.Anomaly

	data := auditDomain.SessionActivityData{
		SessionID:  activity.SessionID,
		OriginalIP: activity.OriginalIP,
		CurrentIP:  activity.CurrentIP,
		OriginalUA: activity.OriginalUA,
		CurrentUA:  activity.CurrentUA,
	}

	if activity.CurrentIP != activity.OriginalIP {
		anomalies = append(anomalies, auditDomain.Anomaly{
			Type:       auditDomain.AnomalyIPChange,
			Confidence: 0.8,
		})
		if _, err := a.LogSecurityEvent(ctx, LogEntry{
			EventType: auditDomain.EventIPChange,
			UserID:    &activity.UserID,
			IPAddress: activity.CurrentIP,
			UserAgent: activity.CurrentUA,
			Payload:   data,
		}); err != nil {
			return nil, err
		}
	}

	if activity.CurrentUA != activity.OriginalUA {
		anomalies = append(anomalies, auditDomain.Anomaly{
			Type:       auditDomain.AnomalyUserAgentChange,
			Confidence: 0.8,
		})
		if _, err := a.LogSecurityEvent(ctx, LogEntry{
			EventType: auditDomain.EventUserAgentChange,
			UserID:    &activity.UserID,
			IPAddress: activity.CurrentIP,
			UserAgent: activity.CurrentUA,
			Payload:   data,
		}); err != nil {
			return nil, err
		}
	}

	return anomalies, nil
}

// DetectAnomalies evaluates a user's current activity against their recent
// history. Fired flags are recorded as an anomaly_detected entry.
func (a *auditLogUseCase) DetectAnomalies(
	ctx context.Context,
	userID uuid.UUID,
	eventType auditDomain.EventType,
) ([]auditDomain.Anomaly, error) {
	now := time.Now().UTC()

	recent, err := a.auditLogRepo.CountEventsSince(
		ctx, userID, eventType, now.Add(-auditService.RapidSuccessionWindow))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count recent events")
	}

	histogram, err := a.auditLogRepo.HourHistogram(ctx, userID, now.Add(-historyWindow))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query hour histogram")
	}

	anomalies := a.detector.Detect(auditService.AnomalyInput{
		Now:                   now,
		EventType:             eventType,
		RecentIdenticalEvents: int(recent),
		HourCounts:            histogram,
	})
	if len(anomalies) == 0 {
		return nil, nil
	}

	if _, err := a.LogSecurityEvent(ctx, LogEntry{
		EventType: auditDomain.EventAnomalyDetected,
		UserID:    &userID,
		Payload:   auditDomain.AnomalyData{Anomalies: anomalies},
	}); err != nil {
		return nil, err
	}

	return anomalies, nil
}

// GetSecurityMetrics aggregates audit activity over one of the supported
// time ranges (24h, 7d, 30d) with an optional hour/day/week timeline.
func (a *auditLogUseCase) GetSecurityMetrics(
	ctx context.Context,
	timeRange, groupBy string,
) (*auditDomain.SecurityMetrics, error) {
	now := time.Now().UTC()

	var window time.Duration
	switch timeRange {
	case "24h":
		window = 24 * time.Hour
	case "7d":
		window = 7 * 24 * time.Hour
	case "30d":
		window = 30 * 24 * time.Hour
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported time range "+timeRange)
	}
	since := now.Add(-window)

	metrics := &auditDomain.SecurityMetrics{TimeRange: timeRange}

	counts := []struct {
		eventType auditDomain.EventType
		dest      *int64
	}{
		{auditDomain.EventLoginSuccess, &metrics.LoginSuccesses},
		{auditDomain.EventLoginFailure, &metrics.LoginFailures},
		{auditDomain.EventAccountLocked, &metrics.LockedAccounts},
		{auditDomain.EventAnomalyDetected, &metrics.Anomalies},
	}
	for _, count := range counts {
		value, err := a.auditLogRepo.CountEvents(ctx, count.eventType, since)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to aggregate security metrics")
		}
		*count.dest = value
	}

	if total := metrics.LoginSuccesses + metrics.LoginFailures; total > 0 {
		metrics.LoginSuccessRate = float64(metrics.LoginSuccesses) / float64(total)
	}

	if groupBy != "" {
		timeline, err := a.auditLogRepo.Timeline(ctx, since, now, groupBy)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to build metrics timeline")
		}
		metrics.Timeline = timeline
	}

	return metrics, nil
}

// VerifyIntegrity recomputes the checksum of a stored entry and compares it
// in constant time. Entries without a checksum verify trivially.
func (a *auditLogUseCase) VerifyIntegrity(ctx context.Context, logID uuid.UUID) (bool, error) {
	log, err := a.auditLogRepo.Get(ctx, logID)
	if err != nil {
		return false, err
	}
	return a.checksums.Verify(log)
}

// ListLogs retrieves audit entries matching the filter, newest first.
func (a *auditLogUseCase) ListLogs(
	ctx context.Context,
	filter auditDomain.LogFilter,
) ([]*auditDomain.SecurityAuditLog, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return a.auditLogRepo.List(ctx, filter)
}

// Delete removes one entry after the retention check: critical entries
// younger than the seven year retention period are refused.
func (a *auditLogUseCase) Delete(ctx context.Context, logID uuid.UUID) error {
	log, err := a.auditLogRepo.Get(ctx, logID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if log.Severity == auditDomain.SeverityCritical && now.Before(log.DeletableAt()) {
		return auditDomain.ErrRetentionProtected
	}

	if err := a.auditLogRepo.Delete(ctx, logID); err != nil {
		return err
	}

	_, err = a.LogSecurityEvent(ctx, LogEntry{
		EventType: auditDomain.EventAuditLogDeleted,
		Payload: auditDomain.RawPayload{
			"deleted_log_id": logID.String(),
			"event_type":     string(log.EventType),
			"severity":       string(log.Severity),
		},
		Success: true,
	})
	return err
}

// CleanExpired removes all entries past their retention period.
func (a *auditLogUseCase) CleanExpired(ctx context.Context) (int64, error) {
	return a.auditLogRepo.DeleteExpired(ctx, time.Now().UTC())
}
