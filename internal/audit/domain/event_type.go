package domain

// EventType identifies a security-relevant event recorded in the audit log.
type EventType string

const (
	EventLoginSuccess    EventType = "login_success"
	EventLoginFailure    EventType = "login_failure"
	EventLogout          EventType = "logout"
	EventAccountLocked   EventType = "account_locked"
	EventAccountUnlocked EventType = "account_unlocked"

	EventSessionCreated   EventType = "session_created"
	EventSessionRefreshed EventType = "session_refreshed"
	EventSessionExpired   EventType = "session_expired"
	EventSessionRevoked   EventType = "session_revoked"
	EventIPChange         EventType = "ip_change"
	EventUserAgentChange  EventType = "user_agent_change"

	EventOAuthLogin           EventType = "oauth_login"
	EventOAuthLink            EventType = "oauth_link"
	EventOAuthUnlink          EventType = "oauth_unlink"
	EventOAuthRefresh         EventType = "oauth_refresh"
	EventOAuthStateInvalid    EventType = "oauth_state_invalid"
	EventOAuthStateExpired    EventType = "oauth_state_expired"
	EventPKCEFailure          EventType = "pkce_failure"
	EventTokenExchangeFailure EventType = "token_exchange_failure"
	EventInvalidRedirectURI   EventType = "invalid_redirect_uri"

	EventRateLimitExceeded  EventType = "rate_limit_exceeded"
	EventPermissionDenied   EventType = "permission_denied"
	EventAnomalyDetected    EventType = "anomaly_detected"
	EventAttackDetected     EventType = "attack_detected"
	EventSuspiciousActivity EventType = "suspicious_activity"

	EventKeyRotation     EventType = "key_rotation"
	EventAuditLogDeleted EventType = "audit_log_deleted"
)

// Severity classifies how serious an audit event is. Critical events carry a
// tamper-evident checksum and trigger webhook alerts.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severityByEvent = map[EventType]Severity{
	EventLoginSuccess:    SeverityInfo,
	EventLoginFailure:    SeverityWarning,
	EventLogout:          SeverityInfo,
	EventAccountLocked:   SeverityCritical,
	EventAccountUnlocked: SeverityInfo,

	EventSessionCreated:   SeverityInfo,
	EventSessionRefreshed: SeverityInfo,
	EventSessionExpired:   SeverityInfo,
	EventSessionRevoked:   SeverityWarning,
	EventIPChange:         SeverityWarning,
	EventUserAgentChange:  SeverityWarning,

	EventOAuthLogin:           SeverityInfo,
	EventOAuthLink:            SeverityInfo,
	EventOAuthUnlink:          SeverityWarning,
	EventOAuthRefresh:         SeverityInfo,
	EventOAuthStateInvalid:    SeverityError,
	EventOAuthStateExpired:    SeverityError,
	EventPKCEFailure:          SeverityError,
	EventTokenExchangeFailure: SeverityError,
	EventInvalidRedirectURI:   SeverityError,

	EventRateLimitExceeded:  SeverityWarning,
	EventPermissionDenied:   SeverityWarning,
	EventAnomalyDetected:    SeverityWarning,
	EventAttackDetected:     SeverityCritical,
	EventSuspiciousActivity: SeverityCritical,

	EventKeyRotation:     SeverityInfo,
	EventAuditLogDeleted: SeverityWarning,
}

// SeverityFor returns the severity for a known event type. Unknown event types
// default to info so extensions never fail classification.
func SeverityFor(eventType EventType) Severity {
	if severity, ok := severityByEvent[eventType]; ok {
		return severity
	}
	return SeverityInfo
}
