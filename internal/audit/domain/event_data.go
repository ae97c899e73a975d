package domain

// EventPayload is the structured event data attached to a log entry. Known
// event types carry a typed payload; RawPayload covers extensible or unknown
// event types.
type EventPayload interface {
	Fields() map[string]any
}

// AuthenticationData describes a login attempt.
type AuthenticationData struct {
	Method        string
	Provider      string
	FailureReason string
}

func (d AuthenticationData) Fields() map[string]any {
	fields := map[string]any{"method": d.Method}
	if d.Provider != "" {
		fields["provider"] = d.Provider
	}
	if d.FailureReason != "" {
		fields["failure_reason"] = d.FailureReason
	}
	return fields
}

// SessionActivityData describes a change observed during session refresh.
type SessionActivityData struct {
	SessionID  string
	OriginalIP string
	CurrentIP  string
	OriginalUA string
	CurrentUA  string
}

func (d SessionActivityData) Fields() map[string]any {
	return map[string]any{
		"session_id":  d.SessionID,
		"original_ip": d.OriginalIP,
		"current_ip":  d.CurrentIP,
		"original_ua": d.OriginalUA,
		"current_ua":  d.CurrentUA,
	}
}

// OAuthData describes an OAuth account operation.
type OAuthData struct {
	Provider          string
	ProviderAccountID string
	Scopes            []string
}

func (d OAuthData) Fields() map[string]any {
	fields := map[string]any{"provider": d.Provider}
	if d.ProviderAccountID != "" {
		fields["provider_account_id"] = d.ProviderAccountID
	}
	if len(d.Scopes) > 0 {
		fields["scopes"] = d.Scopes
	}
	return fields
}

// LockoutData describes an account lock.
type LockoutData struct {
	FailedAttempts int
	WindowMinutes  int
	LockedUntil    string
}

func (d LockoutData) Fields() map[string]any {
	return map[string]any{
		"failed_attempts": d.FailedAttempts,
		"window_minutes":  d.WindowMinutes,
		"locked_until":    d.LockedUntil,
	}
}

// AttackData describes a risk assessment from the attack detector.
type AttackData struct {
	ClientID  string
	RiskLevel string
	Action    string
	Patterns  []string
}

func (d AttackData) Fields() map[string]any {
	return map[string]any{
		"client_id":  d.ClientID,
		"risk_level": d.RiskLevel,
		"action":     d.Action,
		"patterns":   d.Patterns,
	}
}

// AnomalyData wraps detected anomalies for an anomaly_detected entry.
type AnomalyData struct {
	Anomalies []Anomaly
}

func (d AnomalyData) Fields() map[string]any {
	return map[string]any{"anomalies": d.Anomalies}
}

// RawPayload is an opaque payload for event types without a dedicated shape.
type RawPayload map[string]any

func (d RawPayload) Fields() map[string]any {
	return map[string]any(d)
}
