// Package domain defines the security audit log models: event types with
// severity classification, append-only log entries with tamper-evident
// checksums for critical events, anomaly reports, and aggregated metrics.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Retention boundaries enforced on deletion. Critical entries are protected
// for seven years; everything else follows the two year policy.
const (
	CriticalRetention = 7 * 365 * 24 * time.Hour
	StandardRetention = 2 * 365 * 24 * time.Hour
)

// SecurityAuditLog is one append-only audit log entry. Checksum is set only
// for critical severity and covers the canonical encoding of event type, user
// ID, event data, and creation time.
type SecurityAuditLog struct {
	ID           uuid.UUID
	EventType    EventType
	Severity     Severity
	UserID       *uuid.UUID
	IPAddress    string
	UserAgent    string
	EventData    map[string]any
	Success      bool
	ErrorMessage string
	Checksum     string
	CreatedAt    time.Time
}

// DeletableAt returns the earliest time this entry may be deleted.
func (s *SecurityAuditLog) DeletableAt() time.Time {
	if s.Severity == SeverityCritical {
		return s.CreatedAt.Add(CriticalRetention)
	}
	return s.CreatedAt.Add(StandardRetention)
}

// LogFilter narrows audit log listings. Nil fields are not applied; From and
// To are inclusive and expected in UTC.
type LogFilter struct {
	UserID    *uuid.UUID
	EventType *EventType
	Severity  *Severity
	From      *time.Time
	To        *time.Time
	Offset    int
	Limit     int
}

// Anomaly flags a behavioral irregularity detected around an event.
type Anomaly struct {
	Type       string         `json:"type"`
	Confidence float64        `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`
}

// Anomaly type identifiers.
const (
	AnomalyUnusualHours    = "unusual_hours"
	AnomalyRapidSuccession = "rapid_succession"
	AnomalyIPChange        = "ip_change"
	AnomalyUserAgentChange = "user_agent_change"
)

// SecurityMetrics aggregates audit activity over a time range.
type SecurityMetrics struct {
	TimeRange        string           `json:"time_range"`
	LoginSuccesses   int64            `json:"login_successes"`
	LoginFailures    int64            `json:"login_failures"`
	LoginSuccessRate float64          `json:"login_success_rate"`
	LockedAccounts   int64            `json:"locked_accounts"`
	Anomalies        int64            `json:"anomalies"`
	Timeline         []TimelineBucket `json:"timeline,omitempty"`
}

// TimelineBucket is one aggregation bucket of a metrics timeline.
type TimelineBucket struct {
	Start  time.Time `json:"start"`
	Events int64     `json:"events"`
}

// EventTypeCount is one row of an event-type distribution.
type EventTypeCount struct {
	EventType EventType `json:"event_type"`
	Count     int64     `json:"count"`
}

// UserEventCount is one row of a top-users-by-event-count summary.
type UserEventCount struct {
	UserID uuid.UUID `json:"user_id"`
	Count  int64     `json:"count"`
}

// AuditReport is the export payload derived from a single query set so the
// JSON and CSV renderings never drift apart.
type AuditReport struct {
	GeneratedAt  time.Time           `json:"generated_at"`
	From         time.Time           `json:"from"`
	To           time.Time           `json:"to"`
	TotalEvents  int64               `json:"total_events"`
	Distribution []EventTypeCount    `json:"distribution"`
	TopUsers     []UserEventCount    `json:"top_users"`
	Entries      []*SecurityAuditLog `json:"entries"`
}
