package domain

import "time"

// Alert is the webhook payload sent for critical security events.
type Alert struct {
	AlertType   string    `json:"alert_type"`
	Severity    string    `json:"severity"`
	Event       string    `json:"event"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}
