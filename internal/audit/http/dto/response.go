// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
)

// AuditLogResponse represents a security audit log entry in API responses.
// The checksum is included so callers can archive entries with their
// integrity material.
type AuditLogResponse struct {
	ID           string         `json:"id"`
	EventType    string         `json:"event_type"`
	Severity     string         `json:"severity"`
	UserID       *string        `json:"user_id,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	EventData    map[string]any `json:"event_data,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Checksum     string         `json:"checksum"`
	CreatedAt    time.Time      `json:"created_at"`
}

// MapAuditLogToResponse converts a domain audit log to an API response.
func MapAuditLogToResponse(entry *auditDomain.SecurityAuditLog) AuditLogResponse {
	response := AuditLogResponse{
		ID:           entry.ID.String(),
		EventType:    string(entry.EventType),
		Severity:     string(entry.Severity),
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		EventData:    entry.EventData,
		Success:      entry.Success,
		ErrorMessage: entry.ErrorMessage,
		Checksum:     entry.Checksum,
		CreatedAt:    entry.CreatedAt,
	}
	if entry.UserID != nil {
		userID := entry.UserID.String()
		response.UserID = &userID
	}
	return response
}

// ListAuditLogsResponse represents a paginated list of audit logs.
type ListAuditLogsResponse struct {
	Data []AuditLogResponse `json:"data"`
}

// MapAuditLogsToListResponse converts audit logs to a list API response.
func MapAuditLogsToListResponse(entries []*auditDomain.SecurityAuditLog) ListAuditLogsResponse {
	responses := make([]AuditLogResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, MapAuditLogToResponse(entry))
	}
	return ListAuditLogsResponse{
		Data: responses,
	}
}

// VerifyIntegrityResponse reports the outcome of a checksum verification.
type VerifyIntegrityResponse struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}
