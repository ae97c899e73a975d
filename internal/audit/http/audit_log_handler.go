// Package http provides HTTP handlers for the security audit log admin
// surface.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	"github.com/gateproof/authcore/internal/audit/http/dto"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	"github.com/gateproof/authcore/internal/httputil"
)

// AuditLogHandler handles HTTP requests for audit log operations.
type AuditLogHandler struct {
	auditLogUseCase auditUseCase.AuditLogUseCase
	logger          *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler with required dependencies.
func NewAuditLogHandler(
	auditLogUseCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// ListHandler retrieves audit logs with filters and pagination.
// GET /v1/audit-logs - Requires audit:read scope.
// Filters: user_id, event_type, severity, from, to (RFC 3339).
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	filter := auditDomain.LogFilter{
		Offset: offset,
		Limit:  limit,
	}

	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			httputil.HandleBadRequestGin(c,
				fmt.Errorf("invalid user_id format: must be a valid UUID"), h.logger)
			return
		}
		filter.UserID = &userID
	}
	if raw := c.Query("event_type"); raw != "" {
		eventType := auditDomain.EventType(raw)
		filter.EventType = &eventType
	}
	if raw := c.Query("severity"); raw != "" {
		severity := auditDomain.Severity(raw)
		filter.Severity = &severity
	}

	from, to, err := parseTimeRange(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	filter.From = from
	filter.To = to

	logs, err := h.auditLogUseCase.ListLogs(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditLogsToListResponse(logs))
}

// MetricsHandler aggregates security metrics over a time range.
// GET /v1/audit-logs/metrics - Requires audit:read scope.
// Query: time_range (1h, 24h, 7d, 30d), group_by (hour, day).
func (h *AuditLogHandler) MetricsHandler(c *gin.Context) {
	timeRange := c.DefaultQuery("time_range", "24h")
	groupBy := c.DefaultQuery("group_by", "hour")

	metrics, err := h.auditLogUseCase.GetSecurityMetrics(c.Request.Context(), timeRange, groupBy)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// ExportHandler exports an audit report in JSON or CSV.
// GET /v1/audit-logs/export - Requires audit:read scope.
// Query: format (json, csv), from, to (RFC 3339).
func (h *AuditLogHandler) ExportHandler(c *gin.Context) {
	format := c.DefaultQuery("format", auditUseCase.FormatJSON)

	from, to, err := parseTimeRange(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	now := time.Now().UTC()
	fromValue := now.AddDate(0, 0, -30)
	toValue := now
	if from != nil {
		fromValue = *from
	}
	if to != nil {
		toValue = *to
	}

	report, err := h.auditLogUseCase.ExportReport(c.Request.Context(), format, fromValue, toValue)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	contentType := "application/json"
	filename := "audit-report.json"
	if format == auditUseCase.FormatCSV {
		contentType = "text/csv"
		filename = "audit-report.csv"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, report)
}

// VerifyHandler re-computes an entry's checksum and reports whether it still
// matches.
// GET /v1/audit-logs/:id/verify - Requires audit:read scope.
func (h *AuditLogHandler) VerifyHandler(c *gin.Context) {
	logID, err := parseLogID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	valid, err := h.auditLogUseCase.VerifyIntegrity(c.Request.Context(), logID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyIntegrityResponse{
		ID:    logID.String(),
		Valid: valid,
	})
}

// DeleteHandler removes a single audit log entry, refusing entries still
// inside their retention window.
// DELETE /v1/audit-logs/:id - Requires audit:admin scope.
func (h *AuditLogHandler) DeleteHandler(c *gin.Context) {
	logID, err := parseLogID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.auditLogUseCase.Delete(c.Request.Context(), logID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// CleanHandler removes entries past their retention window.
// POST /v1/audit-logs/clean - Requires audit:admin scope.
func (h *AuditLogHandler) CleanHandler(c *gin.Context) {
	deleted, err := h.auditLogUseCase.CleanExpired(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func parseLogID(c *gin.Context) (uuid.UUID, error) {
	logID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid audit log id format: must be a valid UUID")
	}
	return logID, nil
}

func parseTimeRange(c *gin.Context) (from, to *time.Time, err error) {
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid from parameter: must be RFC 3339")
		}
		from = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid to parameter: must be RFC 3339")
		}
		to = &parsed
	}
	return from, to, nil
}
