// Package http provides session authentication middleware for user-facing
// endpoints.
package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	apperrors "github.com/gateproof/authcore/internal/errors"
	"github.com/gateproof/authcore/internal/httputil"
	sessionUseCase "github.com/gateproof/authcore/internal/session/usecase"
)

// SessionResponse represents the active session in API responses.
type SessionResponse struct {
	Token     string                `json:"token"`
	UserID    string                `json:"user_id"`
	ExpiresAt time.Time             `json:"expires_at"`
	Anomalies []auditDomain.Anomaly `json:"anomalies,omitempty"`
}

// SessionHandler handles HTTP requests for session lifecycle operations.
type SessionHandler struct {
	sessionUseCase sessionUseCase.UseCase
	logger         *slog.Logger
}

// NewSessionHandler creates a new session handler with required dependencies.
func NewSessionHandler(sessions sessionUseCase.UseCase, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionUseCase: sessions,
		logger:         logger,
	}
}

// RefreshHandler extends the current session and reissues its token.
// POST /v1/session/refresh - Requires session authentication.
// Activity anomalies detected during the refresh are returned to the caller.
func (h *SessionHandler) RefreshHandler(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	started, anomalies, err := h.sessionUseCase.Refresh(
		c.Request.Context(), token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Token:     started.Token,
		UserID:    started.Session.UserID.String(),
		ExpiresAt: started.Session.ExpiresAt,
		Anomalies: anomalies,
	})
}

// LogoutHandler ends the current session.
// DELETE /v1/session - Requires session authentication.
func (h *SessionHandler) LogoutHandler(c *gin.Context) {
	session, ok := GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	if err := h.sessionUseCase.Revoke(c.Request.Context(), session.ID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// LogoutAllHandler ends every session belonging to the current user.
// DELETE /v1/session/all - Requires session authentication.
func (h *SessionHandler) LogoutAllHandler(c *gin.Context) {
	session, ok := GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	revoked, err := h.sessionUseCase.RevokeAll(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	const bearerPrefix = "bearer "
	if len(authHeader) <= len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	return authHeader[len(bearerPrefix):], true
}
