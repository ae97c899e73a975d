// Package http provides HTTP middleware and utilities for admin API
// authentication.
package http

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apiauthDomain "github.com/gateproof/authcore/internal/apiauth/domain"
	apiauthService "github.com/gateproof/authcore/internal/apiauth/service"
	apiauthUseCase "github.com/gateproof/authcore/internal/apiauth/usecase"
	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	apperrors "github.com/gateproof/authcore/internal/errors"
	"github.com/gateproof/authcore/internal/httputil"
)

// SecurityEventRecorder writes middleware denials into the audit log.
// Implemented by the audit log use case. A nil recorder disables auditing.
type SecurityEventRecorder interface {
	LogSecurityEvent(ctx context.Context, entry auditUseCase.LogEntry) (*auditDomain.SecurityAuditLog, error)
}

// recordDenial attributes the request and records the denial event.
// Delivery is best effort; the request has already been rejected.
func recordDenial(c *gin.Context, events SecurityEventRecorder, logger *slog.Logger, entry auditUseCase.LogEntry) {
	if events == nil {
		return
	}
	entry.IPAddress = c.ClientIP()
	entry.UserAgent = c.Request.UserAgent()
	if _, err := events.LogSecurityEvent(c.Request.Context(), entry); err != nil {
		logger.Warn("failed to record security event",
			slog.String("event_type", string(entry.EventType)),
			slog.String("error", err.Error()))
	}
}

// AuthenticationMiddleware provides authentication via Bearer token in the Authorization header.
//
// The middleware:
// 1. Extracts the Bearer token from the Authorization header (case-insensitive)
// 2. Hashes the token using tokenService.HashToken()
// 3. Validates the token using tokenUseCase.Authenticate()
// 4. Stores the authenticated client in the request context
// 5. Allows downstream handlers to access the client via GetClient()
//
// Error handling:
//   - Missing or malformed Authorization header → 401 Unauthorized
//   - Invalid/expired/revoked token → 401 Unauthorized (from TokenUseCase.Authenticate)
//   - Inactive client → 403 Forbidden (from TokenUseCase.Authenticate)
func AuthenticationMiddleware(
	tokenUseCase apiauthUseCase.TokenUseCase,
	tokenService apiauthService.TokenService,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		plainToken := authHeader[len(bearerPrefix):]
		if plainToken == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		tokenHash := tokenService.HashToken(plainToken)

		client, err := tokenUseCase.Authenticate(c.Request.Context(), tokenHash)
		if err != nil {
			logger.Debug("authentication failed",
				slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithClient(c.Request.Context(), client)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("authentication successful",
			slog.String("client_id", client.ID.String()),
			slog.String("client_name", client.Name))

		c.Next()
	}
}

// RequireScope provides scope-based authorization for authenticated clients.
//
// This middleware MUST be used after AuthenticationMiddleware, as it requires
// an authenticated client to be present in the request context.
//
// Error handling:
//   - No client in context → 401 Unauthorized (AuthenticationMiddleware not run)
//   - Client lacks the scope → 403 Forbidden
//
// Usage:
//
//	router.GET("/v1/audit-logs",
//	    AuthenticationMiddleware(tokenUseCase, tokenService, logger),
//	    RequireScope(apiauthDomain.ScopeAuditRead, events, logger),
//	    handler)
func RequireScope(scope apiauthDomain.Scope, events SecurityEventRecorder, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := GetClient(c.Request.Context())
		if !ok || client == nil {
			logger.Debug("authorization failed: no authenticated client in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !client.Allowed(scope) {
			logger.Debug("authorization failed: insufficient scope",
				slog.String("client_id", client.ID.String()),
				slog.String("client_name", client.Name),
				slog.String("scope", string(scope)))
			recordDenial(c, events, logger, auditUseCase.LogEntry{
				EventType: auditDomain.EventPermissionDenied,
				Payload: auditDomain.RawPayload{
					"client_id": client.ID.String(),
					"scope":     string(scope),
					"path":      c.FullPath(),
				},
			})
			httputil.HandleErrorGin(c, apiauthDomain.ErrInsufficientScope, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
