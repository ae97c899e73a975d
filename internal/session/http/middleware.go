// Package http provides session authentication middleware for user-facing
// endpoints.
package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/gateproof/authcore/internal/errors"
	"github.com/gateproof/authcore/internal/httputil"
	sessionUseCase "github.com/gateproof/authcore/internal/session/usecase"
)

// SessionMiddleware authenticates user requests via the session token in the
// Authorization header.
//
// The token is verified and resolved to its live session row; a valid token
// for a revoked or expired session is rejected. The session is stored in the
// request context for downstream handlers via GetSession().
//
// Error handling:
//   - Missing or malformed Authorization header → 401 Unauthorized
//   - Invalid, expired or revoked token → 401 Unauthorized
func SessionMiddleware(sessions sessionUseCase.UseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("session authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("session authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		token := authHeader[len(bearerPrefix):]
		if token == "" {
			logger.Debug("session authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		session, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			logger.Debug("session authentication failed",
				slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithSession(c.Request.Context(), session)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// OptionalSessionMiddleware resolves a session when the request carries a
// valid token but lets unauthenticated requests through. Used on endpoints
// whose behavior changes for signed-in users, such as account linking.
func OptionalSessionMiddleware(sessions sessionUseCase.UseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		const bearerPrefix = "bearer "
		if len(authHeader) <= len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			c.Next()
			return
		}

		token := authHeader[len(bearerPrefix):]
		session, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			// A bad token on an optional endpoint is ignored, not rejected.
			logger.Debug("optional session ignored",
				slog.String("error", err.Error()))
			c.Next()
			return
		}

		ctx := WithSession(c.Request.Context(), session)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
