// Package http provides session authentication middleware for user-facing
// endpoints.
package http

import (
	"context"

	sessionDomain "github.com/gateproof/authcore/internal/session/domain"
)

// sessionKey is a context key type for storing the authenticated session.
type sessionKey struct{}

// WithSession stores an authenticated session in the context.
func WithSession(ctx context.Context, session *sessionDomain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSession retrieves the authenticated session from the context.
// Returns (session, true) if present, or (nil, false) if no session was set.
func GetSession(ctx context.Context) (*sessionDomain.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*sessionDomain.Session)
	return session, ok
}
