// Package http provides HTTP middleware and utilities for admin API
// authentication.
package http

import (
	"context"

	apiauthDomain "github.com/gateproof/authcore/internal/apiauth/domain"
)

// clientKey is a context key type for storing authenticated clients.
type clientKey struct{}

// WithClient stores an authenticated client in the context.
// This is typically called by the authentication middleware after successful token validation.
func WithClient(ctx context.Context, client *apiauthDomain.Client) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

// GetClient retrieves an authenticated client from the context.
// Returns (client, true) if a client is present, or (nil, false) if no client was set.
func GetClient(ctx context.Context) (*apiauthDomain.Client, bool) {
	client, ok := ctx.Value(clientKey{}).(*apiauthDomain.Client)
	return client, ok
}
