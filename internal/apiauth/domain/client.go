// Package domain defines the admin API authentication domain models.
//
// Admin clients authenticate with client credentials and operate the service's
// management surface (audit log access, key rotation, client administration).
// Authorization is scope-based: each client carries the scopes it may exercise.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Scope names an operation group a client may exercise.
type Scope string

const (
	// ScopeAuditRead allows listing, exporting and verifying audit logs.
	ScopeAuditRead Scope = "audit:read"

	// ScopeAuditAdmin allows retention clean-up and log deletion.
	ScopeAuditAdmin Scope = "audit:admin"

	// ScopeKeysRotate allows creating and rotating encryption keys.
	ScopeKeysRotate Scope = "keys:rotate"

	// ScopeClientsAdmin allows managing admin clients.
	ScopeClientsAdmin Scope = "clients:admin"
)

// Client represents an admin API client. The secret is stored hashed; the
// plain secret is shown exactly once at creation.
type Client struct {
	ID             uuid.UUID
	Secret         string //nolint:gosec // hashed client secret (not plaintext)
	Name           string
	IsActive       bool
	Scopes         []Scope
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
}

// Allowed reports whether the client carries the scope.
func (c *Client) Allowed(scope Scope) bool {
	return slices.Contains(c.Scopes, scope)
}

// Locked reports whether the client is locked out at the given instant.
func (c *Client) Locked(now time.Time) bool {
	return c.LockedUntil != nil && now.Before(*c.LockedUntil)
}

// CreateClientInput carries the fields for creating a client.
type CreateClientInput struct {
	Name     string
	IsActive bool
	Scopes   []Scope
}

// CreateClientOutput returns the new client id and its one-time plain secret.
type CreateClientOutput struct {
	ID          uuid.UUID
	PlainSecret string
}

// UpdateClientInput carries the mutable client fields.
type UpdateClientInput struct {
	Name     string
	IsActive bool
	Scopes   []Scope
}

// IssueTokenInput carries client credentials for token issuance.
type IssueTokenInput struct {
	ClientID     uuid.UUID
	ClientSecret string
}

// IssueTokenOutput returns the one-time plain token.
type IssueTokenOutput struct {
	PlainToken string
	ExpiresAt  time.Time
}
