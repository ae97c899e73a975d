// Package service implements the OAuth flow mechanics: bound state tokens,
// redirect URI validation, provider HTTP clients, and attack pattern scoring.
package service

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
)

// StateTokenGenerator produces single-use state tokens bound to the request
// that created them.
type StateTokenGenerator interface {
	// Generate returns a state token bound to the user (uuid.Nil for
	// anonymous flows) and the current instant.
	Generate(userID uuid.UUID) (string, error)
}

// RedirectValidator checks redirect URIs against the configured allow-list.
type RedirectValidator interface {
	// Validate returns ErrInvalidRedirectURI when the URI is not allowed.
	Validate(redirectURI string) error
}

// HTTPClient is the outbound transport used by provider clients. Implemented
// by the resilience client.
type HTTPClient interface {
	GetJSON(ctx context.Context, url string, header http.Header, out any) error
	PostForm(ctx context.Context, url string, header http.Header, form []byte, out any) error
}

// ProviderClient talks to one OAuth provider.
type ProviderClient interface {
	Name() oauthDomain.Provider

	// AuthorizationURL builds the provider authorization URL carrying the
	// state and PKCE challenge.
	AuthorizationURL(state, codeChallenge, redirectURI string, scopes []string) string

	// ExchangeCode exchanges an authorization code plus PKCE verifier for tokens.
	ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*oauthDomain.TokenSet, error)

	// RefreshToken exchanges a refresh token for fresh tokens.
	RefreshToken(ctx context.Context, refreshToken string) (*oauthDomain.TokenSet, error)

	// FetchProfile fetches the provider user profile for the access token.
	FetchProfile(ctx context.Context, accessToken string) (*oauthDomain.Profile, error)
}

// AttackDetector scores OAuth requests against known abuse patterns.
type AttackDetector interface {
	// Assess records the attempt and returns the current risk assessment for
	// the client/IP pair.
	Assess(clientID, ip, userAgent, requestType string) oauthDomain.AttackAssessment

	// RecordInvalidState feeds a failed state validation into the detector's
	// history for the client/IP pair.
	RecordInvalidState(clientID, ip string)
}
