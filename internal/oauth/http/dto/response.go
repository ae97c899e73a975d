// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
)

// AuthorizeResponse carries the provider URL the caller must redirect to.
type AuthorizeResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// LoginResponse is returned after a successful callback exchange: the local
// user, the linked account, and a fresh session token.
type LoginResponse struct {
	UserID    string          `json:"user_id"`
	Account   AccountResponse `json:"account"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// AccountResponse represents a linked provider account in API responses.
// Token material never leaves the server.
type AccountResponse struct {
	Provider          string     `json:"provider"`
	ProviderAccountID string     `json:"provider_account_id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"`
	Scopes            string     `json:"scopes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// MapAccountToResponse converts a linked account to an API response.
func MapAccountToResponse(account *oauthDomain.OAuthAccount) AccountResponse {
	return AccountResponse{
		Provider:          account.Provider.String(),
		ProviderAccountID: account.ProviderAccountID,
		Username:          account.Username,
		Email:             account.Email,
		TokenExpiresAt:    account.TokenExpiresAt,
		Scopes:            account.Scopes,
		CreatedAt:         account.CreatedAt,
		UpdatedAt:         account.UpdatedAt,
	}
}

// ListAccountsResponse represents the user's linked accounts.
type ListAccountsResponse struct {
	Data []AccountResponse `json:"data"`
}

// MapAccountsToListResponse converts linked accounts to a list API response.
func MapAccountsToListResponse(accounts []*oauthDomain.OAuthAccount) ListAccountsResponse {
	accountResponses := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		accountResponses = append(accountResponses, MapAccountToResponse(account))
	}
	return ListAccountsResponse{
		Data: accountResponses,
	}
}
