package domain

import (
	apperrors "github.com/gateproof/authcore/internal/errors"
)

var (
	// ErrStateInvalid indicates an unknown or already consumed state token.
	ErrStateInvalid = apperrors.Wrap(apperrors.ErrUnauthorized, "oauth state is invalid or already used")

	// ErrStateExpired indicates the state row outlived its TTL.
	ErrStateExpired = apperrors.Wrap(apperrors.ErrUnauthorized, "oauth state has expired")

	// ErrInvalidRedirectURI indicates a redirect URI outside the allow-list.
	ErrInvalidRedirectURI = apperrors.Wrap(apperrors.ErrInvalidInput, "redirect uri is not allowed")

	// ErrInsufficientEntropy indicates a PKCE verifier below the entropy floor.
	ErrInsufficientEntropy = apperrors.Wrap(apperrors.ErrInvalidInput, "pkce verifier entropy is below the configured floor")

	// ErrProviderError carries an error reported by the provider on callback.
	ErrProviderError = apperrors.Wrap(apperrors.ErrUnauthorized, "provider reported an error")

	// ErrTokenExchangeFailed indicates the code-for-token exchange failed.
	ErrTokenExchangeFailed = apperrors.Wrap(apperrors.ErrUnauthorized, "token exchange failed")

	// ErrProfileFetchFailed indicates the provider profile fetch failed after a
	// successful token exchange.
	ErrProfileFetchFailed = apperrors.Wrap(apperrors.ErrUnavailable, "failed to fetch provider profile")

	// ErrAccountNotFound indicates no linked account for the user and provider.
	ErrAccountNotFound = apperrors.Wrap(apperrors.ErrNotFound, "oauth account not found")

	// ErrNoRefreshToken indicates the linked account holds no refresh token.
	ErrNoRefreshToken = apperrors.Wrap(apperrors.ErrNotFound, "no refresh token stored for this account")

	// ErrLastAuthMethod refuses to unlink a user's only authentication method.
	ErrLastAuthMethod = apperrors.Wrap(apperrors.ErrForbidden, "cannot remove the last authentication method")

	// ErrUnknownProvider indicates an unconfigured provider name.
	ErrUnknownProvider = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown oauth provider")
)
