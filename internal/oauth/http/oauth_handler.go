// Package http provides HTTP handlers for the OAuth authorization flow.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/gateproof/authcore/internal/errors"
	"github.com/gateproof/authcore/internal/httputil"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
	"github.com/gateproof/authcore/internal/oauth/http/dto"
	oauthUseCase "github.com/gateproof/authcore/internal/oauth/usecase"
	sessionHTTP "github.com/gateproof/authcore/internal/session/http"
	sessionUseCase "github.com/gateproof/authcore/internal/session/usecase"
	customValidation "github.com/gateproof/authcore/internal/validation"
)

// OAuthHandler handles HTTP requests for the OAuth flow: authorization,
// provider callbacks, token refresh and account unlinking.
type OAuthHandler struct {
	oauthUseCase   oauthUseCase.OAuthUseCase
	sessionUseCase sessionUseCase.UseCase
	logger         *slog.Logger
}

// NewOAuthHandler creates a new OAuth handler with required dependencies.
func NewOAuthHandler(
	oauth oauthUseCase.OAuthUseCase,
	sessions sessionUseCase.UseCase,
	logger *slog.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		oauthUseCase:   oauth,
		sessionUseCase: sessions,
		logger:         logger,
	}
}

// AuthorizeHandler starts an authorization flow for a provider.
// POST /v1/oauth/:provider/authorize - No authentication required; an
// authenticated session turns the flow into account linking.
// Returns 200 OK with the provider URL and the state bound to it.
func (h *OAuthHandler) AuthorizeHandler(c *gin.Context) {
	provider, err := parseProvider(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if blocked := h.enforceAttackPolicy(c, "authorize"); blocked {
		return
	}

	var req dto.AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	request := oauthUseCase.AuthorizationRequest{
		Provider:    provider,
		RedirectURI: req.RedirectURI,
		Scopes:      req.Scopes,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	}
	if session, ok := sessionHTTP.GetSession(c.Request.Context()); ok {
		userID := session.UserID
		request.UserID = &userID
	}

	response, err := h.oauthUseCase.GenerateAuthorizationURL(c.Request.Context(), request)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.AuthorizeResponse{
		URL:   response.URL,
		State: response.State,
	})
}

// CallbackHandler completes an authorization flow: the state is consumed, the
// code is exchanged for tokens, the local user is resolved and a session is
// started.
// GET /v1/oauth/:provider/callback - No authentication required.
// Returns 200 OK with the session token and the linked account.
func (h *OAuthHandler) CallbackHandler(c *gin.Context) {
	provider, err := parseProvider(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if blocked := h.enforceAttackPolicy(c, "callback"); blocked {
		return
	}

	var req dto.CallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.oauthUseCase.ValidateCallback(c.Request.Context(), oauthUseCase.CallbackParams{
		State:            req.State,
		Code:             req.Code,
		ProviderError:    req.Error,
		ProviderErrorDsc: req.ErrorDescription,
		ClientID:         c.ClientIP(),
		IPAddress:        c.ClientIP(),
		UserAgent:        c.Request.UserAgent(),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if result.Provider != provider {
		httputil.HandleErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "state does not belong to this provider"),
			h.logger)
		return
	}

	exchange, err := h.oauthUseCase.ExchangeCode(c.Request.Context(), oauthUseCase.ExchangeRequest{
		Provider:     result.Provider,
		Code:         result.Code,
		CodeVerifier: result.CodeVerifier,
		RedirectURI:  result.RedirectURI,
		UserID:       result.UserID,
		FetchProfile: true,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	started, err := h.sessionUseCase.Start(
		c.Request.Context(), exchange.UserID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		UserID:    exchange.UserID.String(),
		Account:   dto.MapAccountToResponse(exchange.Account),
		Token:     started.Token,
		ExpiresAt: started.Session.ExpiresAt,
	})
}

// RefreshTokensHandler refreshes the stored provider tokens for the current
// user.
// POST /v1/oauth/:provider/refresh - Requires session authentication.
func (h *OAuthHandler) RefreshTokensHandler(c *gin.Context) {
	provider, err := parseProvider(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	session, ok := sessionHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	account, err := h.oauthUseCase.RefreshTokens(c.Request.Context(), session.UserID, provider)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAccountToResponse(account))
}

// UnlinkHandler removes the provider link for the current user.
// DELETE /v1/oauth/:provider - Requires session authentication.
// Refuses to remove the last authentication method.
func (h *OAuthHandler) UnlinkHandler(c *gin.Context) {
	provider, err := parseProvider(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	session, ok := sessionHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	if err := h.oauthUseCase.Unlink(c.Request.Context(), session.UserID, provider); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListAccountsHandler lists the current user's linked provider accounts.
// GET /v1/oauth/accounts - Requires session authentication.
func (h *OAuthHandler) ListAccountsHandler(c *gin.Context) {
	session, ok := sessionHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	accounts, err := h.oauthUseCase.ListAccounts(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAccountsToListResponse(accounts))
}

// enforceAttackPolicy scores the request and rejects it when the assessment
// says so. Returns true when the request was rejected.
func (h *OAuthHandler) enforceAttackPolicy(c *gin.Context, requestType string) bool {
	assessment, err := h.oauthUseCase.DetectAttack(
		c.Request.Context(), c.ClientIP(), c.ClientIP(), c.Request.UserAgent(), requestType)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return true
	}

	switch {
	case assessment.Blocked():
		httputil.HandleErrorGin(c,
			apperrors.Wrap(apperrors.ErrForbidden, "request blocked by attack detection"),
			h.logger)
		return true
	case assessment.Action == oauthDomain.ActionRateLimit:
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limit_exceeded",
			"message": "Too many suspicious requests. Please retry later.",
		})
		c.Abort()
		return true
	}
	return false
}

func parseProvider(c *gin.Context) (oauthDomain.Provider, error) {
	provider := oauthDomain.Provider(c.Param("provider"))
	if !provider.Valid() {
		return "", fmt.Errorf("unknown provider: %s", c.Param("provider"))
	}
	return provider, nil
}
