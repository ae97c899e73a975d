package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/metrics"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
)

// oauthUseCaseWithMetrics decorates OAuthUseCase with metrics instrumentation.
type oauthUseCaseWithMetrics struct {
	next    OAuthUseCase
	metrics metrics.BusinessMetrics
}

// NewOAuthUseCaseWithMetrics wraps an OAuthUseCase with metrics recording.
func NewOAuthUseCaseWithMetrics(useCase OAuthUseCase, m metrics.BusinessMetrics) OAuthUseCase {
	return &oauthUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (o *oauthUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "oauth", operation, status)
	o.metrics.RecordDuration(ctx, "oauth", operation, time.Since(start), status)
}

// GenerateAuthorizationURL records metrics for authorization URL generation.
func (o *oauthUseCaseWithMetrics) GenerateAuthorizationURL(
	ctx context.Context,
	req AuthorizationRequest,
) (*AuthorizationResponse, error) {
	start := time.Now()
	response, err := o.next.GenerateAuthorizationURL(ctx, req)
	o.record(ctx, "authorize_url", start, err)
	return response, err
}

// ValidateCallback records metrics for callback validation.
func (o *oauthUseCaseWithMetrics) ValidateCallback(
	ctx context.Context,
	params CallbackParams,
) (*oauthDomain.CallbackResult, error) {
	start := time.Now()
	result, err := o.next.ValidateCallback(ctx, params)
	o.record(ctx, "validate_callback", start, err)
	return result, err
}

// ExchangeCode records metrics for code-for-token exchanges.
func (o *oauthUseCaseWithMetrics) ExchangeCode(
	ctx context.Context,
	req ExchangeRequest,
) (*ExchangeResult, error) {
	start := time.Now()
	result, err := o.next.ExchangeCode(ctx, req)
	o.record(ctx, "exchange_code", start, err)
	return result, err
}

// RefreshTokens records metrics for token refresh operations.
func (o *oauthUseCaseWithMetrics) RefreshTokens(
	ctx context.Context,
	userID uuid.UUID,
	provider oauthDomain.Provider,
) (*oauthDomain.OAuthAccount, error) {
	start := time.Now()
	account, err := o.next.RefreshTokens(ctx, userID, provider)
	o.record(ctx, "refresh_tokens", start, err)
	return account, err
}

// Unlink records metrics for account unlink operations.
func (o *oauthUseCaseWithMetrics) Unlink(
	ctx context.Context,
	userID uuid.UUID,
	provider oauthDomain.Provider,
) error {
	start := time.Now()
	err := o.next.Unlink(ctx, userID, provider)
	o.record(ctx, "unlink", start, err)
	return err
}

// ListAccounts records metrics for linked account listing.
func (o *oauthUseCaseWithMetrics) ListAccounts(
	ctx context.Context,
	userID uuid.UUID,
) ([]*oauthDomain.OAuthAccount, error) {
	start := time.Now()
	accounts, err := o.next.ListAccounts(ctx, userID)
	o.record(ctx, "list_accounts", start, err)
	return accounts, err
}

// DetectAttack records metrics for attack assessments. The assessment action
// is the metric status so blocked and rate limited requests are countable.
func (o *oauthUseCaseWithMetrics) DetectAttack(
	ctx context.Context,
	clientID, ip, userAgent, requestType string,
) (oauthDomain.AttackAssessment, error) {
	start := time.Now()
	assessment, err := o.next.DetectAttack(ctx, clientID, ip, userAgent, requestType)

	status := string(assessment.Action)
	o.metrics.RecordOperation(ctx, "oauth", "detect_attack", status)
	o.metrics.RecordDuration(ctx, "oauth", "detect_attack", time.Since(start), status)

	return assessment, err
}

// CleanExpiredStates records metrics for state cleanup runs.
func (o *oauthUseCaseWithMetrics) CleanExpiredStates(ctx context.Context) (int64, error) {
	start := time.Now()
	deleted, err := o.next.CleanExpiredStates(ctx)
	o.record(ctx, "clean_expired_states", start, err)
	return deleted, err
}
