package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	"github.com/gateproof/authcore/internal/cache"
)

// cacheKeyspace groups every cached audit read under one prefix so a single
// Clear invalidates all of them.
const cacheKeyspace = "audit"

// auditLogUseCaseWithCache decorates AuditLogUseCase with a read-through
// cache over the aggregation endpoints. Metrics and report queries scan the
// full audit table, so repeated dashboard reads are served from the cache and
// freshness is bounded by the cache TTL. Writes are passed through untouched;
// deletions rewrite history, so they clear the keyspace.
type auditLogUseCaseWithCache struct {
	next   AuditLogUseCase
	cache  *cache.TieredCache
	logger *slog.Logger
}

// NewAuditLogUseCaseWithCache wraps an AuditLogUseCase with response caching
// for GetSecurityMetrics and ExportReport.
func NewAuditLogUseCaseWithCache(next AuditLogUseCase, tiered *cache.TieredCache, logger *slog.Logger) AuditLogUseCase {
	return &auditLogUseCaseWithCache{
		next:   next,
		cache:  tiered,
		logger: logger,
	}
}

func (a *auditLogUseCaseWithCache) LogSecurityEvent(ctx context.Context, entry LogEntry) (*auditDomain.SecurityAuditLog, error) {
	return a.next.LogSecurityEvent(ctx, entry)
}

func (a *auditLogUseCaseWithCache) LogAuthenticationAttempt(
	ctx context.Context,
	userID uuid.UUID,
	success bool,
	ip, userAgent, failureReason string,
) error {
	return a.next.LogAuthenticationAttempt(ctx, userID, success, ip, userAgent, failureReason)
}

func (a *auditLogUseCaseWithCache) LogSessionActivity(ctx context.Context, activity SessionActivity) ([]auditDomain.Anomaly, error) {
	return a.next.LogSessionActivity(ctx, activity)
}

func (a *auditLogUseCaseWithCache) DetectAnomalies(
	ctx context.Context,
	userID uuid.UUID,
	eventType auditDomain.EventType,
) ([]auditDomain.Anomaly, error) {
	return a.next.DetectAnomalies(ctx, userID, eventType)
}

// GetSecurityMetrics serves repeated metrics queries from the cache. A
// corrupt cached entry is dropped and recomputed rather than returned.
func (a *auditLogUseCaseWithCache) GetSecurityMetrics(
	ctx context.Context,
	timeRange, groupBy string,
) (*auditDomain.SecurityMetrics, error) {
	key := a.cache.BuildKey(cacheKeyspace, "metrics", timeRange, groupBy)

	if raw, ok := a.cache.Get(ctx, key); ok {
		var cached auditDomain.SecurityMetrics
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		a.logger.Warn("dropping undecodable cached metrics", slog.String("key", key))
		a.cache.Delete(ctx, key)
	}

	metrics, err := a.next.GetSecurityMetrics(ctx, timeRange, groupBy)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(metrics); err == nil {
		a.cache.Set(ctx, key, raw, 0)
	}
	return metrics, nil
}

// ExportReport caches rendered reports keyed by format and time range.
func (a *auditLogUseCaseWithCache) ExportReport(
	ctx context.Context,
	format string,
	from, to time.Time,
) ([]byte, error) {
	key := a.cache.BuildKey(cacheKeyspace, "report", format,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	if raw, ok := a.cache.Get(ctx, key); ok {
		return raw, nil
	}

	report, err := a.next.ExportReport(ctx, format, from, to)
	if err != nil {
		return nil, err
	}

	a.cache.Set(ctx, key, report, 0)
	return report, nil
}

func (a *auditLogUseCaseWithCache) VerifyIntegrity(ctx context.Context, logID uuid.UUID) (bool, error) {
	return a.next.VerifyIntegrity(ctx, logID)
}

func (a *auditLogUseCaseWithCache) ListLogs(ctx context.Context, filter auditDomain.LogFilter) ([]*auditDomain.SecurityAuditLog, error) {
	return a.next.ListLogs(ctx, filter)
}

// Delete removes a log entry and clears the cached aggregations built over it.
func (a *auditLogUseCaseWithCache) Delete(ctx context.Context, logID uuid.UUID) error {
	if err := a.next.Delete(ctx, logID); err != nil {
		return err
	}
	a.cache.Clear(ctx, a.cache.BuildKey(cacheKeyspace))
	return nil
}

// CleanExpired purges expired entries and clears the cached aggregations.
func (a *auditLogUseCaseWithCache) CleanExpired(ctx context.Context) (int64, error) {
	removed, err := a.next.CleanExpired(ctx)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		a.cache.Clear(ctx, a.cache.BuildKey(cacheKeyspace))
	}
	return removed, nil
}
