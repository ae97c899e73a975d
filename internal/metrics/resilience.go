package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gateproof/authcore/internal/cache"
	"github.com/gateproof/authcore/internal/resilience"
)

// breakerStateValue maps a circuit breaker state onto a gauge value. Closed
// is zero so dashboards can alert on any non-zero endpoint.
func breakerStateValue(state resilience.BreakerState) int64 {
	switch state {
	case resilience.StateOpen:
		return 2
	case resilience.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

// RegisterResilienceMetrics exposes cache tier counters and circuit breaker
// states as observable instruments. Values are read from the live snapshots
// on every scrape rather than pushed on each cache or breaker event.
func RegisterResilienceMetrics(
	meterProvider metric.MeterProvider,
	namespace string,
	tiered *cache.TieredCache,
	breakers *resilience.BreakerRegistry,
) error {
	meter := meterProvider.Meter(namespace)

	cacheHits, err := meter.Int64ObservableCounter(
		fmt.Sprintf("%s_cache_hits_total", namespace),
		metric.WithDescription("Cache hits by tier"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache hit counter: %w", err)
	}

	cacheMisses, err := meter.Int64ObservableCounter(
		fmt.Sprintf("%s_cache_misses_total", namespace),
		metric.WithDescription("Cache misses by tier"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache miss counter: %w", err)
	}

	cacheEvictions, err := meter.Int64ObservableCounter(
		fmt.Sprintf("%s_cache_evictions_total", namespace),
		metric.WithDescription("Cache entries evicted by tier"),
		metric.WithUnit("{eviction}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache eviction counter: %w", err)
	}

	cacheErrors, err := meter.Int64ObservableCounter(
		fmt.Sprintf("%s_cache_errors_total", namespace),
		metric.WithDescription("Cache tier failures by tier"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache error counter: %w", err)
	}

	cacheHitRate, err := meter.Float64ObservableGauge(
		fmt.Sprintf("%s_cache_hit_rate", namespace),
		metric.WithDescription("Combined cache hit rate across both tiers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache hit rate gauge: %w", err)
	}

	breakerState, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_circuit_breaker_state", namespace),
		metric.WithDescription("Circuit breaker state per endpoint (0 closed, 1 half-open, 2 open)"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create circuit breaker gauge: %w", err)
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			snapshot := tiered.Metrics()

			memory := metric.WithAttributes(attribute.String("tier", "memory"))
			observer.ObserveInt64(cacheHits, snapshot.Memory.Hits, memory)
			observer.ObserveInt64(cacheMisses, snapshot.Memory.Misses, memory)
			observer.ObserveInt64(cacheEvictions, snapshot.Memory.Evictions, memory)
			observer.ObserveInt64(cacheErrors, snapshot.Memory.Errors, memory)

			remote := metric.WithAttributes(attribute.String("tier", "remote"))
			observer.ObserveInt64(cacheHits, snapshot.Remote.Hits, remote)
			observer.ObserveInt64(cacheMisses, snapshot.Remote.Misses, remote)
			observer.ObserveInt64(cacheEvictions, snapshot.Remote.Evictions, remote)
			observer.ObserveInt64(cacheErrors, snapshot.Remote.Errors, remote)

			observer.ObserveFloat64(cacheHitRate, snapshot.CombinedHitRate)

			for endpoint, state := range breakers.States() {
				observer.ObserveInt64(breakerState, breakerStateValue(state),
					metric.WithAttributes(attribute.String("endpoint", endpoint)))
			}
			return nil
		},
		cacheHits, cacheMisses, cacheEvictions, cacheErrors, cacheHitRate, breakerState,
	)
	if err != nil {
		return fmt.Errorf("failed to register resilience metrics callback: %w", err)
	}
	return nil
}
