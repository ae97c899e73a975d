package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateproof/authcore/internal/cache"
	"github.com/gateproof/authcore/internal/resilience"
)

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)
	return w.Body.String()
}

func TestRegisterResilienceMetrics(t *testing.T) {
	provider, err := NewProvider("resilience_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tiered := cache.NewTieredCache(cache.NewMemoryCache(10), nil, "test:v1", time.Minute, logger)
	breakers := resilience.NewBreakerRegistry(2, time.Minute)

	require.NoError(t, RegisterResilienceMetrics(
		provider.MeterProvider(), "resilience_test", tiered, breakers))

	ctx := context.Background()
	key := tiered.BuildKey("audit", "metrics", "24h")
	tiered.Get(ctx, key)
	tiered.Set(ctx, key, []byte(`{}`), 0)
	tiered.Get(ctx, key)
	tiered.Get(ctx, key)

	breaker := breakers.ForEndpoint("https://github.com/login/oauth/access_token")
	breaker.OnFailure()
	breaker.OnFailure()
	require.Equal(t, resilience.StateOpen, breaker.State())
	breakers.ForEndpoint("https://www.googleapis.com/oauth2/v3/userinfo")

	output := scrape(t, provider)

	assertBizMetricLine(t, output,
		`resilience_test_cache_hits_total`, `tier="memory"`, `2`)
	assertBizMetricLine(t, output,
		`resilience_test_cache_misses_total`, `tier="memory"`, `1`)
	assertBizMetricLine(t, output,
		`resilience_test_circuit_breaker_state`,
		`endpoint="github.com/login/oauth/access_token"`, `2`)
	assertBizMetricLine(t, output,
		`resilience_test_circuit_breaker_state`,
		`endpoint="www.googleapis.com/oauth2/v3/userinfo"`, `0`)
	assert.Contains(t, output, "resilience_test_cache_hit_rate")
}

func TestRegisterResilienceMetrics_StateValuesFollowTransitions(t *testing.T) {
	provider, err := NewProvider("breaker_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tiered := cache.NewTieredCache(cache.NewMemoryCache(10), nil, "test:v1", time.Minute, logger)
	breakers := resilience.NewBreakerRegistry(1, time.Minute)

	require.NoError(t, RegisterResilienceMetrics(
		provider.MeterProvider(), "breaker_test", tiered, breakers))

	breaker := breakers.ForEndpoint("https://api.example.com/token")
	breaker.OnFailure()

	output := scrape(t, provider)
	assertBizMetricLine(t, output,
		`breaker_test_circuit_breaker_state`, `endpoint="api.example.com/token"`, `2`)

	breaker.OnSuccess()
	output = scrape(t, provider)
	assertBizMetricLine(t, output,
		`breaker_test_circuit_breaker_state`, `endpoint="api.example.com/token"`, `0`)
}
