package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5, cfg.DBMaxIdleConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, 10*time.Minute, cfg.OAuthStateTTL)
				assert.Equal(t, 4.0, cfg.OAuthEntropyFloor)
				assert.Equal(t, 100*time.Millisecond, cfg.OAuthMinStateLookup)
				assert.Equal(t, 5, cfg.LockoutMaxAttempts)
				assert.Equal(t, 10*time.Minute, cfg.LockoutWindow)
				assert.Equal(t, 5, cfg.BreakerFailureThreshold)
				assert.Equal(t, 30*time.Second, cfg.BreakerRecoveryTimeout)
				assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
				assert.Equal(t, 3, cfg.FetchMaxRetries)
				assert.Equal(t, "api:v1", cfg.CacheKeyPrefix)
				assert.False(t, cfg.RedisEnabled)
				assert.Nil(t, cfg.OAuthAllowedRedirectURIs)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST": "localhost",
				"SERVER_PORT": "9090",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
			},
		},
		{
			name: "load custom oauth configuration",
			envVars: map[string]string{
				"OAUTH_STATE_TTL_MINUTES":      "5",
				"OAUTH_ENTROPY_FLOOR":          "3.5",
				"OAUTH_ALLOWED_REDIRECT_URIS":  "https://app.example.com/callback, https://staging.example.com/callback",
				"OAUTH_MIN_STATE_LOOKUP_MS":    "50",
				"RATE_LIMIT_CALLBACK_ENABLED":  "false",
				"BREAKER_FAILURE_THRESHOLD":    "3",
				"LOCKOUT_MAX_ATTEMPTS":         "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Minute, cfg.OAuthStateTTL)
				assert.Equal(t, 3.5, cfg.OAuthEntropyFloor)
				assert.Equal(t, []string{
					"https://app.example.com/callback",
					"https://staging.example.com/callback",
				}, cfg.OAuthAllowedRedirectURIs)
				assert.Equal(t, 50*time.Millisecond, cfg.OAuthMinStateLookup)
				assert.False(t, cfg.RateLimitCallbackEnabled)
				assert.Equal(t, 3, cfg.BreakerFailureThreshold)
				assert.Equal(t, 10, cfg.LockoutMaxAttempts)
			},
		},
		{
			name: "load custom cache configuration",
			envVars: map[string]string{
				"CACHE_MEMORY_MAX_ENTRIES":  "500",
				"CACHE_DEFAULT_TTL_SECONDS": "60",
				"CACHE_KEY_PREFIX":          "api:v2",
				"REDIS_ENABLED":             "true",
				"REDIS_URL":                 "redis://cache.internal:6379/1",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 500, cfg.CacheMemoryMaxEntries)
				assert.Equal(t, 60*time.Second, cfg.CacheDefaultTTL)
				assert.Equal(t, "api:v2", cfg.CacheKeyPrefix)
				assert.True(t, cfg.RedisEnabled)
				assert.Equal(t, "redis://cache.internal:6379/1", cfg.RedisURL)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				require.NoError(t, os.Setenv(key, value))
			}
			defer func() {
				for key := range tt.envVars {
					_ = os.Unsetenv(key)
				}
			}()

			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	tests := []struct {
		logLevel string
		expected string
	}{
		{"debug", "debug"},
		{"info", "release"},
		{"warn", "release"},
		{"error", "release"},
		{"unknown", "release"},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.expected, cfg.GetGinMode())
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a"}, splitList("a"))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b"))
	assert.Equal(t, []string{"a", "b"}, splitList("a,,b,"))
}
