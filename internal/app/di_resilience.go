package app

import (
	"fmt"

	"github.com/gateproof/authcore/internal/cache"
	"github.com/gateproof/authcore/internal/resilience"
)

// BreakerRegistry returns the shared circuit breaker registry instance.
func (c *Container) BreakerRegistry() *resilience.BreakerRegistry {
	c.breakersInit.Do(func() {
		c.breakers = resilience.NewBreakerRegistry(
			c.config.BreakerFailureThreshold,
			c.config.BreakerRecoveryTimeout,
		)
	})
	return c.breakers
}

// ResilienceClient returns the outbound HTTP client instance. All requests to
// OAuth providers and alert webhooks go through it.
func (c *Container) ResilienceClient() (*resilience.Client, error) {
	c.httpClientInit.Do(func() {
		c.httpClient = resilience.NewClient(
			nil,
			c.BreakerRegistry(),
			resilience.ClientOptions{
				Timeout:     c.config.FetchTimeout,
				MaxRetries:  c.config.FetchMaxRetries,
				BackoffBase: c.config.FetchBackoffBase,
				BackoffMax:  c.config.FetchBackoffMax,
				JitterMax:   c.config.FetchJitterMax,
			},
			c.Logger(),
		)
	})
	return c.httpClient, nil
}

// Cache returns the tiered cache instance. The remote tier is only attached
// when Redis is enabled.
func (c *Container) Cache() (*cache.TieredCache, error) {
	var err error
	c.cacheInit.Do(func() {
		c.cache, err = c.initCache()
		if err != nil {
			c.initErrors["cache"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cache"]; exists {
		return nil, storedErr
	}
	return c.cache, nil
}

// initCache creates the tiered cache instance.
func (c *Container) initCache() (*cache.TieredCache, error) {
	memory := cache.NewMemoryCache(c.config.CacheMemoryMaxEntries)

	var remote cache.Store
	if c.config.RedisEnabled {
		redisStore, err := cache.NewRedisStore(c.config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		remote = redisStore
	}

	return cache.NewTieredCache(memory, remote, c.config.CacheKeyPrefix, c.config.CacheDefaultTTL, c.Logger()), nil
}
