// Package cache provides a two-tier read-through cache: a bounded in-process
// LRU tier in front of an optional Redis tier. Tier failures degrade to
// misses; the cache never fails a caller over connectivity.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// KeySeparator joins key components into a cache key.
const KeySeparator = ":"

// Store is one cache tier.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, pattern string) error
}

// TierMetrics is a point-in-time counter snapshot for one tier.
type TierMetrics struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Errors    int64 `json:"errors"`
}

// Metrics combines both tier snapshots. CombinedHitRate counts a remote hit
// as a hit even though the memory tier missed first.
type Metrics struct {
	Memory          TierMetrics `json:"memory"`
	Remote          TierMetrics `json:"remote"`
	CombinedHitRate float64     `json:"combined_hit_rate"`
}

type tierCounters struct {
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// TieredCache checks memory first and falls back to the remote tier,
// promoting remote hits into memory. Writes go to both tiers best-effort.
type TieredCache struct {
	memory    *MemoryCache
	remote    Store
	logger    *slog.Logger
	keyPrefix string
	ttl       time.Duration

	memStats    tierCounters
	remoteStats tierCounters
	attempts    atomic.Int64
}

// NewTieredCache creates a TieredCache. remote may be nil, leaving the cache
// memory-only. keyPrefix is the version prefix applied by BuildKey.
func NewTieredCache(memory *MemoryCache, remote Store, keyPrefix string, defaultTTL time.Duration, logger *slog.Logger) *TieredCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &TieredCache{
		memory:    memory,
		remote:    remote,
		logger:    logger,
		keyPrefix: keyPrefix,
		ttl:       defaultTTL,
	}
}

// BuildKey joins the ordered components under the version prefix, e.g.
// BuildKey("repositories", "search", query) -> "api:v1:repositories:search:<query>".
func (c *TieredCache) BuildKey(components ...string) string {
	parts := make([]string, 0, len(components)+1)
	if c.keyPrefix != "" {
		parts = append(parts, c.keyPrefix)
	}
	parts = append(parts, components...)
	return strings.Join(parts, KeySeparator)
}

// Get returns the cached value for key. A remote hit is written back into the
// memory tier before returning. Tier errors are logged, counted and treated
// as a miss.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.attempts.Add(1)

	value, ok, err := c.memory.Get(ctx, key)
	if err != nil {
		c.memStats.errors.Add(1)
	} else if ok {
		c.memStats.hits.Add(1)
		return value, true
	} else {
		c.memStats.misses.Add(1)
	}

	if c.remote == nil {
		return nil, false
	}

	value, ok, err = c.remote.Get(ctx, key)
	if err != nil {
		c.remoteStats.errors.Add(1)
		c.logger.Warn("remote cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		c.remoteStats.misses.Add(1)
		return nil, false
	}
	c.remoteStats.hits.Add(1)

	// promotion: the next read for this key is served from memory
	if err := c.memory.Set(ctx, key, value, c.ttl); err != nil {
		c.memStats.errors.Add(1)
	}
	return value, true
}

// Set writes the value to both tiers with the given TTL (the default TTL when
// ttl is non-positive). Tier failures are logged, never propagated.
func (c *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.memory.Set(ctx, key, value, ttl); err != nil {
		c.memStats.errors.Add(1)
	}
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, value, ttl); err != nil {
		c.remoteStats.errors.Add(1)
		c.logger.Warn("remote cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Delete removes the key from both tiers.
func (c *TieredCache) Delete(ctx context.Context, key string) {
	if err := c.memory.Delete(ctx, key); err != nil {
		c.memStats.errors.Add(1)
	}
	if c.remote == nil {
		return
	}
	if err := c.remote.Delete(ctx, key); err != nil {
		c.remoteStats.errors.Add(1)
		c.logger.Warn("remote cache delete failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Clear removes matching keys from both tiers. An empty pattern clears
// everything under the version prefix.
func (c *TieredCache) Clear(ctx context.Context, pattern string) {
	if pattern == "" {
		pattern = c.keyPrefix
	}
	if err := c.memory.Clear(ctx, pattern); err != nil {
		c.memStats.errors.Add(1)
	}
	if c.remote == nil {
		return
	}
	if err := c.remote.Clear(ctx, pattern); err != nil {
		c.remoteStats.errors.Add(1)
		c.logger.Warn("remote cache clear failed", slog.String("pattern", pattern), slog.String("error", err.Error()))
	}
}

// WarmEntry is one key/value pair to preload.
type WarmEntry struct {
	Key   string
	Value []byte
	TTL   time.Duration
}

// WarmCache preloads entries into both tiers.
func (c *TieredCache) WarmCache(ctx context.Context, entries []WarmEntry) {
	for _, entry := range entries {
		c.Set(ctx, entry.Key, entry.Value, entry.TTL)
	}
}

// Metrics returns a snapshot of per-tier and combined counters.
func (c *TieredCache) Metrics() Metrics {
	m := Metrics{
		Memory: TierMetrics{
			Hits:      c.memStats.hits.Load(),
			Misses:    c.memStats.misses.Load(),
			Evictions: c.memory.Evictions(),
			Errors:    c.memStats.errors.Load(),
		},
		Remote: TierMetrics{
			Hits:   c.remoteStats.hits.Load(),
			Misses: c.remoteStats.misses.Load(),
			Errors: c.remoteStats.errors.Load(),
		},
	}
	if attempts := c.attempts.Load(); attempts > 0 {
		m.CombinedHitRate = float64(m.Memory.Hits+m.Remote.Hits) / float64(attempts)
	}
	return m
}

func matchesPattern(key, pattern string) bool {
	return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
}
