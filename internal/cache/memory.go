package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
	hitCount  int64
	lastUsed  uint64
	size      int
}

// MemoryCache is a bounded in-process cache with LRU eviction. Recency is
// tracked by a monotonic access counter rather than timestamps, so entries
// touched in the same clock tick still order deterministically. Expired
// entries are removed lazily on access, not by a sweeper.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int
	seq        uint64
	evictions  int64
	now        func() time.Time
}

// NewMemoryCache creates a MemoryCache holding at most maxEntries entries.
// Non-positive maxEntries falls back to 1000.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the value for key, or false when the key is absent or expired.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}

	m.seq++
	entry.lastUsed = m.seq
	entry.hitCount++
	return entry.data, true, nil
}

// Set stores the value under key with the given TTL, evicting the least
// recently used entry when the cache is full.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.maxEntries {
		m.evictOldest()
	}

	m.seq++
	m.entries[key] = &memoryEntry{
		data:      value,
		expiresAt: m.now().Add(ttl),
		lastUsed:  m.seq,
		size:      len(value),
	}
	return nil
}

// Delete removes the key if present.
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Clear removes every key matching the prefix pattern. An empty pattern
// clears everything.
func (m *MemoryCache) Clear(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pattern == "" {
		m.entries = make(map[string]*memoryEntry)
		return nil
	}
	for key := range m.entries {
		if matchesPattern(key, pattern) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len returns the number of entries, including not-yet-collected expired ones.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Evictions returns the number of capacity evictions performed so far.
func (m *MemoryCache) Evictions() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions
}

func (m *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestSeq uint64
	first := true
	for key, entry := range m.entries {
		if first || entry.lastUsed < oldestSeq {
			oldestKey = key
			oldestSeq = entry.lastUsed
			first = false
		}
	}
	if !first {
		delete(m.entries, oldestKey)
		m.evictions++
	}
}
