// Package cache provides the read-through caches used by the assignment
// resolver and the SLA clock, plus the Redis lease that keeps the escalation
// sweep single-flight across processes.
package cache

import (
	"sync"
	"time"
)

// LocalConfig tunes a LocalCache.
type LocalConfig struct {
	MaxEntries      int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// LocalCache is an in-memory cache with TTL and LRU eviction. Each service
// owns its own instance with explicit invalidation; there is no package-level
// singleton.
type LocalCache struct {
	mu      sync.RWMutex
	items   map[string]*localItem
	maxSize int
	ttl     time.Duration
	stopCh  chan struct{}
	stopped sync.Once
}

type localItem struct {
	value      any
	expiresAt  time.Time
	accessedAt time.Time
}

// NewLocalCache creates a local cache and starts its cleanup loop.
func NewLocalCache(cfg LocalConfig) *LocalCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	lc := &LocalCache{
		items:   make(map[string]*localItem),
		maxSize: cfg.MaxEntries,
		ttl:     cfg.DefaultTTL,
		stopCh:  make(chan struct{}),
	}
	go lc.cleanupLoop(cfg.CleanupInterval)
	return lc
}

// Get retrieves an item; the second result is false on miss or expiry.
func (lc *LocalCache) Get(key string) (any, bool) {
	lc.mu.RLock()
	item, exists := lc.items[key]
	lc.mu.RUnlock()

	if !exists || time.Now().After(item.expiresAt) {
		return nil, false
	}

	lc.mu.Lock()
	item.accessedAt = time.Now()
	lc.mu.Unlock()
	return item.value, true
}

// Set stores an item. ttl <= 0 uses the cache default.
func (lc *LocalCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = lc.ttl
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if _, exists := lc.items[key]; !exists && len(lc.items) >= lc.maxSize {
		lc.evictLRU()
	}

	now := time.Now()
	lc.items[key] = &localItem{
		value:      value,
		expiresAt:  now.Add(ttl),
		accessedAt: now,
	}
}

// Delete removes an item, if present.
func (lc *LocalCache) Delete(key string) {
	lc.mu.Lock()
	delete(lc.items, key)
	lc.mu.Unlock()
}

// Clear removes all items.
func (lc *LocalCache) Clear() {
	lc.mu.Lock()
	lc.items = make(map[string]*localItem)
	lc.mu.Unlock()
}

// Len returns the current entry count.
func (lc *LocalCache) Len() int {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return len(lc.items)
}

// Stop terminates the cleanup goroutine.
func (lc *LocalCache) Stop() {
	lc.stopped.Do(func() { close(lc.stopCh) })
}

// evictLRU removes the least recently used item. Caller holds the lock.
func (lc *LocalCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range lc.items {
		if oldestKey == "" || item.accessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.accessedAt
		}
	}
	if oldestKey != "" {
		delete(lc.items, oldestKey)
	}
}

func (lc *LocalCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lc.cleanup()
		case <-lc.stopCh:
			return
		}
	}
}

func (lc *LocalCache) cleanup() {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := time.Now()
	for key, item := range lc.items {
		if now.After(item.expiresAt) {
			delete(lc.items, key)
		}
	}
}
