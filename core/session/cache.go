package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// ExchangeCache replays the result of a refresh or code exchange for a short
// time, so repeated calls with the same single-use input (a remounted
// callback, two tabs refreshing at once) get the same grant instead of a
// backend rejection.
type ExchangeCache interface {
	Get(ctx context.Context, key string) (*Grant, bool, error)
	Set(ctx context.Context, key string, grant *Grant, ttl time.Duration) error
}

// exchangeKey derives a cache key that never contains the secret itself.
func exchangeKey(kind, secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return kind + ":" + hex.EncodeToString(sum[:])
}

type memoryEntry struct {
	grant   Grant
	expires time.Time
}

// MemoryExchangeCache is a process-local ExchangeCache.
type MemoryExchangeCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryExchangeCache creates an empty in-memory cache.
func NewMemoryExchangeCache() *MemoryExchangeCache {
	return &MemoryExchangeCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements ExchangeCache.
func (c *MemoryExchangeCache) Get(_ context.Context, key string) (*Grant, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	g := e.grant
	return &g, true, nil
}

// Set implements ExchangeCache. Expired entries are swept on write.
func (c *MemoryExchangeCache) Set(_ context.Context, key string, grant *Grant, ttl time.Duration) error {
	if grant == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{grant: *grant, expires: now.Add(ttl)}
	return nil
}

// Len returns the number of live entries.
func (c *MemoryExchangeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
