package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ideatrek/authgate/core/logger"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// staleAfter is how long an untouched bucket survives cleanup.
const staleAfter = time.Hour

// MemoryStore is a single-instance Store.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	now     func() time.Time

	cleanupInterval time.Duration
	logger          *slog.Logger
	running         atomic.Bool

	bucketsCreated atomic.Int64
	bucketsRemoved atomic.Int64
}

// MemoryStoreStats reports bucket counters.
type MemoryStoreStats struct {
	BucketsCreated int64
	BucketsRemoved int64
	ActiveBuckets  int
	IsRunning      bool
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the cleanup interval for removing stale buckets.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryClock sets the time source.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// WithMemoryStoreLogger sets the logger for internal operations.
func WithMemoryStoreLogger(l *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if l != nil {
			ms.logger = l
		}
	}
}

// NewMemoryStore creates a MemoryStore. Idle buckets are only evicted while
// Run is active.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucket),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		logger:          logger.Discard(),
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// ConsumeTokens refills the bucket for key and deducts tokens.
func (ms *MemoryStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	b, exists := ms.buckets[key]

	if !exists {
		b = &bucket{
			tokens:     config.Capacity,
			lastRefill: now,
			lastAccess: now,
		}
		ms.buckets[key] = b
		ms.bucketsCreated.Add(1)
	}

	elapsed := now.Sub(b.lastRefill)
	// Capped so huge gaps cannot overflow tokensToAdd.
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervalsElapsed := int(min(int64(elapsed/config.RefillInterval), maxIntervals))

	if intervalsElapsed > 0 {
		tokensToAdd := intervalsElapsed * config.RefillRate
		b.tokens = min(b.tokens+tokensToAdd, config.Capacity)
		b.lastRefill = now
	}

	b.tokens -= tokens
	remaining = b.tokens
	b.lastAccess = now

	resetAt = b.lastRefill.Add(config.RefillInterval)

	return remaining, resetAt, nil
}

// Reset drops the bucket for key.
func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.buckets, key)
	return nil
}

// Run returns a function that evicts idle buckets every cleanup interval
// until ctx is cancelled. It fits errgroup and async.Exec.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return func() error {
		if ms.cleanupInterval <= 0 {
			return fmt.Errorf("%w: cleanup interval must be positive, got %s", ErrInvalidConfig, ms.cleanupInterval)
		}
		if !ms.running.CompareAndSwap(false, true) {
			return errors.New("ratelimiter: memory store cleanup already running")
		}
		defer ms.running.Store(false)

		ms.logger.DebugContext(ctx, "rate limit bucket cleanup started",
			logger.Component("ratelimiter"), logger.Duration(ms.cleanupInterval))

		ticker := time.NewTicker(ms.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := ms.removeStale(); n > 0 {
					ms.logger.DebugContext(ctx, "evicted idle rate limit buckets",
						logger.Component("ratelimiter"), logger.Count("buckets", n))
				}
			}
		}
	}
}

func (ms *MemoryStore) removeStale() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	removed := 0
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > staleAfter {
			delete(ms.buckets, key)
			removed++
		}
	}
	ms.bucketsRemoved.Add(int64(removed))
	return removed
}

// Stats returns bucket counters.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.mu.RLock()
	activeBuckets := len(ms.buckets)
	ms.mu.RUnlock()

	return MemoryStoreStats{
		BucketsCreated: ms.bucketsCreated.Load(),
		BucketsRemoved: ms.bucketsRemoved.Load(),
		ActiveBuckets:  activeBuckets,
		IsRunning:      ms.running.Load(),
	}
}

// Healthcheck fails when cleanup is configured but Run is not active, since
// buckets of one-off clients then accumulate.
func (ms *MemoryStore) Healthcheck(ctx context.Context) error {
	if ms.cleanupInterval > 0 && !ms.Stats().IsRunning {
		return fmt.Errorf("%w: cleanup is configured but not running", ErrStoreUnavailable)
	}
	return nil
}
