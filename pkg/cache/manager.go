package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultStaleWindow is how long a stale entry with a validator is kept for
// revalidation after it expires.
const DefaultStaleWindow = 1 * time.Hour

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis       *redis.Client
	staleWindow time.Duration
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:       redisClient,
		staleWindow: DefaultStaleWindow,
	}
}

// WithStaleWindow sets how long revalidatable entries outlive their expiry.
// A zero window drops entries as soon as they expire.
func (m *Manager) WithStaleWindow(d time.Duration) *Manager {
	if d < 0 {
		d = 0
	}
	m.staleWindow = d
	return m
}

// Get retrieves a fresh cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is stale.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	entry, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}

	if entry.IsExpired() {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return entry, nil
}

// GetStale retrieves a cache entry whether or not it has expired. Callers
// use it to revalidate stale entries with a conditional request.
func (m *Manager) GetStale(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	entry, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}

	if entry.IsExpired() {
		CacheMisses.Inc()
	} else {
		CacheHits.WithLabelValues("redis").Inc()
	}
	return entry, nil
}

func (m *Manager) load(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	return &entry, nil
}

// Set stores a cache entry with TTL based on the entry's Expires field.
// Entries carrying a validator are kept for the stale window past expiry,
// even when they arrive already stale.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.StorageTTL(m.staleWindow)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// UpdateTTL refreshes the expiry of an existing entry, stale or not.
// Used after a 304 Not Modified response.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, newExpires time.Time) error {
	entry, err := m.GetStale(ctx, key)
	if err != nil {
		return err
	}

	entry.Expires = newExpires

	return m.Set(ctx, key, entry)
}
