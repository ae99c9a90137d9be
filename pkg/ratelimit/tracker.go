package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_catalog_quota_remaining",
		Help: "Requests remaining in the current catalog API quota window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_catalog_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to critical quota",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_catalog_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to warning quota",
	})
)

// DefaultThrottleDelay is how long a request waits in the warning range.
const DefaultThrottleDelay = 1 * time.Second

// stateGrace is how long stored quota state outlives its reset time.
const stateGrace = 1 * time.Minute

// Tracker monitors the catalog API quota and gates requests.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	thresholds    Thresholds
	throttleDelay time.Duration
}

// NewTracker creates a new rate limit tracker with default thresholds.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		thresholds:    DefaultThresholds(),
		throttleDelay: DefaultThrottleDelay,
	}
}

// WithThresholds returns the tracker configured with th.
func (t *Tracker) WithThresholds(th Thresholds) *Tracker {
	t.thresholds = th
	return t
}

// WithThrottleDelay returns the tracker configured with delay for the
// warning range.
func (t *Tracker) WithThrottleDelay(delay time.Duration) *Tracker {
	t.throttleDelay = delay
	return t
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if errors.Is(err, redis.Nil) {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return t.defaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
		Thresholds: t.thresholds,
	}
	state.UpdateHealth()

	// A window that has reset no longer says anything about the quota.
	if resetTimestamp > 0 && state.TimeUntilReset() == 0 {
		t.logger.Debug().
			Int("remaining", remaining).
			Time("reset_at", state.ResetAt).
			Msg("Quota window has reset, returning default healthy state")
		return t.defaultState(), nil
	}

	return state, nil
}

func (t *Tracker) defaultState() *RateLimitState {
	now := time.Now()
	return &RateLimitState{
		Remaining:  100,
		ResetAt:    now.Add(60 * time.Second),
		LastUpdate: now,
		IsHealthy:  true,
		Thresholds: t.thresholds,
	}
}

// UpdateFromHeaders parses quota headers and updates Redis state.
// Responses without quota headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	now := time.Now()
	state := &RateLimitState{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
		Thresholds: t.thresholds,
	}
	state.UpdateHealth()

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	// Keys outlive the window slightly so GetState sees the reset first.
	ttl := time.Duration(max(resetSeconds, 0))*time.Second + stateGrace

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, remain, ttl)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	quotaRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Catalog quota CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Catalog quota WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("Catalog quota state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current
// rate limit state. Returns false if the request must be blocked. In the
// warning range it waits for the throttle delay before allowing.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Catalog quota critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("delay", t.throttleDelay).
			Msg("Catalog quota warning - throttling request")

		rateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}
