// Package ratelimit implements catalog API quota tracking and request gating.
// It monitors the X-RateLimit-Remaining and X-RateLimit-Reset headers so that
// every gateway instance backs off before the API starts rejecting requests.
package ratelimit

import (
	"time"
)

// Response headers carrying the quota window.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "catalog:rate_limit:remaining"
	RedisKeyResetTimestamp = "catalog:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "catalog:rate_limit:last_update"
)

// Default thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all requests when remaining quota falls below this value.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when remaining quota falls below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 50
)

// Thresholds groups the quota levels a Tracker acts on.
type Thresholds struct {
	Critical int
	Warning  int
	Healthy  int
}

// DefaultThresholds returns the package default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Critical: ThresholdCritical,
		Warning:  ThresholdWarning,
		Healthy:  ThresholdHealthy,
	}
}

// RateLimitState represents the current quota window of the catalog API.
// This state is shared across all gateway instances via Redis.
type RateLimitState struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the quota window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= Thresholds.Healthy.
	IsHealthy bool `json:"is_healthy"`

	Thresholds Thresholds `json:"-"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < s.thresholds().Critical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < s.thresholds().Warning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the quota resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= s.thresholds().Healthy
}

func (s *RateLimitState) thresholds() Thresholds {
	if s.Thresholds == (Thresholds{}) {
		return DefaultThresholds()
	}
	return s.Thresholds
}
