package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	catalogRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	catalogRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_catalog_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	catalogRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the initial request.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ForErrorClass scales the base configuration for an error class.
// Rate limits back off longest, network errors longer than server errors.
func (base RetryConfig) ForErrorClass(errorClass ErrorClass) RetryConfig {
	cfg := base
	switch errorClass {
	case ErrorClassServer:
		cfg.MaxBackoff = min(base.MaxBackoff, 10*base.InitialBackoff)
	case ErrorClassRateLimit:
		cfg.InitialBackoff = 5 * base.InitialBackoff
		cfg.MaxBackoff = max(base.MaxBackoff, 60*base.InitialBackoff)
	case ErrorClassNetwork:
		cfg.InitialBackoff = 2 * base.InitialBackoff
	}
	return cfg
}

// backoffFor returns the un-jittered delay before retry number attempt (1-based).
func (cfg RetryConfig) backoffFor(attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= cfg.BackoffMultiplier
		if time.Duration(backoff) >= cfg.MaxBackoff {
			return cfg.MaxBackoff
		}
	}
	return min(time.Duration(backoff), cfg.MaxBackoff)
}

// jitter spreads d by ±20%.
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// retryWithBackoff executes fn with exponential backoff. The error class of
// each failure is read from the *APIError fn returns; errors of other types
// and non-retriable classes are returned immediately.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, base RetryConfig, fn func(attempt int) error) error {
	attempts := max(base.MaxAttempts, 1)

	var lastErr error
	var errorClass ErrorClass

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !shouldRetry(apiErr.ErrorClass) {
			return err
		}
		errorClass = apiErr.ErrorClass

		if attempt >= attempts {
			break
		}

		cfg := base.ForErrorClass(errorClass)
		delay := jitter(cfg.backoffFor(attempt))

		catalogRetriesTotal.WithLabelValues(string(errorClass)).Inc()
		catalogRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(delay.Seconds())

		logger.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	catalogRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	logger.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", attempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}
