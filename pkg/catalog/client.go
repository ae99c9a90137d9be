// Package catalog provides the HTTP client for the storefront catalog API
// with quota tracking, caching, and error handling.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/b2b-storefront/pkg/cache"
	"github.com/Sternrassler/b2b-storefront/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for catalog client operations.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_requests_total",
		Help: "Total catalog API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_catalog_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})
)

// Header names sent with every catalog request.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderAccountID = "X-Account-ID"
)

// Client is the catalog API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	pacer       *rate.Limiter
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	retry       RetryConfig
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis backs the response cache and the shared quota state.
	// Optional: without it the client neither caches nor gates on quota.
	Redis *redis.Client

	// BaseURL of the catalog API, e.g. "https://catalog.example.com"
	BaseURL string

	// UserAgent identifies the storefront, e.g. "b2b-storefront/1.0 (ops@example.com)"
	UserAgent string

	// AccountID scopes cached responses and is sent as X-Account-ID.
	AccountID string

	// Rate Limiting
	RateLimit      int // Requests per second, 0 disables client-side pacing
	ErrorThreshold int // Block requests when remaining quota < threshold

	// Caching
	DefaultCacheTTL time.Duration // TTL for responses without freshness headers

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration

	// Timeout per HTTP attempt
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, baseURL, userAgent string) Config {
	return Config{
		Redis:           redis,
		BaseURL:         baseURL,
		UserAgent:       userAgent,
		RateLimit:       10,
		ErrorThreshold:  ratelimit.ThresholdCritical,
		DefaultCacheTTL: cache.DefaultTTL,
		MaxRetries:      2,
		InitialBackoff:  500 * time.Millisecond,
		Timeout:         30 * time.Second,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || (baseURL.Scheme != "http" && baseURL.Scheme != "https") || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.ErrorThreshold < 5 {
		return nil, fmt.Errorf("error_threshold must be >= 5 (got %d)", cfg.ErrorThreshold)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DefaultCacheTTL <= 0 {
		cfg.DefaultCacheTTL = cache.DefaultTTL
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
		retry.MaxBackoff = max(retry.MaxBackoff, 10*cfg.InitialBackoff)
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		retry:   retry,
		config:  cfg,
		logger:  logger,
	}

	if cfg.RateLimit > 0 {
		c.pacer = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger).WithThresholds(ratelimit.Thresholds{
			Critical: cfg.ErrorThreshold,
			Warning:  cfg.ErrorThreshold * 4,
			Healthy:  cfg.ErrorThreshold * 10,
		})
		c.cache = cache.NewManager(cfg.Redis)
	} else {
		logger.Warn().Msg("No Redis configured - response cache and quota gate disabled")
	}

	return c, nil
}

// Do performs an HTTP request with pacing, quota gating, caching, and retries.
//
// 4xx responses are returned to the caller unchanged. Server, rate-limit and
// network failures are retried; when retries run out Do returns an error
// wrapping ErrRetryExhausted and the last *APIError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Client-side pacing
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
	}

	// Step 2: Shared quota gate
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by rate limiter")
			catalogRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			return nil, ErrRateLimited
		}
	}

	// Step 3: Check cache
	cacheable := c.cache != nil && req.Method == http.MethodGet
	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
		AccountID:   c.config.AccountID,
	}

	var cachedEntry *cache.CacheEntry
	if cacheable {
		entry, err := c.cache.GetStale(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().Str("endpoint", endpoint).Msg("Serving fresh cache entry")
			catalogRequestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			return cache.EntryToResponse(entry), nil
		case err == nil:
			cachedEntry = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 4: Conditional request for stale entries
	if cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 5: Request headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if c.config.AccountID != "" {
		req.Header.Set(HeaderAccountID, c.config.AccountID)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("request_id", req.Header.Get(HeaderRequestID)).
		Msg("Executing catalog request")

	// Step 6: Execute with retry
	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.logger, c.retry, func(attempt int) error {
		attemptReq, err := rewindRequest(req, attempt)
		if err != nil {
			return err
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(attemptReq)
		if reqErr != nil {
			resp = nil
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			}
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Int("attempt", attempt).Msg("HTTP request failed")
			catalogErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			catalogRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: reqErr}
		}

		if c.rateLimiter != nil {
			if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
			}
		}

		// 304 is not an error
		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			catalogErrorsTotal.WithLabelValues(string(errClass)).Inc()
			catalogRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Catalog request error")

			if shouldRetry(errClass) {
				resp.Body.Close()
				return &APIError{
					StatusCode: resp.StatusCode,
					ErrorClass: errClass,
					Message:    resp.Status,
				}
			}

			// Client errors go back to the caller
			return nil
		}

		catalogRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	// Step 7: 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		catalogRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()
		resp.Body.Close()

		if err := c.cache.UpdateTTL(ctx, cacheKey, c.expiresFrom(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}

		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 8: Update cache on success
	if cacheable && resp.StatusCode == http.StatusOK && !cache.Storable(resp.Header) {
		c.logger.Debug().Str("endpoint", endpoint).Msg("Response marked no-store - not cached")
		if cachedEntry != nil {
			if err := c.cache.Delete(ctx, cacheKey); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to drop cached response")
			}
		}
	} else if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else {
			entry.Expires = c.expiresFrom(resp.Header)
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// expiresFrom applies the configured default TTL to responses that carry
// no freshness headers.
func (c *Client) expiresFrom(h http.Header) time.Time {
	if h.Get("Cache-Control") == "" && h.Get("Expires") == "" {
		return time.Now().Add(c.config.DefaultCacheTTL)
	}
	return cache.ExpiresFromHeaders(h)
}

// rewindRequest returns the request for an attempt, re-reading the body
// on retries when the request carries one.
func rewindRequest(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed for retry")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// URL resolves an endpoint and query against the base URL.
func (c *Client) URL(endpoint string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(endpoint, "/")
	u.RawQuery = query.Encode()
	return u.String()
}

// Get performs a GET request to a catalog endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(endpoint, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close releases idle connections. The Redis client is owned by the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil when Redis is not configured.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
