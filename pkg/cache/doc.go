// Package cache provides catalog response caching with a Redis backend.
//
// The cache manager stores catalog API responses with the following features:
//
// - TTL derived from Cache-Control max-age or the Expires header
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Stale entries kept for a revalidation window so a 304 can refresh them
// - Prometheus metrics for observability
// - Deterministic cache key generation scoped per buyer account
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/v1/products",
//		QueryParams: url.Values{"category": []string{"fasteners"}},
//		AccountID:   "acme-gmbh",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the catalog API
//	}
//
// # Conditional Requests
//
//	entry, err := manager.GetStale(ctx, key)
//	if err == nil && entry.IsExpired() && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 means the stale entry is still valid
//	}
//
// # Metrics
//
//   - storefront_cache_hits_total{layer="redis"}
//   - storefront_cache_misses_total
//   - storefront_cache_size_bytes{layer="redis"}
//   - storefront_cache_conditional_requests_total
//   - storefront_cache_304_responses_total
//   - storefront_cache_errors_total{operation}
package cache
