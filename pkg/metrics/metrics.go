// Package metrics provides the Prometheus registry, the HTTP instrumentation
// of the gateway, and the catalogue of storefront metrics.
// Library metrics are defined in their respective packages (catalog, cache,
// ratelimit, pagination) and registered via promauto.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the storefront.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gateway HTTP metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_gateway_requests_total",
		Help: "Total gateway HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_gateway_request_duration_seconds",
		Help:    "Gateway HTTP request duration in seconds by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Names lists every metric the storefront exports.
var Names = []string{
	// pkg/catalog
	"storefront_catalog_requests_total",
	"storefront_catalog_request_duration_seconds",
	"storefront_catalog_errors_total",
	"storefront_catalog_retries_total",
	"storefront_catalog_retry_backoff_seconds",
	"storefront_catalog_retry_exhausted_total",
	// pkg/ratelimit
	"storefront_catalog_quota_remaining",
	"storefront_catalog_rate_limit_blocks_total",
	"storefront_catalog_rate_limit_throttles_total",
	// pkg/cache
	"storefront_cache_hits_total",
	"storefront_cache_misses_total",
	"storefront_cache_size_bytes",
	"storefront_cache_conditional_requests_total",
	"storefront_cache_304_responses_total",
	"storefront_cache_errors_total",
	// pkg/pagination
	"storefront_feed_pages_total",
	"storefront_feed_requests_ignored_total",
	// pkg/metrics
	"storefront_gateway_requests_total",
	"storefront_gateway_request_duration_seconds",
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and duration per chi route pattern.
// Unmatched requests are labelled "unmatched" to bound cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(storefront_cache_hits_total[5m])) /
//	(sum(rate(storefront_cache_hits_total[5m])) + sum(rate(storefront_cache_misses_total[5m])))
//
//	# Quota Status
//	storefront_catalog_quota_remaining < 20
//
//	# Feed pages ignored by the in-flight guard
//	sum by (state) (rate(storefront_feed_requests_ignored_total[5m]))
//
//	# P95 Catalog Latency
//	histogram_quantile(0.95, rate(storefront_catalog_request_duration_seconds_bucket[5m]))
//
//	# 304 Response Rate
//	rate(storefront_cache_304_responses_total[5m]) / rate(storefront_catalog_requests_total[5m])
