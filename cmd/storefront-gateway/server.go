package main

import (
	"net/http"
	"time"

	"github.com/Sternrassler/b2b-storefront/internal/config"
	"github.com/Sternrassler/b2b-storefront/pkg/catalog"
	"github.com/Sternrassler/b2b-storefront/pkg/logging"
	"github.com/Sternrassler/b2b-storefront/pkg/metrics"
	"github.com/Sternrassler/b2b-storefront/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// server binds the catalog client, the feed drain and the variant resolver
// to HTTP.
type server struct {
	catalog      *catalog.Client
	redis        *redis.Client // nil when Redis is disabled
	drain        pagination.DrainConfig
	timeout      time.Duration
	maxBodyBytes int64
	validate     *validator.Validate
	logger       zerolog.Logger
}

func newServer(catalogClient *catalog.Client, redisClient *redis.Client, cfg *config.Config) *server {
	return &server{
		catalog:      catalogClient,
		redis:        redisClient,
		drain:        cfg.Feed.DrainConfig(),
		timeout:      cfg.Catalog.Timeout,
		maxBodyBytes: cfg.Server.MaxBodyBytes,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logging.NewLogger("gateway"),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(s.redis))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/catalog/*", s.catalogProxyHandler)
	r.Get("/feeds/*", s.feedHandler)
	r.Get("/products/{id}/options", s.productOptionsHandler)

	r.Route("/variants", func(r chi.Router) {
		r.Post("/options", s.variantOptionsHandler)
		r.Post("/select", s.variantSelectHandler)
	})

	return r
}

// requestLogger stores a request scoped logger in the context and logs one
// line per request.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		requestID := middleware.GetReqID(r.Context())
		r = r.WithContext(logging.WithRequestID(r.Context(), s.logger, requestID))

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		logger := logging.Ctx(r.Context(), s.logger)
		event := logger.Debug()
		if status >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
