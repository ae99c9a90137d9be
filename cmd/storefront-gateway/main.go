package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/b2b-storefront/internal/config"
	"github.com/Sternrassler/b2b-storefront/pkg/catalog"
	"github.com/Sternrassler/b2b-storefront/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront-gateway"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, getEnv("STOREFRONT_CONFIG", "")); err != nil {
		log.Fatal().Err(err).Msg("Gateway stopped with error")
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Setup(cfg.Log.LoggingConfig(serviceName))

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(cfg.Redis.Options())
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	} else {
		log.Warn().Msg("Redis disabled - catalog responses are not cached")
	}

	catalogClient, err := catalog.New(cfg.Catalog.ClientConfig(redisClient))
	if err != nil {
		return fmt.Errorf("create catalog client: %w", err)
	}
	defer catalogClient.Close()

	srv := newServer(catalogClient, redisClient, cfg)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", httpServer.Addr).
			Str("catalog", cfg.Catalog.BaseURL).
			Str("user_agent", cfg.Catalog.UserAgent).
			Msg("Starting storefront gateway")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down storefront gateway")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
