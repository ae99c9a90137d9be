//go:build integration

package catalog

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/Sternrassler/b2b-storefront/internal/testutil"
	"github.com/Sternrassler/b2b-storefront/pkg/cache"
	"github.com/Sternrassler/b2b-storefront/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetHandler("/v1/products/42", testutil.NewConditionalHandler(`"v1"`, boltProduct))

	client := newTestClient(t, redisClient, mock.URL())
	ctx := context.Background()

	// Phase 1: initial fetch populates the cache
	product, err := client.GetProduct(ctx, "42")
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if product.Name != "Hex bolt" {
		t.Errorf("Name = %q", product.Name)
	}

	key := cache.CacheKey{Endpoint: "/v1/products/42"}
	if _, err := client.GetCache().GetStale(ctx, key); err != nil {
		t.Fatalf("expected cached entry, got %v", err)
	}

	// Phase 2: stale entry is revalidated with a conditional request
	product, err = client.GetProduct(ctx, "42")
	if err != nil {
		t.Fatalf("second GetProduct() error = %v", err)
	}
	if len(product.Variants) != 3 {
		t.Errorf("Variants = %d, want 3", len(product.Variants))
	}

	if got := mock.GetConditionalCount(); got != 1 {
		t.Errorf("conditional requests = %d, want 1", got)
	}
}

func TestIntegration_SharedQuota(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/v1/products", testutil.NewQuotaResponse(`{"data":[]}`, 2))

	first := newTestClient(t, redisClient, mock.URL())
	second := newTestClient(t, redisClient, mock.URL())
	ctx := context.Background()

	resp, err := first.Get(ctx, "/v1/products", nil)
	if err != nil {
		t.Fatalf("first client Get() error = %v", err)
	}
	resp.Body.Close()

	if _, err := second.Get(ctx, "/v1/products", nil); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second client Get() error = %v, want ErrRateLimited", err)
	}
}

func TestIntegration_FeedDrain(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetList("/v1/products", listItems(25), 10, testutil.Cursors)

	client := newTestClient(t, redisClient, mock.URL())
	feed := NewFeed[listItem](client, "/v1/products", url.Values{"category": {"bolts"}})

	cfg := pagination.DefaultDrainConfig()
	cfg.Timeout = 5 * time.Second

	items, err := pagination.Drain(context.Background(), feed, cfg)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(items) != 25 {
		t.Errorf("items = %d, want 25", len(items))
	}
	if feed.HasMore() {
		t.Error("feed should be exhausted")
	}
}
