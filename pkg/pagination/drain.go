package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrFeedBusy is returned by Drain when another caller holds the feed's
// single in-flight fetch.
var ErrFeedBusy = errors.New("feed has a fetch in flight")

// DrainConfig holds Drain configuration.
type DrainConfig struct {
	// MaxPages stops the drain after this many pages (0 = no cap)
	MaxPages int
	// Timeout per page fetch
	Timeout time.Duration
	// ProgressEvery logs progress every N pages
	ProgressEvery int
}

// DefaultDrainConfig returns safe defaults for the catalog API.
func DefaultDrainConfig() DrainConfig {
	return DrainConfig{
		MaxPages:      400,
		Timeout:       15 * time.Second,
		ProgressEvery: 50,
	}
}

// Drain requests pages until the feed is exhausted or MaxPages pages were
// fetched by this call, and returns all accumulated items.
//
// Pages are fetched strictly one after another; each continuation depends
// on the previous response. On error Drain returns the items gathered so far
// together with the error.
func Drain[T any](ctx context.Context, feed *Feed[T], cfg DrainConfig) ([]T, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 50
	}

	logger := feed.logger
	start := time.Now()
	fetched := 0

	for feed.HasMore() {
		if cfg.MaxPages > 0 && fetched >= cfg.MaxPages {
			logger.Debug().
				Int("max_pages", cfg.MaxPages).
				Msg("Drain stopped at page cap")
			break
		}

		if err := ctx.Err(); err != nil {
			return feed.Items(), fmt.Errorf("drain cancelled after %d pages: %w", fetched, err)
		}

		pageCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		accepted, err := feed.RequestMore(pageCtx)
		cancel()

		if err != nil {
			items := feed.Items()
			logger.Warn().
				Err(err).
				Int("fetched_pages", fetched).
				Int("items", len(items)).
				Msg("Drain failed - returning partial results")
			return items, fmt.Errorf("drain failed (partial data: %d pages, %d items): %w", fetched, len(items), err)
		}
		if !accepted {
			if !feed.HasMore() {
				break
			}
			return feed.Items(), ErrFeedBusy
		}

		fetched++
		if fetched%cfg.ProgressEvery == 0 {
			logger.Info().
				Int("fetched", fetched).
				Int("items", feed.Len()).
				Msg("Drain progress")
		}
	}

	items := feed.Items()
	logger.Debug().
		Int("pages", fetched).
		Int("items", len(items)).
		Bool("has_more", feed.HasMore()).
		Dur("duration", time.Since(start)).
		Msg("Drain complete")

	return items, nil
}
