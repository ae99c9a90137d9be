package pagination

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDrainConfig(t *testing.T) {
	cfg := DefaultDrainConfig()

	if cfg.MaxPages != 400 {
		t.Errorf("MaxPages = %d, want 400", cfg.MaxPages)
	}
	if cfg.ProgressEvery != 50 {
		t.Errorf("ProgressEvery = %d, want 50", cfg.ProgressEvery)
	}
	if cfg.Timeout <= 0 {
		t.Errorf("Timeout = %v, want > 0", cfg.Timeout)
	}
}

func TestDrain_AllPages(t *testing.T) {
	fetcher := &scriptedFetcher{pages: cursorPages()}
	feed := NewFeed[int](fetcher, url.Values{"limit": {"3"}})

	items, err := Drain(context.Background(), feed, DefaultDrainConfig())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, items)
	assert.False(t, feed.HasMore())
	assert.Equal(t, 3, fetcher.callCount())
}

func TestDrain_StopsAtPageCap(t *testing.T) {
	fetcher := &scriptedFetcher{pages: cursorPages()}
	feed := NewFeed[int](fetcher, nil)

	items, err := Drain(context.Background(), feed, DrainConfig{MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
	assert.True(t, feed.HasMore())

	items, err = Drain(context.Background(), feed, DrainConfig{MaxPages: 2})
	require.NoError(t, err)
	assert.Len(t, items, 9)
	assert.False(t, feed.HasMore())
}

func TestDrain_PartialResultsOnError(t *testing.T) {
	boom := errors.New("502 bad gateway")
	fetcher := &scriptedFetcher{
		pages: cursorPages(),
		errs:  map[int]error{2: boom},
	}
	feed := NewFeed[int](fetcher, nil)

	items, err := Drain(context.Background(), feed, DefaultDrainConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
	assert.True(t, feed.HasMore())

	items, err = Drain(context.Background(), feed, DefaultDrainConfig())
	require.NoError(t, err)
	assert.Len(t, items, 9)
}

func TestDrain_LogsThroughFeedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("request_id", "req-7").Logger()

	fetcher := &scriptedFetcher{
		pages: cursorPages(),
		errs:  map[int]error{1: errors.New("timeout")},
	}
	feed := NewFeed[int](fetcher, nil, WithLogger(logger))

	_, err := Drain(context.Background(), feed, DefaultDrainConfig())
	require.Error(t, err)

	var failed string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "Drain failed") {
			failed = line
		}
	}
	require.NotEmpty(t, failed, "drain failure should be logged on the feed logger")
	assert.Contains(t, failed, `"request_id":"req-7"`)
}

func TestDrain_CancelledContext(t *testing.T) {
	fetcher := &scriptedFetcher{pages: cursorPages()}
	feed := NewFeed[int](fetcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := Drain(ctx, feed, DefaultDrainConfig())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, items)
	assert.Equal(t, 0, fetcher.callCount())
}

func TestDrain_ExhaustedFeedIsNoop(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []Page[int]{{Items: []int{1}}}}
	feed := NewFeed[int](fetcher, nil)

	_, err := Drain(context.Background(), feed, DefaultDrainConfig())
	require.NoError(t, err)

	items, err := Drain(context.Background(), feed, DefaultDrainConfig())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, items)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestDrain_BusyFeed(t *testing.T) {
	fetcher := newBlockingFetcher()
	feed := NewFeed[int](fetcher, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = feed.RequestMore(context.Background())
	}()
	<-fetcher.started

	_, err := Drain(context.Background(), feed, DefaultDrainConfig())
	assert.ErrorIs(t, err, ErrFeedBusy)

	close(fetcher.release)
	<-done
}
