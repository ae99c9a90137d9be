package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the fetch state of a feed.
type State int

const (
	// StateIdle means no fetch is outstanding. More pages may exist.
	StateIdle State = iota
	// StateFetching means one page request is in flight.
	StateFetching
	// StateExhausted means the server signaled the end of the feed.
	StateExhausted
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrStaleResponse is returned by RequestMore when the feed was Reset while
// the page was in flight. The page is discarded.
var ErrStaleResponse = errors.New("stale page response discarded")

// FetchError reports a failed page fetch. The feed is back in StateIdle and
// the next RequestMore retries with the same Params.
type FetchError struct {
	Params     url.Values
	Generation uint64
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page (%s): %v", e.Params.Encode(), e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Snapshot describes a feed right after a state transition.
type Snapshot struct {
	State      State
	Items      int
	Pages      int
	HasMore    bool
	Generation uint64
}

// Option configures a Feed.
type Option func(*options)

type options struct {
	observer func(Snapshot)
	logger   zerolog.Logger
}

// WithObserver registers fn to be called after every state transition.
// fn runs on the goroutine that caused the transition, outside the feed lock.
func WithObserver(fn func(Snapshot)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithLogger sets the logger used for feed events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Feed accumulates the items of a paged resource.
//
// A Feed is owned by one screen or session. It is safe for concurrent use;
// concurrent RequestMore calls never result in more than one fetch in flight.
type Feed[T any] struct {
	fetcher  Fetcher[T]
	observer func(Snapshot)
	logger   zerolog.Logger

	mu         sync.Mutex
	params     url.Values
	items      []T
	pages      int
	state      State
	generation uint64
}

// NewFeed creates an idle, empty feed that will fetch its first page with
// initial.
func NewFeed[T any](fetcher Fetcher[T], initial url.Values, opts ...Option) *Feed[T] {
	o := options{
		logger: log.With().Str("component", "feed").Logger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Feed[T]{
		fetcher:  fetcher,
		observer: o.observer,
		logger:   o.logger,
		params:   cloneValues(initial),
		items:    make([]T, 0),
		state:    StateIdle,
	}
}

// RequestMore fetches the next page.
//
// accepted is false when the request was ignored because a fetch is already
// in flight or the feed is exhausted; no request is issued in that case.
// When accepted, exactly one fetch is made. On failure the feed returns to
// StateIdle with items and params untouched and err is a *FetchError.
func (f *Feed[T]) RequestMore(ctx context.Context) (accepted bool, err error) {
	f.mu.Lock()
	if f.state != StateIdle {
		state := f.state
		f.mu.Unlock()

		feedRequestsIgnoredTotal.WithLabelValues(state.String()).Inc()
		f.logger.Debug().
			Str("state", state.String()).
			Msg("Feed request ignored")
		return false, nil
	}

	f.state = StateFetching
	params := cloneValues(f.params)
	generation := f.generation
	snap := f.snapshotLocked()
	f.mu.Unlock()
	f.notify(snap)

	page, fetchErr := f.fetcher.FetchPage(ctx, params)

	f.mu.Lock()
	if generation != f.generation {
		// Reset left the state at Fetching until this fetch returned.
		f.state = StateIdle
		snap = f.snapshotLocked()
		f.mu.Unlock()
		f.notify(snap)

		feedPagesTotal.WithLabelValues("stale").Inc()
		f.logger.Debug().
			Uint64("generation", generation).
			Msg("Discarding page from reset feed")
		return true, ErrStaleResponse
	}

	if fetchErr != nil {
		f.state = StateIdle
		snap = f.snapshotLocked()
		f.mu.Unlock()
		f.notify(snap)

		feedPagesTotal.WithLabelValues("failed").Inc()
		f.logger.Warn().
			Err(fetchErr).
			Str("params", params.Encode()).
			Msg("Page fetch failed")
		return true, &FetchError{Params: params, Generation: generation, Err: fetchErr}
	}

	f.items = append(f.items, page.Items...)
	f.pages++
	if page.Last() {
		f.state = StateExhausted
	} else {
		f.params = nextParams(f.params, page)
		f.state = StateIdle
	}
	snap = f.snapshotLocked()
	f.mu.Unlock()
	f.notify(snap)

	feedPagesTotal.WithLabelValues("appended").Inc()
	f.logger.Debug().
		Int("page_items", len(page.Items)).
		Int("total_items", snap.Items).
		Int("pages", snap.Pages).
		Str("state", snap.State.String()).
		Msg("Page appended")
	return true, nil
}

// Reset discards all items and starts over with params. A page that is in
// flight when Reset is called is dropped on arrival, and the feed stays in
// StateFetching until then so the new generation never overlaps it.
func (f *Feed[T]) Reset(params url.Values) {
	f.mu.Lock()
	f.generation++
	f.params = cloneValues(params)
	f.items = make([]T, 0)
	f.pages = 0
	if f.state != StateFetching {
		f.state = StateIdle
	}
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.logger.Debug().
		Uint64("generation", snap.Generation).
		Msg("Feed reset")
	f.notify(snap)
}

// Items returns a copy of all items fetched so far, in fetch order.
func (f *Feed[T]) Items() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out
}

// Len returns the number of items fetched so far.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// HasMore reports whether the feed is not exhausted.
func (f *Feed[T]) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != StateExhausted
}

// State returns the current state.
func (f *Feed[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Params returns a copy of the parameters the next fetch will use.
func (f *Feed[T]) Params() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneValues(f.params)
}

// Generation returns the reset counter. It starts at zero.
func (f *Feed[T]) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

// Snapshot returns the current feed summary.
func (f *Feed[T]) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed[T]) snapshotLocked() Snapshot {
	return Snapshot{
		State:      f.state,
		Items:      len(f.items),
		Pages:      f.pages,
		HasMore:    f.state != StateExhausted,
		Generation: f.generation,
	}
}

func (f *Feed[T]) notify(s Snapshot) {
	if f.observer != nil {
		f.observer(s)
	}
}
