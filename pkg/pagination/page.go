package pagination

import (
	"context"
	"net/url"
	"strconv"
)

// Query parameter names that advance a feed.
const (
	ParamPage   = "page"
	ParamCursor = "cursor"
	ParamLimit  = "limit"
)

// Page is one batch of items returned by the server.
//
// NextPage and NextCursor carry the continuation. Zero values mean absent;
// when both are absent the feed has ended.
type Page[T any] struct {
	Items      []T
	NextPage   int
	NextCursor string
}

// Last reports whether the page carries no continuation.
func (p Page[T]) Last() bool {
	return p.NextPage == 0 && p.NextCursor == ""
}

// Fetcher fetches a single page for the given query parameters.
type Fetcher[T any] interface {
	FetchPage(ctx context.Context, params url.Values) (Page[T], error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc[T any] func(ctx context.Context, params url.Values) (Page[T], error)

// FetchPage calls f.
func (f FetcherFunc[T]) FetchPage(ctx context.Context, params url.Values) (Page[T], error) {
	return f(ctx, params)
}

// nextParams merges the page continuation over the previous parameters.
// Filters such as limit or search carry over; page and cursor advance.
func nextParams[T any](prev url.Values, page Page[T]) url.Values {
	next := cloneValues(prev)
	if page.NextPage != 0 {
		next.Set(ParamPage, strconv.Itoa(page.NextPage))
	}
	if page.NextCursor != "" {
		next.Set(ParamCursor, page.NextCursor)
	}
	return next
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
