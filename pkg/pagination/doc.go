// Package pagination merges a paged catalog resource into one growing feed.
//
// The catalog API answers list requests with a batch of items plus an
// optional continuation (next_page for offset paging, next_cursor for cursor
// paging). A Feed keeps the items of every page fetched so far, in fetch
// order, and knows how to ask for the next batch.
//
// A feed moves between three states:
//
//	Idle      --RequestMore-->   Fetching
//	Fetching  --page received--> Idle | Exhausted
//	Fetching  --error-->         Idle (nothing appended, params unchanged)
//
// At most one fetch is in flight per feed. RequestMore calls that arrive
// while a fetch is outstanding, or after the feed is exhausted, are ignored.
// This makes the feed safe to drive from noisy triggers such as scroll or
// visibility events.
//
// Example usage:
//
//	feed := pagination.NewFeed[Product](source, url.Values{"limit": {"20"}})
//	if _, err := feed.RequestMore(ctx); err != nil {
//		// show retry affordance; the same page is requested next time
//	}
//	render(feed.Items(), feed.HasMore())
//
// Drain walks a feed to the end (or a page cap) for non-interactive callers.
//
// Items are not deduplicated. Offset-paged backends may return an item twice
// when rows are inserted between requests; the feed keeps both copies.
package pagination
