package cache

import (
	"net/http"
	"time"
)

// CacheEntry is one stored catalog response together with the validators
// needed to revalidate it once it goes stale.
type CacheEntry struct {
	Data       []byte      `json:"data"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`

	// Validators sent back as If-None-Match / If-Modified-Since.
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`

	// Expires ends freshness. A stale entry is only served after a 304.
	Expires  time.Time `json:"expires"`
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired reports whether the entry is stale.
func (e *CacheEntry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the remaining freshness, 0 once stale.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age returns how long ago the entry was stored, 0 when unknown.
func (e *CacheEntry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return time.Since(e.CachedAt)
}

// Revalidatable reports whether the entry carries a validator the catalog
// can answer with 304 Not Modified.
func (e *CacheEntry) Revalidatable() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

// StorageTTL is how long Redis should keep the entry: its freshness plus
// staleWindow for revalidatable entries. A result <= 0 means do not store.
func (e *CacheEntry) StorageTTL(staleWindow time.Duration) time.Duration {
	ttl := e.TTL()
	if e.Revalidatable() {
		ttl += staleWindow
	}
	return ttl
}
