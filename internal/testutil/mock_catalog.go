// Package testutil provides testing utilities for the storefront catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock catalog endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// PagingMode selects how a mock list endpoint continues.
type PagingMode int

const (
	// PageNumbers continues with ?page=N (1-based).
	PageNumbers PagingMode = iota
	// Cursors continues with ?cursor=<opaque>.
	Cursors
)

// MockCatalog is a configurable mock catalog API server for testing.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount      int
	conditionalCount  int
	pathCounts        map[string]int
	lastRequestHeader http.Header
	lastQuery         map[string][]string
}

// NewMockCatalog creates a new mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		mock.lastQuery = r.URL.Query()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.pathCounts = make(map[string]int)
	m.lastRequestHeader = nil
	m.lastQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, resp.write)
}

// SetSequence serves responses in order; the last one repeats.
func (m *MockCatalog) SetSequence(path string, responses ...MockResponse) {
	if len(responses) == 0 {
		return
	}
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()
		resp.write(w, r)
	})
}

// SetList serves items as a paged list envelope, pageSize items per page.
// Items are raw JSON values.
func (m *MockCatalog) SetList(path string, items []string, pageSize int, mode PagingMode) {
	if pageSize <= 0 {
		pageSize = len(items)
	}
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		offset, err := listOffset(r, pageSize, mode)
		if err != nil {
			writeQuotaHeaders(w, 100, 60)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"error": %q}`, err.Error())
			return
		}

		end := min(offset+pageSize, len(items))
		if offset > len(items) {
			offset = end
		}

		pagination := map[string]any{}
		if end < len(items) {
			switch mode {
			case Cursors:
				pagination["next_cursor"] = "c" + strconv.Itoa(end)
			default:
				pagination["next_page"] = end/pageSize + 1
			}
		}

		var body strings.Builder
		body.WriteString(`{"data":[`)
		body.WriteString(strings.Join(items[offset:end], ","))
		body.WriteString(`],"pagination":`)
		enc, _ := json.Marshal(pagination)
		body.Write(enc)
		body.WriteString(`}`)

		writeQuotaHeaders(w, 100, 60)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body.String()))
	})
}

func listOffset(r *http.Request, pageSize int, mode PagingMode) (int, error) {
	q := r.URL.Query()
	if mode == Cursors {
		cursor := q.Get("cursor")
		if cursor == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimPrefix(cursor, "c"))
		if err != nil || !strings.HasPrefix(cursor, "c") || n < 0 {
			return 0, fmt.Errorf("invalid cursor %q", cursor)
		}
		return n, nil
	}

	page := q.Get("page")
	if page == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(page)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page %q", page)
	}
	return (n - 1) * pageSize, nil
}

// SetProduct serves a product document at /v1/products/<id>.
func (m *MockCatalog) SetProduct(id, body string) {
	m.SetResponse("/v1/products/"+id, NewHealthyResponse(body))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockCatalog) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockCatalog) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader.Clone()
}

// LastQuery returns the query of the most recent request.
func (m *MockCatalog) LastQuery() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string, len(m.lastQuery))
	for k, v := range m.lastQuery {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// defaultHandler answers unknown paths like the catalog does.
func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request) {
	writeQuotaHeaders(w, 100, 60)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error": "not found"}`))
}

func (resp MockResponse) write(w http.ResponseWriter, _ *http.Request) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeQuotaHeaders(w http.ResponseWriter, remaining, reset int) {
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(reset))
}

// NewHealthyResponse creates a standard 200 OK response with quota headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"ETag":                  `"test-etag-123"`,
			"Cache-Control":         "max-age=300",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewQuotaResponse creates a 200 OK response reporting the given quota.
func NewQuotaResponse(data string, remaining int) MockResponse {
	resp := NewHealthyResponse(data)
	resp.Headers["X-RateLimit-Remaining"] = strconv.Itoa(remaining)
	resp.Headers["Cache-Control"] = "no-cache"
	delete(resp.Headers, "ETag")
	return resp
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"Cache-Control":         "max-age=300",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "30",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "95",
			"X-RateLimit-Reset":     "60",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "product not found"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewConditionalHandler creates a handler that answers 304 when the
// request's If-None-Match matches etag. The 200 response expires at once
// so every follow-up request revalidates.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeQuotaHeaders(w, 100, 60)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Cache-Control", "max-age=0")
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "max-age=0")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
