package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/b2b-storefront/pkg/catalog"
	"github.com/Sternrassler/b2b-storefront/pkg/logging"
	"github.com/Sternrassler/b2b-storefront/pkg/pagination"
	"github.com/Sternrassler/b2b-storefront/pkg/variant"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// paramMaxPages caps a feed drain. It is consumed by the gateway and never
// forwarded to the catalog.
const paramMaxPages = "max_pages"

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// catalogProxyHandler forwards GET /catalog/<endpoint> to the catalog API.
// Example: /catalog/v1/products?category=fasteners -> /v1/products?category=fasteners
func (s *server) catalogProxyHandler(w http.ResponseWriter, r *http.Request) {
	endpoint := "/" + chi.URLParam(r, "*")

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.catalog.URL(endpoint, r.URL.Query()), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		req.Header.Set(catalog.HeaderRequestID, id)
	}

	resp, err := s.catalog.Do(req)
	if err != nil {
		logging.Ctx(r.Context(), s.logger).Warn().Err(err).Str("endpoint", endpoint).Msg("Catalog request failed")
		writeError(w, statusFor(err), err)
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logging.Ctx(r.Context(), s.logger).Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to copy catalog response")
	}
}

// hopHeaders apply to a single connection and are not forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// copyHeaders adds the end-to-end headers of src to dst. Headers listed in
// src's Connection header are dropped along with the standard hop headers.
func copyHeaders(dst, src http.Header) {
	skip := make(map[string]bool, len(hopHeaders))
	for _, h := range hopHeaders {
		skip[h] = true
	}
	for _, value := range src.Values("Connection") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				skip[http.CanonicalHeaderKey(name)] = true
			}
		}
	}

	for key, values := range src {
		if skip[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// feedResponse is the body of GET /feeds/<endpoint>.
type feedResponse struct {
	Error   string            `json:"error,omitempty"`
	Items   []json.RawMessage `json:"items"`
	HasMore bool              `json:"has_more"`
	Params  url.Values        `json:"params"`
}

// feedHandler drains a paged catalog endpoint and returns all items in
// order. The response carries the continuation params so a client can pick
// up where a capped drain stopped. A failed drain answers with the partial
// items and the error.
func (s *server) feedHandler(w http.ResponseWriter, r *http.Request) {
	endpoint := "/" + chi.URLParam(r, "*")

	params := r.URL.Query()
	cfg := s.drain
	if raw := params.Get(paramMaxPages); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid %s %q", paramMaxPages, raw))
			return
		}
		if cfg.MaxPages == 0 || n < cfg.MaxPages {
			cfg.MaxPages = n
		}
	}
	params.Del(paramMaxPages)

	feed := catalog.NewFeed[json.RawMessage](s.catalog, endpoint, params,
		pagination.WithLogger(logging.Ctx(r.Context(), s.logger).With().Str("endpoint", endpoint).Logger()))

	items, err := pagination.Drain(r.Context(), feed, cfg)

	resp := feedResponse{
		Items:   items,
		HasMore: feed.HasMore(),
		Params:  feed.Params(),
	}
	if resp.Items == nil {
		resp.Items = []json.RawMessage{}
	}

	status := http.StatusOK
	if err != nil {
		logging.Ctx(r.Context(), s.logger).Warn().Err(err).Str("endpoint", endpoint).Int("items", len(items)).Msg("Feed drain failed")
		resp.Error = err.Error()
		status = statusFor(err)
	}
	writeJSON(w, status, resp)
}

// optionsRequest is the body of POST /variants/options.
type optionsRequest struct {
	Variants   []variant.Variant `json:"variants" validate:"required"`
	Selections variant.Selection `json:"selections"`
}

// selectRequest is the body of POST /variants/select.
type selectRequest struct {
	Variants   []variant.Variant `json:"variants" validate:"required"`
	Selections variant.Selection `json:"selections"`
	Section    string            `json:"section" validate:"required"`
	Value      string            `json:"value" validate:"required"`
}

// priceRange is the price span across a product's variants.
type priceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// optionsResponse describes the option picker for one selection.
type optionsResponse struct {
	ProductID  variant.ID        `json:"product_id,omitempty"`
	Name       string            `json:"name,omitempty"`
	Selections variant.Selection `json:"selections"`
	Sections   []variant.Section `json:"sections"`
	Variant    *variant.Variant  `json:"variant"`
	Price      *priceRange       `json:"price_range,omitempty"`
}

func newOptionsResponse(resolver *variant.Resolver, selection variant.Selection) optionsResponse {
	if selection == nil {
		selection = variant.Selection{}
	}
	resp := optionsResponse{
		Selections: selection,
		Sections:   resolver.Options(selection),
	}
	if v, ok := resolver.Resolve(selection); ok {
		resp.Variant = v
	}
	if lo, hi, ok := variant.PriceRange(resolver.Variants()); ok {
		resp.Price = &priceRange{Min: lo, Max: hi}
	}
	return resp
}

func (s *server) variantOptionsHandler(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, newOptionsResponse(variant.NewResolver(req.Variants), req.Selections))
}

func (s *server) variantSelectHandler(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}
	selection := variant.ApplySelection(req.Selections, req.Section, req.Value)
	writeJSON(w, http.StatusOK, newOptionsResponse(variant.NewResolver(req.Variants), selection))
}

// productOptionsHandler loads a product and resolves the selection given in
// the query string, e.g. /products/42/options?size=M8&finish=zinc.
func (s *server) productOptionsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		logging.Ctx(r.Context(), s.logger).Warn().Err(err).Str("product_id", id).Msg("Product lookup failed")
		writeError(w, statusFor(err), err)
		return
	}

	selection := variant.Selection{}
	for name, values := range r.URL.Query() {
		if len(values) > 0 && values[0] != "" {
			selection[name] = values[0]
		}
	}

	resp := newOptionsResponse(product.Resolver(), selection)
	resp.ProductID = product.ID
	resp.Name = product.Name
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a size-limited JSON body into v and validates it. It writes
// the error response itself and reports whether the caller may proceed.
func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return false
	}

	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			err = fmt.Errorf("%s: failed %s", verrs[0].Field(), verrs[0].Tag())
		}
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// statusFor maps a catalog or drain error to the gateway's response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, catalog.ErrContextCancelled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, pagination.ErrFeedBusy):
		return http.StatusConflict
	case catalog.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
