package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "catalog"

// CacheKey represents a unique identifier for a cached catalog response.
type CacheKey struct {
	// Endpoint is the catalog API path (e.g., "/v1/products")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"page": "2"})
	QueryParams url.Values

	// AccountID scopes responses with account-specific pricing ("" for public)
	AccountID string
}

// String generates a deterministic cache key string.
// Format: catalog:endpoint:query1=val1:query2=val2,val3:acct=id
//
// Example:
//
//	catalog:v1/products:category=fasteners:page=2:acct=acme-gmbh
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism; repeated values keep request order.
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	if k.AccountID != "" {
		parts = append(parts, "acct="+k.AccountID)
	}

	return strings.Join(parts, ":")
}
