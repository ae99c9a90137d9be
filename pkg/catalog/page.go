package catalog

import (
	"context"
	"net/url"

	"github.com/Sternrassler/b2b-storefront/pkg/pagination"
)

// ListResponse is the envelope of every paged catalog endpoint.
type ListResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
}

// PaginationInfo carries the continuation hints of a list response.
// Both empty means the list is complete.
type PaginationInfo struct {
	NextPage   int    `json:"next_page,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Page converts the envelope into a feed page.
func (r ListResponse[T]) Page() pagination.Page[T] {
	return pagination.Page[T]{
		Items:      r.Data,
		NextPage:   r.Pagination.NextPage,
		NextCursor: r.Pagination.NextCursor,
	}
}

// PageSource fetches pages of one list endpoint.
type PageSource[T any] struct {
	client   *Client
	endpoint string
}

// NewPageSource returns a pagination.Fetcher for endpoint.
func NewPageSource[T any](client *Client, endpoint string) *PageSource[T] {
	return &PageSource[T]{client: client, endpoint: endpoint}
}

// Endpoint returns the list endpoint path.
func (s *PageSource[T]) Endpoint() string {
	return s.endpoint
}

// FetchPage implements pagination.Fetcher.
func (s *PageSource[T]) FetchPage(ctx context.Context, params url.Values) (pagination.Page[T], error) {
	var list ListResponse[T]
	if err := s.client.GetJSON(ctx, s.endpoint, params, &list); err != nil {
		return pagination.Page[T]{}, err
	}
	return list.Page(), nil
}

// NewFeed creates a feed over a list endpoint starting from params.
func NewFeed[T any](client *Client, endpoint string, params url.Values, opts ...pagination.Option) *pagination.Feed[T] {
	return pagination.NewFeed[T](NewPageSource[T](client, endpoint), params, opts...)
}
