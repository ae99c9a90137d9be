package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/b2b-storefront/pkg/pagination"
	"github.com/Sternrassler/b2b-storefront/pkg/variant"
	"golang.org/x/sync/errgroup"
)

// DefaultProductConcurrency bounds parallel lookups in GetProducts.
const DefaultProductConcurrency = 4

// ProductsEndpoint is the catalog path for products.
const ProductsEndpoint = "/v1/products"

// Product is a catalog product with its purchasable variants.
type Product struct {
	ID          variant.ID        `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Variants    []variant.Variant `json:"variants"`
}

// Resolver returns a variant resolver over the product's variants.
func (p Product) Resolver() *variant.Resolver {
	return variant.NewResolver(p.Variants)
}

// GetProduct fetches one product with its variants.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("product id is required")
	}

	var product Product
	if err := c.GetJSON(ctx, ProductsEndpoint+"/"+url.PathEscape(id), nil, &product); err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &product, nil
}

// GetProducts fetches products in parallel, at most concurrency at a time,
// and returns them in the order of ids. The first failure cancels the rest.
func (c *Client) GetProducts(ctx context.Context, ids []string, concurrency int) ([]*Product, error) {
	if concurrency <= 0 {
		concurrency = DefaultProductConcurrency
	}

	products := make([]*Product, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range ids {
		g.Go(func() error {
			product, err := c.GetProduct(ctx, id)
			if err != nil {
				return err
			}
			products[i] = product
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

// ProductFeed returns a feed over the product listing filtered by params.
func (c *Client) ProductFeed(params url.Values, opts ...pagination.Option) *pagination.Feed[Product] {
	return NewFeed[Product](c, ProductsEndpoint, params, opts...)
}
