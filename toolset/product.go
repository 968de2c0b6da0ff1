package toolset

import (
	"context"
	"errors"
	"fmt"

	"github.com/clearcoat/paintdesk/catalog"
	pderrors "github.com/clearcoat/paintdesk/errors"
	"github.com/clearcoat/paintdesk/tool"
)

// ProductReader is the catalog surface the product tools need.
type ProductReader interface {
	SearchProducts(ctx context.Context, query string, top int) ([]catalog.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*catalog.Product, error)
	ListProducts(ctx context.Context, top int) ([]catalog.Product, error)
}

// ProductTools returns the tools backing the product lookup agent.
func ProductTools(reader ProductReader) []*tool.Tool {
	return []*tool.Tool{
		{
			Name:        "search_products",
			Description: "Search the paint catalog by name or description keywords",
			Parameters: []tool.Parameter{
				{
					Name:        "query",
					Type:        "string",
					Description: "Keywords to match against product names and descriptions",
					Required:    true,
				},
				{
					Name:        "top",
					Type:        "integer",
					Description: "Maximum number of products to return",
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				products, err := reader.SearchProducts(ctx, stringArg(args, "query"), intArg(args, "top", 10))
				if err != nil {
					return "", fmt.Errorf("product search failed: %w", err)
				}
				if len(products) == 0 {
					return "No products matched the search.", nil
				}
				return encodeResult(products)
			},
		},
		{
			Name:        "get_product_by_sku",
			Description: "Look up a single product by its SKU",
			Parameters: []tool.Parameter{
				{
					Name:        "sku",
					Type:        "string",
					Description: "The product SKU",
					Required:    true,
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				product, err := reader.GetProductBySKU(ctx, stringArg(args, "sku"))
				if errors.Is(err, pderrors.ErrNotFound) {
					return "No product with that SKU.", nil
				}
				if err != nil {
					return "", fmt.Errorf("product lookup failed: %w", err)
				}
				return encodeResult(product)
			},
		},
		{
			Name:        "list_products",
			Description: "List products from the catalog, ordered by name",
			Parameters: []tool.Parameter{
				{
					Name:        "top",
					Type:        "integer",
					Description: "Maximum number of products to return",
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				products, err := reader.ListProducts(ctx, intArg(args, "top", 20))
				if err != nil {
					return "", fmt.Errorf("product listing failed: %w", err)
				}
				if len(products) == 0 {
					return "The catalog is empty.", nil
				}
				return encodeResult(products)
			},
		},
	}
}
