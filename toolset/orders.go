package toolset

import (
	"context"
	"errors"
	"fmt"

	"github.com/clearcoat/paintdesk/catalog"
	pderrors "github.com/clearcoat/paintdesk/errors"
	"github.com/clearcoat/paintdesk/tool"
)

// OrderReader is the catalog surface the order tools need.
type OrderReader interface {
	SearchOrders(ctx context.Context, orderID, customerID, description string, top int) ([]catalog.Order, error)
	GetOrder(ctx context.Context, id string) (*catalog.Order, error)
}

// OrderTools returns the tools backing the order status agent.
func OrderTools(reader OrderReader) []*tool.Tool {
	return []*tool.Tool{
		{
			Name:        "search_orders",
			Description: "Search customer orders by order ID, customer ID or description",
			Parameters: []tool.Parameter{
				{
					Name:        "order_id",
					Type:        "string",
					Description: "Exact order ID to look up",
				},
				{
					Name:        "customer_id",
					Type:        "string",
					Description: "Customer ID whose orders to list",
				},
				{
					Name:        "description",
					Type:        "string",
					Description: "Keywords to match against order descriptions",
				},
				{
					Name:        "top",
					Type:        "integer",
					Description: "Maximum number of orders to return",
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				orders, err := reader.SearchOrders(ctx,
					stringArg(args, "order_id"),
					stringArg(args, "customer_id"),
					stringArg(args, "description"),
					intArg(args, "top", 5))
				if err != nil {
					return "", fmt.Errorf("order search failed: %w", err)
				}
				if len(orders) == 0 {
					return "No orders matched the search.", nil
				}
				return encodeResult(orders)
			},
		},
		{
			Name:        "get_order_status",
			Description: "Get the current status of a single order by its ID",
			Parameters: []tool.Parameter{
				{
					Name:        "order_id",
					Type:        "string",
					Description: "The order ID",
					Required:    true,
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				order, err := reader.GetOrder(ctx, stringArg(args, "order_id"))
				if errors.Is(err, pderrors.ErrNotFound) {
					return "No order with that ID.", nil
				}
				if err != nil {
					return "", fmt.Errorf("order lookup failed: %w", err)
				}
				return encodeResult(map[string]any{
					"order_id":   order.ID,
					"status":     order.Status,
					"quantity":   order.Quantity,
					"created_at": order.CreatedAt,
				})
			},
		},
	}
}
