package toolset

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/clearcoat/paintdesk/catalog"
	pderrors "github.com/clearcoat/paintdesk/errors"
	"github.com/clearcoat/paintdesk/tool"
)

type fakeProducts struct {
	products []catalog.Product
	err      error
}

func (f *fakeProducts) SearchProducts(ctx context.Context, query string, top int) ([]catalog.Product, error) {
	return f.products, f.err
}

func (f *fakeProducts) GetProductBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	for i := range f.products {
		if f.products[i].SKU == sku {
			return &f.products[i], nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", sku, pderrors.ErrNotFound)
}

func (f *fakeProducts) ListProducts(ctx context.Context, top int) ([]catalog.Product, error) {
	return f.products, f.err
}

type fakeOrders struct {
	orders []catalog.Order
}

func (f *fakeOrders) SearchOrders(ctx context.Context, orderID, customerID, description string, top int) ([]catalog.Order, error) {
	var matched []catalog.Order
	for _, o := range f.orders {
		if orderID != "" && o.ID != orderID {
			continue
		}
		if customerID != "" && o.CustomerID != customerID {
			continue
		}
		matched = append(matched, o)
	}
	return matched, nil
}

func (f *fakeOrders) GetOrder(ctx context.Context, id string) (*catalog.Order, error) {
	for i := range f.orders {
		if f.orders[i].ID == id {
			return &f.orders[i], nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", id, pderrors.ErrNotFound)
}

type fakeKnowledge struct {
	docs []catalog.Document
}

func (f *fakeKnowledge) SearchKnowledge(ctx context.Context, query string, top int) ([]catalog.Document, error) {
	return f.docs, nil
}

func (f *fakeKnowledge) GetPolicy(ctx context.Context, topic string) (*catalog.Document, error) {
	for i := range f.docs {
		if f.docs[i].Topic == topic {
			return &f.docs[i], nil
		}
	}
	return nil, fmt.Errorf("policy %s: %w", topic, pderrors.ErrNotFound)
}

func findTool(t *testing.T, tools []*tool.Tool, name string) *tool.Tool {
	t.Helper()
	for _, tl := range tools {
		if tl.Name == name {
			return tl
		}
	}
	t.Fatalf("Tool %s not found", name)
	return nil
}

func TestProductTools(t *testing.T) {
	reader := &fakeProducts{products: []catalog.Product{
		{SKU: "INT-EGG-01", Name: "Interior Eggshell White", Price: 34.99},
		{SKU: "EXT-SAT-02", Name: "Exterior Satin Blue", Price: 42.50},
	}}
	tools := ProductTools(reader)

	t.Run("search returns matches", func(t *testing.T) {
		result, err := findTool(t, tools, "search_products").Execute(context.Background(),
			map[string]any{"query": "eggshell"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !strings.Contains(result, "INT-EGG-01") {
			t.Errorf("Expected SKU in result, got %q", result)
		}
	})

	t.Run("search requires query", func(t *testing.T) {
		_, err := findTool(t, tools, "search_products").Execute(context.Background(), map[string]any{})
		if err == nil {
			t.Error("Expected error for missing required argument")
		}
	})

	t.Run("sku lookup miss is a message not an error", func(t *testing.T) {
		result, err := findTool(t, tools, "get_product_by_sku").Execute(context.Background(),
			map[string]any{"sku": "NOPE"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !strings.Contains(result, "No product") {
			t.Errorf("Expected miss message, got %q", result)
		}
	})

	t.Run("list products", func(t *testing.T) {
		result, err := findTool(t, tools, "list_products").Execute(context.Background(),
			map[string]any{"top": float64(2)})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !strings.Contains(result, "Exterior Satin Blue") {
			t.Errorf("Expected product name in result, got %q", result)
		}
	})
}

func TestOrderTools(t *testing.T) {
	reader := &fakeOrders{orders: []catalog.Order{
		{ID: "ord-100", CustomerID: "cust-1", Status: "shipped", Quantity: 2},
		{ID: "ord-101", CustomerID: "cust-2", Status: "processing", Quantity: 1},
	}}
	tools := OrderTools(reader)

	t.Run("status lookup", func(t *testing.T) {
		result, err := findTool(t, tools, "get_order_status").Execute(context.Background(),
			map[string]any{"order_id": "ord-100"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !strings.Contains(result, "shipped") {
			t.Errorf("Expected status in result, got %q", result)
		}
	})

	t.Run("unknown order is a message", func(t *testing.T) {
		result, err := findTool(t, tools, "get_order_status").Execute(context.Background(),
			map[string]any{"order_id": "ord-999"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !strings.Contains(result, "No order") {
			t.Errorf("Expected miss message, got %q", result)
		}
	})

	t.Run("search by customer", func(t *testing.T) {
		result, err := findTool(t, tools, "search_orders").Execute(context.Background(),
			map[string]any{"customer_id": "cust-2"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !strings.Contains(result, "ord-101") || strings.Contains(result, "ord-100") {
			t.Errorf("Expected only cust-2 orders, got %q", result)
		}
	})
}

func TestReferenceTools(t *testing.T) {
	reader := &fakeKnowledge{docs: []catalog.Document{
		{Topic: "returns", Title: "Return policy", Content: "Returns accepted within 30 days with receipt."},
	}}
	tools := ReferenceTools(reader)

	t.Run("policy returns document content", func(t *testing.T) {
		result, err := findTool(t, tools, "get_policy").Execute(context.Background(),
			map[string]any{"topic": "returns"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result != "Returns accepted within 30 days with receipt." {
			t.Errorf("Expected raw policy content, got %q", result)
		}
	})

	t.Run("unknown topic is a message", func(t *testing.T) {
		result, err := findTool(t, tools, "get_policy").Execute(context.Background(),
			map[string]any{"topic": "shipping"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !strings.Contains(result, "No policy") {
			t.Errorf("Expected miss message, got %q", result)
		}
	})
}

func TestToolsRegister(t *testing.T) {
	registry := tool.NewRegistry()
	for _, tl := range ProductTools(&fakeProducts{}) {
		if err := registry.Register(tl); err != nil {
			t.Fatalf("Register %s failed: %v", tl.Name, err)
		}
	}
	for _, tl := range OrderTools(&fakeOrders{}) {
		if err := registry.Register(tl); err != nil {
			t.Fatalf("Register %s failed: %v", tl.Name, err)
		}
	}
	for _, tl := range ReferenceTools(&fakeKnowledge{}) {
		if err := registry.Register(tl); err != nil {
			t.Fatalf("Register %s failed: %v", tl.Name, err)
		}
	}
	if len(registry.List()) != 7 {
		t.Errorf("Expected 7 registered tools, got %d", len(registry.List()))
	}
}
