package tool

import (
	"context"
	"testing"
)

func TestToolExecution(t *testing.T) {
	ctx := context.Background()

	tool := &Tool{
		Name:        "search_products",
		Description: "Search the product catalog",
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "Search terms", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "results for " + args["query"].(string), nil
		},
	}

	result, err := tool.Execute(ctx, map[string]any{"query": "blue paint"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result != "results for blue paint" {
		t.Errorf("Unexpected result %q", result)
	}
}

func TestToolValidation(t *testing.T) {
	ctx := context.Background()

	tool := &Tool{
		Name:        "get_order_status",
		Description: "Look up an order",
		Parameters: []Parameter{
			{Name: "order_id", Type: "string", Description: "Order identifier", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "ok", nil
		},
	}

	if _, err := tool.Execute(ctx, map[string]any{}); err == nil {
		t.Error("Expected error for missing required parameter, got nil")
	}

	if _, err := tool.Execute(ctx, map[string]any{"order_id": "order-001"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	tool1 := &Tool{Name: "search_products", Description: "Search the catalog"}
	tool2 := &Tool{Name: "get_product_by_sku", Description: "Fetch one product"}

	if err := registry.Register(tool1); err != nil {
		t.Fatalf("Failed to register tool1: %v", err)
	}

	if err := registry.Register(tool2); err != nil {
		t.Fatalf("Failed to register tool2: %v", err)
	}

	if err := registry.Register(tool1); err == nil {
		t.Error("Expected error for duplicate registration, got nil")
	}

	retrieved, err := registry.Get("search_products")
	if err != nil {
		t.Fatalf("Failed to get tool: %v", err)
	}

	if retrieved.Name != "search_products" {
		t.Errorf("Unexpected tool name %q", retrieved.Name)
	}

	if len(registry.List()) != 2 {
		t.Errorf("Expected 2 tools, got %d", len(registry.List()))
	}
}

func TestToJSONSchema(t *testing.T) {
	tool := &Tool{
		Name:        "search_knowledge",
		Description: "Search policy documents",
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "Search terms", Required: true},
			{Name: "top", Type: "number", Description: "Max results", Default: 5},
		},
	}

	schema := tool.ToJSONSchema()
	fn, ok := schema["function"].(map[string]any)
	if !ok {
		t.Fatal("Expected function entry in schema")
	}
	if fn["name"] != "search_knowledge" {
		t.Errorf("Unexpected schema name %v", fn["name"])
	}

	params := fn["parameters"].(map[string]any)
	required := params["required"].([]string)
	if len(required) != 1 || required[0] != "query" {
		t.Errorf("Unexpected required list %v", required)
	}
}
