package mcp

import (
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestNormalizeContent(t *testing.T) {
	content := []sdkmcp.Content{
		&sdkmcp.TextContent{Text: "Returns accepted within 30 days."},
		&sdkmcp.ResourceLink{URI: "file://policies/returns.html", Name: "returns.html"},
	}

	got := normalizeContent(content)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	if lines[0] != "Returns accepted within 30 days." {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "\"resource_link\"") {
		t.Fatalf("expected JSON output to include resource link type: %q", lines[1])
	}
}

func TestParametersFromSchema(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "search query",
			},
			"top": map[string]any{
				"type":        "number",
				"description": "maximum items",
				"default":     10,
			},
		},
		"required": []any{"query"},
	}

	params := parametersFromSchema(schema)
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(params))
	}

	if params[0].Name != "query" || params[1].Name != "top" {
		t.Fatalf("expected parameters sorted alphabetically, got %v",
			[]string{params[0].Name, params[1].Name})
	}
	if !params[0].Required {
		t.Fatal("expected 'query' to be required")
	}
	if params[1].Required {
		t.Fatal("'top' must not be required")
	}
}

func TestParametersFromSchemaNonObject(t *testing.T) {
	if params := parametersFromSchema(map[string]any{"type": "string"}); params != nil {
		t.Fatalf("expected nil for non-object schema, got %v", params)
	}
	if params := parametersFromSchema(nil); params != nil {
		t.Fatalf("expected nil for nil schema, got %v", params)
	}
}
