// Package toolset builds the function tools exposed to the specialist
// agents. Each constructor takes a narrow data interface and returns
// ready-to-register tools, so stores can be swapped or faked in tests.
package toolset

import (
	"encoding/json"
	"fmt"
)

// encodeResult renders a tool result as JSON for the model.
func encodeResult(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(data), nil
}

func stringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}
