package tool

import "context"

// Provider supplies additional tools that can be registered with an agent,
// e.g. from a remote MCP server.
type Provider interface {
	// Tools returns the provider's current tool definitions.
	Tools(ctx context.Context) ([]*Tool, error)
	// Close releases resources owned by the provider.
	Close() error
}
