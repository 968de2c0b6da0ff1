// Package mcp connects agents to Model Context Protocol servers and exposes
// their remote tools through the tool.Provider interface.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/clearcoat/paintdesk/pkg/logging"
	"github.com/clearcoat/paintdesk/tool"
)

// ErrClientClosed is returned when the MCP client has been closed.
var ErrClientClosed = errors.New("mcp client closed")

// ToolError is returned when the MCP server reports an error response.
type ToolError struct {
	Name    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("mcp tool %s: %s", e.Name, e.Message)
}

// Option configures optional MCP client behaviour.
type Option func(*clientConfig)

type clientConfig struct {
	implementation sdkmcp.Implementation
	logger         *slog.Logger
	args           []string
	env            []string
	httpClient     *http.Client
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithCommandArgs configures additional arguments when launching a stdio MCP
// server.
func WithCommandArgs(args ...string) Option {
	return func(cfg *clientConfig) {
		cfg.args = append(cfg.args, args...)
	}
}

// WithCommandEnv appends environment variables when launching a stdio MCP
// server.
func WithCommandEnv(env ...string) Option {
	return func(cfg *clientConfig) {
		cfg.env = append(cfg.env, env...)
	}
}

// WithHTTPClient supplies a custom HTTP client for the streamable transport.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = client
	}
}

// Client wraps the official MCP Go SDK client and session, and implements
// tool.Provider.
type Client struct {
	sdkClient *sdkmcp.Client
	session   *sdkmcp.ClientSession
	logger    *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func defaultConfig() clientConfig {
	return clientConfig{
		implementation: sdkmcp.Implementation{
			Name:    "paintdesk",
			Version: "0.1.0",
		},
		logger: logging.WithComponent("mcp"),
	}
}

// NewStdioClient launches an MCP server command over the stdio transport and
// performs the initialization handshake.
func NewStdioClient(ctx context.Context, command string, opts ...Option) (*Client, error) {
	if command == "" {
		return nil, errors.New("mcp: command cannot be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := exec.Command(command, cfg.args...)
	if len(cfg.env) > 0 {
		cmd.Env = append(os.Environ(), cfg.env...)
	}

	client := &Client{logger: cfg.logger}
	client.sdkClient = sdkmcp.NewClient(&cfg.implementation, nil)

	session, err := client.sdkClient.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect failed: %w", err)
	}
	client.session = session
	return client, nil
}

// NewStreamableClient connects to an MCP server over the streamable HTTP
// transport.
func NewStreamableClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("mcp: endpoint cannot be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	client := &Client{logger: cfg.logger}
	client.sdkClient = sdkmcp.NewClient(&cfg.implementation, nil)

	transport := &sdkmcp.StreamableClientTransport{Endpoint: endpoint}
	if cfg.httpClient != nil {
		transport.HTTPClient = cfg.httpClient
	}

	session, err := client.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect failed: %w", err)
	}
	client.session = session
	return client, nil
}

// Close terminates the MCP session.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.session != nil {
			c.closeErr = c.session.Close()
		}
	})
	return c.closeErr
}

// ListAllTools returns the full set of tools exposed by the MCP server.
func (c *Client) ListAllTools(ctx context.Context) ([]*sdkmcp.Tool, error) {
	if c.session == nil {
		return nil, ErrClientClosed
	}

	params := &sdkmcp.ListToolsParams{}
	var tools []*sdkmcp.Tool
	for {
		res, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		params.Cursor = res.NextCursor
	}
	return tools, nil
}

// CallTool invokes a remote MCP tool and returns the textual response.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.session == nil {
		return "", ErrClientClosed
	}

	result, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}

	text := normalizeContent(result.Content)
	if result.IsError {
		if text == "" {
			text = "tool returned error without message"
		}
		return "", &ToolError{Name: name, Message: text}
	}
	return text, nil
}

// Tools implements tool.Provider by converting remote MCP tool definitions
// into local tool registrations that proxy calls back to the server.
func (c *Client) Tools(ctx context.Context) ([]*tool.Tool, error) {
	defs, err := c.ListAllTools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]*tool.Tool, 0, len(defs))
	for _, def := range defs {
		if def == nil {
			continue
		}

		remoteName := def.Name
		tools = append(tools, &tool.Tool{
			Name:        remoteName,
			Description: def.Description,
			Parameters:  parametersFromSchema(def.InputSchema),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				if args == nil {
					args = make(map[string]any)
				}
				return c.CallTool(ctx, remoteName, args)
			},
		})
	}
	return tools, nil
}

func normalizeContent(content []sdkmcp.Content) string {
	if len(content) == 0 {
		return ""
	}

	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *sdkmcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := c.MarshalJSON(); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func parametersFromSchema(schema any) []tool.Parameter {
	schemaMap := toMap(schema)
	if schemaMap == nil {
		return nil
	}

	typeVal, _ := schemaMap["type"].(string)
	if !strings.EqualFold(typeVal, "object") {
		return nil
	}

	propsRaw, ok := schemaMap["properties"].(map[string]any)
	if !ok || len(propsRaw) == 0 {
		return nil
	}

	requiredSet := make(map[string]struct{})
	if list, ok := schemaMap["required"].([]any); ok {
		for _, item := range list {
			if name, ok := item.(string); ok {
				requiredSet[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(propsRaw))
	for name := range propsRaw {
		names = append(names, name)
	}
	sort.Strings(names)

	parameters := make([]tool.Parameter, 0, len(names))
	for _, name := range names {
		propMap, ok := propsRaw[name].(map[string]any)
		if !ok {
			continue
		}

		param := tool.Parameter{
			Name:        name,
			Description: stringValue(propMap["description"]),
			Type:        stringValue(propMap["type"]),
			Default:     propMap["default"],
		}
		if _, ok := requiredSet[name]; ok {
			param.Required = true
		}
		if enums, ok := toStrings(propMap["enum"]); ok {
			param.Enum = enums
		}
		if param.Type == "" {
			param.Type = inferType(propMap)
		}
		parameters = append(parameters, param)
	}
	return parameters
}

func inferType(prop map[string]any) string {
	if _, ok := prop["items"]; ok {
		return "array"
	}
	if _, ok := prop["properties"]; ok {
		return "object"
	}
	return "string"
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toStrings(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			values = append(values, s)
		}
	}
	return values, true
}

func toMap(v any) map[string]any {
	switch value := v.(type) {
	case map[string]any:
		return value
	case json.RawMessage:
		var out map[string]any
		if err := json.Unmarshal(value, &out); err != nil {
			return nil
		}
		return out
	case []byte:
		var out map[string]any
		if err := json.Unmarshal(value, &out); err != nil {
			return nil
		}
		return out
	case nil:
		return nil
	default:
		// Schema structs (e.g. *jsonschema.Schema) round-trip through JSON.
		data, err := json.Marshal(value)
		if err != nil {
			return nil
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil
		}
		return out
	}
}
