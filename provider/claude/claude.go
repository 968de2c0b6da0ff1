// Package claude implements the agent model client on the official Anthropic
// SDK, streaming messages with tool use.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/clearcoat/paintdesk/agent"
	"github.com/clearcoat/paintdesk/message"
)

// Config holds Claude provider configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:       "claude-3-5-sonnet-20241022",
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// Provider implements agent.ModelClient for Claude.
type Provider struct {
	config *Config
	client anthropic.Client
}

// New creates a new Claude provider using the official SDK.
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "claude-3-5-sonnet-20241022"
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: anthropic.NewClient(options...),
	}
}

// Generate implements agent.ModelClient. It streams text deltas and yields
// the completed assistant message, with any tool uses, last.
func (p *Provider) Generate(ctx context.Context, req *agent.GenerateRequest) iter.Seq2[agent.Chunk, error] {
	return func(yield func(agent.Chunk, error) bool) {
		if req == nil {
			yield(agent.Chunk{}, fmt.Errorf("generate request cannot be nil"))
			return
		}

		params, err := p.buildParams(req)
		if err != nil {
			yield(agent.Chunk{}, err)
			return
		}

		stream := p.client.Messages.NewStreaming(ctx, *params)
		defer stream.Close()

		final := message.NewMessage(message.RoleAssistant, "")
		acc := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				yield(agent.Chunk{}, fmt.Errorf("failed to accumulate event: %w", err))
				return
			}

			if event.Type == "content_block_delta" {
				delta := event.AsContentBlockDelta()
				if delta.Delta.Type == "text_delta" && delta.Delta.Text != "" {
					final.AppendText(delta.Delta.Text)
					if !yield(agent.Chunk{Delta: delta.Delta.Text}, nil) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			yield(agent.Chunk{}, fmt.Errorf("Claude streaming error: %w", err))
			return
		}

		var toolCalls []message.ToolCall
		for _, content := range acc.Content {
			if content.Type != "tool_use" {
				continue
			}
			args := make(map[string]any)
			if len(content.Input) > 0 {
				if err := json.Unmarshal(content.Input, &args); err != nil {
					yield(agent.Chunk{}, fmt.Errorf("failed to parse tool input: %w", err))
					return
				}
			}
			toolCalls = append(toolCalls, message.ToolCall{
				ID:   content.ID,
				Name: content.Name,
				Args: args,
			})
		}
		final.ToolCalls = toolCalls

		yield(agent.Chunk{Message: final}, nil)
	}
}

func (p *Provider) buildParams(req *agent.GenerateRequest) (*anthropic.MessageNewParams, error) {
	var systemPrompts []string
	conversation := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
		case message.RoleUser:
			conversation = append(conversation,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case message.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Args
				if args == nil {
					args = make(map[string]any)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			if len(blocks) > 0 {
				conversation = append(conversation, anthropic.NewAssistantMessage(blocks...))
			}
		case message.RoleTool:
			conversation = append(conversation,
				anthropic.NewUserMessage(anthropic.NewToolResultBlock(msg.ToolID, msg.Content, false)))
		}
	}

	model := p.config.Model
	if req.Model != "" {
		model = req.Model
	}

	params := &anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  conversation,
		MaxTokens: p.config.MaxTokens,
	}

	if len(systemPrompts) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(systemPrompts, "\n")},
		}
	}

	temperature := p.config.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if temperature > 0 {
		params.Temperature = param.NewOpt(temperature)
	}

	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, 0, len(req.Tools))
		for _, schema := range req.Tools {
			fn, ok := schema["function"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("tool schema missing function definition")
			}
			name, _ := fn["name"].(string)
			description, _ := fn["description"].(string)
			parameters, _ := fn["parameters"].(map[string]any)

			toolParam := anthropic.ToolParam{
				Name:        name,
				Description: param.NewOpt(description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Type: constant.Object("object"),
				},
			}
			if parameters != nil {
				toolParam.InputSchema.Properties, _ = parameters["properties"].(map[string]any)
				toolParam.InputSchema.Required = toStringSlice(parameters["required"])
			}
			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = tools
	}

	return params, nil
}

func toStringSlice(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
