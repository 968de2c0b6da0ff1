// Package openai implements the agent model client on the official OpenAI
// SDK, streaming chat completions with function calling.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/clearcoat/paintdesk/agent"
	"github.com/clearcoat/paintdesk/message"
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default OpenAI configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   2000,
		Temperature: 0.7,
	}
}

// Provider implements agent.ModelClient for OpenAI.
type Provider struct {
	config *Config
	client openaisdk.Client
}

// New creates a new OpenAI provider using the official SDK.
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: openaisdk.NewClient(options...),
	}
}

// Generate implements agent.ModelClient. It streams text deltas and yields
// the completed assistant message, with accumulated tool calls, last.
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

		stream := p.client.Chat.Completions.NewStreaming(ctx, *params)
		defer stream.Close()

		final := message.NewMessage(message.RoleAssistant, "")
		var calls []pendingToolCall

		for stream.Next() {
			event := stream.Current()
			if len(event.Choices) == 0 {
				continue
			}
			choice := event.Choices[0]

			if choice.Delta.Content != "" {
				final.AppendText(choice.Delta.Content)
				if !yield(agent.Chunk{Delta: choice.Delta.Content}, nil) {
					return
				}
			}

			for _, tc := range choice.Delta.ToolCalls {
				idx := int(tc.Index)
				for len(calls) <= idx {
					calls = append(calls, pendingToolCall{})
				}
				if tc.ID != "" {
					calls[idx].id = tc.ID
				}
				if tc.Function.Name != "" {
					calls[idx].name = tc.Function.Name
				}
				calls[idx].args += tc.Function.Arguments
			}
		}

		if err := stream.Err(); err != nil {
			yield(agent.Chunk{}, fmt.Errorf("OpenAI streaming error: %w", err))
			return
		}

		toolCalls, err := resolveToolCalls(calls)
		if err != nil {
			yield(agent.Chunk{}, err)
			return
		}
		final.ToolCalls = toolCalls

		yield(agent.Chunk{Message: final}, nil)
	}
}

func (p *Provider) buildParams(req *agent.GenerateRequest) (*openaisdk.ChatCompletionNewParams, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case message.RoleSystem:
			messages = append(messages, openaisdk.SystemMessage(msg.Text()))
		case message.RoleUser:
			messages = append(messages, openaisdk.UserMessage(msg.Text()))
		case message.RoleAssistant:
			assistantMsg := openaisdk.AssistantMessage(msg.Text())
			if len(msg.ToolCalls) > 0 && assistantMsg.OfAssistant != nil {
				toolCalls, err := encodeToolCalls(msg.ToolCalls)
				if err != nil {
					return nil, fmt.Errorf("failed to encode tool calls: %w", err)
				}
				assistantMsg.OfAssistant.ToolCalls = toolCalls
			}
			messages = append(messages, assistantMsg)
		case message.RoleTool:
			messages = append(messages, openaisdk.ToolMessage(msg.Text(), msg.ToolID))
		}
	}

	model := p.config.Model
	if req.Model != "" {
		model = req.Model
	}

	params := &openaisdk.ChatCompletionNewParams{
		Messages: messages,
		Model:    openaisdk.ChatModel(model),
	}

	temperature := p.config.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if temperature > 0 {
		params.Temperature = param.NewOpt(temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(p.config.MaxTokens)
	}

	if len(req.Tools) > 0 {
		tools := make([]openaisdk.ChatCompletionToolUnionParam, 0, len(req.Tools))
		for _, schema := range req.Tools {
			fn, ok := schema["function"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("tool schema missing function definition")
			}
			name, _ := fn["name"].(string)
			description, _ := fn["description"].(string)
			parameters, _ := fn["parameters"].(map[string]any)

			tools = append(tools, openaisdk.ChatCompletionFunctionTool(openaisdk.FunctionDefinitionParam{
				Name:        name,
				Description: param.NewOpt(description),
				Parameters:  openaisdk.FunctionParameters(parameters),
			}))
		}
		params.Tools = tools
	}

	return params, nil
}

// pendingToolCall accumulates streamed tool-call fragments.
type pendingToolCall struct {
	id   string
	name string
	args string
}

func resolveToolCalls(calls []pendingToolCall) ([]message.ToolCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	resolved := make([]message.ToolCall, 0, len(calls))
	for _, call := range calls {
		args := make(map[string]any)
		if call.args != "" {
			if err := json.Unmarshal([]byte(call.args), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool arguments for %s: %w", call.name, err)
			}
		}
		resolved = append(resolved, message.ToolCall{
			ID:   call.id,
			Name: call.name,
			Args: args,
		})
	}
	return resolved, nil
}

func encodeToolCalls(calls []message.ToolCall) ([]openaisdk.ChatCompletionMessageToolCallUnionParam, error) {
	params := make([]openaisdk.ChatCompletionMessageToolCallUnionParam, 0, len(calls))
	for _, tc := range calls {
		args := tc.Args
		if args == nil {
			args = make(map[string]any)
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		params = append(params, openaisdk.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(raw),
				},
			},
		})
	}
	return params, nil
}
