// Package gemini implements the agent model client against the Google
// Gemini REST API. Responses are returned in one piece, so the stream
// carries a single delta followed by the completed message.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/clearcoat/paintdesk/agent"
	"github.com/clearcoat/paintdesk/message"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1/models"

// Config holds Gemini provider configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns default Gemini configuration.
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-pro",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements agent.ModelClient for Google Gemini.
type Provider struct {
	config *Config
	client *http.Client
}

// New creates a new Gemini provider.
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gemini-pro"
	}
	return &Provider{
		config: config,
		client: &http.Client{},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiMessage struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents    []geminiMessage `json:"contents"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Generate implements agent.ModelClient. Tool schemas are not supported by
// this provider and are ignored.
func (p *Provider) Generate(ctx context.Context, req *agent.GenerateRequest) iter.Seq2[agent.Chunk, error] {
	return func(yield func(agent.Chunk, error) bool) {
		if req == nil {
			yield(agent.Chunk{}, fmt.Errorf("generate request cannot be nil"))
			return
		}

		text, err := p.generateContent(ctx, req)
		if err != nil {
			yield(agent.Chunk{}, err)
			return
		}

		if !yield(agent.Chunk{Delta: text}, nil) {
			return
		}
		yield(agent.Chunk{Message: message.NewMessage(message.RoleAssistant, text)}, nil)
	}
}

func (p *Provider) generateContent(ctx context.Context, req *agent.GenerateRequest) (string, error) {
	if p.config.APIKey == "" {
		return "", fmt.Errorf("Gemini API key not configured")
	}

	contents := make([]geminiMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == message.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiMessage{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Text()}},
		})
	}

	temperature := p.config.Temperature
	if req.Temperature > 0 {
		temperature = float32(req.Temperature)
	}

	payload := geminiRequest{
		Contents:    contents,
		MaxTokens:   p.config.MaxTokens,
		Temperature: temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	model := p.config.Model
	if req.Model != "" {
		model = req.Model
	}
	baseURL := p.config.BaseURL
	if baseURL == "" {
		baseURL = geminiAPIURL
	}
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", baseURL, model, p.config.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("Gemini API error (code %d): %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}
