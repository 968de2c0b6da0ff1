// Package agent implements the specialist agents that answer customer turns.
// An agent owns its instructions, its toolset and a model client; each turn
// replays a persisted thread transcript to the model and streams the reply.
package agent

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	pderrors "github.com/clearcoat/paintdesk/errors"
	"github.com/clearcoat/paintdesk/message"
	"github.com/clearcoat/paintdesk/pkg/logging"
	"github.com/clearcoat/paintdesk/pkg/telemetry"
	"github.com/clearcoat/paintdesk/pkg/tokens"
	"github.com/clearcoat/paintdesk/thread"
	"github.com/clearcoat/paintdesk/tool"
)

// Agent answers customer turns for one specialty.
type Agent struct {
	name          string
	instructions  string
	model         string
	temperature   float64
	maxIterations int
	tokenBudget   int
	client        ModelClient
	tools         *tool.Registry
	store         thread.Store
	counter       tokens.Counter
	logger        *slog.Logger

	providerMu     sync.Mutex
	toolProviders  []tool.Provider
	providerLoaded map[tool.Provider]bool
}

// Option is a function that configures an Agent.
type Option func(*Agent)

// WithName sets the agent name.
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithInstructions sets the system instructions.
func WithInstructions(instructions string) Option {
	return func(a *Agent) {
		a.instructions = instructions
	}
}

// WithModel sets the model identifier passed to the client.
func WithModel(model string) Option {
	return func(a *Agent) {
		a.model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(a *Agent) {
		a.temperature = temp
	}
}

// WithMaxIterations sets the maximum tool-calling rounds per turn.
func WithMaxIterations(max int) Option {
	return func(a *Agent) {
		a.maxIterations = max
	}
}

// WithTokenBudget caps the transcript tokens replayed to the model.
// Zero disables trimming.
func WithTokenBudget(budget int) Option {
	return func(a *Agent) {
		a.tokenBudget = budget
	}
}

// WithClient sets the model client.
func WithClient(client ModelClient) Option {
	return func(a *Agent) {
		a.client = client
	}
}

// WithStore sets the thread transcript store.
func WithStore(store thread.Store) Option {
	return func(a *Agent) {
		a.store = store
	}
}

// WithCounter sets the token counter used for transcript trimming.
func WithCounter(counter tokens.Counter) Option {
	return func(a *Agent) {
		a.counter = counter
	}
}

// WithTool registers a tool with the agent.
func WithTool(t *tool.Tool) Option {
	return func(a *Agent) {
		_ = a.tools.Upsert(t)
	}
}

// WithTools registers several tools with the agent.
func WithTools(tools ...*tool.Tool) Option {
	return func(a *Agent) {
		for _, t := range tools {
			_ = a.tools.Upsert(t)
		}
	}
}

// WithToolProvider registers a tool provider that supplies tools on demand.
func WithToolProvider(provider tool.Provider) Option {
	return func(a *Agent) {
		if provider == nil {
			return
		}
		a.toolProviders = append(a.toolProviders, provider)
	}
}

// WithLogger sets the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an agent with the given options.
func New(opts ...Option) *Agent {
	a := &Agent{
		name:           "Agent",
		instructions:   "You are a helpful retail assistant.",
		temperature:    0.7,
		maxIterations:  5,
		tools:          tool.NewRegistry(),
		counter:        tokens.RuneEstimator{},
		logger:         logging.WithComponent("agent"),
		providerLoaded: make(map[tool.Provider]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.name
}

// RegisterTool registers a tool with the agent.
func (a *Agent) RegisterTool(t *tool.Tool) error {
	return a.tools.Register(t)
}

// Tools returns the agent's tool registry.
func (a *Agent) Tools() *tool.Registry {
	return a.tools
}

// NewThread creates a transcript seeded with the agent's instructions and
// returns its handle.
func (a *Agent) NewThread(ctx context.Context) (string, error) {
	if a.store == nil {
		return "", fmt.Errorf("agent %s has no thread store", a.name)
	}

	var seed []*message.Message
	if a.instructions != "" {
		seed = append(seed, message.NewMessage(message.RoleSystem, a.instructions))
	}

	id, err := a.store.Create(ctx, seed)
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return id, nil
}

// loadToolProviders pulls tools from registered providers once.
func (a *Agent) loadToolProviders(ctx context.Context) error {
	a.providerMu.Lock()
	defer a.providerMu.Unlock()

	for _, provider := range a.toolProviders {
		if a.providerLoaded[provider] {
			continue
		}

		tools, err := provider.Tools(ctx)
		if err != nil {
			return fmt.Errorf("load tools from provider: %w", err)
		}
		for _, t := range tools {
			if t == nil || t.Name == "" {
				continue
			}
			if err := a.tools.Upsert(t); err != nil {
				return err
			}
		}
		a.providerLoaded[provider] = true
	}
	return nil
}

// Invoke runs one customer turn on an existing thread. It appends the user
// message to the transcript, replays the trimmed transcript to the model,
// executes any requested tools and persists every produced message. The
// returned sequence yields text deltas as they stream and each completed
// message of the turn; the last yielded message is the final assistant reply.
func (a *Agent) Invoke(ctx context.Context, threadID, input string) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		ctx, span := telemetry.Tracer().Start(ctx, "agent.invoke")
		var turnErr error
		defer func() { telemetry.End(span, turnErr) }()

		if a.client == nil {
			turnErr = fmt.Errorf("agent %s: %w", a.name, pderrors.ErrAgentUnavailable)
			yield(Chunk{}, turnErr)
			return
		}
		if a.store == nil {
			turnErr = fmt.Errorf("agent %s has no thread store", a.name)
			yield(Chunk{}, turnErr)
			return
		}

		transcript, err := a.store.Load(ctx, threadID)
		if err != nil {
			turnErr = fmt.Errorf("failed to load thread %s: %w", threadID, err)
			yield(Chunk{}, turnErr)
			return
		}

		if err := a.loadToolProviders(ctx); err != nil {
			turnErr = err
			yield(Chunk{}, turnErr)
			return
		}

		userMsg := message.NewMessage(message.RoleUser, input)
		if err := a.store.Append(ctx, threadID, userMsg); err != nil {
			turnErr = fmt.Errorf("failed to append user message: %w", err)
			yield(Chunk{}, turnErr)
			return
		}
		transcript = append(transcript, userMsg)

		for i := 0; i < a.maxIterations; i++ {
			replay := thread.Trim(transcript, a.tokenBudget, a.counter)

			req := &GenerateRequest{
				Model:       a.model,
				Temperature: a.temperature,
				Messages:    replay,
				Tools:       a.tools.ToJSONSchemas(),
			}

			var final *message.Message
			for chunk, err := range a.client.Generate(ctx, req) {
				if err != nil {
					turnErr = fmt.Errorf("model generation failed: %w", err)
					yield(Chunk{}, turnErr)
					return
				}
				if chunk.Message != nil {
					final = chunk.Message
					continue
				}
				if chunk.Delta != "" && !yield(chunk, nil) {
					return
				}
			}

			if final == nil {
				turnErr = fmt.Errorf("model stream ended without a completed message")
				yield(Chunk{}, turnErr)
				return
			}

			if err := a.store.Append(ctx, threadID, final); err != nil {
				turnErr = fmt.Errorf("failed to append assistant message: %w", err)
				yield(Chunk{}, turnErr)
				return
			}
			transcript = append(transcript, final)

			if len(final.ToolCalls) == 0 {
				if final.Text() == "" {
					turnErr = fmt.Errorf("agent %s: %w", a.name, pderrors.ErrEmptyResponse)
					yield(Chunk{}, turnErr)
					return
				}
				yield(Chunk{Message: final}, nil)
				return
			}

			if !yield(Chunk{Message: final}, nil) {
				return
			}

			for _, call := range final.ToolCalls {
				result, err := a.tools.Execute(ctx, call.Name, call.Args)
				if err != nil {
					a.logger.Warn("tool execution failed",
						"agent", a.name, "tool", call.Name, "error", err)
					result = fmt.Sprintf("Error executing tool %s: %v", call.Name, err)
				}

				toolMsg := message.NewToolResponseMessage(call.ID, result)
				if err := a.store.Append(ctx, threadID, toolMsg); err != nil {
					turnErr = fmt.Errorf("failed to append tool message: %w", err)
					yield(Chunk{}, turnErr)
					return
				}
				transcript = append(transcript, toolMsg)

				if !yield(Chunk{Message: toolMsg}, nil) {
					return
				}
			}
		}

		turnErr = fmt.Errorf("max iterations (%d) reached", a.maxIterations)
		yield(Chunk{}, turnErr)
	}
}
