// Package orchestrator routes customer messages to specialist agents and
// shapes their streamed replies into a stable response envelope. It owns the
// thread cache and is the only component that converts failures into
// user-facing fallback text.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/clearcoat/paintdesk/agent"
	"github.com/clearcoat/paintdesk/cache"
	pderrors "github.com/clearcoat/paintdesk/errors"
	"github.com/clearcoat/paintdesk/intent"
	"github.com/clearcoat/paintdesk/pkg/logging"
	"github.com/clearcoat/paintdesk/pkg/telemetry"
)

// Fallback sentences returned alongside structured errors.
const (
	textUnconfigured = "I'm sorry, the AI service is not properly configured."
	textNoResponse   = "I'm sorry, I couldn't get a response from the agent."
	textFailure      = "I'm sorry, I encountered an error trying to process your request."
)

// Response is the envelope returned for every customer turn. Error is set on
// failures; Text always carries something presentable.
type Response struct {
	Text         string   `json:"text"`
	Messages     []string `json:"messages,omitempty"`
	AwaitingUser bool     `json:"awaiting_user"`
	Error        string   `json:"error,omitempty"`
}

// ConversationAgent is the agent surface the orchestrator drives.
// *agent.Agent satisfies it.
type ConversationAgent interface {
	Name() string
	NewThread(ctx context.Context) (string, error)
	Invoke(ctx context.Context, threadID, input string) iter.Seq2[agent.Chunk, error]
}

// Orchestrator routes turns to agents and caches their threads.
type Orchestrator struct {
	agents        map[string]ConversationAgent
	threads       *cache.ThreadCache
	invokeTimeout time.Duration
	classify      func(string) string
	logger        *slog.Logger
	shutdownFns   []func(context.Context) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAgent registers an agent under its routing name.
func WithAgent(a ConversationAgent) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.agents[a.Name()] = a
		}
	}
}

// WithCache sets the thread cache.
func WithCache(c *cache.ThreadCache) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.threads = c
		}
	}
}

// WithInvokeTimeout bounds each agent invocation. Zero disables the bound.
func WithInvokeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.invokeTimeout = d
	}
}

// WithClassifier overrides the intent classifier; mainly useful for tests.
func WithClassifier(classify func(string) string) Option {
	return func(o *Orchestrator) {
		if classify != nil {
			o.classify = classify
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithShutdown registers a hook run during Shutdown, after the thread cache
// has been drained.
func WithShutdown(fn func(context.Context) error) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.shutdownFns = append(o.shutdownFns, fn)
		}
	}
}

// New creates an orchestrator. An orchestrator with no agents is in the
// degraded "not configured" state: every Respond call returns a canned error
// without touching any agent.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agents:        make(map[string]ConversationAgent),
		invokeTimeout: 120 * time.Second,
		classify:      intent.Classify,
		logger:        logging.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.threads == nil {
		o.threads = cache.New(nil)
	}
	return o
}

// Configured reports whether at least one agent was built.
func (o *Orchestrator) Configured() bool {
	return len(o.agents) > 0
}

// Respond handles one customer turn. It never returns an error or panics;
// every failure is folded into the Response envelope.
func (o *Orchestrator) Respond(ctx context.Context, userText, conversationID string) (resp *Response) {
	ctx, span := telemetry.Tracer().Start(ctx, "orchestrator.respond")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("respond panicked", "panic", r)
			resp = &Response{
				Error: fmt.Sprintf("Failed to generate response: panic: %v", r),
				Text:  textFailure,
			}
		}
	}()

	if !o.Configured() {
		o.logger.Error("orchestrator not configured")
		return &Response{
			Error: "orchestrator not configured",
			Text:  textUnconfigured,
		}
	}

	agentName := o.classify(userText)
	target, ok := o.agents[agentName]
	if !ok {
		o.logger.Error("agent not available", "agent", agentName)
		return &Response{
			Error: fmt.Sprintf("agent %s not available", agentName),
			Text:  fmt.Sprintf("I'm sorry, the %s is not currently available.", agentName),
		}
	}

	o.logger.Info("routing turn", "agent", agentName, "conversation", conversationID)

	if o.invokeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.invokeTimeout)
		defer cancel()
	}

	key := cache.Key{ConversationID: conversationID, Agent: agentName}

	var threadID string
	if conversationID != "" {
		if handle, ok := o.threads.Get(key); ok {
			threadID = handle
			o.logger.Info("reusing cached thread", "thread", threadID)
		}
	}
	if threadID == "" {
		id, err := target.NewThread(ctx)
		if err != nil {
			o.logger.Error("failed to create thread", "agent", agentName, "error", err)
			return &Response{
				Error: fmt.Sprintf("Failed to generate response: %v", err),
				Text:  textFailure,
			}
		}
		threadID = id
	}

	var text strings.Builder
	for chunk, err := range target.Invoke(ctx, threadID, userText) {
		if err != nil {
			return o.invocationError(agentName, err)
		}
		text.WriteString(chunk.Delta)
	}

	if conversationID != "" {
		o.threads.Put(key, threadID)
	}

	full := text.String()
	if full == "" {
		o.logger.Error("no response from agent", "agent", agentName)
		return &Response{
			Error: "No response from agent",
			Text:  textNoResponse,
		}
	}

	return &Response{
		Text:         full,
		Messages:     []string{full},
		AwaitingUser: strings.HasSuffix(strings.TrimSpace(full), "?"),
	}
}

func (o *Orchestrator) invocationError(agentName string, err error) *Response {
	o.logger.Error("agent invocation failed", "agent", agentName, "error", err)

	if errors.Is(err, pderrors.ErrEmptyResponse) {
		return &Response{
			Error: "No response from agent",
			Text:  textNoResponse,
		}
	}
	if errors.Is(err, pderrors.ErrAgentUnavailable) {
		return &Response{
			Error: fmt.Sprintf("agent %s not available", agentName),
			Text:  fmt.Sprintf("I'm sorry, the %s is not currently available.", agentName),
		}
	}
	return &Response{
		Error: fmt.Sprintf("Failed to generate response: %v", err),
		Text:  textFailure,
	}
}

// Shutdown drains the thread cache, releasing every cached thread, and runs
// registered shutdown hooks.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.logger.Info("orchestrator shutting down")
	o.threads.Close()

	var firstErr error
	for _, fn := range o.shutdownFns {
		if err := fn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
