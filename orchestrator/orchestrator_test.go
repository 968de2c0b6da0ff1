package orchestrator

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"testing"

	"github.com/clearcoat/paintdesk/agent"
	"github.com/clearcoat/paintdesk/cache"
	pderrors "github.com/clearcoat/paintdesk/errors"
	"github.com/clearcoat/paintdesk/message"
)

// stubAgent is a scripted ConversationAgent that records its invocations.
type stubAgent struct {
	name      string
	fragments []string
	err       error

	created int
	invokes []string // thread IDs received by Invoke
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) NewThread(ctx context.Context) (string, error) {
	s.created++
	return fmt.Sprintf("%s-thread-%d", s.name, s.created), nil
}

func (s *stubAgent) Invoke(ctx context.Context, threadID, input string) iter.Seq2[agent.Chunk, error] {
	return func(yield func(agent.Chunk, error) bool) {
		s.invokes = append(s.invokes, threadID)
		if s.err != nil {
			yield(agent.Chunk{}, s.err)
			return
		}
		full := message.NewMessage(message.RoleAssistant, "")
		for _, f := range s.fragments {
			full.AppendText(f)
			if !yield(agent.Chunk{Delta: f}, nil) {
				return
			}
		}
		yield(agent.Chunk{Message: full}, nil)
	}
}

func TestRespondUnconfigured(t *testing.T) {
	product := &stubAgent{name: "ProductLookupAgent", fragments: []string{"hi"}}
	o := New() // no agents registered

	resp := o.Respond(context.Background(), "anything", "conv-1")

	if resp.Error == "" {
		t.Error("Expected non-empty error in unconfigured state")
	}
	if resp.Text == "" {
		t.Error("Expected fallback text in unconfigured state")
	}
	if product.created != 0 || len(product.invokes) != 0 {
		t.Error("Unconfigured orchestrator must never touch an agent")
	}
}

func TestRespondConcatenatesFragments(t *testing.T) {
	product := &stubAgent{
		name:      "ProductLookupAgent",
		fragments: []string{"I found ", "two paints."},
	}
	o := New(WithAgent(product))

	resp := o.Respond(context.Background(), "Show me blue paint", "conv-7")

	if resp.Error != "" {
		t.Fatalf("Unexpected error: %s", resp.Error)
	}
	if resp.Text != "I found two paints." {
		t.Errorf("Expected concatenated fragments, got %q", resp.Text)
	}
	if len(resp.Messages) != 1 || resp.Messages[0] != resp.Text {
		t.Errorf("Expected messages [text], got %v", resp.Messages)
	}
	if resp.AwaitingUser {
		t.Error("Statement must not set awaiting_user")
	}
}

func TestRespondAwaitingUser(t *testing.T) {
	product := &stubAgent{
		name:      "ProductLookupAgent",
		fragments: []string{"Would you like interior or exterior?"},
	}
	o := New(WithAgent(product))

	resp := o.Respond(context.Background(), "I need paint", "conv-2")
	if !resp.AwaitingUser {
		t.Error("Question must set awaiting_user")
	}

	product.fragments = []string{"Would you like interior or exterior?  \n"}
	resp = o.Respond(context.Background(), "I need paint", "conv-3")
	if !resp.AwaitingUser {
		t.Error("Trailing whitespace must be trimmed before the check")
	}
}

func TestRespondRoundTripReusesThread(t *testing.T) {
	product := &stubAgent{name: "ProductLookupAgent", fragments: []string{"sure"}}
	o := New(WithAgent(product))

	o.Respond(context.Background(), "Show me paint", "conv-9")
	o.Respond(context.Background(), "Any blue ones?", "conv-9")

	if product.created != 1 {
		t.Errorf("Expected one thread creation, got %d", product.created)
	}
	if len(product.invokes) != 2 {
		t.Fatalf("Expected 2 invocations, got %d", len(product.invokes))
	}
	if product.invokes[0] != product.invokes[1] {
		t.Errorf("Second call must reuse cached thread: %q vs %q",
			product.invokes[0], product.invokes[1])
	}
}

func TestRespondDistinctAgentsDistinctThreads(t *testing.T) {
	product := &stubAgent{name: "ProductLookupAgent", fragments: []string{"paint answer"}}
	knowledge := &stubAgent{name: "KnowledgeAgent", fragments: []string{"policy answer"}}
	o := New(WithAgent(product), WithAgent(knowledge))

	o.Respond(context.Background(), "show me paint", "conv-4")
	o.Respond(context.Background(), "what is your return policy", "conv-4")

	if product.created != 1 || knowledge.created != 1 {
		t.Errorf("Each agent must get its own thread (product=%d knowledge=%d)",
			product.created, knowledge.created)
	}
}

func TestRespondAgentUnavailable(t *testing.T) {
	// Only the knowledge agent is registered; a product query hits a gap.
	knowledge := &stubAgent{name: "KnowledgeAgent", fragments: []string{"policy answer"}}
	o := New(WithAgent(knowledge))

	resp := o.Respond(context.Background(), "Show me blue paint", "conv-5")

	if !strings.Contains(resp.Error, "ProductLookupAgent") {
		t.Errorf("Error must name the unavailable agent, got %q", resp.Error)
	}
	if !strings.Contains(resp.Text, "ProductLookupAgent") {
		t.Errorf("Fallback text must name the unavailable agent, got %q", resp.Text)
	}

	// The orchestrator stays usable for the agents that exist.
	resp = o.Respond(context.Background(), "what is your return policy", "conv-5")
	if resp.Error != "" {
		t.Errorf("Registered agent must still work, got error %q", resp.Error)
	}
}

func TestRespondInvocationFailure(t *testing.T) {
	product := &stubAgent{
		name: "ProductLookupAgent",
		err:  fmt.Errorf("model backend unreachable"),
	}
	o := New(WithAgent(product))

	resp := o.Respond(context.Background(), "Show me paint", "conv-6")

	if !strings.Contains(resp.Error, "model backend unreachable") {
		t.Errorf("Error must carry the cause, got %q", resp.Error)
	}
	if !strings.Contains(resp.Text, "I'm sorry") {
		t.Errorf("Expected apology fallback, got %q", resp.Text)
	}
}

func TestRespondEmptyResponse(t *testing.T) {
	tests := []struct {
		name  string
		agent *stubAgent
	}{
		{
			name:  "no fragments",
			agent: &stubAgent{name: "ProductLookupAgent"},
		},
		{
			name: "empty response error",
			agent: &stubAgent{
				name: "ProductLookupAgent",
				err:  fmt.Errorf("agent: %w", pderrors.ErrEmptyResponse),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(WithAgent(tt.agent))
			resp := o.Respond(context.Background(), "Show me paint", "conv-8")
			if resp.Error != "No response from agent" {
				t.Errorf("Expected no-response error, got %q", resp.Error)
			}
			if !strings.Contains(resp.Text, "couldn't get a response") {
				t.Errorf("Expected no-response fallback, got %q", resp.Text)
			}
		})
	}
}

func TestRespondNoConversationIDSkipsCache(t *testing.T) {
	product := &stubAgent{name: "ProductLookupAgent", fragments: []string{"ok"}}
	threadCache := cache.New(nil)
	o := New(WithAgent(product), WithCache(threadCache))

	o.Respond(context.Background(), "Show me paint", "")
	o.Respond(context.Background(), "Show me paint", "")

	if threadCache.Len() != 0 {
		t.Errorf("No conversation ID must not populate the cache, got %d entries", threadCache.Len())
	}
	if product.created != 2 {
		t.Errorf("Each anonymous turn gets a fresh thread, got %d creations", product.created)
	}
}

func TestRespondRecoversPanic(t *testing.T) {
	o := New(
		WithAgent(&stubAgent{name: "ProductLookupAgent", fragments: []string{"ok"}}),
		WithClassifier(func(string) string { panic("classifier bug") }),
	)

	resp := o.Respond(context.Background(), "Show me paint", "conv-10")
	if resp == nil {
		t.Fatal("Respond must never return nil")
	}
	if !strings.Contains(resp.Error, "panic") {
		t.Errorf("Expected panic folded into error, got %q", resp.Error)
	}
	if !strings.Contains(resp.Text, "I'm sorry") {
		t.Errorf("Expected apology fallback, got %q", resp.Text)
	}
}

func TestShutdownReleasesThreads(t *testing.T) {
	var released []string
	threadCache := cache.New(func(handle string) error {
		released = append(released, handle)
		return nil
	})
	product := &stubAgent{name: "ProductLookupAgent", fragments: []string{"ok"}}
	o := New(WithAgent(product), WithCache(threadCache))

	o.Respond(context.Background(), "Show me paint", "conv-11")
	if err := o.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if len(released) != 1 {
		t.Errorf("Expected 1 released thread, got %d", len(released))
	}
}
