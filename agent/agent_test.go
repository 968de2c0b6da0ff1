package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"testing"

	pderrors "github.com/clearcoat/paintdesk/errors"
	"github.com/clearcoat/paintdesk/message"
	"github.com/clearcoat/paintdesk/thread/store"
	"github.com/clearcoat/paintdesk/tool"
)

// scriptedClient replays one scripted turn per Generate call.
type scriptedClient struct {
	turns []func(req *GenerateRequest) ([]Chunk, error)
	calls int
	seen  []*GenerateRequest
}

func (c *scriptedClient) Generate(ctx context.Context, req *GenerateRequest) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		c.seen = append(c.seen, req)
		if c.calls >= len(c.turns) {
			yield(Chunk{}, fmt.Errorf("unexpected call %d", c.calls))
			return
		}
		turn := c.turns[c.calls]
		c.calls++

		chunks, err := turn(req)
		if err != nil {
			yield(Chunk{}, err)
			return
		}
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func textTurn(deltas ...string) func(*GenerateRequest) ([]Chunk, error) {
	return func(*GenerateRequest) ([]Chunk, error) {
		final := message.NewMessage(message.RoleAssistant, "")
		chunks := make([]Chunk, 0, len(deltas)+1)
		for _, d := range deltas {
			final.AppendText(d)
			chunks = append(chunks, Chunk{Delta: d})
		}
		return append(chunks, Chunk{Message: final}), nil
	}
}

func toolCallTurn(callID, name string, args map[string]any) func(*GenerateRequest) ([]Chunk, error) {
	return func(*GenerateRequest) ([]Chunk, error) {
		final := message.NewMessage(message.RoleAssistant, "")
		final.ToolCalls = []message.ToolCall{{ID: callID, Name: name, Args: args}}
		return []Chunk{{Message: final}}, nil
	}
}

func collect(t *testing.T, seq iter.Seq2[Chunk, error]) (string, []*message.Message, error) {
	t.Helper()
	var text strings.Builder
	var completed []*message.Message
	for chunk, err := range seq {
		if err != nil {
			return text.String(), completed, err
		}
		if chunk.Message != nil {
			completed = append(completed, chunk.Message)
			continue
		}
		text.WriteString(chunk.Delta)
	}
	return text.String(), completed, nil
}

func TestInvokeStreamsTextTurn(t *testing.T) {
	ctx := context.Background()
	client := &scriptedClient{turns: []func(*GenerateRequest) ([]Chunk, error){
		textTurn("We stock ", "interior and exterior paint."),
	}}
	threads := store.NewInMemoryStore()

	a := New(
		WithName("ProductLookupAgent"),
		WithInstructions("You answer questions about the paint catalog."),
		WithClient(client),
		WithStore(threads),
	)

	threadID, err := a.NewThread(ctx)
	if err != nil {
		t.Fatalf("NewThread failed: %v", err)
	}

	text, completed, err := collect(t, a.Invoke(ctx, threadID, "What do you sell?"))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if text != "We stock interior and exterior paint." {
		t.Errorf("Unexpected streamed text: %q", text)
	}
	if len(completed) != 1 {
		t.Fatalf("Expected 1 completed message, got %d", len(completed))
	}
	if completed[0].Text() != text {
		t.Errorf("Final message %q does not match streamed text %q", completed[0].Text(), text)
	}

	// Transcript must hold system, user and assistant messages.
	msgs, err := threads.Load(ctx, threadID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 persisted messages, got %d", len(msgs))
	}
	if msgs[0].Role != message.RoleSystem || msgs[1].Role != message.RoleUser || msgs[2].Role != message.RoleAssistant {
		t.Errorf("Unexpected transcript roles: %s %s %s", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
}

func TestInvokeExecutesToolCalls(t *testing.T) {
	ctx := context.Background()
	client := &scriptedClient{turns: []func(*GenerateRequest) ([]Chunk, error){
		toolCallTurn("call-1", "search_products", map[string]any{"query": "primer"}),
		textTurn("We carry two primers."),
	}}
	threads := store.NewInMemoryStore()

	var gotQuery string
	a := New(
		WithName("ProductLookupAgent"),
		WithClient(client),
		WithStore(threads),
		WithTool(&tool.Tool{
			Name:        "search_products",
			Description: "Search the catalog",
			Parameters: []tool.Parameter{
				{Name: "query", Type: "string", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				gotQuery, _ = args["query"].(string)
				return "2 products found", nil
			},
		}),
	)

	threadID, err := a.NewThread(ctx)
	if err != nil {
		t.Fatalf("NewThread failed: %v", err)
	}

	text, completed, err := collect(t, a.Invoke(ctx, threadID, "Do you sell primer?"))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if gotQuery != "primer" {
		t.Errorf("Tool received query %q", gotQuery)
	}
	if text != "We carry two primers." {
		t.Errorf("Unexpected final text: %q", text)
	}

	// tool-call assistant message, tool result, final assistant message
	if len(completed) != 3 {
		t.Fatalf("Expected 3 completed messages, got %d", len(completed))
	}
	if completed[1].Role != message.RoleTool || completed[1].Content != "2 products found" {
		t.Errorf("Unexpected tool message: %+v", completed[1])
	}

	// Second model call must see the tool result in the transcript.
	if len(client.seen) != 2 {
		t.Fatalf("Expected 2 model calls, got %d", len(client.seen))
	}
	second := client.seen[1].Messages
	if second[len(second)-1].Role != message.RoleTool {
		t.Errorf("Second call must end with the tool result, got role %s", second[len(second)-1].Role)
	}
}

func TestInvokeToolErrorIsFedBack(t *testing.T) {
	ctx := context.Background()
	client := &scriptedClient{turns: []func(*GenerateRequest) ([]Chunk, error){
		toolCallTurn("call-1", "get_order_status", map[string]any{"order_id": "x"}),
		textTurn("I could not look that up."),
	}}
	threads := store.NewInMemoryStore()

	a := New(
		WithName("OrderStatusAgent"),
		WithClient(client),
		WithStore(threads),
		WithTool(&tool.Tool{
			Name: "get_order_status",
			Parameters: []tool.Parameter{
				{Name: "order_id", Type: "string", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return "", fmt.Errorf("backend down")
			},
		}),
	)

	threadID, _ := a.NewThread(ctx)
	_, completed, err := collect(t, a.Invoke(ctx, threadID, "Where is my order?"))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !strings.Contains(completed[1].Content, "Error executing tool") {
		t.Errorf("Tool failure must surface as a tool message, got %q", completed[1].Content)
	}
}

func TestInvokeMaxIterations(t *testing.T) {
	ctx := context.Background()
	client := &scriptedClient{turns: []func(*GenerateRequest) ([]Chunk, error){
		toolCallTurn("c1", "noop", nil),
		toolCallTurn("c2", "noop", nil),
	}}
	threads := store.NewInMemoryStore()

	a := New(
		WithClient(client),
		WithStore(threads),
		WithMaxIterations(2),
		WithTool(&tool.Tool{
			Name: "noop",
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return "ok", nil
			},
		}),
	)

	threadID, _ := a.NewThread(ctx)
	_, _, err := collect(t, a.Invoke(ctx, threadID, "loop"))
	if err == nil || !strings.Contains(err.Error(), "max iterations") {
		t.Errorf("Expected max iterations error, got %v", err)
	}
}

func TestInvokeEmptyResponse(t *testing.T) {
	ctx := context.Background()
	client := &scriptedClient{turns: []func(*GenerateRequest) ([]Chunk, error){
		textTurn(),
	}}
	threads := store.NewInMemoryStore()

	a := New(WithClient(client), WithStore(threads))
	threadID, _ := a.NewThread(ctx)

	_, _, err := collect(t, a.Invoke(ctx, threadID, "hello"))
	if !errors.Is(err, pderrors.ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestInvokeWithoutClient(t *testing.T) {
	threads := store.NewInMemoryStore()
	a := New(WithStore(threads))
	threadID, _ := a.NewThread(context.Background())

	_, _, err := collect(t, a.Invoke(context.Background(), threadID, "hello"))
	if !errors.Is(err, pderrors.ErrAgentUnavailable) {
		t.Errorf("Expected ErrAgentUnavailable, got %v", err)
	}
}

func TestInvokeUnknownThread(t *testing.T) {
	client := &scriptedClient{turns: []func(*GenerateRequest) ([]Chunk, error){textTurn("hi")}}
	a := New(WithClient(client), WithStore(store.NewInMemoryStore()))

	_, _, err := collect(t, a.Invoke(context.Background(), "missing", "hello"))
	if err == nil {
		t.Error("Expected error for unknown thread")
	}
}
