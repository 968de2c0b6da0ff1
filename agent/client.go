package agent

import (
	"context"
	"iter"

	"github.com/clearcoat/paintdesk/message"
)

// Chunk is one streamed unit of an agent turn. Exactly one field is set:
// Delta carries an incremental fragment of assistant text, Message carries a
// completed message of the turn (an assistant message, possibly with tool
// calls, or a tool result).
type Chunk struct {
	Delta   string
	Message *message.Message
}

// GenerateRequest is one model invocation over a prepared transcript.
type GenerateRequest struct {
	Model       string
	Temperature float64
	Messages    []*message.Message
	Tools       []map[string]any
}

// ModelClient is the interface model providers implement. Generate yields
// zero or more text-delta chunks followed by exactly one chunk carrying the
// completed assistant message.
type ModelClient interface {
	Generate(ctx context.Context, req *GenerateRequest) iter.Seq2[Chunk, error]
}
