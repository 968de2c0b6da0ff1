// Package thread persists conversation transcripts. A thread handle is the
// opaque ID of one transcript; agents replay the transcript to the model on
// every turn, so deleting a thread releases all of its server-side state.
package thread

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/clearcoat/paintdesk/message"
	"github.com/clearcoat/paintdesk/pkg/tokens"
)

// Store persists thread transcripts keyed by thread ID.
type Store interface {
	// Create stores a new transcript seeded with the given messages and
	// returns its ID.
	Create(ctx context.Context, seed []*message.Message) (string, error)
	// Append adds messages to the end of an existing transcript.
	Append(ctx context.Context, id string, msgs ...*message.Message) error
	// Load returns the transcript messages in order.
	Load(ctx context.Context, id string) ([]*message.Message, error)
	// Delete removes the transcript. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}

var idCounter atomic.Uint64

// NewID generates a unique thread ID.
func NewID() string {
	return fmt.Sprintf("thread-%d-%d", time.Now().UnixNano(), idCounter.Add(1))
}

// Trim drops the oldest non-system messages until the transcript fits the
// token budget. System messages are always kept. A budget <= 0 disables
// trimming.
//
// Trimming works on tool rounds: a message that issues tool calls and the
// tool results answering it are dropped together, so a trimmed transcript
// never holds a tool result without its tool-call message (model APIs reject
// such transcripts).
func Trim(msgs []*message.Message, budget int, counter tokens.Counter) []*message.Message {
	if budget <= 0 || counter == nil || len(msgs) == 0 {
		return msgs
	}

	total := 0
	for _, m := range msgs {
		total += messageTokens(m, counter)
	}
	if total <= budget {
		return msgs
	}

	// Group non-system messages into rounds: each message starts a round,
	// and the tool results that follow it belong to that round.
	type round struct {
		msgs []*message.Message
		cost int
	}
	var rounds []round
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			continue
		}
		cost := messageTokens(m, counter)
		if m.Role == message.RoleTool && len(rounds) > 0 {
			last := &rounds[len(rounds)-1]
			last.msgs = append(last.msgs, m)
			last.cost += cost
			continue
		}
		rounds = append(rounds, round{msgs: []*message.Message{m}, cost: cost})
	}

	dropped := make(map[*message.Message]bool)
	for _, r := range rounds {
		if total <= budget {
			break
		}
		total -= r.cost
		for _, m := range r.msgs {
			dropped[m] = true
		}
	}

	trimmed := make([]*message.Message, 0, len(msgs))
	for _, m := range msgs {
		if !dropped[m] {
			trimmed = append(trimmed, m)
		}
	}
	return trimmed
}

// messageTokens counts the token cost of one message, including the names
// and arguments of any tool calls it carries.
func messageTokens(m *message.Message, counter tokens.Counter) int {
	n := counter.CountTokens(m.Content)
	for _, call := range m.ToolCalls {
		n += counter.CountTokens(call.Name)
		if len(call.Args) > 0 {
			if raw, err := json.Marshal(call.Args); err == nil {
				n += counter.CountTokens(string(raw))
			}
		}
	}
	return n
}
