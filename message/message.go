// Package message defines the conversation message shapes exchanged between
// the thread store, the model providers and the tool loop.
package message

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation thread
type Message struct {
	ID        string         `json:"id" bson:"id"`
	Role      Role           `json:"role" bson:"role"`
	Content   string         `json:"content" bson:"content"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty" bson:"tool_calls,omitempty"`
	ToolID    string         `json:"tool_id,omitempty" bson:"tool_id,omitempty"` // For tool response messages
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// ToolCall represents a tool invocation requested by the model
type ToolCall struct {
	ID   string         `json:"id" bson:"id"`
	Name string         `json:"name" bson:"name"`
	Args map[string]any `json:"args" bson:"args"`
}

// Text returns the plain text content of the message.
func (m *Message) Text() string {
	return m.Content
}

// AppendText appends a streamed fragment to the message content.
func (m *Message) AppendText(fragment string) {
	m.Content += fragment
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewToolResponseMessage creates a tool response message
func NewToolResponseMessage(toolID, content string) *Message {
	msg := NewMessage(RoleTool, content)
	msg.ToolID = toolID
	return msg
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	if msg.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			cloned.Metadata[k] = v
		}
	}
	if len(msg.ToolCalls) > 0 {
		cloned.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			cloned.ToolCalls[i] = cloneToolCall(tc)
		}
	}
	return &cloned
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

func cloneToolCall(call ToolCall) ToolCall {
	cloned := ToolCall{
		ID:   call.ID,
		Name: call.Name,
	}
	if call.Args != nil {
		cloned.Args = make(map[string]any, len(call.Args))
		for k, v := range call.Args {
			cloned.Args[k] = v
		}
	}
	return cloned
}

var idCounter atomic.Uint64

// generateID generates a unique message ID
func generateID() string {
	return fmt.Sprintf("msg-%d-%d", time.Now().UnixNano(), idCounter.Add(1))
}
