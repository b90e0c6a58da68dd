package chat

import "encoding/json"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured instruction from the model naming a tool and its
// arguments. IDs are unique within one assistant message and correlate the
// call with the tool message that answers it.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is one entry in a conversation.
//
// Invariants:
//   - ToolCalls is only present on assistant messages.
//   - ToolCallID is only present on tool messages and must match a tool call
//     emitted by the immediately preceding assistant message.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	// ToolError marks a tool message whose content is an error description
	// rather than a result payload.
	ToolError bool `json:"tool_error,omitempty"`
}

func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// NewToolCallsMessage builds the assistant message carrying a round's tool
// call requests. Text may be empty; the message is appended regardless so the
// tool results that follow stay correlated.
func NewToolCallsMessage(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// NewToolResultMessage wraps a tool invocation outcome. isErr marks content
// as an error description for the model to react to.
func NewToolResultMessage(callID, content string, isErr bool) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, ToolError: isErr}
}
