package windowing_test

import (
	"encoding/json"

	"github.com/dbchat-dev/dbchat/internal/chat"
	"github.com/dbchat-dev/dbchat/internal/windowing"
)

// Shared test helpers for constructing messages concisely.

func User(text string) chat.Message {
	return chat.NewUserMessage(text)
}

func Asst(text string) chat.Message {
	return chat.NewAssistantMessage(text)
}

// Call builds a tool call with raw JSON arguments.
func Call(id, args string) chat.ToolCall {
	return chat.ToolCall{ID: id, Name: "tool", Arguments: json.RawMessage(args)}
}

// AsstCalls builds an assistant message carrying tool calls.
func AsstCalls(text string, calls ...chat.ToolCall) chat.Message {
	return chat.NewToolCallsMessage(text, calls)
}

// Result builds a tool result message; isErr mirrors a failed invocation.
func Result(id, content string, isErr bool) chat.Message {
	return chat.NewToolResultMessage(id, content, isErr)
}

func groupsEqual(a, b []windowing.Group) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
