package provider

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/dbchat-dev/dbchat/internal/chat"
)

// toMessageParams encodes the flat conversation into API message params.
// Tool result messages are flattened into a single user message per run of
// adjacent results, which is how the API expects parallel call answers back.
func toMessageParams(msgs []chat.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for i := 0; i < len(msgs); {
		m := msgs[i]
		switch m.Role {
		case chat.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			i++
		case chat.RoleAssistant:
			out = append(out, assistantParam(m))
			i++
		case chat.RoleTool:
			blocks := []anthropic.ContentBlockParamUnion{}
			for i < len(msgs) && msgs[i].Role == chat.RoleTool {
				r := msgs[i]
				blocks = append(blocks, anthropic.NewToolResultBlock(r.ToolCallID, r.Content, r.ToolError))
				i++
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		default:
			// System messages never travel in the conversation slice.
			i++
		}
	}
	return out
}

func assistantParam(m chat.Message) anthropic.MessageParam {
	blocks := []anthropic.ContentBlockParamUnion{}
	if m.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
	}
	for _, tc := range m.ToolCalls {
		input := tc.Arguments
		if len(input) == 0 {
			input = json.RawMessage(`{}`)
		}
		blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
			ID:    tc.ID,
			Name:  tc.Name,
			Input: input,
		}})
	}
	return anthropic.NewAssistantMessage(blocks...)
}
