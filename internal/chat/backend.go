package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ToolSpec describes one invocable tool: its name, what it does, and the
// JSON schema its arguments must satisfy.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Catalog is the fixed set of tools offered for a session. It is fetched once
// at session start and treated as immutable thereafter.
type Catalog []ToolSpec

// Completion is the tagged result of one backend call: either a final textual
// answer (ToolCalls empty) or a request to execute tools before continuing.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// Backend turns a conversation plus a tool catalog into the model's next
// step. Implementations must surface transport or response failures as
// errors; a returned *Completion is always well formed.
type Backend interface {
	Complete(ctx context.Context, system string, conv []Message, catalog Catalog) (*Completion, error)
}

const systemPromptTemplate = `You are a helpful assistant capable of accessing external functions and engaging in casual chat. Use the responses from these function calls to provide accurate and informative answers. The answers should be natural and hide the fact that you are using tools to access real-time information. Guide the user about available tools and their capabilities. Always utilize tools to access real-time information when required. Engage in a friendly manner to enhance the chat experience.

# Tools

%s

# Notes

- Ensure responses are based on the latest information available from function calls.
- Maintain an engaging, supportive, and friendly tone throughout the dialogue.
- Always highlight the potential of available tools to assist users comprehensively.`

// SystemPrompt renders the session system prompt with the catalog's tool
// names and descriptions listed for the model.
func SystemPrompt(catalog Catalog) string {
	lines := make([]string, 0, len(catalog))
	for _, t := range catalog {
		lines = append(lines, fmt.Sprintf("- %s: %s", t.Name, t.Description))
	}
	return fmt.Sprintf(systemPromptTemplate, strings.Join(lines, "\n"))
}
