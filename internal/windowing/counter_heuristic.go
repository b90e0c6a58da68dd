package windowing

import (
	"unicode/utf8"

	"github.com/dbchat-dev/dbchat/internal/chat"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m chat.Message) int
	CountGroup(g Group, all []chat.Message) int
}

// HeuristicCounter is the current default deterministic estimator.
// Rules:
// - text content: rune count of Message.Content (empty text contributes nothing
//   unless the message is a tool result, which always carries one block)
// - tool calls: rune count of the raw JSON arguments
// Each counted block adds a small fixed overhead to account for minimal formatting.
type HeuristicCounter struct{}

// Fixed per-block overhead for deterministic counts; changing this requires updating the guard test.
const blockOverhead = 4

func (HeuristicCounter) CountMessage(m chat.Message) int {
	total := 0
	if m.Content != "" || m.Role == chat.RoleTool {
		total += utf8.RuneCountInString(m.Content) + blockOverhead
	}
	for _, tc := range m.ToolCalls {
		total += utf8.RuneCountInString(string(tc.Arguments)) + blockOverhead
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group, all []chat.Message) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}
