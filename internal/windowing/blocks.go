package windowing

import (
	"github.com/dbchat-dev/dbchat/internal/chat"
	"github.com/dbchat-dev/dbchat/internal/telemetry"
)

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupRound
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
// Kind indicates whether it is a singleton or a validated tool round.
type Group struct {
	Kind  GroupKind
	Start int // inclusive index into msgs
	End   int // exclusive index into msgs
}

// GroupBlocks groups messages into atomic units that preserve tool rounds.
// Invariants:
// - A round is an assistant message carrying tool calls followed immediately by
//   one tool message per call, with no intervening messages.
// - Completeness: every call ID in the assistant message must appear among the
//   adjacent tool messages' ToolCallIDs, and no tool message may answer an ID
//   the assistant did not emit.
// - Tool messages with ToolError set are grouped the same as successful ones.
// Messages that fail validation fall back to singletons so a window never cuts
// a call off from its result.
func GroupBlocks(msgs []chat.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		m := msgs[i]
		if m.Role == chat.RoleAssistant && len(m.ToolCalls) > 0 {
			resultIDs, end := collectToolResultRun(msgs, i+1)
			if len(resultIDs) > 0 {
				useIDs := collectToolCallIDs(m)
				if coversAll(resultIDs, useIDs) && noExtraResults(resultIDs, useIDs) {
					groups = append(groups, Group{Kind: GroupRound, Start: i, End: end})
					i = end
					continue
				}
				reason := "extra_results"
				if !coversAll(resultIDs, useIDs) {
					reason = "missing_results"
				}
				vlogf("exclude round: reason=%s idx=%d", reason, i)
			} else {
				vlogf("exclude round: reason=no_adjacent_results idx=%d", i)
			}
		}
		// Fallback: singleton
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

// Helpers

func collectToolCallIDs(m chat.Message) []string {
	ids := make([]string, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		ids = append(ids, tc.ID)
	}
	return ids
}

// collectToolResultRun walks the contiguous run of tool messages starting at
// from and returns their call IDs plus the exclusive end index of the run.
func collectToolResultRun(msgs []chat.Message, from int) ([]string, int) {
	var ids []string
	i := from
	for i < len(msgs) && msgs[i].Role == chat.RoleTool {
		ids = append(ids, msgs[i].ToolCallID)
		i++
	}
	return ids, i
}

func coversAll(resultIDs, useIDs []string) bool {
	set := make(map[string]struct{}, len(resultIDs))
	for _, id := range resultIDs {
		set[id] = struct{}{}
	}
	for _, id := range useIDs {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func noExtraResults(resultIDs, useIDs []string) bool {
	set := make(map[string]struct{}, len(useIDs))
	for _, id := range useIDs {
		set[id] = struct{}{}
	}
	for _, id := range resultIDs {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func vlogf(format string, args ...any) {
	telemetry.Verbosef("windowing: "+format, args...)
}
