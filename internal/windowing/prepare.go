package windowing

import "github.com/dbchat-dev/dbchat/internal/chat"

// Stats summarizes the result of window preparation.
//
// Fields:
// - Total: estimated tokens for included groups only.
// - Budget: the input token budget used.
// - IncludedGroups: number of groups included.
// - SkippedGroups: total groups minus IncludedGroups.
// - OverBudgetNewest: true when the newest single group alone exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns a subslice of msgs (oldest→newest) that fits within
// budget using the TokenCounter, without splitting groups.
//
// Rules:
// - Include whole groups scanning newest→oldest while total ≤ budget.
// - If the newest group alone exceeds budget, return an empty window and set OverBudgetNewest.
// - If budget ≤ 0, return an empty window (OverBudgetNewest set when any groups exist).
// Callers that want truncation disabled should skip the call entirely rather
// than pass a zero budget.
func PrepareSendWindow(msgs []chat.Message, budget int, c TokenCounter) ([]chat.Message, Stats) {
	// Base cases
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}

	groups := GroupBlocks(msgs)

	// Handle no-capacity budget explicitly
	if budget <= 0 {
		stats := Stats{Budget: budget, IncludedGroups: 0, SkippedGroups: len(groups)}
		if len(groups) > 0 {
			stats.OverBudgetNewest = true
		}
		return nil, stats
	}

	// Walk groups newest → oldest and find the earliest included group index.
	// Each group's cost is computed once to avoid re-counting.
	costs := make([]int, len(groups))
	for i, g := range groups {
		costs[i] = c.CountGroup(g, msgs)
	}

	total := 0
	included := 0
	startIdx := len(groups) // exclusive sentinel; lowered when a group is included

	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := costs[gi]
		// If no groups have been included yet and the newest group alone exceeds
		// budget, return an empty window and mark OverBudgetNewest.
		if included == 0 && cost > budget {
			vlogf("reason=over_budget_newest_group budget=%d cost=%d", budget, cost)
			return nil, Stats{
				Budget:           budget,
				SkippedGroups:    len(groups),
				OverBudgetNewest: true,
			}
		}

		if total+cost <= budget {
			total += cost
			included++
			startIdx = gi
			continue
		}

		// Adding this group would exceed budget; stop scanning older groups.
		break
	}

	if included == 0 {
		return nil, Stats{Budget: budget, SkippedGroups: len(groups)}
	}

	// Convert group index to message index start (groups are contiguous and non-overlapping).
	startMsg := groups[startIdx].Start
	window := msgs[startMsg:]

	stats := Stats{
		Total:          total,
		Budget:         budget,
		IncludedGroups: included,
		SkippedGroups:  len(groups) - included,
	}
	return window, stats
}
