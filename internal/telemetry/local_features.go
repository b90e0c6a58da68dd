package telemetry

import (
	"context"

	"github.com/dbchat-dev/dbchat/internal/metrics"
)

// EmitPromptFeatures records size features of a user prompt for offline
// analysis of conversation growth. No prompt text is persisted.
func EmitPromptFeatures(ctx context.Context, user string) {
	if !ObserveEnabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	f := metrics.CountFeatures(user)
	Emit("prompt_features", map[string]any{
		"turn_id":          turnID,
		"features_version": "1",
		"prompt": map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
		},
	})
}
