package telemetry

import "context"

type turnIDKey struct{}

// WithTurnID stamps ctx with a turn ID. A turn spans one user prompt through
// to the agent's final answer, including every model call and tool invocation
// made along the way; the orchestrator mints the ID so those events can be
// correlated in the observation log. A nil ctx is treated as context.Background().
func WithTurnID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, turnIDKey{}, id)
}

// TurnIDFromContext reports the turn ID carried by ctx. The second return is
// false when no ID was set or the stored value is empty, in which case callers
// mint a fresh ID rather than emit uncorrelated events.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(turnIDKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
