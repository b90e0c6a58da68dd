// Package orchestrator drives one user turn to completion: it alternates
// between asking the chat backend what to do and executing whatever tool
// calls the backend requests, until the backend answers in plain text.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dbchat-dev/dbchat/internal/chat"
	"github.com/dbchat-dev/dbchat/internal/telemetry"
)

// DefaultMaxRounds bounds the number of backend calls per turn. A runaway
// model that never stops requesting tools aborts the turn instead of looping.
const DefaultMaxRounds = 10

// ErrMaxRounds reports a turn that exceeded the configured round limit.
var ErrMaxRounds = errors.New("exceeded maximum tool rounds")

// ToolProvider executes a named tool and returns its textual result.
// Invocation failures are returned as errors; the orchestrator records them
// in the conversation rather than aborting the turn.
type ToolProvider interface {
	Invoke(ctx context.Context, name string, arguments []byte) (string, error)
}

// Orchestrator owns the request/execute/resubmit cycle for a session.
// The catalog is fetched once at session start and treated as immutable.
type Orchestrator struct {
	Backend   chat.Backend
	Tools     ToolProvider
	System    string
	Catalog   chat.Catalog
	MaxRounds int
}

func New(backend chat.Backend, tools ToolProvider, system string, catalog chat.Catalog) *Orchestrator {
	return &Orchestrator{
		Backend:   backend,
		Tools:     tools,
		System:    system,
		Catalog:   catalog,
		MaxRounds: DefaultMaxRounds,
	}
}

// RunTurn appends the user prompt to conv and loops until the backend returns
// a plain textual answer, which becomes the turn's result.
//
// Rules:
// - Tool calls execute one at a time, in the order the backend emitted them.
// - A failed invocation becomes error content in its tool message; the loop
//   continues so the model can react.
// - Backend errors abort the turn; the input conversation is returned
//   unchanged so the caller can retry the prompt cleanly.
// - Duplicate or empty call IDs corrupt the conversation's causal structure
//   and abort the turn.
func (o *Orchestrator) RunTurn(ctx context.Context, conv []chat.Message, user string) ([]chat.Message, string, error) {
	turnID, ok := telemetry.TurnIDFromContext(ctx)
	if !ok {
		turnID = uuid.NewString()
		ctx = telemetry.WithTurnID(ctx, turnID)
	}
	telemetry.EmitPromptFeatures(ctx, user)

	maxRounds := o.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	// Work on a copy so an aborted turn leaves the caller's slice untouched.
	out := make([]chat.Message, len(conv), len(conv)+2)
	copy(out, conv)
	out = append(out, chat.NewUserMessage(user))

	for round := 0; round < maxRounds; round++ {
		start := time.Now()
		comp, err := o.Backend.Complete(ctx, o.System, out, o.Catalog)
		if err != nil {
			return conv, "", err
		}
		telemetry.Emit("model_call", map[string]any{
			"turn_id":     turnID,
			"round":       round,
			"duration_ms": time.Since(start).Milliseconds(),
			"tool_calls":  len(comp.ToolCalls),
		})

		if len(comp.ToolCalls) == 0 {
			out = append(out, chat.NewAssistantMessage(comp.Text))
			return out, comp.Text, nil
		}

		if err := validateCallIDs(comp.ToolCalls); err != nil {
			return conv, "", err
		}

		out = append(out, chat.NewToolCallsMessage(comp.Text, comp.ToolCalls))
		for _, call := range comp.ToolCalls {
			out = append(out, o.invoke(ctx, turnID, call))
		}
	}

	return conv, "", fmt.Errorf("turn aborted after %d rounds: %w", maxRounds, ErrMaxRounds)
}

// invoke runs one tool call and wraps the outcome as a tool message.
func (o *Orchestrator) invoke(ctx context.Context, turnID string, call chat.ToolCall) chat.Message {
	start := time.Now()
	result, err := o.Tools.Invoke(ctx, call.Name, call.Arguments)

	fields := map[string]any{
		"turn_id":     turnID,
		"tool_name":   call.Name,
		"duration_ms": time.Since(start).Milliseconds(),
		"input_size":  len(call.Arguments),
		"output_size": len(result),
	}
	if err != nil {
		// Emit a generic error marker to avoid leaking raw payloads in telemetry.
		fields["error"] = "tool error"
		fields["output_size"] = 0
	} else {
		fields["error"] = nil
	}
	telemetry.Emit("tool_invoke", fields)

	if err != nil {
		// Detailed error text goes back to the model, not up the stack.
		return chat.NewToolResultMessage(call.ID, err.Error(), true)
	}
	return chat.NewToolResultMessage(call.ID, result, false)
}

// validateCallIDs rejects completions whose call IDs cannot be correlated
// with their results.
func validateCallIDs(calls []chat.ToolCall) error {
	seen := make(map[string]struct{}, len(calls))
	for _, c := range calls {
		if c.ID == "" {
			return fmt.Errorf("protocol violation: tool call %q has empty ID", c.Name)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("protocol violation: duplicate tool call ID %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}
