package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/dbchat-dev/dbchat/internal/chat"
	"github.com/dbchat-dev/dbchat/internal/telemetry"
	"github.com/dbchat-dev/dbchat/internal/windowing"
)

// Backend adapts the Anthropic Messages API to the chat.Backend interface.
//
// TokenBudget > 0 enables round-safe history truncation before each request;
// zero sends the full conversation.
type Backend struct {
	Client      *anthropic.Client
	Model       anthropic.Model
	MaxTokens   int64
	TokenBudget int
}

func NewBackend(client *anthropic.Client, model anthropic.Model, maxTokens int64, tokenBudget int) *Backend {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Backend{Client: client, Model: model, MaxTokens: maxTokens, TokenBudget: tokenBudget}
}

var _ chat.Backend = (*Backend)(nil)

// Complete sends the conversation and returns the assistant's reply as a
// Completion. The system prompt travels out of band, so truncation can never
// drop it.
func (b *Backend) Complete(ctx context.Context, system string, conv []chat.Message, catalog chat.Catalog) (*chat.Completion, error) {
	window := conv
	if b.TokenBudget > 0 {
		var stats windowing.Stats
		window, stats = windowing.PrepareSendWindow(conv, b.TokenBudget, windowing.HeuristicCounter{})

		turnID, _ := telemetry.TurnIDFromContext(ctx)
		telemetry.Emit("window_prepared", map[string]any{
			"turn_id":            turnID,
			"model":              string(b.Model),
			"budget":             stats.Budget,
			"total_estimated":    stats.Total,
			"included_groups":    stats.IncludedGroups,
			"skipped_groups":     stats.SkippedGroups,
			"over_budget_newest": stats.OverBudgetNewest,
		})

		if stats.OverBudgetNewest {
			return nil, fmt.Errorf("windowing: newest group exceeds token budget %d; raise the budget or trim tool output", b.TokenBudget)
		}
	}

	params := anthropic.MessageNewParams{
		Model:     b.Model,
		MaxTokens: b.MaxTokens,
		Messages:  toMessageParams(window),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(catalog) > 0 {
		params.Tools = toToolParams(catalog)
	}

	if telemetry.VerboseEnabled() {
		telemetry.Verbosef("[MODEL INPUT] model=%s messages=%d tools=%d", string(b.Model), len(window), len(catalog))
		for _, m := range window {
			telemetry.Verbosef("[MODEL INPUT] %s", formatMessage(m))
		}
	}
	msg, err := b.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	comp := parseCompletion(msg)
	telemetry.Verbosef("[MODEL OUTPUT] text=%q tool_calls=%d", comp.Text, len(comp.ToolCalls))
	return comp, nil
}

func toToolParams(catalog chat.Catalog) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(catalog))
	for _, t := range catalog {
		var schema anthropic.ToolInputSchemaParam
		if len(t.InputSchema) > 0 {
			// The schema arrives as raw JSON from the tool server; lift its
			// properties and required list into the typed param.
			var s struct {
				Properties map[string]any `json:"properties"`
				Required   []string       `json:"required"`
			}
			if err := json.Unmarshal(t.InputSchema, &s); err == nil {
				schema.Properties = s.Properties
				schema.Required = s.Required
			}
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: schema,
		}})
	}
	return out
}

// formatMessage renders one conversation message as a "role: content" line
// for the verbose stream, with tool calls and the result correlation inline.
func formatMessage(m chat.Message) string {
	var sb strings.Builder
	sb.WriteString(string(m.Role))
	sb.WriteString(": ")
	if m.ToolCallID != "" {
		fmt.Fprintf(&sb, "[tool_result %s] ", m.ToolCallID)
	}
	sb.WriteString(m.Content)
	for _, tc := range m.ToolCalls {
		fmt.Fprintf(&sb, " [tool_call %s %s %s]", tc.ID, tc.Name, tc.Arguments)
	}
	return sb.String()
}

func parseCompletion(msg *anthropic.Message) *chat.Completion {
	var texts []string
	var calls []chat.ToolCall
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			texts = append(texts, v.Text)
		case anthropic.ToolUseBlock:
			// Pass raw JSON input through untouched.
			calls = append(calls, chat.ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: json.RawMessage(v.JSON.Input.Raw()),
			})
		}
	}
	return &chat.Completion{Text: strings.Join(texts, "\n"), ToolCalls: calls}
}
