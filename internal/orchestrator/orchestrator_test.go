package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/dbchat-dev/dbchat/internal/chat"
	"github.com/dbchat-dev/dbchat/internal/orchestrator"
)

// scriptedBackend replays a fixed sequence of completions.
type scriptedBackend struct {
	script []*chat.Completion
	err    error
	calls  int
}

func (s *scriptedBackend) Complete(ctx context.Context, system string, conv []chat.Message, catalog chat.Catalog) (*chat.Completion, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.script) == 0 {
		return &chat.Completion{Text: "done"}, nil
	}
	next := s.script[0]
	if len(s.script) > 1 {
		s.script = s.script[1:]
	}
	return next, nil
}

// recordingProvider records invocation order and serves canned results.
type recordingProvider struct {
	results map[string]string
	errs    map[string]error
	order   []string
}

func (p *recordingProvider) Invoke(ctx context.Context, name string, arguments []byte) (string, error) {
	p.order = append(p.order, name)
	if err, ok := p.errs[name]; ok {
		return "", err
	}
	return p.results[name], nil
}

func call(id, name, args string) chat.ToolCall {
	return chat.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func newOrch(b chat.Backend, p orchestrator.ToolProvider) *orchestrator.Orchestrator {
	return orchestrator.New(b, p, "You can query the database.", chat.Catalog{{Name: "read_query"}})
}

func TestRunTurn_ListTablesScenario(t *testing.T) {
	backend := &scriptedBackend{script: []*chat.Completion{
		{ToolCalls: []chat.ToolCall{call("c1", "read_query", `{"query":"SELECT name FROM sqlite_master WHERE type='table'"}`)}},
		{Text: "There is one table: tbl_test"},
	}}
	provider := &recordingProvider{results: map[string]string{
		"read_query": `[{"name":"tbl_test"}]`,
	}}
	o := newOrch(backend, provider)

	conv, text, err := o.RunTurn(context.Background(), nil, "list tables")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if text != "There is one table: tbl_test" {
		t.Fatalf("final text mismatch: %q", text)
	}
	if len(conv) != 4 {
		t.Fatalf("expected 4 appended messages, got %d: %+v", len(conv), conv)
	}

	if conv[0].Role != chat.RoleUser || conv[0].Content != "list tables" {
		t.Fatalf("unexpected user message: %+v", conv[0])
	}
	if conv[1].Role != chat.RoleAssistant || len(conv[1].ToolCalls) != 1 || conv[1].ToolCalls[0].ID != "c1" {
		t.Fatalf("unexpected assistant call message: %+v", conv[1])
	}
	if conv[2].Role != chat.RoleTool || conv[2].ToolCallID != "c1" || conv[2].Content != `[{"name":"tbl_test"}]` || conv[2].ToolError {
		t.Fatalf("unexpected tool message: %+v", conv[2])
	}
	if conv[3].Role != chat.RoleAssistant || conv[3].Content != "There is one table: tbl_test" {
		t.Fatalf("unexpected final assistant message: %+v", conv[3])
	}
}

func TestRunTurn_TextOnly_NoToolCalls(t *testing.T) {
	backend := &scriptedBackend{script: []*chat.Completion{{Text: "hello"}}}
	provider := &recordingProvider{}
	o := newOrch(backend, provider)

	conv, text, err := o.RunTurn(context.Background(), nil, "hi")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if text != "hello" || backend.calls != 1 {
		t.Fatalf("expected single backend call with text answer; text=%q calls=%d", text, backend.calls)
	}
	if len(provider.order) != 0 {
		t.Fatalf("no tools should run: %v", provider.order)
	}
	if len(conv) != 2 {
		t.Fatalf("expected user + assistant, got %d messages", len(conv))
	}
}

func TestRunTurn_InvokesInEmissionOrder(t *testing.T) {
	calls := []chat.ToolCall{
		call("c3", "write_query", `{}`),
		call("c1", "read_query", `{}`),
		call("c2", "list_tables", `{}`),
	}
	backend := &scriptedBackend{script: []*chat.Completion{
		{ToolCalls: calls},
		{Text: "ok"},
	}}
	provider := &recordingProvider{results: map[string]string{
		"write_query": "w", "read_query": "r", "list_tables": "l",
	}}
	o := newOrch(backend, provider)

	conv, _, err := o.RunTurn(context.Background(), nil, "go")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	wantOrder := []string{"write_query", "read_query", "list_tables"}
	if !reflect.DeepEqual(provider.order, wantOrder) {
		t.Fatalf("invocation order mismatch: got=%v want=%v", provider.order, wantOrder)
	}

	// One tool message per request, IDs matching in order.
	tools := conv[2:5]
	for i, m := range tools {
		if m.Role != chat.RoleTool {
			t.Fatalf("message %d not a tool result: %+v", i, m)
		}
		if m.ToolCallID != calls[i].ID {
			t.Fatalf("result %d answers %q, want %q", i, m.ToolCallID, calls[i].ID)
		}
	}
}

func TestRunTurn_ToolErrorRecordedNotFatal(t *testing.T) {
	backend := &scriptedBackend{script: []*chat.Completion{
		{ToolCalls: []chat.ToolCall{call("c1", "read_query", `{"query":"bogus"}`)}},
		{Text: "that query failed"},
	}}
	provider := &recordingProvider{errs: map[string]error{
		"read_query": errors.New("near \"bogus\": syntax error"),
	}}
	o := newOrch(backend, provider)

	conv, text, err := o.RunTurn(context.Background(), nil, "run it")
	if err != nil {
		t.Fatalf("tool failure must not abort the turn: %v", err)
	}
	if text != "that query failed" {
		t.Fatalf("final text mismatch: %q", text)
	}
	if backend.calls != 2 {
		t.Fatalf("loop should continue after tool error; backend calls=%d", backend.calls)
	}
	res := conv[2]
	if !res.ToolError || !strings.Contains(res.Content, "syntax error") {
		t.Fatalf("error not recorded in tool message: %+v", res)
	}
}

func TestRunTurn_BackendErrorAbortsCleanly(t *testing.T) {
	backend := &scriptedBackend{err: errors.New("rate limited")}
	provider := &recordingProvider{}
	o := newOrch(backend, provider)

	prior := []chat.Message{
		chat.NewUserMessage("earlier"),
		chat.NewAssistantMessage("earlier answer"),
	}
	conv, _, err := o.RunTurn(context.Background(), prior, "again")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !reflect.DeepEqual(conv, prior) {
		t.Fatalf("conversation must be unchanged on abort: %+v", conv)
	}
	if len(provider.order) != 0 {
		t.Fatalf("no tools may run after a backend failure: %v", provider.order)
	}
}

func TestRunTurn_LoopBound(t *testing.T) {
	// A backend that never stops requesting tools must hit the round limit.
	backend := &scriptedBackend{script: []*chat.Completion{
		{ToolCalls: []chat.ToolCall{call("c1", "read_query", `{}`)}},
	}}
	provider := &recordingProvider{results: map[string]string{"read_query": "row"}}
	o := newOrch(backend, provider)
	o.MaxRounds = 3

	_, _, err := o.RunTurn(context.Background(), nil, "loop")
	if !errors.Is(err, orchestrator.ErrMaxRounds) {
		t.Fatalf("expected ErrMaxRounds, got %v", err)
	}
	if backend.calls != 3 {
		t.Fatalf("expected exactly MaxRounds backend calls, got %d", backend.calls)
	}
}

func TestRunTurn_DefaultMaxRounds(t *testing.T) {
	backend := &scriptedBackend{script: []*chat.Completion{
		{ToolCalls: []chat.ToolCall{call("c1", "read_query", `{}`)}},
	}}
	o := newOrch(backend, &recordingProvider{results: map[string]string{"read_query": "row"}})

	_, _, err := o.RunTurn(context.Background(), nil, "loop")
	if !errors.Is(err, orchestrator.ErrMaxRounds) {
		t.Fatalf("expected ErrMaxRounds, got %v", err)
	}
	if backend.calls != orchestrator.DefaultMaxRounds {
		t.Fatalf("expected %d backend calls, got %d", orchestrator.DefaultMaxRounds, backend.calls)
	}
}

func TestRunTurn_ProtocolViolations(t *testing.T) {
	tests := []struct {
		name  string
		calls []chat.ToolCall
	}{
		{"empty ID", []chat.ToolCall{call("", "read_query", `{}`)}},
		{"duplicate ID", []chat.ToolCall{call("c1", "read_query", `{}`), call("c1", "list_tables", `{}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &scriptedBackend{script: []*chat.Completion{{ToolCalls: tt.calls}}}
			provider := &recordingProvider{}
			o := newOrch(backend, provider)

			prior := []chat.Message{chat.NewUserMessage("x")}
			conv, _, err := o.RunTurn(context.Background(), prior, "go")
			if err == nil || !strings.Contains(err.Error(), "protocol violation") {
				t.Fatalf("expected protocol violation, got %v", err)
			}
			if !reflect.DeepEqual(conv, prior) {
				t.Fatalf("conversation must be unchanged on abort: %+v", conv)
			}
			if len(provider.order) != 0 {
				t.Fatalf("no tools may run on a violated round: %v", provider.order)
			}
		})
	}
}

func TestRunTurn_Idempotence(t *testing.T) {
	run := func() ([]chat.Message, string) {
		backend := &scriptedBackend{script: []*chat.Completion{
			{ToolCalls: []chat.ToolCall{call("c1", "read_query", `{"query":"SELECT 1"}`)}},
			{Text: "one"},
		}}
		provider := &recordingProvider{results: map[string]string{"read_query": "1"}}
		o := newOrch(backend, provider)
		conv, text, err := o.RunTurn(context.Background(), nil, "count")
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		return conv, text
	}

	conv1, text1 := run()
	conv2, text2 := run()
	if text1 != text2 {
		t.Fatalf("text differs across replays: %q vs %q", text1, text2)
	}
	if !reflect.DeepEqual(conv1, conv2) {
		t.Fatalf("appended messages differ across replays:\n%+v\n%+v", conv1, conv2)
	}
}

func TestRunTurn_MultiRound(t *testing.T) {
	// Write then read in consecutive rounds; ordering must hold across rounds.
	backend := &scriptedBackend{script: []*chat.Completion{
		{ToolCalls: []chat.ToolCall{call("w1", "write_query", `{"query":"INSERT ..."}`)}},
		{ToolCalls: []chat.ToolCall{call("r1", "read_query", `{"query":"SELECT ..."}`)}},
		{Text: "inserted and verified"},
	}}
	provider := &recordingProvider{results: map[string]string{
		"write_query": `{"affected_rows":1}`,
		"read_query":  `[{"n":1}]`,
	}}
	o := newOrch(backend, provider)

	conv, text, err := o.RunTurn(context.Background(), nil, "add a row then check")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if text != "inserted and verified" {
		t.Fatalf("final text mismatch: %q", text)
	}
	if got := fmt.Sprintf("%v", provider.order); got != "[write_query read_query]" {
		t.Fatalf("cross-round order mismatch: %v", provider.order)
	}
	// user, asst(w1), tool(w1), asst(r1), tool(r1), asst(text)
	if len(conv) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(conv))
	}
}
