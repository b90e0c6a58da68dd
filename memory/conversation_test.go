package memory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dbchat-dev/dbchat/internal/chat"
	"github.com/dbchat-dev/dbchat/memory"
)

func TestConversation_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "conv.json")

	in := []memory.Message{{Role: "user", Text: "hi"}, {Role: "assistant", Text: "hello"}}
	if err := memory.SaveConversation(p, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := memory.LoadConversation(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("mismatch at %d: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestConversation_LoadMissing_ReturnsNil(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "does-not-exist.json")

	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("expected missing file in tempdir")
	}

	msgs, err := memory.LoadConversation(p)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if msgs != nil {
		t.Fatalf("expected nil slice for missing file, got %#v", msgs)
	}
}

func TestConversation_LoadInvalidJSON_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(p, []byte("{oops"), 0o664); err != nil {
		t.Fatalf("prep: %v", err)
	}
	if _, err := memory.LoadConversation(p); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestConversation_FromChat_DropsToolRounds(t *testing.T) {
	conv := []chat.Message{
		chat.NewUserMessage("list tables"),
		chat.NewToolCallsMessage("", []chat.ToolCall{{ID: "c1", Name: "list_tables"}}),
		chat.NewToolResultMessage("c1", "[]", false),
		chat.NewAssistantMessage("no tables yet"),
	}

	got := memory.FromChat(conv)
	want := []memory.Message{
		{Role: "user", Text: "list tables"},
		{Role: "assistant", Text: "no tables yet"},
	}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestConversation_ToChat_RebuildsRoles(t *testing.T) {
	msgs := []memory.Message{
		{Role: "user", Text: "hi"},
		{Role: "assistant", Text: "hello"},
	}
	conv := memory.ToChat(msgs)
	if len(conv) != 2 {
		t.Fatalf("length mismatch: got %d", len(conv))
	}
	if conv[0].Role != chat.RoleUser || conv[0].Content != "hi" {
		t.Fatalf("unexpected first message: %+v", conv[0])
	}
	if conv[1].Role != chat.RoleAssistant || conv[1].Content != "hello" {
		t.Fatalf("unexpected second message: %+v", conv[1])
	}
}
