package memory

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/dbchat-dev/dbchat/internal/chat"
)

// Message is a minimal persisted view of a chat turn.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text,omitempty"`
}

func LoadConversation(path string) ([]Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func SaveConversation(path string, msgs []Message) error {
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// FromChat projects a live conversation onto the persisted form, dropping
// tool rounds and empty assistant text.
func FromChat(conv []chat.Message) []Message {
	out := make([]Message, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case chat.RoleUser:
			out = append(out, Message{Role: "user", Text: m.Content})
		case chat.RoleAssistant:
			if m.Content != "" && len(m.ToolCalls) == 0 {
				out = append(out, Message{Role: "assistant", Text: m.Content})
			}
		}
	}
	return out
}

// ToChat rebuilds a conversation from the persisted form.
func ToChat(msgs []Message) []chat.Message {
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "user" {
			out = append(out, chat.NewUserMessage(m.Text))
		} else {
			out = append(out, chat.NewAssistantMessage(m.Text))
		}
	}
	return out
}
