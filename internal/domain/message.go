package domain

import "time"

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks messages typed or dictated by the signed-in user.
	RoleUser Role = "user"
	// RoleAssistant marks greetings, replies and the typing placeholder.
	RoleAssistant Role = "assistant"
)

// TypingMessageID is the identifier reserved for the typing placeholder.
const TypingMessageID = "typing"

// Message is a single entry in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Typing    bool      `json:"typing,omitempty"`
}

// IsUser returns true for messages authored by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// WithoutTyping returns the messages that are not typing placeholders,
// preserving order.
func WithoutTyping(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if !m.Typing {
			out = append(out, m)
		}
	}
	return out
}
