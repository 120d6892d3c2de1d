// Package chat holds the conversation log, the simulated assistant and the
// controller that takes turns between them.
package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

// Greeting is the seed assistant message shown when a conversation opens.
func Greeting(userName string) string {
	return fmt.Sprintf("Hello %s! I'm your AI assistant. How can I help you today?", userName)
}

// Conversation is the ordered message log of one chat. It holds at most one
// typing placeholder at a time. It is not safe for concurrent use; the
// Controller serializes access.
type Conversation struct {
	messages []domain.Message
	now      func() time.Time
}

// NewConversation returns a conversation seeded with the greeting for userName.
func NewConversation(userName string) *Conversation {
	return newConversation(userName, time.Now, uuid.NewString)
}

func newConversation(userName string, now func() time.Time, newID func() string) *Conversation {
	c := &Conversation{now: now}
	c.messages = append(c.messages, domain.Message{
		ID:        newID(),
		Content:   Greeting(userName),
		Role:      domain.RoleAssistant,
		Timestamp: now(),
	})
	return c
}

// Append adds m at the end. A typing message is treated as AppendTyping.
func (c *Conversation) Append(m domain.Message) {
	if m.Typing {
		c.RemoveTyping()
		m.ID = domain.TypingMessageID
	}
	c.messages = append(c.messages, m)
}

// AppendTyping inserts the typing placeholder, replacing any existing one,
// and returns it.
func (c *Conversation) AppendTyping() domain.Message {
	m := domain.Message{
		ID:        domain.TypingMessageID,
		Role:      domain.RoleAssistant,
		Timestamp: c.now(),
		Typing:    true,
	}
	c.Append(m)
	return m
}

// ResolveTyping removes the placeholder and appends the real reply.
func (c *Conversation) ResolveTyping(reply domain.Message) {
	c.RemoveTyping()
	reply.Typing = false
	c.messages = append(c.messages, reply)
}

// RemoveTyping drops the placeholder, if any, and reports whether one existed.
func (c *Conversation) RemoveTyping() bool {
	for i, m := range c.messages {
		if m.Typing {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

// HasTyping reports whether a placeholder is present.
func (c *Conversation) HasTyping() bool {
	for _, m := range c.messages {
		if m.Typing {
			return true
		}
	}
	return false
}

// Len returns the number of messages, placeholder included.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Snapshot returns a copy of the log in order, placeholder included.
func (c *Conversation) Snapshot() []domain.Message {
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}
