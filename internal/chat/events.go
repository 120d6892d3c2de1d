package chat

import "github.com/ashureev/chatbot-ai/internal/domain"

// EventType names a change published by a Controller.
type EventType string

const (
	EventMessage       EventType = "message"
	EventTypingStarted EventType = "typing_started"
	EventTypingRemoved EventType = "typing_removed"
	EventNotice        EventType = "notice"
)

// Event is one observable change to a conversation.
type Event struct {
	Type    EventType       `json:"type"`
	Message *domain.Message `json:"message,omitempty"`
	Notice  *domain.Notice  `json:"notice,omitempty"`
}

// Listener receives controller events. Publish is called outside the
// controller's lock and must not block for long.
type Listener interface {
	Publish(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// Publish calls f(e).
func (f ListenerFunc) Publish(e Event) { f(e) }

type nopListener struct{}

func (nopListener) Publish(Event) {}

// FailureNotice is shown when a reply could not be produced.
func FailureNotice() domain.Notice {
	return domain.Notice{
		Level:       domain.NoticeDestructive,
		Title:       "Error",
		Description: "Failed to get AI response. Please try again.",
	}
}
