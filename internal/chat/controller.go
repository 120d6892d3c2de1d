package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

// State is the controller's turn-taking state.
type State int

const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting_response"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Controller runs one user's conversation with a Responder. At most one
// reply is in flight at a time.
type Controller struct {
	user      domain.User
	responder Responder
	listener  Listener
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu           sync.Mutex
	conv         *Conversation
	state        State
	lastActivity time.Time
	closed       bool
	outbox       []Event

	// pubMu serializes delivery so listeners see events in the order the
	// conversation changed. Lock order is pubMu before mu.
	pubMu sync.Mutex

	wg sync.WaitGroup
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithListener sets the receiver of conversation events.
func WithListener(l Listener) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.listener = l
		}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the timestamp source for user messages and activity.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// WithMessageIDs sets the message identifier generator.
func WithMessageIDs(newID func() string) ControllerOption {
	return func(c *Controller) { c.newID = newID }
}

// NewController opens a conversation for user seeded with the greeting.
func NewController(user domain.User, responder Responder, opts ...ControllerOption) (*Controller, error) {
	if responder == nil {
		return nil, errors.New("chat: responder is required")
	}
	c := &Controller{
		user:      user,
		responder: responder,
		listener:  nopListener{},
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.conv = newConversation(user.Name, c.now, c.newID)
	c.lastActivity = c.now()
	return c, nil
}

// Turn is the handle of one accepted send.
type Turn struct {
	UserMessage domain.Message

	done  chan struct{}
	reply domain.Message
	err   error
}

// Done is closed once the reply was appended or the failure handled.
func (t *Turn) Done() <-chan struct{} { return t.done }

// Wait blocks until the turn completes or ctx ends. It returns the reply, or
// the responder's error after the failure path ran.
func (t *Turn) Wait(ctx context.Context) (domain.Message, error) {
	select {
	case <-t.done:
		return t.reply, t.err
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	}
}

// Send appends text as a user message and requests a reply in the
// background. Blank input returns ErrEmptyMessage and a send while a reply
// is pending returns ErrBusy; neither changes the conversation. Cancelling
// ctx after Send returns does not abort the reply.
func (c *Controller) Send(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.state == AwaitingResponse {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	now := c.now()
	msg := domain.Message{
		ID:        c.newID(),
		Content:   text,
		Role:      domain.RoleUser,
		Timestamp: now,
	}
	c.conv.Append(msg)
	typing := c.conv.AppendTyping()
	c.state = AwaitingResponse
	c.lastActivity = now
	c.enqueueLocked(
		Event{Type: EventMessage, Message: &msg},
		Event{Type: EventTypingStarted, Message: &typing},
	)
	c.wg.Add(1)
	c.mu.Unlock()
	c.flush()

	turn := &Turn{UserMessage: msg, done: make(chan struct{})}
	go c.await(context.WithoutCancel(ctx), turn)
	return turn, nil
}

// SendVoice routes a dictated transcript through Send.
func (c *Controller) SendVoice(ctx context.Context, transcript string) (*Turn, error) {
	return c.Send(ctx, transcript)
}

func (c *Controller) await(ctx context.Context, turn *Turn) {
	defer c.wg.Done()
	defer close(turn.done)

	reply, err := c.responder.Respond(ctx, turn.UserMessage.Content)
	if err != nil {
		c.logger.Warn("assistant reply failed", "user_id", c.user.ID, "error", err)
	}

	typingGone := domain.Message{ID: domain.TypingMessageID, Role: domain.RoleAssistant, Typing: true}
	c.mu.Lock()
	if err == nil {
		c.conv.ResolveTyping(reply)
		c.enqueueLocked(
			Event{Type: EventTypingRemoved, Message: &typingGone},
			Event{Type: EventMessage, Message: &reply},
		)
	} else {
		c.conv.RemoveTyping()
		notice := FailureNotice()
		c.enqueueLocked(
			Event{Type: EventTypingRemoved, Message: &typingGone},
			Event{Type: EventNotice, Notice: &notice},
		)
	}
	c.state = Idle
	c.lastActivity = c.now()
	c.mu.Unlock()
	c.flush()

	if err != nil {
		turn.err = err
		return
	}
	turn.reply = reply
}

// enqueueLocked queues events for delivery. A closed controller delivers
// nothing. c.mu must be held.
func (c *Controller) enqueueLocked(events ...Event) {
	if c.closed {
		return
	}
	c.outbox = append(c.outbox, events...)
}

// flush delivers queued events. Publish runs without c.mu so listeners may
// read the controller.
func (c *Controller) flush() {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	for {
		c.mu.Lock()
		batch := c.outbox
		c.outbox = nil
		c.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			c.listener.Publish(e)
		}
	}
}

// Snapshot returns the conversation in order, placeholder included.
func (c *Controller) Snapshot() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Snapshot()
}

// State returns the current turn-taking state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// User returns the user this conversation belongs to.
func (c *Controller) User() domain.User {
	return c.user
}

// LastActivity returns when the conversation last changed.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Close rejects further sends and stops event delivery: once it returns the
// listener receives nothing more, not even a pending reply. That reply still
// completes in the background; use Wait to block until it has.
func (c *Controller) Close() {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	c.mu.Lock()
	c.closed = true
	c.outbox = nil
	c.mu.Unlock()
}

// Wait blocks until every background reply has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}
