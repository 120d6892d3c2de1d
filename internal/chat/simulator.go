package chat

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/chatbot-ai/internal/domain"
	"github.com/ashureev/chatbot-ai/internal/shared"
)

// Responder produces the assistant's reply to a user message.
type Responder interface {
	Respond(ctx context.Context, text string) (domain.Message, error)
}

// Openings are the fixed reply openers the simulator picks from.
var Openings = [...]string{
	"That's an interesting question! Let me think about that...",
	"I understand what you're asking. Here's my perspective on that topic:",
	"Great point! Based on what you've shared, I would suggest:",
	"I can help you with that! Here are some thoughts:",
	"That's a fascinating topic. Let me break it down for you:",
}

const (
	excerptLength = 30

	minReplyDelay = 1000 * time.Millisecond
	maxReplyDelay = 3000 * time.Millisecond

	disclaimer = "touches on important themes. While this is a demo response, in a real implementation, " +
		"this would connect to a proper AI service like OpenAI's GPT API or similar."
)

// Excerpt returns the first 30 characters of text, with "..." appended when
// text is longer.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	return string(runes[:excerptLength]) + "..."
}

// ComposeReply builds the templated reply for text using opening.
func ComposeReply(opening, text string) string {
	return fmt.Sprintf("%s Your message about \"%s\" %s", opening, Excerpt(text), disclaimer)
}

// Simulator is a Responder that fakes an AI backend: it waits a random
// 1-3s and answers with a randomly chosen template.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand

	sleep shared.SleepFunc
	now   func() time.Time
	newID func() string
}

// SimulatorOption customizes a Simulator.
type SimulatorOption func(*Simulator)

// WithSeed pins the random source so delays and templates are reproducible.
func WithSeed(seed uint64) SimulatorOption {
	return func(s *Simulator) { s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithRand uses r as the random source.
func WithRand(r *rand.Rand) SimulatorOption {
	return func(s *Simulator) { s.rng = r }
}

// WithSimulatorSleep replaces the delay implementation.
func WithSimulatorSleep(fn shared.SleepFunc) SimulatorOption {
	return func(s *Simulator) { s.sleep = fn }
}

// WithSimulatorClock replaces the timestamp source.
func WithSimulatorClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) { s.now = now }
}

// NewSimulator returns a Simulator seeded from the runtime's random source
// unless WithSeed or WithRand is given.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		sleep: shared.Sleep,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Respond waits the simulated latency and returns an assistant message. It
// only fails when ctx ends during the wait.
func (s *Simulator) Respond(ctx context.Context, text string) (domain.Message, error) {
	if err := s.sleep(ctx, s.nextDelay()); err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        s.newID(),
		Content:   ComposeReply(s.nextOpening(), text),
		Role:      domain.RoleAssistant,
		Timestamp: s.now(),
	}, nil
}

func (s *Simulator) nextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return minReplyDelay + time.Duration(s.rng.Int64N(int64(maxReplyDelay-minReplyDelay)))
}

func (s *Simulator) nextOpening() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Openings[s.rng.IntN(len(Openings))]
}
