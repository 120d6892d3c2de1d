package capability

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

// TranscriptSink receives final transcripts, usually the chat controller's
// voice entry point.
type TranscriptSink func(ctx context.Context, transcript string) error

// VoiceInput drives a Recognizer in the background and forwards what it
// hears. Only one listening session runs at a time.
type VoiceInput struct {
	recognizer Recognizer
	sink       TranscriptSink
	notify     func(domain.Notice)

	mu      sync.Mutex
	current *listenSession
	wg      sync.WaitGroup
}

// listenSession is one Start. Its identity tells a finished run whether it
// still owns the VoiceInput state.
type listenSession struct {
	cancel context.CancelFunc
}

// NewVoiceInput wires recognizer to sink. notify may be nil.
func NewVoiceInput(recognizer Recognizer, sink TranscriptSink, notify func(domain.Notice)) *VoiceInput {
	if notify == nil {
		notify = func(domain.Notice) {}
	}
	return &VoiceInput{recognizer: recognizer, sink: sink, notify: notify}
}

// Supported reports whether a recognizer is present. Callers hide voice
// controls when it is false.
func (v *VoiceInput) Supported() bool {
	if v.recognizer == nil {
		return false
	}
	if r, ok := v.recognizer.(*CommandRecognizer); ok && r == nil {
		return false
	}
	return true
}

// Listening reports whether a session is active.
func (v *VoiceInput) Listening() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current != nil
}

// Toggle stops an active session or starts a new one.
func (v *VoiceInput) Toggle(ctx context.Context) error {
	if v.Listening() {
		v.Stop()
		return nil
	}
	return v.Start(ctx)
}

// Start begins listening. It is a no-op while already listening.
func (v *VoiceInput) Start(ctx context.Context) error {
	if !v.Supported() {
		return ErrUnavailable
	}
	v.mu.Lock()
	if v.current != nil {
		v.mu.Unlock()
		return nil
	}
	listenCtx, cancel := context.WithCancel(ctx)
	sess := &listenSession{cancel: cancel}
	v.current = sess
	v.wg.Add(1)
	v.mu.Unlock()

	v.notify(domain.Notice{Level: domain.NoticeInfo, Title: "Listening...", Description: "Speak now, I'm listening!"})
	go v.run(listenCtx, sess)
	return nil
}

// Stop ends the active session without delivering a transcript. A Start
// right after Stop begins a fresh session.
func (v *VoiceInput) Stop() {
	v.mu.Lock()
	sess := v.current
	v.current = nil
	v.mu.Unlock()
	if sess != nil {
		sess.cancel()
	}
}

// Wait blocks until the background session, if any, has ended.
func (v *VoiceInput) Wait() {
	v.wg.Wait()
}

func (v *VoiceInput) run(ctx context.Context, sess *listenSession) {
	defer v.wg.Done()
	defer v.reset(sess)

	transcript, err := v.recognizer.Listen(ctx)
	switch {
	case ctx.Err() != nil:
		return
	case err != nil:
		slog.Warn("voice recognition failed", "error", err)
		v.notify(domain.Notice{
			Level:       domain.NoticeDestructive,
			Title:       "Voice input error",
			Description: "Failed to recognize speech. Please try again.",
		})
		return
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}
	if err := v.sink(context.WithoutCancel(ctx), transcript); err != nil {
		slog.Warn("voice transcript not delivered", "error", err)
	}
}

// reset releases sess. State owned by a newer session is left alone.
func (v *VoiceInput) reset(sess *listenSession) {
	sess.cancel()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == sess {
		v.current = nil
	}
}
