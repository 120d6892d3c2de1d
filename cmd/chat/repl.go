package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/chatbot-ai/internal/capability"
	"github.com/ashureev/chatbot-ai/internal/chat"
	"github.com/ashureev/chatbot-ai/internal/domain"
	"github.com/ashureev/chatbot-ai/internal/export"
)

const replHelp = `Commands:
  /history              list the conversation with message numbers
  /export [json|txt]    save the conversation to a file
  /copy [n]             copy message n (default: last reply) to the clipboard
  /speak [n]            read message n (default: last reply) aloud
  /voice                start or stop voice input
  /quit                 leave the chat`

// syncWriter serializes writes from the prompt loop and reply goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (a *app) printer() chat.Listener {
	return chat.ListenerFunc(func(e chat.Event) {
		switch e.Type {
		case chat.EventTypingStarted:
			fmt.Fprintln(a.out, "Assistant is typing...")
		case chat.EventMessage:
			if e.Message != nil && !e.Message.IsUser() {
				fmt.Fprintf(a.out, "Assistant: %s\n", e.Message.Content)
			}
		case chat.EventNotice:
			if e.Notice != nil {
				a.printNotice(*e.Notice)
			}
		}
	})
}

// runChat runs the interactive conversation until /quit or end of input.
func (a *app) runChat(ctx context.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	a.out = &syncWriter{w: a.out}

	ctrl, err := chat.NewController(user, newResponder(), chat.WithListener(a.printer()), chat.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer func() {
		ctrl.Close()
		ctrl.Wait()
	}()

	voice := capability.NewVoiceInput(a.recognizer, func(ctx context.Context, transcript string) error {
		fmt.Fprintf(a.out, "You (voice): %s\n", transcript)
		_, err := ctrl.SendVoice(ctx, transcript)
		if errors.Is(err, chat.ErrBusy) {
			fmt.Fprintln(a.out, "Please wait for the current reply.")
			return nil
		}
		return err
	}, a.printNotice)
	defer func() {
		voice.Stop()
		voice.Wait()
	}()

	fmt.Fprintf(a.out, "Assistant: %s\n", ctrl.Snapshot()[0].Content)
	fmt.Fprintln(a.out, "Type /help for commands.")

	for {
		line, err := promptLine(a.in, a.out, "> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if strings.HasPrefix(line, "/") {
			if quit := a.command(ctx, ctrl, voice, line); quit {
				return nil
			}
			continue
		}

		turn, err := ctrl.Send(ctx, line)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			continue
		case errors.Is(err, chat.ErrBusy):
			fmt.Fprintln(a.out, "Please wait for the current reply.")
			continue
		case err != nil:
			return err
		}
		if _, err := turn.Wait(ctx); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// command runs a slash command and reports whether the chat should end.
func (a *app) command(ctx context.Context, ctrl *chat.Controller, voice *capability.VoiceInput, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(a.out, replHelp)
	case "/history":
		for i, m := range domain.WithoutTyping(ctrl.Snapshot()) {
			speaker := "Assistant"
			if m.IsUser() {
				speaker = "You"
			}
			fmt.Fprintf(a.out, "%d. [%s] %s: %s\n", i+1, m.Timestamp.Format(time.Kitchen), speaker, m.Content)
		}
	case "/export":
		a.exportChat(ctrl, arg)
	case "/copy":
		if m, ok := a.pick(ctrl, arg); ok {
			a.printNotice(capability.CopyMessage(a.clipboard, m.Content))
		}
	case "/speak":
		if m, ok := a.pick(ctrl, arg); ok {
			capability.SpeakMessage(ctx, a.speaker, m.Content, a.printNotice)
		}
	case "/voice":
		a.toggleVoice(ctx, voice)
	default:
		fmt.Fprintln(a.out, "Unknown command. Type /help for commands.")
	}
	return false
}

// pick returns message n (1-based, as in /history) or the last reply.
func (a *app) pick(ctrl *chat.Controller, arg string) (domain.Message, bool) {
	msgs := domain.WithoutTyping(ctrl.Snapshot())
	if arg == "" {
		for i := len(msgs) - 1; i >= 0; i-- {
			if !msgs[i].IsUser() {
				return msgs[i], true
			}
		}
		return domain.Message{}, false
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(msgs) {
		fmt.Fprintf(a.out, "No message %q. Type /history to list messages.\n", arg)
		return domain.Message{}, false
	}
	return msgs[n-1], true
}

func (a *app) exportChat(ctrl *chat.Controller, arg string) {
	format, err := export.ParseFormat(arg)
	if err != nil {
		fmt.Fprintln(a.out, "Usage: /export [json|txt]")
		return
	}
	now := a.now()
	body, err := export.Render(format, ctrl.Snapshot(), now, time.Local)
	if err != nil {
		a.logger.Error("export failed", "error", err)
		a.printNotice(domain.Notice{Level: domain.NoticeDestructive, Title: "Error", Description: "Failed to export chat."})
		return
	}
	path := filepath.Join(a.exportDir, export.FileName(format, now, time.Local))
	if err := os.WriteFile(path, body, 0o600); err != nil {
		a.logger.Error("export write failed", "error", err, "path", path)
		a.printNotice(domain.Notice{Level: domain.NoticeDestructive, Title: "Error", Description: "Failed to export chat."})
		return
	}
	kind := "JSON"
	if format == export.Text {
		kind = "text"
	}
	a.printNotice(domain.Notice{
		Level:       domain.NoticeInfo,
		Title:       "Chat exported!",
		Description: fmt.Sprintf("Your chat history has been downloaded as %s.", kind),
	})
	fmt.Fprintln(a.out, path)
}

func (a *app) toggleVoice(ctx context.Context, voice *capability.VoiceInput) {
	if !voice.Supported() {
		fmt.Fprintln(a.out, "Voice input is not available. Set STT_COMMAND to a speech-to-text program.")
		return
	}
	if voice.Listening() {
		voice.Stop()
		fmt.Fprintln(a.out, "Stopped listening.")
		return
	}
	if err := voice.Start(ctx); err != nil {
		a.logger.Warn("voice start failed", "error", err)
		a.printNotice(domain.Notice{Level: domain.NoticeDestructive, Title: "Error", Description: "Failed to start voice recognition."})
	}
}
