// Package capability wraps optional host features: clipboard, speech output
// and speech recognition. A nil capability means the host lacks it.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

// ErrUnavailable is returned when the host does not provide a capability.
var ErrUnavailable = errors.New("capability: not available on this host")

// Clipboard copies text for the user.
type Clipboard interface {
	WriteText(text string) error
}

// Speaker reads text aloud. Speak returns when playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Recognizer captures one utterance and returns its final transcript.
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
}

// SystemClipboard uses the desktop clipboard.
type SystemClipboard struct{}

// WriteText implements Clipboard.
func (SystemClipboard) WriteText(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("capability: write clipboard: %w", err)
	}
	return nil
}

// CopyMessage copies text and returns the notice to show.
func CopyMessage(cb Clipboard, text string) domain.Notice {
	if cb == nil || cb.WriteText(text) != nil {
		return domain.Notice{Level: domain.NoticeDestructive, Title: "Error", Description: "Failed to copy message."}
	}
	return domain.Notice{Level: domain.NoticeInfo, Title: "Copied!", Description: "Message copied to clipboard."}
}

func unsupportedSpeech() domain.Notice {
	return domain.Notice{
		Level:       domain.NoticeDestructive,
		Title:       "Not supported",
		Description: "Speech synthesis is not supported in this browser.",
	}
}

// SpeakingNotice is shown when playback of a message starts.
func SpeakingNotice() domain.Notice {
	return domain.Notice{Level: domain.NoticeInfo, Title: "Speaking...", Description: "Playing message audio."}
}

// SpeakMessage reads text aloud, reporting through notify. The speaking
// notice goes out before playback starts; a failure adds a second notice. A
// missing speaker degrades to the unsupported notice.
func SpeakMessage(ctx context.Context, s Speaker, text string, notify func(domain.Notice)) {
	if !speakerAvailable(s) {
		notify(unsupportedSpeech())
		return
	}
	notify(SpeakingNotice())
	if err := s.Speak(ctx, text); err != nil {
		if errors.Is(err, ErrUnavailable) {
			notify(unsupportedSpeech())
			return
		}
		notify(domain.Notice{Level: domain.NoticeDestructive, Title: "Error", Description: "Failed to play message audio."})
	}
}

func speakerAvailable(s Speaker) bool {
	if s == nil {
		return false
	}
	if cs, ok := s.(*CommandSpeaker); ok {
		return cs != nil && len(cs.argv) > 0
	}
	return true
}
