package capability

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// speechEngines are tried in order when no TTS command is configured. The
// rate flags approximate 0.8x normal speed.
var speechEngines = [][]string{
	{"espeak", "-s", "140"},
	{"spd-say", "-w", "-r", "-20"},
	{"say", "-r", "140"},
}

// CommandSpeaker pipes text through a host TTS program.
type CommandSpeaker struct {
	argv []string
}

// NewCommandSpeaker returns a speaker for command, or for the first installed
// engine when command is empty. It returns nil when nothing is usable.
func NewCommandSpeaker(command string) *CommandSpeaker {
	if argv := strings.Fields(command); len(argv) > 0 {
		if _, err := exec.LookPath(argv[0]); err != nil {
			return nil
		}
		return &CommandSpeaker{argv: argv}
	}
	for _, argv := range speechEngines {
		if _, err := exec.LookPath(argv[0]); err == nil {
			return &CommandSpeaker{argv: argv}
		}
	}
	return nil
}

// Speak implements Speaker. The text is passed as the final argument.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	if s == nil || len(s.argv) == 0 {
		return ErrUnavailable
	}
	args := append(append([]string(nil), s.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, s.argv[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("capability: %s: %w: %s", s.argv[0], err, bytes.TrimSpace(out))
	}
	return nil
}

// CommandRecognizer runs a speech-to-text program that records one utterance
// and prints the transcript on stdout.
type CommandRecognizer struct {
	argv []string
}

// NewCommandRecognizer returns nil when command is empty or not installed.
func NewCommandRecognizer(command string) *CommandRecognizer {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil
	}
	return &CommandRecognizer{argv: argv}
}

// Listen implements Recognizer. Only the last non-empty output line counts as
// the final transcript.
func (r *CommandRecognizer) Listen(ctx context.Context) (string, error) {
	if r == nil || len(r.argv) == 0 {
		return "", ErrUnavailable
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("capability: %s: %w: %s", r.argv[0], err, bytes.TrimSpace(stderr.Bytes()))
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}
