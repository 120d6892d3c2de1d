package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashureev/chatbot-ai/internal/auth"
	"github.com/ashureev/chatbot-ai/internal/chat"
	"github.com/ashureev/chatbot-ai/internal/export"
)

func stubSeams(t *testing.T) {
	t.Helper()
	noSleep := func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	prevAuth, prevResp, prevTerm := newAuthenticator, newResponder, isTerminal
	newAuthenticator = func() *auth.Authenticator { return auth.New(auth.WithSleep(noSleep)) }
	newResponder = func() chat.Responder {
		return chat.NewSimulator(chat.WithSeed(3), chat.WithSimulatorSleep(noSleep))
	}
	isTerminal = func() bool { return false }
	t.Cleanup(func() { newAuthenticator, newResponder, isTerminal = prevAuth, prevResp, prevTerm })

	for _, k := range []string{"CONFIG_FILE", "STT_COMMAND", "TTS_COMMAND", "PORT", "DB_PATH", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, dbPath, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(append([]string{"--db", dbPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginChatLogout(t *testing.T) {
	stubSeams(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "chat.db")

	out, err := run(t, db, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in.")

	out, err = run(t, db, "", "login", "--email", "a@b.com", "--password", "x")
	require.NoError(t, err)
	require.Contains(t, out, "You have successfully signed in as a.")

	out, err = run(t, db, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "a <a@b.com>")

	stdin := "Hello there, how are you doing today?\n   \n/history\n/export json\n/bogus\n/quit\n"
	out, err = run(t, db, stdin, "--export-dir", dir, "chat")
	require.NoError(t, err)
	require.Contains(t, out, "Assistant: Hello a! I'm your AI assistant. How can I help you today?")
	require.Contains(t, out, "Assistant is typing...")
	require.Contains(t, out, `Your message about "Hello there, how are you doing..."`)
	require.Contains(t, out, "2. [")
	require.Contains(t, out, "[Chat exported!] Your chat history has been downloaded as JSON.")
	require.Contains(t, out, "Unknown command.")

	matches, err := filepath.Glob(filepath.Join(dir, "chat-export-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	doc, err := export.ParseStructured(data)
	require.NoError(t, err)
	require.Equal(t, 3, doc.MessageCount)

	out, err = run(t, db, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out.")

	_, err = run(t, db, "", "chat")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestLoginPromptsForMissingFields(t *testing.T) {
	stubSeams(t)
	db := filepath.Join(t.TempDir(), "chat.db")

	out, err := run(t, db, "jane@corp.io\nsecret\n", "login")
	require.NoError(t, err)
	require.Contains(t, out, "Email: ")
	require.Contains(t, out, "signed in as jane.")
}

func TestRegisterValidation(t *testing.T) {
	stubSeams(t)
	db := filepath.Join(t.TempDir(), "chat.db")

	out, err := run(t, db, "", "register", "--name", "Ada", "--email", "ada@x.io",
		"--password", "abcde", "--confirm-password", "abcde")
	require.Error(t, err)
	require.Contains(t, out, "[Registration failed] Password must be at least 6 characters")

	out, err = run(t, db, "", "register", "--name", "Ada", "--email", "ada@x.io",
		"--password", "abcdef", "--confirm-password", "abcdef")
	require.NoError(t, err)
	require.Contains(t, out, "created successfully, Ada.")
}

func TestREPLCapabilities(t *testing.T) {
	stubSeams(t)
	db := filepath.Join(t.TempDir(), "chat.db")
	_, err := run(t, db, "", "login", "--email", "a@b.com", "--password", "x")
	require.NoError(t, err)

	out, err := run(t, db, "/voice\n/copy 9\n/quit\n", "chat", "--no-voice")
	require.NoError(t, err)
	require.Contains(t, out, "Voice input is not available.")
	require.Contains(t, out, `No message "9".`)
}
