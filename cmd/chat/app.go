package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/chatbot-ai/internal/auth"
	"github.com/ashureev/chatbot-ai/internal/capability"
	"github.com/ashureev/chatbot-ai/internal/chat"
	"github.com/ashureev/chatbot-ai/internal/domain"
	"github.com/ashureev/chatbot-ai/internal/session"
	"github.com/ashureev/chatbot-ai/internal/store"
)

// localNamespace is the bucket of the single terminal "device".
const localNamespace = "local"

var errNotSignedIn = errors.New("not signed in: run `chat login` or `chat register` first")

// newAuthenticator and newResponder are test seams.
var (
	newAuthenticator = func() *auth.Authenticator { return auth.New() }
	newResponder     = func() chat.Responder { return chat.NewSimulator() }
)

// app holds what every subcommand needs.
type app struct {
	repo     store.Repository
	sessions *session.Store
	auth     *auth.Authenticator
	logger   *slog.Logger

	in  *bufio.Reader
	out io.Writer

	clipboard  capability.Clipboard
	speaker    capability.Speaker
	recognizer capability.Recognizer
	exportDir  string
	now        func() time.Time
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".chatbot", "chat.db")
	}
	return filepath.Join(home, ".chatbot", "chat.db")
}

func openRepository(dbPath string, ephemeral bool) (store.Repository, error) {
	if ephemeral {
		return store.NewMemory(), nil
	}
	repo, err := store.NewSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return repo, nil
}

func newApp(repo store.Repository, in io.Reader, out io.Writer, logger *slog.Logger) *app {
	return &app{
		repo:     repo,
		sessions: session.New(store.NewBucket(repo, localNamespace), logger),
		auth:     newAuthenticator(),
		logger:   logger,
		in:       bufio.NewReader(in),
		out:      out,
		now:      time.Now,
	}
}

func (a *app) login(ctx context.Context, email, password string) (domain.User, error) {
	return a.auth.Login(ctx, a.sessions, email, password)
}

func (a *app) register(ctx context.Context, in auth.RegisterInput) (domain.User, error) {
	return a.auth.Register(ctx, a.sessions, in)
}

func (a *app) currentUser(ctx context.Context) (domain.User, error) {
	rec, ok := a.sessions.Restore(ctx)
	if !ok {
		return domain.User{}, errNotSignedIn
	}
	return rec.User, nil
}

func (a *app) logout(ctx context.Context) error {
	return a.sessions.Clear(ctx)
}

func (a *app) printNotice(n domain.Notice) {
	fmt.Fprintf(a.out, "[%s] %s\n", n.Title, n.Description)
}
