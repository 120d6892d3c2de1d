// Package session persists the signed-in user across restarts, the way the
// browser client keeps it in local storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

// Storage keys. Both are written and cleared together.
const (
	TokenKey = "auth.token"
	UserKey  = "auth.user"
)

// errCorrupt marks persisted state that cannot be restored. It never leaves
// this package.
var errCorrupt = errors.New("session: persisted state corrupt")

// KeyValue is the storage capability the session store needs.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Record is the persisted signed-in state. Token is an opaque marker, not a
// credential.
type Record struct {
	Token string
	User  domain.User
}

// Store saves, restores and clears the session record.
type Store struct {
	kv  KeyValue
	log *slog.Logger
}

// New returns a Store over kv.
func New(kv KeyValue, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, log: logger}
}

// Save writes the token and the serialized user in one write.
func (s *Store) Save(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec.User)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	if err := s.kv.SetMany(ctx, map[string]string{
		TokenKey: rec.Token,
		UserKey:  string(payload),
	}); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Restore returns the persisted record. Absent, partial or corrupt state is
// reported as false and cleared. A failed read is reported as false and left
// in place. Errors are never surfaced.
func (s *Store) Restore(ctx context.Context) (Record, bool) {
	rec, present, err := s.load(ctx)
	switch {
	case err == nil && present:
		return rec, true
	case err == nil:
		return Record{}, false
	case !errors.Is(err, errCorrupt):
		s.log.Warn("failed to read persisted session", "error", err)
		return Record{}, false
	}
	s.log.Warn("discarding persisted session", "error", err)
	if clearErr := s.Clear(ctx); clearErr != nil {
		s.log.Warn("failed to clear persisted session", "error", clearErr)
	}
	return Record{}, false
}

// Clear removes both keys. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// load reads both keys. present is false with a nil error only when neither
// key exists.
func (s *Store) load(ctx context.Context) (Record, bool, error) {
	token, hasToken, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return Record{}, false, fmt.Errorf("read token: %w", err)
	}
	payload, hasUser, err := s.kv.Get(ctx, UserKey)
	if err != nil {
		return Record{}, false, fmt.Errorf("read user: %w", err)
	}

	switch {
	case !hasToken && !hasUser:
		return Record{}, false, nil
	case !hasToken || !hasUser:
		return Record{}, false, fmt.Errorf("%w: token present=%t, user present=%t", errCorrupt, hasToken, hasUser)
	case token == "":
		return Record{}, false, fmt.Errorf("%w: empty token", errCorrupt)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(payload), &user); err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if !user.Valid() {
		return Record{}, false, fmt.Errorf("%w: incomplete user record", errCorrupt)
	}
	return Record{Token: token, User: user}, true, nil
}
