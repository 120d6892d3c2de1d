// Package api provides HTTP handlers for the chat API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/chatbot-ai/internal/auth"
	"github.com/ashureev/chatbot-ai/internal/chat"
	"github.com/ashureev/chatbot-ai/internal/domain"
	"github.com/ashureev/chatbot-ai/internal/session"
	"github.com/ashureev/chatbot-ai/internal/store"
)

// ErrNotSignedIn is returned when a device has no restorable session.
var ErrNotSignedIn = errors.New("api: not signed in")

// Disconnector drops a device's realtime connections.
type Disconnector interface {
	Disconnect(deviceID string)
}

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	auth     *auth.Authenticator
	registry *chat.Registry
	sockets  Disconnector
	now      func() time.Time
}

// NewHandler creates a new Handler with common dependencies. sockets may be nil.
func NewHandler(repo store.Repository, authn *auth.Authenticator, registry *chat.Registry, sockets Disconnector) *Handler {
	return &Handler{
		repo:     repo,
		auth:     authn,
		registry: registry,
		sockets:  sockets,
		now:      time.Now,
	}
}

// sessions returns the session store of a device's bucket.
func (h *Handler) sessions(deviceID string) *session.Store {
	return session.New(store.NewBucket(h.repo, deviceID), slog.Default().With("device_id", deviceID))
}

// Conversation returns the device's open conversation, reopening it from the
// persisted session after a restart. A fresh conversation starts with the
// greeting.
func (h *Handler) Conversation(ctx context.Context, deviceID string) (*chat.Controller, error) {
	if c, ok := h.registry.Get(deviceID); ok {
		return c, nil
	}
	rec, ok := h.sessions(deviceID).Restore(ctx)
	if !ok {
		return nil, ErrNotSignedIn
	}
	return h.registry.Open(deviceID, rec.User)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// errorBody is the error payload for failures the client reacts to.
type errorBody struct {
	Error  string         `json:"error"`
	Code   string         `json:"code"`
	Notice *domain.Notice `json:"notice,omitempty"`
}

// ErrorCode writes a JSON error with a machine-readable code and an optional
// notice for the client to show.
func ErrorCode(w http.ResponseWriter, status int, code, message string, notice *domain.Notice) {
	JSON(w, status, errorBody{Error: message, Code: code, Notice: notice})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
