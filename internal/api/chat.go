package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/chatbot-ai/internal/auth"
	"github.com/ashureev/chatbot-ai/internal/chat"
	"github.com/ashureev/chatbot-ai/internal/domain"
	"github.com/ashureev/chatbot-ai/internal/export"
	"github.com/ashureev/chatbot-ai/internal/identity"
)

type ctxKey int

const controllerKey ctxKey = iota

func controllerFromContext(ctx context.Context) *chat.Controller {
	c, _ := ctx.Value(controllerKey).(*chat.Controller)
	return c
}

// ChatHandler handles conversation endpoints for a signed-in device.
type ChatHandler struct {
	*Handler
	voiceInput bool
}

// NewChatHandler creates a new chat handler. voiceInput advertises whether the
// server expects dictated transcripts.
func NewChatHandler(base *Handler, voiceInput bool) *ChatHandler {
	return &ChatHandler{Handler: base, voiceInput: voiceInput}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/config", h.GetConfig)
	r.Route("/api/chat", func(r chi.Router) {
		r.Use(h.requireConversation)
		r.Get("/messages", h.Messages)
		r.Post("/messages", h.Send)
		r.Post("/voice", h.Voice)
		r.Get("/export", h.Export)
	})
}

func (h *ChatHandler) requireConversation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := h.Conversation(r.Context(), identity.DeviceIDFromContext(r.Context()))
		if errors.Is(err, ErrNotSignedIn) {
			ErrorCode(w, http.StatusUnauthorized, "unauthenticated", "not signed in", nil)
			return
		}
		if err != nil {
			slog.Error("failed to open conversation", "error", err)
			Error(w, http.StatusInternalServerError, "failed to open conversation")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), controllerKey, ctrl)))
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *ChatHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"assistant":           "simulated",
		"voice_input":         h.voiceInput,
		"export_formats":      []export.Format{export.JSON, export.Text},
		"min_password_length": auth.MinPasswordLength,
	})
}

type messagesResponse struct {
	Messages []domain.Message `json:"messages"`
	State    string           `json:"state"`
}

// Messages returns the conversation, typing placeholder included.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFromContext(r.Context())
	JSON(w, http.StatusOK, messagesResponse{Messages: ctrl.Snapshot(), State: ctrl.State().String()})
}

type sendRequest struct {
	Content string `json:"content"`
}

type voiceRequest struct {
	Transcript string `json:"transcript"`
}

type sendResponse struct {
	Message domain.Message  `json:"message"`
	Reply   *domain.Message `json:"reply,omitempty"`
	State   string          `json:"state"`
}

// Send appends a typed message. With ?wait=true the response carries the
// reply instead of returning as soon as the message is accepted.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctrl := controllerFromContext(r.Context())
	turn, err := ctrl.Send(r.Context(), req.Content)
	h.respondTurn(w, r, ctrl, turn, err)
}

// Voice appends a dictated transcript through the same path as Send.
func (h *ChatHandler) Voice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctrl := controllerFromContext(r.Context())
	turn, err := ctrl.SendVoice(r.Context(), req.Transcript)
	h.respondTurn(w, r, ctrl, turn, err)
}

func (h *ChatHandler) respondTurn(w http.ResponseWriter, r *http.Request, ctrl *chat.Controller, turn *chat.Turn, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		ErrorCode(w, http.StatusBadRequest, "empty_message", "message is empty", nil)
		return
	case errors.Is(err, chat.ErrBusy):
		ErrorCode(w, http.StatusConflict, "busy", "waiting for the previous reply", nil)
		return
	case errors.Is(err, chat.ErrClosed):
		ErrorCode(w, http.StatusConflict, "closed", "conversation closed", nil)
		return
	case err != nil:
		slog.Error("send failed", "error", err)
		Error(w, http.StatusInternalServerError, "send failed")
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		JSON(w, http.StatusAccepted, sendResponse{Message: turn.UserMessage, State: ctrl.State().String()})
		return
	}

	reply, err := turn.Wait(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		notice := chat.FailureNotice()
		ErrorCode(w, http.StatusBadGateway, "response_failed", notice.Description, &notice)
		return
	}
	JSON(w, http.StatusOK, sendResponse{Message: turn.UserMessage, Reply: &reply, State: ctrl.State().String()})
}

// Export downloads the conversation as JSON or plain text. The optional tz
// parameter names the IANA zone for plain-text timestamps.
func (h *ChatHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		ErrorCode(w, http.StatusBadRequest, "unknown_format", err.Error(), nil)
		return
	}
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			ErrorCode(w, http.StatusBadRequest, "unknown_timezone", "unknown time zone", nil)
			return
		}
	}

	now := h.now()
	body, err := export.Render(format, controllerFromContext(r.Context()).Snapshot(), now, loc)
	if err != nil {
		slog.Error("export failed", "error", err)
		Error(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(format, now, loc)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Debug("export write failed", "error", err)
	}
}
