package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/chatbot-ai/internal/auth"
	"github.com/ashureev/chatbot-ai/internal/domain"
	"github.com/ashureev/chatbot-ai/internal/identity"
)

// AuthHandler handles sign-in, sign-up, sign-out and session restore.
type AuthHandler struct {
	*Handler
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *Handler) *AuthHandler {
	return &AuthHandler{Handler: base}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/logout", h.Logout)
		r.Get("/session", h.Session)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User   domain.User   `json:"user"`
	Notice domain.Notice `json:"notice"`
}

// Login signs the device in with any non-empty email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	deviceID := identity.DeviceIDFromContext(r.Context())

	user, err := h.auth.Login(r.Context(), h.sessions(deviceID), req.Email, req.Password)
	if err != nil {
		h.authFailed(w, r, "Sign in failed", err)
		return
	}
	h.signedIn(w, deviceID, user, domain.Notice{
		Level:       domain.NoticeInfo,
		Title:       "Welcome back!",
		Description: "You have successfully signed in.",
	})
}

// Register signs the device up. Name is taken as given.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	deviceID := identity.DeviceIDFromContext(r.Context())

	user, err := h.auth.Register(r.Context(), h.sessions(deviceID), req)
	if err != nil {
		h.authFailed(w, r, "Registration failed", err)
		return
	}
	h.signedIn(w, deviceID, user, domain.Notice{
		Level:       domain.NoticeInfo,
		Title:       "Welcome!",
		Description: "Your account has been created successfully.",
	})
}

func (h *AuthHandler) signedIn(w http.ResponseWriter, deviceID string, user domain.User, notice domain.Notice) {
	if _, err := h.registry.Open(deviceID, user); err != nil {
		slog.Error("failed to open conversation", "error", err, "device_id", deviceID, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "failed to open conversation")
		return
	}
	slog.Info("device signed in", "device_id", deviceID, "user_id", user.ID)
	JSON(w, http.StatusOK, authResponse{User: user, Notice: notice})
}

func (h *AuthHandler) authFailed(w http.ResponseWriter, r *http.Request, title string, err error) {
	if verr, ok := auth.IsValidation(err); ok {
		ErrorCode(w, http.StatusBadRequest, string(verr.Code), verr.Message, &domain.Notice{
			Level:       domain.NoticeDestructive,
			Title:       title,
			Description: verr.Message,
		})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.Debug("sign-in abandoned", "error", err)
		Error(w, http.StatusRequestTimeout, "request cancelled")
		return
	}
	slog.Error("sign-in failed", "error", err, "device_id", identity.DeviceIDFromContext(r.Context()))
	Error(w, http.StatusInternalServerError, "failed to save session")
}

// Logout clears the device's session and closes its conversation. Signing
// out twice is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	if err := h.sessions(deviceID).Clear(r.Context()); err != nil {
		slog.Error("failed to clear session", "error", err, "device_id", deviceID)
		Error(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	h.registry.Close(deviceID)
	if h.sockets != nil {
		h.sockets.Disconnect(deviceID)
	}
	slog.Info("device signed out", "device_id", deviceID)
	JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
}

// Session restores the persisted sign-in, if any.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	ctrl, err := h.Conversation(r.Context(), deviceID)
	if errors.Is(err, ErrNotSignedIn) {
		JSON(w, http.StatusOK, sessionResponse{})
		return
	}
	if err != nil {
		slog.Error("failed to restore conversation", "error", err, "device_id", deviceID)
		Error(w, http.StatusInternalServerError, "failed to restore session")
		return
	}
	user := ctrl.User()
	JSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: &user})
}
