package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/chatbot-ai/internal/identity"
	"github.com/ashureev/chatbot-ai/internal/middleware"
)

// RouterConfig collects what NewRouter mounts. WebSocket and SPA are
// optional.
type RouterConfig struct {
	Base           *Handler
	VoiceInput     bool
	AllowedOrigins []string
	IsDevelopment  bool
	WebSocket      http.Handler
	SPA            http.Handler
}

// NewRouter builds the HTTP surface: middleware, API routes, the chat
// socket and the SPA fallback.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware(cfg.IsDevelopment))

	NewHealthHandler(cfg.Base.repo).RegisterHealth(r)
	NewAuthHandler(cfg.Base).RegisterRoutes(r)
	NewChatHandler(cfg.Base, cfg.VoiceInput).RegisterRoutes(r)

	if cfg.WebSocket != nil {
		r.Get("/ws/chat", cfg.WebSocket.ServeHTTP)
	}
	if cfg.SPA != nil {
		r.Handle("/*", cfg.SPA)
	}
	return r
}
