// ChatBot AI demo server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/chatbot-ai/internal/api"
	"github.com/ashureev/chatbot-ai/internal/auth"
	"github.com/ashureev/chatbot-ai/internal/chat"
	"github.com/ashureev/chatbot-ai/internal/config"
	"github.com/ashureev/chatbot-ai/internal/domain"
	"github.com/ashureev/chatbot-ai/internal/health"
	"github.com/ashureev/chatbot-ai/internal/realtime"
	"github.com/ashureev/chatbot-ai/internal/store"
	"github.com/ashureev/chatbot-ai/web"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected", "path", cfg.DBPath)

	hub := realtime.NewHub()
	simulator := chat.NewSimulator()
	registry := chat.NewRegistry(func(deviceID string, user domain.User) (*chat.Controller, error) {
		return chat.NewController(user, simulator,
			chat.WithListener(hub.ListenerFor(deviceID)),
			chat.WithLogger(slog.Default().With("device_id", deviceID)),
		)
	})

	base := api.NewHandler(repo, auth.New(), registry, hub)
	origins := cfg.AllowedOrigins()
	wsHandler := realtime.NewHandler(hub, base.Conversation, realtime.OriginPatterns(origins), cfg.IsDevelopment())

	router := api.NewRouter(api.RouterConfig{
		Base:           base,
		VoiceInput:     true,
		AllowedOrigins: origins,
		IsDevelopment:  cfg.IsDevelopment(),
		WebSocket:      wsHandler,
		SPA:            web.SPAHandler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket and ?wait=true responses outlive a fixed write deadline
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry.StartSweeper(ctx, cfg.SweepInterval, cfg.SessionIdleTTL, hub.Disconnect)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			slog.Error("Failed to listen for gRPC health", "error", err, "addr", cfg.GRPCHealthAddr)
			os.Exit(1)
		}
		hs := health.New(repo, 15*time.Second)
		g.Go(func() error { return hs.Serve(gctx, lis) })
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	registry.CloseAll()
	if err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}
