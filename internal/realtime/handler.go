package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/chatbot-ai/internal/chat"
	"github.com/ashureev/chatbot-ai/internal/identity"
)

const writeTimeout = 10 * time.Second

// Resolver returns the signed-in conversation of a device.
type Resolver func(ctx context.Context, deviceID string) (*chat.Controller, error)

// inbound is one client-to-server websocket message.
type inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Handler upgrades /ws/chat requests and runs the socket.
type Handler struct {
	hub            *Hub
	resolve        Resolver
	originPatterns []string
	isDev          bool
}

// NewHandler creates a websocket handler. originPatterns are host patterns
// accepted in production; development accepts any origin.
func NewHandler(hub *Hub, resolve Resolver, originPatterns []string, isDev bool) *Handler {
	return &Handler{hub: hub, resolve: resolve, originPatterns: originPatterns, isDev: isDev}
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	slog.Info("chat socket request", "device_id", deviceID, "ip", identity.IPFromRequest(r))

	opts := &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
	if h.isDev {
		opts.InsecureSkipVerify = true
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("failed to accept chat socket", "error", err, "device_id", deviceID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("failed to close chat socket", "error", closeErr, "device_id", deviceID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ctrl, err := h.resolve(ctx, deviceID)
	if err != nil {
		slog.Info("chat socket rejected", "device_id", deviceID, "error", err)
		_ = writeFrame(ctx, ws, Frame{Type: "error", Error: "not signed in", Code: "unauthenticated"})
		return
	}

	c := h.hub.register(deviceID)
	defer h.hub.unregister(deviceID, c)

	if err := writeFrame(ctx, ws, Frame{Type: "snapshot", Messages: ctrl.Snapshot(), State: ctrl.State().String()}); err != nil {
		slog.Debug("failed to send snapshot", "error", err, "device_id", deviceID)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		h.writeLoop(ctx, ws, c, deviceID)
	}()

	h.readLoop(ctx, ws, ctrl, c, deviceID)
	cancel()
	<-done
	slog.Info("chat socket ended", "device_id", deviceID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, ctrl *chat.Controller, c *client, deviceID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("chat socket closed", "device_id", deviceID)
			} else {
				slog.Warn("chat socket read error", "error", err, "device_id", deviceID)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(c, Frame{Type: "error", Error: "malformed message", Code: "bad_request"})
			continue
		}

		switch msg.Type {
		case "send":
			h.send(ctx, c, ctrl.Send, msg.Content)
		case "voice_transcript":
			h.send(ctx, c, ctrl.SendVoice, msg.Content)
		case "ping":
			h.reply(c, Frame{Type: "pong"})
		default:
			h.reply(c, Frame{Type: "error", Error: "unknown message type", Code: "bad_request"})
		}
	}
}

func (h *Handler) send(ctx context.Context, c *client, send func(context.Context, string) (*chat.Turn, error), text string) {
	_, err := send(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrEmptyMessage):
		h.reply(c, Frame{Type: "error", Error: "message is empty", Code: "empty_message"})
	case errors.Is(err, chat.ErrBusy):
		h.reply(c, Frame{Type: "error", Error: "waiting for the previous reply", Code: "busy"})
	default:
		h.reply(c, Frame{Type: "error", Error: "conversation closed", Code: "closed"})
	}
}

func (h *Handler) reply(c *client, f Frame) {
	h.hub.deliver(c, f)
}

func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, c *client, deviceID string) {
	for {
		select {
		case f, ok := <-c.frames:
			if !ok {
				_ = ws.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			if err := writeFrame(ctx, ws, f); err != nil {
				slog.Debug("chat socket write error", "error", err, "device_id", deviceID)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeFrame(ctx context.Context, ws *websocket.Conn, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
