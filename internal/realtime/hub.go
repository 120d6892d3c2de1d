// Package realtime pushes conversation events to browsers over websockets.
package realtime

import (
	"log/slog"
	"net/url"
	"sync"

	"github.com/ashureev/chatbot-ai/internal/chat"
	"github.com/ashureev/chatbot-ai/internal/domain"
)

const clientBuffer = 64

// Frame is one server-to-client websocket message.
type Frame struct {
	Type     string           `json:"type"`
	Message  *domain.Message  `json:"message,omitempty"`
	Messages []domain.Message `json:"messages,omitempty"`
	Notice   *domain.Notice   `json:"notice,omitempty"`
	State    string           `json:"state,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
}

// client is one open socket. frames is closed by the hub when the client is
// dropped.
type client struct {
	deviceID string
	frames   chan Frame
}

// Hub fans conversation events out to every socket open for a device.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]struct{})}
}

func (h *Hub) register(deviceID string) *client {
	c := &client{deviceID: deviceID, frames: make(chan Frame, clientBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[deviceID]; !ok {
		h.clients[deviceID] = make(map[*client]struct{})
	}
	h.clients[deviceID][c] = struct{}{}
	slog.Info("chat socket registered", "device_id", deviceID)
	return c
}

func (h *Hub) unregister(deviceID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(deviceID, c)
}

func (h *Hub) removeLocked(deviceID string, c *client) {
	set, ok := h.clients[deviceID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.frames)
	if len(set) == 0 {
		delete(h.clients, deviceID)
	}
	slog.Info("chat socket unregistered", "device_id", deviceID)
}

// Broadcast queues f for every socket of deviceID. Sockets whose buffer is
// full are dropped.
func (h *Hub) Broadcast(deviceID string, f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[deviceID] {
		select {
		case c.frames <- f:
		default:
			slog.Warn("dropping slow chat socket", "device_id", deviceID)
			h.removeLocked(deviceID, c)
		}
	}
}

// deliver queues f for c alone. Frames for dropped clients or full buffers
// are discarded.
func (h *Hub) deliver(c *client, f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.deviceID][c]; !ok {
		return
	}
	select {
	case c.frames <- f:
	default:
	}
}

// Disconnect drops every socket of deviceID, e.g. on logout.
func (h *Hub) Disconnect(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[deviceID] {
		h.removeLocked(deviceID, c)
	}
}

// Connections returns the number of open sockets for deviceID.
func (h *Hub) Connections(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[deviceID])
}

// ListenerFor returns a chat.Listener broadcasting to deviceID's sockets.
func (h *Hub) ListenerFor(deviceID string) chat.Listener {
	return chat.ListenerFunc(func(e chat.Event) {
		h.Broadcast(deviceID, Frame{Type: string(e.Type), Message: e.Message, Notice: e.Notice})
	})
}

// OriginPatterns converts allowed CORS origins into websocket host patterns.
func OriginPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
