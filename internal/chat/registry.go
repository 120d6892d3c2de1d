package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

// Factory builds the controller for a device's new conversation.
type Factory func(deviceID string, user domain.User) (*Controller, error)

// EvictCallback is called after the sweeper drops an idle conversation.
type EvictCallback func(deviceID string)

// Registry keeps one live conversation per device.
type Registry struct {
	factory Factory

	mu    sync.RWMutex
	conns map[string]*Controller
}

// NewRegistry returns an empty registry that builds controllers with factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{factory: factory, conns: make(map[string]*Controller)}
}

// Open returns the device's conversation for user, creating a fresh one with
// the greeting when none exists or it belongs to someone else.
func (r *Registry) Open(deviceID string, user domain.User) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conns[deviceID]; ok {
		if c.User().ID == user.ID {
			return c, nil
		}
		c.Close()
	}
	c, err := r.factory(deviceID, user)
	if err != nil {
		return nil, err
	}
	r.conns[deviceID] = c
	return c, nil
}

// Get returns the device's conversation, if one is open.
func (r *Registry) Get(deviceID string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[deviceID]
	return c, ok
}

// Close drops the device's conversation. It is a no-op when none is open.
func (r *Registry) Close(deviceID string) {
	r.mu.Lock()
	c, ok := r.conns[deviceID]
	delete(r.conns, deviceID)
	r.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Len returns the number of open conversations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll drops every conversation and waits for pending replies.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Controller)
	r.mu.Unlock()
	for _, c := range conns {
		c.Close()
		c.Wait()
	}
}

// Sweep drops conversations idle for longer than ttl at now. Conversations
// awaiting a reply are kept. It returns the evicted device IDs.
func (r *Registry) Sweep(ttl time.Duration, now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, c := range r.conns {
		if c.State() == AwaitingResponse {
			continue
		}
		if now.Sub(c.LastActivity()) <= ttl {
			continue
		}
		c.Close()
		delete(r.conns, id)
		evicted = append(evicted, id)
	}
	return evicted
}

// StartSweeper periodically evicts idle conversations until ctx ends.
func (r *Registry) StartSweeper(ctx context.Context, interval, ttl time.Duration, onEvict EvictCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("conversation sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case now := <-ticker.C:
				for _, id := range r.Sweep(ttl, now) {
					slog.Info("evicted idle conversation", "device_id", id)
					if onEvict != nil {
						onEvict(id)
					}
				}
			case <-ctx.Done():
				slog.Info("conversation sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
