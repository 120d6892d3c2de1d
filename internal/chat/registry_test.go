package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

func newTestRegistry(resp Responder) *Registry {
	return NewRegistry(func(_ string, user domain.User) (*Controller, error) {
		return NewController(user, resp)
	})
}

func TestRegistryOpenReusesForSameUser(t *testing.T) {
	reg := newTestRegistry(newGatedResponder())
	t.Cleanup(reg.CloseAll)

	a, err := reg.Open("dev-1", testUser)
	require.NoError(t, err)
	b, err := reg.Open("dev-1", testUser)
	require.NoError(t, err)
	require.Same(t, a, b)

	other := domain.User{ID: "u-2", Email: "bob@example.com", Name: "bob"}
	c, err := reg.Open("dev-1", other)
	require.NoError(t, err)
	require.NotSame(t, a, c)
	require.Equal(t, "Hello bob! I'm your AI assistant. How can I help you today?", c.Snapshot()[0].Content)

	_, err = a.Send(context.Background(), "stale")
	require.ErrorIs(t, err, ErrClosed)
}

func TestRegistryClose(t *testing.T) {
	reg := newTestRegistry(newGatedResponder())
	_, err := reg.Open("dev-1", testUser)
	require.NoError(t, err)

	reg.Close("dev-1")
	reg.Close("dev-1")
	_, ok := reg.Get("dev-1")
	require.False(t, ok)
	require.Zero(t, reg.Len())
}

func TestRegistrySweepKeepsBusyConversations(t *testing.T) {
	resp := newGatedResponder()
	reg := newTestRegistry(resp)
	t.Cleanup(reg.CloseAll)

	_, err := reg.Open("idle", testUser)
	require.NoError(t, err)
	busy, err := reg.Open("busy", testUser)
	require.NoError(t, err)
	turn, err := busy.Send(context.Background(), "hello")
	require.NoError(t, err)
	<-resp.calls

	evicted := reg.Sweep(time.Minute, time.Now().Add(time.Hour))
	require.Equal(t, []string{"idle"}, evicted)
	_, ok := reg.Get("busy")
	require.True(t, ok)

	resp.release <- nil
	<-turn.Done()
}

func TestRegistrySweepKeepsRecent(t *testing.T) {
	reg := newTestRegistry(newGatedResponder())
	t.Cleanup(reg.CloseAll)
	_, err := reg.Open("dev-1", testUser)
	require.NoError(t, err)
	require.Empty(t, reg.Sweep(time.Hour, time.Now()))
	require.Equal(t, 1, reg.Len())
}

func TestStartSweeperStopsWithContext(t *testing.T) {
	reg := newTestRegistry(newGatedResponder())
	_, err := reg.Open("dev-1", testUser)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	evicted := make(chan string, 1)
	reg.StartSweeper(ctx, 5*time.Millisecond, 0, func(id string) { evicted <- id })

	select {
	case id := <-evicted:
		require.Equal(t, "dev-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not evict idle conversation")
	}
	cancel()
}
