package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	mem, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })
	return map[string]Repository{
		"sqlite-file":   newTestSQLite(t),
		"sqlite-memory": mem,
		"memory":        NewMemory(),
	}
}

func TestRepository_SetManyThenGet(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.SetMany(ctx, "dev-1", map[string]string{"a": "1", "b": "2"}))

			v, ok, err := repo.Get(ctx, "dev-1", "a")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "1", v)

			_, ok, err = repo.Get(ctx, "dev-2", "a")
			require.NoError(t, err)
			assert.False(t, ok, "namespaces must not leak into each other")
		})
	}
}

func TestRepository_UpsertOverwrites(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.SetMany(ctx, "ns", map[string]string{"k": "old"}))
			require.NoError(t, repo.SetMany(ctx, "ns", map[string]string{"k": "new"}))

			v, ok, err := repo.Get(ctx, "ns", "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "new", v)
		})
	}
}

func TestRepository_DeleteIsIdempotent(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.SetMany(ctx, "ns", map[string]string{"x": "1", "y": "2", "z": "3"}))
			require.NoError(t, repo.Delete(ctx, "ns", "x", "y"))
			require.NoError(t, repo.Delete(ctx, "ns", "x", "y"))

			_, ok, err := repo.Get(ctx, "ns", "x")
			require.NoError(t, err)
			assert.False(t, ok)

			v, ok, err := repo.Get(ctx, "ns", "z")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "3", v)
		})
	}
}

func TestRepository_ClosedReturnsErrors(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Close())
			_, _, err := repo.Get(context.Background(), "ns", "k")
			require.Error(t, err)
			require.Error(t, repo.Ping(context.Background()))
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SetMany(ctx, "local", map[string]string{"auth.token": "t"}))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	v, ok, err := s.Get(ctx, "local", "auth.token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "t", v)
}

func TestBucket_ScopesToNamespace(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	a := NewBucket(repo, "a")
	b := NewBucket(repo, "b")

	require.NoError(t, a.SetMany(ctx, map[string]string{"k": "from-a"}))
	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-a", v)
	assert.Equal(t, "a", a.Namespace())

	require.NoError(t, a.Delete(ctx, "k"))
	_, ok, err = a.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
