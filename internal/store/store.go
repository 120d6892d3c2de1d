// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by repositories used after Close.
var ErrClosed = errors.New("store: closed")

// Repository is a namespaced string key-value store. Each device (browser or
// terminal client) gets its own namespace, mirroring per-origin local storage.
type Repository interface {
	// Get returns the value for key, and false when the key is absent.
	Get(ctx context.Context, namespace, key string) (string, bool, error)

	// SetMany writes all pairs in a single transaction.
	SetMany(ctx context.Context, namespace string, values map[string]string) error

	// Delete removes the given keys in a single transaction.
	// Deleting absent keys is not an error.
	Delete(ctx context.Context, namespace string, keys ...string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}

// Bucket is a Repository view bound to one namespace.
type Bucket struct {
	repo      Repository
	namespace string
}

// NewBucket returns a view of repo scoped to namespace.
func NewBucket(repo Repository, namespace string) *Bucket {
	return &Bucket{repo: repo, namespace: namespace}
}

// Namespace returns the namespace the bucket is bound to.
func (b *Bucket) Namespace() string {
	return b.namespace
}

// Get returns the value for key.
func (b *Bucket) Get(ctx context.Context, key string) (string, bool, error) {
	return b.repo.Get(ctx, b.namespace, key)
}

// SetMany writes all pairs together.
func (b *Bucket) SetMany(ctx context.Context, values map[string]string) error {
	return b.repo.SetMany(ctx, b.namespace, values)
}

// Delete removes keys together.
func (b *Bucket) Delete(ctx context.Context, keys ...string) error {
	return b.repo.Delete(ctx, b.namespace, keys...)
}
