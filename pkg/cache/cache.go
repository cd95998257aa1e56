// Package cache provides the volatile and persistent keyed stores consulted
// by the repositories before they fall back to the remote API.
package cache

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is wrapped by Cache implementations when a key is absent.
var ErrNotFound = errors.New("key not found in cache")

// Cache is a generic interface for a fallible caching backend such as Redis,
// Firestore, Cloud Storage or SQLite.
type Cache[K any, V any] interface {
	// FetchFromCache retrieves an item from the cache. A miss returns an
	// error wrapping ErrNotFound.
	FetchFromCache(ctx context.Context, key K) (V, error)
	// WriteToCache adds or replaces an item in the cache.
	WriteToCache(ctx context.Context, key K, value V) error
	io.Closer
}

// Store is the total contract the repositories depend on. Absence is not an
// error, and a failed save is never reported to the caller.
type Store[K any, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Save(ctx context.Context, key K, value V)
}
