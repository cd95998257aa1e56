package cache

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore is a generic, thread-safe, in-memory store used as the
// volatile cache. Entries live until the process exits: there is no TTL and
// no eviction, and every Save overwrites the previous value.
// It satisfies both the Store and the Cache interfaces.
type InMemoryStore[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// NewInMemoryStore creates a new, empty in-memory store.
func NewInMemoryStore[K comparable, V any]() *InMemoryStore[K, V] {
	return &InMemoryStore[K, V]{
		data: make(map[K]V),
	}
}

// Get retrieves an item from the store.
func (c *InMemoryStore[K, V]) Get(_ context.Context, key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.data[key]
	return value, ok
}

// Save adds or replaces an item in the store.
func (c *InMemoryStore[K, V]) Save(_ context.Context, key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Len reports the number of stored entries.
func (c *InMemoryStore[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// FetchFromCache retrieves an item from the store.
func (c *InMemoryStore[K, V]) FetchFromCache(ctx context.Context, key K) (V, error) {
	value, ok := c.Get(ctx, key)
	if !ok {
		return value, fmt.Errorf("key '%v': %w", key, ErrNotFound)
	}
	return value, nil
}

// WriteToCache adds an item to the store.
func (c *InMemoryStore[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	c.Save(ctx, key, value)
	return nil
}

// Close is a no-op for the in-memory store.
func (c *InMemoryStore[K, V]) Close() error {
	return nil
}
