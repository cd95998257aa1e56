package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// BestEffortStore adapts a fallible Cache into a total Store. Misses are
// reported as absent, and every other backend failure is logged and
// swallowed: a broken cache must never block fresh data from reaching the
// caller.
type BestEffortStore[K any, V any] struct {
	backend Cache[K, V]
	logger  zerolog.Logger
}

// NewBestEffortStore wraps backend. The name is attached to every log line.
func NewBestEffortStore[K any, V any](backend Cache[K, V], name string, logger zerolog.Logger) *BestEffortStore[K, V] {
	return &BestEffortStore[K, V]{
		backend: backend,
		logger:  logger.With().Str("component", "BestEffortStore").Str("store", name).Logger(),
	}
}

// Get returns the cached value, or false on a miss or a backend failure.
func (s *BestEffortStore[K, V]) Get(ctx context.Context, key K) (V, bool) {
	value, err := s.backend.FetchFromCache(ctx, key)
	if err == nil {
		return value, true
	}

	var zero V
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error().Err(err).Str("key", fmt.Sprintf("%v", key)).Msg("Cache read failed, treating as a miss.")
	}
	return zero, false
}

// Save writes the value, logging and discarding any failure.
func (s *BestEffortStore[K, V]) Save(ctx context.Context, key K, value V) {
	if err := s.backend.WriteToCache(ctx, key, value); err != nil {
		s.logger.Error().Err(err).Str("key", fmt.Sprintf("%v", key)).Msg("Cache write failed, value not cached.")
	}
}

// Close closes the wrapped backend.
func (s *BestEffortStore[K, V]) Close() error {
	return s.backend.Close()
}
