package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig holds configuration for the Firestore client.
type FirestoreConfig struct {
	ProjectID      string
	CollectionName string
}

// firestoreEntry is the document written for every key. The value is kept as
// JSON so slices and scalars round-trip like structs do; Firestore itself
// only accepts maps and structs as document data.
type firestoreEntry struct {
	Payload   []byte    `firestore:"payload"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func encodeFirestoreEntry[V any](value V, now time.Time) (firestoreEntry, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return firestoreEntry{}, err
	}
	return firestoreEntry{Payload: payload, UpdatedAt: now.UTC()}, nil
}

func decodeFirestoreEntry[V any](entry firestoreEntry) (V, error) {
	var value V
	err := json.Unmarshal(entry.Payload, &value)
	return value, err
}

// FirestoreCache is a generic Cache storing one document per key in a
// Firestore collection. It suits low-volume deployments that want cached
// entries to outlive the process without running Redis.
type FirestoreCache[K comparable, V any] struct {
	client         *firestore.Client
	collectionName string
	logger         zerolog.Logger
}

// NewFirestoreCache creates a new generic FirestoreCache.
func NewFirestoreCache[K comparable, V any](
	cfg *FirestoreConfig,
	client *firestore.Client,
	logger zerolog.Logger,
) (*FirestoreCache[K, V], error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	if cfg.CollectionName == "" {
		return nil, errors.New("firestore collection name is required")
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", cfg.CollectionName).Msg("FirestoreCache initialized.")

	return &FirestoreCache[K, V]{
		client:         client,
		collectionName: cfg.CollectionName,
		logger:         logger.With().Str("component", "FirestoreCache").Str("collection", cfg.CollectionName).Logger(),
	}, nil
}

// FetchFromCache retrieves a single document by its key.
func (s *FirestoreCache[K, V]) FetchFromCache(ctx context.Context, key K) (V, error) {
	var zero V
	stringKey := fmt.Sprintf("%v", key)
	docSnap, err := s.client.Collection(s.collectionName).Doc(stringKey).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return zero, fmt.Errorf("document %s: %w", stringKey, ErrNotFound)
		}
		return zero, fmt.Errorf("firestore get for %s: %w", stringKey, err)
	}

	var entry firestoreEntry
	if err := docSnap.DataTo(&entry); err != nil {
		s.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to map Firestore document data.")
		return zero, fmt.Errorf("firestore DataTo for %s: %w", stringKey, err)
	}
	value, err := decodeFirestoreEntry[V](entry)
	if err != nil {
		s.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to unmarshal cached payload.")
		return zero, fmt.Errorf("failed to unmarshal data for %s: %w", stringKey, err)
	}

	s.logger.Debug().Str("key", stringKey).Msg("Successfully fetched data from Firestore.")
	return value, nil
}

// WriteToCache creates or overwrites the document for key.
func (s *FirestoreCache[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	stringKey := fmt.Sprintf("%v", key)
	entry, err := encodeFirestoreEntry(value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal data for %s: %w", stringKey, err)
	}
	if _, err := s.client.Collection(s.collectionName).Doc(stringKey).Set(ctx, entry); err != nil {
		return fmt.Errorf("firestore set for %s: %w", stringKey, err)
	}
	s.logger.Debug().Str("key", stringKey).Msg("Successfully wrote data to Firestore.")
	return nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (s *FirestoreCache[K, V]) Close() error {
	return nil
}
