package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
)

// GCSCacheConfig holds configuration specific to the GCS cache.
type GCSCacheConfig struct {
	BucketName   string
	ObjectPrefix string
}

// GCSCache is a generic Cache storing each value as a JSON object named
// "<prefix>/<key>.json" in a Cloud Storage bucket.
type GCSCache[K comparable, V any] struct {
	client GCSClient
	config GCSCacheConfig
	logger zerolog.Logger
}

// NewGCSCache creates a new cache configured for Google Cloud Storage.
func NewGCSCache[K comparable, V any](
	gcsClient GCSClient,
	config GCSCacheConfig,
	logger zerolog.Logger,
) (*GCSCache[K, V], error) {
	if gcsClient == nil {
		return nil, errors.New("GCS client cannot be nil")
	}
	if config.BucketName == "" {
		return nil, errors.New("GCS bucket name is required")
	}
	return &GCSCache[K, V]{
		client: gcsClient,
		config: config,
		logger: logger.With().Str("component", "GCSCache").Str("bucket", config.BucketName).Logger(),
	}, nil
}

func (c *GCSCache[K, V]) objectName(key K) string {
	return path.Join(c.config.ObjectPrefix, fmt.Sprintf("%v.json", key))
}

// FetchFromCache downloads and decodes the object for key.
func (c *GCSCache[K, V]) FetchFromCache(ctx context.Context, key K) (V, error) {
	var zero V
	objectName := c.objectName(key)

	reader, err := c.client.Bucket(c.config.BucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return zero, fmt.Errorf("object %s: %w", objectName, ErrNotFound)
		}
		return zero, fmt.Errorf("gcs read for %s: %w", objectName, err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return zero, fmt.Errorf("gcs read for %s: %w", objectName, err)
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Error().Err(err).Str("object_name", objectName).Msg("Failed to unmarshal cached object.")
		return zero, fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return value, nil
}

// WriteToCache encodes the value and uploads it, replacing any existing object.
func (c *GCSCache[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	objectName := c.objectName(key)
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal data for %s: %w", objectName, err)
	}

	// Cancelling the writer's context before Close abandons the upload.
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := c.client.Bucket(c.config.BucketName).Object(objectName).NewWriter(writeCtx)
	if _, err := writer.Write(data); err != nil {
		cancel()
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS object %s: %w", objectName, err)
	}
	// The upload is only committed once Close returns successfully.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", objectName, err)
	}

	c.logger.Debug().Str("object_name", objectName).Msg("Successfully stored data in GCS cache.")
	return nil
}

// Close is a no-op as the storage client's lifecycle is managed externally.
func (c *GCSCache[K, V]) Close() error {
	return nil
}
