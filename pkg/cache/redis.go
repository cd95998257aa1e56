package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// CacheTTL of zero keeps entries until they are overwritten.
	CacheTTL time.Duration
}

// ConnectRedis creates a Redis client and pings the server to ensure
// connectivity before returning. The client can be shared by several
// RedisCache instances with different namespaces.
func ConnectRedis(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")
	return rdb, nil
}

// RedisCache is a generic Cache backed by Redis. Values are stored as JSON
// under "<namespace>:<key>".
type RedisCache[K comparable, V any] struct {
	redisClient *redis.Client
	namespace   string
	logger      zerolog.Logger
	ttl         time.Duration
}

// NewRedisCache creates a RedisCache on top of an already connected client.
func NewRedisCache[K comparable, V any](
	client *redis.Client,
	cfg *RedisConfig,
	namespace string,
	logger zerolog.Logger,
) (*RedisCache[K, V], error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if namespace == "" {
		return nil, errors.New("redis cache namespace is required")
	}
	return &RedisCache[K, V]{
		redisClient: client,
		namespace:   namespace,
		logger:      logger.With().Str("component", "RedisCache").Str("namespace", namespace).Logger(),
		ttl:         cfg.CacheTTL,
	}, nil
}

func (c *RedisCache[K, V]) redisKey(key K) string {
	return fmt.Sprintf("%s:%v", c.namespace, key)
}

// FetchFromCache retrieves and unmarshals a value from Redis. A redis.Nil
// reply is a normal miss and is reported as ErrNotFound.
func (c *RedisCache[K, V]) FetchFromCache(ctx context.Context, key K) (V, error) {
	var zero V
	stringKey := c.redisKey(key)
	cachedData, err := c.redisClient.Get(ctx, stringKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, fmt.Errorf("key '%s': %w", stringKey, ErrNotFound)
		}
		return zero, fmt.Errorf("redis get failed for key %s: %w", stringKey, err)
	}

	var value V
	if err := json.Unmarshal([]byte(cachedData), &value); err != nil {
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to unmarshal cached data.")
		return zero, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	c.logger.Debug().Str("key", stringKey).Msg("Redis cache hit.")
	return value, nil
}

// WriteToCache marshals the value to JSON and stores it with the configured TTL.
func (c *RedisCache[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	stringKey := c.redisKey(key)
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal data for key %s: %w", stringKey, err)
	}

	if err := c.redisClient.Set(ctx, stringKey, jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis for key %s: %w", stringKey, err)
	}

	c.logger.Debug().Str("key", stringKey).Msg("Successfully stored data in Redis cache.")
	return nil
}

// Close is a no-op as the Redis client's lifecycle is managed by the caller
// of ConnectRedis.
func (c *RedisCache[K, V]) Close() error {
	return nil
}
