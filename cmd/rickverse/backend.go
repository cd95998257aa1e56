package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/illmade-knight/go-rickverse/pkg/cache"
	"github.com/illmade-knight/go-rickverse/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// persistence owns the client of the configured persistent backend. Every
// namespaced cache built from it shares that client.
type persistence struct {
	kind   string
	cfg    *config.Config
	logger zerolog.Logger

	db        *sql.DB
	redis     *redis.Client
	redisCfg  *cache.RedisConfig
	firestore *firestore.Client
	gcs       *storage.Client
}

func openPersistence(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*persistence, error) {
	p := &persistence{kind: cfg.Backend(), cfg: cfg, logger: logger}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var err error
	switch p.kind {
	case config.BackendSQLite:
		p.db, err = cache.OpenSQLiteDB(cfg.SQLitePath)
	case config.BackendRedis:
		p.redisCfg = &cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			CacheTTL: cfg.RedisTTL,
		}
		p.redis, err = cache.ConnectRedis(ctx, p.redisCfg, logger)
	case config.BackendFirestore:
		p.firestore, err = firestore.NewClient(ctx, cfg.ProjectID, opts...)
	case config.BackendGCS:
		p.gcs, err = storage.NewClient(ctx, opts...)
	case config.BackendNone:
		logger.Warn().Msg("No persistent cache configured; cached data will not survive a restart.")
	default:
		err = fmt.Errorf("unknown persistence backend %q", p.kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s persistence: %w", p.kind, err)
	}
	logger.Info().Str("backend", p.kind).Msg("Persistent cache backend ready.")
	return p, nil
}

// Close releases the backend client.
func (p *persistence) Close() error {
	var errs []error
	if p.db != nil {
		errs = append(errs, p.db.Close())
	}
	if p.redis != nil {
		errs = append(errs, p.redis.Close())
	}
	if p.firestore != nil {
		errs = append(errs, p.firestore.Close())
	}
	if p.gcs != nil {
		errs = append(errs, p.gcs.Close())
	}
	return errors.Join(errs...)
}

// persistentStore builds the best-effort store for one namespace. It returns
// a nil Store when persistence is disabled.
func persistentStore[K comparable, V any](p *persistence, namespace string) (cache.Store[K, V], error) {
	var (
		backend cache.Cache[K, V]
		err     error
	)
	switch p.kind {
	case config.BackendSQLite:
		backend, err = cache.NewSQLiteCache[K, V](p.db, namespace, p.logger)
	case config.BackendRedis:
		backend, err = cache.NewRedisCache[K, V](p.redis, p.redisCfg, namespace, p.logger)
	case config.BackendFirestore:
		backend, err = cache.NewFirestoreCache[K, V](&cache.FirestoreConfig{
			ProjectID:      p.cfg.ProjectID,
			CollectionName: p.cfg.FirestoreCollectionPrefix + "-" + namespace,
		}, p.firestore, p.logger)
	case config.BackendGCS:
		backend, err = cache.NewGCSCache[K, V](cache.NewGCSClientAdapter(p.gcs), cache.GCSCacheConfig{
			BucketName:   p.cfg.GCSBucket,
			ObjectPrefix: path.Join(p.cfg.GCSPrefix, namespace),
		}, p.logger)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache for %s: %w", p.kind, namespace, err)
	}
	return cache.NewBestEffortStore[K, V](backend, namespace, p.logger), nil
}
