package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    namespace  TEXT    NOT NULL,
    cache_key  TEXT    NOT NULL,
    payload    BLOB    NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (namespace, cache_key)
)`

// OpenSQLiteDB opens (creating if needed) the on-device cache database and
// applies its schema. The pool is limited to one connection so writes from
// concurrent fetches are serialized.
func OpenSQLiteDB(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}

// SQLiteCache is a generic Cache persisting JSON-encoded values in a shared
// SQLite table, isolated by namespace.
type SQLiteCache[K comparable, V any] struct {
	db        *sql.DB
	namespace string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSQLiteCache creates a cache over a database returned by OpenSQLiteDB.
func NewSQLiteCache[K comparable, V any](db *sql.DB, namespace string, logger zerolog.Logger) (*SQLiteCache[K, V], error) {
	if db == nil {
		return nil, errors.New("sqlite db cannot be nil")
	}
	if namespace == "" {
		return nil, errors.New("sqlite cache namespace is required")
	}
	return &SQLiteCache[K, V]{
		db:        db,
		namespace: namespace,
		logger:    logger.With().Str("component", "SQLiteCache").Str("namespace", namespace).Logger(),
		now:       time.Now,
	}, nil
}

// FetchFromCache loads and decodes the value stored for key.
func (c *SQLiteCache[K, V]) FetchFromCache(ctx context.Context, key K) (V, error) {
	var zero V
	stringKey := fmt.Sprintf("%v", key)

	var payload []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM cache_entries WHERE namespace = ? AND cache_key = ?`,
		c.namespace, stringKey,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, fmt.Errorf("key '%s': %w", stringKey, ErrNotFound)
		}
		return zero, fmt.Errorf("sqlite get for %s: %w", stringKey, err)
	}

	var value V
	if err := json.Unmarshal(payload, &value); err != nil {
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to unmarshal cached data.")
		return zero, fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return value, nil
}

// WriteToCache upserts the value stored for key.
func (c *SQLiteCache[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	stringKey := fmt.Sprintf("%v", key)
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal data for key %s: %w", stringKey, err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (namespace, cache_key, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, cache_key) DO UPDATE SET
		    payload = excluded.payload,
		    updated_at = excluded.updated_at`,
		c.namespace, stringKey, payload, c.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite upsert for %s: %w", stringKey, err)
	}
	c.logger.Debug().Str("key", stringKey).Msg("Successfully stored data in SQLite cache.")
	return nil
}

// Close is a no-op; the shared *sql.DB is closed by whoever opened it.
func (c *SQLiteCache[K, V]) Close() error {
	return nil
}
