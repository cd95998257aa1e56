// Package config loads the rickverse runtime configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/illmade-knight/go-rickverse/pkg/cachepolicy"
	"github.com/rs/zerolog"
)

// Persistence backends.
const (
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendFirestore = "firestore"
	BackendGCS       = "gcs"
	BackendNone      = "none"
)

// Config holds every setting of the binary.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
	HTTPPort  string `env:"HTTP_PORT" envDefault:":8080"`

	APIBaseURL string        `env:"API_BASE_URL" envDefault:"https://rickandmortyapi.com/api"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`

	// DefaultPolicy, when set, overrides the policy of every use case.
	DefaultPolicy string `env:"DEFAULT_POLICY"`

	PersistenceBackend string `env:"PERSISTENCE_BACKEND" envDefault:"sqlite"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"rickverse.db"`

	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	// RedisTTL of 0 keeps entries until overwritten; expiry is opt-in.
	RedisTTL      time.Duration `env:"REDIS_TTL" envDefault:"0"`

	ProjectID       string `env:"PROJECT_ID"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`

	FirestoreCollectionPrefix string `env:"FIRESTORE_COLLECTION_PREFIX" envDefault:"rickverse"`

	GCSBucket string `env:"GCS_BUCKET"`
	GCSPrefix string `env:"GCS_PREFIX" envDefault:"rickverse"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("HTTP_PORT is required"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT must be positive"))
	}
	if _, _, err := c.PolicyOverride(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.PersistenceBackend) {
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case BackendFirestore:
		if c.ProjectID == "" {
			errs = append(errs, errors.New("PROJECT_ID is required for the firestore backend"))
		}
	case BackendGCS:
		if c.ProjectID == "" || c.GCSBucket == "" {
			errs = append(errs, errors.New("PROJECT_ID and GCS_BUCKET are required for the gcs backend"))
		}
	case BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown PERSISTENCE_BACKEND %q", c.PersistenceBackend))
	}
	return errors.Join(errs...)
}

// Backend returns the normalised persistence backend name.
func (c *Config) Backend() string {
	return strings.ToLower(c.PersistenceBackend)
}

// PolicyOverride reports the configured override, if any.
func (c *Config) PolicyOverride() (cachepolicy.Policy, bool, error) {
	if strings.TrimSpace(c.DefaultPolicy) == "" {
		return 0, false, nil
	}
	p, err := cachepolicy.ParsePolicy(c.DefaultPolicy)
	if err != nil {
		return 0, false, fmt.Errorf("invalid DEFAULT_POLICY: %w", err)
	}
	return p, true, nil
}

// NewLogger builds the root logger. Pretty output is meant for local runs.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.LogPretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "rickverse").Logger()
}
