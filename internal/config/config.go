package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Store backends understood by STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config holds all runtime configuration. Values come from environment
// variables, optionally layered over a TOML file named by
// REQUEST_QUEUE_CONFIG. Every field has a sensible default; DATABASE_URL is
// required only for the postgres backend.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Persistence substrate
	StoreBackend string
	DatabaseURL  string
	DBMaxConns   int32
	DBMinConns   int32
	SQLitePath   string

	// Queue
	QueueKey           string
	QueueCapacity      int
	PersistTimeout     time.Duration
	PersistMinInterval time.Duration

	// External provider
	ProviderBaseURL string
	ProviderTimeout time.Duration

	// Dispatch
	DispatchInterval   time.Duration
	CheckpointInterval time.Duration

	// Rate limiting: maximum requests per second per tag
	RateLimit int

	// Retry backoff durations: index 0 = first retry delay, etc.
	RetryBackoff []time.Duration
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("REQUEST_QUEUE_CONFIG"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPPort:        v.GetString("HTTP_PORT"),
		ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),

		StoreBackend: v.GetString("STORE_BACKEND"),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		DBMaxConns:   v.GetInt32("DB_MAX_CONNS"),
		DBMinConns:   v.GetInt32("DB_MIN_CONNS"),
		SQLitePath:   v.GetString("SQLITE_PATH"),

		QueueKey:           v.GetString("QUEUE_KEY"),
		QueueCapacity:      v.GetInt("QUEUE_CAPACITY"),
		PersistTimeout:     v.GetDuration("PERSIST_TIMEOUT"),
		PersistMinInterval: v.GetDuration("PERSIST_MIN_INTERVAL"),

		ProviderBaseURL: v.GetString("PROVIDER_BASE_URL"),
		ProviderTimeout: v.GetDuration("PROVIDER_TIMEOUT"),

		DispatchInterval:   v.GetDuration("DISPATCH_INTERVAL"),
		CheckpointInterval: v.GetDuration("CHECKPOINT_INTERVAL"),
		RateLimit:          v.GetInt("RATE_LIMIT_PER_TAG"),

		RetryBackoff: []time.Duration{
			v.GetDuration("RETRY_BACKOFF_1"),
			v.GetDuration("RETRY_BACKOFF_2"),
			v.GetDuration("RETRY_BACKOFF_3"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("READ_TIMEOUT", 5*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("STORE_BACKEND", BackendSQLite)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("SQLITE_PATH", "request-queue.db")

	v.SetDefault("QUEUE_KEY", "BNCServerRequestQueue")
	v.SetDefault("QUEUE_CAPACITY", 25)
	v.SetDefault("PERSIST_TIMEOUT", 5*time.Second)
	v.SetDefault("PERSIST_MIN_INTERVAL", 0)

	v.SetDefault("PROVIDER_BASE_URL", "https://webhook.site/your-uuid-here")
	v.SetDefault("PROVIDER_TIMEOUT", 10*time.Second)

	v.SetDefault("DISPATCH_INTERVAL", 250*time.Millisecond)
	v.SetDefault("CHECKPOINT_INTERVAL", 30*time.Second)
	v.SetDefault("RATE_LIMIT_PER_TAG", 10)

	v.SetDefault("RETRY_BACKOFF_1", 1*time.Second)
	v.SetDefault("RETRY_BACKOFF_2", 5*time.Second)
	v.SetDefault("RETRY_BACKOFF_3", 30*time.Second)
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.QueueKey == "" {
		return errors.New("QUEUE_KEY must not be empty")
	}
	if c.DispatchInterval <= 0 || c.CheckpointInterval <= 0 {
		return errors.New("DISPATCH_INTERVAL and CHECKPOINT_INTERVAL must be positive")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_TAG must be positive, got %d", c.RateLimit)
	}
	return nil
}
