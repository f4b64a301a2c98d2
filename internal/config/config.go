// Package config loads the process configuration from the environment.
//
// The configuration is an immutable snapshot taken at startup: nothing in the
// request or worker path re-reads settings from a shared store.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3010"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Refresh  RefreshConfig
	Classify ClassifyConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"sitedex"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"sitedex"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// AuthConfig holds caller-identity settings. Token issuance belongs to the
// external identity provider; we only verify.
type AuthConfig struct {
	TokenSecret string `env:"AUTH_TOKEN_SECRET" envDefault:""`

	// PublicEmails are addresses whose involvement makes a message row
	// visible to every caller (e.g. a shared office mailbox).
	PublicEmails []string `env:"AUTH_PUBLIC_EMAILS" envSeparator:","`
}

// StorageConfig holds S3-compatible object storage settings for the
// content-addressed store.
type StorageConfig struct {
	Endpoint      string `env:"STORAGE_ENDPOINT" envDefault:""`
	AccessKey     string `env:"STORAGE_ACCESS_KEY" envDefault:""`
	SecretKey     string `env:"STORAGE_SECRET_KEY" envDefault:""`
	Region        string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	BucketContent string `env:"STORAGE_BUCKET_CONTENT" envDefault:"content"`
}

// Enabled returns true if storage is properly configured
func (c *StorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != ""
}

// QueueConfig holds ingestion queue tuning
type QueueConfig struct {
	WorkerID           string        `env:"QUEUE_WORKER_ID" envDefault:""`
	BatchSize          int           `env:"QUEUE_BATCH_SIZE" envDefault:"10"`
	PollInterval       time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
	MaxRetries         int           `env:"QUEUE_MAX_RETRIES" envDefault:"5"`
	StuckThreshold     time.Duration `env:"QUEUE_STUCK_THRESHOLD" envDefault:"30m"`
	CompletedRetention time.Duration `env:"QUEUE_COMPLETED_RETENTION" envDefault:"168h"`
}

// RefreshConfig holds unified index refresh tuning
type RefreshConfig struct {
	// Interval is the default per-segment max age before a refresh is
	// forced even without a dirty flag.
	Interval time.Duration `env:"REFRESH_INTERVAL" envDefault:"15m"`
	// SweepSchedule is the cron schedule for the stale sweep.
	SweepSchedule string `env:"REFRESH_SWEEP_SCHEDULE" envDefault:"0 * * * * *"`
}

// ClassifyConfig holds hierarchical classifier settings
type ClassifyConfig struct {
	// LocationTagPrefix marks tags carrying a location position,
	// e.g. "loc:" in "loc:A-2-214".
	LocationTagPrefix string `env:"CLASSIFY_LOCATION_PREFIX" envDefault:"loc:"`
	// CostGroupPrefixes are tried in declared order; the first prefix that
	// matches a tag wins.
	CostGroupPrefixes []string `env:"CLASSIFY_COSTGROUP_PREFIXES" envSeparator:"," envDefault:"KGR,KG"`
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
