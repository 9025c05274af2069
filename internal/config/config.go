// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Compose   ComposeConfig
	Templates TemplateConfig
	Reports   ReportConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Audit     AuditConfig
	Delivery  DeliveryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m,
	// large workbooks take a while to serialize and send)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds row-source database settings.
//
// Two mutually exclusive modes: URL selects the native PostgreSQL pool,
// Driver+DSN selects a database/sql connection ("mysql" or "postgres").
// Both unset is valid; inline table rows still work without a database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string for the pgx pool
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Driver selects a database/sql driver: "mysql" or "postgres"
	Driver string `env:"DATABASE_DRIVER"`

	// DSN is the database/sql connection string used with Driver
	DSN string `env:"DATABASE_DSN"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// QueryTimeout is the maximum duration for a single row-source query (default: 30s)
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" default:"30s"`
}

// ComposeConfig holds workbook composition settings.
type ComposeConfig struct {
	// MaxSpecSize is the maximum allowed request document size in bytes (default: 10MB)
	MaxSpecSize int64 `env:"COMPOSE_MAX_SPEC_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel compositions (default: 8)
	MaxConcurrent int `env:"COMPOSE_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long to wait for a composition slot (default: 30s)
	MaxWaitTime time.Duration `env:"COMPOSE_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single composition (default: 5m)
	Timeout time.Duration `env:"COMPOSE_TIMEOUT" default:"5m"`

	// MaxBatchSize is the maximum number of workbooks per batch request (default: 20)
	MaxBatchSize int `env:"COMPOSE_MAX_BATCH_SIZE" default:"20"`

	// BatchParallelism is how many batch members compose at once (default: 4)
	BatchParallelism int `env:"COMPOSE_BATCH_PARALLELISM" default:"4"`
}

// TemplateConfig holds template storage settings.
type TemplateConfig struct {
	// Dir is the directory template files are stored in (default: templates)
	Dir string `env:"TEMPLATE_DIR" default:"templates"`

	// MaxFileSize is the maximum allowed template upload size in bytes (default: 20MB)
	MaxFileSize int64 `env:"TEMPLATE_MAX_FILE_SIZE" default:"20971520"`
}

// ReportConfig holds saved report definition settings.
type ReportConfig struct {
	// Dir is the directory report definition YAML files are read from (default: reports)
	Dir string `env:"REPORTS_DIR" default:"reports"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ComposeLimit is requests per minute for composition endpoints (default: 20)
	ComposeLimit int `env:"RATE_LIMIT_COMPOSE" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables API key authentication on all API routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuditConfig holds composition audit trail settings.
// The audit trail requires the PostgreSQL pool; it is skipped when
// DATABASE_URL is unset regardless of Enabled.
type AuditConfig struct {
	// Enabled controls whether compositions are recorded (default: true)
	Enabled bool `env:"AUDIT_ENABLED" default:"true"`

	// RetentionDays is days to keep audit entries before pruning (default: 90)
	RetentionDays int `env:"AUDIT_RETENTION_DAYS" default:"90"`

	// PruneInterval is how often the retention job runs (default: 24h)
	PruneInterval time.Duration `env:"AUDIT_PRUNE_INTERVAL" default:"24h"`
}

// DeliveryConfig holds S3 delivery settings for composed workbooks.
type DeliveryConfig struct {
	// Enabled controls whether composed workbooks are uploaded to S3 (default: false)
	Enabled bool `env:"S3_DELIVERY_ENABLED" default:"false"`

	// Bucket is the destination S3 bucket (required when delivery is enabled)
	Bucket string `env:"S3_BUCKET"`

	// Prefix is the object key prefix (default: workbooks/)
	Prefix string `env:"S3_PREFIX" default:"workbooks/"`

	// Region overrides the AWS SDK's resolved region when set
	Region string `env:"S3_REGION"`
}

// UsesPool reports whether the native PostgreSQL pool should be opened.
func (c *DatabaseConfig) UsesPool() bool {
	return c.URL != ""
}

// UsesSQL reports whether a database/sql connection should be opened.
func (c *DatabaseConfig) UsesSQL() bool {
	return c.URL == "" && c.Driver != "" && c.DSN != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
