// Package config loads and validates mdplaned's static configuration.
//
// Dynamic configuration (workspaces, api keys, webhooks) lives in the
// relational store and is managed through the REST API; this package only
// covers what the process needs before it can start serving traffic.
package config

import (
	"time"
)

// Config is the top-level mdplaned configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (MDPLANE_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout bounds how long the server waits for in-flight
	// requests to drain during graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the control-plane relational store (workspaces,
	// users, api keys, capability keys, webhooks, audit log, export jobs).
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// KV configures the badger-backed hot-path store (files, folders,
	// appends, claims, heartbeats).
	KV KVConfig `mapstructure:"kv" yaml:"kv"`

	// Content configures where file content bytes are persisted.
	Content ContentConfig `mapstructure:"content" yaml:"content"`

	// HTTP configures the public API server.
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Auth configures OAuth session signing and API key behavior.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// RateLimit configures the per-credential/per-IP token buckets.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Quota configures per-workspace storage quota defaults.
	Quota QuotaConfig `mapstructure:"quota" yaml:"quota"`

	// Webhooks configures outbound webhook delivery and SSRF policy.
	Webhooks WebhookConfig `mapstructure:"webhooks" yaml:"webhooks"`

	// Orchestration configures claim lease defaults and sweep intervals.
	Orchestration OrchestrationConfig `mapstructure:"orchestration" yaml:"orchestration"`

	// Admin contains the shared secret guarding /admin endpoints.
	Admin AdminConfig `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: debug, info, warn, error (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	// Driver selects the SQL dialect: "sqlite" or "postgres".
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres" yaml:"driver"`

	// DSN is the driver-specific connection string. For sqlite this is a
	// file path (or ":memory:"); for postgres a libpq connection string.
	DSN string `mapstructure:"dsn" validate:"required" yaml:"dsn"`

	// MaxOpenConns bounds the connection pool size.
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns"`

	// MaxIdleConns bounds idle pooled connections.
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// KVConfig configures the badger hot-path store.
type KVConfig struct {
	// Path is the directory badger uses for its LSM tree and value log.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// InMemory runs badger without touching disk, for tests.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// GCIntervalSeconds is how often badger's value log GC runs.
	GCIntervalSeconds int `mapstructure:"gc_interval_seconds" yaml:"gc_interval_seconds"`
}

// ContentConfig selects the file content backend.
type ContentConfig struct {
	// Backend is "inline" (content lives alongside metadata in badger) or
	// "s3" (content is offloaded to an S3-compatible bucket).
	Backend string `mapstructure:"backend" validate:"required,oneof=inline s3" yaml:"backend"`

	S3 S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config configures the optional S3 content backend.
type S3Config struct {
	Bucket         string `mapstructure:"bucket" yaml:"bucket"`
	Region         string `mapstructure:"region" yaml:"region"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`
	Prefix         string `mapstructure:"prefix" yaml:"prefix,omitempty"`
}

// HTTPConfig configures the public API server.
type HTTPConfig struct {
	// Address is the host:port to bind, e.g. ":8080".
	Address string `mapstructure:"address" validate:"required" yaml:"address"`

	// PublicBaseURL is used to build capability URLs and webhook callback
	// references returned to clients.
	PublicBaseURL string `mapstructure:"public_base_url" validate:"required,url" yaml:"public_base_url"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// AuthConfig configures OAuth session tokens and API key hashing.
type AuthConfig struct {
	// JWTSigningKey signs OAuth session tokens (HS256).
	JWTSigningKey string `mapstructure:"jwt_signing_key" validate:"required" yaml:"jwt_signing_key"`

	// SessionTTL bounds the lifetime of an OAuth session token.
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
}

// RateLimitConfig configures token-bucket rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// QuotaConfig configures per-workspace storage limits.
type QuotaConfig struct {
	DefaultBytes int64 `mapstructure:"default_bytes" yaml:"default_bytes"`
}

// WebhookConfig configures outbound webhook delivery.
type WebhookConfig struct {
	MaxPerWorkspace  int           `mapstructure:"max_per_workspace" yaml:"max_per_workspace"`
	DeliveryTimeout  time.Duration `mapstructure:"delivery_timeout" yaml:"delivery_timeout"`
	AllowPrivateNets bool          `mapstructure:"allow_private_nets" yaml:"allow_private_nets"`
}

// OrchestrationConfig configures claim lease defaults.
type OrchestrationConfig struct {
	DefaultClaimTTL time.Duration `mapstructure:"default_claim_ttl" yaml:"default_claim_ttl"`
	MaxClaimTTL     time.Duration `mapstructure:"max_claim_ttl" yaml:"max_claim_ttl"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// StaleAfter is how long an agent may go without a heartbeat before
	// the liveness view reports it stale (§4.11).
	StaleAfter time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
}

// AdminConfig guards the /admin endpoints.
type AdminConfig struct {
	Secret string `mapstructure:"secret" yaml:"secret"`
}
