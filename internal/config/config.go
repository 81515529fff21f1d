// Package config defines the kpiboard service configuration and its loader.
//
// Values are layered: defaults from New, then an optional YAML file named by
// KPIBOARD_CONFIG, then KPIBOARD_* environment variables.
package config

import (
	"runtime"
	"time"
)

// Dedupe backends.
const (
	DedupeBackendMemory = "memory"
	DedupeBackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// CRMBaseURL is the root of the CRM REST backend. Empty disables refresh.
	CRMBaseURL string `koanf:"crm_base_url" validate:"omitempty,url"`

	// CRMToken is the bearer token used when no session token is stored.
	CRMToken string `koanf:"crm_token"`

	// CRMTimeoutMS bounds every CRM request.
	CRMTimeoutMS int `koanf:"crm_timeout_ms" validate:"min=1"`

	// FetchConcurrency caps parallel per-person pipeline fetches.
	FetchConcurrency int `koanf:"fetch_concurrency" validate:"min=1,max=256"`

	// RefreshIntervalS schedules periodic refreshes; 0 disables the loop.
	RefreshIntervalS int `koanf:"refresh_interval_s" validate:"min=0"`

	// QueueSize bounds the in-memory snapshot queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// DedupeBackend is memory or redis.
	DedupeBackend string `koanf:"dedupe_backend" validate:"oneof=memory redis"`

	// DedupeSize bounds the in-memory dedupe cache.
	DedupeSize int `koanf:"dedupe_size" validate:"min=1"`

	// DedupeTTLS is the lifetime of a redis dedupe key.
	DedupeTTLS int `koanf:"dedupe_ttl_s" validate:"min=1"`

	RedisAddr     string `koanf:"redis_addr" validate:"required_if=DedupeBackend redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"min=0"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"min=1"`

	// SnapshotIntervalMS controls how often the ranking snapshot is rebuilt.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms" validate:"min=1"`

	// SessionFile stores the session context between runs.
	SessionFile string `koanf:"session_file"`

	// CurrencySymbol and Locale drive money formatting in the team summary.
	CurrencySymbol string `koanf:"currency_symbol"`
	Locale         string `koanf:"locale"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		CRMTimeoutMS:        10_000,
		FetchConcurrency:    8,
		RefreshIntervalS:    300,
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeBackend:       DedupeBackendMemory,
		DedupeSize:          50_000,
		DedupeTTLS:          86_400,
		MaxLeaderboardLimit: 100,
		SnapshotIntervalMS:  500,
		SessionFile:         "kpiboard-session.yaml",
		CurrencySymbol:      "Rp",
		Locale:              "id",
	}
}

// CRMTimeout returns the CRM request timeout.
func (c *Config) CRMTimeout() time.Duration {
	return time.Duration(c.CRMTimeoutMS) * time.Millisecond
}

// RefreshInterval returns the refresh loop period; zero disables the loop.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalS) * time.Second
}

// DedupeTTL returns the redis dedupe key lifetime.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLS) * time.Second
}

// SnapshotInterval returns the ranking snapshot period.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMS) * time.Millisecond
}
