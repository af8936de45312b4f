package config

import "time"

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Backend   BackendConfig   `yaml:"backend"`
	Limits    LimitsConfig    `yaml:"limits"`
	Plans     PlansConfig     `yaml:"plans"`
	Schedules SchedulesConfig `yaml:"schedules"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddress is the host:port to bind.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading the request headers and body.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds the whole response. Must exceed the backend
	// generation timeout or streams get cut off mid-generation.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive connections.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig configures the fast counter store.
type RedisConfig struct {
	// Enabled selects Redis. When false an in-process store is used,
	// which is only correct for single-instance deployments.
	Enabled bool `yaml:"enabled"`

	// Address is the host:port of the Redis server.
	Address string `yaml:"address"`

	// Password is optional.
	Password string `yaml:"password"`

	// DB is the logical database number.
	DB int `yaml:"db"`

	// DialTimeout bounds the initial connection probe.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// DatabaseConfig configures the durable SQLite stores.
type DatabaseConfig struct {
	// LedgerPath is the quota ledger database file.
	LedgerPath string `yaml:"ledger_path"`

	// HistoryPath is the rewrite history database file.
	HistoryPath string `yaml:"history_path"`

	// BusyTimeout is how long SQLite waits for locks.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// BackendConfig configures the generation backend.
type BackendConfig struct {
	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the backend.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier sent with every request.
	Model string `yaml:"model"`

	// Timeout bounds one generation end to end.
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns sizes the HTTP connection pool.
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// LimitsConfig configures the admission ceilings.
type LimitsConfig struct {
	// GlobalDailyCap is the system-wide admissions ceiling per UTC day.
	GlobalDailyCap int64 `yaml:"global_daily_cap"`

	// RatePerMinute is the per-user fixed-window threshold.
	RatePerMinute int `yaml:"rate_per_minute"`
}

// PlansConfig configures plan resolution.
type PlansConfig struct {
	// DefaultPlan applies to users without an assignment ("free" or
	// "pro").
	DefaultPlan string `yaml:"default_plan"`

	// Assignments maps user IDs to plan names.
	Assignments map[string]string `yaml:"assignments"`
}

// SchedulesConfig holds the cron expressions for background jobs.
type SchedulesConfig struct {
	// QuotaReset drives the ledger cycle reset sweep.
	QuotaReset string `yaml:"quota_reset"`

	// HistoryRetention drives the expired-record sweep.
	HistoryRetention string `yaml:"history_retention"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`

	// AddSource includes file:line in every record.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	// Enabled turns collection and the /metrics endpoint on.
	Enabled bool `yaml:"enabled"`

	// Path is the exposition endpoint path.
	Path string `yaml:"path"`
}
