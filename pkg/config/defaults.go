package config

import "time"

// Default values applied to any field left zero in the YAML file.
const (
	DefaultListenAddress   = ":8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultRedisAddress = "localhost:6379"
	DefaultDialTimeout  = 5 * time.Second

	DefaultLedgerPath  = "forge-ledger.db"
	DefaultHistoryPath = "forge-history.db"
	DefaultBusyTimeout = 5 * time.Second

	DefaultBackendTimeout = 30 * time.Second
	DefaultMaxIdleConns   = 10

	DefaultGlobalDailyCap = int64(1000)
	DefaultRatePerMinute  = 3

	// Both sweeps are idempotent; hourly keeps drift small without
	// meaningful load.
	DefaultQuotaResetSchedule       = "0 * * * *"
	DefaultHistoryRetentionSchedule = "30 3 * * *"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"

	DefaultPlanName = "free"
)

// ApplyDefaults fills every zero-valued field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Redis.Address == "" {
		cfg.Redis.Address = DefaultRedisAddress
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultDialTimeout
	}

	if cfg.Database.LedgerPath == "" {
		cfg.Database.LedgerPath = DefaultLedgerPath
	}
	if cfg.Database.HistoryPath == "" {
		cfg.Database.HistoryPath = DefaultHistoryPath
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = DefaultBusyTimeout
	}

	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = DefaultBackendTimeout
	}
	if cfg.Backend.MaxIdleConns == 0 {
		cfg.Backend.MaxIdleConns = DefaultMaxIdleConns
	}

	if cfg.Limits.GlobalDailyCap == 0 {
		cfg.Limits.GlobalDailyCap = DefaultGlobalDailyCap
	}
	if cfg.Limits.RatePerMinute == 0 {
		cfg.Limits.RatePerMinute = DefaultRatePerMinute
	}

	if cfg.Plans.DefaultPlan == "" {
		cfg.Plans.DefaultPlan = DefaultPlanName
	}

	if cfg.Schedules.QuotaReset == "" {
		cfg.Schedules.QuotaReset = DefaultQuotaResetSchedule
	}
	if cfg.Schedules.HistoryRetention == "" {
		cfg.Schedules.HistoryRetention = DefaultHistoryRetentionSchedule
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
