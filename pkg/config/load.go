package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults,
// and validates the result. Environment variables are not consulted;
// use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides of the form FORGE_SECTION_FIELD
// (e.g. FORGE_BACKEND_API_KEY). Overrides always win over the file.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies FORGE_* environment variables to cfg.
// Unparseable values are ignored in favor of the file value.
func applyEnvOverrides(cfg *Config) {
	setString("FORGE_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("FORGE_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("FORGE_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("FORGE_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("FORGE_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setBool("FORGE_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("FORGE_REDIS_ADDRESS", &cfg.Redis.Address)
	setString("FORGE_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("FORGE_REDIS_DB", &cfg.Redis.DB)
	setDuration("FORGE_REDIS_DIAL_TIMEOUT", &cfg.Redis.DialTimeout)

	setString("FORGE_DATABASE_LEDGER_PATH", &cfg.Database.LedgerPath)
	setString("FORGE_DATABASE_HISTORY_PATH", &cfg.Database.HistoryPath)
	setDuration("FORGE_DATABASE_BUSY_TIMEOUT", &cfg.Database.BusyTimeout)

	setString("FORGE_BACKEND_BASE_URL", &cfg.Backend.BaseURL)
	setString("FORGE_BACKEND_API_KEY", &cfg.Backend.APIKey)
	setString("FORGE_BACKEND_MODEL", &cfg.Backend.Model)
	setDuration("FORGE_BACKEND_TIMEOUT", &cfg.Backend.Timeout)
	setInt("FORGE_BACKEND_MAX_IDLE_CONNS", &cfg.Backend.MaxIdleConns)

	setInt64("FORGE_LIMITS_GLOBAL_DAILY_CAP", &cfg.Limits.GlobalDailyCap)
	setInt("FORGE_LIMITS_RATE_PER_MINUTE", &cfg.Limits.RatePerMinute)

	setString("FORGE_PLANS_DEFAULT_PLAN", &cfg.Plans.DefaultPlan)

	setString("FORGE_SCHEDULES_QUOTA_RESET", &cfg.Schedules.QuotaReset)
	setString("FORGE_SCHEDULES_HISTORY_RETENTION", &cfg.Schedules.HistoryRetention)

	setString("FORGE_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("FORGE_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("FORGE_LOGGING_ADD_SOURCE", &cfg.Logging.AddSource)

	setBool("FORGE_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setString("FORGE_METRICS_PATH", &cfg.Metrics.Path)
}

func setString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func setBool(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setInt64(name string, dst *int64) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func setDuration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
