package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for consistency. It is called after
// defaults and environment overrides are applied, so zero values here
// are genuine errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.ListenAddress == "" {
		errs = append(errs, "server.listen_address cannot be empty")
	}
	if cfg.Server.WriteTimeout <= cfg.Backend.Timeout {
		errs = append(errs, fmt.Sprintf(
			"server.write_timeout (%s) must exceed backend.timeout (%s) or streams get cut off",
			cfg.Server.WriteTimeout, cfg.Backend.Timeout))
	}

	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		errs = append(errs, "redis.address cannot be empty when redis is enabled")
	}
	if cfg.Redis.DB < 0 {
		errs = append(errs, "redis.db cannot be negative")
	}

	if cfg.Database.LedgerPath == "" {
		errs = append(errs, "database.ledger_path cannot be empty")
	}
	if cfg.Database.HistoryPath == "" {
		errs = append(errs, "database.history_path cannot be empty")
	}

	if cfg.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url cannot be empty")
	} else if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("backend.base_url %q is not an absolute URL", cfg.Backend.BaseURL))
	}
	if cfg.Backend.Model == "" {
		errs = append(errs, "backend.model cannot be empty")
	}
	if cfg.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}

	if cfg.Limits.GlobalDailyCap <= 0 {
		errs = append(errs, "limits.global_daily_cap must be positive")
	}
	if cfg.Limits.RatePerMinute <= 0 {
		errs = append(errs, "limits.rate_per_minute must be positive")
	}

	if err := validatePlanName(cfg.Plans.DefaultPlan); err != nil {
		errs = append(errs, fmt.Sprintf("plans.default_plan: %v", err))
	}
	for userID, plan := range cfg.Plans.Assignments {
		if err := validatePlanName(plan); err != nil {
			errs = append(errs, fmt.Sprintf("plans.assignments[%s]: %v", userID, err))
		}
	}

	if _, err := cron.ParseStandard(cfg.Schedules.QuotaReset); err != nil {
		errs = append(errs, fmt.Sprintf("schedules.quota_reset %q: %v", cfg.Schedules.QuotaReset, err))
	}
	if _, err := cron.ParseStandard(cfg.Schedules.HistoryRetention); err != nil {
		errs = append(errs, fmt.Sprintf("schedules.history_retention %q: %v", cfg.Schedules.HistoryRetention, err))
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q is not one of json, text", cfg.Logging.Format))
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, fmt.Sprintf("metrics.path %q must start with /", cfg.Metrics.Path))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validatePlanName(plan string) error {
	switch plan {
	case "free", "pro":
		return nil
	}
	return fmt.Errorf("plan %q is not one of free, pro", plan)
}
