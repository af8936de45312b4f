package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_address: ":9090"
backend:
  base_url: "https://api.example.com/v1"
  api_key: "sk-test"
  model: "ember-4-mini"
limits:
  global_daily_cap: 500
  rate_per_minute: 5
plans:
  default_plan: free
  assignments:
    user-vip: pro
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":9090" {
		t.Errorf("listen address = %q, want :9090", cfg.Server.ListenAddress)
	}
	if cfg.Backend.Model != "ember-4-mini" {
		t.Errorf("model = %q, want ember-4-mini", cfg.Backend.Model)
	}
	if cfg.Limits.GlobalDailyCap != 500 {
		t.Errorf("global daily cap = %d, want 500", cfg.Limits.GlobalDailyCap)
	}
	if cfg.Plans.Assignments["user-vip"] != "pro" {
		t.Errorf("assignment = %q, want pro", cfg.Plans.Assignments["user-vip"])
	}

	// Unset fields pick up defaults.
	if cfg.Backend.Timeout != DefaultBackendTimeout {
		t.Errorf("backend timeout = %s, want default %s", cfg.Backend.Timeout, DefaultBackendTimeout)
	}
	if cfg.Schedules.QuotaReset != DefaultQuotaResetSchedule {
		t.Errorf("quota reset schedule = %q, want default", cfg.Schedules.QuotaReset)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"empty backend url":     func(c *Config) { c.Backend.BaseURL = "" },
		"relative backend url":  func(c *Config) { c.Backend.BaseURL = "api.example.com" },
		"empty model":           func(c *Config) { c.Backend.Model = "" },
		"negative daily cap":    func(c *Config) { c.Limits.GlobalDailyCap = -1 },
		"negative rate":         func(c *Config) { c.Limits.RatePerMinute = -1 },
		"unknown plan":          func(c *Config) { c.Plans.DefaultPlan = "enterprise" },
		"unknown assigned plan": func(c *Config) { c.Plans.Assignments = map[string]string{"u": "gold"} },
		"bad cron":              func(c *Config) { c.Schedules.QuotaReset = "every day" },
		"bad log level":         func(c *Config) { c.Logging.Level = "verbose" },
		"bad log format":        func(c *Config) { c.Logging.Format = "xml" },
		"write below backend": func(c *Config) {
			c.Server.WriteTimeout = 10 * time.Second
			c.Backend.Timeout = 30 * time.Second
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Backend.BaseURL = "https://api.example.com/v1"
			cfg.Backend.Model = "ember-4-mini"
			mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsDefaultedConfig(t *testing.T) {
	cfg := Default()
	cfg.Backend.BaseURL = "https://api.example.com/v1"
	cfg.Backend.Model = "ember-4-mini"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FORGE_SERVER_LISTEN_ADDRESS", ":7070")
	t.Setenv("FORGE_BACKEND_API_KEY", "sk-from-env")
	t.Setenv("FORGE_LIMITS_GLOBAL_DAILY_CAP", "42")
	t.Setenv("FORGE_BACKEND_TIMEOUT", "20s")
	t.Setenv("FORGE_REDIS_ENABLED", "true")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":7070" {
		t.Errorf("listen address = %q, want env override :7070", cfg.Server.ListenAddress)
	}
	if cfg.Backend.APIKey != "sk-from-env" {
		t.Errorf("api key = %q, want env override", cfg.Backend.APIKey)
	}
	if cfg.Limits.GlobalDailyCap != 42 {
		t.Errorf("global daily cap = %d, want 42", cfg.Limits.GlobalDailyCap)
	}
	if cfg.Backend.Timeout != 20*time.Second {
		t.Errorf("backend timeout = %s, want 20s", cfg.Backend.Timeout)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis.enabled = false, want env override true")
	}
}

func TestEnvOverrideIgnoresUnparseable(t *testing.T) {
	t.Setenv("FORGE_LIMITS_GLOBAL_DAILY_CAP", "many")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}
	if cfg.Limits.GlobalDailyCap != 500 {
		t.Errorf("global daily cap = %d, want file value 500", cfg.Limits.GlobalDailyCap)
	}
}

func TestValidationErrorListsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Backend.BaseURL = ""
	cfg.Backend.Model = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "backend.base_url") || !strings.Contains(msg, "backend.model") {
		t.Errorf("error should list every problem: %q", msg)
	}
}
