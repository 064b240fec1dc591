package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML config file, applies defaults, and validates
// the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads the config file and then applies
// GANYMEDE_* environment variable overrides, re-validating afterwards.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides config fields from environment variables.
// Each variable maps to one field, GANYMEDE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("GANYMEDE_FORGE_BASE_URL"); v != "" {
		cfg.Forge.BaseURL = v
	}
	if v := os.Getenv("GANYMEDE_FORGE_TOKEN"); v != "" {
		cfg.Forge.Token = v
	}
	if v := os.Getenv("GANYMEDE_FORGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GANYMEDE_FORGE_TIMEOUT: %w", err)
		}
		cfg.Forge.Timeout = d
	}

	if v := os.Getenv("GANYMEDE_POLICY_PATH"); v != "" {
		cfg.Policy.Path = v
	}
	if v := os.Getenv("GANYMEDE_POLICY_WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GANYMEDE_POLICY_WATCH: %w", err)
		}
		cfg.Policy.Watch = b
	}
	if v := os.Getenv("GANYMEDE_POLICY_GIT_URL"); v != "" {
		cfg.Policy.Git.URL = v
	}
	if v := os.Getenv("GANYMEDE_POLICY_GIT_BRANCH"); v != "" {
		cfg.Policy.Git.Branch = v
	}

	if v := os.Getenv("GANYMEDE_SERVER_LISTEN_ADDRESS"); v != "" {
		cfg.Server.ListenAddress = v
	}
	if v := os.Getenv("GANYMEDE_SERVER_WEBHOOK_SECRET"); v != "" {
		cfg.Server.WebhookSecret = v
	}

	if v := os.Getenv("GANYMEDE_SCHEDULE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GANYMEDE_SCHEDULE_ENABLED: %w", err)
		}
		cfg.Schedule.Enabled = b
	}
	if v := os.Getenv("GANYMEDE_SCHEDULE_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("GANYMEDE_SCHEDULE_SOURCE_TYPE"); v != "" {
		cfg.Schedule.Source.Type = v
	}
	if v := os.Getenv("GANYMEDE_SCHEDULE_SOURCE_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GANYMEDE_SCHEDULE_SOURCE_ID: %w", err)
		}
		cfg.Schedule.Source.ID = id
	}
	if v := os.Getenv("GANYMEDE_SCHEDULE_DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GANYMEDE_SCHEDULE_DRY_RUN: %w", err)
		}
		cfg.Schedule.DryRun = b
	}

	if v := os.Getenv("GANYMEDE_LEDGER_BACKEND"); v != "" {
		cfg.Ledger.Backend = v
	}
	if v := os.Getenv("GANYMEDE_LEDGER_PATH"); v != "" {
		cfg.Ledger.Path = v
	}
	if v := os.Getenv("GANYMEDE_LEDGER_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GANYMEDE_LEDGER_RETENTION_DAYS: %w", err)
		}
		cfg.Ledger.RetentionDays = n
	}

	if v := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL"); v != "" {
		cfg.Telemetry.Logging.Level = v
	}
	if v := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_FORMAT"); v != "" {
		cfg.Telemetry.Logging.Format = v
	}
	if v := os.Getenv("GANYMEDE_TELEMETRY_METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GANYMEDE_TELEMETRY_METRICS_ENABLED: %w", err)
		}
		cfg.Telemetry.Metrics.Enabled = b
	}

	return nil
}
