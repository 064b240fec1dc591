package config

import "fmt"

// Validate checks the configuration for structural errors. It does not
// touch the network.
func Validate(cfg *Config) error {
	if cfg.Forge.BaseURL == "" {
		return fmt.Errorf("config: forge.base_url is required")
	}
	if cfg.Forge.Token == "" {
		return fmt.Errorf("config: forge.token is required")
	}
	if cfg.Forge.Timeout <= 0 {
		return fmt.Errorf("config: forge.timeout must be positive")
	}

	if cfg.Policy.Path == "" && cfg.Policy.Git.URL == "" {
		return fmt.Errorf("config: one of policy.path or policy.git.url is required")
	}
	if cfg.Policy.Path != "" && cfg.Policy.Git.URL != "" {
		return fmt.Errorf("config: policy.path and policy.git.url are mutually exclusive")
	}
	if cfg.Policy.Watch && cfg.Policy.Path == "" {
		return fmt.Errorf("config: policy.watch requires policy.path")
	}

	if cfg.Schedule.Enabled {
		if cfg.Schedule.Cron == "" {
			return fmt.Errorf("config: schedule.cron is required when the schedule is enabled")
		}
		switch cfg.Schedule.Source.Type {
		case "projects", "groups":
		default:
			return fmt.Errorf("config: schedule.source.type must be %q or %q, got %q",
				"projects", "groups", cfg.Schedule.Source.Type)
		}
		if cfg.Schedule.Source.ID <= 0 {
			return fmt.Errorf("config: schedule.source.id is required when the schedule is enabled")
		}
	}

	switch cfg.Ledger.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("config: ledger.backend must be %q or %q, got %q",
			"sqlite", "memory", cfg.Ledger.Backend)
	}
	if cfg.Ledger.Backend == "sqlite" && cfg.Ledger.Path == "" {
		return fmt.Errorf("config: ledger.path is required for the sqlite backend")
	}
	if cfg.Ledger.RetentionDays < 0 {
		return fmt.Errorf("config: ledger.retention_days cannot be negative")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown telemetry.logging.level %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown telemetry.logging.format %q", cfg.Telemetry.Logging.Format)
	}

	return nil
}
