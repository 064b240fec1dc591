package config

import "time"

// Default values applied by DefaultConfig and ApplyDefaults.
const (
	DefaultForgeTimeout = 30 * time.Second

	DefaultGitBranch       = "main"
	DefaultGitPath         = "."
	DefaultGitSyncInterval = 5 * time.Minute

	DefaultListenAddress   = ":8080"
	DefaultWebhookPath     = "/webhooks"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultScheduleCron = "@hourly"

	DefaultLedgerBackend       = "sqlite"
	DefaultLedgerPath          = "data/ledger.db"
	DefaultLedgerRetentionDays = 90

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"
)

// DefaultConfig returns a config with every default applied, including
// booleans that default to true. LoadConfig unmarshals the file over
// this so an explicit "enabled: false" is not mistaken for an unset
// field.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Forge.Timeout == 0 {
		cfg.Forge.Timeout = DefaultForgeTimeout
	}

	if cfg.Policy.Git.Branch == "" {
		cfg.Policy.Git.Branch = DefaultGitBranch
	}
	if cfg.Policy.Git.Path == "" {
		cfg.Policy.Git.Path = DefaultGitPath
	}
	if cfg.Policy.Git.SyncInterval == 0 {
		cfg.Policy.Git.SyncInterval = DefaultGitSyncInterval
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.WebhookPath == "" {
		cfg.Server.WebhookPath = DefaultWebhookPath
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = DefaultScheduleCron
	}

	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = DefaultLedgerRetentionDays
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
