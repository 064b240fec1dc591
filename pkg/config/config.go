package config

import "time"

// Config is the root configuration for the triage engine.
type Config struct {
	// Forge configures the forge API client.
	Forge ForgeConfig `yaml:"forge"`

	// Policy configures where policy documents are loaded from.
	Policy PolicyConfig `yaml:"policy"`

	// Server configures the webhook and metrics HTTP server.
	Server ServerConfig `yaml:"server"`

	// Schedule configures periodic full triage runs.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Ledger configures the action ledger backend.
	Ledger LedgerConfig `yaml:"ledger"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ForgeConfig configures the forge API client.
type ForgeConfig struct {
	// BaseURL is the forge API root (e.g. "https://forge.example.com/api/v4").
	BaseURL string `yaml:"base_url"`

	// Token is the access token sent on every request. Prefer setting
	// this through GANYMEDE_FORGE_TOKEN instead of the config file.
	Token string `yaml:"token"`

	// Timeout is the per-request timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// PolicyConfig configures the policy source. Exactly one of Path or
// Git.URL must be set.
type PolicyConfig struct {
	// Path is a policy file or a directory of .yml/.yaml policy files.
	Path string `yaml:"path"`

	// Watch reloads policies when files under Path change.
	Watch bool `yaml:"watch"`

	// Git loads policies from a git repository instead of the local
	// filesystem.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures a git-hosted policy source.
type GitConfig struct {
	// URL is the clone URL of the policy repository.
	URL string `yaml:"url"`

	// Branch is the branch to check out.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the policy file or directory inside the repository.
	// Default: "."
	Path string `yaml:"path"`

	// SyncInterval is how often the repository is pulled.
	// Default: 5m
	SyncInterval time.Duration `yaml:"sync_interval"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address the server binds to.
	// Default: ":8080"
	ListenAddress string `yaml:"listen_address"`

	// WebhookPath is the route webhook events are posted to.
	// Default: "/webhooks"
	WebhookPath string `yaml:"webhook_path"`

	// WebhookSecret is compared against the X-Gitlab-Token header.
	// Events are accepted unauthenticated when empty.
	WebhookSecret string `yaml:"webhook_secret"`

	// ReadTimeout bounds request reads.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds response writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ScheduleConfig configures periodic full triage runs.
type ScheduleConfig struct {
	// Enabled turns the scheduler on.
	Enabled bool `yaml:"enabled"`

	// Cron is the run schedule in cron syntax.
	// Default: "@hourly"
	Cron string `yaml:"cron"`

	// Source is the project or group scanned on each run.
	Source SourceConfig `yaml:"source"`

	// DryRun logs what scheduled runs would do without touching the
	// forge.
	DryRun bool `yaml:"dry_run"`
}

// SourceConfig names a forge project or group.
type SourceConfig struct {
	// Type is "projects" or "groups".
	Type string `yaml:"type"`

	// ID is the numeric project or group id.
	ID int64 `yaml:"id"`
}

// LedgerConfig configures the action ledger.
type LedgerConfig struct {
	// Backend selects the ledger store: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// RetentionDays is how long entries are kept before the scheduler
	// prunes them. Zero disables pruning.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, or error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes source file positions in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled serves metrics on Path.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics route.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
