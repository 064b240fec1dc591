package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

const minimalConfig = `
forge:
  base_url: https://forge.example.com/api/v4
  token: glpat-test
policy:
  path: policies/
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Forge.Timeout != DefaultForgeTimeout {
		t.Errorf("Forge.Timeout = %v, want %v", cfg.Forge.Timeout, DefaultForgeTimeout)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("Server.ListenAddress = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Ledger.Backend != DefaultLedgerBackend {
		t.Errorf("Ledger.Backend = %q, want %q", cfg.Ledger.Backend, DefaultLedgerBackend)
	}
	if cfg.Ledger.RetentionDays != DefaultLedgerRetentionDays {
		t.Errorf("Ledger.RetentionDays = %d, want %d", cfg.Ledger.RetentionDays, DefaultLedgerRetentionDays)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Telemetry.Metrics.Enabled should default to true")
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("Telemetry.Logging.Level = %q, want info", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigExplicitFalseSurvivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
telemetry:
  metrics:
    enabled: false
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("explicit metrics.enabled: false was overridden by defaults")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
forge:
  base_url: https://forge.example.com/api/v4
  token: glpat-test
  timeout: 5s
policy:
  path: triage.yml
  watch: true
server:
  listen_address: ":9090"
  webhook_secret: hunter2
schedule:
  enabled: true
  cron: "*/10 * * * *"
  source:
    type: groups
    id: 42
  dry_run: true
ledger:
  backend: memory
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Forge.Timeout != 5*time.Second {
		t.Errorf("Forge.Timeout = %v, want 5s", cfg.Forge.Timeout)
	}
	if !cfg.Policy.Watch {
		t.Error("Policy.Watch not set")
	}
	if cfg.Server.ListenAddress != ":9090" {
		t.Errorf("Server.ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Schedule.Source.Type != "groups" || cfg.Schedule.Source.ID != 42 {
		t.Errorf("Schedule.Source = %+v", cfg.Schedule.Source)
	}
	if !cfg.Schedule.DryRun {
		t.Error("Schedule.DryRun not set")
	}
	if cfg.Ledger.Backend != "memory" {
		t.Errorf("Ledger.Backend = %q", cfg.Ledger.Backend)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "forge: [unclosed")); err == nil {
		t.Error("invalid YAML should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GANYMEDE_FORGE_TOKEN", "glpat-from-env")
	t.Setenv("GANYMEDE_FORGE_TIMEOUT", "90s")
	t.Setenv("GANYMEDE_SERVER_LISTEN_ADDRESS", ":7777")
	t.Setenv("GANYMEDE_POLICY_WATCH", "true")
	t.Setenv("GANYMEDE_LEDGER_RETENTION_DAYS", "7")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Forge.Token != "glpat-from-env" {
		t.Errorf("Forge.Token = %q, want env value", cfg.Forge.Token)
	}
	if cfg.Forge.Timeout != 90*time.Second {
		t.Errorf("Forge.Timeout = %v, want 90s", cfg.Forge.Timeout)
	}
	if cfg.Server.ListenAddress != ":7777" {
		t.Errorf("Server.ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if !cfg.Policy.Watch {
		t.Error("Policy.Watch env override not applied")
	}
	if cfg.Ledger.RetentionDays != 7 {
		t.Errorf("Ledger.RetentionDays = %d, want 7", cfg.Ledger.RetentionDays)
	}
}

func TestEnvOverrideParseErrors(t *testing.T) {
	t.Setenv("GANYMEDE_FORGE_TIMEOUT", "not-a-duration")

	if _, err := LoadConfigWithEnvOverrides(writeConfig(t, minimalConfig)); err == nil {
		t.Error("invalid duration override should fail")
	}
}

func TestEnvOverridesRevalidate(t *testing.T) {
	t.Setenv("GANYMEDE_LEDGER_BACKEND", "postgres")

	if _, err := LoadConfigWithEnvOverrides(writeConfig(t, minimalConfig)); err == nil {
		t.Error("override to an unknown backend should fail validation")
	}
}
