package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Forge.BaseURL = "https://forge.example.com/api/v4"
	cfg.Forge.Token = "glpat-test"
	cfg.Policy.Path = "policies/"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Forge.BaseURL = "" },
			wantErr: "forge.base_url",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Forge.Token = "" },
			wantErr: "forge.token",
		},
		{
			name:    "no policy source",
			mutate:  func(c *Config) { c.Policy.Path = "" },
			wantErr: "policy.path or policy.git.url",
		},
		{
			name: "both policy sources",
			mutate: func(c *Config) {
				c.Policy.Git.URL = "https://forge.example.com/ops/policies.git"
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "watch without path",
			mutate: func(c *Config) {
				c.Policy.Path = ""
				c.Policy.Git.URL = "https://forge.example.com/ops/policies.git"
				c.Policy.Watch = true
			},
			wantErr: "policy.watch",
		},
		{
			name: "schedule without source",
			mutate: func(c *Config) {
				c.Schedule.Enabled = true
				c.Schedule.Source.Type = "projects"
			},
			wantErr: "schedule.source.id",
		},
		{
			name: "schedule bad source type",
			mutate: func(c *Config) {
				c.Schedule.Enabled = true
				c.Schedule.Source.Type = "repositories"
				c.Schedule.Source.ID = 1
			},
			wantErr: "schedule.source.type",
		},
		{
			name:    "unknown ledger backend",
			mutate:  func(c *Config) { c.Ledger.Backend = "redis" },
			wantErr: "ledger.backend",
		},
		{
			name:    "negative retention",
			mutate:  func(c *Config) { c.Ledger.RetentionDays = -1 },
			wantErr: "retention_days",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Telemetry.Logging.Level = "loud" },
			wantErr: "logging.level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestScheduleDisabledSkipsSourceChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Schedule.Enabled = false
	cfg.Schedule.Source = SourceConfig{}

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}
