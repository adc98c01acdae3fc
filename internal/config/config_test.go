package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"end before start", func(c *Config) { c.Scenario.DateStart = "2025-07-01" }, true},
		{"unparseable start", func(c *Config) { c.Scenario.DateStart = "June 1st" }, true},
		{"inverted office hours", func(c *Config) { c.Scenario.OfficeHours = HourWindow{Start: 17, End: 9} }, true},
		{"office hours past midnight", func(c *Config) { c.Scenario.OfficeHours.End = 25 }, true},
		{"probability out of range", func(c *Config) { c.Scenario.SuspiciousPF = 1.5 }, true},
		{"missing anomaly principal", func(c *Config) { c.Scenario.Anomaly.Principal = "" }, true},
		{"anomaly day outside window", func(c *Config) { c.Scenario.Anomaly.Day = "2025-07-18" }, true},
		{"bad escalation base", func(c *Config) { c.Scenario.Anomaly.EscalationBase = "noon" }, true},
		{"empty first names", func(c *Config) { c.Pools.FirstNames = nil }, true},
		{"empty failure pool", func(c *Config) { c.Pools.Failures = nil }, true},
		{"missing default ip", func(c *Config) { c.Network.DefaultIP = "" }, true},
		{"zero fabricate attempts", func(c *Config) { c.Identity.MaxFabAttempts = 0 }, true},
		{"storage enabled without hosts", func(c *Config) { c.Storage.Enabled = true; c.Storage.Hosts = nil }, true},
		{"kafka enabled without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, true},
		{"archive enabled without bucket", func(c *Config) { c.Archive.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tenantsim.yaml")

	data := []byte(`
scenario:
  date_start: "2025-03-01"
  date_end: "2025-03-10"
  seed: 42
  anomaly:
    day: "2025-03-05"
identity:
  domain: fabrikam.com
output:
  dir: /tmp/fixtures
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scenario.DateStart != "2025-03-01" {
		t.Errorf("DateStart = %s, want 2025-03-01", cfg.Scenario.DateStart)
	}
	if cfg.Scenario.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Scenario.Seed)
	}
	if cfg.Identity.Domain != "fabrikam.com" {
		t.Errorf("Domain = %s, want fabrikam.com", cfg.Identity.Domain)
	}
	// Untouched sections keep their defaults.
	if len(cfg.Pools.FirstNames) != 40 {
		t.Errorf("FirstNames pool = %d entries, want 40", len(cfg.Pools.FirstNames))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scenario.DateStart != "2025-06-01" {
		t.Errorf("DateStart = %s, want default", cfg.Scenario.DateStart)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TENANTSIM_SEED", "99")
	t.Setenv("TENANTSIM_OUTPUT_DIR", "/srv/fixtures")
	t.Setenv("TENANTSIM_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scenario.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.Scenario.Seed)
	}
	if cfg.Output.Dir != "/srv/fixtures" {
		t.Errorf("Output.Dir = %s, want /srv/fixtures", cfg.Output.Dir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}
