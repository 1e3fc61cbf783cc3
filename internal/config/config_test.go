package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Rotation.Strategy != "round-robin" {
		t.Errorf("strategy = %q, want round-robin", cfg.Rotation.Strategy)
	}
	if cfg.Rotation.DailyLimit != 1000 {
		t.Errorf("daily_limit = %d, want 1000", cfg.Rotation.DailyLimit)
	}
	if cfg.Rotation.WarnThreshold != 0.8 {
		t.Errorf("warn_threshold = %v, want 0.8", cfg.Rotation.WarnThreshold)
	}
	if cfg.OAuth.ClientID == "" {
		t.Error("client_id empty")
	}
	if cfg.Network.ProbeTimeout != 5.0 || cfg.Network.HTTPTimeout != 30.0 {
		t.Errorf("network timeouts = %+v", cfg.Network)
	}
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, applyEnvOverrides(DefaultConfig())) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_MalformedFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("rotation = {{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Error("Load on malformed file returned nil error")
	}
	if cfg.Rotation.DailyLimit != 1000 {
		t.Errorf("daily_limit = %d, want default 1000", cfg.Rotation.DailyLimit)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	want := DefaultConfig()
	want.Rotation.Strategy = "least-used"
	want.Rotation.DailyLimit = 250
	want.Network.WatchedDomains = []string{"api.github.com"}

	if err := Save(want, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Rotation.Strategy != "least-used" || got.Rotation.DailyLimit != 250 {
		t.Errorf("rotation = %+v", got.Rotation)
	}
	if len(got.Network.WatchedDomains) != 1 || got.Network.WatchedDomains[0] != "api.github.com" {
		t.Errorf("watched_domains = %v", got.Network.WatchedDomains)
	}
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[rotation]\nstrategy = \"manual\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Rotation.Strategy != "manual" {
		t.Errorf("strategy = %q, want manual", got.Rotation.Strategy)
	}
	if got.Rotation.DailyLimit != 1000 {
		t.Errorf("daily_limit = %d, want default 1000", got.Rotation.DailyLimit)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GHSWITCH_STRATEGY", "least-used")
	t.Setenv("GHSWITCH_DAILY_LIMIT", "123")
	t.Setenv("GHSWITCH_CLIENT_ID", "Ov23liOverride")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rotation.Strategy != "least-used" {
		t.Errorf("strategy = %q, want least-used", cfg.Rotation.Strategy)
	}
	if cfg.Rotation.DailyLimit != 123 {
		t.Errorf("daily_limit = %d, want 123", cfg.Rotation.DailyLimit)
	}
	if cfg.OAuth.ClientID != "Ov23liOverride" {
		t.Errorf("client_id = %q", cfg.OAuth.ClientID)
	}
}

func TestEnvOverrides_BadLimitIgnored(t *testing.T) {
	t.Setenv("GHSWITCH_DAILY_LIMIT", "not-a-number")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rotation.DailyLimit != 1000 {
		t.Errorf("daily_limit = %d, want default 1000", cfg.Rotation.DailyLimit)
	}
}

func TestPaths_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GHSWITCH_CONFIG_DIR", dir)
	t.Setenv("GHSWITCH_DATA_DIR", dir)

	if got := ConfigFile(); filepath.Dir(got) != dir {
		t.Errorf("ConfigFile dir = %s, want %s", filepath.Dir(got), dir)
	}
	if got := VaultDir(); filepath.Dir(got) != dir {
		t.Errorf("VaultDir parent = %s, want %s", filepath.Dir(got), dir)
	}
}
