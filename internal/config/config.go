// Package config loads and saves the ghswitch configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// defaultClientID is the ghswitch OAuth app used for device authorization.
const defaultClientID = "Ov23liJGhswitchDev01"

type RotationConfig struct {
	Strategy      string  `toml:"strategy" json:"strategy"`
	DailyLimit    int     `toml:"daily_limit" json:"daily_limit"`
	WarnThreshold float64 `toml:"warn_threshold" json:"warn_threshold"`
}

type OAuthConfig struct {
	ClientID string `toml:"client_id" json:"client_id"`
}

type NetworkConfig struct {
	// WatchedDomains is the provider allow-list the interceptor observes.
	// Empty means the built-in GitHub domains.
	WatchedDomains []string `toml:"watched_domains" json:"watched_domains"`
	ProbeTimeout   float64  `toml:"probe_timeout" json:"probe_timeout"`
	HTTPTimeout    float64  `toml:"http_timeout" json:"http_timeout"`
}

type Config struct {
	Rotation RotationConfig `toml:"rotation" json:"rotation"`
	OAuth    OAuthConfig    `toml:"oauth" json:"oauth"`
	Network  NetworkConfig  `toml:"network" json:"network"`
}

func DefaultConfig() Config {
	return Config{
		Rotation: RotationConfig{
			Strategy:      "round-robin",
			DailyLimit:    1000,
			WarnThreshold: 0.8,
		},
		OAuth: OAuthConfig{
			ClientID: defaultClientID,
		},
		Network: NetworkConfig{
			ProbeTimeout: 5.0,
			HTTPTimeout:  30.0,
		},
	}
}

func (c Config) clone() Config {
	out := c
	if c.Network.WatchedDomains != nil {
		out.Network.WatchedDomains = make([]string, len(c.Network.WatchedDomains))
		copy(out.Network.WatchedDomains, c.Network.WatchedDomains)
	}
	return out
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Get returns the process-wide config, loading it on first use.
func Get() Config {
	configMu.RLock()
	if c := globalConfig; c != nil {
		configMu.RUnlock()
		return c.clone()
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()
	if globalConfig != nil {
		return globalConfig.clone()
	}
	c, _ := Load("")
	globalConfig = &c
	return c.clone()
}

// Reload re-reads the config file, replacing the cached copy.
func Reload() (Config, error) {
	configMu.Lock()
	defer configMu.Unlock()
	c, err := Load("")
	globalConfig = &c
	return c.clone(), err
}

// Init loads the config so malformed files surface an error at startup.
func Init() (Config, error) {
	return Reload()
}

// Load reads the config at path, falling back to ConfigFile(). A missing
// file yields defaults; a malformed file yields defaults plus an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = ConfigFile()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return applyEnvOverrides(cfg), nil
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return applyEnvOverrides(DefaultConfig()), fmt.Errorf("parsing config %s: %w", path, err)
	}

	return applyEnvOverrides(cfg), nil
}

// Save writes the config to path, falling back to ConfigFile().
func Save(cfg Config, path string) error {
	if path == "" {
		path = ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv("GHSWITCH_STRATEGY"); v != "" {
		cfg.Rotation.Strategy = strings.TrimSpace(v)
	}
	if v := os.Getenv("GHSWITCH_DAILY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Rotation.DailyLimit = n
		}
	}
	if v := os.Getenv("GHSWITCH_CLIENT_ID"); v != "" {
		cfg.OAuth.ClientID = strings.TrimSpace(v)
	}
	return cfg
}
