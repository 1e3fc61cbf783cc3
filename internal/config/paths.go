package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "ghswitch"

// ConfigDir returns the ghswitch config directory, honoring the
// GHSWITCH_CONFIG_DIR override used by tests.
func ConfigDir() string {
	if v := os.Getenv("GHSWITCH_CONFIG_DIR"); v != "" {
		return v
	}
	return filepath.Join(xdg.ConfigHome, appName)
}

// DataDir returns the directory holding the credential vault.
func DataDir() string {
	if v := os.Getenv("GHSWITCH_DATA_DIR"); v != "" {
		return v
	}
	return filepath.Join(xdg.DataHome, appName)
}

func ConfigFile() string { return filepath.Join(ConfigDir(), "config.toml") }
func VaultDir() string   { return filepath.Join(DataDir(), "vault") }
