package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName names the XDG subdirectories used by nbsecrets.
const AppName = "nbsecrets"

// ConfigDir returns the XDG-compliant config directory
// Typically ~/.config/nbsecrets/ on Linux
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigPath returns the full path to the config file
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json5")
}

// CacheDir returns the XDG-compliant cache directory
// Typically ~/.cache/nbsecrets/ on Linux (OAuth access token cache)
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}
