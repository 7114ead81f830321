// Package config provides XDG and Steam path helpers.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "spirecurve"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultDBPath returns the default path for the SQLite run archive.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, "runs.db")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}

// DefaultRunsDir returns the run history directory of a default Steam install.
func DefaultRunsDir() string {
	return runsDirFor(runtime.GOOS, userHome())
}

func runsDirFor(goos, home string) string {
	switch goos {
	case "windows":
		return filepath.Join("C:\\", "Program Files (x86)", "Steam", "steamapps", "common", "SlayTheSpire", "runs")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Steam", "steamapps", "common",
			"SlayTheSpire", "SlayTheSpire.app", "Contents", "Resources", "runs")
	default:
		return filepath.Join(home, ".local", "share", "Steam", "steamapps", "common", "SlayTheSpire", "runs")
	}
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}
