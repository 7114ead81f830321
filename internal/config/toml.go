// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Runs  RunsConfig  `toml:"runs"`
	Stats StatsConfig `toml:"stats"`
}

// RunsConfig maps discovery and cohort settings.
type RunsConfig struct {
	Dir          *string `toml:"dir"`
	MinAscension *int    `toml:"min-ascension"`
	MinFloor     *int    `toml:"min-floor"`
	MaxFloor     *int    `toml:"max-floor"`
	Victory      *string `toml:"victory"`
	ExcludeDaily *bool   `toml:"exclude-daily"`
}

// StatsConfig maps curve settings.
type StatsConfig struct {
	Window    *int    `toml:"window"`
	Character *string `toml:"char"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
