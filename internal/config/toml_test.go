package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Runs.Dir)
	assert.Nil(t, cfg.Stats.Window)
}

func TestLoadConfigDecodesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[runs]
dir = "/games/sts/runs"
max-floor = 56
victory = "floorEqualsMax"
exclude-daily = false

[stats]
window = 25
char = "defect"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Runs.Dir)
	assert.Equal(t, "/games/sts/runs", *cfg.Runs.Dir)
	require.NotNil(t, cfg.Runs.MaxFloor)
	assert.Equal(t, 56, *cfg.Runs.MaxFloor)
	require.NotNil(t, cfg.Runs.Victory)
	assert.Equal(t, "floorEqualsMax", *cfg.Runs.Victory)
	require.NotNil(t, cfg.Runs.ExcludeDaily)
	assert.False(t, *cfg.Runs.ExcludeDaily)
	assert.Nil(t, cfg.Runs.MinAscension)
	require.NotNil(t, cfg.Stats.Window)
	assert.Equal(t, 25, *cfg.Stats.Window)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[runs]\nfloor = 3\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runs.floor")
}

func TestLoadConfigEmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	require.Error(t, err)
}

func TestRunsDirFor(t *testing.T) {
	assert.Equal(t,
		filepath.Join("/home/u", ".local", "share", "Steam", "steamapps", "common", "SlayTheSpire", "runs"),
		runsDirFor("linux", "/home/u"))
	assert.Contains(t, runsDirFor("darwin", "/Users/u"), "SlayTheSpire.app")
}
