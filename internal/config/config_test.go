package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such-file.toml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Storage.DataDir)
	assert.Equal(t, "cadenza.db", cfg.Storage.DatabaseFile)
	assert.Equal(t, 32, cfg.Audio.AnalyzerBins)
	assert.Equal(t, 333, cfg.Audio.UpdateIntervalMS)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[storage]
data_dir = "/var/lib/cadenza"
database_file = "library.db"

[audio]
analyzer_bins = 64
update_interval_ms = 100
use_mock_media = true

[log]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/cadenza", cfg.Storage.DataDir)
	assert.Equal(t, "library.db", cfg.Storage.DatabaseFile)
	assert.Equal(t, 64, cfg.Audio.AnalyzerBins)
	assert.Equal(t, 100, cfg.Audio.UpdateIntervalMS)
	assert.True(t, cfg.Audio.UseMockMedia)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 32, cfg.Audio.AnalyzerBins)
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("storage = {"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDatabasePath(t *testing.T) {
	cfg := Config{Storage: StorageConfig{DataDir: "/data", DatabaseFile: "cadenza.db"}}
	assert.Equal(t, filepath.Join("/data", "cadenza.db"), cfg.DatabasePath())
}
