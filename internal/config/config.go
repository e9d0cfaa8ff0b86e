// Package config loads Cadenza runtime configuration from TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds Cadenza runtime configuration loaded from TOML.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Audio   AudioConfig   `toml:"audio"`
	Log     LogConfig     `toml:"log"`
}

// StorageConfig holds catalog and asset storage settings.
type StorageConfig struct {
	// DataDir is the root directory for all durable state
	DataDir string `toml:"data_dir"`

	// DatabaseFile is the catalog database file name inside DataDir
	DatabaseFile string `toml:"database_file"`
}

// AudioConfig holds playback engine settings.
type AudioConfig struct {
	// AnalyzerBins is the number of spectrum bins per snapshot
	AnalyzerBins int `toml:"analyzer_bins"`

	// UpdateIntervalMS is the progress publishing interval in milliseconds
	UpdateIntervalMS int `toml:"update_interval_ms"`

	// UseMockMedia swaps the platform media backend for the mock one
	UseMockMedia bool `toml:"use_mock_media"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// DatabasePath returns the full path of the catalog database file.
func (c Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.DatabaseFile)
}

// Load reads configuration from disk. If path is empty, a default OS-specific
// location is used. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfgPath := path
	if cfgPath == "" {
		var err error
		cfgPath, err = defaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	var cfg Config
	data, err := os.ReadFile(cfgPath)
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func defaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cadenza", "config.toml"), nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.Storage.DataDir = filepath.Join(dir, "cadenza")
		} else {
			cfg.Storage.DataDir = "."
		}
	}
	if cfg.Storage.DatabaseFile == "" {
		cfg.Storage.DatabaseFile = "cadenza.db"
	}
	if cfg.Audio.AnalyzerBins == 0 {
		cfg.Audio.AnalyzerBins = 32
	}
	if cfg.Audio.UpdateIntervalMS == 0 {
		cfg.Audio.UpdateIntervalMS = 333
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
