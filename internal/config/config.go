// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/nontawat9304/mali-chat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config is the complete device configuration.
type Config struct {
	// BaseURL is the local backend that owns memory, files, and
	// training data. All requests go here, even when a remote
	// inference endpoint is configured.
	BaseURL string `toml:"base_url"`

	// MuteAudio disables assistant voice playback by default.
	MuteAudio bool `toml:"mute_audio"`

	// LogDir is where rotated logs and telemetry files are written
	// (empty = ~/.malichat/logs).
	LogDir string `toml:"log_dir"`

	// HistoryFile is the REPL input history location
	// (empty = ~/.malichat/input_history).
	HistoryFile string `toml:"history_file"`

	// SettingsDB is the device-scoped settings database holding the
	// remote inference endpoint (empty = ~/.malichat/settings.db).
	SettingsDB string `toml:"settings_db"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		BaseURL:   "http://localhost:8000",
		MuteAudio: false,
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the mali-chat configuration directory (~/.malichat),
// creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".malichat")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Path returns the config file location (~/.malichat/config.toml).
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, falling back to defaults when it is
// missing. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to its default location atomically.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the config as TOML to an explicit path.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// OVERRIDES / VALIDATION
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
// MALICHAT_BASE_URL and MALICHAT_MUTE_AUDIO take precedence over the
// file so a device can be repointed without editing it.
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("MALICHAT_BASE_URL"); base != "" {
		c.BaseURL = base
	}
	if mute := os.Getenv("MALICHAT_MUTE_AUDIO"); mute != "" {
		if v, err := strconv.ParseBool(mute); err == nil {
			c.MuteAudio = v
		}
	}
	if dir := os.Getenv("MALICHAT_LOG_DIR"); dir != "" {
		c.LogDir = dir
	}
}

// SetDefaults fills in derived defaults for any empty path fields.
func (c *Config) SetDefaults() {
	dir, err := Dir()
	if err != nil {
		return
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(dir, "logs")
	}
	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(dir, "input_history")
	}
	if c.SettingsDB == "" {
		c.SettingsDB = filepath.Join(dir, "settings.db")
	}
}

// Validate rejects configurations the client cannot operate with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL)
	}
	return nil
}
