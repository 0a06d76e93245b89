// Package rconfig provides front-end configuration loading for reups (spec
// §6 "Front-end configuration file"). It is plumbing for cmd/reups to
// assemble the core's Request/Input structs; the core itself never reads it.
package rconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the reups front-end preference file.
type Config struct {
	// Stacks is the ordered list of stack roots to open, earliest first.
	Stacks []string `yaml:"stacks"`
	// TagPreference is the ordered tag-preference list applied to unpinned
	// products, e.g. ["current", "stable", "newest"].
	TagPreference []string `yaml:"tag_preference"`
	// UserTagDir is the base directory for per-stack user tag overrides.
	UserTagDir string `yaml:"user_tag_dir"`
	// CacheDir is the directory rcache writes binary stack snapshots to.
	CacheDir string `yaml:"cache_dir"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Stacks:        nil,
		TagPreference: []string{"current", "newest"},
		UserTagDir:    filepath.Join(home, ".local", "share", "reups", "tags"),
		CacheDir:      filepath.Join(home, ".cache", "reups"),
		LogLevel:      "info",
	}
}

// Load reads a YAML config file at path, merging it onto Default(). A
// missing file is not an error: it yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("rconfig: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("rconfig: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for required fields and logical
// consistency.
func (c *Config) Validate() error {
	if len(c.Stacks) == 0 {
		return fmt.Errorf("stacks: at least one stack root is required")
	}
	for i, s := range c.Stacks {
		if s == "" {
			return fmt.Errorf("stacks[%d]: must not be empty", i)
		}
	}
	if len(c.TagPreference) == 0 {
		return fmt.Errorf("tag_preference: at least one tag is required")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir: must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}

// Save writes config to path as YAML, creating parent directories as needed.
func Save(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("rconfig: mkdir %s: %w", filepath.Dir(path), err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("rconfig: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("rconfig: write %s: %w", path, err)
	}
	return nil
}

// DefaultPath returns the conventional config file location,
// $HOME/.config/reups/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "reups", "config.yaml")
}
