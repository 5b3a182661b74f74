// Package config loads cub's per-repository configuration.
//
// Configuration lives at .cub/config.yaml under the repository root with
// sensible defaults for every key, so a missing file is fully functional.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Persisted file locations within the repository and the sync branch tree.
const (
	// Dir is the repo-relative directory holding cub's local files.
	Dir = ".cub"

	// ConfigFile is the repo-relative configuration file path.
	ConfigFile = ".cub/config.yaml"

	// StateFile is the repo-relative local sync bookkeeping path.
	StateFile = ".cub/sync-state.json"

	// IndexFile is the repo-relative sqlite task index path.
	IndexFile = ".cub/index.db"

	// TasksTreePath is the tasks file path within the sync branch tree.
	TasksTreePath = "tasks.jsonl"

	// CountersTreePath is the counters file path within the sync branch tree.
	CountersTreePath = "counters.json"
)

// Config is the per-repository configuration.
type Config struct {
	// Branch is the sync branch name.
	Branch string `mapstructure:"branch" yaml:"branch"`

	// Remote is the git remote used by pull/push.
	Remote string `mapstructure:"remote" yaml:"remote"`

	// TasksFile is the repo-relative path of the local tasks file.
	TasksFile string `mapstructure:"tasks_file" yaml:"tasks_file"`

	// LogFile is the repo-relative path of the rotating log file.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	repoRoot string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Branch:    "cub-sync",
		Remote:    "origin",
		TasksFile: ".cub/tasks.jsonl",
		LogFile:   ".cub/cub.log",
	}
}

// Load reads .cub/config.yaml under repoRoot, falling back to defaults for
// any missing key or a missing file.
func Load(repoRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(repoRoot, ConfigFile))
	v.SetConfigType("yaml")

	defaults := Default()
	v.SetDefault("branch", defaults.Branch)
	v.SetDefault("remote", defaults.Remote)
	v.SetDefault("tasks_file", defaults.TasksFile)
	v.SetDefault("log_file", defaults.LogFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFile, err)
	}
	cfg.repoRoot = repoRoot
	return cfg, nil
}

// Write persists cfg to .cub/config.yaml under repoRoot unless a config
// file already exists.
func Write(repoRoot string, cfg *Config) error {
	path := filepath.Join(repoRoot, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ConfigFile, err)
	}
	return nil
}

// WriteDefault writes the default configuration unless a config file
// already exists.
func WriteDefault(repoRoot string) error {
	return Write(repoRoot, Default())
}

// TasksPath returns the absolute local tasks file path.
func (c *Config) TasksPath() string {
	return filepath.Join(c.repoRoot, c.TasksFile)
}

// StatePath returns the absolute local sync bookkeeping path.
func (c *Config) StatePath() string {
	return filepath.Join(c.repoRoot, StateFile)
}

// IndexPath returns the absolute sqlite task index path.
func (c *Config) IndexPath() string {
	return filepath.Join(c.repoRoot, IndexFile)
}

// LogPath returns the absolute rotating log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.repoRoot, c.LogFile)
}
