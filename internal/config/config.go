// Package config loads and saves the genbak configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Supported delta algorithms.
const (
	AlgorithmBsdiff = "bsdiff"
	AlgorithmHdiff  = "hdiff"
)

// Config is the contents of ~/.genbak/config.yaml.
type Config struct {
	// BackupDir is the backup root. Empty means "backup" next to the work file.
	BackupDir         string  `yaml:"backup_dir"`
	Algorithm         string  `yaml:"algorithm"`
	Threshold         float64 `yaml:"threshold"`
	BsdiffMaxFileSize int64   `yaml:"bsdiff_max_file_size"`

	Hdiff struct {
		DiffTool  string `yaml:"diff_tool"`
		PatchTool string `yaml:"patch_tool"`
		Compress  string `yaml:"compress"`
	} `yaml:"hdiff"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Schedule struct {
		IntervalMinutes int `yaml:"interval_minutes"`
	} `yaml:"schedule"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{
		Algorithm:         AlgorithmBsdiff,
		Threshold:         0.5,
		BsdiffMaxFileSize: 100 << 20,
	}
	cfg.Hdiff.DiffTool = "hdiffz"
	cfg.Hdiff.PatchTool = "hpatchz"
	cfg.Hdiff.Compress = "zstd"
	cfg.Log.Level = "warn"
	cfg.Log.Format = "text"
	cfg.Schedule.IntervalMinutes = 60
	return cfg
}

// ConfigPath returns ~/.genbak/config.yaml.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".genbak", "config.yaml"), nil
}

// Load reads the config file, falling back to defaults when it is missing.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config file at path. Keys missing from the file keep
// their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to ConfigPath.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the backup core cannot work with.
func (c *Config) Validate() error {
	switch c.Algorithm {
	case AlgorithmBsdiff, AlgorithmHdiff:
	default:
		return fmt.Errorf("unknown algorithm %q (want %s or %s)", c.Algorithm, AlgorithmBsdiff, AlgorithmHdiff)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %v", c.Threshold)
	}
	if c.Schedule.IntervalMinutes < 0 {
		return fmt.Errorf("schedule interval must not be negative, got %d", c.Schedule.IntervalMinutes)
	}
	return nil
}

// RootFor returns the backup root for workFile.
func (c *Config) RootFor(workFile string) string {
	if c.BackupDir != "" {
		return ExpandPath(c.BackupDir)
	}
	return filepath.Join(filepath.Dir(workFile), "backup")
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path // Return unexpanded if home unavailable
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
