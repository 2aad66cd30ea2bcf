// Package config provides configuration management for addrsync.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/addrsync/internal/fileutil"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version int           `yaml:"version"`
	Home    string        `yaml:"home"`
	Node    NodeConfig    `yaml:"node"`
	Sync    SyncConfig    `yaml:"sync"`
	Storage StorageConfig `yaml:"storage"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// NodeConfig defines how the ledger node is reached.
type NodeConfig struct {
	URL           string        `yaml:"url"`
	APIVersion    string        `yaml:"api_version"`
	Timeout       time.Duration `yaml:"timeout"`
	RateLimit     float64       `yaml:"rate_limit"`
	RateBurst     int           `yaml:"rate_burst"`
	MaxBatchSize  int           `yaml:"max_batch_size"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	RetryAttempts int           `yaml:"retry_attempts"`
}

// SyncConfig defines discovery and derivation settings.
type SyncConfig struct {
	BatchSize int    `yaml:"batch_size"`
	Security  int    `yaml:"security"`
	CoinType  uint32 `yaml:"coin_type"`
	Account   uint32 `yaml:"account"`
}

// StorageConfig selects the ledger persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// Load reads configuration from the specified file on top of the defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, syncerr.WithDetails(syncerr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, syncerr.WithCause(
			syncerr.WithDetails(syncerr.ErrConfigInvalid, map[string]string{"path": path}), err)
	}
	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

// Validate rejects settings the node client and engine cannot run with.
func (c *Config) Validate() error {
	invalid := map[string]string{}
	positive := map[string]int{
		"node.max_batch_size": c.Node.MaxBatchSize,
		"node.max_concurrent": c.Node.MaxConcurrent,
		"node.retry_attempts": c.Node.RetryAttempts,
		"sync.batch_size":     c.Sync.BatchSize,
		"sync.security":       c.Sync.Security,
	}
	for key, v := range positive {
		if v <= 0 {
			invalid[key] = strconv.Itoa(v)
		}
	}
	if c.Node.URL == "" {
		invalid["node.url"] = "empty"
	}
	if c.Node.Timeout <= 0 {
		invalid["node.timeout"] = c.Node.Timeout.String()
	}
	if c.Node.RateLimit < 0 {
		invalid["node.rate_limit"] = strconv.FormatFloat(c.Node.RateLimit, 'f', -1, 64)
	}
	switch c.Storage.Backend {
	case "file", "bolt":
	default:
		invalid["storage.backend"] = c.Storage.Backend
	}

	if len(invalid) > 0 {
		return syncerr.WithDetails(syncerr.ErrConfigInvalid, invalid)
	}
	return nil
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the addrsync home directory path with "~" expanded.
func (c *Config) GetHome() string {
	home, err := expandHome(c.Home)
	if err != nil {
		return c.Home
	}
	return home
}

// StorageDir returns the directory holding account data.
func (c *Config) StorageDir() string {
	if c.Storage.Path != "" {
		if p, err := expandHome(c.Storage.Path); err == nil {
			return p
		}
		return c.Storage.Path
	}
	return c.GetHome()
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// String renders the configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return strings.TrimRight(string(data), "\n")
}

// DefaultHome returns the default addrsync home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".addrsync"
	}
	return filepath.Join(home, ".addrsync")
}
