package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome           = "ADDRSYNC_HOME"
	EnvNodeURL        = "ADDRSYNC_NODE_URL"
	EnvOutputFormat   = "ADDRSYNC_OUTPUT_FORMAT"
	EnvVerbose        = "ADDRSYNC_VERBOSE"
	EnvLogLevel       = "ADDRSYNC_LOG_LEVEL"
	EnvStorageBackend = "ADDRSYNC_STORAGE_BACKEND"
	EnvBatchSize      = "ADDRSYNC_BATCH_SIZE"
	EnvMnemonic       = "ADDRSYNC_MNEMONIC"
	EnvPassphrase     = "ADDRSYNC_PASSPHRASE"
	EnvNoColor        = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
// The mnemonic and passphrase variables are read by the CLI directly and
// never stored here.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvNodeURL); v != "" {
		cfg.Node.URL = SanitizeURL(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvStorageBackend); v != "" {
		cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvBatchSize); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Sync.BatchSize = n
		}
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a node URL of whitespace and copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
