package config

import "time"

// DefaultNodeURL is the node endpoint used when none is configured.
const DefaultNodeURL = "http://localhost:14265"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.addrsync",
		Node: NodeConfig{
			URL:           DefaultNodeURL,
			APIVersion:    "1",
			Timeout:       30 * time.Second,
			RateLimit:     10,
			RateBurst:     5,
			MaxBatchSize:  500,
			MaxConcurrent: 4,
			RetryAttempts: 3,
		},
		Sync: SyncConfig{
			BatchSize: 10,
			Security:  2,
			CoinType:  0,
			Account:   0,
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.addrsync/addrsync.log",
		},
	}
}
