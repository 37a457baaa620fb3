// Package config loads rustguide's process configuration.
package config

import (
	"os"
	"path/filepath"
)

// Config is the complete process configuration.
type Config struct {
	// RustSrcPath is the standard library source directory
	// (.../lib/rustlib/src/rust/library). Empty means discover it.
	RustSrcPath string       `mapstructure:"rust_src_path"`
	CargoHome   string       `mapstructure:"cargo_home"`
	LogLevel    string       `mapstructure:"log_level"`
	Cache       CacheConfig  `mapstructure:"cache"`
	Output      OutputConfig `mapstructure:"output"`
}

// CacheConfig controls the file cache.
type CacheConfig struct {
	CapacityBytes int  `mapstructure:"capacity_bytes"`
	Watch         bool `mapstructure:"watch"`
}

// OutputConfig controls result presentation.
type OutputConfig struct {
	// MaxResults caps the number of candidates printed. Zero means no cap.
	MaxResults int `mapstructure:"max_results"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	cargoHome := ""
	if home, err := os.UserHomeDir(); err == nil {
		cargoHome = filepath.Join(home, ".cargo")
	}
	return &Config{
		CargoHome: cargoHome,
		LogLevel:  "warn",
		Cache: CacheConfig{
			CapacityBytes: 64 << 20,
		},
		Output: OutputConfig{
			MaxResults: 100,
		},
	}
}
