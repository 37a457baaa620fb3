package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
	file    string
}

// NewLoader creates a loader that looks for .rustguide.yaml in rootDir and
// then in the home directory. A non-empty file is used instead of the search
// and must exist.
func NewLoader(rootDir, file string) Loader {
	return &loader{rootDir: rootDir, file: file}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		v.SetConfigName(".rustguide")
		v.SetConfigType("yaml")
		v.AddConfigPath(l.rootDir)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix("RUSTGUIDE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The toolchain's own variables are honoured after ours.
	_ = v.BindEnv("rust_src_path", "RUSTGUIDE_RUST_SRC_PATH", "RUST_SRC_PATH")
	_ = v.BindEnv("cargo_home", "RUSTGUIDE_CARGO_HOME", "CARGO_HOME")
	_ = v.BindEnv("log_level")
	_ = v.BindEnv("cache.capacity_bytes")
	_ = v.BindEnv("cache.watch")
	_ = v.BindEnv("output.max_results")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("rust_src_path", d.RustSrcPath)
	v.SetDefault("cargo_home", d.CargoHome)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("cache.capacity_bytes", d.Cache.CapacityBytes)
	v.SetDefault("cache.watch", d.Cache.Watch)
	v.SetDefault("output.max_results", d.Output.MaxResults)
}
