package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidCapacity indicates a non-positive cache capacity.
	ErrInvalidCapacity = errors.New("invalid cache capacity")

	// ErrInvalidLimit indicates a negative result limit.
	ErrInvalidLimit = errors.New("invalid result limit")

	// ErrInvalidLogLevel indicates a log level zerolog does not know.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Validate checks that the configuration is usable. All problems are reported.
func Validate(cfg *Config) error {
	var errs []error
	if cfg.Cache.CapacityBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache.capacity_bytes must be positive, got %d", ErrInvalidCapacity, cfg.Cache.CapacityBytes))
	}
	if cfg.Output.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("%w: output.max_results must not be negative, got %d", ErrInvalidLimit, cfg.Output.MaxResults))
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a configured level name to a zerolog level. Empty means warn.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}
	return lvl, nil
}
