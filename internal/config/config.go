// Package config loads runtime settings from defaults, .citrank.yaml,
// CITRANK_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all runtime configuration for a ranking run.
// Values are populated from .citrank.yaml, CITRANK_* env vars, and CLI flags.
type Config struct {
	Restart      float64 `mapstructure:"restart"`
	Iterations   int     `mapstructure:"iterations"`
	Workers      int     `mapstructure:"workers"`
	Strict       bool    `mapstructure:"strict"`
	OutDegrees   string  `mapstructure:"out_degrees"`
	InDegrees    string  `mapstructure:"in_degrees"`
	TelemetryDir string  `mapstructure:"telemetry_dir"`
	StorePath    string  `mapstructure:"store_path"`
	Manifest     bool    `mapstructure:"manifest"`
	Top          int     `mapstructure:"top"`
	Verbose      bool    `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("restart", 0.15)
	viper.SetDefault("iterations", 20)
	viper.SetDefault("workers", 1)
	viper.SetDefault("strict", false)
	viper.SetDefault("out_degrees", "")
	viper.SetDefault("in_degrees", "")
	viper.SetDefault("telemetry_dir", ".citrank/telemetry")
	viper.SetDefault("store_path", "")
	viper.SetDefault("manifest", true)
	viper.SetDefault("top", 10)
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the ranking engine cannot run with.
func (c Config) Validate() error {
	if !(c.Restart >= 0 && c.Restart <= 1) {
		return fmt.Errorf("%w: restart %v outside [0, 1]", ErrInvalid, c.Restart)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations %d is negative", ErrInvalid, c.Iterations)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d must be at least 1", ErrInvalid, c.Workers)
	}
	if c.Top < 0 {
		return fmt.Errorf("%w: top %d is negative", ErrInvalid, c.Top)
	}
	return nil
}
