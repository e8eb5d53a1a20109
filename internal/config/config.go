// Package config loads experiment configuration from YAML, .env and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/simulation"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Storage backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Environment variables read by LoadEnv.
const (
	EnvPostgresDSN   = "POSTGRES_DSN"
	EnvClickhouseDSN = "CLICKHOUSE_DSN"
	EnvParallelism   = "SWEEP_PARALLELISM"
	EnvOutputDir     = "SWEEP_OUTPUT_DIR"
	EnvLogLevel      = "SWEEP_LOG_LEVEL"
	EnvLogFormat     = "SWEEP_LOG_FORMAT"
)

// SeedRangeConfig is an inclusive seed interval.
type SeedRangeConfig struct {
	From int64 `yaml:"from"`
	To   int64 `yaml:"to" validate:"gtefield=From"`
}

// Range expands the interval.
func (s SeedRangeConfig) Range() domain.SeedRange {
	return domain.NewSeedRange(s.From, s.To)
}

// SeedsConfig holds the two disjoint seed intervals.
type SeedsConfig struct {
	InSample    SeedRangeConfig `yaml:"in_sample"`
	OutOfSample SeedRangeConfig `yaml:"out_of_sample"`
}

// StorageConfig selects where runs and rows are persisted.
// DSNs come from the environment only.
type StorageConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=memory postgres"`
	PostgresDSN   string `yaml:"-" validate:"required_if=Backend postgres"`
	ClickhouseDSN string `yaml:"-"`
	MaxConns      int32  `yaml:"max_conns" validate:"gte=0"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// Config is a complete experiment definition.
type Config struct {
	Grid          domain.GridSpec         `yaml:"grid"`
	Seeds         SeedsConfig             `yaml:"seeds"`
	Threshold     float64                 `yaml:"threshold" validate:"gt=0"`
	Metric        string                  `yaml:"metric" validate:"oneof=controlled_pnl risk_adjusted"`
	FailurePolicy string                  `yaml:"failure_policy" validate:"oneof=skip abort"`
	Parallelism   int                     `yaml:"parallelism" validate:"gte=0"`
	Market        simulation.MarketConfig `yaml:"market"`
	OutputDir     string                  `yaml:"output_dir" validate:"required"`
	Storage       StorageConfig           `yaml:"storage"`
	Log           LogConfig               `yaml:"log"`
}

// Default returns the reference experiment: the 81-point grid, in-sample
// seeds 1..50, out-of-sample seeds 1001..1050 and |t| >= 2.
func Default() Config {
	return Config{
		Grid: domain.DefaultGridSpec(),
		Seeds: SeedsConfig{
			InSample:    SeedRangeConfig{From: 1, To: 50},
			OutOfSample: SeedRangeConfig{From: 1001, To: 1050},
		},
		Threshold:     2.0,
		Metric:        "controlled_pnl",
		FailurePolicy: "skip",
		Market:        simulation.DefaultMarketConfig(),
		OutputDir:     "out",
		Storage:       StorageConfig{Backend: BackendMemory},
		Log:           LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults, applies the environment and validates.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnv loads KEY=VALUE pairs from files into the process environment
// without overriding variables already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from the process environment.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvClickhouseDSN); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv(EnvParallelism); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvParallelism, v, err)
		}
		cfg.Parallelism = n
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

var validate = validator.New()

// Validate checks struct constraints and that the seed ranges are disjoint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if overlap := domain.Overlap(c.Seeds.InSample.Range(), c.Seeds.OutOfSample.Range()); len(overlap) > 0 {
		return fmt.Errorf("%w: in-sample and out-of-sample seeds overlap (%d shared, first %d)",
			ErrInvalidConfig, len(overlap), overlap[0])
	}
	return nil
}
