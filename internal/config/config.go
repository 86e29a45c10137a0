package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gosim/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Simulation SimulationConfig
	Database   DatabaseConfig
	Metrics    MetricsConfig
	LogLevel   string
}

// SimulationConfig holds the defaults every inference run starts from
type SimulationConfig struct {
	Seed       int64
	HasSeed    bool
	Trials     int
	Workers    int
	Alpha      float64
	Confidence float64
}

// DatabaseConfig holds database connection settings. An empty URL keeps
// the run ledger in memory.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether a PostgreSQL ledger is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// MetricsConfig holds the Prometheus listener address; empty disables it.
type MetricsConfig struct {
	Addr string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	simConfig, err := loadSimulationConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load simulation configuration")
	}

	config := &Config{
		Simulation: *simConfig,
		Database:   DatabaseConfig{URL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		Metrics:    MetricsConfig{Addr: getEnvOrDefault("METRICS_ADDR", "")},
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Trials:     10000,
			Workers:    1,
			Alpha:      0.05,
			Confidence: 95,
		},
		LogLevel: "info",
	}
}

func loadSimulationConfig() (*SimulationConfig, error) {
	cfg := Default().Simulation

	if raw := strings.TrimSpace(os.Getenv("SIM_SEED")); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("SIM_SEED must be an integer, got %q", raw))
		}
		cfg.Seed = seed
		cfg.HasSeed = true
	}

	var err error
	if cfg.Trials, err = getEnvIntStrict("SIM_TRIALS", cfg.Trials); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getEnvIntStrict("SIM_WORKERS", cfg.Workers); err != nil {
		return nil, err
	}
	if cfg.Alpha, err = getEnvFloatStrict("SIM_ALPHA", cfg.Alpha); err != nil {
		return nil, err
	}
	if cfg.Confidence, err = getEnvFloatStrict("SIM_CONFIDENCE", cfg.Confidence); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks a configuration that was changed after Load, such as by
// command-line overrides.
func (c *Config) Validate() error {
	if err := validateConfig(c); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	return nil
}

func validateConfig(config *Config) error {
	sim := config.Simulation
	if sim.Trials <= 0 {
		return errors.ConfigInvalid("SIM_TRIALS must be positive")
	}
	if sim.Workers < 0 {
		return errors.ConfigInvalid("SIM_WORKERS must not be negative")
	}
	if math.IsNaN(sim.Alpha) || sim.Alpha <= 0 || sim.Alpha >= 1 {
		return errors.ConfigInvalid("SIM_ALPHA must be in (0, 1)")
	}
	if math.IsNaN(sim.Confidence) || sim.Confidence <= 0 || sim.Confidence >= 100 {
		return errors.ConfigInvalid("SIM_CONFIDENCE must be in (0, 100)")
	}
	switch strings.ToLower(config.LogLevel) {
	case "error", "warn", "info", "debug", "trace":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("LOG_LEVEL %q is not one of error, warn, info, debug, trace", config.LogLevel))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntStrict(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return intValue, nil
}

func getEnvFloatStrict(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a number, got %q", key, value))
	}
	return floatValue, nil
}
