// Package config loads miner configuration from environment variables.
//
// Environment variables complement the command line: flags always win, env
// supplies defaults for operators running the miner from a service unit or
// a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the environment-backed configuration for a miner run.
type Config struct {
	// BaseURL overrides the routing API endpoint, mainly for testing
	// against a local mock.
	BaseURL string `env:"MINER_BASE_URL"`

	// QueriesPerSecond is the per-credential request budget.
	QueriesPerSecond float64 `env:"MINER_QUERIES_PER_SECOND" envDefault:"10"`

	// ExecuteInTime dispatches each query at its declared departure or
	// arrival time instead of immediately.
	ExecuteInTime bool `env:"MINER_EXECUTE_IN_TIME" envDefault:"false"`

	// SplitTransit enables intermediate-station follow-up queries for
	// transit trips that request splitting.
	SplitTransit bool `env:"MINER_SPLIT_TRANSIT" envDefault:"false"`

	// WriteCSV and WriteDump select the export formats. At least one
	// must stay enabled or the run produces nothing.
	WriteCSV  bool `env:"MINER_WRITE_CSV" envDefault:"true"`
	WriteDump bool `env:"MINER_WRITE_DUMP" envDefault:"true"`

	// OutputFilename overrides the derived per-input output name.
	OutputFilename string `env:"MINER_OUTPUT_FILENAME"`

	// Redis configures the shared cross-process rate gate. Empty Addr
	// keeps rate gating in-process.
	Redis RedisConfig `envPrefix:"MINER_REDIS_"`
}

// RedisConfig holds the connection settings for the shared rate gate.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// ConfigurationError reports an invalid configuration value or combination.
// It is distinct from batch-fatal errors: a configuration error aborts the
// whole invocation before any batch starts.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// Load reads a .env file when present, parses the environment, and applies
// guardrails. A missing .env file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// Sanitize normalises values loaded from env.
func (c *Config) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.OutputFilename = strings.TrimSpace(c.OutputFilename)
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c *Config) Validate() error {
	if c.QueriesPerSecond <= 0 {
		return &ConfigurationError{Field: "queries_per_second", Message: "must be greater than zero"}
	}
	if !c.WriteCSV && !c.WriteDump {
		return &ConfigurationError{Field: "write_csv/write_dump", Message: "at least one output format must be enabled"}
	}
	if c.Redis.DB < 0 {
		return &ConfigurationError{Field: "redis.db", Message: "must not be negative"}
	}
	return nil
}
