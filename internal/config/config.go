package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the CRM service.
// Environment variables are parsed from the CRM_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage Configuration
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`

	// Automation engine
	AutomationEnabled bool `envconfig:"AUTOMATION_ENABLED" default:"true"`
	PollIntervalMs    int  `envconfig:"POLL_INTERVAL_MS" default:"1000"`
	BatchSize         int  `envconfig:"BATCH_SIZE" default:"100"`
	InitialLookbackMs int  `envconfig:"INITIAL_LOOKBACK_MS" default:"60000"`

	// Read surface
	MaxPageSize int `envconfig:"MAX_PAGE_SIZE" default:"100"`
}

// ResolveDefaults validates the driver selection and derives it when "auto":
// Postgres when a DSN is configured, SQLite otherwise.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}
	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("CRM_POSTGRES_DSN required for postgres driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.PollIntervalMs <= 0 {
		return fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}
	if c.InitialLookbackMs < 0 {
		return fmt.Errorf("INITIAL_LOOKBACK_MS must not be negative")
	}
	if c.MaxPageSize <= 0 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: CRM_HTTP_PORT, CRM_POSTGRES_DSN.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CRM", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Bool("automation_enabled", cfg.AutomationEnabled).
		Int("poll_interval_ms", cfg.PollIntervalMs).
		Int("batch_size", cfg.BatchSize).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config for tests: in-memory sqlite, fast polling.
func NewForTesting() *Config {
	return &Config{
		Environment:       EnvTesting,
		HTTPPort:          8080,
		DBDriver:          "sqlite",
		AutomationEnabled: true,
		PollIntervalMs:    20,
		BatchSize:         50,
		InitialLookbackMs: 60000,
		MaxPageSize:       100,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
