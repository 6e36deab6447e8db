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

// Config holds the configuration for the concierge service.
// Environment variables are automatically parsed from the MY3_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage. DBDriver selects sqlite (default, zero-setup) or postgres.
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"concierge.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Conversation state. Empty RedisAddr keeps state in process memory.
	RedisAddr          string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword      string `envconfig:"REDIS_PASSWORD" default:""`
	ConversationTTLMin int    `envconfig:"CONVERSATION_TTL_MIN" default:"1440"`

	// Language model
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Address validation. Disabled unless a geocoding key is set.
	GeocodingAPIKey string `envconfig:"GEOCODING_API_KEY" default:""`

	// Auth
	JWTSecret     string `envconfig:"JWT_SECRET" default:""`
	JWTTTLMinutes int    `envconfig:"JWT_TTL_MIN" default:"10080"`

	// Network bounds
	MaxContacts int `envconfig:"MAX_CONTACTS" default:"10"`
}

// Validate rejects unusable combinations before the service wires anything.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("MY3_SQLITE_PATH required with sqlite driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("MY3_POSTGRES_DSN required with postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.MaxContacts <= 0 {
		return fmt.Errorf("MAX_CONTACTS must be positive")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("MY3_JWT_SECRET required in production")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: MY3_HTTP_PORT, MY3_DB_DRIVER, MY3_GEMINI_API_KEY.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("MY3", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("db_driver", cfg.DBDriver).
		Bool("redis", cfg.RedisAddr != "").
		Bool("gemini_key_present", cfg.GeminiAPIKey != "").
		Bool("geocoding_enabled", cfg.GeocodingAPIKey != "").
		Int("max_contacts", cfg.MaxContacts).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		Environment: EnvTesting,
		HTTPPort:    8080,
		DBDriver:    "sqlite",
		SQLitePath:  ":memory:",
		JWTSecret:   "test-secret",
		MaxContacts: 10,
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
