package config

import (
	"fmt"
	"time"

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

// Config holds the configuration for the care service and the reminder
// worker. Environment variables are automatically parsed from the
// CAREBRIDGE_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// Storage driver: postgres for deployments, memory for local
	// development and tests.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Redis backs the cross-process dedup ledger. Empty keeps the
	// in-memory ledger, which is fine for a single instance.
	RedisAddr string `envconfig:"REDIS_ADDR" default:""`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Twilio Configuration. With no credentials the service falls back
	// to a log-only sender.
	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID" default:""`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN" default:""`
	TwilioFromNumber string `envconfig:"TWILIO_FROM_NUMBER" default:""`
	// Public callback URL Twilio signs. Signature checks are skipped
	// when empty.
	WebhookPublicURL string `envconfig:"WEBHOOK_PUBLIC_URL" default:""`

	// Scheduler Configuration
	SchedulerInterval       time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"30s"`
	SchedulerBatchSize      int           `envconfig:"SCHEDULER_BATCH_SIZE" default:"100"`
	ResponseDeadlineMinutes int           `envconfig:"RESPONSE_DEADLINE_MINUTES" default:"10"`
	SendRetries             int           `envconfig:"SEND_RETRIES" default:"3"`

	// Event bus buffer per subscriber; slow consumers drop, never block.
	EventBufferSize int `envconfig:"EVENT_BUFFER_SIZE" default:"256"`
}

// ResolveDefaults validates the driver selection and derives DBDriver
// when set to "auto" or empty: postgres when a DSN is configured,
// otherwise the in-memory store.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "memory"
		}
	}

	allowedDB := map[string]bool{"postgres": true, "memory": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER postgres requires POSTGRES_DSN")
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Environment variables should be prefixed with CAREBRIDGE_
// Example: CAREBRIDGE_HTTP_PORT, CAREBRIDGE_TWILIO_ACCOUNT_SID
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CAREBRIDGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Bool("redis_present", cfg.RedisAddr != "").
		Bool("twilio_present", cfg.TwilioAccountSID != "").
		Int("port", cfg.HTTPPort).
		Dur("scheduler_interval", cfg.SchedulerInterval).
		Int("response_deadline_minutes", cfg.ResponseDeadlineMinutes).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:             EnvTesting,
		DBDriver:                "memory",
		HTTPPort:                8080,
		SchedulerInterval:       30 * time.Second,
		SchedulerBatchSize:      100,
		ResponseDeadlineMinutes: 10,
		SendRetries:             3,
		EventBufferSize:         256,
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

// ResponseDeadline returns the default reply window as a duration.
func (c *Config) ResponseDeadline() time.Duration {
	return time.Duration(c.ResponseDeadlineMinutes) * time.Minute
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
