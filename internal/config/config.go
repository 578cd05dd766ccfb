// Package config loads server settings from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds all server settings.
type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	DBPath        string `envconfig:"DB_PATH" default:"tracker.db"`
	TemplateDir   string `envconfig:"TEMPLATE_DIR" default:"web/templates"`
	StaticDir     string `envconfig:"STATIC_DIR" default:"web/static"`
	SecureCookies bool   `envconfig:"SECURE_COOKIES" default:"false"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	// How long sessions last; active users are renewed past the halfway point.
	SessionDuration    time.Duration `envconfig:"SESSION_DURATION" default:"720h"`
	SessionCleanupSpec string        `envconfig:"SESSION_CLEANUP_SPEC" default:"@hourly"`

	// Starting figures for newly registered profiles.
	StartingBalance      decimal.Decimal `envconfig:"STARTING_BALANCE" default:"0"`
	DefaultMonthlyBudget decimal.Decimal `envconfig:"DEFAULT_MONTHLY_BUDGET" default:"0"`
	DefaultSpendingLimit decimal.Decimal `envconfig:"DEFAULT_SPENDING_LIMIT" default:"0"`

	// Optional parent account created at startup if it does not exist.
	AdminUser     string `envconfig:"ADMIN_USER"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

// Validate checks settings that would otherwise fail at an awkward moment.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive")
	}
	if c.DefaultMonthlyBudget.Sign() < 0 || c.DefaultSpendingLimit.Sign() < 0 {
		return fmt.Errorf("DEFAULT_MONTHLY_BUDGET and DEFAULT_SPENDING_LIMIT must be non-negative")
	}
	if (c.AdminUser == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USER and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// Load reads environment variables into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
