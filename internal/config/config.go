// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Auth header shapes accepted by the workflow engine.
const (
	AuthModeBearer = "bearer"
	AuthModeHeader = "header"
)

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBName      string `env:"DB_NAME"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" envDefault:"20"`

	AMQPURL     string `env:"AMQP_URL"`
	EventsQueue string `env:"EVENTS_QUEUE" envDefault:"campaign_events"`
	StatusQueue string `env:"STATUS_QUEUE" envDefault:"campaign_status_updates"`

	EngineWebhookURL string        `env:"N8N_WEBHOOK_URL"`
	EngineAPIKey     string        `env:"N8N_API_KEY"`
	EngineAuthMode   string        `env:"N8N_AUTH_MODE" envDefault:"bearer"`
	DispatchTimeout  time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"30s"`

	AuthJWTSecret   string `env:"AUTH_JWT_SECRET"`
	BillingEnforced bool   `env:"BILLING_ENFORCED" envDefault:"false"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (Config, error) {
	// .env is optional; a missing file just means the OS environment is used as is.
	_ = godotenv.Load(files...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.EngineAuthMode = strings.ToLower(strings.TrimSpace(cfg.EngineAuthMode))
	if cfg.EngineAuthMode != AuthModeBearer && cfg.EngineAuthMode != AuthModeHeader {
		return Config{}, fmt.Errorf("N8N_AUTH_MODE must be %q or %q, got %q", AuthModeBearer, AuthModeHeader, cfg.EngineAuthMode)
	}
	if cfg.DispatchTimeout <= 0 {
		return Config{}, errors.New("DISPATCH_TIMEOUT must be positive")
	}
	return cfg, nil
}

// DSN prefers DATABASE_URL and otherwise assembles one from the DB_* parts.
func (c Config) DSN() (string, error) {
	if c.DatabaseURL != "" {
		return c.DatabaseURL, nil
	}
	if c.DBUser == "" || c.DBName == "" {
		return "", errors.New("missing DATABASE_URL or DB_USER/DB_NAME")
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	), nil
}

// EngineConfigured is false when dispatch must degrade to leaving campaigns pending.
func (c Config) EngineConfigured() bool {
	return strings.TrimSpace(c.EngineWebhookURL) != "" && strings.TrimSpace(c.EngineAPIKey) != ""
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
