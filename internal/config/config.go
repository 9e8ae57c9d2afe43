// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/unclebandit/partnerline/internal/db"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBUser      string `env:"DB_USER" envDefault:"user"`
	DBPassword  string `env:"DB_PASSWORD" envDefault:"pass"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBName      string `env:"DB_NAME" envDefault:"partnerline"`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogConsole bool   `env:"LOG_CONSOLE" envDefault:"true"`
	Timezone   string `env:"TIMEZONE" envDefault:"UTC"`

	Scheduler SchedulerConfig
	Transport TransportConfig
	Queue     QueueConfig
	Notify    NotifyConfig
	AI        AIConfig
}

type SchedulerConfig struct {
	Enabled  bool          `env:"SCHEDULER_ENABLED" envDefault:"false"`
	Interval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"60s"`
	LeaseTTL time.Duration `env:"SCHEDULER_LEASE_TTL" envDefault:"10m"`
}

type TransportConfig struct {
	Kind           string  `env:"TRANSPORT" envDefault:"mock"`
	RatePerSec     float64 `env:"TRANSPORT_RATE_PER_SEC" envDefault:"10"`
	AccountSID     string  `env:"TWILIO_ACCOUNT_SID"`
	AuthToken      string  `env:"TWILIO_AUTH_TOKEN"`
	FromNumber     string  `env:"TWILIO_PHONE_NUMBER"`
	StatusCallback string  `env:"TWILIO_STATUS_CALLBACK"`
}

type QueueConfig struct {
	AMQPURL  string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"partnerline.events"`
}

type NotifyConfig struct {
	Email        string `env:"NOTIFICATION_EMAIL"`
	SMS          string `env:"NOTIFICATION_SMS"`
	SMTPServer   string `env:"SMTP_SERVER" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

type AIConfig struct {
	APIKey        string `env:"AI_API_KEY"`
	BaseURL       string `env:"AI_BASE_URL"`
	Model         string `env:"AI_MODEL" envDefault:"gpt-4o"`
	KnowledgeFile string `env:"AI_KNOWLEDGE_FILE"`
}

// Load reads .env (if present) and parses the environment. The returned note
// is non-empty when no .env file was found, so callers can log it once their
// logger exists.
func Load() (Config, string, error) {
	note := ""
	if err := godotenv.Load(); err != nil {
		note = "no .env file found, relying on OS environment variables"
	}
	cfg, err := Parse()
	return cfg, note, err
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.Transport.Kind = strings.ToLower(strings.TrimSpace(cfg.Transport.Kind))
	return cfg, cfg.Validate()
}

// Validate rejects settings that cannot produce a working process.
func (c Config) Validate() error {
	switch db.Dialect(c.DBDriver) {
	case db.Postgres:
	case db.SQLite:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.Transport.Kind {
	case "mock":
	case "twilio":
		if c.Transport.AccountSID == "" || c.Transport.AuthToken == "" || c.Transport.FromNumber == "" {
			return fmt.Errorf("twilio transport requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER")
		}
	default:
		return fmt.Errorf("unsupported TRANSPORT %q", c.Transport.Kind)
	}

	if c.Transport.RatePerSec <= 0 {
		return fmt.Errorf("TRANSPORT_RATE_PER_SEC must be positive")
	}
	if c.Scheduler.Interval <= 0 || c.Scheduler.LeaseTTL <= 0 {
		return fmt.Errorf("scheduler interval and lease ttl must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// DSN returns DATABASE_URL, or a postgres DSN assembled from the DB_* settings.
func (c Config) DSN() string {
	if dsn := strings.TrimSpace(c.DatabaseURL); dsn != "" {
		return dsn
	}
	return db.PostgresDSN(c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// Location is the analytics time zone. Validate has already checked it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
