// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the Horarios notification backend.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type BotConfig struct {
	Token   string        `mapstructure:"token" validate:"required"`
	Mode    string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout time.Duration `mapstructure:"timeout"`
	// WebhookURL is the public HTTPS endpoint, required in webhook mode.
	WebhookURL string `mapstructure:"webhook_url"`
	// WebhookListen is the local address the webhook receiver binds; it must
	// differ from server.port, which serves the operational endpoints.
	WebhookListen string `mapstructure:"webhook_listen"`
	// DefaultLanguage selects the i18n catalog for outgoing messages.
	DefaultLanguage string `mapstructure:"default_language"`
}

type SchedulerConfig struct {
	// ReminderWindow bounds how far ahead each reminder scan looks.
	ReminderWindow time.Duration `mapstructure:"reminder_window"`
	// ReminderTolerance is the firing margin around the due instant,
	// matching the one-minute scan granularity.
	ReminderTolerance time.Duration `mapstructure:"reminder_tolerance"`
	// Workers sizes the pool that executes job bodies off the tick path.
	Workers int `mapstructure:"workers"`
	// CleanupRetentionDays controls the soft-delete cutoff for old events.
	CleanupRetentionDays int `mapstructure:"cleanup_retention_days"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
	// File enables lumberjack rotation when non-empty; stdout otherwise.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// DSN returns the PostgreSQL connection string based on config values.
func (c *Config) DSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		sslMode,
	)
}

// ApplyDefaults fills in values the YAML file may omit.
func (c *Config) ApplyDefaults() {
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}

	if c.Bot.Mode == "" {
		c.Bot.Mode = "polling"
	}

	if c.Bot.Timeout <= 0 {
		c.Bot.Timeout = 10 * time.Second
	}

	if c.Bot.DefaultLanguage == "" {
		c.Bot.DefaultLanguage = "es"
	}

	if c.Bot.WebhookListen == "" {
		c.Bot.WebhookListen = ":8443"
	}

	if c.Scheduler.ReminderWindow <= 0 {
		c.Scheduler.ReminderWindow = time.Hour
	}

	if c.Scheduler.ReminderTolerance <= 0 {
		c.Scheduler.ReminderTolerance = time.Minute
	}

	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = 4
	}

	if c.Scheduler.CleanupRetentionDays <= 0 {
		c.Scheduler.CleanupRetentionDays = 30
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}

	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
}
