// Package health aggregates readiness checks for the external dependencies
// the notification pipeline relies on.
package health

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	telebot "gopkg.in/telebot.v3"
)

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a plain function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Checker aggregates health checks for multiple components.
type Checker struct {
	log    *slog.Logger
	checks map[string]Checkable
}

// NewChecker instantiates a Checker with the provided logger.
func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}

	return &Checker{
		log:    log,
		checks: make(map[string]Checkable),
	}
}

// AddCheck registers a checkable component by name.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.checks[name] = check
}

// Check runs all registered health checks and returns a status per
// component, "OK" or the failure message.
func (c *Checker) Check(ctx context.Context) map[string]string {
	results := make(map[string]string, len(c.checks))

	for name, check := range c.checks {
		if err := check.HealthCheck(ctx); err != nil {
			results[name] = err.Error()
			c.log.Error("health check failed",
				slog.String("component", name),
				slog.Any("error", err),
			)
			continue
		}

		results[name] = "OK"
	}

	return results
}

// Healthy reports whether every registered check passes.
func (c *Checker) Healthy(ctx context.Context) bool {
	for _, status := range c.Check(ctx) {
		if status != "OK" {
			return false
		}
	}
	return true
}

// DBChecker verifies connectivity to the PostgreSQL event store.
type DBChecker struct {
	db *sql.DB
}

func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return sql.ErrConnDone
	}
	return c.db.PingContext(ctx)
}

// RedisChecker verifies connectivity to the Redis used by the delivery
// guard and the settings cache.
type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.client == nil {
		return redis.ErrClosed
	}
	return c.client.Ping(ctx).Err()
}

// TelegramChecker verifies that the bot connected to the Telegram API.
type TelegramChecker struct {
	bot *telebot.Bot
}

func NewTelegramChecker(bot *telebot.Bot) *TelegramChecker {
	return &TelegramChecker{bot: bot}
}

func (c *TelegramChecker) HealthCheck(context.Context) error {
	if c == nil || c.bot == nil || c.bot.Me == nil {
		return errors.New("telegram bot is not initialized or disconnected")
	}
	return nil
}

// SchedulerChecker reports whether the scheduler core is still running.
type SchedulerChecker struct {
	running func() bool
}

// NewSchedulerChecker wraps a running-state probe, typically
// func() bool { return core.Status().Running }.
func NewSchedulerChecker(running func() bool) *SchedulerChecker {
	return &SchedulerChecker{running: running}
}

func (c *SchedulerChecker) HealthCheck(context.Context) error {
	if c == nil || c.running == nil || !c.running() {
		return errors.New("scheduler is not running")
	}
	return nil
}
