package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/lib/pq"

	"github.com/horarios-app/horarios-bot/internal/bot"
	"github.com/horarios-app/horarios-bot/internal/database"
	"github.com/horarios-app/horarios-bot/internal/digest"
	apperrors "github.com/horarios-app/horarios-bot/internal/errors"
	"github.com/horarios-app/horarios-bot/internal/health"
	"github.com/horarios-app/horarios-bot/internal/i18n"
	"github.com/horarios-app/horarios-bot/internal/idempotency"
	"github.com/horarios-app/horarios-bot/internal/lifecycle"
	"github.com/horarios-app/horarios-bot/internal/notify"
	"github.com/horarios-app/horarios-bot/internal/ratelimit"
	"github.com/horarios-app/horarios-bot/internal/reminder"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/scheduler"
	"github.com/horarios-app/horarios-bot/internal/server"
	"github.com/horarios-app/horarios-bot/internal/settings"
	"github.com/horarios-app/horarios-bot/internal/settingscache"
	"github.com/horarios-app/horarios-bot/internal/state"
	"github.com/horarios-app/horarios-bot/pkg/config"
	"github.com/horarios-app/horarios-bot/pkg/graceful"
	"github.com/horarios-app/horarios-bot/pkg/logger"
	pkgredis "github.com/horarios-app/horarios-bot/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)
	config.WatchLogLevel(v, func(level string) {
		logger.SetLevel(level)
		log.Info("log level changed", slog.String("level", level))
	})

	log.Info("starting horarios bot",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.Server.Port),
		slog.String("bot_mode", cfg.Bot.Mode),
	)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := apperrors.WithRetry(ctx, func() error {
		return db.PingContext(ctx)
	}); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Redis is optional: without it the delivery guard, settings cache and
	// primary rate limiter are disabled or degraded, but the bot still runs.
	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.New(ctx, pkgredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			log.Error("redis unavailable, continuing degraded", slog.Any("error", err))
			redisClient = nil
		}
	}

	events := repository.NewEventRepository(db, log)
	settingsRepo := repository.NewSettingsRepository(db, log)

	var cache *settingscache.Cache
	if redisClient != nil {
		cache = settingscache.NewCache(redisClient.Client)
	}
	settingsSvc := settings.NewService(settingsRepo, cache, log)

	limiter, memLimiter := buildLimiter(redisClient, log)
	go memLimiter.RunCleanup(ctx, 5*time.Minute, 10*time.Minute)

	manager, err := i18n.Load(cfg.Bot.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("load i18n catalogs: %w", err)
	}
	translate := manager.Translator(cfg.Bot.DefaultLanguage)
	formatter := notify.NewFormatter(translate)

	var guard *idempotency.Guard
	if redisClient != nil {
		guard = idempotency.NewGuard(idempotency.NewRedisStore(redisClient.Client, log), log)
	} else {
		guard = idempotency.NewGuard(nil, log)
	}

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	tb, err := bot.NewTelebot(cfg)
	if err != nil {
		return fmt.Errorf("create telegram client: %w", err)
	}

	channel := notify.NewTelegramChannel(tb, limiter, log)

	reminders := reminder.NewService(reminder.Config{
		Events:    events,
		Settings:  settingsSvc,
		Channel:   channel,
		Formatter: formatter,
		Guard:     guard,
		Window:    cfg.Scheduler.ReminderWindow,
		Tolerance: cfg.Scheduler.ReminderTolerance,
		Log:       log,
	})
	digests := digest.NewService(events, settingsSvc, channel, formatter, guard, log)

	tracker := state.NewTracker(log)
	core := scheduler.NewCore(cfg.Scheduler.Workers, tracker, log)
	schedulerSvc := scheduler.NewService(scheduler.Options{
		Core:          core,
		Events:        events,
		Reminders:     reminders,
		Digests:       digests,
		Settings:      settingsSvc,
		RetentionDays: cfg.Scheduler.CleanupRetentionDays,
		Log:           log,
	})

	if err := core.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := schedulerSvc.RegisterRecurringJobs(); err != nil {
		return fmt.Errorf("register recurring jobs: %w", err)
	}
	if err := schedulerSvc.RestoreDailySummaries(ctx); err != nil {
		log.Error("restore daily summaries failed", slog.Any("error", err))
	}

	botSvc, err := bot.New(bot.Deps{
		Config:         cfg,
		Log:            log,
		Telebot:        tb,
		Errors:         errHandler,
		Settings:       settingsSvc,
		Events:         events,
		Scheduler:      schedulerSvc,
		Formatter:      formatter,
		Translate:      translate,
		InboundLimiter: limiter,
	})
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	if redisClient != nil {
		checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))
	checker.AddCheck("scheduler", health.NewSchedulerChecker(func() bool {
		return core.Status().Running
	}))

	httpHandler := server.NewHandler(server.Deps{
		Checker:   checker,
		Probes:    lifecycle.NewProbes(checker),
		Scheduler: schedulerSvc,
		Log:       log,
	})
	httpServer := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: httpHandler,
	}, cfg.Server.ShutdownTimeout)

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("bot", func(context.Context) error {
		botSvc.Stop()
		return nil
	})
	shutdown.Register("scheduler", schedulerSvc.Shutdown)
	shutdown.Register("database", func(context.Context) error {
		return db.Close()
	})
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}
	if cfg.Sentry.Enabled {
		shutdown.Register("sentry", func(context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		})
	}

	go botSvc.Start()

	serveErr := httpServer.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	return serveErr
}

// buildLimiter assembles the layered rate limiter: Redis primary with an
// in-memory fallback, or memory-only when Redis is absent. The memory
// limiter is returned separately so its cleanup loop can be started.
func buildLimiter(redisClient *pkgredis.Client, log *slog.Logger) (ratelimit.Limiter, *ratelimit.MemoryLimiter) {
	memory := ratelimit.NewMemoryLimiter(log)
	if redisClient == nil {
		return memory, memory
	}

	primary := ratelimit.NewRedisLimiter(redisClient.Client, log)

	return ratelimit.NewAdaptiveLimiter(primary, memory, log), memory
}
