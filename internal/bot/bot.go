package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/bot/handlers"
	"github.com/horarios-app/horarios-bot/internal/bot/keyboard"
	apperrors "github.com/horarios-app/horarios-bot/internal/errors"
	"github.com/horarios-app/horarios-bot/internal/i18n"
	"github.com/horarios-app/horarios-bot/internal/middleware"
	"github.com/horarios-app/horarios-bot/internal/notify"
	"github.com/horarios-app/horarios-bot/internal/ratelimit"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/scheduler"
	"github.com/horarios-app/horarios-bot/internal/settings"
	"github.com/horarios-app/horarios-bot/pkg/config"
)

// Deps groups everything the bot needs; New fails fast on missing pieces.
type Deps struct {
	Config *config.Config
	Log    *slog.Logger
	// Telebot is the transport created by NewTelebot. It is built separately
	// so the notification channel and scheduler can be wired to it first.
	Telebot   *telebot.Bot
	Errors    *apperrors.Handler
	Settings  *settings.Service
	Events    repository.EventRepository
	Scheduler *scheduler.Service
	Formatter *notify.Formatter
	Translate i18n.Translator
	// InboundLimiter throttles updates per user before they reach the router.
	InboundLimiter ratelimit.Limiter
}

// NewTelebot creates the raw Telegram client for the configured mode.
func NewTelebot(cfg *config.Config) (*telebot.Bot, error) {
	poller, err := pollerFor(cfg)
	if err != nil {
		return nil, err
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Bot.Token,
		Poller: poller,
	})
	if err != nil {
		return nil, fmt.Errorf("bot: create telebot: %w", err)
	}

	return tb, nil
}

// Bot owns the telebot instance and its routing table.
type Bot struct {
	telebot *telebot.Bot
	router  *Router
	log     *slog.Logger
}

// New builds the bot: transport, middleware chain and handler registry.
func New(deps Deps) (*Bot, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("bot: config is required")
	}
	if deps.Telebot == nil {
		return nil, fmt.Errorf("bot: telebot client is required")
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	tb := deps.Telebot

	if deps.InboundLimiter != nil {
		limited := middleware.NewRateLimitMiddleware(
			deps.InboundLimiter,
			deps.Translate.T("bot.rate_limited"),
			deps.Log,
		)
		tb.Use(limited.Handle)
	}

	router := NewRouter(deps.Log)
	router.Use(RecoveryMiddleware(deps.Log, deps.Errors))
	router.Use(ErrorHandlingMiddleware(deps.Errors, deps.Log))
	router.Use(LoggingMiddleware(deps.Log))
	router.Use(middleware.Metrics)

	kb := keyboard.NewBuilder(deps.Translate, deps.Log)

	router.RegisterCommand("/start", handlers.NewStartHandler(deps.Translate, deps.Log))
	router.RegisterCommand("/help", handlers.NewHelpHandler(deps.Translate))
	router.RegisterCommand("/status", handlers.NewStatusHandler(deps.Settings, deps.Translate, deps.Log))
	router.RegisterCommand("/today", handlers.NewTodayHandler(deps.Settings, deps.Events, deps.Formatter, deps.Translate, deps.Log))
	router.RegisterCommand("/tomorrow", handlers.NewTomorrowHandler(deps.Settings, deps.Events, deps.Formatter, deps.Translate, deps.Log))
	router.RegisterCommand("/settings", handlers.NewSettingsHandler(deps.Settings, kb, deps.Translate, deps.Log))

	router.RegisterCallback(keyboard.DataToggleNotifications,
		handlers.HandleToggleNotifications(deps.Settings, deps.Translate, deps.Log))
	router.RegisterCallback(keyboard.DataToggleDailySummary,
		handlers.HandleToggleDailySummary(deps.Settings, deps.Scheduler, deps.Translate, deps.Log))
	router.RegisterCallback(keyboard.DataChangeReminderTime,
		handlers.HandleChangeReminderTime(deps.Translate))
	router.RegisterCallback(keyboard.DataChangeTimezone,
		handlers.HandleChangeTimezone(deps.Translate))

	router.SetDefault(handlers.NewQuickAddHandler(
		deps.Settings, deps.Events, deps.Scheduler, deps.Translate, deps.Log))

	tb.Handle(telebot.OnText, router.Route)
	tb.Handle(telebot.OnCallback, router.Route)

	return &Bot{
		telebot: tb,
		router:  router,
		log:     deps.Log,
	}, nil
}

// Start begins consuming updates. It blocks until Stop is called.
func (b *Bot) Start() {
	b.log.Info("bot started", slog.String("username", b.telebot.Me.Username))
	b.telebot.Start()
}

// Stop halts the update loop.
func (b *Bot) Stop() {
	b.telebot.Stop()
	b.log.Info("bot stopped")
}

// Telebot exposes the underlying client for health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func pollerFor(cfg *config.Config) (telebot.Poller, error) {
	switch cfg.Bot.Mode {
	case "", "polling":
		return &telebot.LongPoller{Timeout: cfg.Bot.Timeout}, nil
	case "webhook":
		if cfg.Bot.WebhookURL == "" {
			return nil, fmt.Errorf("bot: webhook mode requires bot.webhook_url")
		}
		return &telebot.Webhook{
			Listen: cfg.Bot.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{
				PublicURL: cfg.Bot.WebhookURL,
			},
		}, nil
	default:
		return nil, fmt.Errorf("bot: unsupported mode %q", cfg.Bot.Mode)
	}
}
