package middleware

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces the per-user budget for incoming Telegram
// updates. Limiter failures let the update through; throttling the bot is
// never worth dropping commands on infrastructure errors.
type RateLimitMiddleware struct {
	limiter         ratelimit.Limiter
	limitedResponse string
	log             *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
// limitedResponse is the localized message sent to throttled users.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, limitedResponse string, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter:         limiter,
		limitedResponse: limitedResponse,
		log:             log,
	}
}

// Handle returns a telebot middleware enforcing the per-user limit.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		result, err := m.limiter.Check(context.Background(),
			ratelimit.UserKey(sender.ID), ratelimit.PerUserLimit, ratelimit.PerUserWindow)
		if err != nil && result == nil {
			m.log.Warn("rate limiter error", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return next(c)
		}

		if result != nil && !result.Allowed {
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", sender.ID))
			return c.Send(m.limitedResponse)
		}

		return next(c)
	}
}
