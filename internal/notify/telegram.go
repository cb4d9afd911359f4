package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/horarios-app/horarios-bot/internal/errors"
	"github.com/horarios-app/horarios-bot/internal/ratelimit"
	"github.com/horarios-app/horarios-bot/pkg/metrics"
)

// TelegramChannel delivers messages through the Telegram Bot API. Sends go
// through a per-chat and a global rate limiter, then a circuit breaker, so
// a Telegram outage degrades to fast local failures instead of piling up
// blocked workers.
type TelegramChannel struct {
	bot     *telebot.Bot
	limiter ratelimit.Limiter
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

var _ Channel = (*TelegramChannel)(nil)

// NewTelegramChannel wires the bot to the shared limiter and a fresh breaker.
func NewTelegramChannel(bot *telebot.Bot, limiter ratelimit.Limiter, log *slog.Logger) *TelegramChannel {
	if log == nil {
		log = slog.Default()
	}

	return &TelegramChannel{
		bot:     bot,
		limiter: limiter,
		breaker: apperrors.NewCircuitBreaker(),
		log:     log,
	}
}

// Send delivers text to the chat as Markdown. Errors are wrapped as channel
// delivery failures and are never retried by this layer.
func (c *TelegramChannel) Send(ctx context.Context, chatID, text string) error {
	numericID, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return apperrors.NewChannelDeliveryError(fmt.Errorf("invalid chat id %q: %w", chatID, err))
	}

	if err := c.checkBudget(ctx, chatID); err != nil {
		return err
	}

	sendErr := c.breaker.Call(func() error {
		_, err := c.bot.Send(telebot.ChatID(numericID), text, &telebot.SendOptions{
			ParseMode: telebot.ModeMarkdown,
		})
		return err
	})
	if sendErr != nil {
		metrics.RecordChannelError()
		c.log.Error("telegram send failed",
			slog.String("chat_id", chatID),
			slog.Any("error", sendErr),
		)
		return apperrors.NewChannelDeliveryError(sendErr)
	}

	return nil
}

func (c *TelegramChannel) checkBudget(ctx context.Context, chatID string) error {
	if c.limiter == nil {
		return nil
	}

	if _, err := c.limiter.Check(ctx, "send:global", ratelimit.GlobalSendLimit, ratelimit.GlobalSendWindow); err != nil {
		return apperrors.NewChannelDeliveryError(fmt.Errorf("global send budget: %w", err))
	}

	if _, err := c.limiter.Check(ctx, ratelimit.ChatKey(chatID), ratelimit.PerChatLimit, ratelimit.PerChatWindow); err != nil {
		return apperrors.NewChannelDeliveryError(fmt.Errorf("chat send budget: %w", err))
	}

	return nil
}
