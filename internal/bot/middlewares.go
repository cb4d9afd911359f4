package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/horarios-app/horarios-bot/internal/errors"
	"github.com/horarios-app/horarios-bot/internal/bot/handlers"
)

// RecoveryMiddleware converts handler panics into a logged error and a
// generic apology to the user. The update is never re-raised.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("handler panic",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)

					userMsg, _ := errHandler.Handle(context.Background(), fmt.Errorf("panic: %v", r))
					if sendErr := c.Send(userMsg); sendErr != nil {
						log.Error("failed to notify user after panic", slog.Any("error", sendErr))
					}
					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware translates handler errors into a localized user
// message and swallows them so telebot does not retry the update.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler, log *slog.Logger) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg, retryable := errHandler.Handle(context.Background(), err)
			log.Error("handler error",
				slog.Any("error", err),
				slog.Bool("retryable", retryable),
			)

			if sendErr := c.Send(userMsg); sendErr != nil {
				log.Error("failed to send error message", slog.Any("error", sendErr))
			}

			return nil
		}
	}
}

// LoggingMiddleware records every routed update with its latency.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			start := time.Now()
			err := next(c)

			attrs := []any{
				slog.Duration("duration", time.Since(start)),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			if cb := c.Callback(); cb != nil {
				attrs = append(attrs, slog.String("callback", cb.Data))
			} else if text := c.Text(); text != "" {
				attrs = append(attrs, slog.Int("text_len", len(text)))
			}

			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
				log.Error("update failed", attrs...)
			} else {
				log.Debug("update handled", attrs...)
			}

			return err
		}
	}
}
