package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/i18n"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/settings"
)

// NewStatusHandler reports whether the chat is linked to an account and,
// when it is, the user's current notification preferences.
func NewStatusHandler(settingsSvc *settings.Service, t i18n.Translator, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Chat() == nil {
			return nil
		}

		chatID := chatIDOf(c)
		userSettings, err := settingsSvc.ByChatID(context.Background(), chatID)
		if err != nil {
			if errors.Is(err, repository.ErrSettingsNotFound) {
				return c.Send(
					fmt.Sprintf(t.T("bot.status_unlinked"), c.Chat().ID),
					&telebot.SendOptions{ParseMode: telebot.ModeMarkdown},
				)
			}

			if log != nil {
				log.Error("status command failed", slog.String("chat_id", chatID), slog.Any("error", err))
			}
			return err
		}

		message := fmt.Sprintf(t.T("bot.status_linked"),
			enabledLabel(t, userSettings.NotificationsEnabled, true),
			enabledLabel(t, userSettings.DailySummaryEnabled, false),
			userSettings.DefaultReminderMinutes,
			userSettings.Timezone,
		)

		return c.Send(message, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}
}
