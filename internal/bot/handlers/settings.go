package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/bot/keyboard"
	"github.com/horarios-app/horarios-bot/internal/domain"
	"github.com/horarios-app/horarios-bot/internal/i18n"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/scheduler"
	"github.com/horarios-app/horarios-bot/internal/settings"
)

// NewSettingsHandler returns the /settings command handler with the inline
// configuration menu.
func NewSettingsHandler(settingsSvc *settings.Service, kb *keyboard.Builder, t i18n.Translator, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Chat() == nil {
			return nil
		}

		userSettings, err := settingsSvc.ByChatID(context.Background(), chatIDOf(c))
		if err != nil {
			if errors.Is(err, repository.ErrSettingsNotFound) {
				return c.Send(t.T("bot.not_linked"))
			}

			if log != nil {
				log.Error("settings command failed", slog.Any("error", err))
			}
			return err
		}

		message := fmt.Sprintf(t.T("bot.settings_header"),
			enabledLabel(t, userSettings.NotificationsEnabled, true),
			enabledLabel(t, userSettings.DailySummaryEnabled, false),
			userSettings.DefaultReminderMinutes,
			userSettings.Timezone,
		)

		return c.Send(message, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown}, kb.SettingsMenu(userSettings))
	}
}

// HandleToggleNotifications flips reminder delivery for the user.
func HandleToggleNotifications(settingsSvc *settings.Service, t i18n.Translator, log *slog.Logger) CallbackHandler {
	return func(c telebot.Context) error {
		userSettings, err := linkedSettings(c, settingsSvc, t)
		if err != nil || userSettings == nil {
			return err
		}

		updated, err := settingsSvc.ToggleNotifications(context.Background(), userSettings.UserID)
		if err != nil {
			if log != nil {
				log.Error("toggle notifications failed", slog.Int64("user_id", userSettings.UserID), slog.Any("error", err))
			}
			return err
		}

		label := t.T("bot.disabled_f_lower")
		if updated.NotificationsEnabled {
			label = t.T("bot.enabled_f_lower")
		}

		return editOrSend(c, fmt.Sprintf(t.T("bot.notifications_toggled"), label))
	}
}

// HandleToggleDailySummary flips the digest and keeps the per-user summary
// job in sync: enabling schedules it, disabling cancels it.
func HandleToggleDailySummary(settingsSvc *settings.Service, schedulerSvc *scheduler.Service, t i18n.Translator, log *slog.Logger) CallbackHandler {
	return func(c telebot.Context) error {
		userSettings, err := linkedSettings(c, settingsSvc, t)
		if err != nil || userSettings == nil {
			return err
		}

		updated, err := settingsSvc.ToggleDailySummary(context.Background(), userSettings.UserID)
		if err != nil {
			if log != nil {
				log.Error("toggle daily summary failed", slog.Int64("user_id", userSettings.UserID), slog.Any("error", err))
			}
			return err
		}

		if updated.DailySummaryEnabled {
			if err := schedulerSvc.RescheduleUserDailySummary(updated); err != nil && log != nil {
				log.Error("failed to schedule daily summary job",
					slog.Int64("user_id", updated.UserID),
					slog.Any("error", err),
				)
			}
		} else {
			schedulerSvc.CancelUserDailySummary(updated.UserID)
		}

		label := t.T("bot.disabled_m_lower")
		if updated.DailySummaryEnabled {
			label = t.T("bot.enabled_m_lower")
		}

		return editOrSend(c, fmt.Sprintf(t.T("bot.daily_summary_toggled"), label))
	}
}

// HandleChangeReminderTime points the user to the web app; the reminder
// offset is edited there.
func HandleChangeReminderTime(t i18n.Translator) CallbackHandler {
	return func(c telebot.Context) error {
		return editOrSend(c, t.T("bot.change_reminder_web"))
	}
}

// HandleChangeTimezone points the user to the web app.
func HandleChangeTimezone(t i18n.Translator) CallbackHandler {
	return func(c telebot.Context) error {
		return editOrSend(c, t.T("bot.change_timezone_web"))
	}
}

// linkedSettings resolves the settings of the chat behind a callback,
// answering the callback with the not-linked notice when there are none.
func linkedSettings(c telebot.Context, settingsSvc *settings.Service, t i18n.Translator) (*domain.UserSettings, error) {
	if c == nil || c.Chat() == nil {
		return nil, nil
	}

	found, err := settingsSvc.ByChatID(context.Background(), chatIDOf(c))
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return nil, respondCallback(c, t.T("bot.not_linked"), true)
		}
		return nil, err
	}

	return found, nil
}

func editOrSend(c telebot.Context, text string) error {
	if c == nil {
		return nil
	}

	if c.Callback() != nil {
		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			return err
		}
		return c.Edit(text)
	}

	return c.Send(text)
}
