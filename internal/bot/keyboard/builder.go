// Package keyboard renders the inline keyboards used by the bot.
package keyboard

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/domain"
	"github.com/horarios-app/horarios-bot/internal/i18n"
)

// Callback data values understood by the settings menu.
const (
	DataToggleNotifications = "toggle_notifications"
	DataToggleDailySummary  = "toggle_daily_summary"
	DataChangeReminderTime  = "change_reminder_time"
	DataChangeTimezone      = "change_timezone"
)

// Builder creates inline keyboards from the current user settings.
type Builder struct {
	t   i18n.Translator
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(t i18n.Translator, log *slog.Logger) *Builder {
	return &Builder{t: t, log: log}
}

// SettingsMenu builds the /settings keyboard. The toggle buttons show the
// current state so the user sees what a tap will change.
func (b *Builder) SettingsMenu(settings *domain.UserSettings) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: fmt.Sprintf(b.t.T("bot.settings_notifications_button"), b.onOff(settings.NotificationsEnabled)),
				Data: DataToggleNotifications,
			},
		},
		{
			{
				Text: fmt.Sprintf(b.t.T("bot.settings_daily_summary_button"), b.onOff(settings.DailySummaryEnabled)),
				Data: DataToggleDailySummary,
			},
		},
		{
			{
				Text: b.t.T("bot.settings_reminder_time_button"),
				Data: DataChangeReminderTime,
			},
		},
		{
			{
				Text: b.t.T("bot.settings_timezone_button"),
				Data: DataChangeTimezone,
			},
		},
	}

	return markup
}

func (b *Builder) onOff(value bool) string {
	if value {
		return b.t.T("bot.on")
	}
	return b.t.T("bot.off")
}
