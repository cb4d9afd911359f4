package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/i18n"
	"github.com/horarios-app/horarios-bot/internal/notify"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/settings"
)

// NewTodayHandler lists the user's events for their current calendar day.
func NewTodayHandler(settingsSvc *settings.Service, events repository.EventRepository, formatter *notify.Formatter, t i18n.Translator, log *slog.Logger) Handler {
	return newDayListHandler(settingsSvc, events, formatter, t, log, 0, "events.today_header", "events.today_empty")
}

// NewTomorrowHandler lists the user's events for their next calendar day.
func NewTomorrowHandler(settingsSvc *settings.Service, events repository.EventRepository, formatter *notify.Formatter, t i18n.Translator, log *slog.Logger) Handler {
	return newDayListHandler(settingsSvc, events, formatter, t, log, 1, "events.tomorrow_header", "events.tomorrow_empty")
}

func newDayListHandler(
	settingsSvc *settings.Service,
	events repository.EventRepository,
	formatter *notify.Formatter,
	t i18n.Translator,
	log *slog.Logger,
	dayOffset int,
	headerKey, emptyKey string,
) Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Chat() == nil {
			return nil
		}

		ctx := context.Background()
		userSettings, err := settingsSvc.ByChatID(ctx, chatIDOf(c))
		if err != nil {
			if errors.Is(err, repository.ErrSettingsNotFound) {
				return c.Send(t.T("bot.not_linked"))
			}
			return err
		}

		loc := userSettings.Location()
		forDate := time.Now().In(loc).AddDate(0, 0, dayOffset)
		dayStart, dayEnd := userSettings.DayBounds(forDate)

		dayEvents, err := events.ActiveInRange(ctx, userSettings.UserID, dayStart, dayEnd)
		if err != nil {
			if log != nil {
				log.Error("event listing failed",
					slog.Int64("user_id", userSettings.UserID),
					slog.Any("error", err),
				)
			}
			return err
		}

		if len(dayEvents) == 0 {
			return c.Send(t.T(emptyKey))
		}

		return c.Send(
			formatter.EventList(headerKey, dayEvents, loc),
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown},
		)
	}
}
