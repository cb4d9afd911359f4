package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/domain"
	"github.com/horarios-app/horarios-bot/internal/i18n"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/scheduler"
	"github.com/horarios-app/horarios-bot/internal/settings"
)

// NewQuickAddHandler turns free text like
// "Dentista | 15/03/2026 10:30 | 11:15" into a stored event with a precise
// reminder. It is the default handler, so anything that is not a command
// lands here.
func NewQuickAddHandler(
	settingsSvc *settings.Service,
	events repository.EventRepository,
	schedulerSvc *scheduler.Service,
	t i18n.Translator,
	log *slog.Logger,
) Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Chat() == nil {
			return nil
		}

		text := strings.TrimSpace(c.Text())
		if text == "" {
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
		quick, err := domain.ParseQuickEvent(text, loc)
		switch {
		case errors.Is(err, domain.ErrQuickEventRange):
			return c.Send(t.T("quickadd.bad_range"))
		case err != nil:
			return c.Send(t.T("quickadd.bad_format"), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		event := &domain.Event{
			UserID:          userSettings.UserID,
			Title:           quick.Title,
			StartTime:       quick.StartTime.UTC(),
			EndTime:         quick.EndTime.UTC(),
			ReminderMinutes: userSettings.DefaultReminderMinutes,
			IsActive:        true,
		}

		if err := events.Create(ctx, event); err != nil {
			if log != nil {
				log.Error("quick add create failed",
					slog.Int64("user_id", userSettings.UserID),
					slog.Any("error", err),
				)
			}
			return err
		}

		if err := schedulerSvc.ScheduleEventReminder(event); err != nil && log != nil {
			log.Error("quick add reminder scheduling failed",
				slog.Int64("event_id", event.ID),
				slog.Any("error", err),
			)
		}

		local := quick.StartTime.In(loc)
		reply := fmt.Sprintf(t.T("quickadd.success"),
			quick.Title,
			local.Format("02/01/2006"),
			local.Format("15:04"),
		)

		return c.Send(reply, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}
}
