package reminder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/horarios-app/horarios-bot/internal/domain"
	apperrors "github.com/horarios-app/horarios-bot/internal/errors"
	"github.com/horarios-app/horarios-bot/internal/idempotency"
	"github.com/horarios-app/horarios-bot/internal/notify"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/settings"
	"github.com/horarios-app/horarios-bot/pkg/metrics"
)

// deliveryTTL keeps a reminder's delivery key alive long past its window so
// late triggers cannot resend it.
const deliveryTTL = 24 * time.Hour

// Service scans for due reminders and delivers them through the channel.
type Service struct {
	events    repository.EventRepository
	settings  *settings.Service
	channel   notify.Channel
	formatter *notify.Formatter
	guard     *idempotency.Guard
	window    time.Duration
	tolerance time.Duration
	log       *slog.Logger
}

type Config struct {
	Events    repository.EventRepository
	Settings  *settings.Service
	Channel   notify.Channel
	Formatter *notify.Formatter
	Guard     *idempotency.Guard
	// Window bounds the upcoming-events query of each scan.
	Window time.Duration
	// Tolerance is the half-width of the due window around a reminder
	// instant.
	Tolerance time.Duration
	Log       *slog.Logger
}

func NewService(cfg Config) *Service {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = time.Minute
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	return &Service{
		events:    cfg.Events,
		settings:  cfg.Settings,
		channel:   cfg.Channel,
		formatter: cfg.Formatter,
		guard:     cfg.Guard,
		window:    cfg.Window,
		tolerance: cfg.Tolerance,
		log:       cfg.Log,
	}
}

// Scan finds reminders due around now and sends them. One failed event does
// not abort the scan; the error reported is the scan-level failure only, so
// a data access problem surfaces while delivery problems stay per-event.
func (s *Service) Scan(ctx context.Context) error {
	now := time.Now().UTC()

	upcoming, err := s.events.ActiveUpcoming(ctx, now.Add(-s.tolerance), s.window+2*s.tolerance)
	if err != nil {
		return apperrors.NewDataAccessError(err)
	}

	due := DueReminders(now, s.tolerance, upcoming)
	if len(due) == 0 {
		return nil
	}

	s.log.Info("reminder scan found due events", slog.Int("count", len(due)))

	for i := range due {
		event := due[i]
		if err := s.SendEventReminder(ctx, &event); err != nil {
			s.log.Error("reminder delivery failed",
				slog.Int64("event_id", event.ID),
				slog.Int64("user_id", event.UserID),
				slog.Any("error", err),
			)
		}
	}

	return nil
}

// SendEventReminder delivers the reminder for one event, exactly once per
// (event, start time) pair. Users without a linked chat or with
// notifications disabled are skipped silently.
func (s *Service) SendEventReminder(ctx context.Context, event *domain.Event) error {
	userSettings, err := s.settings.Get(ctx, event.UserID)
	if err != nil {
		return err
	}

	if !userSettings.CanNotify() {
		metrics.RecordReminder("skipped")
		return nil
	}

	key := idempotency.ReminderKey(event.ID, event.StartTime)
	err = s.guard.Once(ctx, key, deliveryTTL, func(ctx context.Context) error {
		text := s.formatter.Reminder(event, userSettings.Location())
		return s.channel.Send(ctx, userSettings.TelegramChatID, text)
	})

	switch {
	case errors.Is(err, idempotency.ErrAlreadyDelivered):
		metrics.RecordReminder("duplicate")
		return nil
	case err != nil:
		metrics.RecordReminder("error")
		return err
	}

	metrics.RecordReminder("sent")
	s.log.Info("reminder sent",
		slog.Int64("event_id", event.ID),
		slog.Int64("user_id", event.UserID),
	)

	return nil
}
