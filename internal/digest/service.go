// Package digest builds and delivers daily schedule summaries. Day
// boundaries are evaluated in each user's configured timezone, so "today"
// means the user's today, not the server's.
package digest

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

// deliveryTTL prevents a second summary for the same user and day.
const deliveryTTL = 36 * time.Hour

// Service assembles and delivers daily summaries.
type Service struct {
	events    repository.EventRepository
	settings  *settings.Service
	channel   notify.Channel
	formatter *notify.Formatter
	guard     *idempotency.Guard
	log       *slog.Logger
}

func NewService(
	events repository.EventRepository,
	settingsSvc *settings.Service,
	channel notify.Channel,
	formatter *notify.Formatter,
	guard *idempotency.Guard,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		events:    events,
		settings:  settingsSvc,
		channel:   channel,
		formatter: formatter,
		guard:     guard,
		log:       log,
	}
}

// BuildDailySummary loads the user's active events for the calendar day
// containing forDate, in the user's timezone, ordered by start time.
func (s *Service) BuildDailySummary(ctx context.Context, userSettings *domain.UserSettings, forDate time.Time) ([]domain.Event, error) {
	dayStart, dayEnd := userSettings.DayBounds(forDate)

	events, err := s.events.ActiveInRange(ctx, userSettings.UserID, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.NewDataAccessError(err)
	}

	return events, nil
}

// SendDailySummary delivers the summary for forDate to one user. An empty
// day still produces a message. Delivery happens at most once per user and
// day, keyed on the user's local date.
func (s *Service) SendDailySummary(ctx context.Context, userSettings *domain.UserSettings, forDate time.Time) error {
	if !userSettings.WantsDigest() {
		metrics.RecordDigest("skipped")
		return nil
	}

	events, err := s.BuildDailySummary(ctx, userSettings, forDate)
	if err != nil {
		metrics.RecordDigest("error")
		return err
	}

	localDay := forDate.In(userSettings.Location())
	key := idempotency.DigestKey(userSettings.UserID, localDay)

	err = s.guard.Once(ctx, key, deliveryTTL, func(ctx context.Context) error {
		text := s.formatter.DailySummary(events, userSettings.Location())
		return s.channel.Send(ctx, userSettings.TelegramChatID, text)
	})

	switch {
	case errors.Is(err, idempotency.ErrAlreadyDelivered):
		metrics.RecordDigest("duplicate")
		return nil
	case err != nil:
		metrics.RecordDigest("error")
		return err
	}

	metrics.RecordDigest("sent")
	s.log.Info("daily summary sent",
		slog.Int64("user_id", userSettings.UserID),
		slog.Int("events", len(events)),
	)

	return nil
}

// SendForUser re-reads the user's settings and delivers today's summary.
// Used by per-user scheduled jobs, where preferences may have changed since
// the job was registered.
func (s *Service) SendForUser(ctx context.Context, userID int64) error {
	userSettings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return err
	}

	return s.SendDailySummary(ctx, userSettings, time.Now().UTC())
}

// RunAll delivers today's summary to every user with the digest enabled,
// except those the skip predicate claims are handled elsewhere (a nil skip
// delivers to everyone). Per-user failures are logged and do not stop the
// run.
func (s *Service) RunAll(ctx context.Context, skip func(userID int64) bool) error {
	recipients, err := s.settings.DigestRecipients(ctx)
	if err != nil {
		return apperrors.NewDataAccessError(err)
	}

	now := time.Now().UTC()
	for i := range recipients {
		userSettings := recipients[i]
		if skip != nil && skip(userSettings.UserID) {
			continue
		}
		if err := s.SendDailySummary(ctx, &userSettings, now); err != nil {
			s.log.Error("daily summary delivery failed",
				slog.Int64("user_id", userSettings.UserID),
				slog.Any("error", err),
			)
		}
	}

	return nil
}
