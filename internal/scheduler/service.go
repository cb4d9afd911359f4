package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/horarios-app/horarios-bot/internal/digest"
	"github.com/horarios-app/horarios-bot/internal/domain"
	apperrors "github.com/horarios-app/horarios-bot/internal/errors"
	"github.com/horarios-app/horarios-bot/internal/reminder"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/settings"
)

// Well-known job ids. Per-entity jobs derive their ids from these prefixes,
// so re-registering for the same entity replaces the old job.
const (
	jobCheckReminders = "check_reminders"
	jobDailySummaries = "daily_summaries"
	jobCleanupEvents  = "cleanup_events"

	reminderJobPrefix = "reminder_"
	summaryJobPrefix  = "daily_summary_"
)

// defaultSummariesAt is the UTC fallback sweep for digests; users with a
// per-user job get theirs at their configured local time instead.
const defaultSummariesAt = "08:00"

// Service exposes the domain-level scheduling operations on top of Core.
type Service struct {
	core      *Core
	events    repository.EventRepository
	reminders *reminder.Service
	digests   *digest.Service
	settings  *settings.Service

	retention time.Duration
	log       *slog.Logger
}

type Options struct {
	Core      *Core
	Events    repository.EventRepository
	Reminders *reminder.Service
	Digests   *digest.Service
	Settings  *settings.Service
	// RetentionDays is how long ended events stay active before cleanup
	// deactivates them.
	RetentionDays int
	Log           *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	return &Service{
		core:      opts.Core,
		events:    opts.Events,
		reminders: opts.Reminders,
		digests:   opts.Digests,
		settings:  opts.Settings,
		retention: time.Duration(opts.RetentionDays) * 24 * time.Hour,
		log:       opts.Log,
	}
}

// RegisterRecurringJobs installs the three standing jobs: the minutely
// reminder scan, the digest sweep, and the nightly event cleanup.
func (s *Service) RegisterRecurringJobs() error {
	if err := s.core.AddRecurring(jobCheckReminders, jobCheckReminders, "* * * * *", s.reminders.Scan); err != nil {
		return err
	}

	if err := s.core.AddDaily(jobDailySummaries, jobDailySummaries, defaultSummariesAt, s.sweepDailySummaries); err != nil {
		return err
	}

	return s.core.AddDaily(jobCleanupEvents, jobCleanupEvents, "00:00", s.cleanupEvents)
}

// sweepDailySummaries is the fallback digest delivery. Users with a
// per-user job registered are skipped here so their configured time wins
// even when it falls after the sweep instant.
func (s *Service) sweepDailySummaries(ctx context.Context) error {
	return s.digests.RunAll(ctx, func(userID int64) bool {
		return s.core.Has(summaryJobID(userID))
	})
}

func (s *Service) cleanupEvents(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.retention)

	count, err := s.events.DeactivateEndedBefore(ctx, cutoff)
	if err != nil {
		return apperrors.NewDataAccessError(err)
	}

	if count > 0 {
		s.log.Info("deactivated ended events",
			slog.Int64("count", count),
			slog.Time("cutoff", cutoff),
		)
	}

	return nil
}

// ScheduleEventReminder arms a precise one-shot trigger for the event's
// reminder instant. Instants already in the past are skipped silently; the
// polling scan covers those. The delivery guard keeps this trigger and the
// scan from both sending.
func (s *Service) ScheduleEventReminder(event *domain.Event) error {
	runAt := event.ReminderAt()
	if !runAt.After(time.Now()) {
		return nil
	}

	eventCopy := *event
	return s.core.AddOneShot(
		reminderJobID(event.ID),
		"event_reminder",
		runAt,
		func(ctx context.Context) error {
			return s.reminders.SendEventReminder(ctx, &eventCopy)
		},
	)
}

// CancelEventReminder drops the one-shot trigger for the event, if any.
func (s *Service) CancelEventReminder(eventID int64) {
	s.core.Cancel(reminderJobID(eventID))
}

// RescheduleUserDailySummary (re)installs the per-user digest job at the
// user's configured local time. The HH:MM is converted to UTC using the
// user's current offset; a DST shift moves delivery by an hour until the
// next reschedule.
func (s *Service) RescheduleUserDailySummary(userSettings *domain.UserSettings) error {
	hour, minute, err := parseHHMM(userSettings.DailySummaryTime)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	loc := userSettings.Location()
	now := time.Now().In(loc)
	localRun := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	utcRun := localRun.UTC()

	userID := userSettings.UserID
	return s.core.AddRecurring(
		summaryJobID(userID),
		"user_daily_summary",
		cronSpecDaily(utcRun.Hour(), utcRun.Minute()),
		func(ctx context.Context) error {
			return s.digests.SendForUser(ctx, userID)
		},
	)
}

// CancelUserDailySummary drops the per-user digest job, if any.
func (s *Service) CancelUserDailySummary(userID int64) {
	s.core.Cancel(summaryJobID(userID))
}

// RestoreDailySummaries re-registers per-user digest jobs after a restart.
// One bad row does not block the rest.
func (s *Service) RestoreDailySummaries(ctx context.Context) error {
	recipients, err := s.settings.DigestRecipients(ctx)
	if err != nil {
		return apperrors.NewDataAccessError(err)
	}

	for i := range recipients {
		userSettings := recipients[i]
		if err := s.RescheduleUserDailySummary(&userSettings); err != nil {
			s.log.Error("failed to restore daily summary job",
				slog.Int64("user_id", userSettings.UserID),
				slog.Any("error", err),
			)
		}
	}

	s.log.Info("daily summary jobs restored", slog.Int("count", len(recipients)))

	return nil
}

// Status exposes the core snapshot.
func (s *Service) Status() Snapshot {
	return s.core.Status()
}

// Shutdown stops the core.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.core.Shutdown(ctx)
}

func reminderJobID(eventID int64) string {
	return fmt.Sprintf("%s%d", reminderJobPrefix, eventID)
}

func summaryJobID(userID int64) string {
	return fmt.Sprintf("%s%d", summaryJobPrefix, userID)
}
