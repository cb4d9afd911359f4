package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horarios-app/horarios-bot/internal/digest"
	"github.com/horarios-app/horarios-bot/internal/domain"
	apperrors "github.com/horarios-app/horarios-bot/internal/errors"
	"github.com/horarios-app/horarios-bot/internal/i18n"
	"github.com/horarios-app/horarios-bot/internal/idempotency"
	"github.com/horarios-app/horarios-bot/internal/notify"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/settings"
	"github.com/horarios-app/horarios-bot/internal/state"
)

type fakeEventRepo struct {
	mu         sync.Mutex
	fail       error
	cutoff     time.Time
	cutoffSeen bool
}

func (r *fakeEventRepo) ActiveInRange(context.Context, int64, time.Time, time.Time) ([]domain.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) ActiveUpcoming(context.Context, time.Time, time.Duration) ([]domain.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) Create(context.Context, *domain.Event) error { return nil }

func (r *fakeEventRepo) SetActive(context.Context, int64, bool) error { return nil }

func (r *fakeEventRepo) DeactivateEndedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		return 0, r.fail
	}
	r.cutoff = cutoff
	r.cutoffSeen = true
	return 0, nil
}

type fakeSettingsRepo struct {
	rows map[int64]*domain.UserSettings
}

func (r *fakeSettingsRepo) GetOrCreateByUser(_ context.Context, userID int64) (*domain.UserSettings, error) {
	if s, ok := r.rows[userID]; ok {
		copied := *s
		return &copied, nil
	}
	return domain.NewDefaultSettings(userID), nil
}

func (r *fakeSettingsRepo) ByChatID(context.Context, string) (*domain.UserSettings, error) {
	return nil, repository.ErrSettingsNotFound
}

func (r *fakeSettingsRepo) WithDigestEnabled(context.Context) ([]domain.UserSettings, error) {
	var out []domain.UserSettings
	for _, s := range r.rows {
		if s.WantsDigest() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSettingsRepo) Update(context.Context, *domain.UserSettings) error { return nil }

type recordingChannel struct {
	mu      sync.Mutex
	chatIDs []string
}

func (c *recordingChannel) Send(_ context.Context, chatID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatIDs = append(c.chatIDs, chatID)
	return nil
}

func (c *recordingChannel) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.chatIDs...)
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	core := NewCore(2, state.NewTracker(log), log)
	require.NoError(t, core.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = core.Shutdown(ctx)
	})

	return NewService(Options{Core: core, Log: log})
}

func TestRescheduleUserDailySummary_ReplacesPreviousJob(t *testing.T) {
	svc := newTestService(t)

	userSettings := domain.NewDefaultSettings(9)
	require.NoError(t, svc.RescheduleUserDailySummary(userSettings))

	userSettings.DailySummaryTime = "09:30"
	require.NoError(t, svc.RescheduleUserDailySummary(userSettings))

	snapshot := svc.Status()
	require.Len(t, snapshot.Jobs, 1)
	assert.Equal(t, "daily_summary_9", snapshot.Jobs[0].ID)
	assert.Equal(t, "30 9 * * *", snapshot.Jobs[0].Spec)
}

func TestRescheduleUserDailySummary_RejectsBadTime(t *testing.T) {
	svc := newTestService(t)

	userSettings := domain.NewDefaultSettings(9)
	userSettings.DailySummaryTime = "25:00"

	err := svc.RescheduleUserDailySummary(userSettings)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E100", appErr.Code)
	assert.Empty(t, svc.Status().Jobs)
}

func TestScheduleEventReminder_PastInstantIsSkipped(t *testing.T) {
	svc := newTestService(t)

	event := &domain.Event{
		ID:              4,
		UserID:          1,
		Title:           "Pasado",
		StartTime:       time.Now().Add(-time.Hour),
		EndTime:         time.Now().Add(-30 * time.Minute),
		ReminderMinutes: 30,
		IsActive:        true,
	}

	require.NoError(t, svc.ScheduleEventReminder(event))
	assert.Empty(t, svc.Status().Jobs)
}

func TestCancelEventReminder_UnknownIsNoop(t *testing.T) {
	svc := newTestService(t)

	svc.CancelEventReminder(12345)
	assert.Empty(t, svc.Status().Jobs)
}

func TestSweepDailySummaries_SkipsUsersWithTheirOwnJob(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	core := NewCore(2, state.NewTracker(log), log)
	require.NoError(t, core.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = core.Shutdown(ctx)
	})

	custom := domain.NewDefaultSettings(1)
	custom.TelegramChatID = "111"
	custom.DailySummaryEnabled = true
	custom.DailySummaryTime = "21:00"

	plain := domain.NewDefaultSettings(2)
	plain.TelegramChatID = "222"
	plain.DailySummaryEnabled = true

	repo := &fakeSettingsRepo{rows: map[int64]*domain.UserSettings{1: custom, 2: plain}}
	settingsSvc := settings.NewService(repo, nil, log)

	manager, err := i18n.LoadFromDir("../i18n", "es")
	require.NoError(t, err)

	channel := &recordingChannel{}
	digests := digest.NewService(
		&fakeEventRepo{},
		settingsSvc,
		channel,
		notify.NewFormatter(manager.Translator("es")),
		idempotency.NewGuard(nil, log),
		log,
	)

	svc := NewService(Options{Core: core, Digests: digests, Settings: settingsSvc, Log: log})

	// User 1 has a job at their configured time; the sweep must leave their
	// digest to that job instead of delivering it early.
	require.NoError(t, svc.RescheduleUserDailySummary(custom))
	require.NoError(t, svc.sweepDailySummaries(context.Background()))

	assert.Equal(t, []string{"222"}, channel.all())
}

func TestCleanupEvents_UsesRetentionCutoff(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := &fakeEventRepo{}
	svc := NewService(Options{Events: events, RetentionDays: 7, Log: log})

	require.NoError(t, svc.cleanupEvents(context.Background()))

	require.True(t, events.cutoffSeen)
	assert.WithinDuration(t, time.Now().UTC().Add(-7*24*time.Hour), events.cutoff, time.Second)
}

func TestCleanupEvents_DefaultsToThirtyDays(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := &fakeEventRepo{}
	svc := NewService(Options{Events: events, Log: log})

	require.NoError(t, svc.cleanupEvents(context.Background()))

	require.True(t, events.cutoffSeen)
	assert.WithinDuration(t, time.Now().UTC().Add(-30*24*time.Hour), events.cutoff, time.Second)
}

func TestCleanupEvents_WrapsRepositoryErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := &fakeEventRepo{fail: errors.New("db down")}
	svc := NewService(Options{Events: events, Log: log})

	err := svc.cleanupEvents(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
}
