package digest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horarios-app/horarios-bot/internal/domain"
	"github.com/horarios-app/horarios-bot/internal/i18n"
	"github.com/horarios-app/horarios-bot/internal/idempotency"
	"github.com/horarios-app/horarios-bot/internal/notify"
	"github.com/horarios-app/horarios-bot/internal/settings"
)

type fakeEventRepo struct {
	mu        sync.Mutex
	events    []domain.Event
	lastStart time.Time
	lastEnd   time.Time
}

func (r *fakeEventRepo) ActiveInRange(_ context.Context, userID int64, start, end time.Time) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastStart, r.lastEnd = start, end

	var result []domain.Event
	for _, event := range r.events {
		if event.UserID != userID || !event.IsActive {
			continue
		}
		if event.StartTime.Before(start) || event.StartTime.After(end) {
			continue
		}
		result = append(result, event)
	}
	return result, nil
}

func (r *fakeEventRepo) ActiveUpcoming(context.Context, time.Time, time.Duration) ([]domain.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) Create(context.Context, *domain.Event) error { return nil }

func (r *fakeEventRepo) SetActive(context.Context, int64, bool) error { return nil }

func (r *fakeEventRepo) DeactivateEndedBefore(context.Context, time.Time) (int64, error) {
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
	return nil, nil
}

func (r *fakeSettingsRepo) WithDigestEnabled(context.Context) ([]domain.UserSettings, error) {
	var result []domain.UserSettings
	for _, s := range r.rows {
		if s.WantsDigest() {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (r *fakeSettingsRepo) Update(context.Context, *domain.UserSettings) error { return nil }

type recordingChannel struct {
	mu    sync.Mutex
	texts []string
}

func (c *recordingChannel) Send(_ context.Context, _, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

func (c *recordingChannel) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func digestUser(userID int64, tz string) *domain.UserSettings {
	s := domain.NewDefaultSettings(userID)
	s.TelegramChatID = "777"
	s.DailySummaryEnabled = true
	s.Timezone = tz
	return s
}

func newTestService(t *testing.T, events *fakeEventRepo, settingsRepo *fakeSettingsRepo, channel notify.Channel) *Service {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	manager, err := i18n.LoadFromDir("../i18n", "es")
	require.NoError(t, err)

	return NewService(
		events,
		settings.NewService(settingsRepo, nil, log),
		channel,
		notify.NewFormatter(manager.Translator("es")),
		idempotency.NewGuard(idempotency.NewRedisStore(client, log), log),
		log,
	)
}

func TestBuildDailySummary_UsesUserTimezoneBounds(t *testing.T) {
	events := &fakeEventRepo{}
	user := digestUser(1, "America/Mexico_City")
	svc := newTestService(t, events, &fakeSettingsRepo{rows: map[int64]*domain.UserSettings{1: user}}, &recordingChannel{})

	// 03:00 UTC on June 2 is still June 1 in Mexico City (UTC-6).
	forDate := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	_, err := svc.BuildDailySummary(context.Background(), user, forDate)
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	assert.True(t, events.lastStart.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, loc)))
	assert.Equal(t, 1, events.lastEnd.In(loc).Day())
}

func TestSendDailySummary_EmptyDayStillSends(t *testing.T) {
	user := digestUser(1, "UTC")
	channel := &recordingChannel{}
	svc := newTestService(t, &fakeEventRepo{}, &fakeSettingsRepo{rows: map[int64]*domain.UserSettings{1: user}}, channel)

	require.NoError(t, svc.SendDailySummary(context.Background(), user, time.Now().UTC()))

	sent := channel.all()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "No tienes eventos programados para hoy.")
}

func TestSendDailySummary_ListsEventsOfTheDay(t *testing.T) {
	user := digestUser(1, "UTC")
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	events := &fakeEventRepo{events: []domain.Event{
		{
			ID: 1, UserID: 1, Title: "Gimnasio", IsActive: true,
			StartTime: day.Add(8 * time.Hour), EndTime: day.Add(9 * time.Hour),
		},
		{
			ID: 2, UserID: 1, Title: "Reunión", IsActive: true,
			StartTime: day.Add(26 * time.Hour), EndTime: day.Add(27 * time.Hour),
		},
	}}

	channel := &recordingChannel{}
	svc := newTestService(t, events, &fakeSettingsRepo{rows: map[int64]*domain.UserSettings{1: user}}, channel)

	require.NoError(t, svc.SendDailySummary(context.Background(), user, day.Add(6*time.Hour)))

	sent := channel.all()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Gimnasio")
	assert.NotContains(t, sent[0], "Reunión")
}

func TestSendDailySummary_OncePerUserAndDay(t *testing.T) {
	user := digestUser(1, "UTC")
	channel := &recordingChannel{}
	svc := newTestService(t, &fakeEventRepo{}, &fakeSettingsRepo{rows: map[int64]*domain.UserSettings{1: user}}, channel)

	now := time.Now().UTC()
	require.NoError(t, svc.SendDailySummary(context.Background(), user, now))
	require.NoError(t, svc.SendDailySummary(context.Background(), user, now))

	assert.Len(t, channel.all(), 1)
}

func TestSendDailySummary_SkipsDisabledUsers(t *testing.T) {
	user := digestUser(1, "UTC")
	user.DailySummaryEnabled = false

	channel := &recordingChannel{}
	svc := newTestService(t, &fakeEventRepo{}, &fakeSettingsRepo{rows: map[int64]*domain.UserSettings{1: user}}, channel)

	require.NoError(t, svc.SendDailySummary(context.Background(), user, time.Now().UTC()))
	assert.Empty(t, channel.all())
}

func TestRunAll_DeliversToEveryEnabledUser(t *testing.T) {
	repo := &fakeSettingsRepo{rows: map[int64]*domain.UserSettings{
		1: digestUser(1, "UTC"),
		2: digestUser(2, "UTC"),
		3: func() *domain.UserSettings {
			s := digestUser(3, "UTC")
			s.DailySummaryEnabled = false
			return s
		}(),
	}}

	channel := &recordingChannel{}
	svc := newTestService(t, &fakeEventRepo{}, repo, channel)

	require.NoError(t, svc.RunAll(context.Background(), nil))

	sent := channel.all()
	assert.Len(t, sent, 2)
	for _, text := range sent {
		assert.True(t, strings.Contains(text, "Resumen del día"))
	}
}

func TestRunAll_SkipPredicateExcludesUsers(t *testing.T) {
	repo := &fakeSettingsRepo{rows: map[int64]*domain.UserSettings{
		1: digestUser(1, "UTC"),
		2: digestUser(2, "UTC"),
	}}

	channel := &recordingChannel{}
	svc := newTestService(t, &fakeEventRepo{}, repo, channel)

	require.NoError(t, svc.RunAll(context.Background(), func(userID int64) bool {
		return userID == 2
	}))

	assert.Len(t, channel.all(), 1)
}
