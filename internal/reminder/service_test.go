package reminder

import (
	"context"
	"io"
	"log/slog"
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

type fakeSettingsRepo struct {
	settings map[int64]*domain.UserSettings
}

func (r *fakeSettingsRepo) GetOrCreateByUser(_ context.Context, userID int64) (*domain.UserSettings, error) {
	if s, ok := r.settings[userID]; ok {
		copied := *s
		return &copied, nil
	}
	return domain.NewDefaultSettings(userID), nil
}

func (r *fakeSettingsRepo) ByChatID(context.Context, string) (*domain.UserSettings, error) {
	return nil, nil
}

func (r *fakeSettingsRepo) WithDigestEnabled(context.Context) ([]domain.UserSettings, error) {
	return nil, nil
}

func (r *fakeSettingsRepo) Update(context.Context, *domain.UserSettings) error {
	return nil
}

type recordingChannel struct {
	mu    sync.Mutex
	sends []string
	fail  error
}

func (c *recordingChannel) Send(_ context.Context, chatID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fail != nil {
		return c.fail
	}
	c.sends = append(c.sends, chatID+"|"+text)
	return nil
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

func newTestService(t *testing.T, channel notify.Channel, repo *fakeSettingsRepo) *Service {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	manager, err := i18n.LoadFromDir("../i18n", "es")
	require.NoError(t, err)

	return NewService(Config{
		Settings:  settings.NewService(repo, nil, log),
		Channel:   channel,
		Formatter: notify.NewFormatter(manager.Translator("es")),
		Guard:     idempotency.NewGuard(idempotency.NewRedisStore(client, log), log),
		Log:       log,
	})
}

func linkedRepo(userID int64) *fakeSettingsRepo {
	s := domain.NewDefaultSettings(userID)
	s.TelegramChatID = "555"
	return &fakeSettingsRepo{settings: map[int64]*domain.UserSettings{userID: s}}
}

func TestSendEventReminder_DeliversOnce(t *testing.T) {
	channel := &recordingChannel{}
	svc := newTestService(t, channel, linkedRepo(1))

	event := eventAt(42, time.Now().UTC().Add(30*time.Minute), 30)

	// The polling scan and a one-shot trigger may both fire for the
	// same event. Only one send must reach the channel.
	require.NoError(t, svc.SendEventReminder(context.Background(), &event))
	require.NoError(t, svc.SendEventReminder(context.Background(), &event))

	assert.Equal(t, 1, channel.count())
}

func TestSendEventReminder_RescheduledEventRemindsAgain(t *testing.T) {
	channel := &recordingChannel{}
	svc := newTestService(t, channel, linkedRepo(1))

	event := eventAt(42, time.Now().UTC().Add(30*time.Minute), 30)
	require.NoError(t, svc.SendEventReminder(context.Background(), &event))

	moved := event
	moved.StartTime = event.StartTime.Add(2 * time.Hour)
	moved.EndTime = event.EndTime.Add(2 * time.Hour)
	require.NoError(t, svc.SendEventReminder(context.Background(), &moved))

	assert.Equal(t, 2, channel.count())
}

func TestSendEventReminder_SkipsWhenNotificationsDisabled(t *testing.T) {
	repo := linkedRepo(1)
	repo.settings[1].NotificationsEnabled = false

	channel := &recordingChannel{}
	svc := newTestService(t, channel, repo)

	event := eventAt(42, time.Now().UTC().Add(30*time.Minute), 30)
	require.NoError(t, svc.SendEventReminder(context.Background(), &event))

	assert.Zero(t, channel.count())
}

func TestSendEventReminder_SkipsUnlinkedUser(t *testing.T) {
	channel := &recordingChannel{}
	svc := newTestService(t, channel, &fakeSettingsRepo{})

	event := eventAt(42, time.Now().UTC().Add(30*time.Minute), 30)
	require.NoError(t, svc.SendEventReminder(context.Background(), &event))

	assert.Zero(t, channel.count())
}

func TestSendEventReminder_FailedSendIsNotRetried(t *testing.T) {
	channel := &recordingChannel{fail: assert.AnError}
	svc := newTestService(t, channel, linkedRepo(1))

	event := eventAt(42, time.Now().UTC().Add(30*time.Minute), 30)
	require.Error(t, svc.SendEventReminder(context.Background(), &event))

	// Delivery is at-most-once: the key stays claimed, so a second
	// attempt does not resend even after the channel recovers.
	channel.mu.Lock()
	channel.fail = nil
	channel.mu.Unlock()

	require.NoError(t, svc.SendEventReminder(context.Background(), &event))
	assert.Zero(t, channel.count())
}
