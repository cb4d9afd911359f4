package settings

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horarios-app/horarios-bot/internal/domain"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/settingscache"
)

type fakeSettingsRepo struct {
	byUser  map[int64]*domain.UserSettings
	updates int
	fail    error
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{byUser: make(map[int64]*domain.UserSettings)}
}

func (r *fakeSettingsRepo) GetOrCreateByUser(_ context.Context, userID int64) (*domain.UserSettings, error) {
	if r.fail != nil {
		return nil, r.fail
	}

	if existing, ok := r.byUser[userID]; ok {
		copied := *existing
		return &copied, nil
	}

	created := domain.NewDefaultSettings(userID)
	r.byUser[userID] = created
	copied := *created
	return &copied, nil
}

func (r *fakeSettingsRepo) ByChatID(_ context.Context, chatID string) (*domain.UserSettings, error) {
	for _, settings := range r.byUser {
		if settings.TelegramChatID == chatID {
			copied := *settings
			return &copied, nil
		}
	}
	return nil, repository.ErrSettingsNotFound
}

func (r *fakeSettingsRepo) WithDigestEnabled(context.Context) ([]domain.UserSettings, error) {
	var out []domain.UserSettings
	for _, settings := range r.byUser {
		if settings.WantsDigest() {
			out = append(out, *settings)
		}
	}
	return out, nil
}

func (r *fakeSettingsRepo) Update(_ context.Context, settings *domain.UserSettings) error {
	if r.fail != nil {
		return r.fail
	}

	copied := *settings
	r.byUser[settings.UserID] = &copied
	r.updates++
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeSettingsRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	repo := newFakeSettingsRepo()
	return NewService(repo, settingscache.NewCache(client), nil), repo
}

func TestGetCreatesDefaultsLazily(t *testing.T) {
	svc, _ := newTestService(t)

	settings, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), settings.UserID)
	assert.Equal(t, "UTC", settings.Timezone)
	assert.True(t, settings.NotificationsEnabled)
	assert.False(t, settings.DailySummaryEnabled)
	assert.Equal(t, "08:00", settings.DailySummaryTime)
}

func TestGetServesSecondReadFromCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, 7)
	require.NoError(t, err)

	// poison the repo; a cache hit never touches it
	repo.fail = errors.New("db down")

	settings, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), settings.UserID)
}

func TestToggleNotificationsInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, first.NotificationsEnabled)

	toggled, err := svc.ToggleNotifications(ctx, 7)
	require.NoError(t, err)
	assert.False(t, toggled.NotificationsEnabled)

	// the cached copy must not survive the write
	after, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, after.NotificationsEnabled)
}

func TestLinkAndUnlinkChat(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	linked, err := svc.LinkChat(ctx, 7, "12345", "maria")
	require.NoError(t, err)
	assert.Equal(t, "12345", linked.TelegramChatID)

	found, err := svc.ByChatID(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(7), found.UserID)

	unlinked, err := svc.UnlinkChat(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, unlinked.TelegramChatID)

	_, err = svc.ByChatID(ctx, "12345")
	assert.ErrorIs(t, err, repository.ErrSettingsNotFound)
}

func TestDigestRecipientsFiltersEligibleUsers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.LinkChat(ctx, 1, "111", "")
	require.NoError(t, err)
	_, err = svc.ToggleDailySummary(ctx, 1)
	require.NoError(t, err)

	// enabled but never linked: not a recipient
	_, err = svc.ToggleDailySummary(ctx, 2)
	require.NoError(t, err)

	recipients, err := svc.DigestRecipients(ctx)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, int64(1), recipients[0].UserID)
}

func TestSetDailySummaryTime(t *testing.T) {
	svc, repo := newTestService(t)

	updated, err := svc.SetDailySummaryTime(context.Background(), 7, "09:30")
	require.NoError(t, err)
	assert.Equal(t, "09:30", updated.DailySummaryTime)
	assert.Equal(t, 1, repo.updates)
}
