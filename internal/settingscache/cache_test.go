package settingscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horarios-app/horarios-bot/internal/domain"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewCache(client), mr
}

func TestCache_MissReturnsNil(t *testing.T) {
	cache, _ := newTestCache(t)

	settings, err := cache.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	original := domain.NewDefaultSettings(1)
	original.TelegramChatID = "555"
	original.Timezone = "Europe/Madrid"
	original.DailySummaryEnabled = true

	require.NoError(t, cache.Set(ctx, 1, original, time.Minute))

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "555", got.TelegramChatID)
	assert.Equal(t, "Europe/Madrid", got.Timezone)
	assert.True(t, got.DailySummaryEnabled)
}

func TestCache_InvalidateRemovesEntry(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 1, domain.NewDefaultSettings(1), time.Minute))
	require.NoError(t, cache.Invalidate(ctx, 1))

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_EntryExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 1, domain.NewDefaultSettings(1), time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_NilCacheIsSafe(t *testing.T) {
	var cache *Cache

	got, err := cache.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, cache.Set(context.Background(), 1, domain.NewDefaultSettings(1), time.Minute))
	assert.NoError(t, cache.Invalidate(context.Background(), 1))
}
