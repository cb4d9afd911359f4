package idempotency

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewGuard(NewRedisStore(client, log), log), mr
}

func TestGuard_RunsFirstAttemptOnly(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	runs := 0
	fn := func(context.Context) error {
		runs++
		return nil
	}

	require.NoError(t, guard.Once(ctx, "delivery:reminder:abc", time.Hour, fn))

	err := guard.Once(ctx, "delivery:reminder:abc", time.Hour, fn)
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
	assert.Equal(t, 1, runs)
}

func TestGuard_DifferentKeysAreIndependent(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	runs := 0
	fn := func(context.Context) error {
		runs++
		return nil
	}

	require.NoError(t, guard.Once(ctx, "delivery:reminder:a", time.Hour, fn))
	require.NoError(t, guard.Once(ctx, "delivery:reminder:b", time.Hour, fn))
	assert.Equal(t, 2, runs)
}

func TestGuard_FailedOperationKeepsClaim(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	require.Error(t, guard.Once(ctx, "delivery:reminder:fail", time.Hour, func(context.Context) error {
		return assert.AnError
	}))

	// At-most-once: the claim survives the failure, so no retry happens.
	err := guard.Once(ctx, "delivery:reminder:fail", time.Hour, func(context.Context) error {
		t.Fatal("operation must not run again")
		return nil
	})
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
}

func TestGuard_ExpiredClaimAllowsRedelivery(t *testing.T) {
	guard, mr := newTestGuard(t)
	ctx := context.Background()

	runs := 0
	fn := func(context.Context) error {
		runs++
		return nil
	}

	require.NoError(t, guard.Once(ctx, "delivery:digest:x", time.Minute, fn))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, guard.Once(ctx, "delivery:digest:x", time.Minute, fn))

	assert.Equal(t, 2, runs)
}

func TestGuard_ProceedsWhenStoreIsDown(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := NewGuard(NewRedisStore(client, log), log)
	mr.Close()

	runs := 0
	err := guard.Once(context.Background(), "delivery:reminder:down", time.Hour, func(context.Context) error {
		runs++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestReminderKey_ChangesWithStartTime(t *testing.T) {
	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, ReminderKey(7, start), ReminderKey(7, start))
	assert.NotEqual(t, ReminderKey(7, start), ReminderKey(7, start.Add(time.Hour)))
	assert.NotEqual(t, ReminderKey(7, start), ReminderKey(8, start))
}

func TestDigestKey_OnePerUserAndDay(t *testing.T) {
	day := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, DigestKey(1, day), DigestKey(1, day.Add(2*time.Hour)))
	assert.NotEqual(t, DigestKey(1, day), DigestKey(1, day.AddDate(0, 0, 1)))
	assert.NotEqual(t, DigestKey(1, day), DigestKey(2, day))
}
