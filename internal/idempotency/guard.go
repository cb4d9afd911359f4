package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrAlreadyDelivered indicates the key was claimed by an earlier attempt;
// callers skip the send without treating it as a failure.
var ErrAlreadyDelivered = errors.New("notification already delivered")

type Operation func(ctx context.Context) error

// Guard enforces at-most-once delivery per key. The key is claimed before
// the send: a failed send keeps the claim, because retrying a reminder is
// worse than losing one (at-most-once, per the delivery contract).
type Guard struct {
	store Store
	log   *slog.Logger
}

func NewGuard(store Store, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}

	return &Guard{
		store: store,
		log:   log,
	}
}

// Once runs fn if and only if key has not been claimed within ttl. When the
// store itself is unreachable the send proceeds anyway: a rare duplicate
// beats silently dropping notifications while Redis is down.
func (g *Guard) Once(ctx context.Context, key string, ttl time.Duration, fn Operation) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return errors.New("operation fn cannot be nil")
	}
	if g.store == nil {
		return fn(ctx)
	}

	acquired, err := g.store.Acquire(ctx, key, ttl)
	if err != nil {
		g.log.Warn("delivery guard unavailable, proceeding without dedupe",
			slog.String("key", key), slog.Any("error", err))
		return fn(ctx)
	}

	if !acquired {
		return ErrAlreadyDelivered
	}

	return fn(ctx)
}
