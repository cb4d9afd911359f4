// Package settings provides business operations over notification preferences.
package settings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/horarios-app/horarios-bot/internal/domain"
	"github.com/horarios-app/horarios-bot/internal/repository"
	"github.com/horarios-app/horarios-bot/internal/settingscache"
)

// Service mediates access to user settings, keeping the cache coherent with
// the repository on every write.
type Service struct {
	repo  repository.SettingsRepository
	cache *settingscache.Cache
	log   *slog.Logger
}

// NewService constructs a new Service instance. The cache may be nil.
func NewService(repo repository.SettingsRepository, cache *settingscache.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Get returns the user's settings, creating the default row on first access.
// Cache errors degrade to repository reads and are never surfaced.
func (s *Service) Get(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	if cached, err := s.cache.Get(ctx, userID); err != nil {
		s.logError("get.cache", userID, err)
	} else if cached != nil {
		return cached, nil
	}

	settings, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		s.logError("get.repo", userID, err)
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if err := s.cache.Set(ctx, userID, settings, settingscache.DefaultTTL); err != nil {
		s.logError("get.cache_fill", userID, err)
	}

	return settings, nil
}

// ByChatID resolves settings by the linked Telegram chat id. Used by bot
// handlers, which only know the chat they are talking to.
func (s *Service) ByChatID(ctx context.Context, chatID string) (*domain.UserSettings, error) {
	settings, err := s.repo.ByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	return settings, nil
}

// LinkChat associates a Telegram chat with the user so notifications can be
// delivered there.
func (s *Service) LinkChat(ctx context.Context, userID int64, chatID, username string) (*domain.UserSettings, error) {
	return s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.TelegramChatID = chatID
		settings.TelegramUsername = username
	})
}

// UnlinkChat detaches the Telegram chat. The user keeps their preferences but
// receives no further notifications until they link again.
func (s *Service) UnlinkChat(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	return s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.TelegramChatID = ""
		settings.TelegramUsername = ""
	})
}

// ToggleNotifications flips the reminder delivery switch and returns the
// updated settings.
func (s *Service) ToggleNotifications(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	return s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.NotificationsEnabled = !settings.NotificationsEnabled
	})
}

// ToggleDailySummary flips the daily summary switch and returns the updated
// settings. The caller is responsible for rescheduling or cancelling the
// user's summary job to match.
func (s *Service) ToggleDailySummary(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	return s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.DailySummaryEnabled = !settings.DailySummaryEnabled
	})
}

// SetDailySummaryTime stores a new HH:MM delivery time. Validation of the
// format happens at the scheduling layer before this is called.
func (s *Service) SetDailySummaryTime(ctx context.Context, userID int64, hhmm string) (*domain.UserSettings, error) {
	return s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.DailySummaryTime = hhmm
	})
}

// SetTimezone stores the IANA timezone used for day boundaries.
func (s *Service) SetTimezone(ctx context.Context, userID int64, tz string) (*domain.UserSettings, error) {
	return s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.Timezone = tz
	})
}

// DigestRecipients lists every user eligible for daily summaries.
func (s *Service) DigestRecipients(ctx context.Context) ([]domain.UserSettings, error) {
	recipients, err := s.repo.WithDigestEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list digest recipients: %w", err)
	}

	return recipients, nil
}

func (s *Service) update(ctx context.Context, userID int64, mutate func(*domain.UserSettings)) (*domain.UserSettings, error) {
	settings, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		s.logError("update.load", userID, err)
		return nil, fmt.Errorf("load settings: %w", err)
	}

	mutate(settings)

	if err := s.repo.Update(ctx, settings); err != nil {
		s.logError("update.save", userID, err)
		return nil, fmt.Errorf("save settings: %w", err)
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logError("update.invalidate", userID, err)
	}

	return settings, nil
}

func (s *Service) logError(operation string, userID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("settings service operation failed",
		slog.String("operation", operation),
		slog.Int64("user_id", userID),
		slog.Any("error", err),
	)
}
