package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/horarios-app/horarios-bot/internal/domain"
)

// ErrSettingsNotFound indicates that no settings row matches the lookup.
var ErrSettingsNotFound = errors.New("user settings not found")

// SettingsRepository defines persistence operations for notification
// preferences. Settings are created lazily on first access per user.
type SettingsRepository interface {
	// GetOrCreateByUser returns the user's settings, inserting the default
	// row when none exists yet.
	GetOrCreateByUser(ctx context.Context, userID int64) (*domain.UserSettings, error)
	// ByChatID resolves settings by the linked Telegram chat id.
	ByChatID(ctx context.Context, chatID string) (*domain.UserSettings, error)
	// WithDigestEnabled lists every user eligible for daily summaries.
	WithDigestEnabled(ctx context.Context) ([]domain.UserSettings, error)
	// Update persists preference changes for an existing row.
	Update(ctx context.Context, settings *domain.UserSettings) error
}

type settingsRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSettingsRepository creates a new SQL-backed settings repository.
func NewSettingsRepository(db *sql.DB, log *slog.Logger) SettingsRepository {
	return &settingsRepository{
		db:  db,
		log: log,
	}
}

const settingsColumns = `
	id, user_id, COALESCE(telegram_chat_id, ''), COALESCE(telegram_username, ''),
	timezone, default_reminder_minutes, notifications_enabled,
	daily_summary_enabled, daily_summary_time, created_at, updated_at
`

func (r *settingsRepository) GetOrCreateByUser(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	const query = `
		SELECT ` + settingsColumns + `
		FROM user_settings
		WHERE user_id = $1
	`

	settings, err := r.scanOne(r.db.QueryRowContext(ctx, query, userID))
	if err == nil {
		return settings, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		if r.log != nil {
			r.log.Error("failed to fetch settings by user", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select settings by user: %w", err)
	}

	return r.createDefault(ctx, userID)
}

func (r *settingsRepository) ByChatID(ctx context.Context, chatID string) (*domain.UserSettings, error) {
	const query = `
		SELECT ` + settingsColumns + `
		FROM user_settings
		WHERE telegram_chat_id = $1
	`

	settings, err := r.scanOne(r.db.QueryRowContext(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch settings by chat id", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select settings by chat id: %w", err)
	}

	return settings, nil
}

func (r *settingsRepository) WithDigestEnabled(ctx context.Context) ([]domain.UserSettings, error) {
	const query = `
		SELECT ` + settingsColumns + `
		FROM user_settings
		WHERE daily_summary_enabled = TRUE
		  AND telegram_chat_id IS NOT NULL
		ORDER BY user_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list digest users", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select digest users: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []domain.UserSettings
	for rows.Next() {
		var settings domain.UserSettings
		if err := scanSettings(rows, &settings); err != nil {
			return nil, fmt.Errorf("scan settings row: %w", err)
		}
		result = append(result, settings)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings rows: %w", err)
	}

	return result, nil
}

func (r *settingsRepository) Update(ctx context.Context, settings *domain.UserSettings) error {
	const query = `
		UPDATE user_settings
		SET telegram_chat_id = NULLIF($2, ''),
		    telegram_username = NULLIF($3, ''),
		    timezone = $4,
		    default_reminder_minutes = $5,
		    notifications_enabled = $6,
		    daily_summary_enabled = $7,
		    daily_summary_time = $8,
		    updated_at = NOW()
		WHERE user_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query,
		settings.UserID,
		settings.TelegramChatID,
		settings.TelegramUsername,
		settings.Timezone,
		settings.DefaultReminderMinutes,
		settings.NotificationsEnabled,
		settings.DailySummaryEnabled,
		settings.DailySummaryTime,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to update settings", slog.Int64("user_id", settings.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("update settings: %w", err)
	}

	return nil
}

func (r *settingsRepository) createDefault(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	defaults := domain.NewDefaultSettings(userID)

	const query = `
		INSERT INTO user_settings (user_id, timezone, default_reminder_minutes, notifications_enabled, daily_summary_enabled, daily_summary_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	row := r.db.QueryRowContext(ctx, query,
		defaults.UserID,
		defaults.Timezone,
		defaults.DefaultReminderMinutes,
		defaults.NotificationsEnabled,
		defaults.DailySummaryEnabled,
		defaults.DailySummaryTime,
	)

	if err := row.Scan(&defaults.ID, &defaults.CreatedAt, &defaults.UpdatedAt); err != nil {
		if r.log != nil {
			r.log.Error("failed to create default settings", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("insert default settings: %w", err)
	}

	return defaults, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *settingsRepository) scanOne(row rowScanner) (*domain.UserSettings, error) {
	var settings domain.UserSettings
	if err := scanSettings(row, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

func scanSettings(row rowScanner, settings *domain.UserSettings) error {
	return row.Scan(
		&settings.ID,
		&settings.UserID,
		&settings.TelegramChatID,
		&settings.TelegramUsername,
		&settings.Timezone,
		&settings.DefaultReminderMinutes,
		&settings.NotificationsEnabled,
		&settings.DailySummaryEnabled,
		&settings.DailySummaryTime,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
}
