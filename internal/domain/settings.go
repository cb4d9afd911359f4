package domain

import "time"

// Default values applied when settings are created lazily on first access.
const (
	DefaultTimezone         = "UTC"
	DefaultDailySummaryTime = "08:00"
)

// UserSettings holds per-user notification preferences. There is exactly one
// row per user; the Telegram chat id is unique across all settings (enforced
// by the data layer).
type UserSettings struct {
	ID                     int64
	UserID                 int64
	TelegramChatID         string
	TelegramUsername       string
	Timezone               string
	DefaultReminderMinutes int
	NotificationsEnabled   bool
	DailySummaryEnabled    bool
	DailySummaryTime       string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewDefaultSettings builds the settings row created lazily on first access.
func NewDefaultSettings(userID int64) *UserSettings {
	return &UserSettings{
		UserID:                 userID,
		Timezone:               DefaultTimezone,
		DefaultReminderMinutes: DefaultReminderMinutes,
		NotificationsEnabled:   true,
		DailySummaryEnabled:    false,
		DailySummaryTime:       DefaultDailySummaryTime,
	}
}

// CanNotify reports whether reminders may be delivered to this user.
func (s *UserSettings) CanNotify() bool {
	return s != nil && s.TelegramChatID != "" && s.NotificationsEnabled
}

// WantsDigest reports whether the user is eligible for daily summaries.
func (s *UserSettings) WantsDigest() bool {
	return s != nil && s.TelegramChatID != "" && s.DailySummaryEnabled
}

// Location resolves the user's configured timezone, falling back to UTC when
// the value is empty or not a valid IANA name.
func (s *UserSettings) Location() *time.Location {
	if s == nil || s.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// DayBounds returns the inclusive start and end instants of the calendar day
// containing forDate, evaluated in the user's timezone.
func (s *UserSettings) DayBounds(forDate time.Time) (time.Time, time.Time) {
	loc := s.Location()
	local := forDate.In(loc)

	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24*time.Hour - time.Nanosecond)

	return start, end
}
