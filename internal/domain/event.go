package domain

import (
	"errors"
	"time"
)

// DefaultReminderMinutes is applied when an event is created without an
// explicit reminder offset.
const DefaultReminderMinutes = 30

// Event represents a calendar entry owned by a single user. Events are
// soft-deleted: the scheduler only ever flips IsActive, never removes rows.
type Event struct {
	ID              int64
	UserID          int64
	Title           string
	Description     string
	StartTime       time.Time
	EndTime         time.Time
	CategoryID      *int64
	CategoryName    string
	ReminderMinutes int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var (
	// ErrEmptyTitle indicates an event without a title.
	ErrEmptyTitle = errors.New("event title is required")
	// ErrInvalidTimeRange indicates that the end time is not after the start time.
	ErrInvalidTimeRange = errors.New("event end time must be after start time")
)

// Validate checks the event invariants before persistence.
func (e *Event) Validate() error {
	if e.Title == "" {
		return ErrEmptyTitle
	}

	if !e.EndTime.After(e.StartTime) {
		return ErrInvalidTimeRange
	}

	return nil
}

// ReminderAt returns the instant at which the reminder for this event is due.
func (e *Event) ReminderAt() time.Time {
	minutes := e.ReminderMinutes
	if minutes <= 0 {
		minutes = DefaultReminderMinutes
	}

	return e.StartTime.Add(-time.Duration(minutes) * time.Minute)
}

// Category groups events for display purposes. Owned by the API layer;
// the scheduler only reads the name when composing messages.
type Category struct {
	ID        int64
	UserID    int64
	Name      string
	Color     string
	CreatedAt time.Time
}
