// Package reminder decides which event reminders are due and delivers them.
//
// Two triggers can fire for the same event: the minutely polling scan and a
// precise one-shot timer. Both funnel through the delivery guard, so at most
// one of them sends.
package reminder

import (
	"sort"
	"time"

	"github.com/horarios-app/horarios-bot/internal/domain"
)

// DueReminders filters events whose reminder instant falls within tolerance
// of now, ordered by event start time. The symmetric window makes the scan
// robust against tick jitter in both directions.
func DueReminders(now time.Time, tolerance time.Duration, events []domain.Event) []domain.Event {
	if tolerance < 0 {
		tolerance = 0
	}

	var due []domain.Event
	for _, event := range events {
		if !event.IsActive {
			continue
		}

		diff := now.Sub(event.ReminderAt())
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance {
			due = append(due, event)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].StartTime.Before(due[j].StartTime)
	})

	return due
}
