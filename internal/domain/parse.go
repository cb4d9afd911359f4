package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrQuickEventFormat indicates free-text input that does not match the
	// supported quick-add layout.
	ErrQuickEventFormat = errors.New("expected format: title | DD/MM/YYYY HH:MM | HH:MM")
	// ErrQuickEventRange indicates a quick-add input whose end does not follow its start.
	ErrQuickEventRange = errors.New("end time must be after start time")
)

// QuickEvent is the parsed form of a free-text event line. The scheduler
// treats the (start, end) pair as given and only composes the repository
// create call from it.
type QuickEvent struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
}

const (
	quickDateTimeLayout = "02/01/2006 15:04"
	quickTimeLayout     = "15:04"
)

// ParseQuickEvent parses a pipe-separated quick-add line such as
// "Dentista | 15/03/2026 10:30 | 11:15". The third field may be either a
// bare time (same day as the start) or a full date and time. Times are
// interpreted in loc.
func ParseQuickEvent(text string, loc *time.Location) (*QuickEvent, error) {
	if loc == nil {
		loc = time.UTC
	}

	parts := strings.Split(text, "|")
	if len(parts) != 3 {
		return nil, ErrQuickEventFormat
	}

	title := strings.TrimSpace(parts[0])
	if title == "" {
		return nil, ErrQuickEventFormat
	}

	start, err := time.ParseInLocation(quickDateTimeLayout, strings.TrimSpace(parts[1]), loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuickEventFormat, err)
	}

	endRaw := strings.TrimSpace(parts[2])
	end, err := time.ParseInLocation(quickDateTimeLayout, endRaw, loc)
	if err != nil {
		clock, timeErr := time.ParseInLocation(quickTimeLayout, endRaw, loc)
		if timeErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrQuickEventFormat, timeErr)
		}

		end = time.Date(start.Year(), start.Month(), start.Day(),
			clock.Hour(), clock.Minute(), 0, 0, loc)
	}

	if !end.After(start) {
		return nil, ErrQuickEventRange
	}

	return &QuickEvent{Title: title, StartTime: start, EndTime: end}, nil
}
