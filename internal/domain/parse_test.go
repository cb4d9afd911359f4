package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuickEvent(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     string
		loc       *time.Location
		wantTitle string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   error
	}{
		{
			name:      "bare end time on the same day",
			input:     "Dentista | 15/03/2026 10:30 | 11:15",
			loc:       time.UTC,
			wantTitle: "Dentista",
			wantStart: time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 15, 11, 15, 0, 0, time.UTC),
		},
		{
			name:      "full end date and time",
			input:     "Viaje | 15/03/2026 22:00 | 16/03/2026 08:00",
			loc:       time.UTC,
			wantTitle: "Viaje",
			wantStart: time.Date(2026, 3, 15, 22, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "times interpreted in the user location",
			input:     "Cena | 15/03/2026 21:00 | 22:30",
			loc:       madrid,
			wantTitle: "Cena",
			wantStart: time.Date(2026, 3, 15, 21, 0, 0, 0, madrid),
			wantEnd:   time.Date(2026, 3, 15, 22, 30, 0, 0, madrid),
		},
		{
			name:    "missing field",
			input:   "Dentista | 15/03/2026 10:30",
			loc:     time.UTC,
			wantErr: ErrQuickEventFormat,
		},
		{
			name:    "empty title",
			input:   " | 15/03/2026 10:30 | 11:15",
			loc:     time.UTC,
			wantErr: ErrQuickEventFormat,
		},
		{
			name:    "unparseable start",
			input:   "Dentista | mañana | 11:15",
			loc:     time.UTC,
			wantErr: ErrQuickEventFormat,
		},
		{
			name:    "end not after start",
			input:   "Dentista | 15/03/2026 10:30 | 10:30",
			loc:     time.UTC,
			wantErr: ErrQuickEventRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuickEvent(tt.input, tt.loc)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, got.Title)
			assert.True(t, got.StartTime.Equal(tt.wantStart))
			assert.True(t, got.EndTime.Equal(tt.wantEnd))
		})
	}
}

func TestEventValidate(t *testing.T) {
	start := time.Now()

	valid := Event{Title: "Clase", StartTime: start, EndTime: start.Add(time.Hour)}
	assert.NoError(t, valid.Validate())

	untitled := valid
	untitled.Title = ""
	assert.ErrorIs(t, untitled.Validate(), ErrEmptyTitle)

	inverted := valid
	inverted.EndTime = start.Add(-time.Hour)
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidTimeRange)
}

func TestReminderAt(t *testing.T) {
	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	event := Event{StartTime: start, ReminderMinutes: 45}
	assert.True(t, event.ReminderAt().Equal(start.Add(-45*time.Minute)))

	// Zero and negative offsets fall back to the default.
	event.ReminderMinutes = 0
	assert.True(t, event.ReminderAt().Equal(start.Add(-30*time.Minute)))
}

func TestDayBounds(t *testing.T) {
	settings := NewDefaultSettings(1)
	settings.Timezone = "America/Mexico_City"

	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	// 03:00 UTC on June 2 is 21:00 June 1 in Mexico City.
	forDate := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	start, end := settings.DayBounds(forDate)

	assert.True(t, start.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, loc)))
	assert.Equal(t, 1, end.In(loc).Day())
	assert.True(t, end.After(start))
}

func TestLocationFallsBackToUTC(t *testing.T) {
	settings := NewDefaultSettings(1)
	settings.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, settings.Location())

	settings.Timezone = ""
	assert.Equal(t, time.UTC, settings.Location())
}
