package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/horarios-app/horarios-bot/internal/domain"
	"github.com/horarios-app/horarios-bot/internal/i18n"
)

const clockLayout = "15:04"

// Formatter renders notification texts from events using the localization
// catalog. All times are rendered in the location supplied by the caller,
// which is the owning user's timezone.
type Formatter struct {
	t i18n.Translator
}

// NewFormatter builds a formatter bound to one language.
func NewFormatter(t i18n.Translator) *Formatter {
	return &Formatter{t: t}
}

// Reminder renders the single-event reminder message.
func (f *Formatter) Reminder(event *domain.Event, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString(f.t.T("reminder.header"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, f.t.T("reminder.title"), event.Title)
	b.WriteString("\n")
	fmt.Fprintf(&b, f.t.T("reminder.time"), event.StartTime.In(loc).Format(clockLayout))
	b.WriteString("\n")
	fmt.Fprintf(&b, f.t.T("reminder.category"), f.categoryName(event))

	if event.Description != "" {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, f.t.T("reminder.description"), event.Description)
	}

	return b.String()
}

// DailySummary renders the digest for one day. An empty slice still yields
// a message, so users learn their day is free.
func (f *Formatter) DailySummary(events []domain.Event, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(f.t.T("digest.header"))
	b.WriteString("\n\n")

	if len(events) == 0 {
		b.WriteString(f.t.T("digest.empty"))
		return b.String()
	}

	f.writeEventLines(&b, "digest", events, loc)
	return strings.TrimRight(b.String(), "\n")
}

// EventList renders the /today and /tomorrow listings. headerKey selects the
// localized header ("events.today_header" or "events.tomorrow_header").
func (f *Formatter) EventList(headerKey string, events []domain.Event, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(f.t.T(headerKey))
	b.WriteString("\n\n")

	f.writeEventLines(&b, "digest", events, loc)
	return strings.TrimRight(b.String(), "\n")
}

func (f *Formatter) writeEventLines(b *strings.Builder, prefix string, events []domain.Event, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}

	for _, event := range events {
		fmt.Fprintf(b, f.t.T(prefix+".time_range"),
			event.StartTime.In(loc).Format(clockLayout),
			event.EndTime.In(loc).Format(clockLayout),
		)
		b.WriteString("\n")
		fmt.Fprintf(b, f.t.T(prefix+".title"), event.Title)
		b.WriteString("\n")
		fmt.Fprintf(b, f.t.T(prefix+".category"), f.categoryName(&event))
		b.WriteString("\n")
		if event.Description != "" {
			fmt.Fprintf(b, f.t.T(prefix+".description"), event.Description)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

func (f *Formatter) categoryName(event *domain.Event) string {
	if event.CategoryName != "" {
		return event.CategoryName
	}

	return f.t.T("category.none")
}
