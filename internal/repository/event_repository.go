package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/horarios-app/horarios-bot/internal/domain"
)

// EventRepository defines the event-store operations consumed by the
// scheduling core. The scheduler is read-only over events except for the
// cleanup soft delete and quick-add creation.
type EventRepository interface {
	// ActiveInRange returns active events starting within [start, end],
	// ordered by start time. A userID of zero returns all users' events.
	ActiveInRange(ctx context.Context, userID int64, start, end time.Time) ([]domain.Event, error)
	// ActiveUpcoming returns all active events starting within (now, now+within].
	ActiveUpcoming(ctx context.Context, now time.Time, within time.Duration) ([]domain.Event, error)
	// Create persists a new event and fills its generated id.
	Create(ctx context.Context, event *domain.Event) error
	// SetActive flips the soft-delete flag for one event.
	SetActive(ctx context.Context, eventID int64, active bool) error
	// DeactivateEndedBefore marks every active event with end_time < cutoff
	// as inactive in a single transaction, returning the affected count.
	DeactivateEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type eventRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewEventRepository creates a new SQL-backed event repository.
func NewEventRepository(db *sql.DB, log *slog.Logger) EventRepository {
	return &eventRepository{
		db:  db,
		log: log,
	}
}

const eventColumns = `
	e.id, e.user_id, e.title, COALESCE(e.description, ''),
	e.start_time, e.end_time, e.category_id, COALESCE(c.name, ''),
	e.reminder_minutes, e.is_active, e.created_at, e.updated_at
`

func (r *eventRepository) ActiveInRange(ctx context.Context, userID int64, start, end time.Time) ([]domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.is_active = TRUE
		  AND e.start_time >= $1
		  AND e.start_time <= $2
	`
	args := []interface{}{start, end}

	if userID > 0 {
		query += " AND e.user_id = $3"
		args = append(args, userID)
	}

	query += " ORDER BY e.start_time ASC"

	return r.queryEvents(ctx, query, args...)
}

func (r *eventRepository) ActiveUpcoming(ctx context.Context, now time.Time, within time.Duration) ([]domain.Event, error) {
	const query = `
		SELECT ` + eventColumns + `
		FROM events e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.is_active = TRUE
		  AND e.start_time > $1
		  AND e.start_time <= $2
		ORDER BY e.start_time ASC
	`

	return r.queryEvents(ctx, query, now, now.Add(within))
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if event.ReminderMinutes <= 0 {
		event.ReminderMinutes = domain.DefaultReminderMinutes
	}

	const query = `
		INSERT INTO events (user_id, title, description, start_time, end_time, category_id, reminder_minutes, is_active)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, TRUE)
		RETURNING id, created_at, updated_at
	`

	row := r.db.QueryRowContext(ctx, query,
		event.UserID,
		event.Title,
		event.Description,
		event.StartTime,
		event.EndTime,
		event.CategoryID,
		event.ReminderMinutes,
	)

	if err := row.Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt); err != nil {
		if r.log != nil {
			r.log.Error("failed to create event", slog.Int64("user_id", event.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert event: %w", err)
	}

	event.IsActive = true

	return nil
}

func (r *eventRepository) SetActive(ctx context.Context, eventID int64, active bool) error {
	const query = `
		UPDATE events
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, eventID, active); err != nil {
		if r.log != nil {
			r.log.Error("failed to update event active flag", slog.Int64("event_id", eventID), slog.Any("error", err))
		}
		return fmt.Errorf("update event active: %w", err)
	}

	return nil
}

func (r *eventRepository) DeactivateEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cleanup transaction: %w", err)
	}

	const query = `
		UPDATE events
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active = TRUE
		  AND end_time < $1
	`

	result, err := tx.ExecContext(ctx, query, cutoff)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			if r.log != nil {
				r.log.Error("cleanup rollback error", slog.Any("error", rbErr))
			}
		}
		return 0, fmt.Errorf("deactivate old events: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		affected = 0
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup transaction: %w", err)
	}

	return affected, nil
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to query events", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var categoryID sql.NullInt64

		if err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.Title,
			&event.Description,
			&event.StartTime,
			&event.EndTime,
			&categoryID,
			&event.CategoryName,
			&event.ReminderMinutes,
			&event.IsActive,
			&event.CreatedAt,
			&event.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		if categoryID.Valid {
			id := categoryID.Int64
			event.CategoryID = &id
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
