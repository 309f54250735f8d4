package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pawtrack/pawtrack/internal/models"
	"github.com/pawtrack/pawtrack/internal/repository"
	"github.com/pawtrack/pawtrack/internal/timeutil"
)

type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

// Events are always read with their recurrence rule left-joined; the rule
// columns come back NULL for non-recurring events.
const eventSelect = `
	SELECT e.id, e.user_id, e.pet_id, e.title, e.description, e.start_date, e.time_minutes, e.timezone_offset, e.is_recurring, e.recurrence_id, e.created_at, e.updated_at,
	       r.frequency, r.interval, r.week_days, r.month_days, r.end_date
	FROM events e
	LEFT JOIN recurrence_rules r ON r.id = e.recurrence_id`

func (r *eventRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	var recurrenceID *uuid.UUID
	if event.Recurrence != nil {
		if err := insertRule(ctx, tx, event.Recurrence); err != nil {
			return nil, err
		}
		recurrenceID = &event.Recurrence.ID
	}

	query := `
		INSERT INTO events (id, user_id, pet_id, title, description, start_date, time_minutes, timezone_offset, is_recurring, recurrence_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		event.PetID,
		event.Title,
		event.Description,
		event.StartDate,
		int(event.Time),
		event.TimezoneOffset,
		event.IsRecurring,
		recurrenceID,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit event: %w", err)
	}

	return event, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	row := r.db.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id)

	event, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

func (r *eventRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Event, error) {
	query := eventSelect + ` WHERE e.user_id = $1 ORDER BY e.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by user: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (r *eventRepository) ListAll(ctx context.Context) ([]*models.Event, error) {
	query := eventSelect + ` ORDER BY e.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// Update replaces the stored event with the given fully-validated value in a
// single transaction, creating, updating or deleting the recurrence rule as
// the new value dictates.
func (r *eventRepository) Update(ctx context.Context, event *models.Event) (*models.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldRuleID *uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT recurrence_id FROM events WHERE id = $1`, event.ID).Scan(&oldRuleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("event with ID %s not found", event.ID)
		}
		return nil, fmt.Errorf("failed to load event for update: %w", err)
	}

	var recurrenceID *uuid.UUID
	switch {
	case event.Recurrence != nil && oldRuleID != nil:
		event.Recurrence.ID = *oldRuleID
		if err := updateRule(ctx, tx, event.Recurrence); err != nil {
			return nil, err
		}
		recurrenceID = oldRuleID
	case event.Recurrence != nil:
		if err := insertRule(ctx, tx, event.Recurrence); err != nil {
			return nil, err
		}
		recurrenceID = &event.Recurrence.ID
	}

	event.UpdatedAt = time.Now()

	query := `
		UPDATE events
		SET pet_id = $2, title = $3, description = $4, start_date = $5, time_minutes = $6, timezone_offset = $7, is_recurring = $8, recurrence_id = $9, updated_at = $10
		WHERE id = $1`

	_, err = tx.ExecContext(ctx, query,
		event.ID,
		event.PetID,
		event.Title,
		event.Description,
		event.StartDate,
		int(event.Time),
		event.TimezoneOffset,
		event.IsRecurring,
		recurrenceID,
		event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	// The event no longer points at the old rule; remove the orphan.
	if oldRuleID != nil && event.Recurrence == nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE id = $1`, *oldRuleID); err != nil {
			return nil, fmt.Errorf("failed to delete orphaned recurrence rule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit event update: %w", err)
	}

	return event, nil
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ruleID *uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT recurrence_id FROM events WHERE id = $1`, id).Scan(&ruleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("event with ID %s not found", id)
		}
		return fmt.Errorf("failed to load event for delete: %w", err)
	}

	// Ledger rows cascade via foreign keys.
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if ruleID != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE id = $1`, *ruleID); err != nil {
			return fmt.Errorf("failed to delete recurrence rule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event delete: %w", err)
	}

	return nil
}

func insertRule(ctx context.Context, tx *sql.Tx, rule *models.RecurrenceRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}

	query := `
		INSERT INTO recurrence_rules (id, frequency, interval, week_days, month_days, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.ExecContext(ctx, query,
		rule.ID,
		rule.Frequency,
		rule.Interval,
		pq.Array(rule.WeekDays),
		pq.Array(rule.MonthDays),
		rule.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to create recurrence rule: %w", err)
	}
	return nil
}

func updateRule(ctx context.Context, tx *sql.Tx, rule *models.RecurrenceRule) error {
	query := `
		UPDATE recurrence_rules
		SET frequency = $2, interval = $3, week_days = $4, month_days = $5, end_date = $6
		WHERE id = $1`

	_, err := tx.ExecContext(ctx, query,
		rule.ID,
		rule.Frequency,
		rule.Interval,
		pq.Array(rule.WeekDays),
		pq.Array(rule.MonthDays),
		rule.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurrence rule: %w", err)
	}
	return nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	var (
		timeMinutes  int
		recurrenceID *uuid.UUID
		frequency    sql.NullString
		interval     sql.NullInt64
		weekDays     pq.Int64Array
		monthDays    pq.Int64Array
		endDate      sql.NullTime
	)

	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.PetID,
		&event.Title,
		&event.Description,
		&event.StartDate,
		&timeMinutes,
		&event.TimezoneOffset,
		&event.IsRecurring,
		&recurrenceID,
		&event.CreatedAt,
		&event.UpdatedAt,
		&frequency,
		&interval,
		&weekDays,
		&monthDays,
		&endDate,
	)
	if err != nil {
		return nil, err
	}

	event.Time = timeutil.TimeOfDay(timeMinutes)
	event.StartDate = timeutil.DateOf(event.StartDate)

	if recurrenceID != nil && frequency.Valid {
		rule := &models.RecurrenceRule{
			ID:        *recurrenceID,
			Frequency: models.Frequency(frequency.String),
			Interval:  int(interval.Int64),
			WeekDays:  toInts(weekDays),
			MonthDays: toInts(monthDays),
		}
		if endDate.Valid {
			end := timeutil.DateOf(endDate.Time)
			rule.EndDate = &end
		}
		event.Recurrence = rule
	}

	return event, nil
}

func collectEvents(rows *sql.Rows) ([]*models.Event, error) {
	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func toInts(arr pq.Int64Array) []int {
	if len(arr) == 0 {
		return nil
	}
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	return out
}
