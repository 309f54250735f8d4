package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawtrack/pawtrack/internal/repository"
	"github.com/pawtrack/pawtrack/internal/timeutil"
)

// The two ledger tables share the same (event_id, occurrence_date) key with
// a unique constraint, but have independent writers: the scheduler appends
// to the notification log, API users append completions.

type notificationLogRepository struct {
	db *sql.DB
}

// NewNotificationLogRepository creates a new notification log repository
func NewNotificationLogRepository(db *sql.DB) repository.NotificationLogRepository {
	return &notificationLogRepository{db: db}
}

// MarkSent inserts the (event, date) entry if absent, in one statement. The
// ON CONFLICT DO NOTHING form makes concurrent sweeps race-free: exactly one
// caller observes inserted == true for a given pair.
func (r *notificationLogRepository) MarkSent(ctx context.Context, eventID uuid.UUID, date time.Time) (bool, error) {
	query := `
		INSERT INTO event_notification_log (event_id, occurrence_date, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, occurrence_date) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, eventID, timeutil.DateOf(date), time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to mark notification sent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *notificationLogRepository) Exists(ctx context.Context, eventID uuid.UUID, date time.Time) (bool, error) {
	return pairExists(ctx, r.db, "event_notification_log", eventID, date)
}

type completionRepository struct {
	db *sql.DB
}

// NewCompletionRepository creates a new completion repository
func NewCompletionRepository(db *sql.DB) repository.CompletionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) Mark(ctx context.Context, eventID uuid.UUID, date time.Time) (bool, error) {
	query := `
		INSERT INTO event_completions (event_id, occurrence_date, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, occurrence_date) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, eventID, timeutil.DateOf(date), time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to mark completion: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *completionRepository) Exists(ctx context.Context, eventID uuid.UUID, date time.Time) (bool, error) {
	return pairExists(ctx, r.db, "event_completions", eventID, date)
}

func (r *completionRepository) ListDates(ctx context.Context, eventID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT occurrence_date
		FROM event_completions
		WHERE event_id = $1 AND occurrence_date BETWEEN $2 AND $3
		ORDER BY occurrence_date ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID, timeutil.DateOf(from), timeutil.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan completion date: %w", err)
		}
		dates = append(dates, timeutil.DateOf(d))
	}

	return dates, rows.Err()
}

func pairExists(ctx context.Context, db *sql.DB, table string, eventID uuid.UUID, date time.Time) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE event_id = $1 AND occurrence_date = $2)`, table)

	var exists bool
	if err := db.QueryRowContext(ctx, query, eventID, timeutil.DateOf(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", table, err)
	}

	return exists, nil
}
