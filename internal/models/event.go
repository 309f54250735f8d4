package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pawtrack/pawtrack/internal/timeutil"
)

// Frequency is how often a recurring event repeats.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// RecurrenceRule describes how an event repeats. It exists only while its
// owning event is recurring and is deleted together with it.
//
// Interval is accepted and stored but does not affect occurrence generation;
// whether "every 2 weeks" should skip weeks is an unresolved product
// question, so the generator keeps the plain every-matching-day behavior.
type RecurrenceRule struct {
	ID        uuid.UUID  `json:"-" db:"id"`
	Frequency Frequency  `json:"frequency" db:"frequency"`
	Interval  int        `json:"interval" db:"interval"`
	WeekDays  []int      `json:"week_days,omitempty" db:"week_days"`
	MonthDays []int      `json:"month_days,omitempty" db:"month_days"`
	EndDate   *time.Time `json:"-" db:"end_date"`
}

// Validate enforces the frequency/day-set invariants.
func (r *RecurrenceRule) Validate() error {
	switch r.Frequency {
	case FrequencyDaily:
	case FrequencyWeekly:
		if len(r.WeekDays) == 0 {
			return invalid("week_days", "required for weekly recurrence")
		}
		for _, d := range r.WeekDays {
			if d < 1 || d > 7 {
				return invalid("week_days", "weekday %d out of range 1-7", d)
			}
		}
	case FrequencyMonthly:
		if len(r.MonthDays) == 0 {
			return invalid("month_days", "required for monthly recurrence")
		}
		for _, d := range r.MonthDays {
			if d < 1 || d > 31 {
				return invalid("month_days", "day %d out of range 1-31", d)
			}
		}
	default:
		return invalid("frequency", "must be daily, weekly or monthly")
	}
	if r.Interval < 1 {
		return invalid("interval", "must be a positive integer")
	}
	return nil
}

// ContainsWeekDay reports whether the ISO weekday (Monday=1) is in the rule.
func (r *RecurrenceRule) ContainsWeekDay(day int) bool {
	for _, d := range r.WeekDays {
		if d == day {
			return true
		}
	}
	return false
}

// ContainsMonthDay reports whether the day of month is in the rule.
func (r *RecurrenceRule) ContainsMonthDay(day int) bool {
	for _, d := range r.MonthDays {
		if d == day {
			return true
		}
	}
	return false
}

// Event is a feeding/medication/care task attached to a pet.
//
// Time is the wall-clock time of day in the creator's local time, not UTC:
// a recurring event keeps firing at 9am local no matter how offset
// conventions move. TimezoneOffset is the creator's offset from UTC in
// minutes at creation time and is the only timezone information kept.
type Event struct {
	ID             uuid.UUID          `json:"id" db:"id"`
	UserID         uuid.UUID          `json:"user_id" db:"user_id"`
	PetID          int64              `json:"pet_id" db:"pet_id"`
	Title          string             `json:"title" db:"title"`
	Description    string             `json:"description" db:"description"`
	StartDate      time.Time          `json:"-" db:"start_date"`
	Time           timeutil.TimeOfDay `json:"-" db:"time_minutes"`
	TimezoneOffset int                `json:"timezone_offset" db:"timezone_offset"`
	IsRecurring    bool               `json:"is_recurring" db:"is_recurring"`
	Recurrence     *RecurrenceRule    `json:"recurrence,omitempty"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" db:"updated_at"`
}

// Validate enforces the write-time invariants: the recurrence flag and the
// rule must agree, the offset must be representable, and the rule itself
// must be well formed.
func (e *Event) Validate() error {
	if e.Title == "" {
		return invalid("title", "is required")
	}
	if e.PetID <= 0 {
		return invalid("pet_id", "is required")
	}
	if e.StartDate.IsZero() {
		return invalid("start_date", "is required")
	}
	if !timeutil.ValidOffset(e.TimezoneOffset) {
		return invalid("timezone_offset", "must be between %d and %d minutes",
			-timeutil.MaxOffsetMinutes, timeutil.MaxOffsetMinutes)
	}
	if e.IsRecurring && e.Recurrence == nil {
		return invalid("recurrence", "recurring event must have a recurrence rule")
	}
	if !e.IsRecurring && e.Recurrence != nil {
		return invalid("recurrence", "non-recurring event must not have a recurrence rule")
	}
	if e.Recurrence != nil {
		if err := e.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NotificationLogEntry records that a notification was sent for an event on
// a given occurrence date. Append-only; existence means "already notified".
type NotificationLogEntry struct {
	ID             int64     `json:"id" db:"id"`
	EventID        uuid.UUID `json:"event_id" db:"event_id"`
	OccurrenceDate time.Time `json:"occurrence_date" db:"occurrence_date"`
	SentAt         time.Time `json:"sent_at" db:"sent_at"`
}

// Completion records that the user marked an occurrence as done. Same shape
// as the notification log but independently written, so it is a separate
// table.
type Completion struct {
	ID             int64     `json:"id" db:"id"`
	EventID        uuid.UUID `json:"event_id" db:"event_id"`
	OccurrenceDate time.Time `json:"occurrence_date" db:"occurrence_date"`
	CompletedAt    time.Time `json:"completed_at" db:"completed_at"`
}
