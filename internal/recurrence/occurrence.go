// Package recurrence computes the calendar dates a possibly recurring event
// falls on. Generation is pure: the same event and window always produce the
// same ordered slice, and no state survives between calls.
package recurrence

import (
	"time"

	"github.com/pawtrack/pawtrack/internal/models"
	"github.com/pawtrack/pawtrack/internal/timeutil"
)

// Occurrences returns every date in [from, to] (inclusive on both ends) on
// which the event is scheduled, in ascending order.
//
// A non-recurring event yields its start date when it lies inside the
// window, otherwise nothing. A recurring event is walked day by day from
// max(start_date, from) to to, stopping early at the rule's end date, and a
// day is kept when the rule matches it. Month days that a month does not
// have (the 31st in April) are simply absent, never clamped or rolled over.
func Occurrences(event *models.Event, from, to time.Time) []time.Time {
	from = timeutil.DateOf(from)
	to = timeutil.DateOf(to)
	if to.Before(from) {
		return nil
	}

	start := timeutil.DateOf(event.StartDate)
	if start.After(to) {
		return nil
	}

	if !event.IsRecurring || event.Recurrence == nil {
		if start.Before(from) {
			return nil
		}
		return []time.Time{start}
	}

	rule := event.Recurrence
	day := from
	if start.After(day) {
		day = start
	}

	var dates []time.Time
	for !day.After(to) {
		if rule.EndDate != nil && day.After(timeutil.DateOf(*rule.EndDate)) {
			break
		}
		if matches(rule, day) {
			dates = append(dates, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

// OccursOn reports whether the event is scheduled on the given date.
func OccursOn(event *models.Event, date time.Time) bool {
	return len(Occurrences(event, date, date)) > 0
}

func matches(rule *models.RecurrenceRule, day time.Time) bool {
	switch rule.Frequency {
	case models.FrequencyDaily:
		return true
	case models.FrequencyWeekly:
		return rule.ContainsWeekDay(timeutil.ISOWeekday(day))
	case models.FrequencyMonthly:
		return rule.ContainsMonthDay(day.Day())
	default:
		return false
	}
}
