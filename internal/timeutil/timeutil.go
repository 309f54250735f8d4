// Package timeutil provides wall-clock and fixed-offset time arithmetic.
//
// Events store their time of day in the creator's local wall clock together
// with an integer minutes offset from UTC. Keeping the offset as a plain
// integer avoids timezone-database lookups and DST recomputation entirely.
package timeutil

import (
	"fmt"
	"time"
)

const (
	minutesPerDay = 24 * 60

	// MaxOffsetMinutes bounds a timezone offset to +-14 hours, the widest
	// offset in use anywhere in the world.
	MaxOffsetMinutes = 14 * 60

	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
)

// TimeOfDay is a wall-clock time of day expressed as minutes since midnight,
// in the range [0, 1440). It carries no date and no zone.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hour %d out of range", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("minute %d out of range", minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" (seconds are dropped).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
}

// Hour returns the hour component, 0-23.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component, 0-59.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalJSON encodes the time as a "HH:MM" JSON string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON decodes a "HH:MM" or "HH:MM:SS" JSON string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid time of day %s", data)
	}
	parsed, err := ParseTimeOfDay(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ShiftTime moves a wall-clock time by delta minutes, wrapping modulo 24h.
// Date rollover is silently absorbed; callers that care about the day
// boundary must detect it themselves.
func ShiftTime(t TimeOfDay, delta int) TimeOfDay {
	shifted := (int(t) + delta) % minutesPerDay
	if shifted < 0 {
		shifted += minutesPerDay
	}
	return TimeOfDay(shifted)
}

// ValidOffset reports whether minutes is a representable UTC offset.
func ValidOffset(minutes int) bool {
	return minutes >= -MaxOffsetMinutes && minutes <= MaxOffsetMinutes
}

// ToLocal converts an instant to the wall clock of a fixed offset. The
// returned time is still in the UTC location; only its clock reading has
// moved, which is exactly what hour/minute/date comparisons need.
func ToLocal(utc time.Time, offsetMinutes int) time.Time {
	return utc.UTC().Add(time.Duration(offsetMinutes) * time.Minute)
}

// Date builds a date-only value: midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "2006-01-02" date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders a date-only value as "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ISOWeekday returns the ISO 8601 weekday number: Monday=1 .. Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// SameDate reports whether two instants fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
