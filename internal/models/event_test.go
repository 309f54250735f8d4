package models

import (
	"testing"
	"time"

	"github.com/pawtrack/pawtrack/internal/timeutil"
)

func validEvent() *Event {
	return &Event{
		PetID:          1,
		Title:          "Morning feeding",
		StartDate:      timeutil.Date(2024, 1, 1),
		Time:           9 * 60,
		TimezoneOffset: 180,
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{name: "valid non-recurring", mutate: func(e *Event) {}},
		{
			name: "valid weekly",
			mutate: func(e *Event) {
				e.IsRecurring = true
				e.Recurrence = &RecurrenceRule{Frequency: FrequencyWeekly, Interval: 1, WeekDays: []int{1, 4}}
			},
		},
		{
			name:    "recurring without rule",
			mutate:  func(e *Event) { e.IsRecurring = true },
			wantErr: true,
		},
		{
			name: "rule without recurring flag",
			mutate: func(e *Event) {
				e.Recurrence = &RecurrenceRule{Frequency: FrequencyDaily, Interval: 1}
			},
			wantErr: true,
		},
		{
			name:    "offset too large",
			mutate:  func(e *Event) { e.TimezoneOffset = 900 },
			wantErr: true,
		},
		{
			name:    "offset too small",
			mutate:  func(e *Event) { e.TimezoneOffset = -900 },
			wantErr: true,
		},
		{
			name:    "missing title",
			mutate:  func(e *Event) { e.Title = "" },
			wantErr: true,
		},
		{
			name:    "missing pet",
			mutate:  func(e *Event) { e.PetID = 0 },
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := validEvent()
			test.mutate(e)
			err := e.Validate()
			if test.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !test.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRecurrenceRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    RecurrenceRule
		wantErr bool
	}{
		{name: "daily", rule: RecurrenceRule{Frequency: FrequencyDaily, Interval: 1}},
		{name: "weekly with days", rule: RecurrenceRule{Frequency: FrequencyWeekly, Interval: 1, WeekDays: []int{7}}},
		{name: "monthly with days", rule: RecurrenceRule{Frequency: FrequencyMonthly, Interval: 1, MonthDays: []int{31}}},
		{name: "weekly without days", rule: RecurrenceRule{Frequency: FrequencyWeekly, Interval: 1}, wantErr: true},
		{name: "monthly without days", rule: RecurrenceRule{Frequency: FrequencyMonthly, Interval: 1}, wantErr: true},
		{name: "weekday out of range", rule: RecurrenceRule{Frequency: FrequencyWeekly, Interval: 1, WeekDays: []int{8}}, wantErr: true},
		{name: "month day out of range", rule: RecurrenceRule{Frequency: FrequencyMonthly, Interval: 1, MonthDays: []int{0}}, wantErr: true},
		{name: "unknown frequency", rule: RecurrenceRule{Frequency: "yearly", Interval: 1}, wantErr: true},
		{name: "zero interval", rule: RecurrenceRule{Frequency: FrequencyDaily}, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.rule.Validate()
			if test.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !test.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestUserCodeLifecycle(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	u := &User{}
	if !u.IsCodeExpired(now) {
		t.Error("user without sent code should be expired")
	}
	if !u.CanResend(now) {
		t.Error("user without sent code should be able to request one")
	}

	sent := now.Add(-30 * time.Second)
	u.CodeSentAt = &sent
	if u.IsCodeExpired(now) {
		t.Error("code sent 30s ago should still be valid")
	}
	if u.CanResend(now) {
		t.Error("resend window should still be closed after 30s")
	}

	sent = now.Add(-6 * time.Minute)
	u.CodeSentAt = &sent
	if !u.IsCodeExpired(now) {
		t.Error("code sent 6m ago should be expired")
	}
	if !u.CanResend(now) {
		t.Error("resend window should be open after 6m")
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "79051234567", want: "79051234567"},
		{input: "+7 905 123-45-67", want: "79051234567"},
		{input: "89051234567", want: "79051234567"},
		{input: "9051234567", want: "79051234567"},
		{input: "12345", wantErr: true},
		{input: "19051234567", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := NormalizePhone(test.input)
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
		})
	}
}
