package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pawtrack/pawtrack/internal/models"
	"github.com/pawtrack/pawtrack/internal/timeutil"
)

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser()
	petID := env.addPet(userID)

	tests := []struct {
		name  string
		event *models.Event
	}{
		{
			name: "recurring without rule",
			event: &models.Event{
				PetID: petID, Title: "Meds", StartDate: timeutil.Date(2024, 1, 1),
				Time: 9 * 60, TimezoneOffset: 0, IsRecurring: true,
			},
		},
		{
			name: "rule on non-recurring event",
			event: &models.Event{
				PetID: petID, Title: "Meds", StartDate: timeutil.Date(2024, 1, 1),
				Time: 9 * 60, TimezoneOffset: 0,
				Recurrence: &models.RecurrenceRule{Frequency: models.FrequencyDaily, Interval: 1},
			},
		},
		{
			name: "weekly without week days",
			event: &models.Event{
				PetID: petID, Title: "Meds", StartDate: timeutil.Date(2024, 1, 1),
				Time: 9 * 60, TimezoneOffset: 0, IsRecurring: true,
				Recurrence: &models.RecurrenceRule{Frequency: models.FrequencyWeekly, Interval: 1},
			},
		},
		{
			name: "offset out of range",
			event: &models.Event{
				PetID: petID, Title: "Meds", StartDate: timeutil.Date(2024, 1, 1),
				Time: 9 * 60, TimezoneOffset: 1000,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := env.svc.CreateEvent(context.Background(), userID, test.event)
			var vErr *models.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateEventForeignPetRejected(t *testing.T) {
	env := newTestEnv()
	owner := env.addUser()
	stranger := env.addUser()
	petID := env.addPet(owner)

	_, err := env.svc.CreateEvent(context.Background(), stranger, &models.Event{
		PetID: petID, Title: "Feeding", StartDate: timeutil.Date(2024, 1, 1),
		Time: 9 * 60, TimezoneOffset: 0,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign pet, got %v", err)
	}
}

func TestUpdateEventDropsRecurrence(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser()
	petID := env.addPet(userID)

	created, err := env.svc.CreateEvent(context.Background(), userID, &models.Event{
		PetID: petID, Title: "Feeding", StartDate: timeutil.Date(2024, 1, 1),
		Time: 9 * 60, TimezoneOffset: 180, IsRecurring: true,
		Recurrence: &models.RecurrenceRule{Frequency: models.FrequencyDaily, Interval: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := env.svc.UpdateEvent(context.Background(), userID, &models.Event{
		ID: created.ID, PetID: petID, Title: "Feeding", StartDate: timeutil.Date(2024, 1, 1),
		Time: 9 * 60, TimezoneOffset: 180, IsRecurring: false,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsRecurring || updated.Recurrence != nil {
		t.Error("event should no longer be recurring")
	}

	stored, _ := env.events.GetByID(context.Background(), created.ID)
	if stored.Recurrence != nil {
		t.Error("stored event should have no recurrence rule")
	}
}

func TestListOccurrencesDoneFlags(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser()
	petID := env.addPet(userID)

	created, err := env.svc.CreateEvent(context.Background(), userID, &models.Event{
		PetID: petID, Title: "Vitamins", StartDate: timeutil.Date(2024, 1, 1),
		Time: 9 * 60, TimezoneOffset: 180, IsRecurring: true,
		Recurrence: &models.RecurrenceRule{Frequency: models.FrequencyWeekly, Interval: 1, WeekDays: []int{1, 4}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.svc.MarkCompleted(context.Background(), userID, created.ID, timeutil.Date(2024, 1, 4)); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	occurrences, err := env.svc.ListOccurrences(context.Background(), userID, timeutil.Date(2024, 1, 1), timeutil.Date(2024, 1, 14))
	if err != nil {
		t.Fatalf("list occurrences: %v", err)
	}
	if len(occurrences) != 4 {
		t.Fatalf("got %d occurrences, want 4", len(occurrences))
	}

	doneCount := 0
	for _, occ := range occurrences {
		if occ.Done {
			doneCount++
			if !occ.Date.Equal(timeutil.Date(2024, 1, 4)) {
				t.Errorf("wrong occurrence marked done: %s", timeutil.FormatDate(occ.Date))
			}
		}
	}
	if doneCount != 1 {
		t.Errorf("%d occurrences done, want 1", doneCount)
	}
}

func TestMarkCompletedIdempotent(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser()
	petID := env.addPet(userID)

	created, err := env.svc.CreateEvent(context.Background(), userID, &models.Event{
		PetID: petID, Title: "Feeding", StartDate: timeutil.Date(2024, 1, 1),
		Time: 9 * 60, TimezoneOffset: 0, IsRecurring: true,
		Recurrence: &models.RecurrenceRule{Frequency: models.FrequencyDaily, Interval: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	date := timeutil.Date(2024, 1, 5)
	if err := env.svc.MarkCompleted(context.Background(), userID, created.ID, date); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := env.svc.MarkCompleted(context.Background(), userID, created.ID, date); err != nil {
		t.Fatalf("second mark should be a no-op, got: %v", err)
	}
	if got := env.complete.size(); got != 1 {
		t.Errorf("completion ledger has %d entries, want 1", got)
	}
}

func TestMarkCompletedInvalidDate(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser()
	petID := env.addPet(userID)

	// Mondays only; January 2nd 2024 is a Tuesday.
	created, err := env.svc.CreateEvent(context.Background(), userID, &models.Event{
		PetID: petID, Title: "Feeding", StartDate: timeutil.Date(2024, 1, 1),
		Time: 9 * 60, TimezoneOffset: 0, IsRecurring: true,
		Recurrence: &models.RecurrenceRule{Frequency: models.FrequencyWeekly, Interval: 1, WeekDays: []int{1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = env.svc.MarkCompleted(context.Background(), userID, created.ID, timeutil.Date(2024, 1, 2))
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for non-occurrence date, got %v", err)
	}
	if got := env.complete.size(); got != 0 {
		t.Errorf("completion ledger has %d entries, want 0", got)
	}
}

func TestListOccurrencesWindowValidation(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser()

	_, err := env.svc.ListOccurrences(context.Background(), userID, timeutil.Date(2024, 2, 1), timeutil.Date(2024, 1, 1))
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for inverted window, got %v", err)
	}

	_, err = env.svc.ListOccurrences(context.Background(), userID, timeutil.Date(2024, 1, 1), timeutil.Date(2026, 1, 1))
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for oversized window, got %v", err)
	}
}

func TestDeleteEventOwnership(t *testing.T) {
	env := newTestEnv()
	owner := env.addUser()
	stranger := env.addUser()
	petID := env.addPet(owner)

	created, err := env.svc.CreateEvent(context.Background(), owner, &models.Event{
		PetID: petID, Title: "Feeding", StartDate: timeutil.Date(2024, 1, 1),
		Time: 9 * 60, TimezoneOffset: 0,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.svc.DeleteEvent(context.Background(), stranger, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign event, got %v", err)
	}
	if err := env.svc.DeleteEvent(context.Background(), owner, created.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}
