package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawtrack/pawtrack/internal/models"
	"github.com/pawtrack/pawtrack/internal/recurrence"
	"github.com/pawtrack/pawtrack/internal/timeutil"
)

// MaxOccurrenceWindowDays caps a single occurrence-listing request.
const MaxOccurrenceWindowDays = 366

// Occurrence is one scheduled date of an event, annotated with whether the
// user has already marked it done. Derived, never stored.
type Occurrence struct {
	EventID        uuid.UUID          `json:"event_id"`
	PetID          int64              `json:"pet_id"`
	Title          string             `json:"title"`
	Date           time.Time          `json:"-"`
	Time           timeutil.TimeOfDay `json:"-"`
	TimezoneOffset int                `json:"timezone_offset"`
	Done           bool               `json:"done"`
}

// CreateEvent validates and stores a new event (with its recurrence rule,
// when recurring) for the user. The event's Time must already be local
// wall-clock; the API layer converts from UTC before calling.
func (s *Service) CreateEvent(ctx context.Context, userID uuid.UUID, event *models.Event) (*models.Event, error) {
	event.UserID = userID
	event.StartDate = timeutil.DateOf(event.StartDate)
	normalizeRuleDates(event.Recurrence)

	if err := event.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.GetPet(ctx, userID, event.PetID); err != nil {
		return nil, err
	}

	created, err := s.Events.Create(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Infof("Created event %q (id=%s) for user %s", created.Title, created.ID, userID)
	return created, nil
}

// GetEvent returns the event if it belongs to the user.
func (s *Service) GetEvent(ctx context.Context, userID, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	if event == nil || event.UserID != userID {
		return nil, ErrNotFound
	}
	return event, nil
}

// ListEvents returns all events belonging to the user.
func (s *Service) ListEvents(ctx context.Context, userID uuid.UUID) ([]*models.Event, error) {
	events, err := s.Events.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// UpdateEvent replaces the stored event with a new fully-validated value.
// The new state is built and checked before anything is written; the
// repository persists it in one transaction, dropping the recurrence rule
// when the event stopped being recurring.
func (s *Service) UpdateEvent(ctx context.Context, userID uuid.UUID, event *models.Event) (*models.Event, error) {
	existing, err := s.GetEvent(ctx, userID, event.ID)
	if err != nil {
		return nil, err
	}

	event.UserID = existing.UserID
	event.CreatedAt = existing.CreatedAt
	event.StartDate = timeutil.DateOf(event.StartDate)
	normalizeRuleDates(event.Recurrence)

	if err := event.Validate(); err != nil {
		return nil, err
	}

	if event.PetID != existing.PetID {
		if _, err := s.GetPet(ctx, userID, event.PetID); err != nil {
			return nil, err
		}
	}

	updated, err := s.Events.Update(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to update event %s: %w", event.ID, err)
	}

	return updated, nil
}

// DeleteEvent removes the event, its rule and both ledger halves.
func (s *Service) DeleteEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	if _, err := s.GetEvent(ctx, userID, eventID); err != nil {
		return err
	}

	if err := s.Events.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}

	s.logger.Infof("Deleted event %s for user %s", eventID, userID)
	return nil
}

// ListOccurrences expands all of the user's events over [from, to] and
// annotates each date with its completion state.
func (s *Service) ListOccurrences(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*Occurrence, error) {
	from = timeutil.DateOf(from)
	to = timeutil.DateOf(to)
	if to.Before(from) {
		return nil, &models.ValidationError{Field: "date_to", Message: "must not be before date_from"}
	}
	if to.Sub(from) > MaxOccurrenceWindowDays*24*time.Hour {
		return nil, &models.ValidationError{Field: "date_to", Message: fmt.Sprintf("window exceeds %d days", MaxOccurrenceWindowDays)}
	}

	events, err := s.Events.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var occurrences []*Occurrence
	for _, event := range events {
		dates := recurrence.Occurrences(event, from, to)
		if len(dates) == 0 {
			continue
		}

		completed, err := s.Completions.ListDates(ctx, event.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to list completions for event %s: %w", event.ID, err)
		}
		done := make(map[time.Time]bool, len(completed))
		for _, d := range completed {
			done[d] = true
		}

		for _, date := range dates {
			occurrences = append(occurrences, &Occurrence{
				EventID:        event.ID,
				PetID:          event.PetID,
				Title:          event.Title,
				Date:           date,
				Time:           event.Time,
				TimezoneOffset: event.TimezoneOffset,
				Done:           done[date],
			})
		}
	}

	return occurrences, nil
}

// MarkCompleted records that the user did the event's task on the given
// date. Idempotent: marking the same occurrence twice is not an error. The
// date must be an actual occurrence of the event.
func (s *Service) MarkCompleted(ctx context.Context, userID, eventID uuid.UUID, date time.Time) error {
	event, err := s.GetEvent(ctx, userID, eventID)
	if err != nil {
		return err
	}

	date = timeutil.DateOf(date)
	if !recurrence.OccursOn(event, date) {
		return &models.ValidationError{Field: "date", Message: "event has no occurrence on this date"}
	}

	if _, err := s.Completions.Mark(ctx, eventID, date); err != nil {
		return fmt.Errorf("failed to mark completion: %w", err)
	}

	return nil
}

func normalizeRuleDates(rule *models.RecurrenceRule) {
	if rule == nil || rule.EndDate == nil {
		return
	}
	end := timeutil.DateOf(*rule.EndDate)
	rule.EndDate = &end
}
