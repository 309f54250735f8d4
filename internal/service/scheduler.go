package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/pawtrack/pawtrack/internal/metrics"
	"github.com/pawtrack/pawtrack/internal/models"
	"github.com/pawtrack/pawtrack/internal/recurrence"
	"github.com/pawtrack/pawtrack/internal/timeutil"
)

// RunTick executes one notification sweep: for every stored event, decide
// whether a notification is due at this minute in the event's own local
// time, and dispatch at most one per event per calendar day.
//
// Per-event failures are isolated and aggregated; only the initial event
// load aborts the whole sweep. When the previous sweep is still running the
// tick is skipped rather than stacked.
func (s *Service) RunTick(ctx context.Context) error {
	if !s.sweepRunning.CompareAndSwap(false, true) {
		s.logger.Warn("Previous notification sweep still running, skipping tick")
		metrics.SweepsSkipped.Inc()
		return nil
	}
	defer s.sweepRunning.Store(false)

	started := time.Now()
	now := s.clock().UTC()

	events, err := s.Events.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load events for sweep: %w", err)
	}

	var result *multierror.Error
	for _, event := range events {
		if err := s.processEvent(ctx, event, now); err != nil {
			s.logger.Errorf("Sweep failed for event %s: %v", event.ID, err)
			result = multierror.Append(result, fmt.Errorf("event %s: %w", event.ID, err))
		}
	}

	metrics.SweepsTotal.Inc()
	metrics.SweepDuration.Observe(time.Since(started).Seconds())

	return result.ErrorOrNil()
}

// processEvent decides and performs the notification for one event at one
// instant. Seconds are never compared; the notification-log insert is the
// sole duplicate-suppression mechanism, so a tick running twice within the
// same minute cannot double-fire.
func (s *Service) processEvent(ctx context.Context, event *models.Event, nowUTC time.Time) error {
	if !timeutil.ValidOffset(event.TimezoneOffset) {
		// Bad stored data must not block the rest of the sweep.
		s.logger.Warnf("Event %s has malformed timezone offset %d, skipping", event.ID, event.TimezoneOffset)
		metrics.EventsSkipped.Inc()
		return nil
	}

	local := timeutil.ToLocal(nowUTC, event.TimezoneOffset)
	if local.Hour() != event.Time.Hour() || local.Minute() != event.Time.Minute() {
		return nil
	}

	today := timeutil.DateOf(local)
	if !recurrence.OccursOn(event, today) {
		return nil
	}

	inserted, err := s.NotifLog.MarkSent(ctx, event.ID, today)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	if !inserted {
		// Already notified for this date, by this or a concurrent sweep.
		return nil
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	if err := s.dispatcher.Send(dispatchCtx, event, today); err != nil {
		// The ledger entry stays: delivery is at-most-once and a failed
		// dispatch is not retried. Counted so the gap is observable.
		s.logger.Errorf("Dispatch failed for event %s on %s: %v", event.ID, timeutil.FormatDate(today), err)
		metrics.DispatchFailures.Inc()
		return nil
	}

	metrics.NotificationsSent.Inc()
	s.logger.Infof("Notification sent for event %s on %s", event.ID, timeutil.FormatDate(today))
	return nil
}
