// Package metrics exposes Prometheus counters for the notification sweep.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SweepsTotal counts completed minute-tick sweeps.
	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawtrack_scheduler_sweeps_total",
		Help: "Number of completed notification sweeps.",
	})

	// SweepsSkipped counts ticks skipped because the previous sweep was
	// still running.
	SweepsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawtrack_scheduler_sweeps_skipped_total",
		Help: "Number of ticks skipped due to an overlapping sweep.",
	})

	// NotificationsSent counts successfully dispatched notifications.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawtrack_notifications_sent_total",
		Help: "Number of notifications dispatched.",
	})

	// DispatchFailures counts notifications that were logged as sent but
	// whose dispatch call failed. There is no retry; this counter is the
	// visibility for that gap.
	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawtrack_notification_dispatch_failures_total",
		Help: "Number of failed notification dispatch calls.",
	})

	// EventsSkipped counts events skipped during a sweep because their
	// stored data could not be interpreted (e.g. out-of-range offset).
	EventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawtrack_scheduler_events_skipped_total",
		Help: "Number of events skipped during sweeps due to bad stored data.",
	})

	// SweepDuration observes how long a full sweep takes.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pawtrack_scheduler_sweep_duration_seconds",
		Help:    "Duration of notification sweeps.",
		Buckets: prometheus.DefBuckets,
	})
)
