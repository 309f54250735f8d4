package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/pawtrack/pawtrack/internal/models"
	"github.com/pawtrack/pawtrack/internal/repository"
)

// CodeSender delivers a phone confirmation code through an external channel.
type CodeSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// Dispatcher pushes an event notification for a specific occurrence date.
// The scheduler observes the error only for logging and metrics; delivery
// is at-most-once with no retry.
type Dispatcher interface {
	Send(ctx context.Context, event *models.Event, date time.Time) error
}

// Service is the central business logic layer that holds all repositories
// and the outbound collaborators.
type Service struct {
	logger      *logrus.Logger
	Users       repository.UserRepository
	Sessions    repository.SessionRepository
	Pets        repository.PetRepository
	Events      repository.EventRepository
	NotifLog    repository.NotificationLogRepository
	Completions repository.CompletionRepository

	codeSender      CodeSender
	dispatcher      Dispatcher
	dispatchTimeout time.Duration

	// clock supplies now; injected so scheduler and auth tests can pin time.
	clock func() time.Time

	sweepRunning atomic.Bool
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	pets repository.PetRepository,
	events repository.EventRepository,
	notifLog repository.NotificationLogRepository,
	completions repository.CompletionRepository,
	codeSender CodeSender,
	dispatcher Dispatcher,
	dispatchTimeout time.Duration,
) *Service {
	return &Service{
		logger: logger,
		Users:  users, Sessions: sessions, Pets: pets,
		Events: events, NotifLog: notifLog, Completions: completions,
		codeSender:      codeSender,
		dispatcher:      dispatcher,
		dispatchTimeout: dispatchTimeout,
		clock:           time.Now,
	}
}
