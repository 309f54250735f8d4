package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pawtrack/pawtrack/internal/models"
)

// UserRepository defines the interface for user account operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}

// SessionRepository defines the interface for bearer-token sessions
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PetRepository defines the interface for pet profile operations
type PetRepository interface {
	Create(ctx context.Context, pet *models.Pet) (*models.Pet, error)
	GetByID(ctx context.Context, id int64) (*models.Pet, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Pet, error)
	Update(ctx context.Context, pet *models.Pet) (*models.Pet, error)
	Delete(ctx context.Context, id int64) error
	GetBreed(ctx context.Context, id int64) (*models.Breed, error)
	ListBreeds(ctx context.Context, petType models.PetType) ([]*models.Breed, error)
}

// EventRepository defines the interface for event and recurrence-rule
// operations. Create and Update persist the event together with its rule in
// one transaction; Delete cascades to the rule and both ledgers.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Event, error)
	ListAll(ctx context.Context) ([]*models.Event, error)
	Update(ctx context.Context, event *models.Event) (*models.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NotificationLogRepository is the "already notified" half of the ledger.
// MarkSent is an atomic insert-if-absent: it reports false when an entry for
// the pair already existed, which is the scheduler's idempotency guard.
type NotificationLogRepository interface {
	MarkSent(ctx context.Context, eventID uuid.UUID, date time.Time) (bool, error)
	Exists(ctx context.Context, eventID uuid.UUID, date time.Time) (bool, error)
}

// CompletionRepository is the "user did the task" half of the ledger.
type CompletionRepository interface {
	Mark(ctx context.Context, eventID uuid.UUID, date time.Time) (bool, error)
	Exists(ctx context.Context, eventID uuid.UUID, date time.Time) (bool, error)
	ListDates(ctx context.Context, eventID uuid.UUID, from, to time.Time) ([]time.Time, error)
}
