package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pawtrack/pawtrack/internal/models"
	"github.com/pawtrack/pawtrack/internal/timeutil"
)

// In-memory repository fakes. They mirror the postgres implementations'
// contracts: nil for missing records, atomic insert-if-absent ledgers.

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	r.users[user.ID] = &cp
	return user, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PhoneNumber == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Update(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return nil, errors.New("user not found")
	}
	cp := *user
	r.users[user.ID] = &cp
	return user, nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	nextID   int64
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*models.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, session *models.Session) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	session.ID = r.nextID
	cp := *session
	r.sessions[session.TokenHash] = &cp
	return session, nil
}

func (r *memSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[tokenHash]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *memSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenHash)
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, hash)
			n++
		}
	}
	return n, nil
}

type memPetRepo struct {
	mu     sync.Mutex
	pets   map[int64]*models.Pet
	breeds map[int64]*models.Breed
	nextID int64
}

func newMemPetRepo() *memPetRepo {
	return &memPetRepo{
		pets: make(map[int64]*models.Pet),
		breeds: map[int64]*models.Breed{
			1: {ID: 1, Name: "Maine Coon", Type: models.PetTypeCat},
			2: {ID: 2, Name: "Corgi", Type: models.PetTypeDog},
		},
	}
}

func (r *memPetRepo) Create(_ context.Context, pet *models.Pet) (*models.Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	pet.ID = r.nextID
	cp := *pet
	r.pets[pet.ID] = &cp
	return pet, nil
}

func (r *memPetRepo) GetByID(_ context.Context, id int64) (*models.Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pets[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *memPetRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pets []*models.Pet
	for _, p := range r.pets {
		if p.OwnerID == ownerID {
			cp := *p
			pets = append(pets, &cp)
		}
	}
	return pets, nil
}

func (r *memPetRepo) Update(_ context.Context, pet *models.Pet) (*models.Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pets[pet.ID]; !ok {
		return nil, errors.New("pet not found")
	}
	cp := *pet
	r.pets[pet.ID] = &cp
	return pet, nil
}

func (r *memPetRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pets[id]; !ok {
		return errors.New("pet not found")
	}
	delete(r.pets, id)
	return nil
}

func (r *memPetRepo) GetBreed(_ context.Context, id int64) (*models.Breed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breeds[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (r *memPetRepo) ListBreeds(_ context.Context, petType models.PetType) ([]*models.Breed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var breeds []*models.Breed
	for _, b := range r.breeds {
		if petType == "" || b.Type == petType {
			cp := *b
			breeds = append(breeds, &cp)
		}
	}
	return breeds, nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
	// listErr simulates an unavailable store for whole-sweep abort tests.
	listErr error
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{events: make(map[uuid.UUID]*models.Event)}
}

func copyEvent(e *models.Event) *models.Event {
	cp := *e
	if e.Recurrence != nil {
		rule := *e.Recurrence
		cp.Recurrence = &rule
	}
	return &cp
}

func (r *memEventRepo) Create(_ context.Context, event *models.Event) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Recurrence != nil && event.Recurrence.ID == uuid.Nil {
		event.Recurrence.ID = uuid.New()
	}
	r.events[event.ID] = copyEvent(event)
	return event, nil
}

func (r *memEventRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.events[id]; ok {
		return copyEvent(e), nil
	}
	return nil, nil
}

func (r *memEventRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var events []*models.Event
	for _, e := range r.events {
		if e.UserID == userID {
			events = append(events, copyEvent(e))
		}
	}
	return events, nil
}

func (r *memEventRepo) ListAll(_ context.Context) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var events []*models.Event
	for _, e := range r.events {
		events = append(events, copyEvent(e))
	}
	return events, nil
}

func (r *memEventRepo) Update(_ context.Context, event *models.Event) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return nil, errors.New("event not found")
	}
	r.events[event.ID] = copyEvent(event)
	return event, nil
}

func (r *memEventRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return errors.New("event not found")
	}
	delete(r.events, id)
	return nil
}

type ledgerKey struct {
	eventID uuid.UUID
	date    string
}

type memLedger struct {
	mu      sync.Mutex
	entries map[ledgerKey]time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{entries: make(map[ledgerKey]time.Time)}
}

func (l *memLedger) insert(eventID uuid.UUID, date time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{eventID, timeutil.FormatDate(date)}
	if _, ok := l.entries[key]; ok {
		return false
	}
	l.entries[key] = time.Now()
	return true
}

func (l *memLedger) has(eventID uuid.UUID, date time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[ledgerKey{eventID, timeutil.FormatDate(date)}]
	return ok
}

func (l *memLedger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type memNotifLogRepo struct {
	*memLedger
	markErr error
}

func newMemNotifLogRepo() *memNotifLogRepo {
	return &memNotifLogRepo{memLedger: newMemLedger()}
}

func (r *memNotifLogRepo) MarkSent(_ context.Context, eventID uuid.UUID, date time.Time) (bool, error) {
	if r.markErr != nil {
		return false, r.markErr
	}
	return r.insert(eventID, date), nil
}

func (r *memNotifLogRepo) Exists(_ context.Context, eventID uuid.UUID, date time.Time) (bool, error) {
	return r.has(eventID, date), nil
}

type memCompletionRepo struct {
	*memLedger
}

func newMemCompletionRepo() *memCompletionRepo {
	return &memCompletionRepo{memLedger: newMemLedger()}
}

func (r *memCompletionRepo) Mark(_ context.Context, eventID uuid.UUID, date time.Time) (bool, error) {
	return r.insert(eventID, date), nil
}

func (r *memCompletionRepo) Exists(_ context.Context, eventID uuid.UUID, date time.Time) (bool, error) {
	return r.has(eventID, date), nil
}

func (r *memCompletionRepo) ListDates(_ context.Context, eventID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var dates []time.Time
	for key := range r.entries {
		if key.eventID != eventID {
			continue
		}
		d, err := timeutil.ParseDate(key.date)
		if err != nil {
			return nil, err
		}
		if !d.Before(from) && !d.After(to) {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

type sentCode struct {
	phone string
	code  string
}

type fakeCodeSender struct {
	mu   sync.Mutex
	sent []sentCode
	fail bool
}

func (f *fakeCodeSender) SendCode(_ context.Context, phone, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("gateway unavailable")
	}
	f.sent = append(f.sent, sentCode{phone, code})
	return nil
}

func (f *fakeCodeSender) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].code
}

type dispatched struct {
	eventID uuid.UUID
	date    string
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []dispatched
	fail bool
}

func (f *fakeDispatcher) Send(_ context.Context, event *models.Event, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("push gateway down")
	}
	f.sent = append(f.sent, dispatched{event.ID, timeutil.FormatDate(date)})
	return nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// testEnv bundles a Service wired to fakes with the fakes themselves.
type testEnv struct {
	svc        *Service
	users      *memUserRepo
	sessions   *memSessionRepo
	pets       *memPetRepo
	events     *memEventRepo
	notifLog   *memNotifLogRepo
	complete   *memCompletionRepo
	sender     *fakeCodeSender
	dispatcher *fakeDispatcher
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:      newMemUserRepo(),
		sessions:   newMemSessionRepo(),
		pets:       newMemPetRepo(),
		events:     newMemEventRepo(),
		notifLog:   newMemNotifLogRepo(),
		complete:   newMemCompletionRepo(),
		sender:     &fakeCodeSender{},
		dispatcher: &fakeDispatcher{},
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	env.svc = New(log,
		env.users, env.sessions, env.pets,
		env.events, env.notifLog, env.complete,
		env.sender, env.dispatcher, time.Second,
	)
	return env
}

func (env *testEnv) setClock(t time.Time) {
	env.svc.clock = func() time.Time { return t }
}

func (env *testEnv) addUser() uuid.UUID {
	id := uuid.New()
	env.users.users[id] = &models.User{ID: id, PhoneNumber: fmt.Sprintf("7905%07d", len(env.users.users)), IsActive: true, IsVerified: true}
	return id
}

func (env *testEnv) addPet(ownerID uuid.UUID) int64 {
	pet, err := env.pets.Create(context.Background(), &models.Pet{
		OwnerID: ownerID, Name: "Barsik", Type: models.PetTypeCat, BreedID: 1, Weight: 4.2,
	})
	if err != nil {
		panic(err)
	}
	return pet.ID
}
