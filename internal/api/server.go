package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pawtrack/pawtrack/internal/models"
	"github.com/pawtrack/pawtrack/internal/service"
	"github.com/pawtrack/pawtrack/internal/timeutil"
)

// Server provides the HTTP API for the mobile clients.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Auth
	s.mux.HandleFunc("POST /api/auth/send-code", s.handleSendCode)
	s.mux.HandleFunc("POST /api/auth/verify-code", s.handleVerifyCode)
	s.mux.HandleFunc("POST /api/auth/logout", s.authed(s.handleLogout))
	s.mux.HandleFunc("GET /api/profile", s.authed(s.handleProfile))

	// Pets & breeds
	s.mux.HandleFunc("GET /api/breeds", s.handleListBreeds)
	s.mux.HandleFunc("GET /api/pets", s.authed(s.handleListPets))
	s.mux.HandleFunc("POST /api/pets", s.authed(s.handleCreatePet))
	s.mux.HandleFunc("GET /api/pets/{id}", s.authed(s.handleGetPet))
	s.mux.HandleFunc("PUT /api/pets/{id}", s.authed(s.handleUpdatePet))
	s.mux.HandleFunc("DELETE /api/pets/{id}", s.authed(s.handleDeletePet))

	// Events & occurrences
	s.mux.HandleFunc("GET /api/events", s.authed(s.handleListEvents))
	s.mux.HandleFunc("POST /api/events", s.authed(s.handleCreateEvent))
	s.mux.HandleFunc("GET /api/events/{id}", s.authed(s.handleGetEvent))
	s.mux.HandleFunc("PUT /api/events/{id}", s.authed(s.handleUpdateEvent))
	s.mux.HandleFunc("DELETE /api/events/{id}", s.authed(s.handleDeleteEvent))
	s.mux.HandleFunc("POST /api/events/{id}/complete", s.authed(s.handleCompleteEvent))
	s.mux.HandleFunc("GET /api/occurrences", s.authed(s.handleListOccurrences))

	// Operational endpoints
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Unknown errors are logged and reported as a generic 500 so internals never
// leak to the client.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		s.respondError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, service.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrCodeRecentlySent):
		s.respondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, service.ErrTooManyAttempts):
		s.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrUserNotFound):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidToken):
		s.respondError(w, http.StatusUnauthorized, err.Error())
	default:
		s.logger.WithError(err).Error(fallback)
		s.respondError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// pathUUID extracts the {id} path value and parses it as a UUID.
func pathUUID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing id in path")
	}
	return uuid.Parse(raw)
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

type authedHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

// authed wraps a handler with bearer-token authentication. The resolved user
// is passed to the handler directly instead of through the request context.
func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := s.svc.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				s.respondError(w, http.StatusUnauthorized, err.Error())
				return
			}
			s.logger.WithError(err).Error("failed to authenticate request")
			s.respondError(w, http.StatusInternalServerError, "authentication failed")
			return
		}

		next(w, r, user)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// ---------------------------------------------------------------------------
// Auth endpoints
// ---------------------------------------------------------------------------

type sendCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type verifyCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

type verifyCodeResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		s.respondError(w, http.StatusBadRequest, "phone_number is required")
		return
	}

	phone, err := s.svc.SendCode(r.Context(), req.PhoneNumber)
	if err != nil {
		s.respondServiceError(w, err, "failed to send confirmation code")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"phone_number": phone})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.PhoneNumber == "" || req.Code == "" {
		s.respondError(w, http.StatusBadRequest, "phone_number and code are required")
		return
	}

	user, token, err := s.svc.VerifyCode(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		s.respondServiceError(w, err, "failed to verify confirmation code")
		return
	}

	s.respondJSON(w, http.StatusOK, verifyCodeResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *models.User) {
	token, _ := bearerToken(r)
	if err := s.svc.Logout(r.Context(), token); err != nil {
		s.respondServiceError(w, err, "failed to log out")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request, user *models.User) {
	s.respondJSON(w, http.StatusOK, user)
}

// ---------------------------------------------------------------------------
// Pets & breeds
// ---------------------------------------------------------------------------

type petRequest struct {
	Name          string         `json:"name"`
	Type          models.PetType `json:"pet_type"`
	BreedID       int64          `json:"breed_id"`
	Weight        float64        `json:"weight"`
	Birthday      string         `json:"birthday"` // YYYY-MM-DD, optional
	Color         string         `json:"color"`
	Gender        models.Gender  `json:"gender"`
	HasCastration bool           `json:"has_castration"`
}

func (req *petRequest) toModel() (*models.Pet, error) {
	pet := &models.Pet{
		Name:          strings.TrimSpace(req.Name),
		Type:          req.Type,
		BreedID:       req.BreedID,
		Weight:        req.Weight,
		Color:         strings.TrimSpace(req.Color),
		Gender:        req.Gender,
		HasCastration: req.HasCastration,
	}
	if req.Birthday != "" {
		birthday, err := timeutil.ParseDate(req.Birthday)
		if err != nil {
			return nil, err
		}
		pet.Birthday = &birthday
	}
	return pet, nil
}

func (s *Server) handleListBreeds(w http.ResponseWriter, r *http.Request) {
	petType := models.PetType(r.URL.Query().Get("pet_type"))

	breeds, err := s.svc.ListBreeds(r.Context(), petType)
	if err != nil {
		s.respondServiceError(w, err, "failed to list breeds")
		return
	}
	if breeds == nil {
		breeds = []*models.Breed{}
	}
	s.respondJSON(w, http.StatusOK, breeds)
}

func (s *Server) handleListPets(w http.ResponseWriter, r *http.Request, user *models.User) {
	pets, err := s.svc.ListPets(r.Context(), user.ID)
	if err != nil {
		s.respondServiceError(w, err, "failed to list pets")
		return
	}
	if pets == nil {
		pets = []*models.Pet{}
	}
	s.respondJSON(w, http.StatusOK, pets)
}

func (s *Server) handleCreatePet(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req petRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	pet, err := req.toModel()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.svc.CreatePet(r.Context(), user.ID, pet)
	if err != nil {
		s.respondServiceError(w, err, "failed to create pet")
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPet(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid pet id")
		return
	}

	pet, err := s.svc.GetPet(r.Context(), user.ID, id)
	if err != nil {
		s.respondServiceError(w, err, "failed to get pet")
		return
	}

	s.respondJSON(w, http.StatusOK, pet)
}

func (s *Server) handleUpdatePet(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid pet id")
		return
	}

	var req petRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	pet, err := req.toModel()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	pet.ID = id

	updated, err := s.svc.UpdatePet(r.Context(), user.ID, pet)
	if err != nil {
		s.respondServiceError(w, err, "failed to update pet")
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePet(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid pet id")
		return
	}

	if err := s.svc.DeletePet(r.Context(), user.ID, id); err != nil {
		s.respondServiceError(w, err, "failed to delete pet")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// The wire format carries the time of day in UTC; storage keeps the local
// wall clock. The shift happens here, at the boundary, in both directions.

type recurrencePayload struct {
	Frequency models.Frequency `json:"frequency"`
	Interval  int              `json:"interval"`
	WeekDays  []int            `json:"week_days,omitempty"`
	MonthDays []int            `json:"month_days,omitempty"`
	EndDate   string           `json:"end_date,omitempty"` // YYYY-MM-DD
}

type eventRequest struct {
	PetID          int64              `json:"pet_id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	StartDate      string             `json:"start_date"` // YYYY-MM-DD
	Time           string             `json:"time"`       // HH:MM, UTC
	TimezoneOffset int                `json:"timezone_offset"`
	IsRecurring    bool               `json:"is_recurring"`
	Recurrence     *recurrencePayload `json:"recurrence,omitempty"`
}

type eventResponse struct {
	ID             uuid.UUID          `json:"id"`
	PetID          int64              `json:"pet_id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	StartDate      string             `json:"start_date"`
	Time           string             `json:"time"` // HH:MM, UTC
	TimezoneOffset int                `json:"timezone_offset"`
	IsRecurring    bool               `json:"is_recurring"`
	Recurrence     *recurrencePayload `json:"recurrence,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

func (req *eventRequest) toModel() (*models.Event, error) {
	if req.StartDate == "" {
		return nil, fmt.Errorf("start_date is required")
	}
	startDate, err := timeutil.ParseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	if req.Time == "" {
		return nil, fmt.Errorf("time is required")
	}
	utcTime, err := timeutil.ParseTimeOfDay(req.Time)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		PetID:          req.PetID,
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		StartDate:      startDate,
		Time:           timeutil.ShiftTime(utcTime, req.TimezoneOffset),
		TimezoneOffset: req.TimezoneOffset,
		IsRecurring:    req.IsRecurring,
	}

	if req.Recurrence != nil {
		rule := &models.RecurrenceRule{
			Frequency: req.Recurrence.Frequency,
			Interval:  req.Recurrence.Interval,
			WeekDays:  req.Recurrence.WeekDays,
			MonthDays: req.Recurrence.MonthDays,
		}
		if rule.Interval == 0 {
			rule.Interval = 1
		}
		if req.Recurrence.EndDate != "" {
			endDate, err := timeutil.ParseDate(req.Recurrence.EndDate)
			if err != nil {
				return nil, err
			}
			rule.EndDate = &endDate
		}
		event.Recurrence = rule
	}

	return event, nil
}

func toEventResponse(event *models.Event) *eventResponse {
	resp := &eventResponse{
		ID:             event.ID,
		PetID:          event.PetID,
		Title:          event.Title,
		Description:    event.Description,
		StartDate:      timeutil.FormatDate(event.StartDate),
		Time:           timeutil.ShiftTime(event.Time, -event.TimezoneOffset).String(),
		TimezoneOffset: event.TimezoneOffset,
		IsRecurring:    event.IsRecurring,
		CreatedAt:      event.CreatedAt,
	}
	if event.Recurrence != nil {
		resp.Recurrence = &recurrencePayload{
			Frequency: event.Recurrence.Frequency,
			Interval:  event.Recurrence.Interval,
			WeekDays:  event.Recurrence.WeekDays,
			MonthDays: event.Recurrence.MonthDays,
		}
		if event.Recurrence.EndDate != nil {
			resp.Recurrence.EndDate = timeutil.FormatDate(*event.Recurrence.EndDate)
		}
	}
	return resp
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request, user *models.User) {
	events, err := s.svc.ListEvents(r.Context(), user.ID)
	if err != nil {
		s.respondServiceError(w, err, "failed to list events")
		return
	}

	responses := make([]*eventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, toEventResponse(event))
	}
	s.respondJSON(w, http.StatusOK, responses)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req eventRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	event, err := req.toModel()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.svc.CreateEvent(r.Context(), user.ID, event)
	if err != nil {
		s.respondServiceError(w, err, "failed to create event")
		return
	}

	s.respondJSON(w, http.StatusCreated, toEventResponse(created))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathUUID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	event, err := s.svc.GetEvent(r.Context(), user.ID, id)
	if err != nil {
		s.respondServiceError(w, err, "failed to get event")
		return
	}

	s.respondJSON(w, http.StatusOK, toEventResponse(event))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathUUID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req eventRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	event, err := req.toModel()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	event.ID = id

	updated, err := s.svc.UpdateEvent(r.Context(), user.ID, event)
	if err != nil {
		s.respondServiceError(w, err, "failed to update event")
		return
	}

	s.respondJSON(w, http.StatusOK, toEventResponse(updated))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathUUID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := s.svc.DeleteEvent(r.Context(), user.ID, id); err != nil {
		s.respondServiceError(w, err, "failed to delete event")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Occurrences & completions
// ---------------------------------------------------------------------------

type completeEventRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}

type occurrenceResponse struct {
	EventID        uuid.UUID `json:"event_id"`
	PetID          int64     `json:"pet_id"`
	Title          string    `json:"title"`
	Date           string    `json:"date"`
	Time           string    `json:"time"` // HH:MM, UTC
	TimezoneOffset int       `json:"timezone_offset"`
	Done           bool      `json:"done"`
}

func (s *Server) handleListOccurrences(w http.ResponseWriter, r *http.Request, user *models.User) {
	q := r.URL.Query()

	from, err := timeutil.ParseDate(q.Get("date_from"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "date_from must be YYYY-MM-DD")
		return
	}
	to, err := timeutil.ParseDate(q.Get("date_to"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "date_to must be YYYY-MM-DD")
		return
	}

	occurrences, err := s.svc.ListOccurrences(r.Context(), user.ID, from, to)
	if err != nil {
		s.respondServiceError(w, err, "failed to list occurrences")
		return
	}

	responses := make([]*occurrenceResponse, 0, len(occurrences))
	for _, occ := range occurrences {
		responses = append(responses, &occurrenceResponse{
			EventID:        occ.EventID,
			PetID:          occ.PetID,
			Title:          occ.Title,
			Date:           timeutil.FormatDate(occ.Date),
			Time:           timeutil.ShiftTime(occ.Time, -occ.TimezoneOffset).String(),
			TimezoneOffset: occ.TimezoneOffset,
			Done:           occ.Done,
		})
	}
	s.respondJSON(w, http.StatusOK, responses)
}

func (s *Server) handleCompleteEvent(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathUUID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req completeEventRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	if err := s.svc.MarkCompleted(r.Context(), user.ID, id, date); err != nil {
		s.respondServiceError(w, err, "failed to mark event completed")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
