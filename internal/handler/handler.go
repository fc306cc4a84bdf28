// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/society-events/internal/calendar"
	"github.com/Shivanand-hulikatti/society-events/internal/clock"
	"github.com/Shivanand-hulikatti/society-events/internal/feed"
	"github.com/Shivanand-hulikatti/society-events/internal/model"
	"github.com/Shivanand-hulikatti/society-events/internal/notify"
	"github.com/Shivanand-hulikatti/society-events/internal/query"
	"github.com/Shivanand-hulikatti/society-events/internal/service"
	"github.com/Shivanand-hulikatti/society-events/internal/validate"
)

// MemberHeader carries the authenticated member's identity.
const MemberHeader = "X-Member-ID"

const defaultLimit = 6

// EventSystem is the service surface the handlers depend on.
type EventSystem interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	GetEvent(id string) (*service.EventView, error)
	ListEvents(c query.Criteria) []service.EventView
	FeaturedEvents(limit int) []service.EventView
	EventsByCategory(category model.Category, limit int) []service.EventView
	Register(ctx context.Context, eventID, memberID, displayName string, details model.RegistrationDetails) (*model.Registration, error)
	Cancel(ctx context.Context, eventID, memberID string) (*model.Registration, error)
	ListRegistrations(eventID string) ([]model.Registration, error)
	MemberRegistrations(memberID string) []model.Registration
	MonthCalendar(year int, month time.Month) []calendar.Cell
	RSS() feed.Channel
	ICal() string
}

// EventHandler holds all HTTP handlers for the events API.
type EventHandler struct {
	svc   EventSystem
	pub   notify.Publisher
	clock clock.Clock
	log   zerolog.Logger
}

// NewEventHandler constructs an EventHandler. A nil pub discards notices.
func NewEventHandler(svc EventSystem, pub notify.Publisher, c clock.Clock, log zerolog.Logger) *EventHandler {
	if pub == nil {
		pub = notify.Nop{}
	}
	if c == nil {
		c = clock.System{}
	}
	return &EventHandler{svc: svc, pub: pub, clock: c, log: log}
}

// Routes mounts every handler on r.
func (h *EventHandler) Routes(r chi.Router) {
	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Get("/featured", h.FeaturedEvents)
		r.Get("/category/{category}", h.EventsByCategory)
		r.Get("/{id}", h.GetEvent)
		r.Post("/{id}/register", h.Register)
		r.Delete("/{id}/register", h.Cancel)
		r.Get("/{id}/registrations", h.ListRegistrations)
	})

	r.Get("/members/{memberID}/registrations", h.MemberRegistrations)
	r.Get("/calendar", h.Calendar)
	r.Get("/feed.rss", h.RSS)
	r.Get("/feed.ics", h.ICal)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

type validationResponse struct {
	Error  string                `json:"error"`
	Fields []validate.FieldError `json:"fields"`
}

// writeServiceError maps core errors to HTTP statuses.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: model.ErrInvalidEventData.Error(), Fields: verr.Fields})
	case errors.Is(err, model.ErrInvalidEventData):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "member identity required")
	case errors.Is(err, model.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, model.ErrRegistrationNotFound):
		writeError(w, http.StatusNotFound, "registration not found")
	case errors.Is(err, model.ErrEventFull):
		writeError(w, http.StatusConflict, "event is fully booked")
	case errors.Is(err, model.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "you are already registered for this event")
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Query parameters: category, difficulty, status, from, to, q.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ListEvents(c))
}

// FeaturedEvents handles GET /events/featured
func (h *EventHandler) FeaturedEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.FeaturedEvents(limit))
}

// EventsByCategory handles GET /events/category/{category}
func (h *EventHandler) EventsByCategory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category := model.Category(chi.URLParam(r, "category"))
	writeJSON(w, http.StatusOK, h.svc.EventsByCategory(category, limit))
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Register handles POST /events/{id}/register
// The member comes from the X-Member-ID header; an empty body is accepted.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.RegisterRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	reg, err := h.svc.Register(r.Context(), id, r.Header.Get(MemberHeader), req.DisplayName, req.RegistrationDetails)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.publish(r.Context(), notify.KindRegistered, *reg)

	writeJSON(w, http.StatusCreated, reg)
}

// Cancel handles DELETE /events/{id}/register
func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	member := strings.TrimSpace(r.Header.Get(MemberHeader))
	if member == "" {
		h.writeServiceError(w, r, model.ErrNotAuthenticated)
		return
	}

	reg, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), member)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.publish(r.Context(), notify.KindCancelled, *reg)

	writeJSON(w, http.StatusOK, reg)
}

func (h *EventHandler) publish(ctx context.Context, kind notify.Kind, reg model.Registration) {
	var event model.Event
	if v, err := h.svc.GetEvent(reg.EventID); err == nil {
		event = v.Event
	}
	if err := h.pub.Publish(ctx, notify.NewNotice(kind, reg, event, h.clock.Now())); err != nil {
		h.log.Warn().Err(err).
			Str("registration_id", reg.ID).
			Str("kind", string(kind)).
			Msg("publish notice")
	}
}

// ListRegistrations handles GET /events/{id}/registrations
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListRegistrations(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// MemberRegistrations handles GET /members/{memberID}/registrations
func (h *EventHandler) MemberRegistrations(w http.ResponseWriter, r *http.Request) {
	regs := h.svc.MemberRegistrations(chi.URLParam(r, "memberID"))
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// Calendar handles GET /calendar?year=&month=
// Missing parameters default to the current month.
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	year, month := now.Year(), now.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = time.Month(m)
	}

	writeJSON(w, http.StatusOK, h.svc.MonthCalendar(year, month))
}

// RSS handles GET /feed.rss
func (h *EventHandler) RSS(w http.ResponseWriter, r *http.Request) {
	body, err := feed.RSSXML(h.svc.RSS())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ICal handles GET /feed.ics
func (h *EventHandler) ICal(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.svc.ICal()))
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseCriteria(r *http.Request) (query.Criteria, error) {
	q := r.URL.Query()
	c := query.Criteria{
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
		Status:     q.Get("status"),
		Search:     q.Get("q"),
	}

	from, to := q.Get("from"), q.Get("to")
	if from == "" && to == "" {
		return c, nil
	}
	if from == "" || to == "" {
		return c, errors.New("from and to must be given together")
	}
	start, _, err := parseTime(from)
	if err != nil {
		return c, errors.New("invalid from: " + err.Error())
	}
	end, dateOnly, err := parseTime(to)
	if err != nil {
		return c, errors.New("invalid to: " + err.Error())
	}
	if dateOnly {
		// A bare date covers the whole day.
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	c.DateRange = &query.DateRange{Start: start, End: end}
	return c, nil
}

// parseTime accepts RFC 3339 or a bare YYYY-MM-DD date in UTC.
func parseTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, false, errors.New("expected RFC 3339 or YYYY-MM-DD")
	}
	return t, true, nil
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}
