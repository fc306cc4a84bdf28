// Package service implements registration orchestration and the read-side
// facade that pages consume: filtered event lists with derived display
// fields, calendar grids and feeds.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/society-events/internal/calendar"
	"github.com/Shivanand-hulikatti/society-events/internal/capacity"
	"github.com/Shivanand-hulikatti/society-events/internal/clock"
	"github.com/Shivanand-hulikatti/society-events/internal/feed"
	"github.com/Shivanand-hulikatti/society-events/internal/model"
	"github.com/Shivanand-hulikatti/society-events/internal/query"
	"github.com/Shivanand-hulikatti/society-events/internal/store"
	"github.com/Shivanand-hulikatti/society-events/internal/validate"
)

// Journal durably records changes after the store has committed them.
// Registration changes are recorded inside the event's critical section, so
// one event's writes reach the journal in commit order. A journal error is
// logged and never undoes the in-memory change.
type Journal interface {
	SaveEvent(ctx context.Context, e model.Event) error
	RecordRegistration(ctx context.Context, reg model.Registration) error
	RecordCancellation(ctx context.Context, reg model.Registration) error
}

// NopJournal records nothing.
type NopJournal struct{}

func (NopJournal) SaveEvent(context.Context, model.Event) error                 { return nil }
func (NopJournal) RecordRegistration(context.Context, model.Registration) error { return nil }
func (NopJournal) RecordCancellation(context.Context, model.Registration) error { return nil }

// RegistrationService enforces the register/cancel state machine for each
// (event, member) pair against the store.
type RegistrationService struct {
	store   *store.EventStore
	clock   clock.Clock
	journal Journal
	log     zerolog.Logger
	newID   func() string
}

// NewRegistrationService constructs a RegistrationService. A nil journal
// records nothing.
func NewRegistrationService(s *store.EventStore, c clock.Clock, j Journal, log zerolog.Logger) *RegistrationService {
	if j == nil {
		j = NopJournal{}
	}
	return &RegistrationService{
		store:   s,
		clock:   c,
		journal: j,
		log:     log.With().Str("component", "registrations").Logger(),
		newID:   uuid.NewString,
	}
}

// Register creates a confirmed registration for memberID on eventID.
//
// The existence, duplicate and capacity checks, the attendee increment and
// the insert run inside the event's critical section, so two members racing
// for the last spot cannot both succeed.
func (s *RegistrationService) Register(ctx context.Context, eventID, memberID, displayName string, details model.RegistrationDetails) (*model.Registration, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, model.ErrNotAuthenticated
	}

	var reg *model.Registration
	err := s.store.WithEventLock(eventID, func() error {
		event, err := s.store.GetEvent(eventID)
		if err != nil {
			return err
		}
		if _, ok := s.store.FindConfirmed(eventID, memberID); ok {
			return model.ErrAlreadyRegistered
		}
		if capacity.IsFull(event) {
			return model.ErrEventFull
		}

		if err := s.store.ApplyAttendeeDelta(eventID, 1); err != nil {
			if errors.Is(err, model.ErrCapacityExceeded) {
				return model.ErrEventFull
			}
			return fmt.Errorf("increment attendees: %w", err)
		}

		r := model.Registration{
			ID:                s.newID(),
			EventID:           eventID,
			MemberID:          memberID,
			MemberDisplayName: strings.TrimSpace(displayName),
			SpecialRequests:   details.SpecialRequests,
			EmergencyContact:  details.EmergencyContact,
			RegistrationDate:  s.clock.Now(),
			Status:            model.StatusConfirmed,
		}
		if err := s.store.InsertRegistration(r); err != nil {
			// Roll the increment back so the pair of writes stays atomic.
			_ = s.store.ApplyAttendeeDelta(eventID, -1)
			return fmt.Errorf("insert registration: %w", err)
		}
		if err := s.journal.RecordRegistration(context.WithoutCancel(ctx), r); err != nil {
			s.log.Error().Err(err).Str("registration_id", r.ID).Msg("record registration")
		}
		reg = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Cancel moves the member's confirmed registration to cancelled and frees
// its place. The cancelled record is kept for audit.
func (s *RegistrationService) Cancel(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	var cancelled *model.Registration
	err := s.store.WithEventLock(eventID, func() error {
		reg, ok := s.store.FindConfirmed(eventID, strings.TrimSpace(memberID))
		if !ok {
			return model.ErrRegistrationNotFound
		}
		if err := s.store.MarkRegistrationCancelled(reg.ID); err != nil {
			return err
		}
		if err := s.store.ApplyAttendeeDelta(eventID, -1); err != nil {
			return fmt.Errorf("decrement attendees: %w", err)
		}
		reg.Status = model.StatusCancelled
		if err := s.journal.RecordCancellation(context.WithoutCancel(ctx), reg); err != nil {
			s.log.Error().Err(err).Str("registration_id", reg.ID).Msg("record cancellation")
		}
		cancelled = &reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// IsRegistered reports whether the pair holds a confirmed registration.
func (s *RegistrationService) IsRegistered(eventID, memberID string) bool {
	_, ok := s.store.FindConfirmed(eventID, memberID)
	return ok
}

// MemberRegistrations lists the member's confirmed registrations.
func (s *RegistrationService) MemberRegistrations(memberID string) []model.Registration {
	return s.store.MemberRegistrations(memberID)
}

// EventView is an event plus the derived fields a page renders.
type EventView struct {
	model.Event
	AvailableSpots capacity.Spots `json:"available_spots"`
	IsFull         bool           `json:"is_full"`
	TimeUntil      capacity.Until `json:"time_until"`
	TimeUntilLabel string         `json:"time_until_label"`
	Color          string         `json:"color"`
}

// EventService is the read/write facade over the store used by callers
// outside the core.
type EventService struct {
	store         *store.EventStore
	clock         clock.Clock
	journal       Journal
	log           zerolog.Logger
	registrations *RegistrationService
	feeds         feed.Exporter
	loc           *time.Location
	weekStart     time.Weekday
	newID         func() string
}

// Options configures an EventService.
type Options struct {
	Location  *time.Location
	WeekStart time.Weekday
	Feed      feed.Exporter
	// Journal defaults to NopJournal.
	Journal Journal
	Log     zerolog.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(s *store.EventStore, c clock.Clock, opts Options) *EventService {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	j := opts.Journal
	if j == nil {
		j = NopJournal{}
	}
	return &EventService{
		store:         s,
		clock:         c,
		journal:       j,
		log:           opts.Log.With().Str("component", "events").Logger(),
		registrations: NewRegistrationService(s, c, j, opts.Log),
		feeds:         opts.Feed,
		loc:           loc,
		weekStart:     opts.WeekStart,
		newID:         uuid.NewString,
	}
}

// Register delegates to the registration service.
func (s *EventService) Register(ctx context.Context, eventID, memberID, displayName string, details model.RegistrationDetails) (*model.Registration, error) {
	return s.registrations.Register(ctx, eventID, memberID, displayName, details)
}

// Cancel delegates to the registration service.
func (s *EventService) Cancel(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	return s.registrations.Cancel(ctx, eventID, memberID)
}

// MemberRegistrations lists a member's confirmed registrations.
func (s *EventService) MemberRegistrations(memberID string) []model.Registration {
	return s.registrations.MemberRegistrations(memberID)
}

// CreateEvent validates the request, inserts a new event and journals it.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	e := model.Event{
		ID:           s.newID(),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Instructor:   strings.TrimSpace(req.Instructor),
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Location:     strings.TrimSpace(req.Location),
		Category:     req.Category,
		Difficulty:   req.Difficulty,
		Price:        req.Price,
		MaxAttendees: req.MaxAttendees,
		Featured:     req.Featured,
		Tags:         req.Tags,
		CreatedDate:  s.clock.Now(),
	}
	if e.Location == "" {
		e.Location = "TBD"
	}
	if err := validate.Event(e); err != nil {
		return nil, err
	}
	if err := s.store.InsertEvent(e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	if err := s.journal.SaveEvent(context.WithoutCancel(ctx), e); err != nil {
		s.log.Error().Err(err).Str("event_id", e.ID).Msg("save event")
	}
	return &e, nil
}

// GetEvent returns a single event view by ID.
func (s *EventService) GetEvent(id string) (*EventView, error) {
	if id == "" {
		return nil, model.ErrEventNotFound
	}
	e, err := s.store.GetEvent(id)
	if err != nil {
		return nil, err
	}
	v := s.view(e, s.clock.Now())
	return &v, nil
}

// ListEvents returns views for the events matching c.
func (s *EventService) ListEvents(c query.Criteria) []EventView {
	now := s.clock.Now()
	return s.views(query.Filter(s.store.ListEvents(), c, now), now)
}

// FeaturedEvents returns views for up to limit upcoming featured events.
// A non-positive limit means no limit.
func (s *EventService) FeaturedEvents(limit int) []EventView {
	now := s.clock.Now()
	return s.views(query.Featured(s.store.ListEvents(), limit, now), now)
}

// EventsByCategory returns views for up to limit upcoming events in category.
// A non-positive limit means no limit.
func (s *EventService) EventsByCategory(category model.Category, limit int) []EventView {
	now := s.clock.Now()
	return s.views(query.ByCategory(s.store.ListEvents(), category, limit, now), now)
}

// ListRegistrations returns the confirmed registrations for an event.
func (s *EventService) ListRegistrations(eventID string) ([]model.Registration, error) {
	if _, err := s.store.GetEvent(eventID); err != nil {
		return nil, err
	}
	return s.store.ListRegistrations(eventID, false), nil
}

// MonthCalendar projects a month grid in the configured time zone.
func (s *EventService) MonthCalendar(year int, month time.Month) []calendar.Cell {
	return calendar.MonthGrid(s.store.ListEvents(), year, month, s.loc, s.weekStart)
}

// RSS returns the RSS model of upcoming events.
func (s *EventService) RSS() feed.Channel {
	return s.feeds.ToRSSModel(query.Upcoming(s.store.ListEvents(), s.clock.Now()))
}

// ICal returns the iCalendar text of upcoming events.
func (s *EventService) ICal() string {
	return s.feeds.ToICalText(query.Upcoming(s.store.ListEvents(), s.clock.Now()))
}

func (s *EventService) views(events []model.Event, now time.Time) []EventView {
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, s.view(e, now))
	}
	return out
}

func (s *EventService) view(e model.Event, now time.Time) EventView {
	until := capacity.TimeUntil(e, now)
	return EventView{
		Event:          e,
		AvailableSpots: capacity.AvailableSpots(e),
		IsFull:         capacity.IsFull(e),
		TimeUntil:      until,
		TimeUntilLabel: until.String(),
		Color:          calendar.ColorFor(e.Category),
	}
}
