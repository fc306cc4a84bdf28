// Package store holds the authoritative in-memory set of events and
// registrations. It is the only component with mutable domain state.
package store

import (
	"fmt"
	"sync"

	"github.com/Shivanand-hulikatti/society-events/internal/model"
	"github.com/Shivanand-hulikatti/society-events/internal/validate"
)

// EventStore owns every Event and Registration record for the lifetime of
// the process. All reads return copies; callers mutate only through the
// store's methods.
type EventStore struct {
	mu sync.RWMutex

	order  []string
	events map[string]*model.Event

	regOrder      []string
	registrations map[string]*model.Registration

	// eventLocks has exactly one entry per stored event, created with it.
	eventLocks map[string]*sync.Mutex
}

// New constructs an empty EventStore.
func New() *EventStore {
	return &EventStore{
		events:        make(map[string]*model.Event),
		registrations: make(map[string]*model.Registration),
		eventLocks:    make(map[string]*sync.Mutex),
	}
}

// Seed builds a store from previously persisted contents. Events and
// registrations keep the order given. Every event must pass validate.Event.
func Seed(events []model.Event, regs []model.Registration) (*EventStore, error) {
	s := New()
	for _, e := range events {
		if err := validate.Event(e); err != nil {
			return nil, fmt.Errorf("seed event %q: %w", e.ID, err)
		}
		if err := s.InsertEvent(e); err != nil {
			return nil, err
		}
	}
	for _, r := range regs {
		if err := s.InsertRegistration(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// InsertEvent adds a new event. Validation is the caller's concern.
func (s *EventStore) InsertEvent(e model.Event) error {
	if e.ID == "" {
		return fmt.Errorf("insert event: %w: id is required", model.ErrInvalidEventData)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return fmt.Errorf("insert event %q: %w: duplicate id", e.ID, model.ErrInvalidEventData)
	}
	ev := e.Clone()
	s.events[e.ID] = &ev
	s.order = append(s.order, e.ID)
	s.eventLocks[e.ID] = &sync.Mutex{}
	return nil
}

// GetEvent returns the event or model.ErrEventNotFound.
func (s *EventStore) GetEvent(id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, model.ErrEventNotFound
	}
	return e.Clone(), nil
}

// ListEvents returns an insertion-ordered snapshot of all events.
func (s *EventStore) ListEvents() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.events[id].Clone())
	}
	return out
}

// ListRegistrations returns the registrations for eventID in insertion
// order. Cancelled registrations are included only when includeCancelled
// is set.
func (s *EventStore) ListRegistrations(eventID string, includeCancelled bool) []model.Registration {
	return s.filterRegistrations(func(r *model.Registration) bool {
		return r.EventID == eventID && (includeCancelled || r.Confirmed())
	})
}

// MemberRegistrations returns the confirmed registrations held by memberID.
func (s *EventStore) MemberRegistrations(memberID string) []model.Registration {
	return s.filterRegistrations(func(r *model.Registration) bool {
		return r.MemberID == memberID && r.Confirmed()
	})
}

// FindConfirmed returns the confirmed registration for the pair, if any.
func (s *EventStore) FindConfirmed(eventID, memberID string) (model.Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.regOrder {
		r := s.registrations[id]
		if r.EventID == eventID && r.MemberID == memberID && r.Confirmed() {
			return *r, true
		}
	}
	return model.Registration{}, false
}

func (s *EventStore) filterRegistrations(keep func(*model.Registration) bool) []model.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Registration
	for _, id := range s.regOrder {
		if r := s.registrations[id]; keep(r) {
			out = append(out, *r)
		}
	}
	return out
}

// ApplyAttendeeDelta adjusts currentAttendees by +1 or -1. Decrements clamp
// at zero; an increment on a full event fails with model.ErrCapacityExceeded.
func (s *EventStore) ApplyAttendeeDelta(eventID string, delta int) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("apply attendee delta %d: delta must be +1 or -1", delta)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return model.ErrEventNotFound
	}
	if delta > 0 {
		if e.MaxAttendees != nil && e.CurrentAttendees >= *e.MaxAttendees {
			return model.ErrCapacityExceeded
		}
		e.CurrentAttendees++
		return nil
	}
	if e.CurrentAttendees > 0 {
		e.CurrentAttendees--
	}
	return nil
}

// InsertRegistration stores a new registration record.
func (s *EventStore) InsertRegistration(r model.Registration) error {
	if r.ID == "" {
		return fmt.Errorf("insert registration: id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[r.EventID]; !ok {
		return model.ErrEventNotFound
	}
	if _, ok := s.registrations[r.ID]; ok {
		return fmt.Errorf("insert registration %q: duplicate id", r.ID)
	}
	reg := r
	s.registrations[r.ID] = &reg
	s.regOrder = append(s.regOrder, r.ID)
	return nil
}

// MarkRegistrationCancelled soft-deletes a registration: the record is kept
// with status cancelled.
func (s *EventStore) MarkRegistrationCancelled(registrationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[registrationID]
	if !ok || !r.Confirmed() {
		return model.ErrRegistrationNotFound
	}
	r.Status = model.StatusCancelled
	return nil
}

// WithEventLock runs fn while holding the critical section for eventID.
// Concurrent callers for the same event run one at a time; different events
// do not contend. An unknown eventID fails with model.ErrEventNotFound
// without running fn.
func (s *EventStore) WithEventLock(eventID string, fn func() error) error {
	s.mu.RLock()
	l, ok := s.eventLocks[eventID]
	s.mu.RUnlock()
	if !ok {
		return model.ErrEventNotFound
	}
	l.Lock()
	defer l.Unlock()
	return fn()
}

func (s *EventStore) lockCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.eventLocks)
}
