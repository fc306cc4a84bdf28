package model

import "errors"

// ErrEventNotFound is returned when an event id does not resolve.
var ErrEventNotFound = errors.New("event not found")

// ErrNotAuthenticated is returned when a registration call carries no member identity.
var ErrNotAuthenticated = errors.New("member identity is required")

// ErrAlreadyRegistered is returned when the member already holds a confirmed registration.
var ErrAlreadyRegistered = errors.New("member already registered for this event")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is fully booked")

// ErrRegistrationNotFound is returned when no confirmed registration exists for a member.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrInvalidEventData is returned when an event breaks its field invariants.
var ErrInvalidEventData = errors.New("invalid event data")

// ErrCapacityExceeded is returned by the store when an increment would overfill an event.
var ErrCapacityExceeded = errors.New("capacity exceeded")
