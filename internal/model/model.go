// Package model defines the core domain types for the society events system.
package model

import (
	"slices"
	"time"
)

// Category classifies an event.
type Category string

const (
	CategoryWorkshop      Category = "workshop"
	CategoryMeeting       Category = "meeting"
	CategoryDemonstration Category = "demonstration"
	CategoryExhibition    Category = "exhibition"
	CategorySocial        Category = "social"
	CategoryFieldTrip     Category = "field-trip"
	CategoryCompetition   Category = "competition"
)

// Categories lists every recognised category in display order.
var Categories = []Category{
	CategoryWorkshop,
	CategoryMeeting,
	CategoryDemonstration,
	CategoryExhibition,
	CategorySocial,
	CategoryFieldTrip,
	CategoryCompetition,
}

// Valid reports whether c is one of the recognised categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Difficulty is the skill level an event targets.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyAllLevels    Difficulty = "all-levels"
)

// Difficulties lists every recognised difficulty.
var Difficulties = []Difficulty{
	DifficultyBeginner,
	DifficultyIntermediate,
	DifficultyAdvanced,
	DifficultyAllLevels,
}

// Valid reports whether d is one of the recognised difficulties.
func (d Difficulty) Valid() bool {
	return slices.Contains(Difficulties, d)
}

// Event represents a scheduled society activity.
type Event struct {
	ID               string     `json:"id"`
	Title            string     `json:"title" validate:"nonblank,max=200"`
	Description      string     `json:"description"`
	Instructor       string     `json:"instructor,omitempty"`
	StartDate        time.Time  `json:"start_date" validate:"required"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	Location         string     `json:"location"`
	Category         Category   `json:"category" validate:"category"`
	Difficulty       Difficulty `json:"difficulty" validate:"difficulty"`
	Price            float64    `json:"price" validate:"gte=0"`
	MaxAttendees     *int       `json:"max_attendees,omitempty" validate:"omitempty,gt=0"`
	CurrentAttendees int        `json:"current_attendees" validate:"gte=0"`
	Featured         bool       `json:"featured"`
	Tags             []string   `json:"tags,omitempty"`
	CreatedDate      time.Time  `json:"created_date"`
}

// IsFree reports whether the event costs nothing to attend.
func (e Event) IsFree() bool {
	return e.Price == 0
}

// Clone returns a copy of e that shares no mutable memory with it.
func (e Event) Clone() Event {
	out := e
	if e.EndDate != nil {
		end := *e.EndDate
		out.EndDate = &end
	}
	if e.MaxAttendees != nil {
		n := *e.MaxAttendees
		out.MaxAttendees = &n
	}
	out.Tags = slices.Clone(e.Tags)
	return out
}

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
)

// Registration binds one member to one event.
type Registration struct {
	ID                string             `json:"id"`
	EventID           string             `json:"event_id"`
	MemberID          string             `json:"member_id"`
	MemberDisplayName string             `json:"member_display_name"`
	SpecialRequests   string             `json:"special_requests,omitempty"`
	EmergencyContact  string             `json:"emergency_contact,omitempty"`
	RegistrationDate  time.Time          `json:"registration_date"`
	Status            RegistrationStatus `json:"status"`
}

// Confirmed reports whether the registration is currently active.
func (r Registration) Confirmed() bool {
	return r.Status == StatusConfirmed
}

// RegistrationDetails carries the optional member-supplied fields of a registration.
type RegistrationDetails struct {
	SpecialRequests  string `json:"special_requests"`
	EmergencyContact string `json:"emergency_contact"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Instructor   string     `json:"instructor"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Location     string     `json:"location"`
	Category     Category   `json:"category"`
	Difficulty   Difficulty `json:"difficulty"`
	Price        float64    `json:"price"`
	MaxAttendees *int       `json:"max_attendees"`
	Featured     bool       `json:"featured"`
	Tags         []string   `json:"tags"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	DisplayName string `json:"display_name"`
	RegistrationDetails
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
