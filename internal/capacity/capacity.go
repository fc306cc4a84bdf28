// Package capacity computes derived attendance and timing fields for events.
package capacity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Shivanand-hulikatti/society-events/internal/model"
)

// Spots is the number of places still open on an event.
type Spots struct {
	Unlimited bool
	Count     int
}

// String renders "Unlimited" or the remaining count.
func (s Spots) String() string {
	if s.Unlimited {
		return "Unlimited"
	}
	return strconv.Itoa(s.Count)
}

// MarshalJSON encodes unlimited spots as the string "Unlimited" and
// limited ones as a number.
func (s Spots) MarshalJSON() ([]byte, error) {
	if s.Unlimited {
		return []byte(`"Unlimited"`), nil
	}
	return []byte(strconv.Itoa(s.Count)), nil
}

// AvailableSpots returns Unlimited when the event has no cap, otherwise
// max(maxAttendees - currentAttendees, 0).
func AvailableSpots(e model.Event) Spots {
	if e.MaxAttendees == nil {
		return Spots{Unlimited: true}
	}
	return Spots{Count: max(*e.MaxAttendees-e.CurrentAttendees, 0)}
}

// IsFull reports whether a capped event has no open places.
func IsFull(e model.Event) bool {
	return e.MaxAttendees != nil && e.CurrentAttendees >= *e.MaxAttendees
}

// Attendees returns the current attendee count.
func Attendees(e model.Event) int {
	return e.CurrentAttendees
}

// UntilKind classifies how far away an event is.
type UntilKind string

const (
	UntilPast  UntilKind = "past"
	UntilSoon  UntilKind = "soon"
	UntilHours UntilKind = "hours"
	UntilDays  UntilKind = "days"
)

// Until is the distance from now to an event's start.
type Until struct {
	Kind  UntilKind `json:"kind"`
	Value int       `json:"value,omitempty"`
}

// String renders a short display label.
func (u Until) String() string {
	switch u.Kind {
	case UntilPast:
		return "Past event"
	case UntilSoon:
		return "Starting soon"
	case UntilHours:
		return fmt.Sprintf("In %d %s", u.Value, plural(u.Value, "hour"))
	default:
		return fmt.Sprintf("In %d %s", u.Value, plural(u.Value, "day"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// TimeUntil reports days until start when at least one whole day remains,
// hours otherwise, and "soon" under an hour. Events at or before now are past.
func TimeUntil(e model.Event, now time.Time) Until {
	if !e.StartDate.After(now) {
		return Until{Kind: UntilPast}
	}
	diff := e.StartDate.Sub(now)
	if days := int(diff / (24 * time.Hour)); days >= 1 {
		return Until{Kind: UntilDays, Value: days}
	}
	if hours := int(diff / time.Hour); hours >= 1 {
		return Until{Kind: UntilHours, Value: hours}
	}
	return Until{Kind: UntilSoon}
}
