package validate

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/society-events/internal/model"
)

func validEvent() model.Event {
	capacity := 10
	return model.Event{
		ID:           "e1",
		Title:        "Kiln night",
		StartDate:    time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		Location:     "Studio",
		Category:     model.CategoryWorkshop,
		Difficulty:   model.DifficultyBeginner,
		MaxAttendees: &capacity,
	}
}

func TestEventValid(t *testing.T) {
	if err := Event(validEvent()); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	unlimited := validEvent()
	unlimited.MaxAttendees = nil
	unlimited.CurrentAttendees = 500
	if err := Event(unlimited); err != nil {
		t.Fatalf("expected unlimited event valid, got %v", err)
	}
}

func TestEventInvalid(t *testing.T) {
	zero := 0
	tests := []struct {
		name    string
		mutate  func(e *model.Event)
		field   string
		message string
	}{
		{"blank title", func(e *model.Event) { e.Title = "   " }, "Title", MsgFieldRequired},
		{"long title", func(e *model.Event) { e.Title = strings.Repeat("a", 201) }, "Title", MsgFieldTooLong},
		{"no start", func(e *model.Event) { e.StartDate = time.Time{} }, "StartDate", MsgFieldRequired},
		{"unknown category", func(e *model.Event) { e.Category = "party" }, "Category", MsgUnknownCategory},
		{"unknown difficulty", func(e *model.Event) { e.Difficulty = "expert" }, "Difficulty", MsgUnknownDifficulty},
		{"negative price", func(e *model.Event) { e.Price = -1 }, "Price", MsgFieldBelowMin},
		{"zero capacity", func(e *model.Event) { e.MaxAttendees = &zero }, "MaxAttendees", MsgFieldBelowMin},
		{"negative attendees", func(e *model.Event) { e.CurrentAttendees = -1 }, "CurrentAttendees", MsgFieldBelowMin},
		{"over capacity", func(e *model.Event) { e.CurrentAttendees = 11 }, "CurrentAttendees", MsgOverCapacity},
		{"end before start", func(e *model.Event) {
			end := e.StartDate.Add(-time.Hour)
			e.EndDate = &end
		}, "EndDate", MsgEndBeforeStart},
		{"end equals start", func(e *model.Event) {
			end := e.StartDate
			e.EndDate = &end
		}, "EndDate", MsgEndBeforeStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(&e)

			err := Event(e)
			if !errors.Is(err, model.ErrInvalidEventData) {
				t.Fatalf("expected ErrInvalidEventData, got %v", err)
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			for _, f := range verr.Fields {
				if f.Field == tt.field && f.Message == tt.message {
					return
				}
			}
			t.Fatalf("expected %s: %s in %+v", tt.field, tt.message, verr.Fields)
		})
	}
}

func TestErrorListsEveryField(t *testing.T) {
	e := validEvent()
	e.Title = ""
	e.Category = "nope"

	err := Event(e)
	var verr *Error
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
	if !strings.Contains(err.Error(), "Title") || !strings.Contains(err.Error(), "Category") {
		t.Fatalf("expected both fields in message, got %s", err.Error())
	}
}
