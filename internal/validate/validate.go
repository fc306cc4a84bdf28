// Package validate checks event records against their field invariants
// before they are admitted to the store.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/society-events/internal/model"
)

const (
	MsgFieldRequired     = "field is required"
	MsgFieldTooLong      = "field exceeds maximum length"
	MsgFieldBelowMin     = "field is below minimum value"
	MsgUnknownCategory   = "unknown category"
	MsgUnknownDifficulty = "unknown difficulty"
	MsgEndBeforeStart    = "end date must be after start date"
	MsgOverCapacity      = "current attendees exceed max attendees"
	MsgUnknown           = "invalid value"
)

var (
	once   sync.Once
	global *validator.Validate
)

// FieldError describes one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists every failed rule for one event. It unwraps to
// model.ErrInvalidEventData.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", model.ErrInvalidEventData, strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error {
	return model.ErrInvalidEventData
}

// New builds a validator with the event rules registered.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nonblank", validateNonBlank)
	_ = v.RegisterValidation("category", validateCategory)
	_ = v.RegisterValidation("difficulty", validateDifficulty)
	v.RegisterStructValidation(validateEventDates, model.Event{})
	return v
}

func instance() *validator.Validate {
	once.Do(func() { global = New() })
	return global
}

// Event checks e and returns a *Error for every broken invariant.
func Event(e model.Event) error {
	err := instance().Struct(e)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return fmt.Errorf("validate event: %w", err)
	}
	out := &Error{Fields: make([]FieldError, 0, len(vErrs))}
	for _, fe := range vErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "nonblank", "required":
		return MsgFieldRequired
	case "max":
		return MsgFieldTooLong
	case "gt", "gte":
		return MsgFieldBelowMin
	case "category":
		return MsgUnknownCategory
	case "difficulty":
		return MsgUnknownDifficulty
	case "afterstart":
		return MsgEndBeforeStart
	case "capacity":
		return MsgOverCapacity
	default:
		return MsgUnknown
	}
}

func validateNonBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateCategory(fl validator.FieldLevel) bool {
	return model.Category(fl.Field().String()).Valid()
}

func validateDifficulty(fl validator.FieldLevel) bool {
	return model.Difficulty(fl.Field().String()).Valid()
}

// validateEventDates covers the cross-field invariants: end after start and
// attendance within capacity.
func validateEventDates(sl validator.StructLevel) {
	e := sl.Current().Interface().(model.Event)
	if e.EndDate != nil && !e.EndDate.After(e.StartDate) {
		sl.ReportError(e.EndDate, "EndDate", "EndDate", "afterstart", "")
	}
	if e.MaxAttendees != nil && e.CurrentAttendees > *e.MaxAttendees {
		sl.ReportError(e.CurrentAttendees, "CurrentAttendees", "CurrentAttendees", "capacity", "")
	}
}
