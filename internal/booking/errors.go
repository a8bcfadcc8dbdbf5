package booking

import (
	"errors"
	"fmt"

	"github.com/wolfman30/salon-booking/internal/normalize"
)

var (
	// ErrMissingDateTime is returned when the date or time is absent or unreadable.
	ErrMissingDateTime = errors.New("date and time are required")

	// ErrInvalidDuration is returned for a non-positive duration.
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")

	// ErrClosed is returned when the salon has no opening hours on the date.
	ErrClosed = errors.New("salon closed on this date")

	// ErrOutsideHours is returned when the booking does not fit inside the opening hours.
	ErrOutsideHours = errors.New("outside business hours")

	// ErrSlotTaken is returned when the booking overlaps a blocking appointment.
	ErrSlotTaken = errors.New("slot already taken")
)

var kindCodes = map[error]string{
	ErrMissingDateTime: "missing_date_time",
	ErrInvalidDuration: "invalid_duration",
	ErrClosed:          "closed",
	ErrOutsideHours:    "outside_hours",
	ErrSlotTaken:       "slot_taken",
}

// ValidationError reports why a booking request was refused before any
// network call. Kind is one of the sentinel errors above; Open and Close carry
// the business hours when Kind is ErrOutsideHours.
type ValidationError struct {
	Kind  error
	Open  normalize.TimeOfDay
	Close normalize.TimeOfDay
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Kind, ErrOutsideHours) {
		return fmt.Sprintf("%s (%s-%s)", e.Kind, e.Open, e.Close)
	}
	return e.Kind.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Code returns a stable machine-readable name for the failure.
func (e *ValidationError) Code() string {
	if code, ok := kindCodes[e.Kind]; ok {
		return code
	}
	return "invalid"
}

func invalid(kind error) *ValidationError {
	return &ValidationError{Kind: kind, Open: normalize.NoTime, Close: normalize.NoTime}
}
