// Package booking validates a visitor's choice against the current schedule
// and turns it into the request sent to the spreadsheet service.
package booking

import (
	"strings"

	"github.com/wolfman30/salon-booking/internal/availability"
	"github.com/wolfman30/salon-booking/internal/normalize"
	"github.com/wolfman30/salon-booking/internal/schedule"
)

// Input is what the visitor entered, before normalization.
type Input struct {
	Date        string
	Time        string
	Duration    int
	ClientName  string
	ClientEmail string
	Message     string
}

// Request is a validated booking ready for submission.
type Request struct {
	Date        normalize.DateKey   `json:"date"`
	Time        normalize.TimeOfDay `json:"time"`
	Duration    int                 `json:"duration"`
	ClientName  string              `json:"client_name"`
	ClientEmail string              `json:"client_email"`
	Message     string              `json:"message"`
}

// End returns the end of the booked interval.
func (r Request) End() normalize.TimeOfDay {
	return r.Time.Add(r.Duration)
}

// Builder validates booking input against a schedule.
type Builder struct {
	engine *availability.Engine
}

// NewBuilder returns a Builder using engine for open-date and conflict checks.
func NewBuilder(engine *availability.Engine) *Builder {
	if engine == nil {
		engine = availability.New(availability.DefaultPolicy())
	}
	return &Builder{engine: engine}
}

// Build checks in order that date and time are present, the duration is
// positive and no longer than a day, the salon is open that day, the booking fits in the opening hours
// and no blocking appointment overlaps it. The first failure is returned as a
// *ValidationError. s is only read.
func (b *Builder) Build(s *schedule.Schedule, in Input) (Request, error) {
	date, dateOK := normalize.NormalizeDate(in.Date)
	start, timeOK := normalize.NormalizeTime(in.Time)
	if !dateOK || !timeOK {
		return Request{}, invalid(ErrMissingDateTime)
	}
	if in.Duration <= 0 || in.Duration > normalize.MinutesPerDay {
		return Request{}, invalid(ErrInvalidDuration)
	}

	window, ok := s.WindowFor(date)
	if !ok || window.Closed {
		return Request{}, invalid(ErrClosed)
	}

	end := start.Add(in.Duration)
	if start < window.Open || end > window.Close {
		return Request{}, &ValidationError{Kind: ErrOutsideHours, Open: window.Open, Close: window.Close}
	}

	if b.engine.CheckConflict(s, date, start, in.Duration) {
		return Request{}, invalid(ErrSlotTaken)
	}

	return Request{
		Date:        date,
		Time:        start,
		Duration:    in.Duration,
		ClientName:  strings.TrimSpace(in.ClientName),
		ClientEmail: strings.TrimSpace(in.ClientEmail),
		Message:     strings.TrimSpace(in.Message),
	}, nil
}
