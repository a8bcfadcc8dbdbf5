// Package sheets is the client for the spreadsheet-backed booking service. The
// service owns persistence: it returns the salon's opening hours and
// appointments, and queues submitted booking requests as pending.
package sheets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/salon-booking/internal/booking"
	"github.com/wolfman30/salon-booking/internal/schedule"
)

var (
	// ErrScheduleFetch marks a failed schedule download, whether the
	// transport failed or the service reported an error.
	ErrScheduleFetch = errors.New("schedule fetch failed")

	// ErrSubmission marks a booking request that the service did not accept.
	ErrSubmission = errors.New("booking submission failed")
)

// ServiceError carries the details of a failed call. It matches its Kind
// sentinel and its Cause through errors.Is.
type ServiceError struct {
	Kind       error
	StatusCode int
	Message    string
	Cause      error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// DateFormat selects how dates are written in outbound requests.
type DateFormat string

const (
	// DateFormatISO writes YYYY-MM-DD.
	DateFormatISO DateFormat = "iso"
	// DateFormatDayFirst writes DD/MM/YYYY.
	DateFormatDayFirst DateFormat = "dayfirst"
)

// ParseDateFormat reads a DateFormat; empty input means ISO.
func ParseDateFormat(raw string) (DateFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "iso":
		return DateFormatISO, nil
	case "dayfirst", "day-first", "dd/mm/yyyy":
		return DateFormatDayFirst, nil
	default:
		return "", fmt.Errorf("sheets: unknown date format %q", raw)
	}
}

// Payload is a decoded schedule download.
type Payload struct {
	Windows      []schedule.Record
	Appointments []schedule.Record
	// Raw is the body as received, kept so it can be cached and decoded again.
	Raw []byte
}

// Schedule builds the normalized schedule from the payload.
func (p *Payload) Schedule(opts ...schedule.BuildOption) *schedule.Schedule {
	return schedule.Build(p.Windows, p.Appointments, opts...)
}

// envelope is the service's response shape. French and English collection
// keys are both in use depending on the deployed script.
type envelope struct {
	Status         string            `json:"status"`
	Message        string            `json:"message,omitempty"`
	RDV            []schedule.Record `json:"rdv,omitempty"`
	Appointments   []schedule.Record `json:"appointments,omitempty"`
	Disponibilites []schedule.Record `json:"disponibilites,omitempty"`
	Availabilities []schedule.Record `json:"availabilities,omitempty"`
	Windows        []schedule.Record `json:"windows,omitempty"`
}

func (e envelope) ok() bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), "success")
}

func (e envelope) appointments() []schedule.Record {
	if len(e.RDV) > 0 {
		return e.RDV
	}
	return e.Appointments
}

func (e envelope) windows() []schedule.Record {
	switch {
	case len(e.Disponibilites) > 0:
		return e.Disponibilites
	case len(e.Availabilities) > 0:
		return e.Availabilities
	default:
		return e.Windows
	}
}

// submission is the outbound booking record.
type submission struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Duration    int    `json:"duration"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	Message     string `json:"message"`
}

func newSubmission(req booking.Request, format DateFormat) submission {
	date := req.Date.String()
	if format == DateFormatDayFirst {
		date = req.Date.DayFirst()
	}
	return submission{
		Date:        date,
		Time:        req.Time.String(),
		Duration:    req.Duration,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		Message:     req.Message,
	}
}
