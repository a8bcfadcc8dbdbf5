// Package schedule holds the canonical, read-only view of the salon's opening
// hours and appointments. A Schedule is built once from raw spreadsheet rows
// and replaced wholesale when fresh data arrives; nothing mutates it after
// Build returns.
package schedule

import (
	"sort"
	"time"

	"github.com/wolfman30/salon-booking/internal/normalize"
)

// Status is the lifecycle state of an appointment.
type Status = normalize.Status

const (
	StatusUnknown   = normalize.StatusUnknown
	StatusPending   = normalize.StatusPending
	StatusConfirmed = normalize.StatusConfirmed
	StatusCancelled = normalize.StatusCancelled
)

// OpeningWindow is the business-hours interval for one date. When Closed is
// true Open and Close are NoTime.
type OpeningWindow struct {
	Date   normalize.DateKey
	Open   normalize.TimeOfDay
	Close  normalize.TimeOfDay
	Closed bool
}

// Appointment is an existing booking as reported by the spreadsheet service.
type Appointment struct {
	Date        normalize.DateKey
	Time        normalize.TimeOfDay
	Duration    int
	ClientName  string
	ClientEmail string
	Message     string
	Status      Status
}

// HasTime reports whether the appointment carries a start time. Appointments
// without one are listed but never take part in slot math.
func (a Appointment) HasTime() bool {
	return a.Time.Valid()
}

// End returns Time + Duration, or NoTime when the appointment has no time.
func (a Appointment) End() normalize.TimeOfDay {
	if !a.HasTime() {
		return normalize.NoTime
	}
	return a.Time.Add(a.Duration)
}

// Schedule is an immutable snapshot of windows and appointments keyed by date.
type Schedule struct {
	FetchedAt time.Time

	// location reads serialized instants in the salon's timezone; nil keeps
	// their literal fields.
	location     *time.Location
	windows      map[normalize.DateKey]OpeningWindow
	appointments map[normalize.DateKey][]Appointment
	drops        []Drop
}

// Empty returns a schedule with no windows, so every date is closed.
func Empty() *Schedule {
	return &Schedule{
		windows:      map[normalize.DateKey]OpeningWindow{},
		appointments: map[normalize.DateKey][]Appointment{},
	}
}

// WindowFor returns the opening window recorded for date.
func (s *Schedule) WindowFor(date normalize.DateKey) (OpeningWindow, bool) {
	if s == nil {
		return OpeningWindow{}, false
	}
	w, ok := s.windows[date]
	return w, ok
}

// AppointmentsFor returns the appointments on date ordered by start time.
// Equal times keep their source order and appointments without a time come
// last. The returned slice is a copy.
func (s *Schedule) AppointmentsFor(date normalize.DateKey) []Appointment {
	if s == nil {
		return nil
	}
	appts := s.appointments[date]
	if len(appts) == 0 {
		return nil
	}
	out := make([]Appointment, len(appts))
	copy(out, appts)
	return out
}

// Dates returns every date that carries a window, ascending.
func (s *Schedule) Dates() []normalize.DateKey {
	if s == nil {
		return nil
	}
	dates := make([]normalize.DateKey, 0, len(s.windows))
	for d := range s.windows {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}

// Drops returns the records that failed normalization during Build.
func (s *Schedule) Drops() []Drop {
	if s == nil || len(s.drops) == 0 {
		return nil
	}
	out := make([]Drop, len(s.drops))
	copy(out, s.drops)
	return out
}

// Counts reports the number of windows and appointments held.
func (s *Schedule) Counts() (windows, appointments int) {
	if s == nil {
		return 0, 0
	}
	for _, appts := range s.appointments {
		appointments += len(appts)
	}
	return len(s.windows), appointments
}
