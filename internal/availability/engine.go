package availability

import (
	"github.com/wolfman30/salon-booking/internal/normalize"
	"github.com/wolfman30/salon-booking/internal/schedule"
)

// Engine answers availability questions against a schedule snapshot.
type Engine struct {
	policy Policy
}

// New returns an engine for policy. A non-positive granularity falls back to
// DefaultGranularity and nil status sets fall back to DefaultPolicy's.
func New(policy Policy) *Engine {
	def := DefaultPolicy()
	if policy.Granularity <= 0 {
		policy.Granularity = def.Granularity
	}
	if policy.SlotBlocking == nil {
		policy.SlotBlocking = def.SlotBlocking
	}
	if policy.ConflictBlocking == nil {
		policy.ConflictBlocking = def.ConflictBlocking
	}
	return &Engine{policy: policy}
}

// Policy returns the effective policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// IsOpen reports whether date has a window with an opening time.
func (e *Engine) IsOpen(s *schedule.Schedule, date normalize.DateKey) bool {
	w, ok := s.WindowFor(date)
	return ok && !w.Closed
}

// ListOpenDates returns the open dates among the horizonDays days starting at
// horizonStart, ascending. Closed days are omitted.
func (e *Engine) ListOpenDates(s *schedule.Schedule, horizonStart normalize.DateKey, horizonDays int) []normalize.DateKey {
	dates := []normalize.DateKey{}
	if horizonDays <= 0 || !horizonStart.Valid() {
		return dates
	}
	for i := 0; i < horizonDays; i++ {
		d := horizonStart.AddDays(i)
		if e.IsOpen(s, d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// FreeSlots returns every start time, stepping from the opening time by the
// policy granularity, at which a booking of duration minutes fits before
// closing and overlaps no slot-blocking appointment. A closed date, a
// non-positive duration or one longer than the opening hours yields an empty
// result.
func (e *Engine) FreeSlots(s *schedule.Schedule, date normalize.DateKey, duration int) []normalize.TimeOfDay {
	slots := []normalize.TimeOfDay{}
	if duration <= 0 {
		return slots
	}
	w, ok := s.WindowFor(date)
	if !ok || w.Closed || duration > int(w.Close-w.Open) {
		return slots
	}

	busy := blocking(s.AppointmentsFor(date), e.policy.SlotBlocking)
	for t := w.Open; t.Add(duration) <= w.Close; t = t.Add(e.policy.Granularity) {
		if len(overlapping(busy, t, t.Add(duration))) == 0 {
			slots = append(slots, t)
		}
	}
	return slots
}

// DayAppointment is an appointment as listed to visitors: timing and status
// only, no client details.
type DayAppointment struct {
	Time     string           `json:"time"`
	End      string           `json:"end,omitempty"`
	Duration int              `json:"duration"`
	Status   normalize.Status `json:"status"`
	Blocking bool             `json:"blocking"`
}

// DayView is everything the booking page shows for one date.
type DayView struct {
	Date         normalize.DateKey `json:"date"`
	Open         bool              `json:"open"`
	OpenTime     string            `json:"open_time,omitempty"`
	CloseTime    string            `json:"close_time,omitempty"`
	Duration     int               `json:"duration"`
	Appointments []DayAppointment  `json:"appointments"`
	FreeSlots    []string          `json:"free_slots"`
}

// Day assembles the DayView of date for a booking of duration minutes.
func (e *Engine) Day(s *schedule.Schedule, date normalize.DateKey, duration int) DayView {
	view := DayView{
		Date:         date,
		Duration:     duration,
		Appointments: []DayAppointment{},
		FreeSlots:    []string{},
	}
	if w, ok := s.WindowFor(date); ok && !w.Closed {
		view.Open = true
		view.OpenTime = w.Open.String()
		view.CloseTime = w.Close.String()
	}

	for _, a := range s.AppointmentsFor(date) {
		view.Appointments = append(view.Appointments, DayAppointment{
			Time:     a.Time.String(),
			End:      a.End().String(),
			Duration: a.Duration,
			Status:   a.Status,
			Blocking: a.HasTime() && e.policy.SlotBlocking.Contains(a.Status),
		})
	}
	for _, t := range e.FreeSlots(s, date, duration) {
		view.FreeSlots = append(view.FreeSlots, t.String())
	}
	return view
}
