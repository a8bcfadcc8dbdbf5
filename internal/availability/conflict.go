package availability

import (
	"github.com/wolfman30/salon-booking/internal/normalize"
	"github.com/wolfman30/salon-booking/internal/schedule"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd normalize.TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// CheckConflict reports whether a booking at start for duration minutes on
// date overlaps any conflict-blocking appointment.
func (e *Engine) CheckConflict(s *schedule.Schedule, date normalize.DateKey, start normalize.TimeOfDay, duration int) bool {
	return len(e.Conflicts(s, date, start, duration)) > 0
}

// Conflicts returns the conflict-blocking appointments overlapping the
// proposed booking, in schedule order. A booking running past midnight is
// checked up to the end of the day.
func (e *Engine) Conflicts(s *schedule.Schedule, date normalize.DateKey, start normalize.TimeOfDay, duration int) []schedule.Appointment {
	if !start.Valid() || duration <= 0 {
		return nil
	}
	end := normalize.TimeOfDay(normalize.MinutesPerDay)
	if duration < normalize.MinutesPerDay-int(start) {
		end = start.Add(duration)
	}
	busy := blocking(s.AppointmentsFor(date), e.policy.ConflictBlocking)
	return overlapping(busy, start, end)
}

// blocking keeps the timed appointments whose status is in set.
func blocking(appts []schedule.Appointment, set StatusSet) []schedule.Appointment {
	out := appts[:0]
	for _, a := range appts {
		if a.HasTime() && set.Contains(a.Status) {
			out = append(out, a)
		}
	}
	return out
}

func overlapping(appts []schedule.Appointment, start, end normalize.TimeOfDay) []schedule.Appointment {
	var out []schedule.Appointment
	for _, a := range appts {
		if Overlaps(start, end, a.Time, a.End()) {
			out = append(out, a)
		}
	}
	return out
}
