package schedule

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/internal/normalize"
)

// Record is one raw spreadsheet row as decoded from JSON.
type Record map[string]any

// DropKind identifies which collection a dropped record came from.
type DropKind string

const (
	DropWindow      DropKind = "window"
	DropAppointment DropKind = "appointment"
)

// Drop describes a record excluded from the schedule.
type Drop struct {
	Kind   DropKind `json:"kind"`
	Index  int      `json:"index"`
	Reason string   `json:"reason"`
}

func (d Drop) String() string {
	return fmt.Sprintf("%s[%d]: %s", d.Kind, d.Index, d.Reason)
}

// BuildOption customizes Build.
type BuildOption func(*Schedule)

// WithFetchedAt stamps the schedule with the time its data was fetched.
func WithFetchedAt(t time.Time) BuildOption {
	return func(s *Schedule) { s.FetchedAt = t }
}

// WithLocation converts date and time cells serialized as instants ("Z" or an
// offset suffix) into loc before their calendar fields are read.
func WithLocation(loc *time.Location) BuildOption {
	return func(s *Schedule) { s.location = loc }
}

// Build normalizes raw windows and appointments into a Schedule. It never
// fails: records that cannot be normalized are dropped and reported through
// Schedule.Drops.
func Build(windows, appointments []Record, opts ...BuildOption) *Schedule {
	s := Empty()
	for _, opt := range opts {
		opt(s)
	}

	for i, raw := range windows {
		w, reason := windowFromRecord(canonicalize(raw), s.location)
		if reason != "" {
			s.drops = append(s.drops, Drop{Kind: DropWindow, Index: i, Reason: reason})
			continue
		}
		if _, dup := s.windows[w.Date]; dup {
			s.drops = append(s.drops, Drop{Kind: DropWindow, Index: i, Reason: "duplicate window for " + string(w.Date)})
			continue
		}
		s.windows[w.Date] = w
	}

	for i, raw := range appointments {
		a, reason := appointmentFromRecord(canonicalize(raw), s.location)
		if reason != "" {
			s.drops = append(s.drops, Drop{Kind: DropAppointment, Index: i, Reason: reason})
			continue
		}
		s.appointments[a.Date] = append(s.appointments[a.Date], a)
	}

	for date, appts := range s.appointments {
		sort.SliceStable(appts, func(i, j int) bool {
			a, b := appts[i], appts[j]
			switch {
			case !a.HasTime():
				return false
			case !b.HasTime():
				return true
			default:
				return a.Time < b.Time
			}
		})
		s.appointments[date] = appts
	}
	return s
}

func windowFromRecord(r map[string]string, loc *time.Location) (OpeningWindow, string) {
	date, ok := normalize.NormalizeDateIn(r[normalize.FieldDate], loc)
	if !ok {
		return OpeningWindow{}, fmt.Sprintf("unrecognized date %q", r[normalize.FieldDate])
	}

	rawOpen := strings.TrimSpace(r[normalize.FieldOpenTime])
	if rawOpen == "" {
		return OpeningWindow{Date: date, Open: normalize.NoTime, Close: normalize.NoTime, Closed: true}, ""
	}
	open, ok := normalize.NormalizeTimeIn(rawOpen, loc)
	if !ok {
		return OpeningWindow{}, fmt.Sprintf("unrecognized open time %q", rawOpen)
	}
	closeAt, ok := normalize.NormalizeTimeIn(r[normalize.FieldCloseTime], loc)
	if !ok {
		return OpeningWindow{}, fmt.Sprintf("unrecognized close time %q", r[normalize.FieldCloseTime])
	}
	if open >= closeAt {
		return OpeningWindow{}, fmt.Sprintf("open time %s not before close time %s", open, closeAt)
	}
	return OpeningWindow{Date: date, Open: open, Close: closeAt}, ""
}

func appointmentFromRecord(r map[string]string, loc *time.Location) (Appointment, string) {
	date, ok := normalize.NormalizeDateIn(r[normalize.FieldDate], loc)
	if !ok {
		return Appointment{}, fmt.Sprintf("unrecognized date %q", r[normalize.FieldDate])
	}

	start := normalize.NoTime
	if rawTime := strings.TrimSpace(r[normalize.FieldTime]); rawTime != "" {
		start, ok = normalize.NormalizeTimeIn(rawTime, loc)
		if !ok {
			return Appointment{}, fmt.Sprintf("unrecognized time %q", rawTime)
		}
	}

	duration, ok := normalize.NormalizeDuration(r[normalize.FieldDuration])
	if !ok {
		return Appointment{}, fmt.Sprintf("invalid duration %q", r[normalize.FieldDuration])
	}

	return Appointment{
		Date:        date,
		Time:        start,
		Duration:    duration,
		ClientName:  strings.TrimSpace(r[normalize.FieldClientName]),
		ClientEmail: strings.TrimSpace(r[normalize.FieldClientEmail]),
		Message:     strings.TrimSpace(r[normalize.FieldMessage]),
		Status:      normalize.ClassifyStatus(r[normalize.FieldStatus]),
	}, ""
}

// canonicalize maps every key of raw to its canonical field name. When two
// columns land on the same field, a column already spelled canonically wins;
// otherwise the lexically first column wins so results never depend on map
// iteration order.
func canonicalize(raw Record) map[string]string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(raw))
	exact := make(map[string]bool, len(raw))
	for _, k := range keys {
		field := normalize.NormalizeFieldName(k)
		isExact := strings.EqualFold(strings.TrimSpace(k), field)
		if _, seen := out[field]; seen && (exact[field] || !isExact) {
			continue
		}
		out[field] = stringify(raw[k])
		exact[field] = isExact
	}
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
