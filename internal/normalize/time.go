package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// NoTime marks a missing time of day.
const NoTime TimeOfDay = -1

// MinutesPerDay bounds every time of day and every booking duration.
const MinutesPerDay = 24 * 60

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2})\s*[:hH]\s*(\d{1,2})?(?::(\d{1,2}))?$`)
	durationPattern = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(?:m|min|mins|minutes?)?$`)
)

// NormalizeTime parses raw into a TimeOfDay, discarding seconds. It accepts
// "9:5", "09:05", "09:05:00", "9h30" and spreadsheet time cells serialized as
// ISO datetimes ("1899-12-30T09:00:00.000Z"). Empty or invalid input yields
// NoTime, false.
func NormalizeTime(raw string) (TimeOfDay, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return NoTime, false
	}
	if i := strings.IndexAny(s, "T "); i > 0 && strings.Count(s[:i], "-") == 2 {
		s = strings.TrimSpace(s[i+1:])
		s = strings.TrimSuffix(s, "Z")
		if dot := strings.Index(s, "."); dot > 0 {
			s = s[:dot]
		}
	}

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return NoTime, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return NoTime, false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return NoTime, false
		}
	}
	return TimeOfDay(hour*60 + minute), true
}

// NormalizeTimeIn is NormalizeTime for cells that may be serialized instants
// ("2025-11-05T08:30:00.000Z", "...+01:00"). Such values are converted to loc
// before the wall-clock time is taken. A nil loc keeps the literal fields.
func NormalizeTimeIn(raw string, loc *time.Location) (TimeOfDay, bool) {
	if t, ok := instantIn(raw, loc); ok {
		return TimeOfDay(t.Hour()*60 + t.Minute()), true
	}
	return NormalizeTime(raw)
}

// MustTime parses a canonical or loose time and panics on failure. Intended
// for tests and constants.
func MustTime(raw string) TimeOfDay {
	t, ok := NormalizeTime(raw)
	if !ok {
		panic(fmt.Sprintf("normalize: invalid time %q", raw))
	}
	return t
}

// Valid reports whether t is a time within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

// Add returns t shifted by minutes. The result may exceed a single day; it is
// only meant for interval end arithmetic.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// String renders t as HH:MM, or "" for NoTime.
func (t TimeOfDay) String() string {
	if t < 0 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes to
// NoTime.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*t = NoTime
		return nil
	}
	parsed, ok := NormalizeTime(string(text))
	if !ok {
		return fmt.Errorf("normalize: invalid time %q", string(text))
	}
	*t = parsed
	return nil
}

// FormatTime renders t as HH:MM.
func FormatTime(t TimeOfDay) string { return t.String() }

// NormalizeDuration reads a positive number of minutes from a JSON number or
// a numeric string ("30", "30 min", "45.0"). Fractions are truncated.
func NormalizeDuration(raw any) (int, bool) {
	var minutes float64
	switch v := raw.(type) {
	case int:
		minutes = float64(v)
	case int64:
		minutes = float64(v)
	case float64:
		minutes = v
	case string:
		m := durationPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(v)))
		if m == nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			return 0, false
		}
		minutes = f
	default:
		return 0, false
	}
	if math.IsNaN(minutes) || minutes < 1 || minutes > MinutesPerDay {
		return 0, false
	}
	return int(minutes), true
}
