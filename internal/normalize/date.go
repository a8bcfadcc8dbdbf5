// Package normalize converts the loosely typed values found in the salon
// spreadsheet (operator-entered dates, times, durations, statuses and column
// labels) into one canonical representation. Everything downstream compares
// canonical values by equality.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateKey is a calendar date in canonical YYYY-MM-DD form.
type DateKey string

const dateKeyLayout = "2006-01-02"

var (
	isoDatePattern      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	dayFirstDatePattern = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})[/.](\d{4})(?:[T ].*)?$`)
)

// NormalizeDate returns the canonical DateKey for raw. It accepts ISO dates
// with or without zero padding and with or without a trailing time component,
// and day-first dates separated by "/" or ".". Unrecognized input is returned
// trimmed but otherwise unchanged with ok=false; callers must treat it as "no
// match".
func NormalizeDate(raw string) (DateKey, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	var year, month, day string
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		year, month, day = m[1], m[2], m[3]
	} else if m := dayFirstDatePattern.FindStringSubmatch(s); m != nil {
		day, month, year = m[1], m[2], m[3]
	} else {
		return DateKey(s), false
	}

	key, ok := dateFromParts(year, month, day)
	if !ok {
		return DateKey(s), false
	}
	return key, true
}

// NormalizeDateIn is NormalizeDate for cells that may be serialized instants.
// A spreadsheet date at local midnight arrives as "2025-11-04T23:00:00.000Z"
// for a salon in Paris; with loc set it is read as 2025-11-05. A nil loc keeps
// the literal fields.
func NormalizeDateIn(raw string, loc *time.Location) (DateKey, bool) {
	if t, ok := instantIn(raw, loc); ok {
		return DateKeyOf(t), true
	}
	return NormalizeDate(raw)
}

// instantIn parses an RFC 3339 value carrying "Z" or a numeric offset and
// converts it to loc.
func instantIn(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}

func dateFromParts(year, month, day string) (DateKey, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31 Feb into March; reject instead of shifting.
	if t.Day() != d || int(t.Month()) != m {
		return "", false
	}
	return DateKey(fmt.Sprintf("%04d-%02d-%02d", y, m, d)), true
}

// DateKeyOf returns the DateKey of t's own calendar fields. The location of t
// is respected, so a local midnight never slides to the previous day.
func DateKeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey(fmt.Sprintf("%04d-%02d-%02d", y, int(m), d))
}

// Valid reports whether k is a canonical, existing calendar date.
func (k DateKey) Valid() bool {
	_, err := time.Parse(dateKeyLayout, string(k))
	return err == nil
}

// String implements fmt.Stringer.
func (k DateKey) String() string { return string(k) }

// AddDays returns the DateKey n calendar days after k. Arithmetic is done on
// calendar fields at noon UTC so daylight saving never changes the result.
// An invalid key is returned unchanged.
func (k DateKey) AddDays(n int) DateKey {
	t, err := time.Parse(dateKeyLayout, string(k))
	if err != nil {
		return k
	}
	t = time.Date(t.Year(), t.Month(), t.Day()+n, 12, 0, 0, 0, time.UTC)
	return DateKeyOf(t)
}

// Weekday returns the day of the week of k, or time.Sunday for an invalid key.
func (k DateKey) Weekday() time.Weekday {
	t, err := time.Parse(dateKeyLayout, string(k))
	if err != nil {
		return time.Sunday
	}
	return t.Weekday()
}

// DayFirst renders k as DD/MM/YYYY.
func (k DateKey) DayFirst() string {
	t, err := time.Parse(dateKeyLayout, string(k))
	if err != nil {
		return string(k)
	}
	return t.Format("02/01/2006")
}
