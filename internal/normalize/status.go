package normalize

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an appointment.
type Status int

const (
	// StatusUnknown is the zero value and the result of a failed ParseStatus.
	// ClassifyStatus never returns it.
	StatusUnknown Status = iota
	StatusPending
	StatusConfirmed
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusUnknown:   "unknown",
	StatusPending:   "pending",
	StatusConfirmed: "confirmed",
	StatusCancelled: "cancelled",
}

// String returns the lower-case wire name of s.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for exact wire names.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, ok := ParseStatus(string(text))
	if !ok {
		return fmt.Errorf("normalize: unknown status %q", string(text))
	}
	*s = parsed
	return nil
}

// ClassifyStatus derives a Status from operator-entered text. "confirm" and
// "valid" mean confirmed, "cancel", "annul" and "refus" mean cancelled, and
// anything else (including an empty cell) is pending.
func ClassifyStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "cancel"), strings.Contains(s, "annul"), strings.Contains(s, "refus"):
		return StatusCancelled
	case strings.Contains(s, "confirm"), strings.Contains(s, "valid"):
		return StatusConfirmed
	default:
		return StatusPending
	}
}

// ParseStatus parses an exact wire name as produced by Status.String.
func ParseStatus(raw string) (Status, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for status, name := range statusNames {
		if name == s {
			return status, true
		}
	}
	return StatusUnknown, false
}
