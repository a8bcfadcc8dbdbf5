// Package availability computes open dates, free slots and conflicts from a
// schedule snapshot. Every function is pure: the schedule is passed in and is
// never modified, and no I/O happens here.
package availability

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wolfman30/salon-booking/internal/normalize"
	"github.com/wolfman30/salon-booking/internal/schedule"
)

// DefaultGranularity is the slot step in minutes.
const DefaultGranularity = 15

// StatusSet is a set of appointment statuses considered blocking.
type StatusSet map[schedule.Status]struct{}

// NewStatusSet builds a set from statuses.
func NewStatusSet(statuses ...schedule.Status) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, st := range statuses {
		set[st] = struct{}{}
	}
	return set
}

// ParseStatusSet builds a set from wire names such as "confirmed" or "pending".
func ParseStatusSet(names []string) (StatusSet, error) {
	set := make(StatusSet, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		st, ok := normalize.ParseStatus(name)
		if !ok {
			return nil, fmt.Errorf("availability: unknown status %q", name)
		}
		set[st] = struct{}{}
	}
	return set, nil
}

// Contains reports whether st is in the set.
func (s StatusSet) Contains(st schedule.Status) bool {
	_, ok := s[st]
	return ok
}

// String lists the members in enum order, comma separated.
func (s StatusSet) String() string {
	names := make([]string, 0, len(s))
	members := make([]schedule.Status, 0, len(s))
	for st := range s {
		members = append(members, st)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	for _, st := range members {
		names = append(names, st.String())
	}
	return strings.Join(names, ",")
}

// Policy holds the tunables of the engine.
type Policy struct {
	// Granularity is the step between candidate slot starts, in minutes.
	Granularity int
	// SlotBlocking lists statuses that remove slots from FreeSlots.
	SlotBlocking StatusSet
	// ConflictBlocking lists statuses that make CheckConflict report true.
	ConflictBlocking StatusSet
}

// DefaultPolicy steps by 15 minutes, hides slots taken by confirmed or
// pending appointments and rejects bookings only against confirmed ones.
func DefaultPolicy() Policy {
	return Policy{
		Granularity:      DefaultGranularity,
		SlotBlocking:     NewStatusSet(schedule.StatusConfirmed, schedule.StatusPending),
		ConflictBlocking: NewStatusSet(schedule.StatusConfirmed),
	}
}
