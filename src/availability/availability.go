// Package availability decides whether a candidate time window can be booked
// on a court, given a snapshot of the reservations already known for it.
//
// It is a pure computation: no storage, no clock, no network. Freshness of the
// supplied snapshot is the caller's problem, and so is atomicity — two callers
// racing on independently fetched snapshots can both see an available slot.
// The write path must re-run this check inside its own transaction.
package availability

import (
	"fmt"
	"time"

	"cbs/src/types"
)

type Code string

const (
	AVAILABLE              Code = "AVAILABLE"
	CONFLICT               Code = "CONFLICT"
	OUTSIDE_BUSINESS_HOURS Code = "OUTSIDE_BUSINESS_HOURS"
	INVALID_DURATION       Code = "INVALID_DURATION"
)

// Result is a tagged outcome. ConflictID is set only when Code is CONFLICT and
// names the earliest-starting overlapping reservation, so callers can show a
// specific message instead of a generic failure.
type Result struct {
	Code       Code `json:"code"`
	ConflictID uint `json:"conflict_id,omitempty"`
}

func (r Result) Available() bool { return r.Code == AVAILABLE }

// Resource describes the bookable unit. OpenMinute and CloseMinute are
// minutes since midnight in the resource's local day; CloseMinute may be 1440
// for a venue that closes at midnight. SlotMinutes of zero disables the
// granularity check.
type Resource struct {
	ID          uint
	OpenMinute  int
	CloseMinute int
	SlotMinutes uint
}

// Reservation is the engine's view of an existing booking. Status is read only
// to exclude cancelled rows from the active set.
type Reservation struct {
	ID       uint
	Start    time.Time
	Duration uint
	Status   types.BookingStatus
}

func (r Reservation) End() time.Time {
	return r.Start.Add(time.Duration(r.Duration) * time.Minute)
}

type Options struct {
	IgnoreBusinessHours bool
}

// ParseTimeOfDay converts an "HH:MM" wall-clock string into minutes since
// midnight. "24:00" is accepted as end-of-day for closing times.
func ParseTimeOfDay(s string) (int, error) {
	if s == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Check reports whether [start, start+duration) can be booked on res.
//
// Interval comparisons are half-open: a reservation ending exactly when the
// candidate starts is not a conflict, so back-to-back bookings are legal.
// A candidate that would run past closing is rejected outright, never split.
// When several reservations overlap the candidate, the one with the earliest
// start wins, ties broken by lowest id, so identical inputs always produce
// identical results.
func Check(res Resource, existing []Reservation, start time.Time, duration uint, opts Options) Result {
	if res.ID == 0 {
		panic("availability: resource without id")
	}
	if duration == 0 {
		return Result{Code: INVALID_DURATION}
	}
	if res.SlotMinutes > 0 && duration%res.SlotMinutes != 0 {
		return Result{Code: INVALID_DURATION}
	}

	end := start.Add(time.Duration(duration) * time.Minute)

	if !opts.IgnoreBusinessHours {
		startMinute := start.Hour()*60 + start.Minute()
		// The end offset is measured from the candidate's own midnight, so a
		// window that crosses into the next day exceeds CloseMinute and fails.
		endMinute := startMinute + int(duration)
		if startMinute < res.OpenMinute || endMinute > res.CloseMinute {
			return Result{Code: OUTSIDE_BUSINESS_HOURS}
		}
	}

	var conflict *Reservation
	for i := range existing {
		r := existing[i]
		if !r.Status.Active() {
			continue
		}
		if start.Before(r.End()) && r.Start.Before(end) {
			if conflict == nil ||
				r.Start.Before(conflict.Start) ||
				(r.Start.Equal(conflict.Start) && r.ID < conflict.ID) {
				conflict = &existing[i]
			}
		}
	}
	if conflict != nil {
		return Result{Code: CONFLICT, ConflictID: conflict.ID}
	}

	return Result{Code: AVAILABLE}
}
