// Package availability answers date questions about a room's reservation set:
// whether a candidate stay collides with booked stays, and which ranges are
// still free. Everything here is pure and works on UTC-midnight dates.
package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hotel-reservation-backend/internal/model"
)

const day = 24 * time.Hour

// DateLayout is the human-facing date format used in messages.
const DateLayout = "02/01/2006"

var (
	// Blocking statuses take dates away from other guests.
	Blocking = []model.ReservationStatus{model.StatusActive, model.StatusScheduled}
	// Holding adds stays with an open checkout session.
	Holding = []model.ReservationStatus{model.StatusActive, model.StatusScheduled, model.StatusProcessing}
	// Occupying statuses make a room unavailable.
	Occupying = []model.ReservationStatus{model.StatusActive, model.StatusProcessing}
)

// Stay is a half-open [CheckIn, CheckOut) interval of dates.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// StayOf returns the interval of a reservation.
func StayOf(r model.Reservation) Stay {
	return Stay{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

// Nights is the number of nights in the stay.
func (s Stay) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn) / day)
}

// DateOf truncates t to its calendar date in loc, expressed as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether an existing stay collides with a candidate.
// The check-in bound is inclusive on the candidate's checkout, so a stay that
// starts on the candidate's checkout day still counts as a collision.
func Overlaps(existing, candidate Stay) bool {
	return existing.CheckOut.After(candidate.CheckIn) && !existing.CheckIn.After(candidate.CheckOut)
}

// Conflicts returns the reservations with one of the given statuses whose
// stay overlaps the candidate. With no statuses, Blocking is used.
func Conflicts(reservations []model.Reservation, candidate Stay, statuses ...model.ReservationStatus) []model.Reservation {
	if len(statuses) == 0 {
		statuses = Blocking
	}
	var out []model.Reservation
	for _, r := range reservations {
		if !HasStatus(r, statuses...) {
			continue
		}
		if Overlaps(StayOf(r), candidate) {
			out = append(out, r)
		}
	}
	return out
}

// HasStatus reports whether r is in one of the statuses.
func HasStatus(r model.Reservation, statuses ...model.ReservationStatus) bool {
	for _, s := range statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// Gap is a free range of dates. A nil To means open-ended.
type Gap struct {
	From time.Time
	To   *time.Time
}

// FreeGaps computes the free ranges between the given stays, ordered by
// check-in. A gap exists when at least one day separates the end of one stay
// from the start of the next. The last gap is always open-ended. No stays
// means no gaps: the whole calendar is free.
func FreeGaps(stays []Stay) []Gap {
	if len(stays) == 0 {
		return nil
	}
	sorted := make([]Stay, len(stays))
	copy(sorted, stays)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CheckIn.Before(sorted[j].CheckIn) })

	var gaps []Gap
	lastOut := sorted[0].CheckOut
	for _, next := range sorted[1:] {
		if next.CheckIn.Sub(lastOut) >= day {
			to := next.CheckIn.Add(-day)
			gaps = append(gaps, Gap{From: lastOut, To: &to})
		}
		if next.CheckOut.After(lastOut) {
			lastOut = next.CheckOut
		}
	}
	return append(gaps, Gap{From: lastOut})
}

// FormatGaps renders gaps as "dd/mm/yyyy to dd/mm/yyyy, and dd/mm/yyyy onward".
func FormatGaps(gaps []Gap) string {
	if len(gaps) == 0 {
		return "any date"
	}
	parts := make([]string, 0, len(gaps))
	for _, g := range gaps {
		if g.To == nil {
			parts = append(parts, fmt.Sprintf("%s onward", g.From.Format(DateLayout)))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s to %s", g.From.Format(DateLayout), g.To.Format(DateLayout)))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
}

// FreeDates is a convenience over FreeGaps and FormatGaps for reservations.
func FreeDates(blocking []model.Reservation) string {
	stays := make([]Stay, 0, len(blocking))
	for _, r := range blocking {
		stays = append(stays, StayOf(r))
	}
	return FormatGaps(FreeGaps(stays))
}
