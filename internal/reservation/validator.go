package reservation

import (
	"fmt"
	"strings"
	"time"

	"hotel-reservation-backend/internal/availability"
	"hotel-reservation-backend/internal/model"
)

// ViolationKind names a broken booking rule.
type ViolationKind string

const (
	InvalidCheckinDate         ViolationKind = "invalid_checkin_date"
	InvalidCheckinAnticipation ViolationKind = "invalid_checkin_anticipation"
	InvalidStayedDays          ViolationKind = "invalid_stayed_days"
	UnavailableRoom            ViolationKind = "unavailable_room"
	UnavailableDate            ViolationKind = "unavailable_date"
	AlreadyHasReservation      ViolationKind = "already_has_reservation"
	RoomNotOccupied            ViolationKind = "room_not_occupied"
)

// Form fields violations are reported against.
const (
	FieldCheckin     = "checkin"
	FieldRoom        = "room"
	FieldClient      = "client"
	FieldReservation = "reservation"
)

// Violation is one broken rule.
type Violation struct {
	Field   string        `json:"field"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

// Violations is an ordered, read-only set of broken rules.
type Violations struct {
	items []Violation
}

func newViolations(items ...Violation) Violations {
	return Violations{items: append([]Violation(nil), items...)}
}

// Len returns the number of violations.
func (v Violations) Len() int { return len(v.items) }

// All returns a copy of the violations in rule order.
func (v Violations) All() []Violation {
	return append([]Violation(nil), v.items...)
}

// First returns the first violation, or the zero value when there is none.
func (v Violations) First() Violation {
	if len(v.items) == 0 {
		return Violation{}
	}
	return v.items[0]
}

// Has reports whether a rule of the given kind was broken.
func (v Violations) Has(kind ViolationKind) bool {
	for _, it := range v.items {
		if it.Kind == kind {
			return true
		}
	}
	return false
}

// Map returns field -> message, keeping the first message per field.
func (v Violations) Map() map[string]string {
	out := make(map[string]string, len(v.items))
	for _, it := range v.items {
		if _, seen := out[it.Field]; !seen {
			out[it.Field] = it.Message
		}
	}
	return out
}

// ValidationError carries the broken rules of a rejected booking.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, e.Violations.Len())
	for _, v := range e.Violations.items {
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Candidate is everything the rules look at. It is assembled by the service
// from locked rows so the outcome reflects committed state.
type Candidate struct {
	CheckIn  time.Time
	CheckOut time.Time
	Today    time.Time
	Room     model.Room
	// Blocking are the room's reservations in Active or Scheduled.
	Blocking []model.Reservation
	// ClientHasReservation is true when the client already holds an Active
	// or Scheduled stay.
	ClientHasReservation bool
}

func (c Candidate) stay() availability.Stay {
	return availability.Stay{CheckIn: c.CheckIn, CheckOut: c.CheckOut}
}

func (c Candidate) occupied() bool {
	for _, r := range c.Blocking {
		if r.Status == model.StatusActive {
			return true
		}
	}
	return false
}

type rule func(Candidate, Policy) (Violation, bool)

// Validate checks a fresh booking. Every rule runs; none short-circuits.
func Validate(c Candidate, p Policy) Violations {
	return run(c, p,
		checkinNotPast,
		checkinWithinAnticipation,
		stayLength,
		clientFree,
		roomAvailable,
		datesFree(FieldCheckin),
	)
}

// ValidateSchedule checks a future stay on an occupied room. Room
// availability is not required; the room must instead be occupied.
func ValidateSchedule(c Candidate, p Policy) Violations {
	return run(c, p,
		checkinNotPast,
		checkinWithinAnticipation,
		stayLength,
		roomOccupied,
		datesFree(FieldReservation),
	)
}

func run(c Candidate, p Policy, rules ...rule) Violations {
	var out []Violation
	for _, r := range rules {
		if v, broken := r(c, p); broken {
			out = append(out, v)
		}
	}
	return newViolations(out...)
}

func checkinNotPast(c Candidate, _ Policy) (Violation, bool) {
	if !c.CheckIn.Before(c.Today) {
		return Violation{}, false
	}
	return Violation{Field: FieldCheckin, Kind: InvalidCheckinDate, Message: "check-in date cannot be in the past"}, true
}

func checkinWithinAnticipation(c Candidate, p Policy) (Violation, bool) {
	limit := c.Today.AddDate(0, 0, p.AnticipationDays)
	if !c.CheckIn.After(limit) {
		return Violation{}, false
	}
	return Violation{
		Field:   FieldCheckin,
		Kind:    InvalidCheckinAnticipation,
		Message: fmt.Sprintf("check-in must be at most %d days ahead (until %s)", p.AnticipationDays, limit.Format(availability.DateLayout)),
	}, true
}

func stayLength(c Candidate, p Policy) (Violation, bool) {
	minDays := p.MinStayDays
	if minDays < 1 {
		minDays = 1
	}
	nights := c.stay().Nights()
	if nights >= minDays && nights <= p.MaxStayDays {
		return Violation{}, false
	}
	return Violation{
		Field:   FieldCheckin,
		Kind:    InvalidStayedDays,
		Message: fmt.Sprintf("stay must be between %d and %d nights", minDays, p.MaxStayDays),
	}, true
}

func clientFree(c Candidate, _ Policy) (Violation, bool) {
	if !c.ClientHasReservation {
		return Violation{}, false
	}
	return Violation{Field: FieldClient, Kind: AlreadyHasReservation, Message: "you already have a reservation active or scheduled"}, true
}

func roomAvailable(c Candidate, _ Policy) (Violation, bool) {
	if c.Room.Available {
		return Violation{}, false
	}
	return Violation{Field: FieldRoom, Kind: UnavailableRoom, Message: fmt.Sprintf("room %s is not available", c.Room.Number)}, true
}

func roomOccupied(c Candidate, _ Policy) (Violation, bool) {
	if c.occupied() {
		return Violation{}, false
	}
	return Violation{Field: FieldReservation, Kind: RoomNotOccupied, Message: "cannot schedule a room that is not occupied"}, true
}

func datesFree(field string) rule {
	return func(c Candidate, _ Policy) (Violation, bool) {
		if len(availability.Conflicts(c.Blocking, c.stay())) == 0 {
			return Violation{}, false
		}
		return unavailableDate(field, c.Blocking), true
	}
}

func unavailableDate(field string, blocking []model.Reservation) Violation {
	return Violation{
		Field:   field,
		Kind:    UnavailableDate,
		Message: "room is already booked for these dates, free dates: " + availability.FreeDates(blocking),
	}
}
