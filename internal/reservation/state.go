package reservation

import (
	"fmt"

	"hotel-reservation-backend/internal/model"
)

// transitions lists the legal moves out of each status. Finalized and
// Cancelled have no entry and are terminal.
var transitions = map[model.ReservationStatus][]model.ReservationStatus{
	model.StatusInitiated:  {model.StatusProcessing, model.StatusScheduled, model.StatusCancelled},
	model.StatusProcessing: {model.StatusActive, model.StatusScheduled, model.StatusCancelled},
	model.StatusScheduled:  {model.StatusActive},
	model.StatusActive:     {model.StatusFinalized},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to model.ReservationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.ReservationStatus) bool {
	return len(transitions[s]) == 0
}

// moveTo applies a transition and keeps the active flag in step with it:
// only Active reservations occupy their room.
func moveTo(r *model.Reservation, to model.ReservationStatus) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s for reservation %d", ErrInvalidTransition, r.Status, to, r.ID)
	}
	r.Status = to
	r.Active = to == model.StatusActive
	return nil
}
