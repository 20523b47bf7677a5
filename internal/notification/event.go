package notification

import (
	"context"
	"time"
)

// Event kinds published by the reservation lifecycle.
const (
	KindReservationConfirmed = "reservation.confirmed"
	KindReservationScheduled = "reservation.scheduled"
	KindReservationActivated = "reservation.activated"
	KindReservationFinished  = "reservation.finished"
	KindReservationCancelled = "reservation.cancelled"
)

// Event is a message for guests and staff about a reservation.
type Event struct {
	Kind          string    `json:"kind"`
	ReservationID int64     `json:"reservation_id"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	ClientIDs     []int64   `json:"client_ids"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher hands events to a delivery channel. Publishing is fire and
// forget: implementations log failures and never retry.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Multi fans an event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, evt)
		}
	}
}
