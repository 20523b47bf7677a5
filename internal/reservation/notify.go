package reservation

import (
	"context"
	"fmt"
	"log"
	"time"

	"hotel-reservation-backend/internal/availability"
	"hotel-reservation-backend/internal/model"
	"hotel-reservation-backend/internal/notification"
)

var subjects = map[string]string{
	notification.KindReservationConfirmed: "Reservation confirmed",
	notification.KindReservationScheduled: "Stay scheduled",
	notification.KindReservationActivated: "Your room is ready",
	notification.KindReservationFinished:  "Stay finished",
	notification.KindReservationCancelled: "Reservation cancelled",
}

// notify publishes after commit. Staff are copied on check-in and check-out.
func (s *Service) notify(ctx context.Context, kind string, r *model.Reservation, copyStaff bool) {
	if s.publisher == nil {
		return
	}

	var recipients []int64
	if r.ClientID != nil {
		recipients = append(recipients, *r.ClientID)
	}
	if copyStaff {
		staff, err := s.store.StaffClientIDs(ctx)
		if err != nil {
			log.Printf("[reservation] could not load staff recipients: %v", err)
		}
		for _, id := range staff {
			if r.ClientID == nil || id != *r.ClientID {
				recipients = append(recipients, id)
			}
		}
	}

	s.publisher.Publish(ctx, notification.Event{
		Kind:          kind,
		ReservationID: r.ID,
		Subject:       subjects[kind],
		Body: fmt.Sprintf("Reservation %d, room %s, %s to %s.",
			r.ID, r.RoomNumber,
			r.CheckIn.UTC().Format(availability.DateLayout), r.CheckOut.UTC().Format(availability.DateLayout)),
		ClientIDs:  recipients,
		OccurredAt: s.clock.Now().UTC().Truncate(time.Second),
	})
}
