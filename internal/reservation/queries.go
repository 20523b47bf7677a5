package reservation

import (
	"context"

	"hotel-reservation-backend/internal/availability"
	"hotel-reservation-backend/internal/model"
	"hotel-reservation-backend/internal/store"
)

// RoomDetail is a room plus the advisory dates it can still be booked for.
type RoomDetail struct {
	Room      model.Room
	Gaps      []availability.Gap
	FreeDates string
}

// ListRooms returns the catalog with current availability.
func (s *Service) ListRooms(ctx context.Context) ([]model.Room, error) {
	return s.store.ListRooms(ctx)
}

// RoomDetail loads a room and computes its free dates. The result is not a
// reservation guarantee.
func (s *Service) RoomDetail(ctx context.Context, roomID int64) (*RoomDetail, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, roomError(err)
	}
	blocking, err := s.store.FindReservations(ctx, store.ReservationFilter{RoomID: &room.ID, Statuses: availability.Blocking})
	if err != nil {
		return nil, err
	}
	stays := make([]availability.Stay, len(blocking))
	for i, r := range blocking {
		stays[i] = availability.StayOf(r)
	}
	gaps := availability.FreeGaps(stays)
	return &RoomDetail{Room: *room, Gaps: gaps, FreeDates: availability.FormatGaps(gaps)}, nil
}

// ClientReservations returns a client's reservation history.
func (s *Service) ClientReservations(ctx context.Context, clientID int64) ([]model.Reservation, error) {
	return s.store.FindReservations(ctx, store.ReservationFilter{ClientID: &clientID})
}

// GetReservationFor returns a reservation visible to the client: its owner
// or a staff member.
func (s *Service) GetReservationFor(ctx context.Context, reservationID int64, client *model.Client) (*model.Reservation, error) {
	r, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, reservationError(err)
	}
	if client == nil || (!client.IsStaff && !r.OwnedBy(client.ID)) {
		return nil, ErrForbidden
	}
	return r, nil
}
