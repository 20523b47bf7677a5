package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-reservation-backend/internal/model"
)

// ReservationFilter narrows FindReservations and CountReservations. Zero
// fields are ignored.
type ReservationFilter struct {
	ClientID           *int64
	RoomID             *int64
	Statuses           []model.ReservationStatus
	ActiveOnly         bool
	CheckOutOnOrBefore *time.Time
	ExcludeID          int64
	Limit              int
}

func (f ReservationFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.RoomID != nil {
		q = q.Where("room_id = ?", *f.RoomID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", statusValues(f.Statuses))
	}
	if f.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if f.CheckOutOnOrBefore != nil {
		q = q.Where("check_out <= ?", f.CheckOutOnOrBefore.UTC())
	}
	if f.ExcludeID != 0 {
		q = q.Where("id <> ?", f.ExcludeID)
	}
	return q
}

func (s *gormStore) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *gormStore) LockReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// FindReservations returns matching reservations ordered by check-in.
func (s *gormStore) FindReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	var out []model.Reservation
	q := f.apply(s.db.WithContext(ctx).Model(&model.Reservation{})).Order("check_in").Order("id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *gormStore) CountReservations(ctx context.Context, f ReservationFilter) (int64, error) {
	var n int64
	if err := f.apply(s.db.WithContext(ctx).Model(&model.Reservation{})).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	r.CheckIn = r.CheckIn.UTC()
	r.CheckOut = r.CheckOut.UTC()
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error)
}

// UpdateReservationState writes the status and active flag only.
func (s *gormStore) UpdateReservationState(ctx context.Context, r *model.Reservation) error {
	res := s.db.WithContext(ctx).
		Model(&model.Reservation{ID: r.ID}).
		Updates(map[string]any{"status": string(r.Status), "active": r.Active})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) GetPayment(ctx context.Context, reservationID int64) (*model.Payment, error) {
	var p model.Payment
	if err := s.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *gormStore) CreatePayment(ctx context.Context, p *model.Payment) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

func (s *gormStore) UpdatePaymentStatus(ctx context.Context, p *model.Payment) error {
	res := s.db.WithContext(ctx).
		Model(&model.Payment{ID: p.ID}).
		Update("status", string(p.Status))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) GetScheduling(ctx context.Context, reservationID int64) (*model.Scheduling, error) {
	var link model.Scheduling
	if err := s.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&link).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

func (s *gormStore) CreateScheduling(ctx context.Context, link *model.Scheduling) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error)
}
