package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"hotel-reservation-backend/internal/model"
)

// Store defines the interface for all database operations.
//
// Lock* methods take a row lock (SELECT ... FOR UPDATE) and are only
// meaningful on the Store handed to a WithTx callback.
type Store interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx Store) error) error

	ListRooms(ctx context.Context) ([]model.Room, error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	LockRoom(ctx context.Context, id int64) (*model.Room, error)
	RefreshRoomAvailability(ctx context.Context, roomID int64) (bool, error)
	UpsertCatalog(ctx context.Context, c Catalog) error

	GetClient(ctx context.Context, id int64) (*model.Client, error)
	StaffClientIDs(ctx context.Context) ([]int64, error)

	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	LockReservation(ctx context.Context, id int64) (*model.Reservation, error)
	FindReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
	CountReservations(ctx context.Context, f ReservationFilter) (int64, error)
	CreateReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservationState(ctx context.Context, r *model.Reservation) error

	GetPayment(ctx context.Context, reservationID int64) (*model.Payment, error)
	CreatePayment(ctx context.Context, p *model.Payment) error
	UpdatePaymentStatus(ctx context.Context, p *model.Payment) error

	GetScheduling(ctx context.Context, reservationID int64) (*model.Scheduling, error)
	CreateScheduling(ctx context.Context, s *model.Scheduling) error

	EnqueueJob(ctx context.Context, job *model.ScheduledJob) (bool, error)
	ClaimDueJobs(ctx context.Context, now time.Time, limit int) ([]model.ScheduledJob, error)
	MarkJobDone(ctx context.Context, id int64) error
	RescheduleJob(ctx context.Context, id int64, runAt time.Time, lastErr string) error
	MarkJobFailed(ctx context.Context, id int64, lastErr string) error
	ResetRunningJobs(ctx context.Context) (int64, error)

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForClients(ctx context.Context, clientIDs []int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for wiring and tests.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside a single transaction. The Store passed to fn is bound
// to that transaction; fn must not use the outer Store.
func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
	return translate(err)
}

func (s *gormStore) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	var client model.Client
	if err := s.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (s *gormStore) StaffClientIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&model.Client{}).Where("is_staff = ?", true).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

func statusValues(statuses []model.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
