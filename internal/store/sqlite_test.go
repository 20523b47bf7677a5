package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-reservation-backend/internal/model"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.RoomClass{}, &model.Benefit{}, &model.Room{}, &model.Client{},
		&model.Reservation{}, &model.Payment{}, &model.Scheduling{},
		&model.ScheduledJob{}, &model.PushSubscription{},
	))
	return NewGormStore(db)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFindReservations_Filters(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	room := model.Room{Number: "101", AdultCapacity: 2, Size: 18, DailyPriceCents: 10000, Available: true}
	require.NoError(t, s.DB().Create(&room).Error)
	client := model.Client{Username: "ana"}
	require.NoError(t, s.DB().Create(&client).Error)

	seed := []model.Reservation{
		{ClientID: &client.ID, RoomID: &room.ID, CheckIn: date(2026, 10, 20), CheckOut: date(2026, 10, 22), Status: model.StatusScheduled},
		{ClientID: &client.ID, RoomID: &room.ID, CheckIn: date(2026, 10, 10), CheckOut: date(2026, 10, 13), Status: model.StatusActive, Active: true},
		{RoomID: &room.ID, CheckIn: date(2026, 10, 11), CheckOut: date(2026, 10, 12), Status: model.StatusCancelled},
	}
	for i := range seed {
		require.NoError(t, s.CreateReservation(ctx, &seed[i]))
	}

	blocking, err := s.FindReservations(ctx, ReservationFilter{
		RoomID:   &room.ID,
		Statuses: []model.ReservationStatus{model.StatusActive, model.StatusScheduled},
	})
	require.NoError(t, err)
	require.Len(t, blocking, 2)
	assert.Equal(t, model.StatusActive, blocking[0].Status, "ordered by check-in")
	assert.Equal(t, date(2026, 10, 10), blocking[0].CheckIn.UTC())

	cutoff := date(2026, 10, 13)
	due, err := s.FindReservations(ctx, ReservationFilter{ActiveOnly: true, CheckOutOnOrBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, seed[1].ID, due[0].ID)

	earlier := date(2026, 10, 12)
	due, err = s.FindReservations(ctx, ReservationFilter{ActiveOnly: true, CheckOutOnOrBefore: &earlier})
	require.NoError(t, err)
	assert.Empty(t, due)

	n, err := s.CountReservations(ctx, ReservationFilter{ClientID: &client.ID, ExcludeID: seed[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdateReservationState_Missing(t *testing.T) {
	s := newSQLiteStore(t)
	err := s.UpdateReservationState(context.Background(), &model.Reservation{ID: 99, Status: model.StatusCancelled})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshRoomAvailability_SQLite(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	room := model.Room{Number: "102", AdultCapacity: 2, Size: 16, DailyPriceCents: 12000, Available: true}
	require.NoError(t, s.DB().Create(&room).Error)
	r := model.Reservation{RoomID: &room.ID, CheckIn: date(2026, 11, 1), CheckOut: date(2026, 11, 3), Status: model.StatusProcessing}
	require.NoError(t, s.CreateReservation(ctx, &r))

	available, err := s.RefreshRoomAvailability(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, available)

	r.Status = model.StatusCancelled
	require.NoError(t, s.UpdateReservationState(ctx, &r))
	available, err = s.RefreshRoomAvailability(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, available)

	stored, err := s.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, stored.Available)
}

func TestJobs_EnqueueClaimLifecycle(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	created, err := s.EnqueueJob(ctx, &model.ScheduledJob{Name: "release-hold-1", Kind: model.JobReleaseHold, ReservationID: 1, RunAt: now.Add(-time.Minute)})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnqueueJob(ctx, &model.ScheduledJob{Name: "release-hold-1", Kind: model.JobReleaseHold, ReservationID: 1, RunAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, created, "same name is armed once")

	_, err = s.EnqueueJob(ctx, &model.ScheduledJob{Name: "activate-reservation-2", Kind: model.JobActivateReservation, ReservationID: 2, RunAt: now.Add(time.Hour)})
	require.NoError(t, err)

	jobs, err := s.ClaimDueJobs(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "release-hold-1", jobs[0].Name)
	assert.Equal(t, model.JobRunning, jobs[0].Status)
	assert.Equal(t, 1, jobs[0].Attempts)

	again, err := s.ClaimDueJobs(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "running jobs are not claimed twice")

	require.NoError(t, s.RescheduleJob(ctx, jobs[0].ID, now.Add(time.Minute), "database is locked"))
	jobs, err = s.ClaimDueJobs(ctx, now.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 2, jobs[0].Attempts)

	require.NoError(t, s.MarkJobDone(ctx, jobs[0].ID))
	var stored model.ScheduledJob
	require.NoError(t, s.DB().First(&stored, jobs[0].ID).Error)
	assert.Equal(t, model.JobDone, stored.Status)
	assert.Empty(t, stored.LastError)

	assert.ErrorIs(t, s.MarkJobFailed(ctx, 12345, "x"), ErrNotFound)
}

func TestResetRunningJobs(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	_, err := s.EnqueueJob(ctx, &model.ScheduledJob{Name: "activate-reservation-3", Kind: model.JobActivateReservation, ReservationID: 3, RunAt: now})
	require.NoError(t, err)
	_, err = s.ClaimDueJobs(ctx, now, 10)
	require.NoError(t, err)

	n, err := s.ResetRunningJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	jobs, err := s.ClaimDueJobs(ctx, now, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestUpsertCatalog(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	catalog := Catalog{
		Classes:  []model.RoomClass{{Name: "Standard"}},
		Benefits: []model.Benefit{{Name: "Breakfast", ShortDescription: "Included"}, {Name: "Wi-Fi"}},
		Rooms: []CatalogRoom{{
			Room:         model.Room{Number: "101", AdultCapacity: 2, Size: 18, DailyPriceCents: 10000, Available: true},
			ClassName:    "Standard",
			BenefitNames: []string{"Breakfast", "Wi-Fi"},
		}},
	}
	require.NoError(t, s.UpsertCatalog(ctx, catalog))

	// Occupy the room, then resync with a new price and fewer benefits.
	require.NoError(t, s.DB().Model(&model.Room{}).Where("number = ?", "101").Update("available", false).Error)
	resync := Catalog{
		Classes:  []model.RoomClass{{Name: "Standard"}},
		Benefits: []model.Benefit{{Name: "Breakfast", ShortDescription: "Continental"}},
		Rooms: []CatalogRoom{{
			Room:         model.Room{Number: "101", AdultCapacity: 3, Size: 18, DailyPriceCents: 15000, Available: true},
			ClassName:    "Standard",
			BenefitNames: []string{"Breakfast"},
		}},
	}
	require.NoError(t, s.UpsertCatalog(ctx, resync))

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	room := rooms[0]
	assert.Equal(t, int64(15000), room.DailyPriceCents)
	assert.Equal(t, 3, room.AdultCapacity)
	assert.False(t, room.Available, "sync never touches availability")
	require.NotNil(t, room.Class)
	assert.Equal(t, "Standard", room.Class.Name)
	require.Len(t, room.Benefits, 1)
	assert.Equal(t, "Continental", room.Benefits[0].ShortDescription)
}

func TestSubscriptions(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	guest := model.Client{Username: "guest"}
	staff := model.Client{Username: "staff", IsStaff: true}
	require.NoError(t, s.DB().Create(&guest).Error)
	require.NoError(t, s.DB().Create(&staff).Error)

	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/1", P256DH: "k1", Auth: "a1", ClientID: guest.ID}))
	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/1", P256DH: "k2", Auth: "a2", ClientID: guest.ID}))
	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/2", P256DH: "k3", Auth: "a3", ClientID: staff.ID}))

	sub, err := s.GetSubscription(ctx, "https://push/1")
	require.NoError(t, err)
	assert.Equal(t, "k2", sub.P256DH)

	staffIDs, err := s.StaffClientIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{staff.ID}, staffIDs)

	subs, err := s.SubscriptionsForClients(ctx, []int64{guest.ID, staff.ID})
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	require.NoError(t, s.DeleteSubscription(ctx, "https://push/1"))
	_, err = s.GetSubscription(ctx, "https://push/1")
	assert.ErrorIs(t, err, ErrNotFound)

	none, err := s.SubscriptionsForClients(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
