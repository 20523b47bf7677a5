package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hotel-reservation-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Publish(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, store.NewGormStore(db), &webpush.Options{})

	wp.Publish(context.Background(), Event{Kind: KindReservationConfirmed, ReservationID: 123})

	select {
	case evt := <-wp.Jobs():
		assert.Equal(t, int64(123), evt.ReservationID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for event to be queued")
	}
}

func TestWorkerPool_PublishGivesUpWhenFull(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, store.NewGormStore(db), &webpush.Options{})
	for i := 0; i < cap(wp.Jobs()); i++ {
		wp.Publish(context.Background(), Event{ReservationID: int64(i)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		wp.Publish(ctx, Event{ReservationID: 99})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("publish blocked on a cancelled context")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, store.NewGormStore(gormDB), &webpush.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification to every recipient subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)

		var mu sync.Mutex
		var endpoints []string
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				var body pushPayload
				assert.NoError(t, json.Unmarshal(payload, &body))
				assert.Equal(t, "Reservation confirmed", body.Title)
				assert.Equal(t, int64(7), body.ReservationID)
				mu.Lock()
				endpoints = append(endpoints, sub.Endpoint)
				mu.Unlock()
				return response(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE client_id IN \(\$1,\$2\)`).
			WithArgs(int64(1), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "client_id", "created_at"}).
				AddRow("https://example.com/guest", "k1", "a1", 1, time.Now()).
				AddRow("https://example.com/staff", "k2", "a2", 2, time.Now()))

		wp.Publish(ctx, Event{
			Kind:          KindReservationConfirmed,
			ReservationID: 7,
			Subject:       "Reservation confirmed",
			ClientIDs:     []int64{1, 2},
		})
		wg.Wait()
		assert.ElementsMatch(t, []string{"https://example.com/guest", "https://example.com/staff"}, endpoints)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE client_id IN \(\$1\)`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "client_id", "created_at"}).
				AddRow("https://example.com/expired", "k3", "a3", 3, time.Now()))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Publish(ctx, Event{Kind: KindReservationFinished, ReservationID: 8, ClientIDs: []int64{3}})

		// A short sleep to allow the worker to process the job
		time.Sleep(100 * time.Millisecond)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

type recordingPublisher struct {
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt Event) {
	p.events = append(p.events, evt)
}

func TestMulti(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	Multi{a, nil, b}.Publish(context.Background(), Event{Kind: KindReservationCancelled, ReservationID: 5})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, int64(5), b.events[0].ReservationID)
}
