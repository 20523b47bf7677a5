package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-reservation-backend/config"
	"hotel-reservation-backend/internal/db"
	"hotel-reservation-backend/internal/model"
	"hotel-reservation-backend/internal/mw"
	"hotel-reservation-backend/internal/payment"
	"hotel-reservation-backend/internal/reservation"
	"hotel-reservation-backend/internal/store"
)

type staticClock time.Time

func (c staticClock) Now() time.Time { return time.Time(c) }

type testServer struct {
	router *gin.Engine
	store  store.Store
	room   model.Room
	guest  model.Client
	other  model.Client
}

func setupServer(t *testing.T, webpushOptions *webpush.Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + name + "?mode=memory&cache=shared", LogLevel: "silent"})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	ts := &testServer{
		store: store.NewGormStore(gdb),
		room:  model.Room{Number: "101", AdultCapacity: 2, Size: 18, DailyPriceCents: 10000, Available: true},
		guest: model.Client{Username: "guest"},
		other: model.Client{Username: "other"},
	}
	require.NoError(t, gdb.Create(&ts.room).Error)
	require.NoError(t, gdb.Create(&ts.guest).Error)
	require.NoError(t, gdb.Create(&ts.other).Error)

	clock := staticClock(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC))
	svc := reservation.NewService(ts.store, payment.NewMockGateway(), nil, clock, reservation.DefaultPolicy())
	ts.router = NewRouter(&config.ServerConfig{
		PublicBaseURL:   "http://test",
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 30,
	}, svc, ts.store, webpushOptions)
	return ts
}

func (ts *testServer) do(method, path string, client *model.Client, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if client != nil {
		req.Header.Set(mw.ClientHeader, fmt.Sprint(client.ID))
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// token reads the callback token the checkout handed to the provider.
func (ts *testServer) token(t *testing.T, id int64) string {
	t.Helper()
	p, err := ts.store.GetPayment(context.Background(), id)
	require.NoError(t, err)
	return p.ExternalRef
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts *testServer) book(t *testing.T, client *model.Client, in, out string) map[string]any {
	t.Helper()
	w := ts.do(http.MethodPost, fmt.Sprintf("/api/rooms/%d/reservations", ts.room.ID), client, gin.H{"checkin": in, "checkout": out})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func TestBookingFlow(t *testing.T) {
	ts := setupServer(t, nil)

	created := ts.book(t, &ts.guest, "2026-10-15", "2026-10-18")
	assert.Equal(t, "I", created["status"])
	assert.Equal(t, 300.0, created["amount"])
	assert.Equal(t, 3.0, created["nights"])
	id := int64(created["id"].(float64))

	w := ts.do(http.MethodPost, fmt.Sprintf("/api/reservations/%d/checkout", id), &ts.guest, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	redirect := decode(t, w)["redirect_url"].(string)
	token := ts.token(t, id)
	assert.Equal(t, fmt.Sprintf("http://test/api/payments/%d/success?token=%s", id, token), redirect)

	w = ts.do(http.MethodGet, strings.TrimPrefix(redirect, "http://test"), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "A", decode(t, w)["status"])

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/rooms/%d", ts.room.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	room := decode(t, w)
	assert.Equal(t, false, room["available"])
	assert.Equal(t, "18/10/2026 onward", room["free_dates"])

	w = ts.do(http.MethodGet, "/api/reservations", &ts.guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2026-10-15", list[0]["checkin"])
}

func TestPaymentCancelFlow(t *testing.T) {
	ts := setupServer(t, nil)
	id := int64(ts.book(t, &ts.guest, "2026-10-15", "2026-10-18")["id"].(float64))

	w := ts.do(http.MethodPost, fmt.Sprintf("/api/reservations/%d/checkout", id), &ts.guest, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/payments/%d/cancel?token=%s", id, ts.token(t, id)), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C", decode(t, w)["status"])

	w = ts.do(http.MethodPost, fmt.Sprintf("/api/reservations/%d/checkout", id), &ts.guest, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "a cancelled reservation cannot be paid")
}

func TestPaymentCallbacks_RejectForgedRequests(t *testing.T) {
	ts := setupServer(t, nil)
	id := int64(ts.book(t, &ts.guest, "2026-10-15", "2026-10-18")["id"].(float64))

	w := ts.do(http.MethodPost, fmt.Sprintf("/api/reservations/%d/checkout", id), &ts.guest, nil)
	require.Equal(t, http.StatusOK, w.Code)

	testCases := []struct {
		name   string
		path   string
		client *model.Client
	}{
		{"Anonymous success without token", fmt.Sprintf("/api/payments/%d/success", id), nil},
		{"Success with a guessed token", fmt.Sprintf("/api/payments/%d/success?token=guess", id), nil},
		{"Another client cancels without token", fmt.Sprintf("/api/payments/%d/cancel", id), &ts.other},
		{"Another client cancels with a guessed token", fmt.Sprintf("/api/payments/%d/cancel?token=guess", id), &ts.other},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(http.MethodGet, tc.path, tc.client, nil)
			assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
		})
	}

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/reservations/%d", id), &ts.guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "P", body["status"])
	assert.Equal(t, false, body["active"])
}

func TestCreateReservation_Errors(t *testing.T) {
	ts := setupServer(t, nil)
	path := fmt.Sprintf("/api/rooms/%d/reservations", ts.room.ID)

	w := ts.do(http.MethodPost, path, &ts.guest, gin.H{"checkin": "2026-10-01", "checkout": "2026-10-03"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "check-in date cannot be in the past", body["error"])
	assert.Contains(t, body["fields"], "checkin")

	w = ts.do(http.MethodPost, path, &ts.guest, gin.H{"checkin": "2026-10-20", "checkout": "2026-10-18"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "checkout must be after checkin", decode(t, w)["error"])

	w = ts.do(http.MethodPost, path, &ts.guest, gin.H{"checkin": "2026-10-20"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/rooms/999/reservations", &ts.guest, gin.H{"checkin": "2026-10-20", "checkout": "2026-10-22"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/api/rooms/abc/reservations", &ts.guest, gin.H{"checkin": "2026-10-20", "checkout": "2026-10-22"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, path, nil, gin.H{"checkin": "2026-10-20", "checkout": "2026-10-22"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetReservation_Ownership(t *testing.T) {
	ts := setupServer(t, nil)
	id := int64(ts.book(t, &ts.guest, "2026-10-15", "2026-10-18")["id"].(float64))
	path := fmt.Sprintf("/api/reservations/%d", id)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, path, &ts.guest, nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, path, &ts.other, nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodPost, path+"/checkout", &ts.other, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/reservations/999", &ts.guest, nil).Code)
}

func TestScheduleStay_RequiresOccupiedRoom(t *testing.T) {
	ts := setupServer(t, nil)

	w := ts.do(http.MethodPost, fmt.Sprintf("/api/rooms/%d/schedules", ts.room.ID), &ts.guest, gin.H{"checkin": "2026-10-20", "checkout": "2026-10-22"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "cannot schedule a room that is not occupied", decode(t, w)["error"])
}

func TestListRooms(t *testing.T) {
	ts := setupServer(t, nil)

	w := ts.do(http.MethodGet, "/api/rooms", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "101", rooms[0]["number"])
	assert.Equal(t, 100.0, rooms[0]["daily_price"])
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = ts.do(http.MethodGet, "/api/rooms?available=false", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/rooms?available=maybe", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Taking the room through checkout flushes the cached listings.
	id := int64(ts.book(t, &ts.guest, "2026-10-15", "2026-10-18")["id"].(float64))
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, fmt.Sprintf("/api/reservations/%d/checkout", id), &ts.guest, nil).Code)

	w = ts.do(http.MethodGet, "/api/rooms?available=false&page=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, false, rooms[0]["available"])

	w = ts.do(http.MethodGet, "/api/rooms?available=false", nil, nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}

func TestSubscriptions(t *testing.T) {
	ts := setupServer(t, nil)

	w := ts.do(http.MethodPut, "/api/subscriptions", &ts.guest, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	sub := gin.H{"endpoint": "https://push.example/abc", "p256dh": "key", "auth": "secret"}
	assert.Equal(t, http.StatusCreated, ts.do(http.MethodPut, "/api/subscriptions", &ts.guest, sub).Code)

	w = ts.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", &ts.guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://push.example/abc", decode(t, w)["endpoint"])

	w = ts.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", &ts.other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/api/subscriptions", &ts.guest, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodDelete, "/api/subscriptions", &ts.guest, gin.H{"endpoint": "https://push.example/abc"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", &ts.guest, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	t.Run("Configured", func(t *testing.T) {
		ts := setupServer(t, &webpush.Options{VAPIDPublicKey: "BPub"})
		w := ts.do(http.MethodGet, "/api/vapid_public_key", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"public_key":"BPub"}`, w.Body.String())
	})

	t.Run("Missing keys", func(t *testing.T) {
		ts := setupServer(t, nil)
		w := ts.do(http.MethodGet, "/api/vapid_public_key", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
