package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hotel-reservation-backend/config"
	"hotel-reservation-backend/internal/mw"
	"hotel-reservation-backend/internal/reservation"
	"hotel-reservation-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, svc *reservation.Service, s store.Store, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()
	if cfg.RequestIPHeader != "" {
		r.TrustedPlatform = cfg.RequestIPHeader
	}

	handler := NewHandler(svc, s, webpushOptions, cfg.PublicBaseURL)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl, mw.QueryKey("available"))
	invalidate := mw.Invalidate(cacheStore)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/rooms", caching, handler.ListRooms)
		api.GET("/rooms/:room_id", caching, handler.GetRoom)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		// Provider redirects carry no client identity, only the payment token.
		api.GET("/payments/:reservation_id/success", invalidate, handler.PaymentSuccess)
		api.GET("/payments/:reservation_id/cancel", invalidate, handler.PaymentCancel)

		authed := api.Group("")
		authed.Use(mw.ClientIdentity(s))
		{
			authed.POST("/rooms/:room_id/reservations", invalidate, handler.CreateReservation)
			authed.POST("/rooms/:room_id/schedules", invalidate, handler.ScheduleStay)
			authed.POST("/reservations/:reservation_id/checkout", invalidate, handler.Checkout)
			authed.GET("/reservations", handler.ListReservations)
			authed.GET("/reservations/:reservation_id", handler.GetReservation)

			authed.GET("/subscriptions", handler.GetSubscription)
			authed.PUT("/subscriptions", handler.PutSubscription)
			authed.DELETE("/subscriptions", handler.DeleteSubscription)
		}
	}

	return r
}
