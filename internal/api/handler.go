package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"hotel-reservation-backend/internal/payment"
	"hotel-reservation-backend/internal/reservation"
	"hotel-reservation-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *reservation.Service
	store   store.Store
	webpush *webpush.Options
	baseURL string
}

// NewHandler creates a new API handler.
func NewHandler(svc *reservation.Service, s store.Store, webpushOptions *webpush.Options, baseURL string) *Handler {
	return &Handler{
		svc:     svc,
		store:   s,
		webpush: webpushOptions,
		baseURL: baseURL,
	}
}

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	var verr *reservation.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      verr.Violations.First().Message,
			"fields":     verr.Violations.Map(),
			"violations": verr.Violations.All(),
		})
	case errors.Is(err, reservation.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, reservation.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
	case errors.Is(err, reservation.ErrForbidden), errors.Is(err, reservation.ErrPaymentToken):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, reservation.ErrHoldExpired):
		c.JSON(http.StatusConflict, gin.H{"error": "reservation hold has expired, please book again"})
	case errors.Is(err, reservation.ErrInvalidTransition), errors.Is(err, reservation.ErrPaymentAmountMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrTransient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable, try again"})
	case errors.Is(err, payment.ErrGatewayUnavailable):
		log.Printf("[api] payment gateway error: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
	default:
		log.Printf("[api] internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
