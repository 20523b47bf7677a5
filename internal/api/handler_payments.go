package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-reservation-backend/internal/parse"
	"hotel-reservation-backend/internal/reservation"
)

// PaymentSuccess handles the provider's success redirect. The redirect carries
// no client identity; the token query parameter ties it to the checkout.
func (h *Handler) PaymentSuccess(c *gin.Context) {
	id, err := parse.ID(c.Param("reservation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}

	r, err := h.svc.OnPaymentSuccess(c.Request.Context(), id, c.Query(reservation.TokenParam))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(*r))
}

// PaymentCancel handles the provider's cancel redirect.
func (h *Handler) PaymentCancel(c *gin.Context) {
	id, err := parse.ID(c.Param("reservation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}

	r, err := h.svc.OnPaymentCancel(c.Request.Context(), id, c.Query(reservation.TokenParam))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(*r))
}
