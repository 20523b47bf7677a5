package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-reservation-backend/internal/mw"
	"hotel-reservation-backend/internal/parse"
	"hotel-reservation-backend/internal/reservation"
)

type bookingRequest struct {
	CheckIn     string `json:"checkin" binding:"required"`
	CheckOut    string `json:"checkout" binding:"required"`
	Observation string `json:"observation" binding:"max=100"`
}

// bindBooking reads the request body and room path parameter. It writes the
// error response itself and reports whether the handler may continue.
func bindBooking(c *gin.Context) (reservation.BookingRequest, bool) {
	roomID, err := parse.ID(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return reservation.BookingRequest{}, false
	}

	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return reservation.BookingRequest{}, false
	}
	in, out, err := parse.Stay(req.CheckIn, req.CheckOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return reservation.BookingRequest{}, false
	}

	return reservation.BookingRequest{
		ClientID:    mw.CurrentClient(c).ID,
		RoomID:      roomID,
		CheckIn:     in,
		CheckOut:    out,
		Observation: req.Observation,
	}, true
}

func (h *Handler) callbackURLs(reservationID int64) reservation.CallbackURLs {
	return reservation.CallbackURLs{
		Success: fmt.Sprintf("%s/api/payments/%d/success", h.baseURL, reservationID),
		Cancel:  fmt.Sprintf("%s/api/payments/%d/cancel", h.baseURL, reservationID),
	}
}

// CreateReservation handles POST /api/rooms/{room_id}/reservations.
func (h *Handler) CreateReservation(c *gin.Context) {
	req, ok := bindBooking(c)
	if !ok {
		return
	}

	r, err := h.svc.CreateReservation(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReservationResponse(*r))
}

// ScheduleStay handles POST /api/rooms/{room_id}/schedules. It books a
// future stay on an occupied room and opens the payment right away.
func (h *Handler) ScheduleStay(c *gin.Context) {
	req, ok := bindBooking(c)
	if !ok {
		return
	}

	link, err := h.svc.ScheduleFutureStay(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := h.svc.OpenPayment(c.Request.Context(), link.ReservationID, h.callbackURLs(link.ReservationID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"scheduling_id": link.ID,
		"reservation":   newReservationResponse(*link.Reservation),
		"redirect_url":  url,
	})
}

// Checkout handles POST /api/reservations/{reservation_id}/checkout.
func (h *Handler) Checkout(c *gin.Context) {
	id, err := parse.ID(c.Param("reservation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}
	if _, err := h.svc.GetReservationFor(c.Request.Context(), id, mw.CurrentClient(c)); err != nil {
		respondError(c, err)
		return
	}

	url, err := h.svc.OpenPayment(c.Request.Context(), id, h.callbackURLs(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect_url": url})
}

// ListReservations handles GET /api/reservations for the calling client.
func (h *Handler) ListReservations(c *gin.Context) {
	list, err := h.svc.ClientReservations(c.Request.Context(), mw.CurrentClient(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]reservationResponse, 0, len(list))
	for _, r := range list {
		response = append(response, newReservationResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// GetReservation handles GET /api/reservations/{reservation_id}.
func (h *Handler) GetReservation(c *gin.Context) {
	id, err := parse.ID(c.Param("reservation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}

	r, err := h.svc.GetReservationFor(c.Request.Context(), id, mw.CurrentClient(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(*r))
}
