package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hotel-reservation-backend/internal/parse"
)

// ListRooms handles GET /api/rooms. ?available=true|false filters on the
// room's current availability.
func (h *Handler) ListRooms(c *gin.Context) {
	var onlyAvailable *bool
	if raw, ok := c.GetQuery("available"); ok {
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "available must be true or false"})
			return
		}
		onlyAvailable = &v
	}

	rooms, err := h.svc.ListRooms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		if onlyAvailable != nil && r.Available != *onlyAvailable {
			continue
		}
		response = append(response, newRoomResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// GetRoom handles GET /api/rooms/{room_id}. The free dates are advisory.
func (h *Handler) GetRoom(c *gin.Context) {
	roomID, err := parse.ID(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	detail, err := h.svc.RoomDetail(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRoomDetailResponse(detail))
}
