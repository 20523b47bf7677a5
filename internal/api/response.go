package api

import (
	"time"

	"hotel-reservation-backend/internal/availability"
	"hotel-reservation-backend/internal/model"
	"hotel-reservation-backend/internal/parse"
	"hotel-reservation-backend/internal/reservation"
)

type roomResponse struct {
	ID               int64    `json:"id"`
	Number           string   `json:"number"`
	Class            string   `json:"class,omitempty"`
	AdultCapacity    int      `json:"adult_capacity"`
	ChildCapacity    int      `json:"child_capacity"`
	Size             int      `json:"size"`
	DailyPrice       float64  `json:"daily_price"`
	Available        bool     `json:"available"`
	ShortDescription string   `json:"short_description,omitempty"`
	Description      string   `json:"description,omitempty"`
	ImagePath        string   `json:"image_path,omitempty"`
	Benefits         []string `json:"benefits"`
}

func newRoomResponse(r model.Room) roomResponse {
	resp := roomResponse{
		ID:               r.ID,
		Number:           r.Number,
		AdultCapacity:    r.AdultCapacity,
		ChildCapacity:    r.ChildCapacity,
		Size:             r.Size,
		DailyPrice:       float64(r.DailyPriceCents) / 100,
		Available:        r.Available,
		ShortDescription: r.ShortDescription,
		Description:      r.Description,
		ImagePath:        r.ImagePath,
		Benefits:         make([]string, 0, len(r.Benefits)),
	}
	if r.Class != nil {
		resp.Class = r.Class.Name
	}
	for _, b := range r.Benefits {
		resp.Benefits = append(resp.Benefits, b.Name)
	}
	return resp
}

type gapResponse struct {
	From string  `json:"from"`
	To   *string `json:"to"`
}

type roomDetailResponse struct {
	roomResponse
	FreeDates string        `json:"free_dates"`
	Gaps      []gapResponse `json:"gaps"`
}

func newRoomDetailResponse(d *reservation.RoomDetail) roomDetailResponse {
	resp := roomDetailResponse{
		roomResponse: newRoomResponse(d.Room),
		FreeDates:    d.FreeDates,
		Gaps:         make([]gapResponse, 0, len(d.Gaps)),
	}
	for _, g := range d.Gaps {
		gap := gapResponse{From: g.From.Format(parse.DateLayout)}
		if g.To != nil {
			to := g.To.Format(parse.DateLayout)
			gap.To = &to
		}
		resp.Gaps = append(resp.Gaps, gap)
	}
	return resp
}

type reservationResponse struct {
	ID          int64     `json:"id"`
	RoomID      *int64    `json:"room_id"`
	RoomNumber  string    `json:"room_number"`
	CheckIn     string    `json:"checkin"`
	CheckOut    string    `json:"checkout"`
	Nights      int       `json:"nights"`
	DailyPrice  float64   `json:"daily_price"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	Active      bool      `json:"active"`
	Observation string    `json:"observation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newReservationResponse(r model.Reservation) reservationResponse {
	return reservationResponse{
		ID:          r.ID,
		RoomID:      r.RoomID,
		RoomNumber:  r.RoomNumber,
		CheckIn:     r.CheckIn.UTC().Format(parse.DateLayout),
		CheckOut:    r.CheckOut.UTC().Format(parse.DateLayout),
		Nights:      availability.StayOf(r).Nights(),
		DailyPrice:  float64(r.DailyPriceCents) / 100,
		Amount:      float64(r.AmountCents) / 100,
		Status:      string(r.Status),
		Active:      r.Active,
		Observation: r.Observation,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}
