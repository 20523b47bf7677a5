package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusInitiated  ReservationStatus = "I"
	StatusProcessing ReservationStatus = "P"
	StatusActive     ReservationStatus = "A"
	StatusScheduled  ReservationStatus = "S"
	StatusCancelled  ReservationStatus = "C"
	StatusFinalized  ReservationStatus = "F"
)

// Reservation is a stay over the half-open date interval [CheckIn, CheckOut).
// Dates are stored as UTC midnight. RoomNumber and DailyPriceCents are a
// snapshot taken at booking time so history survives room edits and deletes.
type Reservation struct {
	ID              int64             `gorm:"primaryKey"`
	ClientID        *int64            `gorm:"index"`
	RoomID          *int64            `gorm:"index"`
	RoomNumber      string            `gorm:"size:4"`
	DailyPriceCents int64             `gorm:"not null"`
	CheckIn         time.Time         `gorm:"type:date;not null"`
	CheckOut        time.Time         `gorm:"type:date;not null"`
	Observation     string            `gorm:"size:100"`
	AmountCents     int64             `gorm:"not null"`
	Active          bool              `gorm:"not null;index"`
	Status          ReservationStatus `gorm:"size:1;not null;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Associations
	Client *Client `gorm:"constraint:OnDelete:SET NULL"`
	Room   *Room   `gorm:"constraint:OnDelete:SET NULL"`
}

// Nights returns the number of nights covered by the stay.
func (r Reservation) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// OwnedBy reports whether the reservation belongs to the given client.
func (r Reservation) OwnedBy(clientID int64) bool {
	return r.ClientID != nil && *r.ClientID == clientID
}

// Scheduling links a client to a future stay booked on a room that is
// occupied by another guest at booking time.
type Scheduling struct {
	ID            int64  `gorm:"primaryKey"`
	ClientID      *int64 `gorm:"index"`
	ReservationID int64  `gorm:"uniqueIndex;not null"`
	CreatedAt     time.Time

	Reservation *Reservation `gorm:"constraint:OnDelete:CASCADE"`
}
