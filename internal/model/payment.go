package model

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentStatus is the state of the checkout for a reservation.
type PaymentStatus string

const (
	PaymentProcessing PaymentStatus = "P"
	PaymentFinalized  PaymentStatus = "F"
	PaymentCancelled  PaymentStatus = "C"
)

// Payment is the server-side record of a checkout session. There is at most
// one per reservation and its amount must match the reservation amount.
type Payment struct {
	ID              int64         `gorm:"primaryKey"`
	ReservationID   int64         `gorm:"uniqueIndex;not null"`
	Status          PaymentStatus `gorm:"size:1;not null"`
	AmountCents     int64         `gorm:"not null"`
	Provider        string        `gorm:"size:32"`
	ExternalRef     string        `gorm:"size:64;index"`
	CheckoutURL     string        `gorm:"size:512"`
	ProviderPayload datatypes.JSON
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Reservation *Reservation `gorm:"constraint:OnDelete:CASCADE"`
}
