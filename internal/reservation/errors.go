package reservation

import "errors"

var (
	ErrNotFound              = errors.New("reservation not found")
	ErrRoomNotFound          = errors.New("room not found")
	ErrForbidden             = errors.New("reservation belongs to another client")
	ErrInvalidTransition     = errors.New("invalid reservation status transition")
	ErrHoldExpired           = errors.New("reservation hold has expired")
	ErrPaymentAmountMismatch = errors.New("payment amount does not match reservation amount")
	ErrPaymentToken          = errors.New("payment callback token does not match")
	ErrTooEarly              = errors.New("scheduled stay has not started yet")
)
