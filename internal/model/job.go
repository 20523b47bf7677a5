package model

import "time"

// Job kinds executed by the deferred job runner.
const (
	JobReleaseHold         = "release_hold"
	JobActivateReservation = "activate_reservation"
)

// Job states.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// ScheduledJob is a durable one-shot action. Name is unique so arming the
// same job twice is a no-op.
type ScheduledJob struct {
	ID            int64     `gorm:"primaryKey"`
	Name          string    `gorm:"uniqueIndex;size:128;not null"`
	Kind          string    `gorm:"size:32;not null"`
	ReservationID int64     `gorm:"index;not null"`
	RunAt         time.Time `gorm:"index;not null"`
	Status        string    `gorm:"size:16;index;not null"`
	Attempts      int       `gorm:"not null"`
	LastError     string    `gorm:"size:512"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
