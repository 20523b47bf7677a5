package model

import "time"

// Client is a hotel guest. Staff clients also receive operational notifications.
type Client struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;size:150;not null"`
	FirstName string `gorm:"size:150"`
	LastName  string `gorm:"size:150"`
	Email     string `gorm:"size:254"`
	Phone     string `gorm:"size:20"`
	IsStaff   bool   `gorm:"not null"`
	CreatedAt time.Time
}
