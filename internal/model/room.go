package model

import "time"

// RoomClass groups rooms into a commercial category.
type RoomClass struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:30;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Benefit is an amenity offered with a room.
type Benefit struct {
	ID                    int64  `gorm:"primaryKey"`
	Name                  string `gorm:"uniqueIndex;size:20;not null"`
	ShortDescription      string `gorm:"size:50"`
	DisplayableOnHomepage bool   `gorm:"not null"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Room is a bookable hotel room. Available is derived from the reservation
// set and is only written by the reservation lifecycle.
type Room struct {
	ID               int64  `gorm:"primaryKey"`
	Number           string `gorm:"uniqueIndex;size:4;not null"`
	ClassID          *int64 `gorm:"index"`
	AdultCapacity    int    `gorm:"not null"`
	ChildCapacity    int    `gorm:"not null"`
	Size             int    `gorm:"not null"`
	DailyPriceCents  int64  `gorm:"not null"`
	Available        bool   `gorm:"not null"`
	ShortDescription string `gorm:"size:50"`
	Description      string `gorm:"type:text"`
	ImagePath        string `gorm:"size:256"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Associations
	Class    *RoomClass `gorm:"constraint:OnDelete:SET NULL"`
	Benefits []Benefit  `gorm:"many2many:room_benefits;"`
}
