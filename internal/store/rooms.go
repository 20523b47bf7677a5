package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-reservation-backend/internal/availability"
	"hotel-reservation-backend/internal/model"
)

func (s *gormStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).Preload("Class").Preload("Benefits").Order("number").Find(&rooms).Error; err != nil {
		return nil, translate(err)
	}
	return rooms, nil
}

func (s *gormStore) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).Preload("Class").Preload("Benefits").First(&room, id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (s *gormStore) LockRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

// RefreshRoomAvailability recomputes the stored flag from the reservation
// set: a room is available iff it has no active or processing reservation.
func (s *gormStore) RefreshRoomAvailability(ctx context.Context, roomID int64) (bool, error) {
	var occupying int64
	if err := s.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("room_id = ? AND status IN ?", roomID, statusValues(availability.Occupying)).
		Count(&occupying).Error; err != nil {
		return false, translate(err)
	}

	available := occupying == 0
	if err := s.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ?", roomID).
		Update("available", available).Error; err != nil {
		return false, translate(err)
	}
	return available, nil
}

// Catalog is the declared set of room classes, benefits and rooms.
type Catalog struct {
	Classes  []model.RoomClass
	Benefits []model.Benefit
	Rooms    []CatalogRoom
}

// CatalogRoom is a room plus the names of its class and benefits.
type CatalogRoom struct {
	Room         model.Room
	ClassName    string
	BenefitNames []string
}

// UpsertCatalog writes the catalog in one transaction. Existing rooms keep
// their availability flag.
func (s *gormStore) UpsertCatalog(ctx context.Context, c Catalog) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(c.Classes) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
			}).Create(&c.Classes).Error; err != nil {
				return fmt.Errorf("upsert room classes failed: %w", err)
			}
		}
		if len(c.Benefits) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"short_description", "displayable_on_homepage", "updated_at"}),
			}).Create(&c.Benefits).Error; err != nil {
				return fmt.Errorf("upsert benefits failed: %w", err)
			}
		}

		classes, err := classesByName(tx)
		if err != nil {
			return err
		}
		benefits, err := benefitsByName(tx)
		if err != nil {
			return err
		}

		for _, entry := range c.Rooms {
			room := entry.Room
			room.Class = nil
			room.Benefits = nil
			if class, ok := classes[entry.ClassName]; ok {
				id := class.ID
				room.ClassID = &id
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "number"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"class_id", "adult_capacity", "child_capacity", "size", "daily_price_cents",
					"short_description", "description", "image_path", "updated_at",
				}),
			}).Create(&room).Error; err != nil {
				return fmt.Errorf("upsert room %s failed: %w", room.Number, err)
			}

			var stored model.Room
			if err := tx.Where("number = ?", room.Number).First(&stored).Error; err != nil {
				return fmt.Errorf("reload room %s failed: %w", room.Number, err)
			}

			linked := make([]model.Benefit, 0, len(entry.BenefitNames))
			for _, name := range entry.BenefitNames {
				if b, ok := benefits[name]; ok {
					linked = append(linked, b)
				}
			}
			if err := tx.Model(&stored).Association("Benefits").Replace(linked); err != nil {
				return fmt.Errorf("link benefits for room %s failed: %w", room.Number, err)
			}
		}
		return nil
	})
	return translate(err)
}

func classesByName(tx *gorm.DB) (map[string]model.RoomClass, error) {
	var all []model.RoomClass
	if err := tx.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve room classes: %w", err)
	}
	out := make(map[string]model.RoomClass, len(all))
	for _, c := range all {
		out[c.Name] = c
	}
	return out, nil
}

func benefitsByName(tx *gorm.DB) (map[string]model.Benefit, error) {
	var all []model.Benefit
	if err := tx.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve benefits: %w", err)
	}
	out := make(map[string]model.Benefit, len(all))
	for _, b := range all {
		out[b.Name] = b
	}
	return out, nil
}
