package store

import (
	"context"

	"gorm.io/gorm/clause"

	"hotel-reservation-backend/internal/model"
)

// UpsertSubscription creates or replaces a push subscription keyed by endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "client_id"}),
	}).Create(sub).Error)
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return translate(s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error)
}

func (s *gormStore) SubscriptionsForClients(ctx context.Context, clientIDs []int64) ([]model.PushSubscription, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("client_id IN ?", clientIDs).Find(&subs).Error; err != nil {
		return nil, translate(err)
	}
	return subs, nil
}
