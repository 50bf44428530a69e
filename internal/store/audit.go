package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"venue-booking-backend/internal/model"
)

func (s *gormStore) AppendEvent(ctx context.Context, ev *model.BookingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return errors.Wrapf(err, "failed to append %s event for booking %s", ev.EventType, ev.BookingID)
	}
	return nil
}

func (s *gormStore) EventsForBooking(ctx context.Context, bookingID string) ([]model.BookingEvent, error) {
	var events []model.BookingEvent
	if err := s.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list events for booking %s", bookingID)
	}
	return events, nil
}

// SaveStaffSubscription creates or refreshes a staff push subscription keyed by endpoint.
func (s *gormStore) SaveStaffSubscription(ctx context.Context, sub *model.StaffSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "label"}),
	}).Create(sub).Error
	if err != nil {
		return errors.Wrap(err, "failed to save staff subscription")
	}
	return nil
}

func (s *gormStore) DeleteStaffSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.StaffSubscription{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete staff subscription")
	}
	return nil
}

func (s *gormStore) StaffSubscriptions(ctx context.Context) ([]model.StaffSubscription, error) {
	var subs []model.StaffSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list staff subscriptions")
	}
	return subs, nil
}
