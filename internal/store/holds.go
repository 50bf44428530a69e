package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"venue-booking-backend/internal/model"
)

// Occupants loads every booking, block and blackout touching the given date.
// Cancelled bookings are left out.
func (s *gormStore) Occupants(ctx context.Context, date string) (Occupants, error) {
	return s.occupants(ctx, date, date)
}

// Calendar loads everything touching the inclusive range [fromDate, toDate].
func (s *gormStore) Calendar(ctx context.Context, fromDate, toDate string) (Occupants, error) {
	return s.occupants(ctx, fromDate, toDate)
}

func (s *gormStore) occupants(ctx context.Context, from, to string) (Occupants, error) {
	return occupantsIn(s.db.WithContext(ctx), from, to)
}

func occupantsIn(db *gorm.DB, from, to string) (Occupants, error) {
	var out Occupants

	if err := db.Where("event_date >= ? AND event_date <= ? AND lifecycle_status <> ?", from, to, model.LifecycleCancelled).
		Order("event_date ASC, start_time ASC").Find(&out.Bookings).Error; err != nil {
		return Occupants{}, errors.Wrap(err, "failed to load bookings")
	}
	if err := db.Where("start_date <= ? AND end_date >= ?", to, from).
		Order("start_date ASC").Find(&out.Blocks).Error; err != nil {
		return Occupants{}, errors.Wrap(err, "failed to load availability blocks")
	}
	if err := db.Where("start_date <= ? AND end_date >= ?", to, from).
		Order("start_date ASC").Find(&out.Blackouts).Error; err != nil {
		return Occupants{}, errors.Wrap(err, "failed to load blackout dates")
	}
	return out, nil
}

func (s *gormStore) CreateBlock(ctx context.Context, b *model.AvailabilityBlock) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return errors.Wrap(err, "failed to create availability block")
	}
	return nil
}

func (s *gormStore) DeleteBlock(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &model.AvailabilityBlock{}, "availability block", id)
}

// DeleteBlocksForBooking removes the holds owned by an internal booking.
func (s *gormStore) DeleteBlocksForBooking(ctx context.Context, bookingID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("booking_id = ?", bookingID).Delete(&model.AvailabilityBlock{})
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "failed to delete blocks for booking %s", bookingID)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) CreateBlackout(ctx context.Context, b *model.BlackoutDate) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return errors.Wrap(err, "failed to create blackout date")
	}
	return nil
}

func (s *gormStore) DeleteBlackout(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &model.BlackoutDate{}, "blackout date", id)
}

func deleteByID(db *gorm.DB, value any, what, id string) error {
	res := db.Where("id = ?", id).Delete(value)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to delete %s %s", what, id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "%s %s", what, id)
	}
	return nil
}
