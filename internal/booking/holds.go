package booking

import (
	"context"

	"github.com/cockroachdb/errors"

	"venue-booking-backend/internal/interval"
	"venue-booking-backend/internal/model"
	"venue-booking-backend/internal/store"
)

// maxCalendarDays bounds a single calendar query.
const maxCalendarDays = 366

// CreateBlock validates and stores an administrative hold. Existing bookings
// are not checked: staff may deliberately overbook a hold.
func (s *Service) CreateBlock(ctx context.Context, b *model.AvailabilityBlock) error {
	if b.BlockType == model.BookingTypeDaily {
		b.StartTime, b.EndTime = "", ""
	}
	if err := b.Validate(); err != nil {
		return errors.Mark(err, ErrValidation)
	}
	return s.store.CreateBlock(ctx, b)
}

func (s *Service) DeleteBlock(ctx context.Context, id string) error {
	return s.store.DeleteBlock(ctx, id)
}

func (s *Service) CreateBlackout(ctx context.Context, b *model.BlackoutDate) error {
	if err := b.Validate(); err != nil {
		return errors.Mark(err, ErrValidation)
	}
	return s.store.CreateBlackout(ctx, b)
}

func (s *Service) DeleteBlackout(ctx context.Context, id string) error {
	return s.store.DeleteBlackout(ctx, id)
}

// Calendar returns every occupant in the inclusive range.
func (s *Service) Calendar(ctx context.Context, from, to string) (store.Occupants, error) {
	start, err := interval.ParseDate(from)
	if err != nil {
		return store.Occupants{}, errors.Mark(err, ErrValidation)
	}
	end, err := interval.ParseDate(to)
	if err != nil {
		return store.Occupants{}, errors.Mark(err, ErrValidation)
	}
	if end.Before(start) {
		return store.Occupants{}, errors.Mark(errors.Newf("calendar end %s is before start %s", to, from), ErrValidation)
	}
	if interval.DaysUntil(start, end) > maxCalendarDays {
		return store.Occupants{}, errors.Mark(errors.Newf("calendar range exceeds %d days", maxCalendarDays), ErrValidation)
	}
	return s.store.Calendar(ctx, start.String(), end.String())
}
