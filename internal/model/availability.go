package model

import (
	"time"

	"github.com/cockroachdb/errors"

	"venue-booking-backend/internal/interval"
)

// AvailabilityBlock is an administrative hold on the venue. It may span
// several days; hourly blocks repeat their time range on each covered day.
type AvailabilityBlock struct {
	ID        string      `gorm:"primaryKey;size:36" json:"id"`
	BookingID *string     `gorm:"size:36;index" json:"bookingId,omitempty"`
	BlockType BookingType `gorm:"size:16;not null" json:"blockType"`
	StartDate string      `gorm:"size:10;not null;index" json:"startDate"`
	EndDate   string      `gorm:"size:10;not null;index" json:"endDate"`
	StartTime string      `gorm:"size:8" json:"startTime,omitempty"`
	EndTime   string      `gorm:"size:8" json:"endTime,omitempty"`
	Reason    string      `gorm:"size:256" json:"reason"`
	CreatedAt time.Time   `json:"createdAt"`
}

// DateLock is a row per event date that booking inserts lock before
// re-checking availability, so two inserts for one date run one after the other.
type DateLock struct {
	EventDate string    `gorm:"primaryKey;size:10"`
	CreatedAt time.Time
}

// Validate checks that the span is ordered and hourly blocks carry a time range.
func (b *AvailabilityBlock) Validate() error {
	if !b.BlockType.Valid() {
		return errors.Newf("unknown block type %q", b.BlockType)
	}
	if _, _, err := parseSpan(b.StartDate, b.EndDate); err != nil {
		return err
	}
	if b.BlockType == BookingTypeHourly {
		s, err := interval.ParseTimeOfDay(b.StartTime)
		if err != nil {
			return err
		}
		e, err := interval.ParseTimeOfDay(b.EndTime)
		if err != nil {
			return err
		}
		if s >= e {
			return errors.Newf("block start time %s must be before end time %s", b.StartTime, b.EndTime)
		}
	}
	return nil
}

// BlackoutDate makes every date in its span unbookable.
type BlackoutDate struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	StartDate string    `gorm:"size:10;not null;index" json:"startDate"`
	EndDate   string    `gorm:"size:10;not null;index" json:"endDate"`
	Reason    string    `gorm:"size:256" json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

func (b *BlackoutDate) Validate() error {
	_, _, err := parseSpan(b.StartDate, b.EndDate)
	return err
}

func parseSpan(rawStart, rawEnd string) (interval.Date, interval.Date, error) {
	start, err := interval.ParseDate(rawStart)
	if err != nil {
		return interval.Date{}, interval.Date{}, err
	}
	end, err := interval.ParseDate(rawEnd)
	if err != nil {
		return interval.Date{}, interval.Date{}, err
	}
	if end.Before(start) {
		return interval.Date{}, interval.Date{}, errors.Newf("span end %s is before start %s", rawEnd, rawStart)
	}
	return start, end, nil
}
