package model

import (
	"time"

	"github.com/cockroachdb/errors"

	"venue-booking-backend/internal/interval"
)

// Booking is one reservation of the venue.
type Booking struct {
	ID                    string          `gorm:"primaryKey;size:36" json:"id"`
	BookingType           BookingType     `gorm:"size:16;not null;index" json:"bookingType"`
	EventDate             string          `gorm:"size:10;not null;index" json:"eventDate"`
	StartTime             string          `gorm:"size:8;not null" json:"startTime"`
	EndTime               string          `gorm:"size:8;not null" json:"endTime"`
	PaymentStatus         PaymentStatus   `gorm:"size:32;not null" json:"paymentStatus"`
	LifecycleStatus       LifecycleStatus `gorm:"size:32;not null;index" json:"lifecycleStatus"`
	HostReportStep        HostReportStep  `gorm:"size:32" json:"hostReportStep"`
	GuestName             string          `gorm:"size:256" json:"guestName"`
	GuestEmail            string          `gorm:"size:256" json:"guestEmail"`
	Internal              bool            `gorm:"not null;default:false" json:"internal"`
	HostReportSubmittedAt *time.Time      `json:"hostReportSubmittedAt,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// Window is the parsed time window a booking occupies.
type Window struct {
	Type  BookingType
	Date  interval.Date
	Start interval.TimeOfDay
	End   interval.TimeOfDay
}

// Validate checks the window invariants. Daily bookings must carry the
// full-day sentinel, hourly bookings a non-empty range.
func (b *Booking) Validate() error {
	_, err := b.Window()
	return err
}

// Window parses the stored date and times.
func (b *Booking) Window() (Window, error) {
	if !b.BookingType.Valid() {
		return Window{}, errors.Newf("unknown booking type %q", b.BookingType)
	}
	if b.EventDate == "" {
		return Window{}, errors.New("event date is required")
	}
	date, err := interval.ParseDate(b.EventDate)
	if err != nil {
		return Window{}, err
	}
	w := Window{Type: b.BookingType, Date: date}

	if b.BookingType == BookingTypeDaily {
		if b.StartTime != interval.DayStart.String() || b.EndTime != interval.DayEnd.String() {
			return Window{}, errors.Newf("daily booking must span %s-%s, got %s-%s",
				interval.DayStart, interval.DayEnd, b.StartTime, b.EndTime)
		}
		w.Start, w.End = interval.DayStart, interval.DayEnd
		return w, nil
	}

	if b.StartTime == "" || b.EndTime == "" {
		return Window{}, errors.New("hourly booking requires start and end time")
	}
	if w.Start, err = interval.ParseTimeOfDay(b.StartTime); err != nil {
		return Window{}, err
	}
	if w.End, err = interval.ParseTimeOfDay(b.EndTime); err != nil {
		return Window{}, err
	}
	if w.Start >= w.End {
		return Window{}, errors.Newf("start time %s must be before end time %s", b.StartTime, b.EndTime)
	}
	return w, nil
}

// ApplyDailySentinel overwrites the times of a daily booking with the full-day range.
func (b *Booking) ApplyDailySentinel() {
	if b.BookingType == BookingTypeDaily {
		b.StartTime = interval.DayStart.String()
		b.EndTime = interval.DayEnd.String()
	}
}

// StartAt returns the instant the event begins in loc.
func (w Window) StartAt(loc *time.Location) time.Time {
	return interval.ToInstant(loc, w.Date, w.Start)
}

// EndAt returns the instant the event ends in loc.
func (w Window) EndAt(loc *time.Location) time.Time {
	return interval.ToInstant(loc, w.Date, w.End)
}
