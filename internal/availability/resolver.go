// Package availability decides whether a proposed booking window is free.
//
// Daily windows claim the whole venue for the whole day, so they conflict with
// anything on that date and preempt every hourly request regardless of which
// was created first. Hourly windows only conflict with hourly windows whose
// half-open time ranges overlap.
package availability

import (
	"time"

	"venue-booking-backend/internal/interval"
	"venue-booking-backend/internal/model"
)

// Reason explains why a window is blocked.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonBlackout      Reason = "blackout"
	ReasonVenueOccupied Reason = "venue_occupied"
	ReasonDailyBooking  Reason = "daily_booking"
	ReasonDailyBlock    Reason = "daily_block"
	ReasonHourlyOverlap Reason = "hourly_overlap"
	ReasonInvalidWindow Reason = "invalid_window"
)

// ConflictKind names the record type that caused a conflict.
type ConflictKind string

const (
	ConflictBooking  ConflictKind = "booking"
	ConflictBlock    ConflictKind = "block"
	ConflictBlackout ConflictKind = "blackout"
)

// Decision is the outcome of Resolve. A blocked window is a normal result, not an error.
type Decision struct {
	Available    bool         `json:"available"`
	Reason       Reason       `json:"reason,omitempty"`
	ConflictKind ConflictKind `json:"conflictKind,omitempty"`
	ConflictID   string       `json:"conflictId,omitempty"`
}

// Available is the decision for a free window.
func Available() Decision {
	return Decision{Available: true}
}

// Blocked builds a negative decision.
func Blocked(reason Reason, kind ConflictKind, id string) Decision {
	return Decision{Reason: reason, ConflictKind: kind, ConflictID: id}
}

// Proposal is the raw window a caller wants to reserve.
type Proposal struct {
	Type      model.BookingType
	Date      string
	StartTime string
	EndTime   string
}

// ProposalFor builds a proposal from a booking.
func ProposalFor(b *model.Booking) Proposal {
	return Proposal{Type: b.BookingType, Date: b.EventDate, StartTime: b.StartTime, EndTime: b.EndTime}
}

// Resolver checks proposals against existing occupants. loc is the venue zone.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a resolver for the venue location.
func NewResolver(loc *time.Location) *Resolver {
	return &Resolver{loc: loc}
}

// Resolve never fails. A malformed proposal is reported as ReasonInvalidWindow;
// callers are expected to validate input before calling it.
func (r *Resolver) Resolve(p Proposal, bookings []model.Booking, blocks []model.AvailabilityBlock, blackouts []model.BlackoutDate) Decision {
	date, err := interval.ParseDate(p.Date)
	if err != nil || !p.Type.Valid() {
		return Blocked(ReasonInvalidWindow, "", "")
	}

	for _, bo := range blackouts {
		start, err1 := interval.ParseDate(bo.StartDate)
		end, err2 := interval.ParseDate(bo.EndDate)
		if err1 != nil || err2 != nil {
			continue
		}
		if interval.DateWithinSpan(date, start, end) {
			return Blocked(ReasonBlackout, ConflictBlackout, bo.ID)
		}
	}

	if p.Type == model.BookingTypeDaily {
		return r.resolveDaily(date, bookings, blocks)
	}

	start, err1 := interval.ParseTimeOfDay(p.StartTime)
	end, err2 := interval.ParseTimeOfDay(p.EndTime)
	if err1 != nil || err2 != nil || start >= end {
		return Blocked(ReasonInvalidWindow, "", "")
	}
	return r.resolveHourly(date, start, end, bookings, blocks)
}

func (r *Resolver) resolveDaily(date interval.Date, bookings []model.Booking, blocks []model.AvailabilityBlock) Decision {
	for _, b := range bookings {
		if occupiesDate(&b, date) {
			return Blocked(ReasonVenueOccupied, ConflictBooking, b.ID)
		}
	}
	for _, bl := range blocks {
		if blockCovers(&bl, date) {
			return Blocked(ReasonVenueOccupied, ConflictBlock, bl.ID)
		}
	}
	return Available()
}

func (r *Resolver) resolveHourly(date interval.Date, start, end interval.TimeOfDay, bookings []model.Booking, blocks []model.AvailabilityBlock) Decision {
	// Whole-day holds are checked first so they win over an hourly overlap
	// that might appear earlier in the input.
	for _, b := range bookings {
		if b.BookingType == model.BookingTypeDaily && occupiesDate(&b, date) {
			return Blocked(ReasonDailyBooking, ConflictBooking, b.ID)
		}
	}
	for _, bl := range blocks {
		if bl.BlockType == model.BookingTypeDaily && blockCovers(&bl, date) {
			return Blocked(ReasonDailyBlock, ConflictBlock, bl.ID)
		}
	}

	pStart := interval.ToInstant(r.loc, date, start)
	pEnd := interval.ToInstant(r.loc, date, end)

	for _, b := range bookings {
		if b.BookingType != model.BookingTypeHourly || !occupiesDate(&b, date) {
			continue
		}
		bStart, bEnd := r.hourlyRange(date, b.StartTime, b.EndTime)
		if interval.Overlaps(pStart, pEnd, bStart, bEnd) {
			return Blocked(ReasonHourlyOverlap, ConflictBooking, b.ID)
		}
	}
	for _, bl := range blocks {
		if bl.BlockType != model.BookingTypeHourly || !blockCovers(&bl, date) {
			continue
		}
		bStart, bEnd := r.hourlyRange(date, bl.StartTime, bl.EndTime)
		if interval.Overlaps(pStart, pEnd, bStart, bEnd) {
			return Blocked(ReasonHourlyOverlap, ConflictBlock, bl.ID)
		}
	}
	return Available()
}

// hourlyRange turns stored times into instants on date. Unparseable rows
// occupy the whole day.
func (r *Resolver) hourlyRange(date interval.Date, rawStart, rawEnd string) (time.Time, time.Time) {
	start, err1 := interval.ParseTimeOfDay(rawStart)
	end, err2 := interval.ParseTimeOfDay(rawEnd)
	if err1 != nil || err2 != nil || start >= end {
		start, end = interval.DayStart, interval.DayEnd
	}
	return interval.ToInstant(r.loc, date, start), interval.ToInstant(r.loc, date, end)
}

func occupiesDate(b *model.Booking, date interval.Date) bool {
	if b.LifecycleStatus == model.LifecycleCancelled {
		return false
	}
	d, err := interval.ParseDate(b.EventDate)
	if err != nil {
		return false
	}
	return d == date
}

func blockCovers(bl *model.AvailabilityBlock, date interval.Date) bool {
	start, err1 := interval.ParseDate(bl.StartDate)
	end, err2 := interval.ParseDate(bl.EndDate)
	if err1 != nil || err2 != nil {
		return false
	}
	return interval.DateWithinSpan(date, start, end)
}
