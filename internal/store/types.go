package store

import (
	"github.com/cockroachdb/errors"

	"venue-booking-backend/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a job status change breaks the status graph.
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// Occupants is everything that can make a window unavailable.
type Occupants struct {
	Bookings  []model.Booking           `json:"bookings"`
	Blocks    []model.AvailabilityBlock `json:"blocks"`
	Blackouts []model.BlackoutDate      `json:"blackouts"`
}

// Admit decides whether a booking may be stored given everything that
// currently occupies its date. Returning an error aborts the insert.
type Admit func(Occupants) error

// InsertResult splits a batch insert into the rows written and the rows that
// lost to an existing live job with the same booking and type.
type InsertResult struct {
	Created      []model.ScheduledJob
	Deduplicated []model.ScheduledJob
}
