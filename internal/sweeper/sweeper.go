// Package sweeper periodically replans every active booking so that missed
// webhook-triggered planning is recovered.
package sweeper

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"venue-booking-backend/config"
	"venue-booking-backend/internal/interval"
	"venue-booking-backend/internal/model"
	"venue-booking-backend/internal/planner"
)

// BookingLister lists bookings that can still need automation.
type BookingLister interface {
	ActiveBookingsFrom(ctx context.Context, fromDate string) ([]model.Booking, error)
}

// Planner plans the families a booking has never been scheduled for.
type Planner interface {
	PlanUnscheduled(ctx context.Context, bookingID string, now time.Time) ([]*planner.PlanResult, error)
}

// Summary reports one sweep.
type Summary struct {
	Bookings  int `json:"bookings"`
	Scheduled int `json:"scheduled"`
	CaughtUp  int `json:"caughtUp"`
	Failed    int `json:"failed"`
}

// Service orchestrates the replanning loop.
type Service struct {
	cfg      config.SweeperConfig
	bookings BookingLister
	planner  Planner
	loc      *time.Location
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewService creates the sweeper. loc is the venue zone used to pick "yesterday".
func NewService(cfg config.SweeperConfig, bookings BookingLister, p Planner, loc *time.Location, log *zap.SugaredLogger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{cfg: cfg, bookings: bookings, planner: p, loc: loc, log: log, now: time.Now}
}

// WithClock replaces the wall clock, for replaying a sweep at a fixed instant.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("sweeper is disabled, not starting")
		return
	}
	s.log.Infow("starting sweeper", "interval", s.cfg.Interval)

	s.sweep(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper shutting down")
			return
		case <-timer.C:
			s.sweep(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil {
		s.log.Errorw("sweep failed", "error", err)
	}
}

// SweepOnce plans every booking whose event is yesterday or later. A failing
// booking does not stop the pass; the per-booking errors are combined.
func (s *Service) SweepOnce(ctx context.Context) (Summary, error) {
	now := s.now().UTC()
	from := interval.Today(now, s.loc).AddDays(-1)

	bookings, err := s.bookings.ActiveBookingsFrom(ctx, from.String())
	if err != nil {
		return Summary{}, errors.Wrap(err, "failed to list active bookings")
	}

	sum := Summary{Bookings: len(bookings)}
	var combined error
	for _, b := range bookings {
		if ctx.Err() != nil {
			return sum, errors.CombineErrors(combined, ctx.Err())
		}
		results, err := s.planner.PlanUnscheduled(ctx, b.ID, now)
		for _, r := range results {
			switch r.Outcome {
			case planner.OutcomeScheduled:
				sum.Scheduled++
			case planner.OutcomeCaughtUp:
				sum.CaughtUp++
			}
		}
		if err != nil {
			sum.Failed++
			s.log.Warnw("replan failed", "booking", b.ID, "error", err)
			combined = errors.CombineErrors(combined, errors.Wrapf(err, "booking %s", b.ID))
		}
	}

	s.log.Infow("sweep finished", "bookings", sum.Bookings, "scheduled", sum.Scheduled, "caughtUp", sum.CaughtUp, "failed", sum.Failed)
	return sum, combined
}
