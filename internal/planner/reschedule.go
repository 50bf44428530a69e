package planner

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"venue-booking-backend/internal/model"
)

// ForceReschedule cancels the family's pending and failed jobs, keeping them
// as history, then plans the family again without the idempotency skip.
func (p *Planner) ForceReschedule(ctx context.Context, bookingID string, f model.JobFamily, now time.Time) (*PlanResult, error) {
	if !f.Valid() {
		return nil, errors.Wrapf(ErrUnknownFamily, "%q", f)
	}
	if _, _, err := p.load(ctx, bookingID); err != nil {
		return nil, err
	}

	cancelled, err := p.cancel(ctx, bookingID, f, "force_reschedule", now)
	if err != nil {
		return nil, err
	}

	res, err := p.plan(ctx, f, bookingID, now, true)
	if err != nil {
		return nil, errors.WithHint(err, "the family's previous jobs were cancelled; retry the reschedule")
	}
	res.Cancelled = cancelled
	return res, nil
}

// CancelOnCompletion cancels the family's live jobs because its goal was met
// elsewhere. Nothing is replanned.
func (p *Planner) CancelOnCompletion(ctx context.Context, bookingID string, f model.JobFamily, reason string, now time.Time) (*PlanResult, error) {
	if !f.Valid() {
		return nil, errors.Wrapf(ErrUnknownFamily, "%q", f)
	}
	cancelled, err := p.cancel(ctx, bookingID, f, reason, now)
	if err != nil {
		return nil, err
	}
	return &PlanResult{
		BookingID: bookingID,
		Family:    f,
		Outcome:   OutcomeCancelled,
		Reason:    reason,
		Cancelled: cancelled,
	}, nil
}

func (p *Planner) cancel(ctx context.Context, bookingID string, f model.JobFamily, reason string, now time.Time) ([]model.ScheduledJob, error) {
	cancelled, err := p.store.CancelLiveJobs(ctx, bookingID, f, now)
	if err != nil {
		return nil, err
	}
	if len(cancelled) > 0 {
		p.record(ctx, bookingID, model.EventJobsCancelled, map[string]any{
			"family": f, "reason": reason, "jobs": summarize(cancelled),
		})
		p.log.Infow("cancelled live jobs", "booking", bookingID, "family", f, "reason", reason, "count", len(cancelled))
	}
	return cancelled, nil
}
