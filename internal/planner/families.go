package planner

import (
	"context"
	"fmt"
	"time"

	"venue-booking-backend/internal/model"
)

// FeedbackDelay is how long after the event ends the guest is asked for feedback.
const FeedbackDelay = 24 * time.Hour

var hostReportSchedule = []struct {
	jobType model.JobType
	step    model.HostReportStep
	offset  time.Duration
}{
	{model.JobHostReportPreStart, model.HostReportPreStart, -30 * 24 * time.Hour},
	{model.JobHostReportDuring, model.HostReportDuringEvent, -7 * 24 * time.Hour},
	{model.JobHostReportPost, model.HostReportPostEvent, -time.Hour},
}

// HostReportStepFor maps a reminder job to the step it records when it fires.
func HostReportStepFor(jt model.JobType) model.HostReportStep {
	for _, s := range hostReportSchedule {
		if s.jobType == jt {
			return s.step
		}
	}
	return model.HostReportNone
}

func (p *Planner) hostReportPrecondition(b *model.Booking, _ model.Window, _ time.Time) string {
	switch {
	case !b.PaymentStatus.Confirmed():
		return fmt.Sprintf("payment status is %s", b.PaymentStatus)
	case b.LifecycleStatus.Finished() || b.LifecycleStatus == model.LifecyclePostEvent:
		return fmt.Sprintf("booking is %s", b.LifecycleStatus)
	case b.HostReportSubmittedAt != nil:
		return "host report already submitted"
	case b.HostReportStep == model.HostReportPostEvent:
		return "all host report reminders reached"
	}
	return ""
}

// prepareHostReport only considers steps beyond the one already recorded, so
// the booking's step never moves backwards.
func (p *Planner) prepareHostReport(ctx context.Context, b *model.Booking, w model.Window, now time.Time, res *PlanResult) ([]Step, error) {
	start := w.StartAt(p.loc)
	var steps []Step
	for _, s := range hostReportSchedule {
		if s.step.Rank() > b.HostReportStep.Rank() {
			steps = append(steps, Step{JobType: s.jobType, RunAt: start.Add(s.offset)})
		}
	}

	immediate, future := CatchUp(steps, now)
	if immediate == nil {
		return future, nil
	}

	next := HostReportStepFor(immediate.JobType)
	res.Immediate = &Immediate{JobType: immediate.JobType, State: string(next)}
	if err := p.store.SetHostReportStep(ctx, b.ID, next); err != nil {
		return nil, err
	}
	res.Immediate.Applied = true
	p.record(ctx, b.ID, model.EventStepAdvanced, map[string]any{
		"from": b.HostReportStep, "to": next, "jobType": immediate.JobType,
	})
	p.syncCRM(ctx, b.ID)
	return future, nil
}

func (p *Planner) guestFeedbackPrecondition(b *model.Booking, _ model.Window, _ time.Time) string {
	switch {
	case b.LifecycleStatus == model.LifecycleCancelled:
		return "booking is cancelled"
	case !b.PaymentStatus.Confirmed():
		return fmt.Sprintf("payment status is %s", b.PaymentStatus)
	case b.GuestEmail == "":
		return "guest has no email address"
	}
	return ""
}

func (p *Planner) prepareGuestFeedback(_ context.Context, _ *model.Booking, w model.Window, now time.Time, res *PlanResult) ([]Step, error) {
	at := w.EndAt(p.loc).Add(FeedbackDelay)
	if !at.After(now) {
		res.Reason = "feedback window elapsed"
		return nil, nil
	}
	return []Step{{JobType: model.JobGuestFeedbackPostEvent, RunAt: at}}, nil
}

func (p *Planner) lifecyclePrecondition(b *model.Booking, w model.Window, now time.Time) string {
	switch {
	case b.LifecycleStatus != model.LifecyclePending && b.LifecycleStatus != model.LifecyclePreEventReady:
		return fmt.Sprintf("lifecycle is already %s", b.LifecycleStatus)
	case !b.PaymentStatus.Confirmed():
		return fmt.Sprintf("payment status is %s", b.PaymentStatus)
	case !w.EndAt(p.loc).After(now):
		return "event has ended"
	}
	return ""
}

// prepareLifecycle moves the booking to in_progress at event start, or right
// away when the event is already running.
func (p *Planner) prepareLifecycle(ctx context.Context, b *model.Booking, w model.Window, now time.Time, res *PlanResult) ([]Step, error) {
	immediate, future := CatchUp([]Step{{JobType: model.JobSetLifecycleInProgress, RunAt: w.StartAt(p.loc)}}, now)
	if immediate == nil {
		return future, nil
	}

	res.Immediate = &Immediate{JobType: immediate.JobType, State: string(model.LifecycleInProgress)}
	if err := p.store.SetLifecycleStatus(ctx, b.ID, model.LifecycleInProgress); err != nil {
		return nil, err
	}
	res.Immediate.Applied = true
	p.record(ctx, b.ID, model.EventLifecycleChanged, map[string]any{
		"from": b.LifecycleStatus, "to": model.LifecycleInProgress,
	})
	p.syncCRM(ctx, b.ID)
	return future, nil
}
