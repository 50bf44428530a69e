package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"venue-booking-backend/internal/interval"
	"venue-booking-backend/internal/model"
)

const (
	// ShortNoticeDays is the largest days-until-event that counts as short notice.
	ShortNoticeDays = 15
	// RetryInterval separates consecutive balance payment attempts.
	RetryInterval = 48 * time.Hour
)

func (p *Planner) balancePrecondition(b *model.Booking, w model.Window, now time.Time) string {
	switch {
	case b.PaymentStatus != model.PaymentDepositPaid:
		return fmt.Sprintf("payment status is %s, balance requests need deposit_paid", b.PaymentStatus)
	case b.LifecycleStatus.Finished():
		return fmt.Sprintf("booking is %s", b.LifecycleStatus)
	case !w.StartAt(p.loc).After(now):
		return "event has already started"
	}
	return ""
}

// prepareBalance applies the notice policy. Short notice sends the first link
// now and leaves a single retry; long notice schedules three attempts starting
// ShortNoticeDays before the event.
//
// On short notice the retry row is stored before the link is requested. The
// row's live key makes the insert a claim on the family, so a racing pass that
// loses it never calls the payment service.
func (p *Planner) prepareBalance(ctx context.Context, b *model.Booking, w model.Window, now time.Time, res *PlanResult) ([]Step, error) {
	days := interval.DaysUntil(interval.Today(now, p.loc), w.Date)

	if days <= ShortNoticeDays {
		if p.payments == nil {
			return nil, errors.New("no payment link collaborator configured for short-notice booking")
		}
		claim, err := p.store.InsertJobs(ctx, []model.ScheduledJob{
			{BookingID: b.ID, JobType: model.JobBalanceRetry2, RunAt: now.Add(RetryInterval)},
		})
		if err != nil {
			return nil, errors.Wrapf(err, "claim short-notice balance retry for booking %s", b.ID)
		}
		res.Deduplicated = claim.Deduplicated
		if len(claim.Created) == 0 {
			return nil, errClaimLost
		}

		link, err := p.payments.CreateBalancePaymentLink(ctx, b.ID)
		if err != nil {
			err = errors.Wrapf(err, "short-notice balance link for booking %s", b.ID)
			if _, cerr := p.store.CancelLiveJobs(ctx, b.ID, model.FamilyBalancePayment, now); cerr != nil {
				p.log.Errorw("failed to release balance retry after link failure", "booking", b.ID, "error", cerr)
				err = errors.CombineErrors(err, cerr)
			}
			return nil, err
		}
		res.Created = claim.Created
		res.PaymentURL = link.PaymentURL
		res.Reason = fmt.Sprintf("short notice, %d days until event", days)
		res.Immediate = &Immediate{JobType: model.JobBalanceRetry1, State: "payment_link_created", Applied: true}
		p.record(ctx, b.ID, model.EventBalanceLinkCreated, map[string]any{
			"paymentUrl": link.PaymentURL, "daysUntilEvent": days,
		})
		return nil, nil
	}

	first := w.StartAt(p.loc).Add(-ShortNoticeDays * 24 * time.Hour)
	steps := []Step{
		{JobType: model.JobBalanceRetry1, RunAt: first},
		{JobType: model.JobBalanceRetry2, RunAt: first.Add(RetryInterval)},
		{JobType: model.JobBalanceRetry3, RunAt: first.Add(2 * RetryInterval)},
	}
	return futureOnly(steps, now), nil
}
