package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"venue-booking-backend/internal/model"
	"venue-booking-backend/internal/store"
)

var (
	// ErrInvalidBooking marks bookings whose stored window cannot be planned.
	ErrInvalidBooking = errors.New("invalid booking")
	// ErrUnknownFamily is returned for a family name outside the closed set.
	ErrUnknownFamily = errors.New("unknown job family")
	// ErrInconsistentFamily marks a pass that applied a synchronous step but
	// could not store the follow-up jobs.
	ErrInconsistentFamily = errors.New("job family left inconsistent")

	// errClaimLost is returned by prepare when a concurrent pass already
	// stored the family's claiming job.
	errClaimLost = errors.New("family claimed by a concurrent pass")
)

// Outcome summarises what a planning pass did for one family.
type Outcome string

const (
	OutcomeScheduled          Outcome = "scheduled"
	OutcomeSkippedExisting    Outcome = "skipped_existing"
	OutcomePreconditionNotMet Outcome = "precondition_not_met"
	OutcomeCaughtUp           Outcome = "caught_up"
	OutcomeNothingToSchedule  Outcome = "nothing_to_schedule"
	OutcomeCancelled          Outcome = "cancelled"
)

// Immediate describes a step applied synchronously instead of being scheduled.
type Immediate struct {
	JobType model.JobType `json:"jobType"`
	State   string        `json:"state"`
	Applied bool          `json:"applied"`
}

// PlanResult is returned to webhook handlers so they can decide what to report.
type PlanResult struct {
	BookingID    string               `json:"bookingId"`
	Family       model.JobFamily      `json:"family"`
	Outcome      Outcome              `json:"outcome"`
	Reason       string               `json:"reason,omitempty"`
	Created      []model.ScheduledJob `json:"created"`
	Deduplicated []model.ScheduledJob `json:"deduplicated,omitempty"`
	Existing     []model.ScheduledJob `json:"existing,omitempty"`
	Cancelled    []model.ScheduledJob `json:"cancelled,omitempty"`
	Immediate    *Immediate           `json:"immediate,omitempty"`
	PaymentURL   string               `json:"paymentUrl,omitempty"`
}

func (r *PlanResult) sideEffects() bool {
	return r.PaymentURL != "" || (r.Immediate != nil && r.Immediate.Applied)
}

// PaymentLinkCreator creates the balance payment link on the short-notice path.
type PaymentLinkCreator interface {
	CreateBalancePaymentLink(ctx context.Context, bookingID string) (model.PaymentLink, error)
}

// SnapshotSyncer pushes the booking's automation state to the CRM.
type SnapshotSyncer interface {
	SyncBookingSnapshot(ctx context.Context, bookingID string) error
}

// Alerter notifies staff that a booking needs manual attention.
type Alerter interface {
	Alert(ctx context.Context, bookingID, message string) error
}

// AuditSink appends booking events.
type AuditSink interface {
	AppendEvent(ctx context.Context, ev *model.BookingEvent) error
}

// Store is the part of the store the planner reads and writes.
type Store interface {
	store.BookingStore
	store.JobStore
}

// Deps wires a Planner. Store is required; nil collaborators are skipped,
// except Payments which the short-notice path cannot do without.
type Deps struct {
	Store    Store
	Payments PaymentLinkCreator
	CRM      SnapshotSyncer
	Alerter  Alerter
	Audit    AuditSink
	Location *time.Location
	Logger   *zap.SugaredLogger
}

// Planner turns bookings into scheduled jobs, one family at a time.
type Planner struct {
	store    Store
	payments PaymentLinkCreator
	crm      SnapshotSyncer
	alerter  Alerter
	audit    AuditSink
	loc      *time.Location
	log      *zap.SugaredLogger
}

// New creates a Planner.
func New(d Deps) *Planner {
	p := &Planner{
		store:    d.Store,
		payments: d.Payments,
		crm:      d.CRM,
		alerter:  d.Alerter,
		audit:    d.Audit,
		loc:      d.Location,
		log:      d.Logger,
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.log == nil {
		p.log = zap.NewNop().Sugar()
	}
	return p
}

// Location returns the venue offset the planner computes fire times in.
func (p *Planner) Location() *time.Location {
	return p.loc
}

// family is the per-family policy plugged into the shared planning sequence.
type family struct {
	// precondition returns a reason when the family does not apply.
	precondition func(b *model.Booking, w model.Window, now time.Time) string
	// prepare computes the future steps and applies any synchronous step.
	prepare func(ctx context.Context, b *model.Booking, w model.Window, now time.Time, res *PlanResult) ([]Step, error)
}

func (p *Planner) family(f model.JobFamily) (family, bool) {
	switch f {
	case model.FamilyBalancePayment:
		return family{precondition: p.balancePrecondition, prepare: p.prepareBalance}, true
	case model.FamilyHostReport:
		return family{precondition: p.hostReportPrecondition, prepare: p.prepareHostReport}, true
	case model.FamilyGuestFeedback:
		return family{precondition: p.guestFeedbackPrecondition, prepare: p.prepareGuestFeedback}, true
	case model.FamilyLifecycle:
		return family{precondition: p.lifecyclePrecondition, prepare: p.prepareLifecycle}, true
	}
	return family{}, false
}

// PlanBalancePayments plans the balance-payment family.
func (p *Planner) PlanBalancePayments(ctx context.Context, bookingID string, now time.Time) (*PlanResult, error) {
	return p.plan(ctx, model.FamilyBalancePayment, bookingID, now, false)
}

// PlanHostReportReminders plans the host-report family. With force, live
// reminders are cancelled and the family is planned again from scratch.
func (p *Planner) PlanHostReportReminders(ctx context.Context, bookingID string, force bool, now time.Time) (*PlanResult, error) {
	if force {
		return p.ForceReschedule(ctx, bookingID, model.FamilyHostReport, now)
	}
	return p.plan(ctx, model.FamilyHostReport, bookingID, now, false)
}

// PlanGuestFeedback plans the post-event feedback request.
func (p *Planner) PlanGuestFeedback(ctx context.Context, bookingID string, now time.Time) (*PlanResult, error) {
	return p.plan(ctx, model.FamilyGuestFeedback, bookingID, now, false)
}

// PlanLifecycle plans the move to in_progress at event start.
func (p *Planner) PlanLifecycle(ctx context.Context, bookingID string, now time.Time) (*PlanResult, error) {
	return p.plan(ctx, model.FamilyLifecycle, bookingID, now, false)
}

// PlanFamily plans one family by name.
func (p *Planner) PlanFamily(ctx context.Context, bookingID string, f model.JobFamily, force bool, now time.Time) (*PlanResult, error) {
	if force {
		return p.ForceReschedule(ctx, bookingID, f, now)
	}
	return p.plan(ctx, f, bookingID, now, false)
}

// PlanAll plans every family in order. A failing family does not stop the
// others unless the booking itself cannot be planned.
func (p *Planner) PlanAll(ctx context.Context, bookingID string, now time.Time) ([]*PlanResult, error) {
	return p.planFamilies(ctx, bookingID, model.Families, now)
}

// PlanUnscheduled plans only the families that have never produced a job for
// the booking. Sweeps and status webhooks use it so that a family whose jobs
// already ran is not started over.
func (p *Planner) PlanUnscheduled(ctx context.Context, bookingID string, now time.Time) ([]*PlanResult, error) {
	jobs, err := p.store.JobsForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	seen := make(map[model.JobFamily]bool)
	for _, j := range jobs {
		seen[j.JobType.Family()] = true
	}
	var todo []model.JobFamily
	for _, f := range model.Families {
		if !seen[f] {
			todo = append(todo, f)
		}
	}
	return p.planFamilies(ctx, bookingID, todo, now)
}

func (p *Planner) planFamilies(ctx context.Context, bookingID string, families []model.JobFamily, now time.Time) ([]*PlanResult, error) {
	var (
		results []*PlanResult
		errs    error
	)
	for _, f := range families {
		res, err := p.plan(ctx, f, bookingID, now, false)
		if err != nil {
			if errors.Is(err, ErrInvalidBooking) || errors.Is(err, store.ErrNotFound) {
				return results, err
			}
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "plan %s", f))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// plan runs the shared sequence: precondition, idempotency skip (unless
// forced), step computation with catch-up, one batch insert, one audit event.
func (p *Planner) plan(ctx context.Context, f model.JobFamily, bookingID string, now time.Time, force bool) (*PlanResult, error) {
	fam, ok := p.family(f)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFamily, "%q", f)
	}

	b, w, err := p.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	res := &PlanResult{BookingID: bookingID, Family: f}

	if reason := fam.precondition(b, w, now); reason != "" {
		res.Outcome = OutcomePreconditionNotMet
		res.Reason = reason
		p.record(ctx, bookingID, model.EventJobsSkipped, map[string]any{
			"family": f, "outcome": res.Outcome, "reason": reason,
		})
		return res, nil
	}

	if !force {
		live, err := p.store.LiveJobs(ctx, bookingID, f)
		if err != nil {
			return nil, err
		}
		if len(live) > 0 {
			res.Outcome = OutcomeSkippedExisting
			res.Reason = fmt.Sprintf("%d live jobs already scheduled", len(live))
			res.Existing = live
			p.record(ctx, bookingID, model.EventJobsSkipped, map[string]any{
				"family": f, "outcome": res.Outcome, "existing": summarize(live),
			})
			return res, nil
		}
	}

	steps, err := fam.prepare(ctx, b, w, now, res)
	if errors.Is(err, errClaimLost) {
		res.Outcome = OutcomeSkippedExisting
		res.Reason = "live jobs were created concurrently"
		p.log.Infow("skipped family claimed by a concurrent pass", "booking", bookingID, "family", f)
		p.record(ctx, bookingID, model.EventJobsSkipped, map[string]any{
			"family": f, "outcome": res.Outcome, "deduplicated": len(res.Deduplicated),
		})
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	if len(steps) == 0 && len(res.Created) == 0 {
		if res.Immediate != nil {
			res.Outcome = OutcomeCaughtUp
		} else {
			res.Outcome = OutcomeNothingToSchedule
			if res.Reason == "" {
				res.Reason = "no step lies in the future"
			}
		}
		p.record(ctx, bookingID, model.EventJobsScheduled, map[string]any{
			"family": f, "outcome": res.Outcome, "reason": res.Reason, "immediate": res.Immediate,
		})
		return res, nil
	}

	if len(steps) > 0 {
		jobs := make([]model.ScheduledJob, len(steps))
		for i, s := range steps {
			jobs[i] = model.ScheduledJob{BookingID: bookingID, JobType: s.JobType, RunAt: s.RunAt}
		}
		ins, err := p.store.InsertJobs(ctx, jobs)
		if err != nil {
			if res.sideEffects() {
				return nil, p.inconsistent(ctx, res, err)
			}
			return nil, err
		}
		res.Created = append(res.Created, ins.Created...)
		res.Deduplicated = append(res.Deduplicated, ins.Deduplicated...)
	}

	res.Outcome = OutcomeScheduled
	if len(res.Created) == 0 {
		res.Outcome = OutcomeSkippedExisting
		res.Reason = "live jobs were created concurrently"
	}
	if len(res.Deduplicated) > 0 {
		p.log.Infow("skipped jobs already scheduled by a concurrent pass",
			"booking", bookingID, "family", f, "deduplicated", len(res.Deduplicated))
	}
	p.record(ctx, bookingID, model.EventJobsScheduled, map[string]any{
		"family":       f,
		"outcome":      res.Outcome,
		"jobs":         summarize(res.Created),
		"deduplicated": len(res.Deduplicated),
		"immediate":    res.Immediate,
	})
	p.log.Infow("planned job family",
		"booking", bookingID, "family", f, "outcome", res.Outcome, "created", len(res.Created))
	return res, nil
}

func (p *Planner) load(ctx context.Context, bookingID string) (*model.Booking, model.Window, error) {
	b, err := p.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, model.Window{}, err
	}
	w, err := b.Window()
	if err != nil {
		return nil, model.Window{}, errors.Mark(errors.Wrapf(err, "booking %s", bookingID), ErrInvalidBooking)
	}
	return b, w, nil
}

// inconsistent reports a pass whose synchronous step succeeded but whose jobs
// were not stored. Nothing is rolled back; staff are told to force a reschedule.
func (p *Planner) inconsistent(ctx context.Context, res *PlanResult, cause error) error {
	err := errors.Mark(
		errors.WithHint(
			errors.Wrapf(cause, "%s jobs for booking %s not stored after a synchronous step", res.Family, res.BookingID),
			"force a reschedule of this family once the store is healthy"),
		ErrInconsistentFamily)
	p.log.Errorw("job family left inconsistent",
		"booking", res.BookingID,
		"family", res.Family,
		"paymentUrl", res.PaymentURL,
		"immediate", res.Immediate,
		"error", err)

	if p.alerter != nil {
		msg := fmt.Sprintf("Booking %s: %s automation needs a forced reschedule", res.BookingID, res.Family)
		if aerr := p.alerter.Alert(ctx, res.BookingID, msg); aerr != nil {
			p.log.Warnw("failed to alert staff", "booking", res.BookingID, "error", aerr)
		}
	}
	p.record(ctx, res.BookingID, model.EventPlanInconsistent, map[string]any{
		"family": res.Family, "error": cause.Error(),
	})
	return err
}

// syncCRM is fire-and-forget: the state change it reports already happened.
func (p *Planner) syncCRM(ctx context.Context, bookingID string) {
	if p.crm == nil {
		return
	}
	if err := p.crm.SyncBookingSnapshot(ctx, bookingID); err != nil {
		p.log.Warnw("crm snapshot sync failed", "booking", bookingID, "error", err)
	}
}

func (p *Planner) record(ctx context.Context, bookingID string, et model.EventType, meta map[string]any) {
	if p.audit == nil {
		return
	}
	if err := p.audit.AppendEvent(ctx, model.NewEvent(bookingID, et, model.ChannelPlanner, meta)); err != nil {
		p.log.Warnw("failed to record booking event", "booking", bookingID, "event", et, "error", err)
	}
}

func summarize(jobs []model.ScheduledJob) []map[string]any {
	out := make([]map[string]any, len(jobs))
	for i, j := range jobs {
		out[i] = map[string]any{"id": j.ID, "jobType": j.JobType, "runAt": j.RunAt}
	}
	return out
}
