// Package booking holds the mutation entry points that keep bookings, holds
// and their scheduled automation in step.
package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"venue-booking-backend/internal/availability"
	"venue-booking-backend/internal/model"
	"venue-booking-backend/internal/planner"
	"venue-booking-backend/internal/store"
)

// ErrValidation marks requests rejected before anything is written.
var ErrValidation = errors.New("validation failed")

var errUnavailable = errors.New("window is not available")

// Store is the persistence the service needs.
type Store interface {
	store.BookingStore
	store.HoldStore
	store.JobStore
	store.AuditStore
}

// Planner is the planning surface the service drives.
type Planner interface {
	PlanAll(ctx context.Context, bookingID string, now time.Time) ([]*planner.PlanResult, error)
	PlanUnscheduled(ctx context.Context, bookingID string, now time.Time) ([]*planner.PlanResult, error)
	CancelOnCompletion(ctx context.Context, bookingID string, f model.JobFamily, reason string, now time.Time) (*planner.PlanResult, error)
}

// Service coordinates availability checks, persistence and planning.
type Service struct {
	store    Store
	planner  Planner
	resolver *availability.Resolver
	audit    planner.AuditSink
	log      *zap.SugaredLogger
}

// NewService creates a booking service. audit receives every event the
// service records; pass the store itself when no fan-out is configured.
func NewService(s Store, p Planner, resolver *availability.Resolver, audit planner.AuditSink, log *zap.SugaredLogger) *Service {
	if audit == nil {
		audit = s
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: s, planner: p, resolver: resolver, audit: audit, log: log}
}

// CreateRequest is the input for a new booking.
type CreateRequest struct {
	BookingType   model.BookingType   `json:"bookingType"`
	EventDate     string              `json:"eventDate"`
	StartTime     string              `json:"startTime"`
	EndTime       string              `json:"endTime"`
	GuestName     string              `json:"guestName"`
	GuestEmail    string              `json:"guestEmail"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	Internal      bool                `json:"internal"`
}

// CreateResult reports either the conflict that prevented the booking or the
// stored booking with its planning results.
type CreateResult struct {
	Decision availability.Decision `json:"decision"`
	Booking  *model.Booking        `json:"booking,omitempty"`
	Plans    []*planner.PlanResult `json:"plans,omitempty"`
}

// StatusResult is returned by status updates.
type StatusResult struct {
	Booking *model.Booking        `json:"booking"`
	Plans   []*planner.PlanResult `json:"plans,omitempty"`
}

// Check resolves a proposal against what is stored for its date.
func (s *Service) Check(ctx context.Context, p availability.Proposal) (availability.Decision, error) {
	occ, err := s.store.Occupants(ctx, p.Date)
	if err != nil {
		return availability.Decision{}, err
	}
	return s.resolver.Resolve(p, occ.Bookings, occ.Blocks, occ.Blackouts), nil
}

// Create validates and stores a booking when its window is free, then plans
// every automation family. A conflict is returned in the result, not as an error.
func (s *Service) Create(ctx context.Context, req CreateRequest, now time.Time) (*CreateResult, error) {
	b := &model.Booking{
		ID:              uuid.NewString(),
		BookingType:     req.BookingType,
		EventDate:       req.EventDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		PaymentStatus:   req.PaymentStatus,
		LifecycleStatus: model.LifecyclePending,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		Internal:        req.Internal,
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = model.PaymentPending
	}
	b.ApplyDailySentinel()
	if err := b.Validate(); err != nil {
		return nil, errors.Mark(err, ErrValidation)
	}
	if !b.PaymentStatus.Valid() {
		return nil, errors.Mark(errors.Newf("unknown payment status %q", b.PaymentStatus), ErrValidation)
	}

	var hold *model.AvailabilityBlock
	if b.Internal {
		hold = &model.AvailabilityBlock{
			BlockType: b.BookingType,
			StartDate: b.EventDate,
			EndDate:   b.EventDate,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Reason:    "internal booking",
		}
	}

	proposal := availability.ProposalFor(b)
	var decision availability.Decision
	err := s.store.CreateBooking(ctx, b, hold, func(occ store.Occupants) error {
		decision = s.resolver.Resolve(proposal, occ.Bookings, occ.Blocks, occ.Blackouts)
		if !decision.Available {
			return errUnavailable
		}
		return nil
	})
	if errors.Is(err, errUnavailable) {
		s.log.Infow("booking request conflicts",
			"date", b.EventDate, "reason", decision.Reason, "conflictKind", decision.ConflictKind, "conflictId", decision.ConflictID)
		s.record(ctx, b.ID, model.EventConflictDetected, model.ChannelAvailability, map[string]any{
			"eventDate":    b.EventDate,
			"bookingType":  b.BookingType,
			"startTime":    b.StartTime,
			"endTime":      b.EndTime,
			"reason":       decision.Reason,
			"conflictKind": decision.ConflictKind,
			"conflictId":   decision.ConflictID,
		})
		return &CreateResult{Decision: decision}, nil
	}
	if err != nil {
		return nil, err
	}
	s.record(ctx, b.ID, model.EventBookingCreated, model.ChannelAdmin, map[string]any{
		"eventDate": b.EventDate, "bookingType": b.BookingType, "internal": b.Internal,
	})

	res := &CreateResult{Decision: decision, Booking: b}
	plans, err := s.planner.PlanAll(ctx, b.ID, now)
	res.Plans = plans
	if err != nil {
		return res, errors.WithHint(errors.Wrapf(err, "booking %s stored but planning failed", b.ID),
			"replan the booking once the cause is fixed")
	}
	return res, nil
}

// Get loads one booking.
func (s *Service) Get(ctx context.Context, id string) (*model.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// UpdatePaymentStatus records a payment webhook. Fully paid or refunded
// bookings no longer need balance requests; any other change may unlock
// families that were waiting on payment.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus, now time.Time) (*StatusResult, error) {
	if !status.Valid() {
		return nil, errors.Mark(errors.Newf("unknown payment status %q", status), ErrValidation)
	}
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != status {
		if err := s.store.SetPaymentStatus(ctx, id, status); err != nil {
			return nil, err
		}
		s.record(ctx, id, model.EventPaymentStatusChanged, model.ChannelPayment, map[string]any{
			"from": b.PaymentStatus, "to": status,
		})
		b.PaymentStatus = status
	}

	res := &StatusResult{Booking: b}
	if status == model.PaymentFullyPaid || status == model.PaymentRefunded {
		cancelled, err := s.planner.CancelOnCompletion(ctx, id, model.FamilyBalancePayment, string(status), now)
		if err != nil {
			return nil, err
		}
		res.Plans = append(res.Plans, cancelled)
	}

	plans, err := s.planner.PlanUnscheduled(ctx, id, now)
	res.Plans = append(res.Plans, plans...)
	return res, err
}

// UpdateLifecycle records an operational status change. Cancelling goes
// through Cancel; closing a booking stops all automation.
func (s *Service) UpdateLifecycle(ctx context.Context, id string, status model.LifecycleStatus, now time.Time) (*StatusResult, error) {
	if !status.Valid() {
		return nil, errors.Mark(errors.Newf("unknown lifecycle status %q", status), ErrValidation)
	}
	if status == model.LifecycleCancelled {
		return s.Cancel(ctx, id, "lifecycle_cancelled", now)
	}
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.LifecycleStatus.Finished() {
		return nil, errors.Mark(errors.Newf("booking %s is already %s", id, b.LifecycleStatus), ErrValidation)
	}
	if b.LifecycleStatus != status {
		if err := s.store.SetLifecycleStatus(ctx, id, status); err != nil {
			return nil, err
		}
		s.record(ctx, id, model.EventLifecycleChanged, model.ChannelWebhook, map[string]any{
			"from": b.LifecycleStatus, "to": status,
		})
		b.LifecycleStatus = status
	}

	res := &StatusResult{Booking: b}
	if status.Finished() {
		plans, err := s.cancelAll(ctx, id, string(status), now)
		res.Plans = plans
		return res, err
	}
	plans, err := s.planner.PlanUnscheduled(ctx, id, now)
	res.Plans = plans
	return res, err
}

// Cancel marks the booking cancelled, cancels every live job and releases
// any hold the booking owns.
func (s *Service) Cancel(ctx context.Context, id, reason string, now time.Time) (*StatusResult, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "booking_cancelled"
	}
	if b.LifecycleStatus != model.LifecycleCancelled {
		if err := s.store.SetLifecycleStatus(ctx, id, model.LifecycleCancelled); err != nil {
			return nil, err
		}
		b.LifecycleStatus = model.LifecycleCancelled
	}

	plans, err := s.cancelAll(ctx, id, reason, now)
	if err != nil {
		return nil, err
	}
	released, err := s.store.DeleteBlocksForBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, id, model.EventBookingCancelled, model.ChannelAdmin, map[string]any{
		"reason": reason, "releasedBlocks": released,
	})
	return &StatusResult{Booking: b, Plans: plans}, nil
}

// SubmitHostReport stamps the report and stops further reminders.
func (s *Service) SubmitHostReport(ctx context.Context, id string, now time.Time) (*StatusResult, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.HostReportSubmittedAt == nil {
		if err := s.store.MarkHostReportSubmitted(ctx, id, now); err != nil {
			return nil, err
		}
		submitted := now.UTC()
		b.HostReportSubmittedAt = &submitted
		s.record(ctx, id, model.EventHostReportSubmitted, model.ChannelWebhook, nil)
	}
	res, err := s.planner.CancelOnCompletion(ctx, id, model.FamilyHostReport, "host_report_submitted", now)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Booking: b, Plans: []*planner.PlanResult{res}}, nil
}

// Jobs lists every job of a booking, including history.
func (s *Service) Jobs(ctx context.Context, id string) ([]model.ScheduledJob, error) {
	return s.store.JobsForBooking(ctx, id)
}

// Events lists the audit trail of a booking.
func (s *Service) Events(ctx context.Context, id string) ([]model.BookingEvent, error) {
	return s.store.EventsForBooking(ctx, id)
}

func (s *Service) cancelAll(ctx context.Context, id, reason string, now time.Time) ([]*planner.PlanResult, error) {
	var plans []*planner.PlanResult
	for _, f := range model.Families {
		res, err := s.planner.CancelOnCompletion(ctx, id, f, reason, now)
		if err != nil {
			return plans, err
		}
		plans = append(plans, res)
	}
	return plans, nil
}

func (s *Service) record(ctx context.Context, bookingID string, et model.EventType, ch model.Channel, meta map[string]any) {
	if err := s.audit.AppendEvent(ctx, model.NewEvent(bookingID, et, ch, meta)); err != nil {
		s.log.Warnw("failed to record booking event", "booking", bookingID, "event", et, "error", err)
	}
}
