package api

import (
	"context"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"venue-booking-backend/internal/availability"
	"venue-booking-backend/internal/booking"
	"venue-booking-backend/internal/collab"
	"venue-booking-backend/internal/model"
	"venue-booking-backend/internal/planner"
	"venue-booking-backend/internal/store"
)

// Bookings is the booking service surface the handlers call.
type Bookings interface {
	Check(ctx context.Context, p availability.Proposal) (availability.Decision, error)
	Calendar(ctx context.Context, from, to string) (store.Occupants, error)
	Create(ctx context.Context, req booking.CreateRequest, now time.Time) (*booking.CreateResult, error)
	Get(ctx context.Context, id string) (*model.Booking, error)
	UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus, now time.Time) (*booking.StatusResult, error)
	UpdateLifecycle(ctx context.Context, id string, status model.LifecycleStatus, now time.Time) (*booking.StatusResult, error)
	Cancel(ctx context.Context, id, reason string, now time.Time) (*booking.StatusResult, error)
	SubmitHostReport(ctx context.Context, id string, now time.Time) (*booking.StatusResult, error)
	Jobs(ctx context.Context, id string) ([]model.ScheduledJob, error)
	Events(ctx context.Context, id string) ([]model.BookingEvent, error)
	CreateBlock(ctx context.Context, b *model.AvailabilityBlock) error
	DeleteBlock(ctx context.Context, id string) error
	CreateBlackout(ctx context.Context, b *model.BlackoutDate) error
	DeleteBlackout(ctx context.Context, id string) error
}

// Planner is the explicit planning surface exposed to staff.
type Planner interface {
	PlanFamily(ctx context.Context, bookingID string, f model.JobFamily, force bool, now time.Time) (*planner.PlanResult, error)
	ForceReschedule(ctx context.Context, bookingID string, f model.JobFamily, now time.Time) (*planner.PlanResult, error)
}

// JobQueue is the job store contract used by the external processor.
type JobQueue interface {
	DueJobs(ctx context.Context, now time.Time, limit int) ([]model.ScheduledJob, error)
	CompleteJob(ctx context.Context, id string, now time.Time) error
	FailJob(ctx context.Context, id string, message string, now time.Time) error
	RequeueJob(ctx context.Context, id string, now time.Time) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	bookings Bookings
	planner  Planner
	jobs     JobQueue
	subs     store.SubscriptionStore
	webpush  *webpush.Options
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(bookings Bookings, p Planner, jobs JobQueue, subs store.SubscriptionStore, webpushOptions *webpush.Options, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{
		bookings: bookings,
		planner:  p,
		jobs:     jobs,
		subs:     subs,
		webpush:  webpushOptions,
		log:      log,
		now:      time.Now,
	}
}

type errorResponse struct {
	Error string   `json:"error"`
	Hints []string `json:"hints,omitempty"`
}

// partialResponse is returned when a mutation was stored but a follow-up step failed.
type partialResponse struct {
	Result any      `json:"result"`
	Error  string   `json:"error"`
	Hints  []string `json:"hints,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrValidation), errors.Is(err, planner.ErrUnknownFamily):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, planner.ErrInvalidBooking):
		return http.StatusUnprocessableEntity
	case errors.Is(err, collab.ErrUpstream), errors.Is(err, collab.ErrNotConfigured):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorw("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, errorResponse{Error: err.Error(), Hints: errors.GetAllHints(err)})
}

// respond writes result, or result together with err when the main write
// succeeded and only planning failed.
func (h *Handler) respond(c *gin.Context, status int, result any, err error, stored bool) {
	if err == nil {
		c.JSON(status, result)
		return
	}
	if !stored {
		h.respondError(c, err)
		return
	}
	h.log.Warnw("request partially applied", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	c.JSON(status, partialResponse{Result: result, Error: err.Error(), Hints: errors.GetAllHints(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
