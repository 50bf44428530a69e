package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"venue-booking-backend/internal/availability"
	"venue-booking-backend/internal/db"
	"venue-booking-backend/internal/model"
	"venue-booking-backend/internal/planner"
	"venue-booking-backend/internal/store"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type stubPayments struct{}

func (stubPayments) CreateBalancePaymentLink(_ context.Context, id string) (model.PaymentLink, error) {
	return model.PaymentLink{PaymentURL: "https://pay.example/" + id}, nil
}

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	sqlDB, _ := gormDB.DB()
	t.Cleanup(func() { sqlDB.Close() })

	s := store.NewGormStore(gormDB)
	p := planner.New(planner.Deps{Store: s, Payments: stubPayments{}, Audit: s, Location: time.UTC})
	return NewService(s, p, availability.NewResolver(time.UTC), nil, nil), s
}

func hourlyRequest(start, end string) CreateRequest {
	return CreateRequest{
		BookingType:   model.BookingTypeHourly,
		EventDate:     "2026-12-01",
		StartTime:     start,
		EndTime:       end,
		GuestName:     "Ada",
		GuestEmail:    "ada@example.com",
		PaymentStatus: model.PaymentDepositPaid,
	}
}

func liveCount(t *testing.T, s store.Store, id string) map[model.JobFamily]int {
	t.Helper()
	out := map[model.JobFamily]int{}
	for _, f := range model.Families {
		live, err := s.LiveJobs(context.Background(), id, f)
		require.NoError(t, err)
		out[f] = len(live)
	}
	return out
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name          string
		existing      []CreateRequest
		request       CreateRequest
		wantAvailable bool
		wantReason    availability.Reason
		expectErr     bool
	}{
		{
			name:          "Free window is stored and planned",
			request:       hourlyRequest("18:00", "22:00"),
			wantAvailable: true,
		},
		{
			name:          "Touching hourly windows do not conflict",
			existing:      []CreateRequest{hourlyRequest("14:00", "18:00")},
			request:       hourlyRequest("18:00", "22:00"),
			wantAvailable: true,
		},
		{
			name:       "Overlapping hourly window is blocked",
			existing:   []CreateRequest{hourlyRequest("17:00", "19:00")},
			request:    hourlyRequest("18:00", "22:00"),
			wantReason: availability.ReasonHourlyOverlap,
		},
		{
			name:     "Daily request on an occupied date is blocked",
			existing: []CreateRequest{hourlyRequest("09:00", "10:00")},
			request: CreateRequest{
				BookingType: model.BookingTypeDaily,
				EventDate:   "2026-12-01",
			},
			wantReason: availability.ReasonVenueOccupied,
		},
		{
			name:      "Hourly request without end time is rejected",
			request:   hourlyRequest("18:00", ""),
			expectErr: true,
		},
		{
			name: "Unknown payment status is rejected",
			request: CreateRequest{
				BookingType:   model.BookingTypeDaily,
				EventDate:     "2026-12-01",
				PaymentStatus: "bogus",
			},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, s := newTestService(t)
			for _, req := range tc.existing {
				res, err := svc.Create(ctx, req, now)
				require.NoError(t, err)
				require.True(t, res.Decision.Available)
			}

			res, err := svc.Create(ctx, tc.request, now)
			if tc.expectErr {
				assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantAvailable, res.Decision.Available)
			assert.Equal(t, tc.wantReason, res.Decision.Reason)

			occ, err := s.Occupants(ctx, "2026-12-01")
			require.NoError(t, err)
			if tc.wantAvailable {
				require.NotNil(t, res.Booking)
				assert.Len(t, res.Plans, len(model.Families))
				assert.Len(t, occ.Bookings, len(tc.existing)+1)
			} else {
				assert.Nil(t, res.Booking)
				assert.NotEmpty(t, res.Decision.ConflictID)
				assert.Len(t, occ.Bookings, len(tc.existing))
			}
		})
	}
}

func TestService_CreateDailyAppliesSentinel(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Create(context.Background(), CreateRequest{
		BookingType: model.BookingTypeDaily,
		EventDate:   "2026-12-05",
		StartTime:   "10:00",
		EndTime:     "11:00",
	}, now)
	require.NoError(t, err)
	require.NotNil(t, res.Booking)
	assert.Equal(t, "00:00", res.Booking.StartTime)
	assert.Equal(t, "24:00", res.Booking.EndTime)
}

func TestService_CreateConcurrentSameDate(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	sqlDB, err := s.DB().DB()
	require.NoError(t, err)
	// Shared-cache SQLite reports lock errors instead of waiting.
	sqlDB.SetMaxOpenConns(1)

	const callers = 6
	var (
		wg        sync.WaitGroup
		gate      = make(chan struct{})
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			res, err := svc.Create(ctx, CreateRequest{
				BookingType: model.BookingTypeDaily,
				EventDate:   "2026-12-01",
				GuestName:   "Ada",
			}, now)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Booking != nil {
				created++
			} else {
				conflicts++
				assert.Equal(t, availability.ReasonVenueOccupied, res.Decision.Reason)
			}
		}()
	}
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, callers-1, conflicts)
	occ, err := s.Occupants(ctx, "2026-12-01")
	require.NoError(t, err)
	assert.Len(t, occ.Bookings, 1)
}

func TestService_InternalBookingHoldIsReleasedOnCancel(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	req := hourlyRequest("10:00", "12:00")
	req.Internal = true
	res, err := svc.Create(ctx, req, now)
	require.NoError(t, err)
	id := res.Booking.ID

	occ, err := s.Occupants(ctx, "2026-12-01")
	require.NoError(t, err)
	require.Len(t, occ.Blocks, 1)
	assert.Equal(t, id, *occ.Blocks[0].BookingID)

	cancelled, err := svc.Cancel(ctx, id, "", now)
	require.NoError(t, err)
	assert.Equal(t, model.LifecycleCancelled, cancelled.Booking.LifecycleStatus)
	assert.Len(t, cancelled.Plans, len(model.Families))

	occ, err = s.Occupants(ctx, "2026-12-01")
	require.NoError(t, err)
	assert.Empty(t, occ.Blocks)
	assert.Empty(t, occ.Bookings)
	for f, n := range liveCount(t, s, id) {
		assert.Zero(t, n, "family %s", f)
	}

	events, err := svc.Events(ctx, id)
	require.NoError(t, err)
	var types []model.EventType
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	assert.Contains(t, types, model.EventBookingCreated)
	assert.Contains(t, types, model.EventBookingCancelled)
}

func TestService_PaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	req := hourlyRequest("18:00", "22:00")
	req.PaymentStatus = model.PaymentPending
	res, err := svc.Create(ctx, req, now)
	require.NoError(t, err)
	id := res.Booking.ID
	for _, p := range res.Plans {
		assert.Equal(t, planner.OutcomePreconditionNotMet, p.Outcome)
	}

	deposit, err := svc.UpdatePaymentStatus(ctx, id, model.PaymentDepositPaid, now)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentDepositPaid, deposit.Booking.PaymentStatus)
	assert.Equal(t, map[model.JobFamily]int{
		model.FamilyBalancePayment: 3,
		model.FamilyHostReport:     3,
		model.FamilyGuestFeedback:  1,
		model.FamilyLifecycle:      1,
	}, liveCount(t, s, id))

	retry, err := svc.UpdatePaymentStatus(ctx, id, model.PaymentDepositPaid, now)
	require.NoError(t, err)
	assert.Empty(t, retry.Plans, "every family already has jobs")

	paid, err := svc.UpdatePaymentStatus(ctx, id, model.PaymentFullyPaid, now)
	require.NoError(t, err)
	require.NotEmpty(t, paid.Plans)
	assert.Equal(t, planner.OutcomeCancelled, paid.Plans[0].Outcome)
	assert.Len(t, paid.Plans[0].Cancelled, 3)
	live := liveCount(t, s, id)
	assert.Zero(t, live[model.FamilyBalancePayment])
	assert.Equal(t, 3, live[model.FamilyHostReport])

	_, err = svc.UpdatePaymentStatus(ctx, id, "bogus", now)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestService_SubmitHostReport(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	res, err := svc.Create(ctx, hourlyRequest("18:00", "22:00"), now)
	require.NoError(t, err)
	id := res.Booking.ID

	submitted, err := svc.SubmitHostReport(ctx, id, now)
	require.NoError(t, err)
	require.NotNil(t, submitted.Booking.HostReportSubmittedAt)
	assert.Len(t, submitted.Plans[0].Cancelled, 3)
	assert.Zero(t, liveCount(t, s, id)[model.FamilyHostReport])

	again, err := svc.SubmitHostReport(ctx, id, now)
	require.NoError(t, err)
	assert.Empty(t, again.Plans[0].Cancelled)
}

func TestService_UpdateLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	res, err := svc.Create(ctx, hourlyRequest("18:00", "22:00"), now)
	require.NoError(t, err)
	id := res.Booking.ID

	ready, err := svc.UpdateLifecycle(ctx, id, model.LifecyclePreEventReady, now)
	require.NoError(t, err)
	assert.Equal(t, model.LifecyclePreEventReady, ready.Booking.LifecycleStatus)

	closed, err := svc.UpdateLifecycle(ctx, id, model.LifecycleClosed, now)
	require.NoError(t, err)
	assert.Len(t, closed.Plans, len(model.Families))
	for f, n := range liveCount(t, s, id) {
		assert.Zero(t, n, "family %s", f)
	}

	_, err = svc.UpdateLifecycle(ctx, id, model.LifecycleInProgress, now)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.UpdateLifecycle(ctx, "missing", model.LifecycleClosed, now)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestService_Holds(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	block := &model.AvailabilityBlock{
		BlockType: model.BookingTypeDaily,
		StartDate: "2026-12-24",
		EndDate:   "2026-12-26",
		StartTime: "09:00",
		Reason:    "holidays",
	}
	require.NoError(t, svc.CreateBlock(ctx, block))
	assert.Empty(t, block.StartTime)

	res, err := svc.Create(ctx, CreateRequest{
		BookingType: model.BookingTypeHourly, EventDate: "2026-12-25", StartTime: "10:00", EndTime: "11:00",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonDailyBlock, res.Decision.Reason)

	err = svc.CreateBlock(ctx, &model.AvailabilityBlock{BlockType: model.BookingTypeHourly, StartDate: "2026-12-24", EndDate: "2026-12-24"})
	assert.True(t, errors.Is(err, ErrValidation))

	blackout := &model.BlackoutDate{StartDate: "2027-01-01", EndDate: "2027-01-01", Reason: "new year"}
	require.NoError(t, svc.CreateBlackout(ctx, blackout))
	decision, err := svc.Check(ctx, availability.Proposal{Type: model.BookingTypeDaily, Date: "2027-01-01", StartTime: "00:00", EndTime: "24:00"})
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonBlackout, decision.Reason)

	cal, err := svc.Calendar(ctx, "2026-12-01", "2027-01-31")
	require.NoError(t, err)
	assert.Len(t, cal.Blocks, 1)
	assert.Len(t, cal.Blackouts, 1)

	require.NoError(t, svc.DeleteBlock(ctx, block.ID))
	require.NoError(t, svc.DeleteBlackout(ctx, blackout.ID))
	assert.True(t, errors.Is(svc.DeleteBlackout(ctx, blackout.ID), store.ErrNotFound))

	_, err = svc.Calendar(ctx, "2027-01-31", "2026-12-01")
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = svc.Calendar(ctx, "2026-01-01", "2028-01-01")
	assert.True(t, errors.Is(err, ErrValidation))
}
