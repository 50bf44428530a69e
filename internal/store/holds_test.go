package store

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-booking-backend/internal/model"
)

func hourly(date, start, end string) *model.Booking {
	return &model.Booking{
		BookingType:     model.BookingTypeHourly,
		EventDate:       date,
		StartTime:       start,
		EndTime:         end,
		PaymentStatus:   model.PaymentPending,
		LifecycleStatus: model.LifecyclePending,
	}
}

func TestCreateBooking_WithInternalHold(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	b := hourly("2026-11-02", "10:00", "12:00")
	b.Internal = true
	block := &model.AvailabilityBlock{
		BlockType: model.BookingTypeHourly,
		StartDate: b.EventDate,
		EndDate:   b.EventDate,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Reason:    "internal booking",
	}
	require.NoError(t, s.CreateBooking(ctx, b, block, nil))
	require.NotEmpty(t, b.ID)
	require.NotNil(t, block.BookingID)
	assert.Equal(t, b.ID, *block.BookingID)

	got, err := s.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Internal)

	n, err := s.DeleteBlocksForBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOccupants(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	onDate := hourly("2026-11-02", "10:00", "12:00")
	require.NoError(t, s.CreateBooking(ctx, onDate, nil, nil))
	otherDay := hourly("2026-11-03", "10:00", "12:00")
	require.NoError(t, s.CreateBooking(ctx, otherDay, nil, nil))
	cancelled := hourly("2026-11-02", "14:00", "16:00")
	cancelled.LifecycleStatus = model.LifecycleCancelled
	require.NoError(t, s.CreateBooking(ctx, cancelled, nil, nil))

	require.NoError(t, s.CreateBlock(ctx, &model.AvailabilityBlock{
		BlockType: model.BookingTypeDaily, StartDate: "2026-11-01", EndDate: "2026-11-05", Reason: "renovation",
	}))
	require.NoError(t, s.CreateBlock(ctx, &model.AvailabilityBlock{
		BlockType: model.BookingTypeDaily, StartDate: "2026-11-03", EndDate: "2026-11-03",
	}))
	require.NoError(t, s.CreateBlackout(ctx, &model.BlackoutDate{StartDate: "2026-11-02", EndDate: "2026-11-02", Reason: "holiday"}))

	occ, err := s.Occupants(ctx, "2026-11-02")
	require.NoError(t, err)
	require.Len(t, occ.Bookings, 1)
	assert.Equal(t, onDate.ID, occ.Bookings[0].ID)
	require.Len(t, occ.Blocks, 1)
	assert.Equal(t, "renovation", occ.Blocks[0].Reason)
	assert.Len(t, occ.Blackouts, 1)

	cal, err := s.Calendar(ctx, "2026-11-02", "2026-11-03")
	require.NoError(t, err)
	assert.Len(t, cal.Bookings, 2)
	assert.Len(t, cal.Blocks, 2)
	assert.Len(t, cal.Blackouts, 1)
}

func TestBookingUpdates(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	b := hourly("2026-11-02", "10:00", "12:00")
	require.NoError(t, s.CreateBooking(ctx, b, nil, nil))

	require.NoError(t, s.SetPaymentStatus(ctx, b.ID, model.PaymentDepositPaid))
	require.NoError(t, s.SetLifecycleStatus(ctx, b.ID, model.LifecyclePreEventReady))
	require.NoError(t, s.SetHostReportStep(ctx, b.ID, model.HostReportDuringEvent))
	submitted := time.Date(2026, 11, 2, 13, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkHostReportSubmitted(ctx, b.ID, submitted))

	got, err := s.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentDepositPaid, got.PaymentStatus)
	assert.Equal(t, model.LifecyclePreEventReady, got.LifecycleStatus)
	assert.Equal(t, model.HostReportDuringEvent, got.HostReportStep)
	require.NotNil(t, got.HostReportSubmittedAt)
	assert.True(t, got.HostReportSubmittedAt.Equal(submitted))

	_, err = s.GetBooking(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestActiveBookingsFrom(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	past := hourly("2026-10-01", "10:00", "12:00")
	upcoming := hourly("2026-11-02", "10:00", "12:00")
	closed := hourly("2026-11-04", "10:00", "12:00")
	closed.LifecycleStatus = model.LifecycleClosed
	later := hourly("2026-12-24", "18:00", "23:00")
	for _, b := range []*model.Booking{past, upcoming, closed, later} {
		require.NoError(t, s.CreateBooking(ctx, b, nil, nil))
	}

	got, err := s.ActiveBookingsFrom(ctx, "2026-10-18")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, upcoming.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)
}

func TestStaffSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	sub := &model.StaffSubscription{Endpoint: "https://push.example/abc", P256DH: "k1", Auth: "a1", Label: "front desk"}
	require.NoError(t, s.SaveStaffSubscription(ctx, sub))
	sub.P256DH = "k2"
	require.NoError(t, s.SaveStaffSubscription(ctx, sub))

	subs, err := s.StaffSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "k2", subs[0].P256DH)

	require.NoError(t, s.DeleteStaffSubscription(ctx, sub.Endpoint))
	subs, err = s.StaffSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestEventsForBooking(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	t0 := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendEvent(ctx, &model.BookingEvent{BookingID: "b-1", EventType: model.EventBookingCreated, Channel: model.ChannelAdmin, CreatedAt: t0}))
	require.NoError(t, s.AppendEvent(ctx, &model.BookingEvent{BookingID: "b-1", EventType: model.EventJobsScheduled, Channel: model.ChannelPlanner, CreatedAt: t0.Add(time.Second)}))
	require.NoError(t, s.AppendEvent(ctx, &model.BookingEvent{BookingID: "b-2", EventType: model.EventBookingCreated, Channel: model.ChannelAdmin, CreatedAt: t0}))

	events, err := s.EventsForBooking(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventBookingCreated, events[0].EventType)
	assert.Equal(t, model.EventJobsScheduled, events[1].EventType)
}

func TestCreateBooking_AdmitSeesCommittedOccupants(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	errTaken := errors.New("taken")

	admitFree := func(occ Occupants) error {
		if len(occ.Bookings) > 0 {
			return errTaken
		}
		return nil
	}

	first := hourly("2026-11-05", "10:00", "12:00")
	require.NoError(t, s.CreateBooking(ctx, first, nil, admitFree))

	var seen []string
	second := hourly("2026-11-05", "13:00", "14:00")
	err := s.CreateBooking(ctx, second, nil, func(occ Occupants) error {
		for _, b := range occ.Bookings {
			seen = append(seen, b.ID)
		}
		return admitFree(occ)
	})
	assert.True(t, errors.Is(err, errTaken))
	assert.Equal(t, []string{first.ID}, seen)

	occ, err := s.Occupants(ctx, "2026-11-05")
	require.NoError(t, err)
	require.Len(t, occ.Bookings, 1)
	assert.Equal(t, first.ID, occ.Bookings[0].ID)

	// The lock row for a date is reused across inserts.
	other := hourly("2026-11-05", "15:00", "16:00")
	require.NoError(t, s.CreateBooking(ctx, other, nil, func(Occupants) error { return nil }))
}
