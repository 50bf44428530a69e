package collab

import (
	"context"
	"net/url"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"venue-booking-backend/config"
	"venue-booking-backend/internal/model"
)

// BookingGetter loads the booking whose snapshot is pushed.
type BookingGetter interface {
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
}

// CRMClient pushes booking snapshots to the CRM relay.
type CRMClient struct {
	c        *client
	bookings BookingGetter
}

// NewCRMClient creates a client for cfg.
func NewCRMClient(cfg config.UpstreamConfig, bookings BookingGetter, log *zap.SugaredLogger) *CRMClient {
	return &CRMClient{c: newClient(cfg, log), bookings: bookings}
}

// SyncBookingSnapshot sends the current stored state of the booking.
func (c *CRMClient) SyncBookingSnapshot(ctx context.Context, bookingID string) error {
	b, err := c.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := c.c.postJSON(ctx, "/bookings/"+url.PathEscape(bookingID)+"/snapshot", b, nil); err != nil {
		return errors.Wrapf(err, "crm snapshot for booking %s", bookingID)
	}
	return nil
}
