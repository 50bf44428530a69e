package collab

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"venue-booking-backend/config"
	"venue-booking-backend/internal/model"
)

// PaymentClient requests balance payment links from the payments provider.
type PaymentClient struct {
	c *client
}

// NewPaymentClient creates a client for cfg.
func NewPaymentClient(cfg config.UpstreamConfig, log *zap.SugaredLogger) *PaymentClient {
	return &PaymentClient{c: newClient(cfg, log)}
}

type balanceLinkRequest struct {
	BookingID string `json:"bookingId"`
	Kind      string `json:"kind"`
}

// CreateBalancePaymentLink asks the provider for a link covering the booking's balance.
func (p *PaymentClient) CreateBalancePaymentLink(ctx context.Context, bookingID string) (model.PaymentLink, error) {
	var link model.PaymentLink
	if err := p.c.postJSON(ctx, "/balance-links", balanceLinkRequest{BookingID: bookingID, Kind: "balance"}, &link); err != nil {
		return model.PaymentLink{}, errors.Wrapf(err, "balance link for booking %s", bookingID)
	}
	if link.PaymentURL == "" {
		return model.PaymentLink{}, errors.Mark(errors.Newf("balance link for booking %s: empty paymentUrl", bookingID), ErrUpstream)
	}
	return link, nil
}
