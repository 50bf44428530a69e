package mq

import (
	"context"

	"go.uber.org/zap"

	"venue-booking-backend/internal/model"
)

// RoutingKeyPrefix prefixes every audit routing key; the event type follows.
const RoutingKeyPrefix = "booking.event."

// JSONPublisher is satisfied by *Publisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// EventWriter is the durable audit log.
type EventWriter interface {
	AppendEvent(ctx context.Context, ev *model.BookingEvent) error
}

// AuditSink writes each event to the store and then publishes it. The store
// write decides the outcome; publishing is best effort.
type AuditSink struct {
	store EventWriter
	pub   JSONPublisher
	log   *zap.SugaredLogger
}

// NewAuditSink wraps store. A nil pub makes the sink a plain store writer.
func NewAuditSink(store EventWriter, pub JSONPublisher, log *zap.SugaredLogger) *AuditSink {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AuditSink{store: store, pub: pub, log: log}
}

func (s *AuditSink) AppendEvent(ctx context.Context, ev *model.BookingEvent) error {
	if err := s.store.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if s.pub == nil {
		return nil
	}
	if err := s.pub.PublishJSON(ctx, RoutingKey(ev.EventType), ev); err != nil {
		s.log.Warnw("failed to publish audit event", "booking", ev.BookingID, "event", ev.EventType, "error", err)
	}
	return nil
}

// RoutingKey returns the topic key for an event type.
func RoutingKey(et model.EventType) string {
	return RoutingKeyPrefix + string(et)
}
