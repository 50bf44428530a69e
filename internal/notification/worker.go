package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"venue-booking-backend/internal/model"
	"venue-booking-backend/internal/store"
)

// ErrQueueFull is returned when a task cannot be queued without blocking.
var ErrQueueFull = errors.New("notification queue is full")

// TaskKind selects what a worker does with a task.
type TaskKind string

const (
	TaskCRMSync    TaskKind = "crm_sync"
	TaskStaffAlert TaskKind = "staff_alert"
)

// Task is one unit of outbound work.
type Task struct {
	Kind      TaskKind
	BookingID string
	Message   string
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SnapshotSyncer performs the actual CRM call.
type SnapshotSyncer interface {
	SyncBookingSnapshot(ctx context.Context, bookingID string) error
}

// WorkerPool runs CRM syncs and staff alerts off the request path. It
// implements the planner's fire-and-forget collaborators by queueing.
type WorkerPool struct {
	size    int
	tasks   chan Task
	subs    store.SubscriptionStore
	crm     SnapshotSyncer
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.SugaredLogger
}

// NewWorkerPool creates a new worker pool. crm may be nil when no CRM is configured.
func NewWorkerPool(size, queueSize int, subs store.SubscriptionStore, crm SnapshotSyncer, webpushOptions *webpush.Options, log *zap.SugaredLogger) *WorkerPool {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if queueSize < size {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		tasks:   make(chan Task, queueSize),
		subs:    subs,
		crm:     crm,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debugw("notification worker started", "worker", id)
	for {
		select {
		case task := <-wp.tasks:
			wp.handle(ctx, task)
		case <-ctx.Done():
			wp.log.Debugw("notification worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues a task without blocking.
func (wp *WorkerPool) Dispatch(task Task) error {
	select {
	case wp.tasks <- task:
		return nil
	default:
		return errors.Wrapf(ErrQueueFull, "%s for booking %s", task.Kind, task.BookingID)
	}
}

// SyncBookingSnapshot queues a CRM sync.
func (wp *WorkerPool) SyncBookingSnapshot(_ context.Context, bookingID string) error {
	if wp.crm == nil {
		return nil
	}
	return wp.Dispatch(Task{Kind: TaskCRMSync, BookingID: bookingID})
}

// Alert queues a push alert to every staff subscription.
func (wp *WorkerPool) Alert(_ context.Context, bookingID, message string) error {
	return wp.Dispatch(Task{Kind: TaskStaffAlert, BookingID: bookingID, Message: message})
}

func (wp *WorkerPool) handle(ctx context.Context, task Task) {
	switch task.Kind {
	case TaskCRMSync:
		if err := wp.crm.SyncBookingSnapshot(ctx, task.BookingID); err != nil {
			wp.log.Warnw("crm snapshot sync failed", "booking", task.BookingID, "error", err)
		}
	case TaskStaffAlert:
		wp.alertStaff(ctx, task)
	default:
		wp.log.Warnw("unknown notification task", "kind", task.Kind)
	}
}

type alertPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	BookingID string `json:"bookingId"`
}

func (wp *WorkerPool) alertStaff(ctx context.Context, task Task) {
	subscriptions, err := wp.subs.StaffSubscriptions(ctx)
	if err != nil {
		wp.log.Errorw("failed to load staff subscriptions", "error", err)
		return
	}
	if len(subscriptions) == 0 {
		wp.log.Warnw("no staff subscribed for alerts", "booking", task.BookingID, "message", task.Message)
		return
	}

	payload, err := json.Marshal(alertPayload{Title: "Booking needs attention", Body: task.Message, BookingID: task.BookingID})
	if err != nil {
		wp.log.Errorw("failed to encode alert", "error", err)
		return
	}
	wp.log.Infow("sending staff alert", "booking", task.BookingID, "subscriptions", len(subscriptions))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.StaffSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warnw("failed to send push notification", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.log.Infow("staff subscription expired, deleting", "endpoint", sub.Endpoint)
		if err := wp.subs.DeleteStaffSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Warnw("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
