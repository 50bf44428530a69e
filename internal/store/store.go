package store

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-booking-backend/internal/model"
)

// BookingStore persists bookings.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *model.Booking, block *model.AvailabilityBlock, admit Admit) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	SetPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error
	SetLifecycleStatus(ctx context.Context, id string, status model.LifecycleStatus) error
	SetHostReportStep(ctx context.Context, id string, step model.HostReportStep) error
	MarkHostReportSubmitted(ctx context.Context, id string, at time.Time) error
	ActiveBookingsFrom(ctx context.Context, fromDate string) ([]model.Booking, error)
}

// HoldStore persists availability blocks and blackout dates.
type HoldStore interface {
	Occupants(ctx context.Context, date string) (Occupants, error)
	Calendar(ctx context.Context, fromDate, toDate string) (Occupants, error)
	CreateBlock(ctx context.Context, b *model.AvailabilityBlock) error
	DeleteBlock(ctx context.Context, id string) error
	DeleteBlocksForBooking(ctx context.Context, bookingID string) (int64, error)
	CreateBlackout(ctx context.Context, b *model.BlackoutDate) error
	DeleteBlackout(ctx context.Context, id string) error
}

// JobStore is the durable job contract shared with the external processor.
type JobStore interface {
	LiveJobs(ctx context.Context, bookingID string, family model.JobFamily) ([]model.ScheduledJob, error)
	InsertJobs(ctx context.Context, jobs []model.ScheduledJob) (InsertResult, error)
	CancelLiveJobs(ctx context.Context, bookingID string, family model.JobFamily, now time.Time) ([]model.ScheduledJob, error)
	JobsForBooking(ctx context.Context, bookingID string) ([]model.ScheduledJob, error)
	DueJobs(ctx context.Context, now time.Time, limit int) ([]model.ScheduledJob, error)
	CompleteJob(ctx context.Context, id string, now time.Time) error
	FailJob(ctx context.Context, id string, message string, now time.Time) error
	RequeueJob(ctx context.Context, id string, now time.Time) error
}

// AuditStore appends and reads booking events.
type AuditStore interface {
	AppendEvent(ctx context.Context, ev *model.BookingEvent) error
	EventsForBooking(ctx context.Context, bookingID string) ([]model.BookingEvent, error)
}

// SubscriptionStore persists staff push subscriptions.
type SubscriptionStore interface {
	SaveStaffSubscription(ctx context.Context, sub *model.StaffSubscription) error
	DeleteStaffSubscription(ctx context.Context, endpoint string) error
	StaffSubscriptions(ctx context.Context) ([]model.StaffSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	BookingStore
	HoldStore
	JobStore
	AuditStore
	SubscriptionStore
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
	// createMu serializes booking inserts within the process. SQLite has no
	// row locks, so the date lock alone only guards postgres and mysql.
	createMu sync.Mutex
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for migrations and tests.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CreateBooking inserts the booking and, for internal bookings, its matching hold
// in one transaction. When admit is set it is called with the occupants of the
// booking's date, read after the date lock is held; an error from admit aborts
// the insert and is returned unchanged.
func (s *gormStore) CreateBooking(ctx context.Context, b *model.Booking, block *model.AvailabilityBlock, admit Admit) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.createMu.Lock()
	defer s.createMu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if admit != nil {
			if err := lockDate(tx, b.EventDate); err != nil {
				return err
			}
			occ, err := occupantsIn(tx, b.EventDate, b.EventDate)
			if err != nil {
				return err
			}
			if err := admit(occ); err != nil {
				return err
			}
		}
		if err := tx.Create(b).Error; err != nil {
			return errors.Wrapf(err, "failed to create booking %s", b.ID)
		}
		if block == nil {
			return nil
		}
		if block.ID == "" {
			block.ID = uuid.NewString()
		}
		block.BookingID = &b.ID
		if err := tx.Create(block).Error; err != nil {
			return errors.Wrapf(err, "failed to create block for booking %s", b.ID)
		}
		return nil
	})
}

// lockDate takes the row lock for one event date, creating the row on first use.
func lockDate(tx *gorm.DB, date string) error {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.DateLock{EventDate: date}).Error; err != nil {
		return errors.Wrapf(err, "failed to create date lock for %s", date)
	}
	q := tx.Model(&model.DateLock{})
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var lock model.DateLock
	if err := q.Where("event_date = ?", date).Take(&lock).Error; err != nil {
		return errors.Wrapf(err, "failed to lock date %s", date)
	}
	return nil
}

func (s *gormStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, notFound(err, "booking %s", id)
	}
	return &b, nil
}

func (s *gormStore) SetPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	return s.updateBooking(ctx, id, map[string]any{"payment_status": status})
}

func (s *gormStore) SetLifecycleStatus(ctx context.Context, id string, status model.LifecycleStatus) error {
	return s.updateBooking(ctx, id, map[string]any{"lifecycle_status": status})
}

func (s *gormStore) SetHostReportStep(ctx context.Context, id string, step model.HostReportStep) error {
	return s.updateBooking(ctx, id, map[string]any{"host_report_step": step})
}

func (s *gormStore) MarkHostReportSubmitted(ctx context.Context, id string, at time.Time) error {
	return s.updateBooking(ctx, id, map[string]any{"host_report_submitted_at": at.UTC()})
}

// ActiveBookingsFrom lists bookings from fromDate onward that still carry automation.
func (s *gormStore) ActiveBookingsFrom(ctx context.Context, fromDate string) ([]model.Booking, error) {
	var out []model.Booking
	err := s.db.WithContext(ctx).
		Where("event_date >= ?", fromDate).
		Where("lifecycle_status NOT IN ?", []model.LifecycleStatus{model.LifecycleClosed, model.LifecycleCancelled}).
		Order("event_date ASC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active bookings")
	}
	return out, nil
}

func (s *gormStore) updateBooking(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.Booking{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to update booking %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "booking %s", id)
	}
	return nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
