package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ScheduledJob is a unit of deferred automation written by the planner and
// executed by an external processor. RunAt and JobType never change after insert.
type ScheduledJob struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	JobType   JobType   `gorm:"size:64;not null;index:idx_jobs_booking_type,priority:2" json:"jobType"`
	BookingID string    `gorm:"size:36;not null;index:idx_jobs_booking_type,priority:1" json:"bookingId"`
	RunAt     time.Time `gorm:"not null;index:idx_jobs_due,priority:2" json:"runAt"`
	Status    JobStatus `gorm:"size:16;not null;index:idx_jobs_due,priority:1" json:"status"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	LastError *string   `gorm:"type:text" json:"lastError"`
	// LiveKey is "<bookingID>:<jobType>" while the job is pending or failed and
	// NULL otherwise. Its unique index allows one live job per booking and type.
	LiveKey   *string   `gorm:"size:128;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LiveKeyFor builds the uniqueness key for a live job.
func LiveKeyFor(bookingID string, jobType JobType) string {
	return bookingID + ":" + string(jobType)
}

// BookingEvent is an append-only audit record.
type BookingEvent struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	BookingID string         `gorm:"size:36;not null;index" json:"bookingId"`
	EventType EventType      `gorm:"size:64;not null" json:"eventType"`
	Channel   Channel        `gorm:"size:32;not null" json:"channel"`
	Metadata  datatypes.JSON `json:"metadata"`
	CreatedAt time.Time      `gorm:"not null;index" json:"createdAt"`
}

// NewEvent builds an audit record with metadata encoded as a JSON column.
// Metadata that cannot be encoded is replaced by a metadataError entry so the
// event still records that a payload was lost.
func NewEvent(bookingID string, et EventType, ch Channel, metadata map[string]any) *BookingEvent {
	ev := &BookingEvent{BookingID: bookingID, EventType: et, Channel: ch}
	if len(metadata) == 0 {
		return ev
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"metadataError": err.Error()})
	}
	ev.Metadata = datatypes.JSON(raw)
	return ev
}

// PaymentLink is what the payments provider returns for a balance request.
type PaymentLink struct {
	PaymentURL string `json:"paymentUrl"`
}
