package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-booking-backend/internal/model"
)

// LiveJobs returns the pending or failed jobs of one family for a booking.
func (s *gormStore) LiveJobs(ctx context.Context, bookingID string, family model.JobFamily) ([]model.ScheduledJob, error) {
	var jobs []model.ScheduledJob
	err := s.db.WithContext(ctx).
		Where("booking_id = ? AND job_type IN ? AND status IN ?", bookingID, family.JobTypes(), model.LiveJobStatuses).
		Order("run_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list live %s jobs for booking %s", family, bookingID)
	}
	return jobs, nil
}

// InsertJobs writes the batch as pending jobs. A row that collides with an
// existing live job for the same booking and type is skipped, not failed, and
// reported in InsertResult.Deduplicated.
func (s *gormStore) InsertJobs(ctx context.Context, jobs []model.ScheduledJob) (InsertResult, error) {
	if len(jobs) == 0 {
		return InsertResult{}, nil
	}

	batch := make([]model.ScheduledJob, len(jobs))
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		if j.ID == "" {
			j.ID = uuid.NewString()
		}
		key := model.LiveKeyFor(j.BookingID, j.JobType)
		j.Status = model.JobPending
		j.Attempts = 0
		j.LastError = nil
		j.LiveKey = &key
		j.RunAt = j.RunAt.UTC().Truncate(time.Second)
		batch[i] = j
		ids[i] = j.ID
	}

	var stored []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&batch).Error; err != nil {
			return err
		}
		return tx.Model(&model.ScheduledJob{}).Where("id IN ?", ids).Pluck("id", &stored).Error
	})
	if err != nil {
		return InsertResult{}, errors.Wrap(err, "failed to insert scheduled jobs")
	}

	written := make(map[string]bool, len(stored))
	for _, id := range stored {
		written[id] = true
	}
	var res InsertResult
	for _, j := range batch {
		if written[j.ID] {
			res.Created = append(res.Created, j)
		} else {
			res.Deduplicated = append(res.Deduplicated, j)
		}
	}
	return res, nil
}

// CancelLiveJobs moves every live job of the family to cancelled and returns them.
func (s *gormStore) CancelLiveJobs(ctx context.Context, bookingID string, family model.JobFamily, now time.Time) ([]model.ScheduledJob, error) {
	var cancelled []model.ScheduledJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ? AND job_type IN ? AND status IN ?", bookingID, family.JobTypes(), model.LiveJobStatuses).
			Find(&cancelled).Error; err != nil {
			return err
		}
		if len(cancelled) == 0 {
			return nil
		}
		ids := make([]string, len(cancelled))
		for i := range cancelled {
			ids[i] = cancelled[i].ID
			cancelled[i].Status = model.JobCancelled
			cancelled[i].LiveKey = nil
		}
		return tx.Model(&model.ScheduledJob{}).
			Where("id IN ? AND status IN ?", ids, model.LiveJobStatuses).
			Updates(map[string]any{
				"status":     model.JobCancelled,
				"live_key":   nil,
				"updated_at": now.UTC(),
			}).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to cancel %s jobs for booking %s", family, bookingID)
	}
	return cancelled, nil
}

func (s *gormStore) JobsForBooking(ctx context.Context, bookingID string) ([]model.ScheduledJob, error) {
	var jobs []model.ScheduledJob
	if err := s.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("run_at ASC").Find(&jobs).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list jobs for booking %s", bookingID)
	}
	return jobs, nil
}

// DueJobs returns pending jobs whose run time has arrived, oldest first.
func (s *gormStore) DueJobs(ctx context.Context, now time.Time, limit int) ([]model.ScheduledJob, error) {
	if limit <= 0 {
		limit = 100
	}
	var jobs []model.ScheduledJob
	err := s.db.WithContext(ctx).
		Where("status = ? AND run_at <= ?", model.JobPending, now.UTC()).
		Order("run_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list due jobs")
	}
	return jobs, nil
}

func (s *gormStore) CompleteJob(ctx context.Context, id string, now time.Time) error {
	return s.transition(ctx, id, model.JobCompleted, now, nil)
}

// FailJob records a processor failure. The job stays live so a forced
// reschedule can replace it.
func (s *gormStore) FailJob(ctx context.Context, id string, message string, now time.Time) error {
	return s.transition(ctx, id, model.JobFailed, now, map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": message,
	})
}

// RequeueJob hands a failed job back to the processor.
func (s *gormStore) RequeueJob(ctx context.Context, id string, now time.Time) error {
	return s.transition(ctx, id, model.JobPending, now, nil)
}

func (s *gormStore) transition(ctx context.Context, id string, to model.JobStatus, now time.Time, extra map[string]any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job model.ScheduledJob
		if err := tx.Where("id = ?", id).First(&job).Error; err != nil {
			return notFound(err, "job %s", id)
		}
		if !job.Status.CanTransitionTo(to) {
			return errors.Wrapf(ErrInvalidTransition, "job %s: %s -> %s", id, job.Status, to)
		}

		updates := map[string]any{"status": to, "updated_at": now.UTC()}
		if !to.Live() {
			updates["live_key"] = nil
		}
		for k, v := range extra {
			updates[k] = v
		}
		res := tx.Model(&model.ScheduledJob{}).Where("id = ? AND status = ?", id, job.Status).Updates(updates)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "failed to update job %s", id)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(ErrInvalidTransition, "job %s changed concurrently", id)
		}
		return nil
	})
}
