package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-reservation-backend/internal/model"
)

const maxErrorLen = 512

// EnqueueJob arms a one-shot job. It reports false when a job with the same
// name already exists, in which case nothing is written.
func (s *gormStore) EnqueueJob(ctx context.Context, job *model.ScheduledJob) (bool, error) {
	job.RunAt = job.RunAt.UTC().Truncate(time.Second)
	if job.Status == "" {
		job.Status = model.JobPending
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(job)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ClaimDueJobs moves up to limit due pending jobs to running and returns
// them. Rows locked by another runner are skipped on PostgreSQL.
func (s *gormStore) ClaimDueJobs(ctx context.Context, now time.Time, limit int) ([]model.ScheduledJob, error) {
	var jobs []model.ScheduledJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND run_at <= ?", model.JobPending, now.UTC()).
			Order("run_at").Order("id").
			Limit(limit).
			Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}

		ids := make([]int64, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
		}
		return tx.Model(&model.ScheduledJob{}).
			Where("id IN ? AND status = ?", ids, model.JobPending).
			Updates(map[string]any{
				"status":   model.JobRunning,
				"attempts": gorm.Expr("attempts + 1"),
			}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	for i := range jobs {
		jobs[i].Status = model.JobRunning
		jobs[i].Attempts++
	}
	return jobs, nil
}

func (s *gormStore) MarkJobDone(ctx context.Context, id int64) error {
	return s.setJob(ctx, id, map[string]any{"status": model.JobDone, "last_error": ""})
}

func (s *gormStore) RescheduleJob(ctx context.Context, id int64, runAt time.Time, lastErr string) error {
	return s.setJob(ctx, id, map[string]any{
		"status":     model.JobPending,
		"run_at":     runAt.UTC().Truncate(time.Second),
		"last_error": truncate(lastErr, maxErrorLen),
	})
}

func (s *gormStore) MarkJobFailed(ctx context.Context, id int64, lastErr string) error {
	return s.setJob(ctx, id, map[string]any{"status": model.JobFailed, "last_error": truncate(lastErr, maxErrorLen)})
}

// ResetRunningJobs returns jobs left running by a crashed process to pending.
func (s *gormStore) ResetRunningJobs(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&model.ScheduledJob{}).
		Where("status = ?", model.JobRunning).
		Update("status", model.JobPending)
	return res.RowsAffected, translate(res.Error)
}

func (s *gormStore) setJob(ctx context.Context, id int64, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.ScheduledJob{ID: id}).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
