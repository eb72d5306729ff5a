package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/repobrief/internal/domain"
	"gorm.io/gorm"
)

// JobRepository is the gorm-backed JobStore.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle with the brief_jobs table migrated.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job %s: %w", job.ID, err)
	}
	return nil
}

// Get retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.Job: job record if found.
//   - error: domain.ErrJobNotFound when absent, other errors on lookup failure.
func (r *JobRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

// MarkProcessing moves a non-terminal job to Processing.
func (r *JobRepository) MarkProcessing(ctx context.Context, id string, progress float64) (bool, error) {
	return r.updateActive(ctx, id, r.active(ctx, id).Where("progress <= ?", progress), map[string]interface{}{
		"status":   domain.JobStatusProcessing,
		"progress": progress,
	})
}

// UpdateProgress raises the progress of a non-terminal job.
// The row is left untouched when the stored progress is already higher.
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, progress float64) (bool, error) {
	return r.updateActive(ctx, id, r.active(ctx, id).Where("progress <= ?", progress), map[string]interface{}{
		"progress": progress,
	})
}

// Complete stores the summary and marks the job Completed.
func (r *JobRepository) Complete(ctx context.Context, id, content, artifactURL string) (bool, error) {
	return r.updateActive(ctx, id, r.active(ctx, id), map[string]interface{}{
		"status":       domain.JobStatusCompleted,
		"progress":     100,
		"content":      content,
		"error":        nil,
		"artifact_url": artifactURL,
	})
}

// Fail stores the error message and marks the job Failed.
func (r *JobRepository) Fail(ctx context.Context, id, message string) (bool, error) {
	return r.updateActive(ctx, id, r.active(ctx, id), map[string]interface{}{
		"status":  domain.JobStatusFailed,
		"error":   message,
		"content": nil,
	})
}

// active scopes a query to the job while it is still non-terminal.
func (r *JobRepository) active(ctx context.Context, id string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&domain.Job{}).
		Where("id = ? AND status IN ?", id, activeStatusValues())
}

func (r *JobRepository) updateActive(ctx context.Context, id string, q *gorm.DB, values map[string]interface{}) (bool, error) {
	values["updated_at"] = time.Now()
	res := q.Updates(values)
	if res.Error != nil {
		return false, fmt.Errorf("update job %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
