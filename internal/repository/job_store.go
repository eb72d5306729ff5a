package repository

import (
	"context"

	"github.com/timmy/repobrief/internal/domain"
)

// JobStore persists job records. Every mutating method is conditional on the
// job still being non-terminal and reports whether the write was applied.
type JobStore interface {
	// Create inserts a new job record.
	Create(ctx context.Context, job *domain.Job) error
	// Get returns a copy of the job, or domain.ErrJobNotFound.
	Get(ctx context.Context, id string) (*domain.Job, error)
	// MarkProcessing moves a non-terminal job to Processing with the given progress.
	MarkProcessing(ctx context.Context, id string, progress float64) (bool, error)
	// UpdateProgress raises progress of a non-terminal job; lower values are ignored.
	UpdateProgress(ctx context.Context, id string, progress float64) (bool, error)
	// Complete records the summary and moves the job to Completed.
	Complete(ctx context.Context, id, content, artifactURL string) (bool, error)
	// Fail records message and moves the job to Failed.
	Fail(ctx context.Context, id, message string) (bool, error)
}

func activeStatusValues() []string {
	active := domain.ActiveStatuses()
	out := make([]string, len(active))
	for i, s := range active {
		out[i] = string(s)
	}
	return out
}
