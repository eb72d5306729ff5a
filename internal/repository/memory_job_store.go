package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/timmy/repobrief/internal/domain"
)

// MemoryJobStore is a mutex-guarded in-process JobStore. Records do not survive restarts.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

// NewMemoryJobStore creates an empty MemoryJobStore.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]*domain.Job),
		now:  time.Now,
	}
}

func (s *MemoryJobStore) Create(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("create job %s: duplicate id", job.ID)
	}
	stored := job.Clone()
	now := s.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.jobs[job.ID] = stored
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryJobStore) MarkProcessing(ctx context.Context, id string, progress float64) (bool, error) {
	return s.mutate(id, func(j *domain.Job) bool {
		if progress < j.Progress {
			return false
		}
		j.Status = domain.JobStatusProcessing
		j.Progress = progress
		return true
	})
}

func (s *MemoryJobStore) UpdateProgress(ctx context.Context, id string, progress float64) (bool, error) {
	return s.mutate(id, func(j *domain.Job) bool {
		if progress < j.Progress {
			return false
		}
		j.Progress = progress
		return true
	})
}

func (s *MemoryJobStore) Complete(ctx context.Context, id, content, artifactURL string) (bool, error) {
	return s.mutate(id, func(j *domain.Job) bool {
		j.Status = domain.JobStatusCompleted
		j.Progress = 100
		j.Content = &content
		j.Error = nil
		j.ArtifactURL = artifactURL
		return true
	})
}

func (s *MemoryJobStore) Fail(ctx context.Context, id, message string) (bool, error) {
	return s.mutate(id, func(j *domain.Job) bool {
		j.Status = domain.JobStatusFailed
		j.Error = &message
		j.Content = nil
		return true
	})
}

// mutate applies fn to a non-terminal job under the write lock.
func (s *MemoryJobStore) mutate(id string, fn func(*domain.Job) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	if !fn(job) {
		return false, nil
	}
	job.UpdatedAt = s.now()
	return true, nil
}
