package domain

import "time"

// JobStatus represents the lifecycle state of a summary job.
// Pending and Processing are the only non-terminal values.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further writes may happen in this state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ActiveStatuses lists the states a job may still leave.
func ActiveStatuses() []JobStatus {
	return []JobStatus{JobStatusPending, JobStatusProcessing}
}

// JobNotFoundMessage is reported for ids the store does not know.
const JobNotFoundMessage = "Job not found"

// Job is the persisted record of one repository summary run.
// Exactly one of Content and Error is set once Status is terminal.
type Job struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	RepoURL     string    `gorm:"type:text;not null" json:"repo_url"`
	CallerID    string    `gorm:"type:text;index" json:"caller_id,omitempty"`
	Status      JobStatus `gorm:"type:text;index;default:PENDING" json:"status"`
	Progress    float64   `gorm:"default:0" json:"progress"`
	Content     *string   `gorm:"type:text" json:"content,omitempty"`
	Error       *string   `gorm:"type:text" json:"error,omitempty"`
	ArtifactURL string    `gorm:"type:text" json:"artifact_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string {
	return "brief_jobs"
}

// Clone returns a deep copy so callers never share pointer fields with a store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Content != nil {
		v := *j.Content
		c.Content = &v
	}
	if j.Error != nil {
		v := *j.Error
		c.Error = &v
	}
	return &c
}

// JobView is the status object handed to callers. It is always well-formed.
type JobView struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Progress    float64   `json:"progress"`
	Content     string    `json:"content,omitempty"`
	Error       string    `json:"error,omitempty"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
}

// View converts a persisted job into its caller-facing form.
func (j *Job) View() *JobView {
	v := &JobView{
		JobID:       j.ID,
		Status:      j.Status,
		Progress:    j.Progress,
		ArtifactURL: j.ArtifactURL,
	}
	if j.Content != nil {
		v.Content = *j.Content
	}
	if j.Error != nil {
		v.Error = *j.Error
	}
	return v
}

// FailedView synthesizes a Failed status object with progress 0.
func FailedView(id, message string) *JobView {
	return &JobView{
		JobID:    id,
		Status:   JobStatusFailed,
		Progress: 0,
		Error:    message,
	}
}
