package domain

import "errors"

var (
	// ErrSourceUnavailable means the hosting API could not be reached or the repository does not exist.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrInvalidReference means the repository locator is malformed.
	ErrInvalidReference = errors.New("invalid repository reference")
	// ErrCancelled means the run was stopped by its caller.
	ErrCancelled = errors.New("cancelled")
	// ErrTimedOut means the run exceeded its wall-clock limit.
	ErrTimedOut = errors.New("timed out")
	// ErrPersistence means a job store write kept failing after retries.
	ErrPersistence = errors.New("persistence failure")
	// ErrJobNotFound means the job store has no record for the id.
	ErrJobNotFound = errors.New("job not found")
)
