package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/logger"
	"github.com/timmy/repobrief/internal/repository"
	"github.com/timmy/repobrief/internal/source"
	"github.com/timmy/repobrief/internal/storage"
)

const (
	defaultJobTimeout    = 10 * time.Minute
	terminalWriteTimeout = 30 * time.Second
	artifactContentType  = "text/markdown; charset=utf-8"

	CancelledMessage = "Job cancelled by user"
	ShutdownMessage  = "Job interrupted by server shutdown"
)

// ErrShuttingDown is returned by Submit once Shutdown has begun.
var ErrShuttingDown = errors.New("job controller is shutting down")

var (
	errCancelledByUser = fmt.Errorf("%w by user", domain.ErrCancelled)
	errShuttingDown    = fmt.Errorf("%w: server shutting down", domain.ErrCancelled)
)

// Runner executes the summary pipeline for one repository.
type Runner interface {
	Run(ctx context.Context, repo domain.RepoRef, report ProgressFunc) (*Result, error)
}

// JobControllerConfig configures a JobController.
type JobControllerConfig struct {
	Timeout time.Duration
	Retry   RetryPolicy
	// Artifacts is optional; when set, completed summaries are uploaded under ArtifactPrefix.
	Artifacts      storage.ObjectStorage
	ArtifactPrefix string
}

// liveJob is the in-process handle of a running job.
type liveJob struct {
	cancel context.CancelCauseFunc

	mu       sync.Mutex
	progress float64
}

// JobController owns the lifecycle of asynchronous summary jobs.
type JobController struct {
	store  repository.JobStore
	runner Runner
	cfg    JobControllerConfig

	mu      sync.Mutex
	live    map[string]*liveJob
	closing bool
	wg      sync.WaitGroup

	baseCtx context.Context
	stop    context.CancelCauseFunc
	now     func() time.Time
}

// NewJobController creates a JobController.
func NewJobController(store repository.JobStore, runner Runner, cfg JobControllerConfig) *JobController {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultJobTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.ArtifactPrefix == "" {
		cfg.ArtifactPrefix = "briefs"
	}
	base, stop := context.WithCancelCause(context.Background())
	return &JobController{
		store:   store,
		runner:  runner,
		cfg:     cfg,
		live:    make(map[string]*liveJob),
		baseCtx: base,
		stop:    stop,
		now:     time.Now,
	}
}

// TimeoutMessage is the failure text of a job that overran the deadline.
func (c *JobController) TimeoutMessage() string {
	return fmt.Sprintf("Job timed out after %s", c.cfg.Timeout)
}

// Submit validates repoURL, records a Pending job and starts it in the background.
// Parameters:
//   - ctx: request context; it bounds the initial write only.
//   - repoURL: repository locator.
//   - callerID: opaque caller identity stored with the job.
// Returns:
//   - string: the new job id.
//   - error: domain.ErrInvalidReference before any write, ErrShuttingDown, or domain.ErrPersistence.
func (c *JobController) Submit(ctx context.Context, repoURL, callerID string) (string, error) {
	repo, err := source.ParseLocator(repoURL)
	if err != nil {
		return "", err
	}
	if c.isClosing() {
		return "", ErrShuttingDown
	}

	job := &domain.Job{
		ID:       uuid.NewString(),
		RepoURL:  strings.TrimSpace(repoURL),
		CallerID: callerID,
		Status:   domain.JobStatusPending,
	}
	if err := c.cfg.Retry.Do(ctx, "create job", func(ctx context.Context) error {
		return c.store.Create(ctx, job)
	}); err != nil {
		return "", err
	}

	jobCtx := logger.FromContext(ctx).WithContext(c.baseCtx)
	jobCtx = logger.SetRepo(logger.SetJobID(jobCtx, job.ID), repo.FullName())
	jobCtx, cancel := context.WithCancelCause(jobCtx)

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		cancel(errShuttingDown)
		c.finishFailed(jobCtx, job.ID, ShutdownMessage)
		return "", ErrShuttingDown
	}
	c.live[job.ID] = &liveJob{cancel: cancel}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.execute(jobCtx, job.ID, repo)

	logger.With(logger.Fields{logger.FieldJobID: job.ID, logger.FieldCallerID: callerID}).
		Info(ctx, "Submitted job for %s", repo.FullName())
	return job.ID, nil
}

// execute drives one job from Pending to a terminal state.
func (c *JobController) execute(ctx context.Context, id string, repo domain.RepoRef) {
	defer c.wg.Done()
	defer c.release(id)

	started, err := c.persist(ctx, "mark processing", func(ctx context.Context) (bool, error) {
		return c.store.MarkProcessing(ctx, id, StageStarted.Progress())
	})
	if err != nil {
		c.finishFailed(ctx, id, c.failureMessage(ctx, err))
		return
	}
	if !started {
		logger.CtxInfo(ctx, "Job left Pending before it started")
		return
	}
	c.recordProgress(id, StageStarted.Progress())

	runCtx, cancelRun := context.WithTimeoutCause(ctx, c.cfg.Timeout, domain.ErrTimedOut)
	defer cancelRun()

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.runner.Run(runCtx, repo, c.progressReporter(runCtx, id))
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			c.finishFailed(ctx, id, c.failureMessage(runCtx, out.err))
			return
		}
		c.finishCompleted(ctx, id, out.result.Content)
	case <-runCtx.Done():
		c.finishFailed(ctx, id, c.failureMessage(runCtx, context.Cause(runCtx)))
	}
}

// progressReporter writes checkpoints that move progress forward.
// A job found terminal in the store stops the run.
func (c *JobController) progressReporter(ctx context.Context, id string) ProgressFunc {
	return func(stage Stage) error {
		lj := c.lookup(id)
		if lj == nil {
			return fmt.Errorf("%w: job %s is no longer live", domain.ErrCancelled, id)
		}
		p := stage.Progress()

		lj.mu.Lock()
		defer lj.mu.Unlock()
		if p <= lj.progress {
			return nil
		}

		applied, err := c.persist(ctx, "update progress", func(ctx context.Context) (bool, error) {
			return c.store.UpdateProgress(ctx, id, p)
		})
		if err != nil {
			return err
		}
		if !applied {
			job, err := c.store.Get(ctx, id)
			if err == nil && job.Status.Terminal() {
				return fmt.Errorf("%w: job %s is already %s", domain.ErrCancelled, id, job.Status)
			}
			return nil
		}
		lj.progress = p

		logger.With(logger.Fields{logger.FieldStage: string(stage)}).
			WithProgress(p).
			Debug(ctx, "Checkpoint reached")
		return nil
	}
}

func (c *JobController) finishCompleted(ctx context.Context, id, content string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()

	artifactURL := c.publish(writeCtx, id, content)
	applied, err := c.persist(writeCtx, "complete job", func(ctx context.Context) (bool, error) {
		return c.store.Complete(ctx, id, content, artifactURL)
	})
	if err != nil {
		logger.CtxError(ctx, "Failed to record completion: %v", err)
		c.finishFailed(ctx, id, err.Error())
		return
	}
	if !applied {
		logger.CtxInfo(ctx, "Job already terminal, discarding result")
		return
	}
	logger.With(logger.Fields{logger.FieldStatus: string(domain.JobStatusCompleted)}).
		WithProgress(StageCompleted.Progress()).
		Info(ctx, "Job completed")
}

func (c *JobController) finishFailed(ctx context.Context, id, message string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()

	applied, err := c.persist(writeCtx, "fail job", func(ctx context.Context) (bool, error) {
		return c.store.Fail(ctx, id, message)
	})
	if err != nil {
		logger.CtxError(ctx, "Failed to record failure %q: %v", message, err)
		return
	}
	if applied {
		logger.With(logger.Fields{logger.FieldStatus: string(domain.JobStatusFailed)}).
			Warn(ctx, "Job failed: %s", message)
	}
}

// publish uploads content to the artifact store and returns its URL, or "" when
// no store is configured or the upload fails.
func (c *JobController) publish(ctx context.Context, id, content string) string {
	if c.cfg.Artifacts == nil {
		return ""
	}
	key := storage.ArtifactKey(c.cfg.ArtifactPrefix, id)
	if err := c.cfg.Artifacts.Upload(ctx, key, strings.NewReader(content), int64(len(content)), artifactContentType); err != nil {
		logger.CtxWarn(ctx, "Artifact upload failed for %s: %v", key, err)
		return ""
	}
	return c.cfg.Artifacts.GetURL(key)
}

// failureMessage maps a run error to the text stored on the job.
func (c *JobController) failureMessage(ctx context.Context, err error) string {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, domain.ErrTimedOut), errors.Is(err, domain.ErrTimedOut):
		return c.TimeoutMessage()
	case errors.Is(cause, errCancelledByUser):
		return CancelledMessage
	case errors.Is(cause, errShuttingDown):
		return ShutdownMessage
	case err != nil:
		return err.Error()
	default:
		return "Job failed"
	}
}

// Cancel stops a live job and marks it Failed.
// Returns false when no live job with that id exists; nothing is written then.
func (c *JobController) Cancel(ctx context.Context, id string) bool {
	lj := c.lookup(id)
	if lj == nil {
		return false
	}

	// The Failed write precedes cancel; the run's own terminal write then
	// finds the job already terminal.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()
	applied, err := c.persist(writeCtx, "cancel job", func(ctx context.Context) (bool, error) {
		return c.store.Fail(ctx, id, CancelledMessage)
	})
	lj.cancel(errCancelledByUser)
	if err != nil {
		logger.With(logger.Fields{logger.FieldJobID: id}).Error(ctx, "Failed to record cancellation: %v", err)
		return true
	}
	if applied {
		logger.With(logger.Fields{logger.FieldJobID: id}).Info(ctx, "Job cancelled")
	}
	return applied
}

// Status returns the persisted state of a job. It never fails: unknown ids and
// unreadable records come back as a synthesized Failed view.
func (c *JobController) Status(ctx context.Context, id string) *domain.JobView {
	job, err := c.store.Get(ctx, id)
	if errors.Is(err, domain.ErrJobNotFound) {
		return domain.FailedView(id, domain.JobNotFoundMessage)
	}
	if err != nil {
		logger.With(logger.Fields{logger.FieldJobID: id}).Error(ctx, "Failed to read job: %v", err)
		return domain.FailedView(id, fmt.Sprintf("Job status unavailable: %v", err))
	}

	if c.stale(job) {
		applied, ferr := c.store.Fail(ctx, id, c.TimeoutMessage())
		if ferr != nil {
			logger.With(logger.Fields{logger.FieldJobID: id}).Warn(ctx, "Failed to expire stale job: %v", ferr)
		}
		if applied {
			logger.With(logger.Fields{logger.FieldJobID: id}).Warn(ctx, "Expired stale job")
			if fresh, gerr := c.store.Get(ctx, id); gerr == nil {
				job = fresh
			}
		}
	}
	return job.View()
}

// stale reports a non-terminal job that no goroutine in this process is running
// and that has not been touched for longer than the timeout.
func (c *JobController) stale(job *domain.Job) bool {
	if job.Status.Terminal() || c.lookup(job.ID) != nil {
		return false
	}
	return c.now().Sub(job.UpdatedAt) > c.cfg.Timeout
}

// RunSync runs the pipeline for repoURL in the calling goroutine without a job record.
func (c *JobController) RunSync(ctx context.Context, repoURL string, report ProgressFunc) (*Result, error) {
	repo, err := source.ParseLocator(repoURL)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithTimeoutCause(ctx, c.cfg.Timeout, domain.ErrTimedOut)
	defer cancel()

	res, err := c.runner.Run(runCtx, repo, report)
	if err != nil && errors.Is(context.Cause(runCtx), domain.ErrTimedOut) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTimedOut, c.TimeoutMessage())
	}
	return res, err
}

// Shutdown cancels every live job and waits for their goroutines, or for ctx.
func (c *JobController) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.stop(errShuttingDown)

	waited := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for jobs: %w", ctx.Err())
	}
}

// Live returns the number of jobs running in this process.
func (c *JobController) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

func (c *JobController) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *JobController) lookup(id string) *liveJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live[id]
}

func (c *JobController) recordProgress(id string, p float64) {
	if lj := c.lookup(id); lj != nil {
		lj.mu.Lock()
		if p > lj.progress {
			lj.progress = p
		}
		lj.mu.Unlock()
	}
}

func (c *JobController) release(id string) {
	c.mu.Lock()
	lj, ok := c.live[id]
	delete(c.live, id)
	c.mu.Unlock()
	if ok {
		lj.cancel(context.Canceled)
	}
}

// persist runs a conditional store write under the retry policy.
func (c *JobController) persist(ctx context.Context, op string, write func(ctx context.Context) (bool, error)) (bool, error) {
	var applied bool
	err := c.cfg.Retry.Do(ctx, op, func(ctx context.Context) error {
		var err error
		applied, err = write(ctx)
		return err
	})
	return applied, err
}
