package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/service"
)

// CallerIDHeader identifies the submitting caller. It is stored verbatim and never interpreted.
const CallerIDHeader = "X-Caller-ID"

// SubmitJobRequest is the body of POST /api/v1/jobs.
type SubmitJobRequest struct {
	RepoURL string `json:"repo_url" binding:"required"`
}

// JobHandler exposes the job controller over HTTP.
type JobHandler struct {
	jobs *service.JobController
}

// NewJobHandler creates a job handler.
// Parameters:
//   - jobs: job controller instance.
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(jobs *service.JobController) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Submit handles POST /api/v1/jobs.
func (h *JobHandler) Submit(c *gin.Context) {
	var req SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	id, err := h.jobs.Submit(c.Request.Context(), req.RepoURL, callerID(c))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidReference) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrShuttingDown) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to submit job: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": id,
		"status": domain.JobStatusPending,
	})
}

// Status handles GET /api/v1/jobs/:id. Unknown ids get a Failed status object, not a 404.
func (h *JobHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.Status(c.Request.Context(), c.Param("id")))
}

// Cancel handles DELETE /api/v1/jobs/:id.
func (h *JobHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"job_id":    id,
		"cancelled": h.jobs.Cancel(c.Request.Context(), id),
	})
}

func callerID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(CallerIDHeader)); id != "" {
		return id
	}
	return c.ClientIP()
}
