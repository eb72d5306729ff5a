package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	live func() int
}

// NewHealthHandler creates a health handler. live reports the number of running jobs; it may be nil.
func NewHealthHandler(live func() int) *HealthHandler {
	return &HealthHandler{live: live}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.live != nil {
		body["live_jobs"] = h.live()
	}
	c.JSON(http.StatusOK, body)
}
