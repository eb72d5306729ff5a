package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/repobrief/internal/api/handler"
	"github.com/timmy/repobrief/internal/api/middleware"
	"github.com/timmy/repobrief/internal/config"
	"github.com/timmy/repobrief/internal/logger"
	"github.com/timmy/repobrief/internal/service"
)

// SetupRouter configures the Gin router with all routes.
// Parameters:
//   - jobs: job controller behind the /api/v1/jobs routes.
//   - cfg: server section of the config (mode and CORS).
//   - log: base request logger; nil uses the default.
// Returns:
//   - *gin.Engine: ready router.
func SetupRouter(jobs *service.JobController, cfg config.ServerConfig, log *logger.Logger) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler(jobs.Live)
	jobHandler := handler.NewJobHandler(jobs)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/jobs", jobHandler.Submit)
		v1.GET("/jobs/:id", jobHandler.Status)
		v1.DELETE("/jobs/:id", jobHandler.Cancel)
	}

	return r
}
