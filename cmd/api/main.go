package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/repobrief/internal/api"
	"github.com/timmy/repobrief/internal/app"
	"github.com/timmy/repobrief/internal/config"
	"github.com/timmy/repobrief/internal/logger"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := logger.SetComponent(appLogger.WithContext(context.Background()), "api")
	a, err := app.Build(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize services")
	}
	defer a.Close()

	router := api.SetupRouter(a.Jobs, cfg.Server, appLogger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	if err := a.Jobs.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Jobs did not stop in time")
	}

	appLogger.Info("Server exited")
}
