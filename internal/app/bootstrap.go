// Package app wires configuration into a ready JobController. Both binaries start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/repobrief/internal/config"
	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/logger"
	"github.com/timmy/repobrief/internal/repository"
	"github.com/timmy/repobrief/internal/service"
	"github.com/timmy/repobrief/internal/source"
	"github.com/timmy/repobrief/internal/source/github"
	"github.com/timmy/repobrief/internal/storage"
)

// App is the assembled service graph.
type App struct {
	Config *config.Config
	Jobs   *service.JobController

	closers []func() error
}

// Build assembles every component described by cfg.
// Parameters:
//   - ctx: bounds client construction and the storage bucket check.
//   - cfg: loaded configuration.
// Returns:
//   - *App: ready graph; call Close when done.
//   - error: non-nil if any component cannot be created.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, closeStore, err := repository.NewJobStore(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init job store: %w", err)
	}
	a.closers = append(a.closers, closeStore)

	pipeline, err := NewPipeline(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	artifacts, err := storage.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init artifact storage: %w", err)
	}
	if artifacts != nil {
		logger.CtxInfo(ctx, "Publishing summaries to bucket %s", cfg.Storage.Bucket)
	}

	a.Jobs = service.NewJobController(store, pipeline, service.JobControllerConfig{
		Timeout: cfg.Jobs.Timeout,
		Retry: service.RetryPolicy{
			MaxAttempts: cfg.Jobs.RetryAttempts,
			BaseDelay:   cfg.Jobs.RetryBaseDelay,
			MaxDelay:    cfg.Jobs.RetryMaxDelay,
		},
		Artifacts:      artifacts,
		ArtifactPrefix: cfg.Storage.Prefix,
	})
	return a, nil
}

// NewPipeline builds the hosting client, embedder and generator and joins them into a Pipeline.
func NewPipeline(ctx context.Context, cfg *config.Config) (*service.Pipeline, error) {
	policy := source.DefaultExclusionPolicy()
	if cfg.Pipeline.ExclusionFile != "" {
		p, err := source.LoadExclusionFile(cfg.Pipeline.ExclusionFile)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	host, err := github.NewClient(github.Config{
		Token:        cfg.GitHub.Token,
		APIBaseURL:   cfg.GitHub.APIBaseURL,
		RawBaseURL:   cfg.GitHub.RawBaseURL,
		Timeout:      cfg.GitHub.Timeout,
		MaxFileBytes: cfg.GitHub.MaxFileBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("init github client: %w", err)
	}

	var embedder *service.FileEmbedder
	provider, err := service.NewEmbeddingProvider(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	if provider != nil {
		embedder, err = service.NewFileEmbedder(provider, service.FileEmbedderConfig{
			BatchSize:      cfg.Pipeline.EmbedBatchSize,
			MaxChars:       cfg.Pipeline.EmbedMaxChars,
			QueryCacheSize: cfg.Pipeline.QueryCacheSize,
		})
		if err != nil {
			return nil, err
		}
		logger.CtxInfo(ctx, "Embedding with %s (%d dimensions)", provider.Model(), embedder.Dimensions())
	} else {
		logger.CtxWarn(ctx, "Embeddings disabled; files will be selected by path priority")
	}

	generator, err := service.NewGenerator(ctx, cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}

	return service.NewPipeline(source.NewFetcher(host, policy), embedder, generator, service.PipelineConfig{
		Selection: domain.SelectionConfig{TopK: cfg.Pipeline.TopK, Lambda: cfg.Pipeline.Lambda},
		Budget: domain.ContextBudget{
			MaxCharsPerFile: cfg.Pipeline.MaxCharsPerFile,
			MaxTotalChars:   cfg.Pipeline.MaxTotalChars,
		},
		MaxCandidates:     cfg.Pipeline.MaxCandidates,
		CompressOverChars: cfg.Pipeline.CompressOverChars,
		CompressRatio:     cfg.Pipeline.CompressRatio,
	}), nil
}

// Close releases every resource opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
