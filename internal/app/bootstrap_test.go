package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/repobrief/internal/config"
	"github.com/timmy/repobrief/internal/domain"
)

func offlineConfig() *config.Config {
	return &config.Config{
		Database:   config.DatabaseConfig{Driver: "memory"},
		Embedding:  config.ProviderConfig{Provider: "none"},
		Generation: config.ProviderConfig{Provider: "openai-compatible", Model: "local", BaseURL: "http://127.0.0.1:1/v1"},
		Pipeline:   config.PipelineConfig{TopK: 8, Lambda: 0.65, MaxCharsPerFile: 4000, MaxTotalChars: 50000},
		Jobs:       config.JobsConfig{Timeout: time.Minute, RetryAttempts: 2, RetryBaseDelay: time.Millisecond},
	}
}

func TestBuildWithMemoryStore(t *testing.T) {
	a, err := Build(context.Background(), offlineConfig())
	require.NoError(t, err)
	require.NotNil(t, a.Jobs)
	defer func() { assert.NoError(t, a.Close()) }()

	view := a.Jobs.Status(context.Background(), "unknown")
	assert.Equal(t, domain.JobStatusFailed, view.Status)
	assert.Equal(t, domain.JobNotFoundMessage, view.Error)
}

func TestBuildWithSQLiteStore(t *testing.T) {
	cfg := offlineConfig()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "jobs.db"), AutoMigrate: true}

	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

func TestNewPipelineExclusionFile(t *testing.T) {
	cfg := offlineConfig()
	cfg.Pipeline.ExclusionFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewPipeline(context.Background(), cfg)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "exclude.yaml")
	require.NoError(t, os.WriteFile(path, []byte("substrings: [fixtures]\nextensions: [.snap]\n"), 0o644))
	cfg.Pipeline.ExclusionFile = path
	p, err := NewPipeline(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestBuildRejectsUnknownGenerator(t *testing.T) {
	cfg := offlineConfig()
	cfg.Generation.Provider = "carrier-pigeon"
	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)
}
