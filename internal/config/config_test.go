package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Pipeline.TopK)
	assert.Equal(t, 0.65, cfg.Pipeline.Lambda)
	assert.Equal(t, 4000, cfg.Pipeline.MaxCharsPerFile)
	assert.Equal(t, 50000, cfg.Pipeline.MaxTotalChars)
	assert.Equal(t, 25, cfg.Pipeline.MaxCandidates)
	assert.Equal(t, 10*time.Minute, cfg.Jobs.Timeout)
	assert.Equal(t, 3, cfg.Jobs.RetryAttempts)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("PIPELINE_TOPK", "4")

	cfg, err := Load(writeConfig(t, "jobs:\n  timeout: 30s\n"))
	require.NoError(t, err)

	assert.Equal(t, "ghp_test", cfg.GitHub.Token)
	assert.Equal(t, 4, cfg.Pipeline.TopK)
	assert.Equal(t, 30*time.Second, cfg.Jobs.Timeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"lambda out of range", "pipeline:\n  lambda: 1.5\n"},
		{"unknown driver", "database:\n  driver: oracle\n"},
		{"unknown provider", "embedding:\n  provider: mystery\n"},
		{"openai without base url", "generation:\n  provider: openai-compatible\n  model: gpt-4o-mini\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestProviderResolveAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "from-env")
	t.Setenv("CUSTOM_KEY", "custom")

	assert.Equal(t, "direct", ProviderConfig{Provider: "gemini", APIKey: "direct"}.ResolveAPIKey())
	assert.Equal(t, "custom", ProviderConfig{Provider: "gemini", APIKeyEnv: "CUSTOM_KEY"}.ResolveAPIKey())
	assert.Equal(t, "from-env", ProviderConfig{Provider: "gemini"}.ResolveAPIKey())
	assert.False(t, ProviderConfig{Provider: "none"}.Enabled())
}

func TestDatabaseDSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./x.db"}
	assert.Equal(t, "./x.db", sqlite.DSN())

	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", pg.DSN())

	pg.URL = "postgres://x"
	assert.Equal(t, "postgres://x", pg.DSN())
}
