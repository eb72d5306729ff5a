package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/repobrief/internal/config"
)

func TestChatGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if len(req.Messages) != 2 || req.Messages[1].Content == "fail" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"# Title"}}]}`))
	}))
	defer srv.Close()

	g := NewChatGenerator(ChatGeneratorConfig{BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
	out, err := g.Generate(context.Background(), "write a readme")
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)

	_, err = g.Generate(context.Background(), "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
}

func TestNewGeneratorUnknownProvider(t *testing.T) {
	_, err := NewGenerator(context.Background(), config.ProviderConfig{Provider: "mystery"})
	assert.Error(t, err)
}

func TestNewEmbeddingProviderDisabled(t *testing.T) {
	p, err := NewEmbeddingProvider(context.Background(), config.ProviderConfig{Provider: "none"})
	assert.NoError(t, err)
	assert.Nil(t, p)
}
