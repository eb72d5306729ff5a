package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/repobrief/internal/config"
	"google.golang.org/genai"
)

const (
	jinaBaseURL           = "https://api.jina.ai/v1"
	defaultEmbeddingModel = "text-embedding-004"
	defaultEmbeddingDims  = 768
)

// EmbeddingProvider maps one text to a fixed-dimension vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimensions() int
}

// QueryEmbedder is implemented by providers that embed search queries
// differently from the documents they are matched against.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbeddingProvider builds the provider named by cfg.Provider.
// Parameters:
//   - ctx: used by SDK clients during construction.
//   - cfg: provider configuration.
// Returns:
//   - EmbeddingProvider: nil when embeddings are disabled ("none" or empty provider).
//   - error: non-nil for unknown providers or client construction failures.
func NewEmbeddingProvider(ctx context.Context, cfg config.ProviderConfig) (EmbeddingProvider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultEmbeddingDims
	}
	switch cfg.Provider {
	case "gemini":
		return NewGeminiEmbedding(ctx, cfg.ResolveAPIKey(), cfg.Model, dims)
	case "jina":
		base := cfg.BaseURL
		if base == "" {
			base = jinaBaseURL
		}
		return NewHTTPEmbedding(HTTPEmbeddingConfig{
			BaseURL: base, APIKey: cfg.ResolveAPIKey(), Model: cfg.Model,
			Dimensions: dims, Task: "retrieval.passage", QueryTask: "retrieval.query", Timeout: cfg.Timeout,
		}), nil
	case "openai-compatible":
		return NewHTTPEmbedding(HTTPEmbeddingConfig{
			BaseURL: cfg.BaseURL, APIKey: cfg.ResolveAPIKey(), Model: cfg.Model,
			Dimensions: dims, Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// GeminiEmbedding calls the Gemini embedContent API through the genai SDK.
type GeminiEmbedding struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbedding creates a Gemini embedding provider.
func NewGeminiEmbedding(ctx context.Context, apiKey, model string, dimensions int) (*GeminiEmbedding, error) {
	if model == "" {
		model = defaultEmbeddingModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiEmbedding{client: client, model: model, dimensions: dimensions}, nil
}

func (g *GeminiEmbedding) Model() string   { return g.model }
func (g *GeminiEmbedding) Dimensions() int { return g.dimensions }

// Embed returns the document embedding of text.
func (g *GeminiEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, "RETRIEVAL_DOCUMENT")
}

// EmbedQuery returns the query embedding of text.
func (g *GeminiEmbedding) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, "RETRIEVAL_QUERY")
}

func (g *GeminiEmbedding) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("gemini embed: no embedding returned")
	}
	return resp.Embeddings[0].Values, nil
}

// HTTPEmbeddingConfig configures an OpenAI-style /embeddings endpoint.
type HTTPEmbeddingConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Task       string // jina task hint, empty for plain OpenAI-compatible servers
	QueryTask  string // task hint for queries; defaults to Task
	Timeout    time.Duration
}

// HTTPEmbedding talks to Jina or any OpenAI-compatible embeddings API.
type HTTPEmbedding struct {
	client     *resty.Client
	endpoint   string
	model      string
	task       string
	queryTask  string
	dimensions int
}

// NewHTTPEmbedding creates an HTTP embedding provider.
func NewHTTPEmbedding(cfg HTTPEmbeddingConfig) *HTTPEmbedding {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	queryTask := cfg.QueryTask
	if queryTask == "" {
		queryTask = cfg.Task
	}
	return &HTTPEmbedding{
		client:     client,
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + "/embeddings",
		model:      cfg.Model,
		task:       cfg.Task,
		queryTask:  queryTask,
		dimensions: cfg.Dimensions,
	}
}

func (h *HTTPEmbedding) Model() string   { return h.model }
func (h *HTTPEmbedding) Dimensions() int { return h.dimensions }

type embeddingRequest struct {
	Model      string   `json:"model"`
	Task       string   `json:"task,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
	Input      []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns the document embedding of text.
func (h *HTTPEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	return h.embed(ctx, text, h.task)
}

// EmbedQuery returns the query embedding of text.
func (h *HTTPEmbedding) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return h.embed(ctx, text, h.queryTask)
}

func (h *HTTPEmbedding) embed(ctx context.Context, text, task string) ([]float32, error) {
	var resp embeddingResponse
	httpResp, err := h.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{
			Model:      h.model,
			Task:       task,
			Dimensions: h.dimensions,
			Input:      []string{text},
		}).
		SetResult(&resp).
		SetError(&resp).
		Post(h.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}
	if httpResp.IsError() {
		switch {
		case resp.Error != nil:
			return nil, fmt.Errorf("embedding API error: HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		case resp.Detail != "":
			return nil, fmt.Errorf("embedding API error: HTTP %d: %s", httpResp.StatusCode(), resp.Detail)
		default:
			return nil, fmt.Errorf("embedding API error: HTTP %d", httpResp.StatusCode())
		}
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}
