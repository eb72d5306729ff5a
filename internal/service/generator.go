package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/repobrief/internal/config"
	"github.com/timmy/repobrief/internal/prompts"
	"google.golang.org/genai"
)

const defaultGenerationModel = "gemini-2.5-flash"

// Generator produces text from a prompt in a single round trip.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// NewGenerator builds the generator named by cfg.Provider.
func NewGenerator(ctx context.Context, cfg config.ProviderConfig) (Generator, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiGenerator(ctx, cfg.ResolveAPIKey(), cfg.Model, cfg.Temperature)
	case "openai-compatible":
		return NewChatGenerator(ChatGeneratorConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.ResolveAPIKey(),
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

// GeminiGenerator calls generateContent through the genai SDK.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiGenerator creates a Gemini generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, temperature float64) (*GeminiGenerator, error) {
	if model == "" {
		model = defaultGenerationModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, temperature: float32(temperature)}, nil
}

func (g *GeminiGenerator) Model() string { return g.model }

// Generate returns the concatenated text parts of the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	temp := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{Temperature: &temp},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini generate: no candidates returned")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	return b.String(), nil
}

// ChatGeneratorConfig configures an OpenAI-compatible chat completions endpoint.
type ChatGeneratorConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ChatGenerator talks to any OpenAI-compatible /chat/completions API.
type ChatGenerator struct {
	client      *resty.Client
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
}

// NewChatGenerator creates a chat completions generator.
func NewChatGenerator(cfg ChatGeneratorConfig) *ChatGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &ChatGenerator{
		client:      client,
		endpoint:    strings.TrimSuffix(base, "/") + "/chat/completions",
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *ChatGenerator) Model() string { return c.model }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends prompt as the user message.
func (c *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: prompts.ReadmeSystemPrompt},
				{Role: "user", Content: prompt},
			},
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
		}).
		SetResult(&resp).
		SetError(&resp).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call generation API: %w", err)
	}
	if httpResp.IsError() {
		if resp.Error != nil {
			return "", fmt.Errorf("generation API error: HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("generation API error: HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("generation API returned no content")
	}
	return resp.Choices[0].Message.Content, nil
}
