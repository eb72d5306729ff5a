package config

import (
	"fmt"
	"os"
	"time"
)

// ProviderConfig describes an external model endpoint used for embeddings or generation.
// Provider is "gemini", "jina", "openai-compatible" or "none".
type ProviderConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	APIKeyEnv   string        `mapstructure:"api_key_env"`
	BaseURL     string        `mapstructure:"base_url"`
	Dimensions  int           `mapstructure:"dimensions"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// defaultKeyEnv is consulted when api_key and api_key_env are both unset.
var defaultKeyEnv = map[string]string{
	"gemini":            "GOOGLE_API_KEY",
	"jina":              "JINA_API_KEY",
	"openai-compatible": "OPENAI_API_KEY",
}

// Enabled reports whether a provider is configured at all.
func (c ProviderConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}

// ResolveAPIKey returns the direct key, else the value of APIKeyEnv, else the provider's conventional variable.
func (c ProviderConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv)
	}
	if env, ok := defaultKeyEnv[c.Provider]; ok {
		return os.Getenv(env)
	}
	return ""
}

func (c ProviderConfig) validate(section string) error {
	if !c.Enabled() {
		return nil
	}
	if _, ok := defaultKeyEnv[c.Provider]; !ok {
		return fmt.Errorf("%s: unknown provider %q", section, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%s %q: model is required", section, c.Provider)
	}
	if c.Provider == "openai-compatible" && c.BaseURL == "" {
		return fmt.Errorf("%s %q: base_url is required", section, c.Provider)
	}
	return nil
}
