package llm

import (
	"fmt"
	"os"
	"strconv"
)

// Provider names accepted in Config.Primary and Config.Fallback.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Primary and Fallback name the providers tried in order.
	Primary  string
	Fallback string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig

	// RequestsPerSecond caps outbound calls per provider. Zero disables
	// the throttle.
	RequestsPerSecond float64

	// MaxTokens bounds each reply. Default: 4096.
	MaxTokens int

	// Temperature is sent with every request. Default: 0.3.
	Temperature float64
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string
	Model   string // Default: "claude-sonnet"
	BaseURL string // Optional. Used by tests and proxies.
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for OpenAI-compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey  string
	Model   string // Default: "gemini-flash"
	BaseURL string // Optional.
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.0-flash-exp"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Primary:  ProviderAnthropic,
		Fallback: ProviderOpenAI,
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-exp",
		},
		RequestsPerSecond: 2,
		MaxTokens:         4096,
		Temperature:       0.3,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if p := os.Getenv("EXAMGEN_PRIMARY_PROVIDER"); p != "" {
		cfg.Primary = p
	}
	if p := os.Getenv("EXAMGEN_FALLBACK_PROVIDER"); p != "" {
		cfg.Fallback = p
	}

	if k := os.Getenv("EXAMGEN_ANTHROPIC_API_KEY"); k != "" {
		cfg.Anthropic.APIKey = k
	}
	if m := os.Getenv("EXAMGEN_ANTHROPIC_MODEL"); m != "" {
		cfg.Anthropic.Model = m
	}
	if u := os.Getenv("EXAMGEN_ANTHROPIC_BASE_URL"); u != "" {
		cfg.Anthropic.BaseURL = u
	}

	if k := os.Getenv("EXAMGEN_OPENAI_API_KEY"); k != "" {
		cfg.OpenAI.APIKey = k
	}
	if m := os.Getenv("EXAMGEN_OPENAI_MODEL"); m != "" {
		cfg.OpenAI.Model = m
	}
	if u := os.Getenv("EXAMGEN_OPENAI_BASE_URL"); u != "" {
		cfg.OpenAI.BaseURL = u
	}

	if k := os.Getenv("EXAMGEN_GEMINI_API_KEY"); k != "" {
		cfg.Gemini.APIKey = k
	}
	if m := os.Getenv("EXAMGEN_GEMINI_MODEL"); m != "" {
		cfg.Gemini.Model = m
	}

	if k := os.Getenv("EXAMGEN_OPENROUTER_API_KEY"); k != "" {
		cfg.OpenRouter.APIKey = k
	}
	if m := os.Getenv("EXAMGEN_OPENROUTER_MODEL"); m != "" {
		cfg.OpenRouter.Model = m
	}

	if v := os.Getenv("EXAMGEN_PROVIDER_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RequestsPerSecond = f
		}
	}

	return cfg
}

// APIKey returns the configured key for a provider name.
func (c Config) APIKey(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return c.Anthropic.APIKey
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	case ProviderGemini:
		return c.Gemini.APIKey
	case ProviderOpenRouter:
		return c.OpenRouter.APIKey
	}
	return ""
}

// Validate checks both slots name known providers and that at least one of
// them has an API key. A single missing key is allowed: that slot fails
// over at request time.
func (c Config) Validate() error {
	for _, slot := range []struct {
		name, provider string
	}{
		{"primary", c.Primary},
		{"fallback", c.Fallback},
	} {
		if !knownProvider(slot.provider) {
			return fmt.Errorf("unknown %s LLM provider: %q", slot.name, slot.provider)
		}
	}
	if c.APIKey(c.Primary) == "" && c.APIKey(c.Fallback) == "" {
		return fmt.Errorf("no LLM provider configured: set %s or %s",
			apiKeyEnv(c.Primary), apiKeyEnv(c.Fallback))
	}
	return nil
}

func knownProvider(name string) bool {
	switch name {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		return true
	}
	return false
}

func apiKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "EXAMGEN_ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "EXAMGEN_OPENAI_API_KEY"
	case ProviderGemini:
		return "EXAMGEN_GEMINI_API_KEY"
	case ProviderOpenRouter:
		return "EXAMGEN_OPENROUTER_API_KEY"
	}
	return ""
}
