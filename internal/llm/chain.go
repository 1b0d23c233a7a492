package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/examgen/internal/metrics"
	"github.com/abhisek/examgen/internal/store"
)

// NewProvider builds the adapter for a provider name. A missing API key is
// reported as *ConfigMissingError.
func NewProvider(ctx context.Context, name string, cfg Config) (Provider, error) {
	switch name {
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		return NewOpenRouterProvider(cfg.OpenRouter)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", name)
	}
}

// NewChain builds the ordered primary/fallback provider list. Each entry is
// throttled and logged. A slot without an API key stays in the chain and
// fails fast, so the other slot still serves requests.
func NewChain(ctx context.Context, cfg Config, events store.EventRepo, logger *slog.Logger, m *metrics.Metrics) ([]Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var chain []Provider
	for _, slot := range []struct {
		slot Slot
		name string
	}{
		{SlotPrimary, cfg.Primary},
		{SlotFallback, cfg.Fallback},
	} {
		p, err := NewProvider(ctx, slot.name, cfg)
		if err != nil {
			if !IsConfigMissing(err) {
				return nil, fmt.Errorf("%s provider: %w", slot.slot, err)
			}
			var missing *ConfigMissingError
			errors.As(err, &missing)
			logger.Warn("llm provider not configured",
				slog.String("slot", string(slot.slot)),
				slog.String("provider", slot.name),
				slog.String("env", missing.EnvVar))
			p = unconfiguredProvider{name: slot.name}
		} else {
			p = WithThrottle(p, cfg.RequestsPerSecond)
		}
		chain = append(chain, WithLogging(p, events, logger, m))
	}
	return chain, nil
}
