package generation

import (
	"time"

	"github.com/abhisek/examgen/internal/questiongen"
)

// Config bounds one generation run.
type Config struct {
	// ProviderTimeout bounds the primary and fallback calls together.
	ProviderTimeout time.Duration

	// MaxSourceChars is the prompt budget for source text.
	MaxSourceChars int

	// MaxQuestions caps Request.QuestionCount.
	MaxQuestions int

	// FetchConcurrency caps parallel document fetches.
	FetchConcurrency int

	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ProviderTimeout:  60 * time.Second,
		MaxSourceChars:   questiongen.DefaultMaxSourceChars,
		MaxQuestions:     50,
		FetchConcurrency: 4,
		MaxTokens:        4096,
		Temperature:      0.3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = d.ProviderTimeout
	}
	if c.MaxSourceChars <= 0 {
		c.MaxSourceChars = d.MaxSourceChars
	}
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = d.MaxQuestions
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = d.FetchConcurrency
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	return c
}
