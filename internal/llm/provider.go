package llm

import (
	"context"
)

// Provider is the core abstraction for LLM interaction. Implementations
// translate a Request into one upstream call and never retry on their own.
type Provider interface {
	// Generate sends a prompt to the LLM and returns its raw text reply.
	// Every failure is reported as a *ProviderError.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider label: anthropic, openai, gemini,
	// openrouter or mock.
	Name() string

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the LLM's role and constraints.
	System string

	// Prompt is the single user turn.
	Prompt string

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	// Default: 0.0 (deterministic) when not set.
	Temperature float64
}

// Response holds the LLM's output.
type Response struct {
	// Text is the reply exactly as the model produced it.
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens"
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Slot is a position in the ordered provider list.
type Slot string

const (
	SlotPrimary  Slot = "primary"
	SlotFallback Slot = "fallback"
)
