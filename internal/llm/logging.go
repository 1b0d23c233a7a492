package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/examgen/internal/metrics"
	"github.com/abhisek/examgen/internal/store"
)

// LoggingProvider is a decorator that records every LLM request as an event.
type LoggingProvider struct {
	inner     Provider
	eventRepo store.EventRepo
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// WithLogging wraps a Provider with event logging. repo, logger and m may
// be nil.
func WithLogging(p Provider, repo store.EventRepo, logger *slog.Logger, m *metrics.Metrics) Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LoggingProvider{inner: p, eventRepo: repo, logger: logger, metrics: m}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	elapsed := time.Since(start)
	l.metrics.ProviderCall(l.inner.Name(), err == nil, elapsed.Seconds())

	data := store.LLMRequestEventData{
		Provider:    l.inner.Name(),
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   elapsed.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	attrs := []any{
		slog.String("provider", data.Provider),
		slog.String("purpose", purpose),
		slog.Int64("latency_ms", data.LatencyMs),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = resp.Text
		attrs = append(attrs,
			slog.String("model", data.Model),
			slog.Int("input_tokens", data.InputTokens),
			slog.Int("output_tokens", data.OutputTokens),
		)
		if c := LookupCost(data.Model); c != nil {
			attrs = append(attrs, slog.Float64("cost_usd", c.Cost(data.InputTokens, data.OutputTokens)))
		}
	}

	if err != nil {
		data.ErrorMessage = err.Error()
		l.logger.WarnContext(ctx, "llm request failed", append(attrs, slog.Any("error", err))...)
	} else {
		l.logger.DebugContext(ctx, "llm request", attrs...)
	}

	// Don't fail the request if the event can't be saved. A cancelled
	// request context would drop the row, so write it detached.
	if l.eventRepo != nil {
		if logErr := l.eventRepo.AppendLLMRequest(context.WithoutCancel(ctx), data); logErr != nil {
			l.logger.WarnContext(ctx, "failed to record llm request event", slog.Any("error", logErr))
		}
	}

	return resp, err
}

func (l *LoggingProvider) Name() string {
	return l.inner.Name()
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	b.WriteString("[user]\n")
	b.WriteString(req.Prompt)
	b.WriteString("\n")

	return b.String()
}
