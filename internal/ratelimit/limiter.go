// Package ratelimit admits or rejects requests under fixed-window quotas kept
// in a shared QuotaStore.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/abhisek/examgen/internal/metrics"
)

// Limiter checks requests against policies. Windows are aligned to each
// key's first request, not to the wall clock.
type Limiter struct {
	store   QuotaStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithMetrics records decisions and store failures.
func WithMetrics(m *metrics.Metrics) LimiterOption {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// NewLimiter returns a Limiter over store.
func NewLimiter(store QuotaStore, logger *slog.Logger, opts ...LimiterOption) *Limiter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Limiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts the request against policy and reports whether it is
// admitted. The count includes the current request. A store failure admits
// the request and is logged as a warning.
func (l *Limiter) Check(ctx context.Context, info RequestInfo, policy Policy) Result {
	now := l.now()
	key := policy.Key(info)

	entry, err := l.store.UpsertIncrement(ctx, key, now, policy.Window)
	if err != nil || entry == nil {
		l.metrics.QuotaStoreError()
		l.logger.WarnContext(ctx, "quota store unavailable, admitting request",
			"class", string(policy.Class),
			"endpoint", info.Endpoint,
			"error", err,
		)
		return Result{
			Admitted:   true,
			Limit:      policy.MaxRequests,
			Remaining:  policy.MaxRequests,
			ResetAt:    now.Add(policy.Window),
			Window:     policy.Window,
			FailedOpen: true,
		}
	}

	res := Result{
		Admitted:  entry.Count <= policy.MaxRequests,
		Limit:     policy.MaxRequests,
		Remaining: max(0, policy.MaxRequests-entry.Count),
		ResetAt:   entry.ExpiresAt,
		TotalHits: entry.Count,
		Window:    policy.Window,
	}
	if !res.Admitted {
		res.RetryAfter = entry.ExpiresAt.Sub(now)
		l.logger.DebugContext(ctx, "request rejected by rate limit",
			"class", string(policy.Class),
			"endpoint", info.Endpoint,
			"hits", entry.Count,
			"limit", policy.MaxRequests,
		)
	}
	l.metrics.RateLimitDecision(string(policy.Class), res.Admitted)
	return res
}

// RetryAfterSeconds rounds the remaining window up to whole seconds, never
// below one.
func (r Result) RetryAfterSeconds() int {
	secs := int((r.RetryAfter + time.Second - 1) / time.Second)
	return max(1, secs)
}
