// Package metrics holds the Prometheus collectors shared by the rate limiter,
// the provider adapters and the generation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the service exports. A nil *Metrics is valid
// and records nothing, which keeps call sites free of nil checks.
type Metrics struct {
	RateLimitDecisions *prometheus.CounterVec
	QuotaStoreErrors   prometheus.Counter
	QuotaEntriesSwept  prometheus.Counter
	GenerationResults  *prometheus.CounterVec
	DroppedQuestions   prometheus.Counter
	ProviderCalls      *prometheus.CounterVec
	ProviderLatency    *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to avoid duplicate registration against the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RateLimitDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examgen_ratelimit_decisions_total",
			Help: "Rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		QuotaStoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "examgen_ratelimit_store_errors_total",
			Help: "Quota store failures that caused the limiter to fail open",
		}),
		QuotaEntriesSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "examgen_ratelimit_entries_swept_total",
			Help: "Expired quota entries removed by the sweeper",
		}),
		GenerationResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examgen_generation_results_total",
			Help: "Exam generation outcomes",
		}, []string{"outcome"}),
		DroppedQuestions: f.NewCounter(prometheus.CounterOpts{
			Name: "examgen_generation_dropped_questions_total",
			Help: "Generated questions dropped by validation",
		}),
		ProviderCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examgen_provider_calls_total",
			Help: "Upstream generation calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "examgen_provider_latency_seconds",
			Help:    "Upstream generation call latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"provider"}),
	}
}

func (m *Metrics) RateLimitDecision(class string, admitted bool) {
	if m == nil {
		return
	}
	outcome := "admitted"
	if !admitted {
		outcome = "rejected"
	}
	m.RateLimitDecisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) QuotaStoreError() {
	if m == nil {
		return
	}
	m.QuotaStoreErrors.Inc()
}

func (m *Metrics) Swept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.QuotaEntriesSwept.Add(float64(n))
}

func (m *Metrics) GenerationResult(outcome string) {
	if m == nil {
		return
	}
	m.GenerationResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Dropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedQuestions.Add(float64(n))
}

// ProviderCall records one upstream call and its wall-clock duration.
func (m *Metrics) ProviderCall(provider string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(seconds)
}
