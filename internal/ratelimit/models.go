package ratelimit

import (
	"net/http"
	"time"
)

// EndpointClass groups endpoints that share one rate limit policy.
type EndpointClass string

const (
	// ClassPayment covers checkout and billing endpoints. Strictest window.
	ClassPayment EndpointClass = "payment"
	// ClassAuth covers sign-in and token endpoints.
	ClassAuth EndpointClass = "auth"
	// ClassAPI covers general API traffic, including exam generation.
	ClassAPI EndpointClass = "api"
	// ClassUpload covers document uploads.
	ClassUpload EndpointClass = "upload"
	// ClassWebhook covers inbound provider webhooks, which retry on failure.
	ClassWebhook EndpointClass = "webhook"
)

// Classes lists every supported endpoint class.
var Classes = []EndpointClass{ClassPayment, ClassAuth, ClassAPI, ClassUpload, ClassWebhook}

// IsValid reports whether c is one of the supported classes.
func (c EndpointClass) IsValid() bool {
	for _, k := range Classes {
		if c == k {
			return true
		}
	}
	return false
}

// QuotaEntry is the persisted counter for one key in its current window.
type QuotaEntry struct {
	Key         string
	Count       int
	WindowStart time.Time
	ExpiresAt   time.Time
}

// Live reports whether the entry's window is still open at now.
func (e *QuotaEntry) Live(now time.Time) bool {
	return e != nil && now.Before(e.ExpiresAt)
}

// RequestInfo is what the limiter knows about an inbound request.
type RequestInfo struct {
	Endpoint  string
	ClientIP  string
	UserAgent string
	// UserID is the authenticated caller, empty when anonymous.
	UserID string
}

// KeyStrategy derives the quota key for a request under a policy.
type KeyStrategy func(class EndpointClass, info RequestInfo) string

// OnExceeded describes the response sent when a policy rejects a request.
type OnExceeded struct {
	Status  int
	Message string
}

// Policy is the admission rule for one endpoint class.
type Policy struct {
	Class       EndpointClass
	Window      time.Duration
	MaxRequests int
	KeyStrategy KeyStrategy
	OnExceeded  OnExceeded
}

// Key applies the policy's key strategy, defaulting to DefaultKeyStrategy.
func (p Policy) Key(info RequestInfo) string {
	if p.KeyStrategy != nil {
		return p.KeyStrategy(p.Class, info)
	}
	return DefaultKeyStrategy(p.Class, info)
}

func (p Policy) exceeded() OnExceeded {
	out := p.OnExceeded
	if out.Status == 0 {
		out.Status = http.StatusTooManyRequests
	}
	if out.Message == "" {
		out.Message = "Too many requests. Please try again later."
	}
	return out
}

// Result is the outcome of a single admission check.
type Result struct {
	Admitted  bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	TotalHits int
	Window    time.Duration
	// RetryAfter is the time left in the window; only set on rejection.
	RetryAfter time.Duration
	// FailedOpen is true when the store was unavailable and the request was
	// admitted without being counted.
	FailedOpen bool
}
