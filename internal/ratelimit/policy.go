package ratelimit

import (
	"fmt"
	"net/http"
	"time"
)

// Policies maps each endpoint class to its policy.
type Policies map[EndpointClass]Policy

// DefaultPolicies returns the built-in limits. Payment is the strictest to
// blunt card testing; webhook tolerates provider retries; api is the most
// permissive.
func DefaultPolicies() Policies {
	return Policies{
		ClassPayment: {
			Class:       ClassPayment,
			Window:      time.Minute,
			MaxRequests: 5,
			OnExceeded: OnExceeded{
				Status:  http.StatusTooManyRequests,
				Message: "Too many payment attempts. Please wait before trying again.",
			},
		},
		ClassAuth: {
			Class:       ClassAuth,
			Window:      15 * time.Minute,
			MaxRequests: 10,
			OnExceeded: OnExceeded{
				Status:  http.StatusTooManyRequests,
				Message: "Too many authentication attempts. Please try again later.",
			},
		},
		ClassAPI: {
			Class:       ClassAPI,
			Window:      15 * time.Minute,
			MaxRequests: 100,
			OnExceeded: OnExceeded{
				Status:  http.StatusTooManyRequests,
				Message: "Too many requests. Please try again later.",
			},
		},
		ClassUpload: {
			Class:       ClassUpload,
			Window:      time.Hour,
			MaxRequests: 20,
			OnExceeded: OnExceeded{
				Status:  http.StatusTooManyRequests,
				Message: "Upload limit reached. Please try again later.",
			},
		},
		ClassWebhook: {
			Class:       ClassWebhook,
			Window:      time.Minute,
			MaxRequests: 60,
			OnExceeded: OnExceeded{
				Status:  http.StatusTooManyRequests,
				Message: "Webhook rate limit exceeded.",
			},
		},
	}
}

// Lookup returns the policy for class.
func (ps Policies) Lookup(class EndpointClass) (Policy, bool) {
	p, ok := ps[class]
	return p, ok
}

// Validate checks every policy has a positive window and request budget.
func (ps Policies) Validate() error {
	for class, p := range ps {
		if !class.IsValid() {
			return fmt.Errorf("unknown endpoint class %q", class)
		}
		if p.Window <= 0 {
			return fmt.Errorf("policy %s: window must be positive", class)
		}
		if p.MaxRequests <= 0 {
			return fmt.Errorf("policy %s: max requests must be positive", class)
		}
	}
	return nil
}
